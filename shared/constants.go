package shared

const (
	// How few clips may remain after the cursor before the backend is
	// asked for more.
	BackfillThreshold = 5

	// Preload window around the now-playing cursor.
	PreloadAhead  = 3
	PreloadBehind = 1

	// Prepared audio handles kept in memory at once.
	AudioCacheSize = 5

	// Shows a user must follow before onboarding can complete.
	MinimumFollows = 3

	DefaultCategoryID int64 = 0

	StreamSession  = "session"
	StreamPlayback = "playback"

	UserAgent = "Earshot/1.0 <github.com/earshot-audio/earshot>"
)
