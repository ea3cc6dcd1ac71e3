package session

import (
	"log/slog"
)

// engineSink relays engine events back into the session. It holds a
// plain non-owning reference; the session outlives the engine's
// goroutines by construction.
type engineSink struct {
	session *Session
}

func (es *engineSink) TimeUpdated(seconds float64) {
	s := es.session
	s.tracker.Observe(seconds, s.engine.Duration())
	s.broadcastPlayback()
}

// Ready means a freshly loaded clip is playable. When the load came
// from a natural end of the previous clip, playback resumes here
// without a user intent so the feed keeps rolling.
func (es *engineSink) Ready() {
	s := es.session
	if s.consumeResume() {
		s.engine.Play()
		s.tracker.StartTracking()
	}
	s.broadcastPlayback()
}

func (es *engineSink) DurationLoaded(seconds float64) {
	s := es.session
	s.tracker.Observe(s.engine.Position(), seconds)
	s.broadcastPlayback()
}

// Ended advances to the next clip. The engine only signals; the session
// owns the decision of what plays next.
func (es *engineSink) Ended() {
	s := es.session
	// Flush the terminal progress report before the cursor moves
	s.tracker.StopTracking()
	s.mu.Lock()
	s.resumeOnReady = true
	s.mu.Unlock()
	s.Next()
}

func (es *engineSink) PlaybackError(mediaKey string, err error) {
	s := es.session
	// The clip stays skippable via next/previous; no automatic retry,
	// and no pending resume survives the failure
	s.consumeResume()
	slog.Error("Media failed to prepare",
		slog.String("media_key", mediaKey),
		slog.String("stack", err.Error()),
	)
	s.broadcastPlayback()
}
