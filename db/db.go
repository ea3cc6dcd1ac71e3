package db

import (
	"github.com/earshot-audio/earshot/models"
)

// Preference keys. Preferences are the small scalar state that must
// survive a restart: who we are and how fast we play.
const (
	PrefAuthToken    = "auth_token"
	PrefUsername     = "username"
	PrefPlaybackRate = "playback_rate"
)

// Store holds the client's persisted local state: auth token, playback
// preferences, and cached copies of server-side lists so the session
// can pre-populate itself before the first network round-trip. Reset
// wipes everything wholesale on logout.
type Store interface {
	GetPreference(key string) (string, error)
	SetPreference(key, value string) error
	DeletePreference(key string) error

	CachedFollows() ([]models.Follow, error)
	ReplaceFollows(follows []models.Follow) error

	CachedCategories() ([]models.Category, error)
	ReplaceCategories(categories []models.Category) error

	CachedCategoryScores() ([]models.CategoryScore, error)
	ReplaceCategoryScores(scores []models.CategoryScore) error

	Reset() error
}
