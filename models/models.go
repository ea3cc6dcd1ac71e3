package models

import (
	"time"
)

// Show is a named audio feed that groups clips. Two shows are the same
// show iff their IDs match, regardless of any other field drift.
type Show struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ArtworkKey  string    `json:"artwork_key"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Clip is a short playable audio segment belonging to a Show. Clips are
// server-sourced and immutable; a reload replaces them wholesale.
type Clip struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	StartMs   int       `json:"start_ms"`
	EndMs     int       `json:"end_ms"`
	MediaKey  string    `json:"media_key"`
	Show      Show      `json:"feed"`
	Score     *float64  `json:"score,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c Clip) DurationMs() int {
	return c.EndMs - c.StartMs
}

type Category struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id,omitempty"`
	// Hint only; the real count lives server side
	ClipCount int `json:"clip_count"`
}

// Follow records interest (or explicit disinterest) in a Show.
// Interested=false means the show is blocked, not merely unfollowed.
type Follow struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	Show       Show      `json:"feed"`
	Interested bool      `json:"is_interested"`
	CreatedAt  time.Time `json:"created_at"`
}

// ClipView is a single history entry: a clip plus how much of it was
// consumed when it was last played.
type ClipView struct {
	ID        int64     `json:"id"`
	Clip      Clip      `json:"clip"`
	CreatedAt time.Time `json:"created_at"`
	Duration  int       `json:"duration"`
}

type CategoryScore struct {
	ID         int64   `json:"id"`
	CategoryID int64   `json:"category_id"`
	Score      float64 `json:"score"`
}

// Page is the pagination envelope every list endpoint is wrapped in.
// The engine only ever consumes Results.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

type AuthResponse struct {
	Token    string `json:"token"`
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Asset describes where a media key actually lives and how long it runs.
type Asset struct {
	URL        string `json:"url"`
	DurationMs int    `json:"duration_ms"`
}
