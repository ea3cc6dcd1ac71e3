package queue

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/earshot-audio/earshot/models"
	"github.com/earshot-audio/earshot/shared"
)

// Loader fetches more clips, excluding ids the queue has already seen.
// A failed load degrades to an empty result; the queue never retries on
// its own.
type Loader func(excludeIDs []int64) ([]models.Clip, error)

// Queue is an ordered, mutable sequence of clips with a now-playing
// cursor. The seen-id set is monotonic for the life of the queue: once
// a clip id has passed through, it can never be appended again.
type Queue struct {
	mu      sync.Mutex
	clips   []models.Clip
	cursor  int // -1 while unset
	seen    map[int64]struct{}
	loading bool
}

func New() *Queue {
	return &Queue{
		cursor: -1,
		seen:   map[int64]struct{}{},
	}
}

// Append adds clips whose ids have never been seen, in order, and
// returns how many survived the dedup.
func (q *Queue) Append(clips []models.Clip) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.appendLocked(clips)
}

func (q *Queue) appendLocked(clips []models.Clip) int {
	appended := 0
	for _, clip := range clips {
		if _, ok := q.seen[clip.ID]; ok {
			continue
		}
		q.seen[clip.ID] = struct{}{}
		q.clips = append(q.clips, clip)
		appended++
	}
	return appended
}

// Advance moves the cursor by delta, clamped within the sequence. On an
// empty queue the cursor stays unset.
func (q *Queue) Advance(delta int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.clips) == 0 {
		return
	}
	next := q.cursor + delta
	if next < 0 {
		next = 0
	}
	if next > len(q.clips)-1 {
		next = len(q.clips) - 1
	}
	q.cursor = next
}

// SetCursor jumps to an absolute index, ignored when out of bounds.
func (q *Queue) SetCursor(index int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if index < 0 || index >= len(q.clips) {
		return
	}
	q.cursor = index
}

func (q *Queue) Cursor() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.cursor
}

// Current returns the now-playing clip, if the cursor is set.
func (q *Queue) Current() (models.Clip, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.cursor < 0 || q.cursor >= len(q.clips) {
		return models.Clip{}, false
	}
	return q.clips[q.cursor], true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.clips)
}

// NeedsBackfill reports whether fewer clips than the threshold remain
// after the cursor.
func (q *Queue) NeedsBackfill() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.clips)-(q.cursor+1) < shared.BackfillThreshold
}

// RequestBackfill runs the loader with the current seen-id set and
// appends whatever comes back. At most one backfill is in flight per
// queue; calls made while one is running are dropped on the floor.
func (q *Queue) RequestBackfill(loader Loader) {
	q.mu.Lock()
	if q.loading {
		q.mu.Unlock()
		return
	}
	q.loading = true
	excludeIDs := q.seenIDsLocked()
	q.mu.Unlock()

	clips, err := loader(excludeIDs)
	if err != nil {
		slog.Error("Backfill load failed", slog.String("stack", err.Error()))
		clips = nil
	}

	q.mu.Lock()
	q.appendLocked(clips)
	q.loading = false
	q.mu.Unlock()
}

func (q *Queue) Loading() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.loading
}

// History is the read view of clips strictly before the cursor.
func (q *Queue) History() []models.Clip {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.cursor <= 0 {
		return nil
	}
	return q.clips[:q.cursor]
}

// UpNext is the read view of clips strictly after the cursor.
func (q *Queue) UpNext() []models.Clip {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.cursor < 0 || q.cursor+1 >= len(q.clips) {
		return nil
	}
	return q.clips[q.cursor+1:]
}

// All returns a snapshot copy of the full sequence.
func (q *Queue) All() []models.Clip {
	q.mu.Lock()
	defer q.mu.Unlock()
	clips := make([]models.Clip, len(q.clips))
	copy(clips, q.clips)
	return clips
}

// SeenIDs returns every id that has ever been in the sequence, sorted
// for stable request building.
func (q *Queue) SeenIDs() []int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.seenIDsLocked()
}

func (q *Queue) seenIDsLocked() []int64 {
	ids := make([]int64, 0, len(q.seen))
	for id := range q.seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
