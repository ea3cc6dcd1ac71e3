package playback

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/earshot-audio/earshot/audiocache"
)

type fakeResource struct {
	key      string
	ready    chan struct{}
	duration float64
	err      error
}

func (f *fakeResource) Key() string            { return f.key }
func (f *fakeResource) Ready() <-chan struct{} { return f.ready }
func (f *fakeResource) Duration() float64      { return f.duration }
func (f *fakeResource) Err() error             { return f.err }

type recordingSink struct {
	mu        sync.Mutex
	times     []float64
	ready     int
	durations []float64
	ended     int
	errs      []error
}

func (r *recordingSink) TimeUpdated(seconds float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.times = append(r.times, seconds)
}

func (r *recordingSink) Ready() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ready++
}

func (r *recordingSink) DurationLoaded(seconds float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.durations = append(r.durations, seconds)
}

func (r *recordingSink) Ended() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ended++
}

func (r *recordingSink) PlaybackError(mediaKey string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recordingSink) endedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ended
}

func (r *recordingSink) readyCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready
}

func (r *recordingSink) durationEvents() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.durations...)
}

// fakeClock lets tests move playback time by hand.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestEngine(t *testing.T, duration float64, prepErr error) (*Engine, *recordingSink, *fakeClock) {
	t.Helper()
	cache, err := audiocache.New(5, func(mediaKey string) audiocache.Resource {
		ready := make(chan struct{})
		close(ready)
		return &fakeResource{key: mediaKey, ready: ready, duration: duration, err: prepErr}
	})
	require.NoError(t, err)

	sink := &recordingSink{}
	clock := &fakeClock{t: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	engine := NewEngine(cache, sink)
	engine.now = clock.now
	return engine, sink, clock
}

func waitForStatus(t *testing.T, engine *Engine, want Status) {
	t.Helper()
	require.Eventually(t, func() bool {
		return engine.Status() == want
	}, time.Second, 5*time.Millisecond)
}

func TestEngine_LoadToReady(t *testing.T) {
	engine, sink, _ := newTestEngine(t, 120, nil)
	defer engine.Stop()

	// 1. Load passes through Loading and lands on Ready once prepared
	engine.Load("episodes/1")
	waitForStatus(t, engine, StatusReady)

	// 2. Readiness and duration are each announced exactly once
	assert.Equal(t, 1, sink.readyCount())
	assert.Equal(t, []float64{120}, sink.durationEvents())
	assert.Equal(t, float64(120), engine.Duration())
	assert.Equal(t, "episodes/1", engine.MediaKey())
}

func TestEngine_IndefiniteDurationSuppressed(t *testing.T) {
	engine, sink, _ := newTestEngine(t, 0, nil)
	defer engine.Stop()

	engine.Load("live/1")
	waitForStatus(t, engine, StatusReady)

	// Readiness still fires; only the duration announcement is withheld
	assert.Equal(t, 1, sink.readyCount())
	assert.Empty(t, sink.durationEvents())
}

func TestEngine_PreparationFailure(t *testing.T) {
	engine, sink, _ := newTestEngine(t, 0, errors.New("stream gone"))
	defer engine.Stop()

	engine.Load("episodes/404")

	// Failure lands back on Idle with the error surfaced, and no retry
	require.Eventually(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return len(sink.errs) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, StatusIdle, engine.Status())
}

func TestEngine_PlayAccruesPosition(t *testing.T) {
	engine, _, clock := newTestEngine(t, 120, nil)
	defer engine.Stop()

	engine.Load("episodes/1")
	waitForStatus(t, engine, StatusReady)

	// 1. Ten wall seconds at 1x is ten media seconds
	engine.Play()
	clock.advance(10 * time.Second)
	assert.InDelta(t, 10, engine.Position(), 0.001)

	// 2. Ten more at 2x adds twenty
	engine.SetRate(2)
	clock.advance(10 * time.Second)
	assert.InDelta(t, 30, engine.Position(), 0.001)

	// 3. Paused playback accrues nothing
	engine.Pause()
	clock.advance(30 * time.Second)
	assert.InDelta(t, 30, engine.Position(), 0.001)
	assert.Equal(t, StatusPaused, engine.Status())
}

func TestEngine_RateZeroHolds(t *testing.T) {
	engine, _, clock := newTestEngine(t, 120, nil)
	defer engine.Stop()

	engine.Load("episodes/1")
	waitForStatus(t, engine, StatusReady)
	engine.Play()

	engine.SetRate(0)
	clock.advance(time.Hour)

	// Still nominally playing, no motion, no end
	assert.InDelta(t, 0, engine.Position(), 0.001)
	assert.Equal(t, StatusPlaying, engine.Status())
}

func TestEngine_SeekClamps(t *testing.T) {
	engine, _, _ := newTestEngine(t, 120, nil)
	defer engine.Stop()

	engine.Load("episodes/1")
	waitForStatus(t, engine, StatusReady)

	engine.Seek(-5)
	assert.InDelta(t, 0, engine.Position(), 0.001)

	engine.Seek(500)
	assert.InDelta(t, 120, engine.Position(), 0.001)

	engine.SeekFraction(0.5)
	assert.InDelta(t, 60, engine.Position(), 0.001)
}

func TestEngine_EndedFiresOnce(t *testing.T) {
	engine, sink, clock := newTestEngine(t, 60, nil)
	defer engine.Stop()

	engine.Load("episodes/1")
	waitForStatus(t, engine, StatusReady)
	engine.Play()

	// 1. Run the clock past the end of media
	clock.advance(2 * time.Minute)
	assert.InDelta(t, 60, engine.Position(), 0.001)
	assert.Equal(t, StatusEnded, engine.Status())

	// 2. Prodding an ended engine never re-fires the event
	engine.Play()
	engine.Pause()
	clock.advance(time.Minute)
	engine.Position()
	assert.Equal(t, 1, sink.endedCount())
}

func TestEngine_LoadSupersedesLoad(t *testing.T) {
	engine, _, clock := newTestEngine(t, 120, nil)
	defer engine.Stop()

	engine.Load("episodes/1")
	waitForStatus(t, engine, StatusReady)
	engine.Play()
	clock.advance(30 * time.Second)
	engine.Position()

	// Loading new media resets position and state regardless of what the
	// old clip was doing
	engine.Load("episodes/2")
	waitForStatus(t, engine, StatusReady)
	assert.InDelta(t, 0, engine.Position(), 0.001)
	assert.Equal(t, "episodes/2", engine.MediaKey())
}

func TestEngine_StopDiscardsLatePreparation(t *testing.T) {
	ready := make(chan struct{})
	cache, err := audiocache.New(5, func(mediaKey string) audiocache.Resource {
		return &fakeResource{key: mediaKey, ready: ready, duration: 120}
	})
	require.NoError(t, err)

	sink := &recordingSink{}
	engine := NewEngine(cache, sink)

	engine.Load("episodes/1")
	engine.Stop()
	close(ready)

	// The preparation callback belongs to a superseded load and must not
	// resurrect the engine
	assert.Never(t, func() bool {
		return engine.Status() != StatusIdle
	}, 100*time.Millisecond, 10*time.Millisecond)
	assert.Zero(t, sink.readyCount())
	assert.Empty(t, sink.durationEvents())
}
