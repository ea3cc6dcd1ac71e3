package playback

import (
	"log/slog"
	"sync"
	"time"

	"github.com/earshot-audio/earshot/audiocache"
)

type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusPlaying Status = "playing"
	StatusPaused  Status = "paused"
	StatusEnded   Status = "ended"
)

// EventSink receives engine events. The engine never owns its sink;
// lifetime is governed by whoever constructed the engine.
type EventSink interface {
	// TimeUpdated fires at the sampling cadence while media is loaded.
	TimeUpdated(seconds float64)
	// Ready fires once per load when the handle has prepared and the
	// engine is playable.
	Ready()
	// DurationLoaded fires once per load, after preparation, and is
	// suppressed entirely for indefinite durations.
	DurationLoaded(seconds float64)
	// Ended fires exactly once when playback reaches the end of media.
	// Moving to the next clip is the owner's job, not the engine's.
	Ended()
	PlaybackError(mediaKey string, err error)
}

const samplerInterval = 100 * time.Millisecond

// Engine wraps one active audio resource at a time and runs the
// position clock for it. All mutation goes through one mutex; events
// are always delivered outside it.
type Engine struct {
	mu       sync.Mutex
	cache    *audiocache.Cache
	sink     EventSink
	status   Status
	mediaKey string
	resource audiocache.Resource
	position float64
	duration float64
	rate     float64
	lastTick time.Time
	// loadGen invalidates preparation callbacks and samplers belonging
	// to a previous Load or Stop
	loadGen     int
	samplerStop chan struct{}
	now         func() time.Time
}

func NewEngine(cache *audiocache.Cache, sink EventSink) *Engine {
	return &Engine{
		cache:  cache,
		sink:   sink,
		status: StatusIdle,
		rate:   1.0,
		now:    time.Now,
	}
}

// Load swaps the active media. Any previous sampler is torn down first
// and the engine passes through Loading until the handle has prepared.
func (e *Engine) Load(mediaKey string) {
	e.mu.Lock()
	e.loadGen++
	gen := e.loadGen
	e.stopSamplerLocked()
	e.status = StatusLoading
	e.mediaKey = mediaKey
	e.position = 0
	e.duration = 0
	resource := e.cache.Resolve(mediaKey)
	e.resource = resource
	e.mu.Unlock()

	go func() {
		<-resource.Ready()

		e.mu.Lock()
		if e.loadGen != gen {
			// Superseded by a later Load or Stop
			e.mu.Unlock()
			return
		}
		if err := resource.Err(); err != nil {
			e.status = StatusIdle
			e.resource = nil
			e.mu.Unlock()
			e.sink.PlaybackError(mediaKey, err)
			return
		}
		e.duration = resource.Duration()
		e.status = StatusReady
		e.lastTick = e.now()
		duration := e.duration
		e.startSamplerLocked()
		e.mu.Unlock()

		e.sink.Ready()
		if duration > 0 {
			e.sink.DurationLoaded(duration)
		}
	}()
}

func (e *Engine) Play() {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.status {
	case StatusReady, StatusPaused:
		e.status = StatusPlaying
		e.lastTick = e.now()
	default:
		// No-op while Idle or Loading; Ended clips are replaced by the
		// owner, not replayed in place
	}
}

func (e *Engine) Pause() {
	ended := false
	e.mu.Lock()
	if e.status == StatusPlaying {
		ended = e.advanceLocked()
		if !ended {
			e.status = StatusPaused
		}
	}
	e.mu.Unlock()
	if ended {
		e.sink.Ended()
	}
}

// SetRate changes playback speed. A rate of zero leaves the engine
// nominally playing while the position clock accrues nothing, which is
// exactly how the progress tracker wants it to look.
func (e *Engine) SetRate(rate float64) {
	ended := false
	e.mu.Lock()
	if rate >= 0 {
		ended = e.advanceLocked()
		e.rate = rate
	}
	e.mu.Unlock()
	if ended {
		e.sink.Ended()
	}
}

func (e *Engine) Rate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rate
}

// Seek jumps to an absolute position in seconds, clamped within the
// media. Playing stays playing, paused stays paused.
func (e *Engine) Seek(seconds float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status == StatusIdle || e.status == StatusLoading {
		return
	}
	if seconds < 0 {
		seconds = 0
	}
	if e.duration > 0 && seconds > e.duration {
		seconds = e.duration
	}
	e.position = seconds
	e.lastTick = e.now()
}

// SeekFraction seeks to a 0..1 fraction of the known duration.
func (e *Engine) SeekFraction(fraction float64) {
	e.mu.Lock()
	duration := e.duration
	e.mu.Unlock()
	if duration <= 0 {
		return
	}
	e.Seek(fraction * duration)
}

func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

func (e *Engine) MediaKey() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mediaKey
}

func (e *Engine) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.duration
}

// Position advances the clock before reading so callers outside the
// sampler cadence still see fresh values.
func (e *Engine) Position() float64 {
	e.mu.Lock()
	ended := e.advanceLocked()
	position := e.position
	e.mu.Unlock()
	if ended {
		e.sink.Ended()
	}
	return position
}

// Stop tears the engine back down to Idle. Late preparation callbacks
// from the old media see a stale generation and drop themselves.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loadGen++
	e.stopSamplerLocked()
	e.status = StatusIdle
	e.mediaKey = ""
	e.resource = nil
	e.position = 0
	e.duration = 0
}

// advanceLocked accrues position while playing and reports whether this
// call crossed the end of media. The Playing→Ended transition happens
// here and nowhere else, so Ended can only be emitted once per load.
func (e *Engine) advanceLocked() bool {
	if e.status != StatusPlaying {
		return false
	}
	t := e.now()
	dt := t.Sub(e.lastTick).Seconds()
	e.lastTick = t
	if dt > 0 {
		e.position += e.rate * dt
	}
	if e.duration > 0 && e.position >= e.duration {
		e.position = e.duration
		e.status = StatusEnded
		e.stopSamplerLocked()
		slog.Debug("Playback reached end of media", slog.String("media_key", e.mediaKey))
		return true
	}
	return false
}

func (e *Engine) startSamplerLocked() {
	stop := make(chan struct{})
	e.samplerStop = stop
	go e.sample(stop)
}

func (e *Engine) stopSamplerLocked() {
	if e.samplerStop != nil {
		close(e.samplerStop)
		e.samplerStop = nil
	}
}

func (e *Engine) sample(stop chan struct{}) {
	ticker := time.NewTicker(samplerInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			e.mu.Lock()
			ended := e.advanceLocked()
			position := e.position
			status := e.status
			e.mu.Unlock()

			if status != StatusIdle {
				e.sink.TimeUpdated(position)
			}
			if ended {
				e.sink.Ended()
				return
			}
		}
	}
}
