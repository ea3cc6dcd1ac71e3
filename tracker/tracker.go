package tracker

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/earshot-audio/earshot/models"
)

// Reporter ships a coarse progress percentage to the backend. The api
// client satisfies this.
type Reporter interface {
	ReportView(clipID int64, percent int) error
}

const (
	// A report only goes out when the percentage has moved at least
	// this much and the report interval has passed. Together those two
	// gates bound network chatter while keeping the server-side resume
	// position reasonably fresh.
	minPercentDelta   = 1
	minReportInterval = 5 * time.Second
)

// Tracker converts continuous playback position into rate-limited view
// reports. Reports are at-most-once per threshold crossing: internal
// state updates whether or not the backend accepted the report.
type Tracker struct {
	mu           sync.Mutex
	reporter     Reporter
	clip         *models.Clip
	lastReported int
	lastReportAt time.Time
	position     float64
	// duration defaults to 1 so progress math can't divide by zero
	// before the real duration is known
	duration float64
	tracking bool
	now      func() time.Time
}

func New(reporter Reporter) *Tracker {
	return &Tracker{
		reporter: reporter,
		duration: 1,
		now:      time.Now,
	}
}

// SetCurrentClip points the tracker at a new clip. Switching clips
// immediately fires a zero-progress report for the new clip, the
// "started viewing" signal, outside the usual rate limits.
func (t *Tracker) SetCurrentClip(clip models.Clip) {
	t.mu.Lock()
	if t.clip != nil && t.clip.ID == clip.ID {
		t.mu.Unlock()
		return
	}
	t.clip = &clip
	t.lastReported = 0
	t.lastReportAt = t.now()
	t.position = 0
	t.duration = 1
	t.mu.Unlock()

	t.report(clip.ID, 0)
}

// Observe records the engine's latest time and duration samples.
func (t *Tracker) Observe(currentTime, duration float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.tracking || t.clip == nil {
		return
	}
	t.position = currentTime
	if duration > 0 {
		t.duration = duration
	}
}

// Tick runs on a fixed one second cadence while tracking. It reports
// when the progress percentage has moved enough and enough wall time
// has passed since the last report.
func (t *Tracker) Tick() {
	t.mu.Lock()
	if !t.tracking || t.clip == nil {
		t.mu.Unlock()
		return
	}
	percent := t.percentLocked()
	if abs(percent-t.lastReported) < minPercentDelta {
		t.mu.Unlock()
		return
	}
	if t.now().Sub(t.lastReportAt) < minReportInterval {
		t.mu.Unlock()
		return
	}
	clipID := t.clip.ID
	t.lastReported = percent
	t.lastReportAt = t.now()
	t.mu.Unlock()

	t.report(clipID, percent)
}

func (t *Tracker) StartTracking() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tracking = true
}

// StopTracking cancels the cadence and flushes one final report from
// the accumulated progress, skipping the time gate, so the last known
// position lands server side on pause or backgrounding.
func (t *Tracker) StopTracking() {
	t.mu.Lock()
	if !t.tracking {
		t.mu.Unlock()
		return
	}
	t.tracking = false
	if t.clip == nil {
		t.mu.Unlock()
		return
	}
	percent := t.percentLocked()
	if percent == t.lastReported {
		t.mu.Unlock()
		return
	}
	clipID := t.clip.ID
	t.lastReported = percent
	t.lastReportAt = t.now()
	t.mu.Unlock()

	t.report(clipID, percent)
}

func (t *Tracker) Tracking() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tracking
}

func (t *Tracker) LastReported() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastReported
}

func (t *Tracker) percentLocked() int {
	percent := int(math.Floor(t.position / t.duration * 100))
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return percent
}

// report is fire-and-forget: failures are logged and never block
// playback or schedule a retry.
func (t *Tracker) report(clipID int64, percent int) {
	if err := t.reporter.ReportView(clipID, percent); err != nil {
		slog.Error("Failed to report view progress",
			slog.Int64("clip_id", clipID),
			slog.Int("percent", percent),
			slog.String("stack", err.Error()),
		)
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
