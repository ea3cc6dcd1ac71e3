package session

import (
	"github.com/earshot-audio/earshot/playback"
)

// OS media-control entry points. An integration layer (lock screen
// controls, MPRIS, the HTTP intent routes) wires whatever it has to
// these; the session neither knows nor cares which.

func (s *Session) OnPlayRequested() {
	if s.engine.Status() == playback.StatusPlaying {
		return
	}
	if s.engine.Status() == playback.StatusIdle {
		s.playCurrent()
	}
	s.engine.Play()
	s.tracker.StartTracking()
	s.broadcastPlayback()
}

func (s *Session) OnPauseRequested() {
	if s.engine.Status() != playback.StatusPlaying {
		return
	}
	s.engine.Pause()
	s.tracker.StopTracking()
	s.broadcastPlayback()
}

func (s *Session) OnSeekRequested(seconds float64) {
	s.Seek(seconds)
}

func (s *Session) OnNextRequested() {
	s.Next()
}

func (s *Session) OnPreviousRequested() {
	s.Previous()
}
