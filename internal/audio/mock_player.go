package audio

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hearsay-cli/hearsay/internal/playback"
)

// MockPlayer simulates speaker playback without touching the audio device.
// It honors the scheduler's Player contract, including firing done exactly
// once per started clip, and is used both by tests and by muted operation.
type MockPlayer struct {
	// Speed multiplier for simulated playback. 0 completes clips instantly,
	// 1 plays them in real time.
	Speed float64

	mu      sync.Mutex
	session *mockSession
	closed  bool

	playCount   atomic.Int64
	pauseCount  atomic.Int64
	resumeCount atomic.Int64
	stopCount   atomic.Int64
}

type mockSession struct {
	clip     playback.Clip
	done     func(error)
	doneOnce sync.Once
	cancel   chan struct{}
	paused   chan struct{} // non-nil while paused

	startedAt  time.Time
	totalPause time.Duration
	pausedAt   time.Time
}

// NewMockPlayer returns a mock that completes every clip immediately.
func NewMockPlayer() *MockPlayer {
	return &MockPlayer{}
}

func (m *MockPlayer) Play(clip playback.Clip, done func(error)) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errors.New("audio: player is closed")
	}
	if m.session != nil {
		m.stopLocked()
	}

	s := &mockSession{
		clip:      clip,
		done:      done,
		cancel:    make(chan struct{}),
		startedAt: time.Now(),
	}
	m.session = s
	m.playCount.Add(1)
	m.mu.Unlock()

	go m.simulate(s)
	return nil
}

func (m *MockPlayer) simulate(s *mockSession) {
	remaining := time.Duration(float64(s.clip.Duration()) * m.Speed)

	// Pause time already reflected in the timer, so completed pauses are
	// deducted exactly once.
	var accounted time.Duration

	for {
		start := time.Now()
		timer := time.NewTimer(remaining)
		select {
		case <-s.cancel:
			timer.Stop()
			return
		case <-timer.C:
			m.mu.Lock()
			paused := s.paused
			if paused == nil {
				// Pauses that completed during this window stole play time;
				// the clip still owes that much.
				if extra := s.totalPause - accounted; extra > 0 {
					accounted = s.totalPause
					remaining = extra
					m.mu.Unlock()
					continue
				}
				if m.session == s {
					m.session = nil
				}
				m.mu.Unlock()
				s.finish(nil)
				return
			}
			// A pause is in effect. Only the stretch actually played before
			// it counts against the clip.
			played := s.pausedAt.Sub(start) - (s.totalPause - accounted)
			if played < 0 {
				played = 0
			}
			remaining -= played
			if remaining < 0 {
				remaining = 0
			}
			m.mu.Unlock()
			select {
			case <-s.cancel:
				return
			case <-paused:
			}
			m.mu.Lock()
			// The pause just waited out is fully handled by the re-arm.
			accounted = s.totalPause
			m.mu.Unlock()
		}
	}
}

func (s *mockSession) finish(err error) {
	s.doneOnce.Do(func() {
		if s.done != nil {
			s.done(err)
		}
	})
}

func (m *MockPlayer) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return errors.New("audio: nothing playing")
	}
	if m.session.paused != nil {
		return nil
	}
	m.session.paused = make(chan struct{})
	m.session.pausedAt = time.Now()
	m.pauseCount.Add(1)
	return nil
}

func (m *MockPlayer) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil || m.session.paused == nil {
		return errors.New("audio: not paused")
	}
	m.session.totalPause += time.Since(m.session.pausedAt)
	close(m.session.paused)
	m.session.paused = nil
	m.resumeCount.Add(1)
	return nil
}

func (m *MockPlayer) Stop() error {
	m.mu.Lock()
	s := m.session
	m.stopLocked()
	m.mu.Unlock()

	if s != nil {
		m.stopCount.Add(1)
		s.finish(nil)
	}
	return nil
}

func (m *MockPlayer) stopLocked() {
	if m.session == nil {
		return
	}
	close(m.session.cancel)
	m.session = nil
}

// Close stops playback. Further Play calls fail.
func (m *MockPlayer) Close() error {
	m.mu.Lock()
	s := m.session
	m.stopLocked()
	m.closed = true
	m.mu.Unlock()

	if s != nil {
		s.finish(nil)
	}
	return nil
}

// Playing reports whether a clip is active and not paused.
func (m *MockPlayer) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil && m.session.paused == nil
}

// Counts returns the number of Play, Pause, Resume, and Stop calls that
// took effect, for assertions.
func (m *MockPlayer) Counts() (plays, pauses, resumes, stops int64) {
	return m.playCount.Load(), m.pauseCount.Load(), m.resumeCount.Load(), m.stopCount.Load()
}

var _ playback.Player = (*MockPlayer)(nil)
