package audio

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/hearsay-cli/hearsay/internal/playback"
)

// PlayerConfig configures the speaker output device.
type PlayerConfig struct {
	SampleRate int // output rate in Hz, 44100 or 48000
	Channels   int // 1 = mono, 2 = stereo
	BufferSize int // device buffer in bytes
}

// DefaultPlayerConfig returns the output format used for synthesized speech.
func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{
		SampleRate: 44100,
		Channels:   1,
		BufferSize: 4096,
	}
}

// Player plays decoded clips through the system speaker using oto. It
// satisfies the scheduler's Player interface: at most one clip plays at a
// time and the done callback supplied to Play fires exactly once.
type Player struct {
	context *oto.Context

	sampleRate int
	channels   int

	mu      sync.Mutex
	session *session
	closed  bool
}

// session tracks a single Play call from start to its one completion.
type session struct {
	player *oto.Player
	clip   *Clip

	done     func(error)
	doneOnce sync.Once
	cancel   chan struct{}

	// Wall-clock accounting, pause time excluded.
	startedAt  time.Time
	pausedAt   time.Time
	totalPause time.Duration
	paused     bool
}

// NewPlayer opens the audio device. The returned player must be closed.
func NewPlayer(cfg PlayerConfig) (*Player, error) {
	if cfg.SampleRate != 44100 && cfg.SampleRate != 48000 {
		return nil, fmt.Errorf("audio: sample rate must be 44100 or 48000 Hz, got %d", cfg.SampleRate)
	}
	if cfg.Channels != 1 && cfg.Channels != 2 {
		return nil, fmt.Errorf("audio: channels must be 1 or 2, got %d", cfg.Channels)
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultPlayerConfig().BufferSize
	}

	op := &oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: cfg.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   time.Duration(cfg.BufferSize) * time.Second / time.Duration(cfg.SampleRate*cfg.Channels*2),
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("audio: open device: %w", err)
	}
	<-ready

	return &Player{
		context:    ctx,
		sampleRate: cfg.SampleRate,
		channels:   cfg.Channels,
	}, nil
}

// Play starts playback of clip and returns immediately. done fires exactly
// once: on natural end, on error, or when Stop interrupts the clip.
func (p *Player) Play(clip playback.Clip, done func(error)) error {
	c, ok := clip.(*Clip)
	if !ok {
		return errors.New("audio: clip was not produced by this package's decoder")
	}
	if c.SampleRate() != p.sampleRate || c.Channels() != p.channels {
		return fmt.Errorf("audio: clip format %dHz/%dch does not match device %dHz/%dch",
			c.SampleRate(), c.Channels(), p.sampleRate, p.channels)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errors.New("audio: player is closed")
	}
	if p.session != nil {
		p.stopLocked()
	}

	// The reader keeps the PCM alive for the whole playback; oto streams
	// from it asynchronously.
	otoPlayer := p.context.NewPlayer(bytes.NewReader(c.PCM()))
	s := &session{
		player:    otoPlayer,
		clip:      c,
		done:      done,
		cancel:    make(chan struct{}),
		startedAt: time.Now(),
	}
	p.session = s

	otoPlayer.Play()
	go p.watch(s)

	return nil
}

// watch observes a session until its clip runs out, then completes it.
func (p *Player) watch(s *session) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-s.cancel:
			return
		case <-ticker.C:
			p.mu.Lock()
			if p.session != s {
				p.mu.Unlock()
				return
			}
			if s.paused {
				p.mu.Unlock()
				continue
			}
			elapsed := time.Since(s.startedAt) - s.totalPause
			finished := elapsed >= s.clip.Duration() && !s.player.IsPlaying()
			if finished {
				s.player.Close()
				p.session = nil
			}
			p.mu.Unlock()

			if finished {
				s.finish(nil)
				return
			}
		}
	}
}

func (s *session) finish(err error) {
	s.doneOnce.Do(func() {
		if s.done != nil {
			s.done(err)
		}
	})
}

// Pause suspends the output clock. No-op error if nothing is playing.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == nil {
		return errors.New("audio: nothing playing")
	}
	if p.session.paused {
		return nil
	}
	p.session.player.Pause()
	p.session.paused = true
	p.session.pausedAt = time.Now()
	return nil
}

// Resume un-suspends a paused clip.
func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == nil || !p.session.paused {
		return errors.New("audio: not paused")
	}
	p.session.totalPause += time.Since(p.session.pausedAt)
	p.session.paused = false
	p.session.player.Play()
	return nil
}

// Stop interrupts the current clip, firing its done callback as if it had
// ended naturally. No-op when nothing is playing.
func (p *Player) Stop() error {
	p.mu.Lock()
	s := p.session
	p.stopLocked()
	p.mu.Unlock()

	if s != nil {
		s.finish(nil)
	}
	return nil
}

// stopLocked tears down the active session without firing its callback.
func (p *Player) stopLocked() {
	if p.session == nil {
		return
	}
	close(p.session.cancel)
	p.session.player.Pause()
	p.session.player.Close()
	p.session = nil
}

// Close stops playback and releases the device. Idempotent.
func (p *Player) Close() error {
	p.mu.Lock()
	s := p.session
	p.stopLocked()
	p.closed = true
	p.mu.Unlock()

	if s != nil {
		s.finish(nil)
	}
	// oto v3 contexts have no Close; the device is released with the
	// process.
	return nil
}

var _ playback.Player = (*Player)(nil)
