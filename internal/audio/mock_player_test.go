package audio

import (
	"sync/atomic"
	"testing"
	"time"
)

type stubClip struct {
	dur time.Duration
}

func (s stubClip) Size() int               { return 1 }
func (s stubClip) Duration() time.Duration { return s.dur }

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal(msg)
}

func TestMockPlayerCompletesClip(t *testing.T) {
	p := NewMockPlayer()
	defer p.Close()

	var done atomic.Int32
	if err := p.Play(stubClip{dur: time.Hour}, func(error) { done.Add(1) }); err != nil {
		t.Fatalf("play: %v", err)
	}

	// Speed 0 collapses the hour to an instant.
	waitFor(t, func() bool { return done.Load() == 1 }, "clip never completed")
	if p.Playing() {
		t.Error("still playing after completion")
	}
}

func TestMockPlayerStopFiresDoneOnce(t *testing.T) {
	p := &MockPlayer{Speed: 1} // real time, so the hour-long clip never ends on its own
	defer p.Close()

	var done atomic.Int32
	if err := p.Play(stubClip{dur: time.Hour}, func(error) { done.Add(1) }); err != nil {
		t.Fatalf("play: %v", err)
	}

	if err := p.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}

	waitFor(t, func() bool { return done.Load() == 1 }, "done never fired")
	time.Sleep(10 * time.Millisecond)
	if n := done.Load(); n != 1 {
		t.Errorf("done fired %d times, want 1", n)
	}
}

func TestMockPlayerPauseResume(t *testing.T) {
	p := &MockPlayer{Speed: 1}
	defer p.Close()

	var done atomic.Int32
	if err := p.Play(stubClip{dur: time.Hour}, func(error) { done.Add(1) }); err != nil {
		t.Fatalf("play: %v", err)
	}

	if err := p.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if p.Playing() {
		t.Error("Playing() = true while paused")
	}
	if err := p.Pause(); err != nil {
		t.Errorf("pause while paused: %v", err)
	}

	if err := p.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if !p.Playing() {
		t.Error("Playing() = false after resume")
	}
	if err := p.Resume(); err == nil {
		t.Error("resume while playing should fail")
	}

	if done.Load() != 0 {
		t.Error("done fired before the clip ended")
	}
	_, pauses, resumes, _ := p.Counts()
	if pauses != 1 || resumes != 1 {
		t.Errorf("pauses, resumes = %d, %d, want 1, 1", pauses, resumes)
	}
}

func TestMockPlayerPauseExtendsPlayback(t *testing.T) {
	p := &MockPlayer{Speed: 1}
	defer p.Close()

	started := time.Now()
	var doneAt atomic.Value
	if err := p.Play(stubClip{dur: 100 * time.Millisecond}, func(error) {
		doneAt.Store(time.Now())
	}); err != nil {
		t.Fatalf("play: %v", err)
	}

	// Pause and resume well before the clip's own deadline; the paused
	// interval must push completion out by the same amount.
	time.Sleep(20 * time.Millisecond)
	if err := p.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	time.Sleep(60 * time.Millisecond)
	if err := p.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}

	waitFor(t, func() bool { return doneAt.Load() != nil }, "clip never completed")
	elapsed := doneAt.Load().(time.Time).Sub(started)
	if elapsed < 140*time.Millisecond {
		t.Errorf("clip finished after %v, want at least 140ms (100ms clip + 60ms pause)", elapsed)
	}
}

func TestMockPlayerReplaceFiresOldDone(t *testing.T) {
	p := &MockPlayer{Speed: 1}
	defer p.Close()

	var first, second atomic.Int32
	if err := p.Play(stubClip{dur: time.Hour}, func(error) { first.Add(1) }); err != nil {
		t.Fatalf("play: %v", err)
	}
	if err := p.Play(stubClip{dur: time.Hour}, func(error) { second.Add(1) }); err != nil {
		t.Fatalf("second play: %v", err)
	}

	// Replacing a clip does not fire the old callback; the scheduler stops
	// explicitly before starting the next clip. The replaced session just
	// goes away.
	time.Sleep(10 * time.Millisecond)
	if first.Load() != 0 || second.Load() != 0 {
		t.Errorf("callbacks fired early: first=%d second=%d", first.Load(), second.Load())
	}

	if err := p.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	waitFor(t, func() bool { return second.Load() == 1 }, "second done never fired")
	if first.Load() != 0 {
		t.Error("first done fired after its session was replaced")
	}
}

func TestMockPlayerClosed(t *testing.T) {
	p := NewMockPlayer()
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := p.Play(stubClip{dur: time.Second}, nil); err == nil {
		t.Error("play after close should fail")
	}
	if err := p.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
}
