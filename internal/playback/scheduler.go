package playback

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Default configuration values.
const (
	DefaultLoadTimeout = 30 * time.Second
)

// ErrMissingDependency is returned by New when a required collaborator is nil.
var ErrMissingDependency = errors.New("playback: missing dependency")

// Config holds construction parameters for a Scheduler.
type Config struct {
	// BaseURL resolves relative clip URLs. A URL already starting with
	// "http" is used as-is.
	BaseURL string

	// LoadTimeout bounds a single fetch+decode attempt.
	LoadTimeout time.Duration

	// Fetcher retrieves raw audio bytes. Required.
	Fetcher Fetcher

	// Decoder turns raw bytes into playable clips. Required.
	Decoder Decoder

	// Player owns the audio output. Required.
	Player Player

	// Cache holds decoded clips keyed by URL. Optional; without one every
	// enqueue fetches and decodes anew.
	Cache ClipCache

	// Logger for dropped-clip and playback diagnostics. Failures are never
	// surfaced to callers any other way.
	Logger *log.Logger
}

// item is a queued playback request. The id is unique for the lifetime of
// the scheduler and disambiguates repeated enqueues of the same URL.
type item struct {
	id       uint64
	url      string
	priority int
	clip     Clip
}

type eventKind int

const (
	evEnqueue eventKind = iota
	evLoaded
	evPlaybackDone
	evPause
	evResume
	evSkip
	evReset
	evClose
)

type event struct {
	kind     eventKind
	url      string
	priority int
	id       uint64
	gen      uint64
	clip     Clip
	err      error
	ack      chan struct{}
}

// Scheduler plays enqueued clips in priority order, one at a time. All state
// is owned by a single event goroutine; public methods only post events, so
// no operation blocks on I/O and no two queue-draining passes can overlap.
type Scheduler struct {
	cfg    Config
	logger *log.Logger

	mbox      *mailbox
	done      chan struct{}
	closeOnce sync.Once

	// Owned by the event goroutine.
	state   State
	queue   []*item
	current *item
	paused  bool
	loading map[string]bool
	seen    map[string]struct{}
	nextID  uint64
	gen     uint64

	// Snapshot mirror for pollers.
	statusMu  sync.RWMutex
	status    Status
	stateSnap State
	startedAt time.Time
	pausedAt  time.Time
	clipDur   time.Duration
	known     []string
}

// New creates a Scheduler and starts its event goroutine. Call Close to
// release it.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Fetcher == nil || cfg.Decoder == nil || cfg.Player == nil {
		return nil, ErrMissingDependency
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = DefaultLoadTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	s := &Scheduler{
		cfg:     cfg,
		logger:  logger,
		mbox:    newMailbox(),
		done:    make(chan struct{}),
		state:   StateIdle,
		loading: make(map[string]bool),
		seen:    make(map[string]struct{}),
	}

	go s.run()
	return s, nil
}

// Enqueue adds a clip URL to the queue. Lower priority values play sooner;
// equal priorities play in enqueue order. Returns immediately; fetching,
// decoding, and playback all happen asynchronously.
func (s *Scheduler) Enqueue(url string, priority int) {
	if s.closed() {
		return
	}
	s.mbox.put(event{kind: evEnqueue, url: s.resolve(url), priority: priority})
}

// Pause suspends the audio output clock. The current clip stays in the
// playback slot and can be resumed. No effect if nothing is playing.
func (s *Scheduler) Pause() {
	if s.closed() {
		return
	}
	s.mbox.put(event{kind: evPause})
}

// Resume un-suspends a paused clip. No-op if nothing is paused.
func (s *Scheduler) Resume() {
	if s.closed() {
		return
	}
	s.mbox.put(event{kind: evResume})
}

// Skip ends the current clip as if it had finished naturally, advancing to
// the next queued clip. No-op if nothing is playing.
func (s *Scheduler) Skip() {
	if s.closed() {
		return
	}
	s.mbox.put(event{kind: evSkip})
}

// Reset stops playback, discards the queue, clears the decode cache and the
// known-files history, and returns the scheduler to idle. It blocks until
// applied, is idempotent, and is safe to call after Close.
func (s *Scheduler) Reset() {
	ack := make(chan struct{})
	if s.closed() {
		return
	}
	s.mbox.put(event{kind: evReset, ack: ack})
	select {
	case <-ack:
	case <-s.done:
	}
}

// Close resets the scheduler and stops its event goroutine. Idempotent.
func (s *Scheduler) Close() error {
	s.closeOnce.Do(func() {
		ack := make(chan struct{})
		s.mbox.put(event{kind: evClose, ack: ack})
		<-ack
		close(s.done)
	})
	return nil
}

// Status returns a snapshot of the scheduler. Pure read, no side effects.
func (s *Scheduler) Status() Status {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()

	st := s.status
	if st.CurrentAudio != "" && s.clipDur > 0 {
		var elapsed time.Duration
		if st.IsPlaying {
			elapsed = time.Since(s.startedAt)
		} else {
			elapsed = s.pausedAt.Sub(s.startedAt)
		}
		if elapsed > s.clipDur {
			elapsed = s.clipDur
		}
		if elapsed < 0 {
			elapsed = 0
		}
		st.Elapsed = elapsed
		st.Remaining = s.clipDur - elapsed
	}
	return st
}

// State reports what the scheduler is currently doing.
func (s *Scheduler) State() State {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.stateSnap
}

// KnownFiles returns the URLs enqueued since the last reset, deduplicated,
// in first-seen order.
func (s *Scheduler) KnownFiles() []string {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()

	files := make([]string, len(s.known))
	copy(files, s.known)
	return files
}

func (s *Scheduler) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// resolve applies the configured base URL to relative clip paths.
func (s *Scheduler) resolve(url string) string {
	if strings.HasPrefix(url, "http") {
		return url
	}
	base := strings.TrimSuffix(s.cfg.BaseURL, "/")
	if !strings.HasPrefix(url, "/") {
		url = "/" + url
	}
	return base + url
}

// run is the event goroutine. It processes one event at a time, which makes
// it the sole owner of the queue, the playback slot, and the cache.
func (s *Scheduler) run() {
	for {
		for _, e := range s.mbox.take() {
			if e.kind == evClose {
				s.reset()
				close(e.ack)
				return
			}
			s.handle(e)
		}

		select {
		case <-s.mbox.wake:
		case <-s.done:
			return
		}
	}
}

func (s *Scheduler) handle(e event) {
	switch e.kind {
	case evEnqueue:
		s.enqueue(e.url, e.priority)

	case evLoaded:
		s.loaded(e)

	case evPlaybackDone:
		s.playbackDone(e)

	case evPause:
		if s.current != nil && !s.paused {
			if err := s.cfg.Player.Pause(); err != nil {
				s.logger.Warn("pause failed", "url", s.current.url, "err", err)
				return
			}
			s.paused = true
			s.publishStatus()
		}

	case evResume:
		if s.current != nil && s.paused {
			if err := s.cfg.Player.Resume(); err != nil {
				s.logger.Warn("resume failed", "url", s.current.url, "err", err)
				return
			}
			s.paused = false
			s.publishStatus()
		}

	case evSkip:
		if s.current != nil {
			// Stop fires the player's done callback, which advances the
			// queue through the normal completion path.
			if err := s.cfg.Player.Stop(); err != nil {
				s.logger.Warn("skip failed", "url", s.current.url, "err", err)
			}
		}

	case evReset:
		s.reset()
		close(e.ack)
	}
}

func (s *Scheduler) enqueue(url string, priority int) {
	if _, dup := s.seen[url]; !dup {
		s.seen[url] = struct{}{}
		s.statusMu.Lock()
		s.known = append(s.known, url)
		s.statusMu.Unlock()
	}

	s.nextID++
	it := &item{id: s.nextID, url: url, priority: priority}
	if s.cfg.Cache != nil {
		if clip, ok := s.cfg.Cache.Get(url); ok {
			it.clip = clip
		}
	}
	s.queue = append(s.queue, it)
	s.logger.Debug("clip enqueued", "url", url, "priority", priority, "id", it.id)

	s.process()
}

func (s *Scheduler) loaded(e event) {
	if e.gen != s.gen {
		// A reset happened while the load was in flight; the item is gone
		// and the result must not repopulate anything.
		return
	}
	delete(s.loading, e.url)

	if e.err != nil {
		s.logger.Warn("dropping clip", "url", e.url, "err", e.err)
		s.remove(e.id)
		s.process()
		return
	}

	if s.cfg.Cache != nil {
		s.cfg.Cache.Put(e.url, e.clip)
	}
	for _, it := range s.queue {
		if it.url == e.url && it.clip == nil {
			it.clip = e.clip
		}
	}
	s.process()
}

func (s *Scheduler) playbackDone(e event) {
	if s.current == nil || s.current.id != e.id {
		// Completion for a clip already evicted by reset. Ignore.
		return
	}
	if e.err != nil {
		// Best effort: a failed or truncated clip is not retried.
		s.logger.Warn("playback ended with error", "url", s.current.url, "err", e.err)
	}
	s.current = nil
	s.paused = false
	s.process()
}

// process is the queue-draining pass. It runs only on the event goroutine,
// so at most one pass and at most one playback can exist at any instant.
func (s *Scheduler) process() {
	defer s.publishStatus()

	if s.current != nil {
		return
	}
	if len(s.queue) == 0 {
		s.state = StateIdle
		return
	}

	s.state = StateSelecting
	sort.SliceStable(s.queue, func(i, j int) bool {
		return s.queue[i].priority < s.queue[j].priority
	})

	for idx, it := range s.queue {
		if it.clip == nil {
			continue
		}
		s.queue = append(s.queue[:idx], s.queue[idx+1:]...)
		s.startPlayback(it)
		return
	}

	// Nothing decoded yet: load the head without blocking the pass. The
	// completion re-enters through the mailbox.
	head := s.queue[0]
	s.state = StateLoading
	if s.loading[head.url] {
		return
	}
	s.loading[head.url] = true
	go s.load(s.gen, head.id, head.url)
}

func (s *Scheduler) startPlayback(it *item) {
	s.current = it
	s.state = StatePlaying

	id := it.id
	err := s.cfg.Player.Play(it.clip, func(perr error) {
		s.mbox.put(event{kind: evPlaybackDone, id: id, err: perr})
	})
	if err != nil {
		// Playback-start failure is non-fatal: discard and try the next.
		s.logger.Warn("playback start failed", "url", it.url, "err", err)
		s.current = nil
		s.process()
		return
	}

	s.logger.Debug("playback started", "url", it.url, "duration", it.clip.Duration())
}

// load fetches and decodes a clip off the event goroutine.
func (s *Scheduler) load(gen, id uint64, url string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.LoadTimeout)
	defer cancel()

	var clip Clip
	data, err := s.cfg.Fetcher.Fetch(ctx, url)
	if err == nil {
		clip, err = s.cfg.Decoder.Decode(data)
	}
	s.mbox.put(event{kind: evLoaded, gen: gen, id: id, url: url, clip: clip, err: err})
}

func (s *Scheduler) remove(id uint64) {
	for idx, it := range s.queue {
		if it.id == id {
			s.queue = append(s.queue[:idx], s.queue[idx+1:]...)
			return
		}
	}
}

func (s *Scheduler) reset() {
	if s.current != nil {
		if err := s.cfg.Player.Stop(); err != nil {
			s.logger.Warn("stop during reset failed", "err", err)
		}
		s.current = nil
	}
	s.queue = nil
	s.paused = false
	s.state = StateIdle
	s.loading = make(map[string]bool)
	s.seen = make(map[string]struct{})
	s.gen++
	if s.cfg.Cache != nil {
		s.cfg.Cache.Clear()
	}

	s.statusMu.Lock()
	s.known = nil
	s.statusMu.Unlock()
	s.publishStatus()
}

func (s *Scheduler) publishStatus() {
	st := Status{QueueLength: len(s.queue)}
	var dur time.Duration
	if s.current != nil {
		st.CurrentAudio = s.current.url
		st.IsPlaying = !s.paused
		dur = s.current.clip.Duration()
	}

	now := time.Now()
	s.statusMu.Lock()
	prev := s.status
	switch {
	case st.CurrentAudio != prev.CurrentAudio && st.CurrentAudio != "":
		// A new clip entered the playback slot.
		s.startedAt = now
	case st.IsPlaying && !prev.IsPlaying && st.CurrentAudio == prev.CurrentAudio:
		// Resume: shift the start time so the paused interval is excluded
		// from Elapsed.
		s.startedAt = s.startedAt.Add(now.Sub(s.pausedAt))
	case !st.IsPlaying && prev.IsPlaying && st.CurrentAudio == prev.CurrentAudio:
		s.pausedAt = now
	}
	s.clipDur = dur
	s.status = st
	s.stateSnap = s.state
	s.statusMu.Unlock()
}
