package speech

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
)

// Synthesizer turns a piece of text into a fetchable audio URL. The chat
// backend client satisfies it.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (string, error)
}

// Enqueuer receives audio URLs for playback. The playback scheduler
// satisfies it.
type Enqueuer interface {
	Enqueue(url string, priority int)
}

// DefaultMaxSynthesisRunes bounds the text length of a single synthesis
// request.
const DefaultMaxSynthesisRunes = 300

// Speaker feeds streamed assistant text through cleanup, sentence
// segmentation, and synthesis, enqueueing the resulting audio for playback.
// Priorities are assigned in arrival order so sentences play back in the
// order they were spoken, even when synthesis completes out of order.
type Speaker struct {
	synth  Synthesizer
	queue  Enqueuer
	logger *log.Logger

	maxRunes int

	mu  sync.Mutex
	seg Segmenter
	seq int
	wg  sync.WaitGroup
}

// NewSpeaker creates a speaker. logger may be nil.
func NewSpeaker(synth Synthesizer, queue Enqueuer, logger *log.Logger) *Speaker {
	if logger == nil {
		logger = log.Default()
	}
	return &Speaker{
		synth:    synth,
		queue:    queue,
		logger:   logger,
		maxRunes: DefaultMaxSynthesisRunes,
	}
}

// FeedText consumes one streamed text chunk, submitting every sentence that
// completed for synthesis. It does not block on synthesis.
func (s *Speaker) FeedText(ctx context.Context, chunk string) {
	s.mu.Lock()
	sentences := s.seg.Feed(chunk)
	s.mu.Unlock()

	for _, sentence := range sentences {
		s.speak(ctx, sentence)
	}
}

// FlushText submits whatever partial sentence remains buffered, typically at
// end of a streamed reply.
func (s *Speaker) FlushText(ctx context.Context) {
	s.mu.Lock()
	rest := s.seg.Flush()
	s.mu.Unlock()

	if rest != "" {
		s.speak(ctx, rest)
	}
}

// SpeakURL enqueues already-synthesized audio, slotted into the same
// arrival ordering as text sentences. Used for audio events the backend
// pushes directly during streaming.
func (s *Speaker) SpeakURL(url string) {
	s.queue.Enqueue(url, s.nextSeq())
}

// Reset drops buffered text and restarts the ordering sequence. Call
// alongside the scheduler's Reset when a reply is interrupted.
func (s *Speaker) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seg = Segmenter{}
	s.seq = 0
}

// Wait blocks until every submitted synthesis has finished or failed.
func (s *Speaker) Wait() {
	s.wg.Wait()
}

func (s *Speaker) speak(ctx context.Context, sentence string) {
	cleaned := CleanForSpeech(sentence)
	if cleaned == "" {
		return
	}

	for _, part := range SplitForSynthesis(cleaned, s.maxRunes) {
		// Priority is claimed before synthesis starts so playback order
		// matches arrival order regardless of synthesis latency.
		priority := s.nextSeq()
		text := part

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			url, err := s.synth.Synthesize(ctx, text)
			if err != nil {
				s.logger.Warn("synthesis failed, sentence skipped", "err", err)
				return
			}
			s.queue.Enqueue(url, priority)
		}()
	}
}

func (s *Speaker) nextSeq() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := s.seq
	s.seq++
	return seq
}
