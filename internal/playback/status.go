package playback

import "time"

// State identifies what the scheduler is currently doing.
type State int

const (
	// StateIdle indicates the queue is empty and nothing is playing.
	StateIdle State = iota
	// StateSelecting indicates a queue-draining pass is choosing a clip.
	StateSelecting
	// StateLoading indicates the head of the queue is being fetched and
	// decoded; playback starts once a clip becomes ready.
	StateLoading
	// StatePlaying indicates a clip occupies the playback slot.
	StatePlaying
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSelecting:
		return "selecting"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// Status is a point-in-time snapshot of the scheduler. Callers poll it; the
// scheduler fires no completion events.
type Status struct {
	// IsPlaying is true while a clip is audibly playing. It is false while
	// paused even though the clip still occupies the playback slot.
	IsPlaying bool

	// CurrentAudio is the URL of the clip in the playback slot, or empty.
	CurrentAudio string

	// QueueLength is the number of clips waiting behind the current one.
	QueueLength int

	// Elapsed and Remaining describe progress through the current clip.
	// Both are zero when nothing occupies the playback slot.
	Elapsed   time.Duration
	Remaining time.Duration
}
