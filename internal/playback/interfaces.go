package playback

import (
	"context"
	"time"
)

// Clip is a decoded, playable piece of audio. Implementations are produced by
// a Decoder and consumed by a Player; the scheduler treats them as opaque.
type Clip interface {
	// Size returns the decoded size in bytes, used for cache accounting.
	Size() int

	// Duration returns the playback duration of the clip.
	Duration() time.Duration
}

// Fetcher retrieves raw audio bytes for a URL. Implementations may be slow or
// unreliable; the scheduler never calls Fetch on its event goroutine.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Decoder converts raw audio bytes into a playable Clip.
type Decoder interface {
	Decode(data []byte) (Clip, error)
}

// Player plays a single clip at a time.
//
// Play begins playback and returns immediately. The done callback fires
// exactly once per successful Play call: on natural end, on a mid-playback
// error, or when Stop interrupts the clip. If Play itself returns an error,
// done never fires. Pause and Resume suspend and restore the output clock
// without ending playback; both are no-ops when they do not apply, as is
// Stop when nothing is playing.
type Player interface {
	Play(clip Clip, done func(error)) error
	Pause() error
	Resume() error
	Stop() error
}

// ClipCache caches decoded clips by URL so repeated enqueues of the same URL
// skip re-fetching and re-decoding.
type ClipCache interface {
	Get(url string) (Clip, bool)
	Put(url string, clip Clip)
	Clear()
}
