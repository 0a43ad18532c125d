// Package playback schedules ordered playback of asynchronously arriving
// audio clips. Clips are enqueued by URL with a numeric priority (lower plays
// sooner, ties keep arrival order), fetched and decoded in the background,
// and played one at a time through an injected Player. Individual fetch,
// decode, or playback failures never stall the queue: the offending clip is
// dropped and the next one is attempted.
package playback
