// Package speech turns streamed assistant text into queued audio: it cleans
// markdown out of reply chunks, segments them into sentences as they arrive,
// and submits each sentence for synthesis and playback in arrival order.
package speech
