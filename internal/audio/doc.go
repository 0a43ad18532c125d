// Package audio provides the platform audio primitives consumed by the
// playback scheduler: a WAV (PCM16) decoder and a speaker-backed player
// built on oto, plus a silent mock player for tests and muted operation.
package audio
