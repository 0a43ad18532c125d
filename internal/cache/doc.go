// Package cache provides the two storage tiers behind audio playback: an
// in-memory LRU of decoded clips keyed by URL, and a persistent disk cache of
// raw fetched bytes compressed with zstd.
package cache
