package cache

import (
	"errors"
	"time"
)

var (
	// ErrItemTooLarge is returned when a single item exceeds the cache
	// capacity and can never be stored.
	ErrItemTooLarge = errors.New("cache: item too large")
)

// Stats holds counters for one cache tier.
type Stats struct {
	Capacity  int64 // maximum size in bytes
	Size      int64 // current size in bytes
	ItemCount int64

	Hits      int64
	Misses    int64
	Evictions int64
	HitRate   float64

	LastAccess time.Time
}

func (s *Stats) fillHitRate() {
	if s.Hits+s.Misses > 0 {
		s.HitRate = float64(s.Hits) / float64(s.Hits+s.Misses)
	}
}
