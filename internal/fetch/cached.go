package fetch

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/hearsay-cli/hearsay/internal/playback"
)

// ByteStore is the persistent tier consulted before the network. The disk
// cache satisfies it.
type ByteStore interface {
	Get(url string) ([]byte, bool)
	Put(url string, value []byte) error
}

// CachedFetcher serves fetches from a byte store when possible and writes
// network results back through it. Store failures are logged and otherwise
// ignored; the fetch itself still succeeds.
type CachedFetcher struct {
	next   playback.Fetcher
	store  ByteStore
	logger *log.Logger
}

// NewCachedFetcher wraps next with store. logger may be nil.
func NewCachedFetcher(next playback.Fetcher, store ByteStore, logger *log.Logger) *CachedFetcher {
	if logger == nil {
		logger = log.Default()
	}
	return &CachedFetcher{next: next, store: store, logger: logger}
}

func (c *CachedFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if data, ok := c.store.Get(url); ok {
		c.logger.Debug("audio served from disk cache", "url", url, "bytes", len(data))
		return data, nil
	}

	data, err := c.next.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	if err := c.store.Put(url, data); err != nil {
		c.logger.Warn("disk cache write failed", "url", url, "err", err)
	}
	return data, nil
}

var _ playback.Fetcher = (*CachedFetcher)(nil)
