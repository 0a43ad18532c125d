package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/hearsay-cli/hearsay/internal/playback"
)

// ErrTooLarge is returned when a response exceeds the configured size limit.
var ErrTooLarge = errors.New("fetch: response too large")

// DefaultMaxBytes caps a single audio download. Sentence-sized WAV clips
// from the backend run well under this.
const DefaultMaxBytes = 16 << 20

// HTTPFetcher downloads audio bytes. Requests are rate limited so a burst of
// enqueued sentences does not hammer the backend.
type HTTPFetcher struct {
	client   *http.Client
	limiter  *rate.Limiter
	maxBytes int64
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithClient substitutes the HTTP client, mainly for tests.
func WithClient(client *http.Client) Option {
	return func(f *HTTPFetcher) { f.client = client }
}

// WithRateLimit caps request throughput at r requests per second with the
// given burst.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(f *HTTPFetcher) { f.limiter = rate.NewLimiter(r, burst) }
}

// WithMaxBytes caps the accepted response size.
func WithMaxBytes(n int64) Option {
	return func(f *HTTPFetcher) { f.maxBytes = n }
}

// NewHTTPFetcher creates a fetcher with a 30 second request timeout and a
// default limit of 10 requests per second.
func NewHTTPFetcher(opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		client:   &http.Client{Timeout: 30 * time.Second},
		limiter:  rate.NewLimiter(10, 20),
		maxBytes: DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads the audio at url, honoring ctx for cancellation and the
// fetcher's rate limit.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("fetch: %s returned %s", url, resp.Status)
	}
	if resp.ContentLength > f.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, resp.ContentLength)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("fetch: read body: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: over %d bytes", ErrTooLarge, f.maxBytes)
	}
	return data, nil
}

var _ playback.Fetcher = (*HTTPFetcher)(nil)
