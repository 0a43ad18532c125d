package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestHTTPFetcherSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/clip.wav" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("RIFF fake wav"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher()
	data, err := f.Fetch(context.Background(), srv.URL+"/audio/clip.wav")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(data) != "RIFF fake wav" {
		t.Errorf("got %q", data)
	}
}

func TestHTTPFetcherNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewHTTPFetcher()
	if _, err := f.Fetch(context.Background(), srv.URL+"/missing"); err == nil {
		t.Fatal("expected an error for 404")
	}
}

func TestHTTPFetcherTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 2048))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(WithMaxBytes(1024))
	_, err := f.Fetch(context.Background(), srv.URL)
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("err = %v, want ErrTooLarge", err)
	}
}

func TestHTTPFetcherContextCancel(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	f := NewHTTPFetcher()
	if _, err := f.Fetch(ctx, srv.URL); err == nil {
		t.Fatal("expected a context error")
	}
}

type mapStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	putErr  error
	putOnce int
}

func newMapStore() *mapStore {
	return &mapStore{data: make(map[string][]byte)}
}

func (m *mapStore) Get(url string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[url]
	return v, ok
}

func (m *mapStore) Put(url string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.data[url] = value
	m.putOnce++
	return nil
}

func TestCachedFetcherHitSkipsNetwork(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte("bytes"))
	}))
	defer srv.Close()

	store := newMapStore()
	f := NewCachedFetcher(NewHTTPFetcher(), store, nil)

	for i := 0; i < 3; i++ {
		data, err := f.Fetch(context.Background(), srv.URL+"/a.wav")
		if err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
		if string(data) != "bytes" {
			t.Errorf("fetch %d: got %q", i, data)
		}
	}

	if calls != 1 {
		t.Errorf("network calls = %d, want 1", calls)
	}
	if store.putOnce != 1 {
		t.Errorf("store puts = %d, want 1", store.putOnce)
	}
}

func TestCachedFetcherStoreFailureIsNonFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("bytes"))
	}))
	defer srv.Close()

	store := newMapStore()
	store.putErr = errors.New("disk full")
	f := NewCachedFetcher(NewHTTPFetcher(), store, nil)

	data, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(data) != "bytes" {
		t.Errorf("got %q", data)
	}
}
