package cache

import (
	"bytes"
	"errors"
	"os"
	"testing"
)

func newTestDiskCache(t *testing.T, capacity int64) *DiskCache {
	t.Helper()
	dc, err := NewDiskCache(t.TempDir(), capacity, 3)
	if err != nil {
		t.Fatalf("new disk cache: %v", err)
	}
	return dc
}

func TestDiskCacheRoundTrip(t *testing.T) {
	dc := newTestDiskCache(t, 1<<20)
	defer dc.Close()

	payload := bytes.Repeat([]byte("wav data "), 500) // compressible, > 1KB

	if err := dc.Put("/audio/x.wav", payload); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok := dc.Get("/audio/x.wav")
	if !ok {
		t.Fatal("expected a hit")
	}
	if !bytes.Equal(got, payload) {
		t.Error("payload corrupted through compression round trip")
	}

	// Repetitive audio data should land compressed on disk.
	if size := dc.Size(); size >= int64(len(payload)) {
		t.Errorf("on-disk size %d not smaller than raw %d", size, len(payload))
	}
}

func TestDiskCacheMiss(t *testing.T) {
	dc := newTestDiskCache(t, 1<<20)
	defer dc.Close()

	if _, ok := dc.Get("/audio/nope.wav"); ok {
		t.Error("expected a miss")
	}
	stats := dc.Stats()
	if stats.Misses != 1 {
		t.Errorf("misses = %d, want 1", stats.Misses)
	}
}

func TestDiskCachePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	dc, err := NewDiskCache(dir, 1<<20, 3)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := dc.Put("url", []byte("persisted bytes")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := dc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewDiskCache(dir, 1<<20, 3)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, ok := reopened.Get("url")
	if !ok {
		t.Fatal("entry lost across reopen")
	}
	if string(got) != "persisted bytes" {
		t.Errorf("got %q", got)
	}
}

func TestDiskCacheMissingFileDropsEntry(t *testing.T) {
	dc := newTestDiskCache(t, 1<<20)
	defer dc.Close()

	if err := dc.Put("url", []byte("data")); err != nil {
		t.Fatalf("put: %v", err)
	}
	os.Remove(dc.filePath("url"))

	if _, ok := dc.Get("url"); ok {
		t.Fatal("hit on a deleted backing file")
	}
	if dc.Contains("url") {
		t.Error("entry should be dropped from the index")
	}
}

func TestDiskCacheEviction(t *testing.T) {
	dc := newTestDiskCache(t, 100)
	defer dc.Close()

	// Small incompressible-looking payloads stay under the compression
	// threshold and are stored raw.
	if err := dc.Put("a", make([]byte, 60)); err != nil {
		t.Fatalf("put a: %v", err)
	}
	if err := dc.Put("b", make([]byte, 60)); err != nil {
		t.Fatalf("put b: %v", err)
	}

	if dc.Contains("a") {
		t.Error("a should have been evicted to make room")
	}
	if !dc.Contains("b") {
		t.Error("b should be present")
	}
}

func TestDiskCacheItemTooLarge(t *testing.T) {
	dc := newTestDiskCache(t, 10)
	defer dc.Close()

	err := dc.Put("big", make([]byte, 100))
	if !errors.Is(err, ErrItemTooLarge) {
		t.Errorf("err = %v, want ErrItemTooLarge", err)
	}
}

func TestDiskCacheClear(t *testing.T) {
	dc := newTestDiskCache(t, 1<<20)
	defer dc.Close()

	dc.Put("a", []byte("one"))
	dc.Put("b", []byte("two"))

	if err := dc.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if dc.Size() != 0 {
		t.Errorf("size = %d after clear", dc.Size())
	}
	if _, ok := dc.Get("a"); ok {
		t.Error("cleared entry still retrievable")
	}
}
