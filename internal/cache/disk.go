package cache

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// DiskCache persists raw fetched audio bytes across sessions so restarting
// the client does not re-download clips the backend already synthesized.
// Entries are compressed with zstd and indexed by URL; the index survives in
// a gob file next to the data.
type DiskCache struct {
	basePath string
	capacity int64
	size     int64

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	index map[string]*diskEntry

	mu    sync.Mutex
	stats Stats
}

type diskEntry struct {
	URL        string
	FilePath   string
	Size       int64 // compressed size on disk
	RawSize    int64
	StoredAt   time.Time
	LastAccess time.Time
	Compressed bool
}

const indexFile = "index.gob"

// NewDiskCache opens (or creates) a disk cache rooted at basePath, bounded
// to capacity bytes on disk. level selects the zstd encoder level; values
// below 1 disable compression.
func NewDiskCache(basePath string, capacity int64, level int) (*DiskCache, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create directory: %w", err)
	}

	dc := &DiskCache{
		basePath: basePath,
		capacity: capacity,
		index:    make(map[string]*diskEntry),
		stats:    Stats{Capacity: capacity},
	}

	if level > 0 {
		var err error
		dc.encoder, err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
		if err != nil {
			return nil, fmt.Errorf("cache: zstd encoder: %w", err)
		}
	}
	var err error
	dc.decoder, err = zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("cache: zstd decoder: %w", err)
	}

	// A damaged index just means starting cold.
	if err := dc.loadIndex(); err != nil {
		dc.index = make(map[string]*diskEntry)
	}
	for _, entry := range dc.index {
		dc.size += entry.Size
	}

	return dc, nil
}

// Get returns the raw bytes stored for url. Entries whose backing file is
// missing or unreadable are dropped from the index.
func (dc *DiskCache) Get(url string) ([]byte, bool) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	entry, ok := dc.index[url]
	if !ok {
		dc.stats.Misses++
		return nil, false
	}

	data, err := os.ReadFile(entry.FilePath)
	if err != nil {
		dc.dropLocked(entry)
		dc.stats.Misses++
		return nil, false
	}

	if entry.Compressed {
		raw, err := dc.decoder.DecodeAll(data, nil)
		if err != nil {
			dc.dropLocked(entry)
			dc.stats.Misses++
			return nil, false
		}
		data = raw
	}

	entry.LastAccess = time.Now()
	dc.stats.Hits++
	dc.stats.LastAccess = entry.LastAccess
	return data, true
}

// Put stores value under url, compressing when that saves space and
// evicting least recently used entries to stay within capacity.
func (dc *DiskCache) Put(url string, value []byte) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	toWrite := value
	compressed := false
	if dc.encoder != nil && len(value) > 1024 {
		packed := dc.encoder.EncodeAll(value, nil)
		if len(packed) < len(value) {
			toWrite = packed
			compressed = true
		}
	}
	diskSize := int64(len(toWrite))

	if existing, ok := dc.index[url]; ok {
		dc.dropLocked(existing)
	}
	if diskSize > dc.capacity {
		return ErrItemTooLarge
	}
	for dc.size+diskSize > dc.capacity && len(dc.index) > 0 {
		dc.evictOldestLocked()
	}

	path := dc.filePath(url)
	if err := writeAtomic(path, toWrite); err != nil {
		return fmt.Errorf("cache: write entry: %w", err)
	}

	now := time.Now()
	dc.index[url] = &diskEntry{
		URL:        url,
		FilePath:   path,
		Size:       diskSize,
		RawSize:    int64(len(value)),
		StoredAt:   now,
		LastAccess: now,
		Compressed: compressed,
	}
	dc.size += diskSize
	dc.stats.Size = dc.size
	return nil
}

// Delete removes the entry for url, if present.
func (dc *DiskCache) Delete(url string) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	if entry, ok := dc.index[url]; ok {
		dc.dropLocked(entry)
	}
	return nil
}

// Clear removes every entry and persists the empty index.
func (dc *DiskCache) Clear() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	for _, entry := range dc.index {
		os.Remove(entry.FilePath)
	}
	dc.index = make(map[string]*diskEntry)
	dc.size = 0
	dc.stats.Size = 0
	return dc.saveIndexLocked()
}

// Contains reports whether url is indexed without touching recency.
func (dc *DiskCache) Contains(url string) bool {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	_, ok := dc.index[url]
	return ok
}

// Size returns the bytes currently used on disk.
func (dc *DiskCache) Size() int64 {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return dc.size
}

// Stats returns a snapshot of the cache counters.
func (dc *DiskCache) Stats() Stats {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	stats := dc.stats
	stats.Size = dc.size
	stats.ItemCount = int64(len(dc.index))
	stats.fillHitRate()
	return stats
}

// RemoveOlderThan drops entries stored before cutoff and returns how many
// were removed.
func (dc *DiskCache) RemoveOlderThan(cutoff time.Time) int {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	removed := 0
	for _, entry := range dc.index {
		if entry.StoredAt.Before(cutoff) {
			dc.dropLocked(entry)
			removed++
		}
	}
	return removed
}

// Close persists the index.
func (dc *DiskCache) Close() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return dc.saveIndexLocked()
}

func (dc *DiskCache) dropLocked(entry *diskEntry) {
	os.Remove(entry.FilePath)
	delete(dc.index, entry.URL)
	dc.size -= entry.Size
	dc.stats.Size = dc.size
}

func (dc *DiskCache) evictOldestLocked() {
	var oldest *diskEntry
	for _, entry := range dc.index {
		if oldest == nil || entry.LastAccess.Before(oldest.LastAccess) {
			oldest = entry
		}
	}
	if oldest != nil {
		dc.dropLocked(oldest)
		dc.stats.Evictions++
	}
}

func (dc *DiskCache) filePath(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(dc.basePath, hex.EncodeToString(sum[:16])+".audio")
}

func (dc *DiskCache) loadIndex() error {
	file, err := os.Open(filepath.Join(dc.basePath, indexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	return gob.NewDecoder(file).Decode(&dc.index)
}

func (dc *DiskCache) saveIndexLocked() error {
	path := filepath.Join(dc.basePath, indexFile)
	tmp := path + ".tmp"

	file, err := os.Create(tmp)
	if err != nil {
		return err
	}
	err = gob.NewEncoder(file).Encode(dc.index)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// writeAtomic writes data through a temp file and renames it into place.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"

	file, err := os.Create(tmp)
	if err != nil {
		return err
	}
	_, err = file.Write(data)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
