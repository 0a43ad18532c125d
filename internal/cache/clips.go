package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/hearsay-cli/hearsay/internal/playback"
)

// DefaultClipCapacity bounds the decoded-clip cache. Decoded PCM is roughly
// 86 KiB per second of mono 44.1 kHz speech, so this holds several minutes
// of recent audio.
const DefaultClipCapacity = 32 * 1024 * 1024

// ClipCache is an in-memory LRU of decoded clips keyed by URL, bounded by
// total decoded bytes. When an insert would exceed capacity, least recently
// used clips are evicted until it fits. It satisfies the playback scheduler's
// cache interface; a clip larger than the whole capacity is simply not
// retained.
type ClipCache struct {
	capacity int64
	size     int64

	items    map[string]*list.Element
	eviction *list.List

	mu    sync.Mutex
	stats Stats
}

type clipEntry struct {
	url  string
	clip playback.Clip
	size int64
}

// NewClipCache creates a clip cache bounded to capacity bytes of decoded
// audio. Non-positive capacities fall back to DefaultClipCapacity.
func NewClipCache(capacity int64) *ClipCache {
	if capacity <= 0 {
		capacity = DefaultClipCapacity
	}
	return &ClipCache{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		eviction: list.New(),
		stats:    Stats{Capacity: capacity},
	}
}

// Get returns the cached clip for url, marking it most recently used.
func (c *ClipCache) Get(url string) (playback.Clip, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[url]
	if !ok {
		c.stats.Misses++
		return nil, false
	}

	c.eviction.MoveToFront(elem)
	c.stats.Hits++
	c.stats.LastAccess = time.Now()
	return elem.Value.(*clipEntry).clip, true
}

// Put stores clip under url, evicting least recently used clips as needed.
// Clips larger than the cache capacity are dropped silently.
func (c *ClipCache) Put(url string, clip playback.Clip) {
	if clip == nil {
		return
	}
	clipSize := int64(clip.Size())

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[url]; ok {
		entry := elem.Value.(*clipEntry)
		if clipSize > c.capacity {
			// The replacement cannot fit at all; drop the stale entry too.
			c.eviction.Remove(elem)
			delete(c.items, url)
			c.size -= entry.size
			c.stats.Size = c.size
			return
		}
		c.eviction.MoveToFront(elem)
		c.size += clipSize - entry.size
		entry.clip = clip
		entry.size = clipSize
		for c.size > c.capacity && c.eviction.Len() > 1 {
			c.evictOldest()
		}
		c.stats.Size = c.size
		return
	}

	if clipSize > c.capacity {
		return
	}

	for c.size+clipSize > c.capacity && c.eviction.Len() > 0 {
		c.evictOldest()
	}

	elem := c.eviction.PushFront(&clipEntry{url: url, clip: clip, size: clipSize})
	c.items[url] = elem
	c.size += clipSize
	c.stats.Size = c.size
}

// Clear drops every cached clip.
func (c *ClipCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.eviction.Init()
	c.size = 0
	c.stats.Size = 0
}

// Size returns the current total of decoded bytes held.
func (c *ClipCache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Contains reports whether url is cached without updating recency.
func (c *ClipCache) Contains(url string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[url]
	return ok
}

// Stats returns a snapshot of the cache counters.
func (c *ClipCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Size = c.size
	stats.ItemCount = int64(len(c.items))
	stats.fillHitRate()
	return stats
}

func (c *ClipCache) evictOldest() {
	elem := c.eviction.Back()
	if elem == nil {
		return
	}
	entry := elem.Value.(*clipEntry)
	c.eviction.Remove(elem)
	delete(c.items, entry.url)
	c.size -= entry.size
	c.stats.Evictions++
}

var _ playback.ClipCache = (*ClipCache)(nil)
