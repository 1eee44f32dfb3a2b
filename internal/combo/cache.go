package combo

import (
	"fmt"
	"strconv"

	"github.com/Yiling-J/theine-go"
)

// CacheEntry is a cached search result together with the partition
// generation it was computed at. Fingerprint identifies the search
// parameters the result belongs to.
type CacheEntry struct {
	Generation  uint64
	Fingerprint string
	Result      *Result
}

// ResultCache stores complete search results per partition key. The engine
// serializes Set and Delete for a key; implementations only need to be safe
// for concurrent use.
type ResultCache interface {
	Get(key string) (*CacheEntry, bool)
	Set(key string, entry *CacheEntry)
	Delete(key string)
}

// PartitionKey returns the cache key for a desk.
func PartitionKey(deskID int64) string {
	return "desk:" + strconv.FormatInt(deskID, 10)
}

// DefaultCacheSize is the number of partitions the LRU cache holds by default.
const DefaultCacheSize = 1000

// LRUCache is a bounded in-memory ResultCache.
type LRUCache struct {
	cache *theine.Cache[string, *CacheEntry]
}

var _ ResultCache = (*LRUCache)(nil)

// NewLRUCache returns a cache holding at most size partitions.
func NewLRUCache(size int64) (*LRUCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := theine.NewBuilder[string, *CacheEntry](size).Build()
	if err != nil {
		return nil, fmt.Errorf("building result cache: %w", err)
	}
	return &LRUCache{cache: c}, nil
}

func (c *LRUCache) Get(key string) (*CacheEntry, bool) {
	return c.cache.Get(key)
}

func (c *LRUCache) Set(key string, entry *CacheEntry) {
	c.cache.Set(key, entry, 1)
}

func (c *LRUCache) Delete(key string) {
	c.cache.Delete(key)
}

// Close releases the cache's background resources.
func (c *LRUCache) Close() {
	c.cache.Close()
}
