package repo

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache is the repository's read-through cache (component L): keyed by
// "Type/id", it holds the canonical JSON content last read or written.
// Writes invalidate before commit; reads populate on a cache miss.
type Cache struct {
	entries *lru.Cache[string, string]
}

// NewCache builds a Cache holding at most maxSize entries. A maxSize of 0
// disables caching: Get always misses and Put/Invalidate are no-ops.
func NewCache(maxSize int) *Cache {
	if maxSize <= 0 {
		return &Cache{}
	}
	c, _ := lru.New[string, string](maxSize)
	return &Cache{entries: c}
}

func cacheKey(resourceType, id string) string {
	return resourceType + "/" + id
}

func (c *Cache) Get(resourceType, id string) (string, bool) {
	if c == nil || c.entries == nil {
		return "", false
	}
	return c.entries.Get(cacheKey(resourceType, id))
}

func (c *Cache) Put(resourceType, id, content string) {
	if c == nil || c.entries == nil {
		return
	}
	c.entries.Add(cacheKey(resourceType, id), content)
}

func (c *Cache) Invalidate(resourceType, id string) {
	if c == nil || c.entries == nil {
		return
	}
	c.entries.Remove(cacheKey(resourceType, id))
}
