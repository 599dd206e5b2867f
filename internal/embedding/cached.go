package embedding

import "context"

// CachedExtractor memoizes another extractor by media digest.
type CachedExtractor struct {
	Extractor
	cache *Cache
}

// NewCachedExtractor wraps inner with an LRU cache of the given size.
func NewCachedExtractor(inner Extractor, size int) *CachedExtractor {
	return &CachedExtractor{Extractor: inner, cache: NewCache(size)}
}

// Extract returns the cached vector for media or extracts and caches it.
// Failures are not cached.
func (c *CachedExtractor) Extract(ctx context.Context, media []byte) ([]float32, error) {
	key := MediaKey(media)
	if v, ok := c.cache.Get(key); ok {
		return v, nil
	}
	v, err := c.Extractor.Extract(ctx, media)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, v)
	return v, nil
}

// Cache exposes the underlying cache.
func (c *CachedExtractor) Cache() *Cache {
	return c.cache
}
