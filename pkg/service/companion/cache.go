package companion

import (
	"github.com/dgraph-io/ristretto"
	"github.com/m-mizutani/goerr/v2"
)

// EmbeddingCache keeps query embeddings in memory. Cost is counted in vector elements.
type EmbeddingCache struct {
	cache *ristretto.Cache
}

// NewEmbeddingCache creates a cache holding up to maxElements float32 values in total
func NewEmbeddingCache(maxElements int64) (*EmbeddingCache, error) {
	if maxElements <= 0 {
		return nil, goerr.New("cache size must be positive", goerr.V("max_elements", maxElements))
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxElements / 8 * 10,
		MaxCost:     maxElements,
		BufferItems: 64,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create embedding cache")
	}
	return &EmbeddingCache{cache: cache}, nil
}

// Get returns a copy of the cached vector
func (c *EmbeddingCache) Get(text string) ([]float32, bool) {
	v, found := c.cache.Get(text)
	if !found {
		return nil, false
	}
	vec, ok := v.([]float32)
	if !ok {
		return nil, false
	}
	return append([]float32{}, vec...), true
}

// Set stores vec. Writes are applied asynchronously.
func (c *EmbeddingCache) Set(text string, vec []float32) {
	c.cache.Set(text, append([]float32{}, vec...), int64(len(vec)))
}

// Wait blocks until pending writes are applied
func (c *EmbeddingCache) Wait() {
	c.cache.Wait()
}

func (c *EmbeddingCache) Close() {
	c.cache.Close()
}
