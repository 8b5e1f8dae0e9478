package config

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// RankerConfig holds the similarity search tunables
type RankerConfig struct {
	// SimilarityThreshold is the minimum cosine similarity for a match
	SimilarityThreshold float64
	TopN                int

	// EmbedTimeout bounds the embedding call, ScanTimeout the vector scan
	EmbedTimeout time.Duration
	ScanTimeout  time.Duration
	// ChatTimeout bounds presentation composition
	ChatTimeout time.Duration
}

// DefaultRankerConfig returns the defaults
func DefaultRankerConfig() *RankerConfig {
	return &RankerConfig{
		SimilarityThreshold: 0.3,
		TopN:                7,
		EmbedTimeout:        10 * time.Second,
		ScanTimeout:         5 * time.Second,
		ChatTimeout:         30 * time.Second,
	}
}

// Validate checks the configuration
func (c *RankerConfig) Validate() error {
	if c.SimilarityThreshold < -1 || c.SimilarityThreshold > 1 {
		return goerr.New("similarity threshold must be within [-1, 1]", goerr.V("threshold", c.SimilarityThreshold))
	}
	if c.TopN <= 0 {
		return goerr.New("top n must be positive", goerr.V("top_n", c.TopN))
	}
	if c.EmbedTimeout <= 0 || c.ScanTimeout <= 0 || c.ChatTimeout <= 0 {
		return goerr.New("timeouts must be positive",
			goerr.V("embed", c.EmbedTimeout),
			goerr.V("scan", c.ScanTimeout),
			goerr.V("chat", c.ChatTimeout))
	}
	return nil
}
