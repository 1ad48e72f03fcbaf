// Package cache provides the in-process tier of the assessment cache.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/figo-endometrial-mcp-server/internal/domain"
)

const (
	DefaultMaxItems = 1000
	DefaultTTL      = time.Hour
)

// MemoryCache is an expiring LRU of assessments keyed by input fingerprint or
// assessment ID.
type MemoryCache struct {
	lru *expirable.LRU[string, *domain.Assessment]
}

// NewMemoryCache creates a cache holding at most maxItems entries for ttl.
// Non-positive arguments fall back to the defaults.
func NewMemoryCache(maxItems int, ttl time.Duration) *MemoryCache {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{
		lru: expirable.NewLRU[string, *domain.Assessment](maxItems, nil, ttl),
	}
}

// Get implements domain.AssessmentCache. The result is a copy of the entry.
func (c *MemoryCache) Get(_ context.Context, key string) (*domain.Assessment, bool) {
	a, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	return a.Clone(), true
}

// Set implements domain.AssessmentCache. The cache keeps its own copy.
func (c *MemoryCache) Set(_ context.Context, key string, assessment *domain.Assessment) error {
	c.lru.Add(key, assessment.Clone())
	return nil
}

// Len returns the number of live entries.
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}

// Purge drops every entry.
func (c *MemoryCache) Purge() {
	c.lru.Purge()
}
