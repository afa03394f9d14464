// Package catalog caches the Service → Garment price list fetched from the
// Cleanup backend.
package catalog

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cleanup/dashboard/internal/pricing"
	"github.com/robfig/cron/v3"
)

// Fetcher loads the catalog from the backend.
// Satisfied by *cleanup.Client.
type Fetcher interface {
	Catalog(ctx context.Context) (pricing.Catalog, error)
}

// Cache holds the last successfully fetched catalog.
type Cache struct {
	fetcher Fetcher

	mu        sync.RWMutex
	catalog   pricing.Catalog
	fetchedAt time.Time
}

// New creates an empty Cache. Nothing is fetched until Get or Refresh.
func New(fetcher Fetcher) *Cache {
	return &Cache{fetcher: fetcher}
}

// Get returns the cached catalog, loading it on first use.
func (c *Cache) Get(ctx context.Context) (pricing.Catalog, error) {
	c.mu.RLock()
	cat := c.catalog
	c.mu.RUnlock()
	if cat != nil {
		return cat, nil
	}
	return c.Refresh(ctx)
}

// Refresh fetches the catalog and replaces the cached copy. On failure the
// previous catalog stays in place and the error is returned.
func (c *Cache) Refresh(ctx context.Context) (pricing.Catalog, error) {
	cat, err := c.fetcher.Catalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh catalog: %w", err)
	}

	c.mu.Lock()
	c.catalog = cat
	c.fetchedAt = time.Now()
	c.mu.Unlock()
	return cat, nil
}

// FetchedAt reports when the cached catalog was loaded. Zero if never.
func (c *Cache) FetchedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetchedAt
}

// Schedule registers a periodic refresh on cr using a cron spec such as
// "@every 15m". Each run is bounded by timeout.
func (c *Cache) Schedule(cr *cron.Cron, spec string, timeout time.Duration) (cron.EntryID, error) {
	return cr.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if _, err := c.Refresh(ctx); err != nil {
			log.Printf("ERROR: scheduled %v", err)
		}
	})
}
