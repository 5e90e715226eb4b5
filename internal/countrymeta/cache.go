// Package countrymeta keeps country facts in storage after the first
// successful fetch. Entries never expire; Clear forces a refetch.
package countrymeta

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/five82/passport/internal/kvstore"
	"github.com/five82/passport/internal/persist"
	"github.com/five82/passport/internal/restcountries"
	"github.com/five82/passport/internal/visits"
)

// Source fetches the full fact table; *restcountries.Client satisfies it.
type Source interface {
	FetchAllMeta(ctx context.Context) (map[visits.Code]restcountries.Meta, error)
}

// Cache stores facts under persist.CountryMetaKey, independent of visits.
type Cache struct {
	mu      sync.Mutex
	backend kvstore.Backend
	source  Source
	logger  *slog.Logger
}

// New returns a Cache over backend.
func New(backend kvstore.Backend, source Source) *Cache {
	return &Cache{
		backend: backend,
		source:  source,
		logger:  slog.Default().With("component", "countrymeta"),
	}
}

// Get returns cached facts, fetching and storing them on first use.
// A cancelled or failed fetch stores nothing.
func (c *Cache) Get(ctx context.Context) (map[visits.Code]restcountries.Meta, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var cached map[visits.Code]restcountries.Meta
	found, err := persist.LoadJSON(ctx, c.backend, persist.CountryMetaKey, &cached)
	if err != nil {
		c.logger.Warn("ignoring unreadable country facts", "error", err)
	}
	if found && len(cached) > 0 {
		return cached, nil
	}

	if c.source == nil {
		return nil, fmt.Errorf("no country facts source configured")
	}
	fresh, err := c.source.FetchAllMeta(ctx)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := persist.SaveJSON(ctx, c.backend, persist.CountryMetaKey, fresh); err != nil {
		// Facts are still usable for this session.
		c.logger.Warn("country facts not cached", "error", err)
	}
	return fresh, nil
}

// Clear removes the cached facts.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.backend.Delete(ctx, persist.CountryMetaKey); err != nil {
		return fmt.Errorf("clear country facts: %w", err)
	}
	return nil
}
