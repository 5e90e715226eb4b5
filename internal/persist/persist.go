// Package persist moves whole snapshots across the durable storage boundary.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"

	"github.com/five82/passport/internal/kvstore"
	"github.com/five82/passport/internal/visits"
)

// Storage keys. Each is read and written as one JSON blob.
const (
	VisitsKey      = "passport.visits.v1"
	CountryMetaKey = "passport.countrymeta.v1"
)

// CapacityError reports a save refused because storage is full. It is
// advisory: nothing in memory is rolled back.
type CapacityError struct {
	Key   string
	Bytes int
	Err   error
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("storage full: cannot save %s (%s)", e.Key, humanize.IBytes(uint64(e.Bytes)))
}

func (e *CapacityError) Unwrap() error { return e.Err }

// CapacityExceeded marks the error for visits.Status.
func (e *CapacityError) CapacityExceeded() bool { return true }

// Gateway saves and loads the visit snapshot under a single key.
type Gateway struct {
	backend kvstore.Backend
	key     string
	logger  *slog.Logger
}

// NewGateway binds a gateway to backend using VisitsKey.
func NewGateway(backend kvstore.Backend) *Gateway {
	return &Gateway{
		backend: backend,
		key:     VisitsKey,
		logger:  slog.Default().With("component", "persist"),
	}
}

// Save writes the full snapshot as one value.
func (g *Gateway) Save(ctx context.Context, snap visits.Snapshot) error {
	return SaveJSON(ctx, g.backend, g.key, snap)
}

// Load returns the stored snapshot. Missing, unreadable or corrupt content
// yields an empty snapshot.
func (g *Gateway) Load(ctx context.Context) visits.Snapshot {
	var snap visits.Snapshot
	found, err := LoadJSON(ctx, g.backend, g.key, &snap)
	if err != nil {
		g.logger.Warn("discarding stored visits", "error", err)
		return visits.Snapshot{}
	}
	if !found {
		return visits.Snapshot{}
	}
	return snap
}

// SaveJSON marshals v and stores it under key.
func SaveJSON(ctx context.Context, backend kvstore.Backend, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := backend.Set(ctx, key, string(data)); err != nil {
		if errors.Is(err, kvstore.ErrQuotaExceeded) {
			return &CapacityError{Key: key, Bytes: len(data), Err: err}
		}
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// LoadJSON reads key into dest. found is false when the key is absent.
func LoadJSON(ctx context.Context, backend kvstore.Backend, key string, dest any) (found bool, err error) {
	raw, ok, err := backend.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok || raw == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}
