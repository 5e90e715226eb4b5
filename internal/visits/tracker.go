package visits

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/five82/passport/internal/imagecomp"
)

// Saver persists a whole snapshot as one unit.
type Saver interface {
	Save(ctx context.Context, snap Snapshot) error
}

// capacityError is implemented by storage errors caused by a full backend.
type capacityError interface {
	CapacityExceeded() bool
}

// Status describes the persistence side of the tracker.
type Status struct {
	Version       uint64
	SavedVersion  uint64
	LastSavedAt   time.Time
	LastSaveError error
}

// Dirty reports whether in-memory state is ahead of storage.
func (s Status) Dirty() bool { return s.Version != s.SavedVersion }

// CapacityExceeded reports whether the last save failed for lack of space.
func (s Status) CapacityExceeded() bool {
	var ce capacityError
	return errors.As(s.LastSaveError, &ce) && ce.CapacityExceeded()
}

// Notice returns a user-facing message for the last save failure, or "".
func (s Status) Notice() string {
	switch {
	case s.LastSaveError == nil:
		return ""
	case s.CapacityExceeded():
		return "Storage is full: recent changes are kept for this session but not saved. Remove some photos to free space."
	default:
		return fmt.Sprintf("Changes not saved: %v", s.LastSaveError)
	}
}

// Tracker owns the current snapshot and writes every change through a
// Saver. A failed save never rolls back memory; it is recorded in Status
// until the next successful save.
type Tracker struct {
	mu         sync.RWMutex
	snap       Snapshot
	status     Status
	saver      Saver
	compressor *imagecomp.Compressor
	logger     *slog.Logger
}

// NewTracker starts from initial, which is assumed to be already stored.
func NewTracker(initial Snapshot, saver Saver, compressor *imagecomp.Compressor) *Tracker {
	if compressor == nil {
		compressor = imagecomp.New(imagecomp.Options{})
	}
	return &Tracker{
		snap:       initial,
		status:     Status{Version: initial.Version(), SavedVersion: initial.Version()},
		saver:      saver,
		compressor: compressor,
		logger:     slog.Default().With("component", "visits"),
	}
}

// Snapshot returns the current snapshot.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap
}

// Status returns a copy of the persistence status.
func (t *Tracker) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// ToggleVisited flips the visited flag for code and saves.
func (t *Tracker) ToggleVisited(ctx context.Context, code Code) (Snapshot, error) {
	return t.apply(ctx, func(s Snapshot) Snapshot { return s.ToggleVisited(code) })
}

// SetDate records the visit date for code and saves.
func (t *Tracker) SetDate(ctx context.Context, code Code, date string) (Snapshot, error) {
	return t.apply(ctx, func(s Snapshot) Snapshot { return s.SetDate(code, date) })
}

// AddPhotos appends already-encoded images and saves.
func (t *Tracker) AddPhotos(ctx context.Context, code Code, images []imagecomp.EncodedImage) (Snapshot, error) {
	return t.apply(ctx, func(s Snapshot) Snapshot { return s.AddPhotos(code, images) })
}

// RemovePhoto drops one photo and saves.
func (t *Tracker) RemovePhoto(ctx context.Context, code Code, index int) (Snapshot, error) {
	return t.apply(ctx, func(s Snapshot) Snapshot { return s.RemovePhoto(code, index) })
}

// IngestPhotos compresses srcs and appends the survivors in input order.
// Per-file failures are reported through the BatchResult; the error is the
// save outcome only.
func (t *Tracker) IngestPhotos(ctx context.Context, code Code, srcs []imagecomp.Source) (imagecomp.BatchResult, error) {
	result := t.compressor.CompressBatch(ctx, srcs)
	for _, f := range result.Failed {
		t.logger.Warn("photo dropped", "code", code, "file", f.Name, "error", f.Err)
	}
	if len(result.Images) == 0 {
		return result, nil
	}
	_, err := t.AddPhotos(ctx, code, result.Images)
	return result, err
}

// Flush retries saving the current snapshot, e.g. after freeing space.
func (t *Tracker) Flush(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.save(ctx)
}

func (t *Tracker) apply(ctx context.Context, op func(Snapshot) Snapshot) (Snapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := op(t.snap)
	if next.Version() == t.snap.Version() {
		return t.snap, nil
	}
	t.snap = next
	t.status.Version = next.Version()
	return next, t.save(ctx)
}

// save must be called with mu held.
func (t *Tracker) save(ctx context.Context) error {
	if t.saver == nil {
		t.status.SavedVersion = t.snap.Version()
		return nil
	}
	if err := t.saver.Save(ctx, t.snap); err != nil {
		t.status.LastSaveError = err
		t.logger.Warn("save failed", "version", t.snap.Version(), "error", err)
		return err
	}
	t.status.SavedVersion = t.snap.Version()
	t.status.LastSavedAt = time.Now()
	t.status.LastSaveError = nil
	return nil
}
