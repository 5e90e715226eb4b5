package persist

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/five82/passport/internal/imagecomp"
	"github.com/five82/passport/internal/kvstore"
	"github.com/five82/passport/internal/visits"
)

type brokenBackend struct{ kvstore.Backend }

func (brokenBackend) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("io error")
}

func TestGateway_SaveLoadRoundTrip(t *testing.T) {
	backend := kvstore.NewMemory(0)
	gw := NewGateway(backend)
	ctx := context.Background()

	snap := visits.Snapshot{}.
		ToggleVisited("US").
		SetDate("US", "2024-07-04").
		AddPhotos("FR", []imagecomp.EncodedImage{"data:image/jpeg;base64,AAAA"})
	if err := gw.Save(ctx, snap); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	loaded := gw.Load(ctx)
	if loaded.Len() != 2 {
		t.Fatalf("Len = %d, want 2", loaded.Len())
	}
	if rec := loaded.Record("US"); !rec.Visited || rec.Date != "2024-07-04" {
		t.Fatalf("US = %#v", rec)
	}
	if got := loaded.Record("FR").Photos; len(got) != 1 || got[0] != "data:image/jpeg;base64,AAAA" {
		t.Fatalf("FR photos = %v", got)
	}
}

func TestGateway_LoadToleratesMissingCorruptAndBroken(t *testing.T) {
	ctx := context.Background()

	empty := kvstore.NewMemory(0)
	if got := NewGateway(empty).Load(ctx); got.Len() != 0 {
		t.Fatalf("missing key: Len = %d, want 0", got.Len())
	}

	corrupt := kvstore.NewMemory(0)
	_ = corrupt.Set(ctx, VisitsKey, "{not json")
	if got := NewGateway(corrupt).Load(ctx); got.Len() != 0 {
		t.Fatalf("corrupt content: Len = %d, want 0", got.Len())
	}

	wrongShape := kvstore.NewMemory(0)
	_ = wrongShape.Set(ctx, VisitsKey, `["US"]`)
	if got := NewGateway(wrongShape).Load(ctx); got.Len() != 0 {
		t.Fatalf("wrong shape: Len = %d, want 0", got.Len())
	}

	if got := NewGateway(brokenBackend{}).Load(ctx); got.Len() != 0 {
		t.Fatalf("backend error: Len = %d, want 0", got.Len())
	}
}

func TestGateway_SaveOverQuotaIsCapacityError(t *testing.T) {
	backend := kvstore.NewMemory(64)
	gw := NewGateway(backend)
	ctx := context.Background()

	small := visits.Snapshot{}.ToggleVisited("US")
	if err := gw.Save(ctx, small); err != nil {
		t.Fatalf("Save(small) returned error: %v", err)
	}

	big := small.AddPhotos("US", []imagecomp.EncodedImage{imagecomp.EncodedImage("data:image/jpeg;base64," + strings.Repeat("A", 200))})
	err := gw.Save(ctx, big)
	if !isCapacity(err) {
		t.Fatalf("Save(big) error = %v, want CapacityError", err)
	}
	if !errors.Is(err, kvstore.ErrQuotaExceeded) {
		t.Fatalf("CapacityError should wrap ErrQuotaExceeded: %v", err)
	}

	// The last good snapshot is still what storage holds.
	if got := gw.Load(ctx).Record("US"); len(got.Photos) != 0 || !got.Visited {
		t.Fatalf("stored record = %#v, want previous snapshot", got)
	}
}

func TestTrackerCapacityScenario(t *testing.T) {
	backend := kvstore.NewMemory(80)
	gw := NewGateway(backend)
	ctx := context.Background()
	tr := visits.NewTracker(gw.Load(ctx), gw, nil)

	huge := []imagecomp.EncodedImage{imagecomp.EncodedImage("data:image/jpeg;base64," + strings.Repeat("B", 300))}
	if _, err := tr.AddPhotos(ctx, "JP", huge); !isCapacity(err) {
		t.Fatalf("AddPhotos error = %v, want CapacityError", err)
	}
	if !tr.Status().CapacityExceeded() {
		t.Fatalf("Status.CapacityExceeded() = false after quota failure")
	}

	snap, _ := tr.ToggleVisited(ctx, "US")
	if !snap.Record("US").Visited {
		t.Fatalf("toggle not applied in memory during capacity failure")
	}

	if _, err := tr.RemovePhoto(ctx, "JP", 0); err != nil {
		t.Fatalf("RemovePhoto returned error: %v", err)
	}
	if tr.Status().LastSaveError != nil {
		t.Fatalf("LastSaveError = %v, want cleared after successful save", tr.Status().LastSaveError)
	}
	if !gw.Load(ctx).Record("US").Visited {
		t.Fatalf("stored snapshot missing US after recovery")
	}
}

func isCapacity(err error) bool {
	var ce *CapacityError
	return errors.As(err, &ce)
}
