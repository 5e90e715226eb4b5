package visits

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/five82/passport/internal/imagecomp"
)

type fullErr struct{}

func (fullErr) Error() string          { return "quota exceeded" }
func (fullErr) CapacityExceeded() bool { return true }

type fakeSaver struct {
	fail  error
	saves []Snapshot
}

func (f *fakeSaver) Save(_ context.Context, snap Snapshot) error {
	if f.fail != nil {
		return f.fail
	}
	f.saves = append(f.saves, snap)
	return nil
}

func TestTracker_SavesEveryChange(t *testing.T) {
	saver := &fakeSaver{}
	tr := NewTracker(Snapshot{}, saver, nil)
	ctx := context.Background()

	if _, err := tr.ToggleVisited(ctx, "us"); err != nil {
		t.Fatalf("ToggleVisited returned error: %v", err)
	}
	if _, err := tr.SetDate(ctx, "US", "2020-02-02"); err != nil {
		t.Fatalf("SetDate returned error: %v", err)
	}
	if len(saver.saves) != 2 {
		t.Fatalf("saves = %d, want 2", len(saver.saves))
	}
	last := saver.saves[len(saver.saves)-1]
	if rec := last.Record("US"); !rec.Visited || rec.Date != "2020-02-02" {
		t.Fatalf("saved record = %#v, want full snapshot", rec)
	}
	if tr.Status().Dirty() {
		t.Fatalf("Status.Dirty() = true after successful saves")
	}
}

func TestTracker_NoopDoesNotSave(t *testing.T) {
	saver := &fakeSaver{}
	tr := NewTracker(Snapshot{}, saver, nil)

	if _, err := tr.RemovePhoto(context.Background(), "US", 3); err != nil {
		t.Fatalf("RemovePhoto returned error: %v", err)
	}
	if _, err := tr.AddPhotos(context.Background(), "US", nil); err != nil {
		t.Fatalf("AddPhotos returned error: %v", err)
	}
	if len(saver.saves) != 0 {
		t.Fatalf("saves = %d, want 0", len(saver.saves))
	}
}

func TestTracker_CapacityFailureKeepsMemoryAndClearsOnSuccess(t *testing.T) {
	saver := &fakeSaver{fail: fullErr{}}
	tr := NewTracker(Snapshot{}, saver, nil)
	ctx := context.Background()

	_, err := tr.ToggleVisited(ctx, "US")
	if err == nil {
		t.Fatalf("ToggleVisited returned nil error, want capacity error")
	}
	status := tr.Status()
	if !status.CapacityExceeded() || status.Notice() == "" || !status.Dirty() {
		t.Fatalf("status = %#v, want capacity notice and dirty", status)
	}

	// Memory keeps moving forward while storage is full.
	snap, _ := tr.ToggleVisited(ctx, "FR")
	if !snap.Record("US").Visited || !snap.Record("FR").Visited {
		t.Fatalf("in-memory snapshot lost changes: %v", snap.Codes())
	}

	saver.fail = nil
	if _, err := tr.SetDate(ctx, "FR", "2021-01-01"); err != nil {
		t.Fatalf("SetDate returned error: %v", err)
	}
	status = tr.Status()
	if status.LastSaveError != nil || status.Notice() != "" || status.CapacityExceeded() {
		t.Fatalf("status after success = %#v, want cleared", status)
	}
	if got := saver.saves[0]; !got.Record("US").Visited || !got.Record("FR").Visited {
		t.Fatalf("first successful save missed earlier changes: %v", got.Codes())
	}
}

func TestTracker_NonCapacityErrorNotice(t *testing.T) {
	tr := NewTracker(Snapshot{}, &fakeSaver{fail: errors.New("disk on fire")}, nil)
	_, _ = tr.ToggleVisited(context.Background(), "US")

	status := tr.Status()
	if status.CapacityExceeded() {
		t.Fatalf("CapacityExceeded() = true for generic error")
	}
	if status.Notice() != "Changes not saved: disk on fire" {
		t.Fatalf("Notice = %q", status.Notice())
	}
}

func TestTracker_FlushRetriesSave(t *testing.T) {
	saver := &fakeSaver{fail: fullErr{}}
	tr := NewTracker(Snapshot{}, saver, nil)
	_, _ = tr.ToggleVisited(context.Background(), "US")

	saver.fail = nil
	if err := tr.Flush(context.Background()); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	if tr.Status().Dirty() || len(saver.saves) != 1 {
		t.Fatalf("Flush did not persist pending snapshot")
	}
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func TestTracker_IngestPhotosDropsCorruptFileKeepsOrder(t *testing.T) {
	saver := &fakeSaver{}
	tr := NewTracker(Snapshot{}, saver, imagecomp.New(imagecomp.Options{Concurrency: 4}))

	srcs := []imagecomp.Source{
		imagecomp.BytesSource("1.png", encodePNG(t, 11, 3)),
		imagecomp.BytesSource("2.jpg", []byte("garbage")),
		imagecomp.BytesSource("3.png", encodePNG(t, 13, 3)),
		imagecomp.BytesSource("4.png", encodePNG(t, 14, 3)),
	}
	result, err := tr.IngestPhotos(context.Background(), "jp", srcs)
	if err != nil {
		t.Fatalf("IngestPhotos returned error: %v", err)
	}
	if len(result.Failed) != 1 || result.Notice() == "" {
		t.Fatalf("Failed = %#v, want one aggregate failure", result.Failed)
	}

	photos := tr.Snapshot().Record("JP").Photos
	if len(photos) != 3 {
		t.Fatalf("len(photos) = %d, want 3", len(photos))
	}
	for i, want := range result.Images {
		if photos[i] != want {
			t.Fatalf("photos[%d] out of order", i)
		}
	}
	if len(saver.saves) != 1 {
		t.Fatalf("saves = %d, want a single save for the batch", len(saver.saves))
	}
}

func TestTracker_IngestAllFailedDoesNotTouchStore(t *testing.T) {
	saver := &fakeSaver{}
	tr := NewTracker(Snapshot{}, saver, nil)

	result, err := tr.IngestPhotos(context.Background(), "US", []imagecomp.Source{imagecomp.BytesSource("x", nil)})
	if err != nil {
		t.Fatalf("IngestPhotos returned error: %v", err)
	}
	if len(result.Failed) != 1 || has(tr.Snapshot(), "US") || len(saver.saves) != 0 {
		t.Fatalf("all-failed batch changed state")
	}
}
