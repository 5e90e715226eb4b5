package imagecomp

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"testing"
)

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func decodedBounds(t *testing.T, enc EncodedImage) image.Rectangle {
	t.Helper()
	data, err := enc.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("jpeg.DecodeConfig: %v", err)
	}
	return image.Rect(0, 0, cfg.Width, cfg.Height)
}

func TestTargetSize(t *testing.T) {
	tests := []struct {
		name         string
		w, h, max    int
		wantW, wantH int
	}{
		{"smaller than max untouched", 800, 600, 1600, 800, 600},
		{"landscape scaled", 3200, 2400, 1600, 1600, 1200},
		{"portrait scaled", 1000, 4000, 1600, 400, 1600},
		{"thin strip keeps one pixel", 4000, 1, 1600, 1600, 1},
		{"tall strip keeps one pixel", 1, 9000, 100, 1, 100},
		{"square exact", 1600, 1600, 1600, 1600, 1600},
		{"rounding", 1001, 333, 500, 500, 166},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := TargetSize(tt.w, tt.h, tt.max)
			if w != tt.wantW || h != tt.wantH {
				t.Fatalf("TargetSize(%d, %d, %d) = %dx%d, want %dx%d", tt.w, tt.h, tt.max, w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestTargetSize_NeverExceedsMaxOrZero(t *testing.T) {
	for _, maxDim := range []int{1, 7, 100, 1600} {
		for w := 1; w < 5000; w += 371 {
			for h := 1; h < 5000; h += 419 {
				gotW, gotH := TargetSize(w, h, maxDim)
				if max(gotW, gotH) > maxDim {
					t.Fatalf("TargetSize(%d, %d, %d) = %dx%d exceeds max", w, h, maxDim, gotW, gotH)
				}
				if gotW < 1 || gotH < 1 {
					t.Fatalf("TargetSize(%d, %d, %d) = %dx%d has zero axis", w, h, maxDim, gotW, gotH)
				}
			}
		}
	}
}

func TestCompress_DownscalesToMaxDimension(t *testing.T) {
	c := New(Options{MaxDimension: 100})

	enc, err := c.Compress(context.Background(), BytesSource("wide.png", pngBytes(t, 400, 200)))
	if err != nil {
		t.Fatalf("Compress returned error: %v", err)
	}
	if enc.MediaType() != MediaTypeJPEG {
		t.Fatalf("MediaType = %q, want %q", enc.MediaType(), MediaTypeJPEG)
	}
	if got := decodedBounds(t, enc); got.Dx() != 100 || got.Dy() != 50 {
		t.Fatalf("bounds = %v, want 100x50", got)
	}
}

func TestCompress_SmallImageNotUpscaled(t *testing.T) {
	c := New(Options{})

	enc, err := c.Compress(context.Background(), BytesSource("dot.png", pngBytes(t, 3, 2)))
	if err != nil {
		t.Fatalf("Compress returned error: %v", err)
	}
	if got := decodedBounds(t, enc); got.Dx() != 3 || got.Dy() != 2 {
		t.Fatalf("bounds = %v, want 3x2", got)
	}
	if !enc.Valid() || enc.Size() == 0 {
		t.Fatalf("encoded image invalid: valid=%v size=%d", enc.Valid(), enc.Size())
	}
}

func TestCompress_CorruptInputIsDecodeError(t *testing.T) {
	c := New(Options{})

	_, err := c.Compress(context.Background(), BytesSource("junk.jpg", []byte("definitely not an image")))
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("Compress error = %v, want ErrDecode", err)
	}
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) || decodeErr.Name != "junk.jpg" {
		t.Fatalf("Compress error = %#v, want *DecodeError for junk.jpg", err)
	}
}

type failingSource struct{}

func (failingSource) Name() string { return "gone.png" }

func (failingSource) Open() (io.ReadCloser, error) { return nil, errors.New("permission denied") }

func TestCompress_UnreadableSourceIsReadError(t *testing.T) {
	c := New(Options{})

	_, err := c.Compress(context.Background(), failingSource{})
	if !errors.Is(err, ErrRead) {
		t.Fatalf("Compress error = %v, want ErrRead", err)
	}
}

func TestCompress_MissingFileIsReadError(t *testing.T) {
	c := New(Options{})

	_, err := c.Compress(context.Background(), FileSource(t.TempDir()+"/missing.png"))
	if !errors.Is(err, ErrRead) {
		t.Fatalf("Compress error = %v, want ErrRead", err)
	}
}

func TestCompress_OversizedSurfaceIsRenderSurfaceError(t *testing.T) {
	c := New(Options{MaxSurfacePixels: 50})

	_, err := c.Compress(context.Background(), BytesSource("big.png", pngBytes(t, 20, 20)))
	if !errors.Is(err, ErrRenderSurface) {
		t.Fatalf("Compress error = %v, want ErrRenderSurface", err)
	}
}

func TestCompress_OversizedSourceRejectedBeforeDecode(t *testing.T) {
	// The 10x10 output would fit; the 300x300 source does not.
	c := New(Options{MaxDimension: 10, MaxSurfacePixels: 1000})

	_, err := c.Compress(context.Background(), BytesSource("huge.png", pngBytes(t, 300, 300)))
	if !errors.Is(err, ErrRenderSurface) {
		t.Fatalf("Compress error = %v, want ErrRenderSurface", err)
	}
	var surfaceErr *RenderSurfaceError
	if !errors.As(err, &surfaceErr) || surfaceErr.Width != 300 || surfaceErr.Height != 300 {
		t.Fatalf("Compress error = %#v, want *RenderSurfaceError for 300x300", err)
	}
}

func TestCompress_CancelledContext(t *testing.T) {
	c := New(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Compress(ctx, BytesSource("a.png", pngBytes(t, 4, 4))); !errors.Is(err, context.Canceled) {
		t.Fatalf("Compress error = %v, want context.Canceled", err)
	}
}

func TestCompressBatch_DropsFailuresAndKeepsOrder(t *testing.T) {
	c := New(Options{Concurrency: 4})
	srcs := []Source{
		BytesSource("one.png", pngBytes(t, 10, 5)),
		BytesSource("two.jpg", []byte("corrupt")),
		BytesSource("three.png", pngBytes(t, 30, 5)),
		BytesSource("four.png", pngBytes(t, 40, 5)),
	}

	result := c.CompressBatch(context.Background(), srcs)

	if len(result.Images) != 3 {
		t.Fatalf("len(Images) = %d, want 3", len(result.Images))
	}
	wantWidths := []int{10, 30, 40}
	for i, enc := range result.Images {
		if got := decodedBounds(t, enc).Dx(); got != wantWidths[i] {
			t.Fatalf("Images[%d] width = %d, want %d", i, got, wantWidths[i])
		}
	}
	if len(result.Failed) != 1 || result.Failed[0].Name != "two.jpg" {
		t.Fatalf("Failed = %#v, want only two.jpg", result.Failed)
	}
	if notice := result.Notice(); notice == "" {
		t.Fatalf("Notice is empty, want one aggregate message")
	}
}

func TestBatchResult_Notice(t *testing.T) {
	if got := (BatchResult{}).Notice(); got != "" {
		t.Fatalf("Notice = %q, want empty", got)
	}
	r := BatchResult{
		Images: []EncodedImage{"x"},
		Failed: []Failure{{Name: "a"}, {Name: "b"}},
	}
	if got, want := r.Notice(), "2 of 3 photos could not be added"; got != want {
		t.Fatalf("Notice = %q, want %q", got, want)
	}
}
