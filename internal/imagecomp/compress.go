package imagecomp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	DefaultMaxDimension = 1600
	DefaultQuality      = 0.82

	defaultMaxSurfacePixels = 1 << 25 // ~33.5 MP
	defaultConcurrency      = 4
	maxInputBytes           = 64 << 20
)

// Options tune a Compressor. Zero values select the defaults.
type Options struct {
	MaxDimension     int     // longest edge in pixels
	Quality          float64 // (0,1], mapped onto JPEG quality 1..100
	MaxSurfacePixels int     // largest source or render surface accepted
	Concurrency      int     // parallel workers for CompressBatch
}

func (o Options) normalized() Options {
	if o.MaxDimension <= 0 {
		o.MaxDimension = DefaultMaxDimension
	}
	if o.Quality <= 0 || o.Quality > 1 {
		o.Quality = DefaultQuality
	}
	if o.MaxSurfacePixels <= 0 {
		o.MaxSurfacePixels = defaultMaxSurfacePixels
	}
	if o.Concurrency <= 0 {
		o.Concurrency = defaultConcurrency
	}
	return o
}

// Source is a named, openable image input.
type Source interface {
	Name() string
	Open() (io.ReadCloser, error)
}

// FileSource reads an image from disk.
type FileSource string

func (f FileSource) Name() string { return filepath.Base(string(f)) }

func (f FileSource) Open() (io.ReadCloser, error) { return os.Open(string(f)) }

type bytesSource struct {
	name string
	data []byte
}

// BytesSource wraps an in-memory image.
func BytesSource(name string, data []byte) Source {
	return bytesSource{name: name, data: data}
}

func (b bytesSource) Name() string { return b.name }

func (b bytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.data)), nil
}

// Compressor downscales and re-encodes images to a bounded size.
// It is safe for concurrent use.
type Compressor struct {
	opts     Options
	surfaces *surfacePool
}

// New builds a Compressor.
func New(opts Options) *Compressor {
	opts = opts.normalized()
	return &Compressor{
		opts:     opts,
		surfaces: &surfacePool{maxPixels: opts.MaxSurfacePixels},
	}
}

// Options returns the effective options.
func (c *Compressor) Options() Options { return c.opts }

// Compress decodes src, scales it so the longest edge fits MaxDimension and
// re-encodes it as JPEG.
func (c *Compressor) Compress(ctx context.Context, src Source) (EncodedImage, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := readSource(src)
	if err != nil {
		return "", err
	}

	// Decoding allocates the full source raster, so its size is checked
	// against the budget from the header first.
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", &DecodeError{Name: src.Name(), Err: err}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return "", &DecodeError{Name: src.Name(), Err: errors.New("image has no pixels")}
	}
	if err := c.surfaces.fits(cfg.Width, cfg.Height); err != nil {
		return "", err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", &DecodeError{Name: src.Name(), Err: err}
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return "", &DecodeError{Name: src.Name(), Err: errors.New("image has no pixels")}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	width, height := TargetSize(bounds.Dx(), bounds.Dy(), c.opts.MaxDimension)
	surface, err := c.surfaces.acquire(width, height)
	if err != nil {
		return "", err
	}
	defer c.surfaces.release(surface)

	// JPEG has no alpha; flatten onto white like a canvas export would.
	draw.Draw(surface, surface.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(surface, surface.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, surface, &jpeg.Options{Quality: jpegQuality(c.opts.Quality)}); err != nil {
		return "", fmt.Errorf("encode %s: %w", src.Name(), err)
	}
	return NewEncodedImage(MediaTypeJPEG, buf.Bytes()), nil
}

// TargetSize scales width x height so the longest edge is at most maxDim,
// never upscaling and never returning a zero dimension.
func TargetSize(width, height, maxDim int) (int, int) {
	scale := 1.0
	if longest := max(width, height); maxDim > 0 && longest > maxDim {
		scale = float64(maxDim) / float64(longest)
	}
	w := max(1, int(math.Round(float64(width)*scale)))
	h := max(1, int(math.Round(float64(height)*scale)))
	return w, h
}

func jpegQuality(q float64) int {
	return min(100, max(1, int(math.Round(q*100))))
}

func readSource(src Source) ([]byte, error) {
	rc, err := src.Open()
	if err != nil {
		return nil, &ReadError{Name: src.Name(), Err: err}
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(io.LimitReader(rc, maxInputBytes+1))
	if err != nil {
		return nil, &ReadError{Name: src.Name(), Err: err}
	}
	if len(data) > maxInputBytes {
		return nil, &ReadError{Name: src.Name(), Err: fmt.Errorf("larger than %d bytes", maxInputBytes)}
	}
	return data, nil
}
