package imagecomp

import (
	"fmt"
	"image"
	"sync"
)

// surfacePool recycles RGBA rasters between compressions. Surfaces larger
// than maxPixels are refused.
type surfacePool struct {
	maxPixels int
	pool      sync.Pool
}

// fits checks a width x height raster against the pixel budget.
func (p *surfacePool) fits(width, height int) error {
	if width <= 0 || height <= 0 {
		return &RenderSurfaceError{Width: width, Height: height, Err: fmt.Errorf("empty surface")}
	}
	pixels := int64(width) * int64(height)
	if p.maxPixels > 0 && pixels > int64(p.maxPixels) {
		return &RenderSurfaceError{
			Width:  width,
			Height: height,
			Err:    fmt.Errorf("%d pixels exceeds budget of %d", pixels, p.maxPixels),
		}
	}
	return nil
}

func (p *surfacePool) acquire(width, height int) (surface *image.RGBA, err error) {
	if err := p.fits(width, height); err != nil {
		return nil, err
	}

	size := width * height * 4
	if v := p.pool.Get(); v != nil {
		img := v.(*image.RGBA)
		if cap(img.Pix) >= size {
			img.Pix = img.Pix[:size]
			clear(img.Pix)
			img.Stride = 4 * width
			img.Rect = image.Rect(0, 0, width, height)
			return img, nil
		}
	}

	defer func() {
		if r := recover(); r != nil {
			surface = nil
			err = &RenderSurfaceError{Width: width, Height: height, Err: fmt.Errorf("allocate: %v", r)}
		}
	}()
	return image.NewRGBA(image.Rect(0, 0, width, height)), nil
}

func (p *surfacePool) release(img *image.RGBA) {
	if img == nil {
		return
	}
	p.pool.Put(img)
}
