package imagecomp

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Failure records one dropped source of a batch.
type Failure struct {
	Name string
	Err  error
}

// BatchResult holds the surviving images in submission order.
type BatchResult struct {
	Images []EncodedImage
	Failed []Failure
}

// Notice summarises all failures in one human-readable line. It is empty
// when every source was compressed.
func (r BatchResult) Notice() string {
	switch len(r.Failed) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("1 photo could not be added (%s)", r.Failed[0].Name)
	default:
		return fmt.Sprintf("%d of %d photos could not be added", len(r.Failed), len(r.Failed)+len(r.Images))
	}
}

// CompressBatch compresses every source independently. Failed sources are
// dropped; the rest keep their relative input order.
func (c *Compressor) CompressBatch(ctx context.Context, srcs []Source) BatchResult {
	images := make([]EncodedImage, len(srcs))
	errs := make([]error, len(srcs))

	var g errgroup.Group
	g.SetLimit(c.opts.Concurrency)
	for i, src := range srcs {
		g.Go(func() error {
			images[i], errs[i] = c.Compress(ctx, src)
			return nil
		})
	}
	_ = g.Wait()

	var result BatchResult
	for i, err := range errs {
		if err != nil {
			result.Failed = append(result.Failed, Failure{Name: srcs[i].Name(), Err: err})
			continue
		}
		result.Images = append(result.Images, images[i])
	}
	return result
}
