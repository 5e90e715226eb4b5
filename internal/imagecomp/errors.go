package imagecomp

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is checks against the typed errors below.
var (
	ErrRead          = errors.New("read image")
	ErrDecode        = errors.New("decode image")
	ErrRenderSurface = errors.New("acquire render surface")
)

// ReadError reports that the source bytes could not be read.
type ReadError struct {
	Name string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Name, e.Err)
}

func (e *ReadError) Unwrap() []error { return []error{ErrRead, e.Err} }

// DecodeError reports input that is not a supported image.
type DecodeError struct {
	Name string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Name, e.Err)
}

func (e *DecodeError) Unwrap() []error { return []error{ErrDecode, e.Err} }

// RenderSurfaceError reports that no raster surface of the requested size
// could be acquired.
type RenderSurfaceError struct {
	Width, Height int
	Err           error
}

func (e *RenderSurfaceError) Error() string {
	return fmt.Sprintf("render surface %dx%d: %v", e.Width, e.Height, e.Err)
}

func (e *RenderSurfaceError) Unwrap() []error { return []error{ErrRenderSurface, e.Err} }
