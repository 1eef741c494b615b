// Package isosurf extracts isolines and isosurfaces from scalar fields using
// marching squares (2D) and marching cubes (3D).
//
// The root package defines the scalar field interfaces consumed by the
// [github.com/soypat/isosurf/march] walkers and the error taxonomy shared by
// all subpackages. Geometry is produced as flat float32 buffers suitable for
// direct GPU upload or serialization with [github.com/soypat/isosurf/meshio].
package isosurf

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
)

// Field3 is a 3D scalar field. Evaluate must be deterministic and free of side
// effects visible to the caller: walkers evaluate it arbitrarily many times and
// in no particular order beyond the documented scan order.
type Field3 interface {
	Evaluate(x, y, z float32) float32
}

// Field2 is a 2D scalar field. See [Field3] for the purity requirements.
type Field2 interface {
	Evaluate(x, y float32) float32
}

// Field3Func adapts an ordinary function to a [Field3].
type Field3Func func(x, y, z float32) float32

// Evaluate calls f(x, y, z).
func (f Field3Func) Evaluate(x, y, z float32) float32 { return f(x, y, z) }

// Field2Func adapts an ordinary function to a [Field2].
type Field2Func func(x, y float32) float32

// Evaluate calls f(x, y).
func (f Field2Func) Evaluate(x, y float32) float32 { return f(x, y) }

var (
	// ErrConfig is returned when a walker or pipeline is configured with a
	// non-positive step, an empty or inverted region, a nil field or
	// non-finite parameters. It is always reported before generation begins.
	ErrConfig = errors.New("invalid configuration")
	// ErrDegenerate is returned in strict mode when a zero-area triangle is
	// found while estimating normals.
	ErrDegenerate = errors.New("degenerate geometry")
	// ErrFormat is returned by serializers when buffers are malformed or the
	// destination cannot be written, and by parsers on malformed input.
	ErrFormat = errors.New("format error")
)

// Configf returns an error wrapping [ErrConfig] with a formatted message.
func Configf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

// Formatf returns an error wrapping [ErrFormat] with a formatted message.
func Formatf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFormat, fmt.Sprintf(format, args...))
}

// IsFinite reports whether v is neither NaN nor an infinity.
func IsFinite(v float32) bool {
	return !math32.IsNaN(v) && !math32.IsInf(v, 0)
}

// CheckStep validates a single axis step size.
func CheckStep(axis string, step float32) error {
	if !IsFinite(step) || step <= 0 {
		return Configf("step %s must be positive and finite, got %v", axis, step)
	}
	return nil
}

// CheckRange validates a single axis interval.
func CheckRange(axis string, min, max float32) error {
	if !IsFinite(min) || !IsFinite(max) {
		return Configf("bounds %s must be finite, got [%v, %v]", axis, min, max)
	} else if min >= max {
		return Configf("bounds %s min must be less than max, got [%v, %v]", axis, min, max)
	}
	return nil
}
