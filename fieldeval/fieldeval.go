package fieldeval

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/isosurf"
)

// Counter3 counts evaluations of the wrapped field.
type Counter3 struct {
	F     isosurf.Field3
	evals uint64
}

// Evaluate implements [isosurf.Field3].
func (c *Counter3) Evaluate(x, y, z float32) float32 {
	c.evals++
	return c.F.Evaluate(x, y, z)
}

// Evaluations returns total evaluations performed since creation or last reset.
func (c *Counter3) Evaluations() uint64 { return c.evals }

// Reset zeroes the evaluation count.
func (c *Counter3) Reset() { c.evals = 0 }

// Counter2 counts evaluations of the wrapped field.
type Counter2 struct {
	F     isosurf.Field2
	evals uint64
}

// Evaluate implements [isosurf.Field2].
func (c *Counter2) Evaluate(x, y float32) float32 {
	c.evals++
	return c.F.Evaluate(x, y)
}

// Evaluations returns total evaluations performed since creation or last reset.
func (c *Counter2) Evaluations() uint64 { return c.evals }

// Reset zeroes the evaluation count.
func (c *Counter2) Reset() { c.evals = 0 }

// LatticeCached3 memoizes evaluations of a field sampled on a regular lattice.
// Positions are snapped to the nearest lattice node so the marching cubes
// layer shared by two consecutive planes is only evaluated once.
type LatticeCached3 struct {
	f      isosurf.Field3
	origin ms3.Vec
	mul    ms3.Vec
	m      map[[3]int32]float32
	hits   uint64
	evals  uint64
}

// Reset sets the field and lattice and clears the cache and statistics,
// reusing the cache's memory.
func (c *LatticeCached3) Reset(f isosurf.Field3, origin, step ms3.Vec) error {
	if f == nil {
		return isosurf.Configf("nil field")
	} else if step.X <= 0 || step.Y <= 0 || step.Z <= 0 {
		return isosurf.Configf("invalid lattice step %v", step)
	}
	if c.m == nil {
		c.m = make(map[[3]int32]float32)
	} else {
		clear(c.m)
	}
	*c = LatticeCached3{
		f:      f,
		origin: origin,
		mul:    ms3.DivElem(ms3.Vec{X: 1, Y: 1, Z: 1}, step),
		m:      c.m,
	}
	return nil
}

// Evaluate implements [isosurf.Field3]. Calls before Reset panic.
func (c *LatticeCached3) Evaluate(x, y, z float32) float32 {
	c.evals++
	tp := ms3.MulElem(c.mul, ms3.Sub(ms3.Vec{X: x, Y: y, Z: z}, c.origin))
	k := [3]int32{
		int32(math32.Round(tp.X)),
		int32(math32.Round(tp.Y)),
		int32(math32.Round(tp.Z)),
	}
	if d, cached := c.m[k]; cached {
		c.hits++
		return d
	}
	d := c.f.Evaluate(x, y, z)
	c.m[k] = d
	return d
}

// Forget drops cached values for lattice layers along z below z. It keeps
// memory bounded when walking plane by plane.
func (c *LatticeCached3) Forget(z float32) {
	kz := int32(math32.Round((z - c.origin.Z) * c.mul.Z))
	for k := range c.m {
		if k[2] < kz {
			delete(c.m, k)
		}
	}
}

// CacheHits returns total amount of cached evaluations since last reset.
func (c *LatticeCached3) CacheHits() uint64 { return c.hits }

// Evaluations returns total evaluations since last reset, including cached ones.
func (c *LatticeCached3) Evaluations() uint64 { return c.evals }

// Len returns the amount of cached values.
func (c *LatticeCached3) Len() int { return len(c.m) }

// GradientNormals computes smooth per-vertex normals for a flat vertex buffer
// by central differences of f with the given step. Normals are unit length and
// point toward decreasing field values, matching the face normals of the march
// package. Vertices where the gradient vanishes get a zero normal.
func GradientNormals(f isosurf.Field3, vertices []float32, step float32) ([]float32, error) {
	return AppendGradientNormals(make([]float32, 0, len(vertices)), f, vertices, step)
}

// AppendGradientNormals is like [GradientNormals] but only computes normals for
// vertices not yet covered by dst, appending them to it.
func AppendGradientNormals(dst []float32, f isosurf.Field3, vertices []float32, step float32) ([]float32, error) {
	h := step * 0.5
	switch {
	case f == nil:
		return dst, isosurf.Configf("nil field")
	case !isosurf.IsFinite(h) || h <= 0:
		return dst, isosurf.Configf("invalid gradient step %v", step)
	case len(vertices)%3 != 0:
		return dst, isosurf.Formatf("vertex buffer length %d not a multiple of 3", len(vertices))
	case len(dst)%3 != 0 || len(dst) > len(vertices):
		return dst, isosurf.Formatf("normal buffer length %d does not match %d vertices", len(dst), len(vertices))
	}
	for i := len(dst); i < len(vertices); i += 3 {
		x, y, z := vertices[i], vertices[i+1], vertices[i+2]
		g := ms3.Vec{
			X: f.Evaluate(x+h, y, z) - f.Evaluate(x-h, y, z),
			Y: f.Evaluate(x, y+h, z) - f.Evaluate(x, y-h, z),
			Z: f.Evaluate(x, y, z+h) - f.Evaluate(x, y, z-h),
		}
		n := ms3.Vec{}
		if l := ms3.Norm(g); l > 0 && isosurf.IsFinite(l) {
			n = ms3.Scale(-1/l, g)
		}
		dst = append(dst, n.X, n.Y, n.Z)
	}
	return dst, nil
}
