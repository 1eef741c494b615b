package march

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/isosurf"
)

// DegeneratePolicy decides how normals of zero-area triangles are computed.
type DegeneratePolicy uint8

const (
	// DegenerateZero writes a zero normal for degenerate triangles.
	DegenerateZero DegeneratePolicy = iota
	// DegenerateStrict fails with [isosurf.ErrDegenerate] on the first degenerate triangle.
	DegenerateStrict
)

// ComputeNormals returns one flat normal per vertex of vertices, which holds
// triangles as consecutive x y z triples. The three vertices of a triangle share
// normalize((p2-p1)×(p3-p1)). With the lookup tables of this package normals
// point toward the side of the surface where the field is below the isovalue.
func ComputeNormals(vertices []float32, policy DegeneratePolicy) ([]float32, error) {
	return AppendNormals(make([]float32, 0, len(vertices)), vertices, policy)
}

// AppendNormals appends to dst the normals of the triangles in vertices that
// dst does not yet cover, so that len(dst) == len(vertices) on success. It is
// meant for normals of a vertex buffer that grows between calls. On error dst
// is returned with the normals computed before the failing triangle.
func AppendNormals(dst, vertices []float32, policy DegeneratePolicy) ([]float32, error) {
	if len(vertices)%9 != 0 {
		return dst, isosurf.Formatf("vertex buffer length %d not a multiple of 9", len(vertices))
	} else if len(dst)%9 != 0 || len(dst) > len(vertices) {
		return dst, isosurf.Formatf("normal buffer length %d does not match %d vertices", len(dst), len(vertices))
	} else if policy > DegenerateStrict {
		return dst, isosurf.Configf("unknown degenerate policy %d", policy)
	}
	for i := len(dst); i < len(vertices); i += 9 {
		t := vertices[i : i+9 : i+9]
		n, ok := faceNormal(
			ms3.Vec{X: t[0], Y: t[1], Z: t[2]},
			ms3.Vec{X: t[3], Y: t[4], Z: t[5]},
			ms3.Vec{X: t[6], Y: t[7], Z: t[8]},
		)
		if !ok && policy == DegenerateStrict {
			return dst, fmt.Errorf("%w: zero-area triangle %d", isosurf.ErrDegenerate, i/9)
		}
		dst = append(dst, n.X, n.Y, n.Z, n.X, n.Y, n.Z, n.X, n.Y, n.Z)
	}
	return dst, nil
}

// faceNormal returns the unit normal of triangle p1 p2 p3 and true, or the zero
// vector and false when the triangle has no well defined normal.
func faceNormal(p1, p2, p3 ms3.Vec) (ms3.Vec, bool) {
	e1 := ms3.Sub(p2, p1)
	e2 := ms3.Sub(p3, p1)
	n := ms3.Cross(e1, e2)
	n2 := ms3.Dot(n, n)
	// Relative threshold so the test is independent of triangle scale.
	if n2 == 0 || n2 <= 1e-12*ms3.Dot(e1, e1)*ms3.Dot(e2, e2) || !isosurf.IsFinite(n2) {
		return ms3.Vec{}, false
	}
	return ms3.Scale(1/math32.Sqrt(n2), n), true
}
