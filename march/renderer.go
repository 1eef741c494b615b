package march

import (
	"io"

	"github.com/soypat/geometry/ms3"
)

// Renderer streams triangles into a caller provided buffer. ReadTriangles
// returns io.EOF once no more triangles will be produced.
type Renderer interface {
	ReadTriangles(dst []ms3.Triangle, userData any) (n int, err error)
}

// RenderAll reads the full contents of a Renderer and returns the slice read.
// It does not return error on io.EOF, like io.ReadAll.
func RenderAll(r Renderer, userData any) ([]ms3.Triangle, error) {
	const startSize = 4096
	var err error
	var nt int
	result := make([]ms3.Triangle, 0, startSize)
	buf := make([]ms3.Triangle, startSize)
	for {
		nt, err = r.ReadTriangles(buf, userData)
		if err == nil || err == io.EOF {
			result = append(result, buf[:nt]...)
		}
		if err != nil {
			break
		}
	}
	if err == io.EOF {
		return result, nil
	}
	return result, err
}

// TriangleReader is a [Renderer] over a marching cubes walk. Planes are
// generated on demand so memory use is bounded by the triangles of one plane.
type TriangleReader struct {
	c  *Cubes
	st CubesState
	// off is the index in st.Vertices of the next vertex not yet read.
	off int
}

var _ Renderer = (*TriangleReader)(nil)

// NewTriangleReader validates cfg and returns a reader starting at Bounds.Min.Z.
func NewTriangleReader(cfg CubesConfig) (*TriangleReader, error) {
	c, err := NewCubes(cfg)
	if err != nil {
		return nil, err
	}
	return &TriangleReader{c: c, st: c.Start()}, nil
}

// ReadTriangles implements [Renderer]. userData is unused.
func (tr *TriangleReader) ReadTriangles(dst []ms3.Triangle, userData any) (n int, err error) {
	if len(dst) == 0 {
		return 0, io.ErrShortBuffer
	}
	for n < len(dst) {
		if tr.off == len(tr.st.Vertices) {
			if tr.st.Finished {
				return n, io.EOF
			}
			// Buffer fully consumed: reuse it for the next plane.
			tr.st.Vertices = tr.st.Vertices[:0]
			tr.off = 0
			tr.c.Generate(&tr.st)
			continue
		}
		v := tr.st.Vertices[tr.off : tr.off+9]
		dst[n] = ms3.Triangle{
			{X: v[0], Y: v[1], Z: v[2]},
			{X: v[3], Y: v[4], Z: v[5]},
			{X: v[6], Y: v[7], Z: v[8]},
		}
		tr.off += 9
		n++
	}
	return n, nil
}

// Planes returns the amount of planes generated so far.
func (tr *TriangleReader) Planes() int { return tr.st.Plane }
