package meshio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/isosurf"
)

const (
	stlHeaderSize   = 80
	stlTriangleSize = 4*3*4 + 2
	// Triangles encoded per call to Write.
	stlBatch = 1024
)

// Triangles converts a flat vertex buffer into triangles.
func Triangles(vertices []float32) ([]ms3.Triangle, error) {
	return AppendTriangles(nil, vertices)
}

// AppendTriangles appends the triangles of a flat vertex buffer to dst.
func AppendTriangles(dst []ms3.Triangle, vertices []float32) ([]ms3.Triangle, error) {
	if len(vertices)%9 != 0 {
		return dst, isosurf.Formatf("vertex buffer length %d not a multiple of 9", len(vertices))
	}
	for i := 0; i < len(vertices); i += 9 {
		v := vertices[i : i+9 : i+9]
		dst = append(dst, ms3.Triangle{
			{X: v[0], Y: v[1], Z: v[2]},
			{X: v[3], Y: v[4], Z: v[5]},
			{X: v[6], Y: v[7], Z: v[8]},
		})
	}
	return dst, nil
}

// Flatten is the inverse of [Triangles]. It appends the vertices of model to dst.
func Flatten(dst []float32, model []ms3.Triangle) []float32 {
	for _, t := range model {
		for _, v := range t {
			dst = append(dst, v.X, v.Y, v.Z)
		}
	}
	return dst
}

// WriteBinarySTL writes model to w in binary STL format and returns the
// amount of bytes written. Facet normals are computed from vertex winding.
func WriteBinarySTL(w io.Writer, model []ms3.Triangle) (int, error) {
	if uint64(len(model)) > math.MaxUint32 {
		return 0, isosurf.Formatf("too many triangles for STL: %d", len(model))
	}
	var header [stlHeaderSize + 4]byte
	copy(header[:], "binary STL written by isosurf")
	binary.LittleEndian.PutUint32(header[stlHeaderSize:], uint32(len(model)))
	n, err := w.Write(header[:])
	if err != nil {
		return n, fmt.Errorf("%w: writing STL header: %w", isosurf.ErrFormat, err)
	}
	buf := make([]byte, 0, stlBatch*stlTriangleSize)
	for len(model) > 0 {
		batch := model[:min(len(model), stlBatch)]
		model = model[len(batch):]
		buf = buf[:0]
		for _, t := range batch {
			buf = appendVec(buf, stlNormal(t))
			buf = appendVec(buf, t[0])
			buf = appendVec(buf, t[1])
			buf = appendVec(buf, t[2])
			buf = append(buf, 0, 0) // Attribute byte count.
		}
		ngot, err := w.Write(buf)
		n += ngot
		if err != nil {
			return n, fmt.Errorf("%w: writing STL triangles: %w", isosurf.ErrFormat, err)
		}
	}
	return n, nil
}

func stlNormal(t ms3.Triangle) ms3.Vec {
	n := ms3.Cross(ms3.Sub(t[1], t[0]), ms3.Sub(t[2], t[0]))
	l := ms3.Norm(n)
	if l == 0 || !isosurf.IsFinite(l) {
		return ms3.Vec{}
	}
	return ms3.Scale(1/l, n)
}

func appendVec(b []byte, v ms3.Vec) []byte {
	b = binary.LittleEndian.AppendUint32(b, math.Float32bits(v.X))
	b = binary.LittleEndian.AppendUint32(b, math.Float32bits(v.Y))
	return binary.LittleEndian.AppendUint32(b, math.Float32bits(v.Z))
}

// ReadBinarySTL parses a binary STL stream as written by [WriteBinarySTL].
// Stored facet normals are discarded.
func ReadBinarySTL(r io.Reader) ([]ms3.Triangle, error) {
	var header [stlHeaderSize + 4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("%w: reading STL header: %w", isosurf.ErrFormat, err)
	}
	count := binary.LittleEndian.Uint32(header[stlHeaderSize:])
	var tri [stlTriangleSize]byte
	model := make([]ms3.Triangle, 0, min(int(count), 1<<20))
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(r, tri[:]); err != nil {
			return nil, fmt.Errorf("%w: reading STL triangle %d of %d: %w", isosurf.ErrFormat, i, count, err)
		}
		var t ms3.Triangle
		for k := range t {
			off := 12 * (k + 1)
			t[k] = ms3.Vec{
				X: math.Float32frombits(binary.LittleEndian.Uint32(tri[off:])),
				Y: math.Float32frombits(binary.LittleEndian.Uint32(tri[off+4:])),
				Z: math.Float32frombits(binary.LittleEndian.Uint32(tri[off+8:])),
			}
		}
		model = append(model, t)
	}
	return model, nil
}
