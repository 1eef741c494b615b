// Package meshio serializes flat triangle buffers produced by the march package
// to mesh file formats.
package meshio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/soypat/isosurf"
)

// Mesh is an unindexed triangle mesh. Vertices and Normals hold x y z triples,
// three consecutive triples per triangle.
type Mesh struct {
	Vertices []float32
	Normals  []float32
}

// Validate reports an error wrapping [isosurf.ErrFormat] if the buffers do not
// describe whole triangles with one normal per vertex.
func (m *Mesh) Validate() error {
	return checkBuffers(m.Vertices, m.Normals)
}

// Faces returns the amount of triangles in the mesh.
func (m *Mesh) Faces() int { return len(m.Vertices) / 9 }

func checkBuffers(vertices, normals []float32) error {
	if len(vertices)%9 != 0 {
		return isosurf.Formatf("vertex buffer length %d not a multiple of 9", len(vertices))
	} else if len(normals) != len(vertices) {
		return isosurf.Formatf("normal buffer length %d does not match vertex buffer length %d", len(normals), len(vertices))
	}
	return nil
}

// WritePLY writes vertices and normals to w as an ASCII PLY mesh. Each vertex
// is written once with its normal and each triangle references three
// consecutive vertices. Buffers are validated before any byte is written.
func WritePLY(w io.Writer, vertices, normals []float32) error {
	if err := checkBuffers(vertices, normals); err != nil {
		return err
	}
	nv := len(vertices) / 3
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "ply\nformat ascii 1.0\nelement vertex %d\n", nv)
	for _, p := range [...]string{"x", "y", "z", "nx", "ny", "nz"} {
		fmt.Fprintf(bw, "property float %s\n", p)
	}
	fmt.Fprintf(bw, "element face %d\nproperty list uchar int vertex_indices\nend_header\n", nv/3)
	var buf []byte
	for i := 0; i < len(vertices); i += 3 {
		buf = buf[:0]
		buf = appendFloats(buf, vertices[i:i+3])
		buf = append(buf, ' ')
		buf = appendFloats(buf, normals[i:i+3])
		buf = append(buf, '\n')
		bw.Write(buf)
	}
	for k := 0; k < nv; k += 3 {
		fmt.Fprintf(bw, "3 %d %d %d\n", k, k+1, k+2)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: writing PLY: %w", isosurf.ErrFormat, err)
	}
	return nil
}

func appendFloats(b []byte, v []float32) []byte {
	for i, f := range v {
		if i > 0 {
			b = append(b, ' ')
		}
		b = strconv.AppendFloat(b, float64(f), 'g', -1, 32)
	}
	return b
}

// WritePLYFile writes an ASCII PLY mesh to the named file. Data is first
// written to a temporary file in the same directory which is renamed to name
// on success, so a failed write never leaves a partial file behind.
func WritePLYFile(name string, vertices, normals []float32) error {
	if err := checkBuffers(vertices, normals); err != nil {
		return err
	}
	return WriteFileAtomic(name, func(w io.Writer) error {
		return WritePLY(w, vertices, normals)
	})
}

// WriteFileAtomic calls write with a temporary file in the directory of name
// and renames it to name once write succeeds. On any error the temporary file
// is removed and name is left untouched.
func WriteFileAtomic(name string, write func(w io.Writer) error) (err error) {
	fp, err := os.CreateTemp(filepath.Dir(name), "."+filepath.Base(name)+".tmp*")
	if err != nil {
		return fmt.Errorf("%w: %w", isosurf.ErrFormat, err)
	}
	tmp := fp.Name()
	defer func() {
		if err != nil {
			fp.Close()
			os.Remove(tmp)
		}
	}()
	if err = write(fp); err != nil {
		return err
	}
	if err = fp.Sync(); err != nil {
		return fmt.Errorf("%w: %w", isosurf.ErrFormat, err)
	}
	if err = fp.Close(); err != nil {
		return fmt.Errorf("%w: %w", isosurf.ErrFormat, err)
	}
	if err = os.Rename(tmp, name); err != nil {
		return fmt.Errorf("%w: %w", isosurf.ErrFormat, err)
	}
	return nil
}

var errPLYHeader = errors.New("bad PLY header")

// ReadPLY parses an ASCII PLY mesh as written by [WritePLY]. Only triangular
// faces and the float vertex properties x y z nx ny nz are supported, in any
// order. Triangles are expanded so the returned mesh is unindexed.
func ReadPLY(r io.Reader) (*Mesh, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	line := 0
	next := func() ([]string, bool) {
		for sc.Scan() {
			line++
			fields := strings.Fields(sc.Text())
			if len(fields) > 0 && fields[0] != "comment" {
				return fields, true
			}
		}
		return nil, false
	}
	fail := func(format string, args ...any) error {
		return isosurf.Formatf("PLY line %d: %s", line, fmt.Sprintf(format, args...))
	}

	if f, ok := next(); !ok || len(f) != 1 || f[0] != "ply" {
		return nil, fail("%v: missing magic", errPLYHeader)
	}
	if f, ok := next(); !ok || len(f) != 3 || f[0] != "format" || f[1] != "ascii" {
		return nil, fail("%v: only ascii format supported", errPLYHeader)
	}
	var (
		nverts, nfaces int
		element        string
		props          []string
		hasFaceList    bool
	)
	for {
		f, ok := next()
		if !ok {
			return nil, fail("%v: missing end_header", errPLYHeader)
		}
		switch {
		case f[0] == "end_header":
		case f[0] == "element" && len(f) == 3:
			n, err := strconv.Atoi(f[2])
			if err != nil || n < 0 {
				return nil, fail("%v: bad element count %q", errPLYHeader, f[2])
			}
			element = f[1]
			switch element {
			case "vertex":
				nverts = n
			case "face":
				nfaces = n
			default:
				return nil, fail("%v: unsupported element %q", errPLYHeader, element)
			}
			continue
		case f[0] == "property" && element == "vertex" && len(f) == 3:
			if f[1] != "float" && f[1] != "float32" && f[1] != "double" {
				return nil, fail("%v: unsupported vertex property type %q", errPLYHeader, f[1])
			}
			props = append(props, f[2])
			continue
		case f[0] == "property" && element == "face" && len(f) == 5 && f[1] == "list":
			hasFaceList = true
			continue
		default:
			return nil, fail("%v: unexpected %q", errPLYHeader, strings.Join(f, " "))
		}
		break
	}
	idx := map[string]int{"x": -1, "y": -1, "z": -1, "nx": -1, "ny": -1, "nz": -1}
	for i, p := range props {
		if _, ok := idx[p]; ok {
			idx[p] = i
		}
	}
	if idx["x"] < 0 || idx["y"] < 0 || idx["z"] < 0 {
		return nil, fail("%v: missing vertex position properties", errPLYHeader)
	}
	hasNormals := idx["nx"] >= 0 && idx["ny"] >= 0 && idx["nz"] >= 0
	if nfaces > 0 && !hasFaceList {
		return nil, fail("%v: missing face vertex list", errPLYHeader)
	}

	pos := make([]float32, 0, 3*nverts)
	nrm := make([]float32, 0, 3*nverts)
	vals := make([]float32, len(props))
	for v := 0; v < nverts; v++ {
		f, ok := next()
		if !ok {
			return nil, fail("expected %d vertices, got %d", nverts, v)
		} else if len(f) != len(props) {
			return nil, fail("vertex has %d values, want %d", len(f), len(props))
		}
		for i, s := range f {
			x, err := strconv.ParseFloat(s, 32)
			if err != nil {
				return nil, fail("bad vertex value %q", s)
			}
			vals[i] = float32(x)
		}
		pos = append(pos, vals[idx["x"]], vals[idx["y"]], vals[idx["z"]])
		if hasNormals {
			nrm = append(nrm, vals[idx["nx"]], vals[idx["ny"]], vals[idx["nz"]])
		}
	}
	mesh := &Mesh{
		Vertices: make([]float32, 0, 9*nfaces),
	}
	if hasNormals {
		mesh.Normals = make([]float32, 0, 9*nfaces)
	}
	for k := 0; k < nfaces; k++ {
		f, ok := next()
		if !ok {
			return nil, fail("expected %d faces, got %d", nfaces, k)
		} else if len(f) != 4 || f[0] != "3" {
			return nil, fail("only triangular faces supported")
		}
		for _, s := range f[1:] {
			vi, err := strconv.Atoi(s)
			if err != nil || vi < 0 || vi >= nverts {
				return nil, fail("bad vertex index %q", s)
			}
			mesh.Vertices = append(mesh.Vertices, pos[3*vi:3*vi+3]...)
			if hasNormals {
				mesh.Normals = append(mesh.Normals, nrm[3*vi:3*vi+3]...)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading PLY: %w", isosurf.ErrFormat, err)
	}
	return mesh, nil
}

// ReadPLYFile opens and parses the named ASCII PLY file.
func ReadPLYFile(name string) (*Mesh, error) {
	fp, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	return ReadPLY(fp)
}
