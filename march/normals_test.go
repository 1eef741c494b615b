package march

import (
	"errors"
	"io"
	"slices"
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/isosurf"
)

func TestComputeNormalsUnitTriangle(t *testing.T) {
	verts := []float32{
		0, 0, 0,
		1, 0, 0,
		0, 1, 0,
	}
	normals, err := ComputeNormals(verts, DegenerateStrict)
	if err != nil {
		t.Fatal(err)
	}
	want := []float32{0, 0, 1, 0, 0, 1, 0, 0, 1}
	if !slices.Equal(normals, want) {
		t.Errorf("got %v, want %v", normals, want)
	}
}

func TestComputeNormalsDegenerate(t *testing.T) {
	verts := []float32{
		0, 0, 0, 1, 0, 0, 0, 1, 0,
		0, 0, 0, 1, 1, 1, 2, 2, 2, // Collinear.
		5, 5, 5, 5, 5, 5, 5, 5, 5, // Single point.
	}
	normals, err := ComputeNormals(verts, DegenerateZero)
	if err != nil {
		t.Fatal(err)
	}
	if len(normals) != len(verts) {
		t.Fatalf("got %d normals for %d vertices", len(normals), len(verts))
	}
	for i, v := range normals[9:] {
		if v != 0 {
			t.Errorf("degenerate normal component %d: got %v, want 0", i, v)
		}
	}
	_, err = ComputeNormals(verts, DegenerateStrict)
	if !errors.Is(err, isosurf.ErrDegenerate) {
		t.Errorf("expected ErrDegenerate, got %v", err)
	}
	_, err = ComputeNormals(verts[:8], DegenerateZero)
	if !errors.Is(err, isosurf.ErrFormat) {
		t.Errorf("expected ErrFormat, got %v", err)
	}
}

func TestAppendNormals(t *testing.T) {
	c, err := NewCubes(sphereConfig(1, 0.25))
	if err != nil {
		t.Fatal(err)
	}
	all, err := ComputeNormals(c.GenerateAll(), DegenerateZero)
	if err != nil {
		t.Fatal(err)
	}
	var normals []float32
	st := c.Start()
	for !st.IsFinished() {
		c.Generate(&st)
		normals, err = AppendNormals(normals, st.Vertices, DegenerateZero)
		if err != nil {
			t.Fatal(err)
		}
		if len(normals) != len(st.Vertices) {
			t.Fatalf("plane %d: %d normals for %d vertices", st.Plane, len(normals), len(st.Vertices))
		}
	}
	if !slices.Equal(normals, all) {
		t.Error("incremental normals differ from whole-buffer normals")
	}
	_, err = AppendNormals(make([]float32, 18), st.Vertices[:9], DegenerateZero)
	if !errors.Is(err, isosurf.ErrFormat) {
		t.Errorf("expected ErrFormat for longer normal buffer, got %v", err)
	}
}

func TestNormalsOrientation(t *testing.T) {
	c, err := NewCubes(sphereConfig(1, 0.2))
	if err != nil {
		t.Fatal(err)
	}
	verts := c.GenerateAll()
	normals, err := ComputeNormals(verts, DegenerateStrict)
	if err != nil {
		t.Fatal(err)
	}
	inward := 0
	ntri := len(verts) / 9
	for i := 0; i < len(verts); i += 9 {
		centroid := ms3.Scale(1./3, ms3.Add(ms3.Add(
			ms3.Vec{X: verts[i], Y: verts[i+1], Z: verts[i+2]},
			ms3.Vec{X: verts[i+3], Y: verts[i+4], Z: verts[i+5]}),
			ms3.Vec{X: verts[i+6], Y: verts[i+7], Z: verts[i+8]}),
		)
		n := ms3.Vec{X: normals[i], Y: normals[i+1], Z: normals[i+2]}
		if math32.Abs(ms3.Norm(n)-1) > 1e-5 {
			t.Fatalf("triangle %d: normal %v not unit length", i/9, n)
		}
		if ms3.Dot(n, centroid) < 0 {
			inward++
		}
	}
	// Normals point toward the below-isovalue side, the sphere interior.
	if inward != ntri {
		t.Errorf("%d of %d triangle normals point inward", inward, ntri)
	}
}

func TestTriangleReader(t *testing.T) {
	cfg := sphereConfig(1, 0.25)
	c, _ := NewCubes(cfg)
	want, err := triangles(c.GenerateAll())
	if err != nil {
		t.Fatal(err)
	}
	tr, err := NewTriangleReader(cfg)
	if err != nil {
		t.Fatal(err)
	}
	got, err := RenderAll(tr, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, want) {
		t.Errorf("RenderAll got %d triangles, want %d", len(got), len(want))
	}

	// Tiny buffers exercise partial reads within a plane.
	tr, _ = NewTriangleReader(cfg)
	var buf [1]ms3.Triangle
	got = got[:0]
	for {
		n, err := tr.ReadTriangles(buf[:], nil)
		got = append(got, buf[:n]...)
		if err == io.EOF {
			break
		} else if err != nil {
			t.Fatal(err)
		}
	}
	if !slices.Equal(got, want) {
		t.Errorf("single triangle reads got %d triangles, want %d", len(got), len(want))
	}
	if n, err := tr.ReadTriangles(buf[:], nil); n != 0 || err != io.EOF {
		t.Errorf("read after EOF: got %d, %v", n, err)
	}
	if _, err := tr.ReadTriangles(nil, nil); err != io.ErrShortBuffer {
		t.Errorf("expected io.ErrShortBuffer, got %v", err)
	}
}

func triangles(verts []float32) ([]ms3.Triangle, error) {
	if len(verts)%9 != 0 {
		return nil, isosurf.Formatf("bad length %d", len(verts))
	}
	var tris []ms3.Triangle
	for i := 0; i < len(verts); i += 9 {
		v := verts[i : i+9]
		tris = append(tris, ms3.Triangle{
			{X: v[0], Y: v[1], Z: v[2]},
			{X: v[3], Y: v[4], Z: v[5]},
			{X: v[6], Y: v[7], Z: v[8]},
		})
	}
	return tris, nil
}
