package fieldeval_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/isosurf"
	"github.com/soypat/isosurf/fieldeval"
	"github.com/soypat/isosurf/march"
)

func TestParseField3(t *testing.T) {
	const tol = 1e-5
	var tests = []struct {
		expr  string
		x, y  float32
		z     float32
		field isosurf.Field3
	}{
		{"x*x - y*y - z*z - z", 1, 2, 3, isosurf.Hyperboloid},
		{"y - sin(x)*cos(z)", 0.7, -0.2, 1.3, isosurf.SineWave},
		{"x*x + y*y + z*z - 1", 0.5, 0.5, 0.5, isosurf.Sphere(1)},
		{"pow(x, 2) + pow(y, 2) + pow(z, 2) - 4", 1, 1, 1, isosurf.Sphere(2)},
		{"sqrt(x*x + y*y) - max(abs(z), 0.5)", 3, 4, -1, isosurf.Field3Func(func(x, y, z float32) float32 {
			return math32.Hypot(x, y) - math32.Max(math32.Abs(z), 0.5)
		})},
		{"sin(pi*x) + min(y, z)", 0.5, 2, -1, isosurf.Field3Func(func(x, y, z float32) float32 {
			return math32.Sin(math32.Pi*x) + math32.Min(y, z)
		})},
	}
	for _, test := range tests {
		f, err := fieldeval.ParseField3(test.expr)
		if err != nil {
			t.Errorf("%q: %s", test.expr, err)
			continue
		}
		got := f.Evaluate(test.x, test.y, test.z)
		want := test.field.Evaluate(test.x, test.y, test.z)
		if math32.Abs(got-want) > tol {
			t.Errorf("%q at (%v,%v,%v): got %v, want %v", test.expr, test.x, test.y, test.z, got, want)
		}
		if f.String() != test.expr {
			t.Errorf("String() = %q", f.String())
		}
	}
}

func TestParseFieldErrors(t *testing.T) {
	for _, expr := range []string{"", "   ", "x + w", "x + (", "sin(x, y, z) + q"} {
		_, err := fieldeval.ParseField3(expr)
		if !errors.Is(err, isosurf.ErrConfig) {
			t.Errorf("%q: expected ErrConfig, got %v", expr, err)
		}
	}
	_, err := fieldeval.ParseField2("x + z")
	if !errors.Is(err, isosurf.ErrConfig) {
		t.Errorf("2D field with z: expected ErrConfig, got %v", err)
	}
}

func TestExprRuntimeFailure(t *testing.T) {
	// Wrong argument count is only detected during evaluation.
	f, err := fieldeval.ParseField2("sin(x, y)")
	if err != nil {
		t.Fatal(err)
	}
	if v := f.Evaluate(1, 2); !math32.IsNaN(v) {
		t.Errorf("expected NaN on evaluation failure, got %v", v)
	}
}

func TestExprMatchesSampleField(t *testing.T) {
	f, err := fieldeval.ParseField2("sin(x*y)")
	if err != nil {
		t.Fatal(err)
	}
	got, err := march.MarchRegion(f, 0.5, -5, 5, -5, 5, 0.5, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := march.MarchRegion(isosurf.SinXY, 0.5, -5, 5, -5, 5, 0.5, 0.5)
	if len(got) != len(want) {
		t.Errorf("expression field produced %d values, sample field %d", len(got), len(want))
	}
}

func TestCounters(t *testing.T) {
	c3 := &fieldeval.Counter3{F: isosurf.Sphere(1)}
	g, err := march.NewCubes(march.CubesConfig{
		Field:  c3,
		Bounds: ms3.Box{Min: ms3.Vec{X: -1, Y: -1, Z: -1}, Max: ms3.Vec{X: 1, Y: 1, Z: 1}},
		Step:   ms3.Vec{X: 0.5, Y: 0.5, Z: 0.5},
	})
	if err != nil {
		t.Fatal(err)
	}
	g.GenerateAll()
	// 5 planes (z=-1 through z=1) of two 5x5 lattice layers.
	if want := uint64(5 * 2 * 25); c3.Evaluations() != want {
		t.Errorf("got %d evaluations, want %d", c3.Evaluations(), want)
	}
	c3.Reset()
	if c3.Evaluations() != 0 {
		t.Error("reset did not zero count")
	}
	c2 := &fieldeval.Counter2{F: isosurf.Paraboloid}
	march.MarchRegion(c2, 1, 0, 1, 0, 1, 1, 1)
	if c2.Evaluations() != 4 {
		t.Errorf("single cell: got %d evaluations, want 4", c2.Evaluations())
	}
}

func TestLatticeCached3(t *testing.T) {
	var counter = fieldeval.Counter3{F: isosurf.SineWave}
	step := ms3.Vec{X: 0.25, Y: 0.25, Z: 0.25}
	bounds := ms3.Box{Min: ms3.Vec{X: -2, Y: -1, Z: -2}, Max: ms3.Vec{X: 2, Y: 1, Z: 2}}
	var cache fieldeval.LatticeCached3
	if err := cache.Reset(&counter, bounds.Min, step); err != nil {
		t.Fatal(err)
	}
	c, err := march.NewCubes(march.CubesConfig{Field: &cache, Bounds: bounds, Step: step})
	if err != nil {
		t.Fatal(err)
	}
	st := c.Start()
	for !st.IsFinished() {
		c.Generate(&st)
		cache.Forget(st.Z)
	}
	want, _ := march.NewCubes(march.CubesConfig{Field: isosurf.SineWave, Bounds: bounds, Step: step})
	if !slices.Equal(st.Vertices, want.GenerateAll()) {
		t.Error("cached field changed generated geometry")
	}
	nx, ny := c.Cells()
	layer := uint64((nx + 1) * (ny + 1))
	if cache.Evaluations() != 2*layer*uint64(st.Plane) {
		t.Errorf("unexpected evaluation count %d", cache.Evaluations())
	}
	// Only the first plane's lower layer is not shared.
	if counter.Evaluations() != layer*uint64(st.Plane+1) {
		t.Errorf("field evaluated %d times, want %d", counter.Evaluations(), layer*uint64(st.Plane+1))
	}
	if cache.CacheHits()+counter.Evaluations() != cache.Evaluations() {
		t.Error("hits and misses do not add up")
	}
	if cache.Len() > 2*int(layer) {
		t.Errorf("cache holds %d values after forgetting old layers", cache.Len())
	}
	if err := cache.Reset(nil, ms3.Vec{}, step); !errors.Is(err, isosurf.ErrConfig) {
		t.Errorf("expected ErrConfig, got %v", err)
	}
}

func TestGradientNormals(t *testing.T) {
	const tol = 1e-3
	verts := []float32{
		1, 0, 0,
		0, -1, 0,
		0.6, 0, 0.8,
	}
	normals, err := fieldeval.GradientNormals(isosurf.Sphere(1), verts, 1e-2)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < len(verts); i++ {
		// Sphere normals toward decreasing field point to the center.
		if math32.Abs(normals[i]+verts[i]) > tol {
			t.Errorf("component %d: got %v, want %v", i, normals[i], -verts[i])
		}
	}
	// Flat and gradient normals agree in orientation.
	c, _ := march.NewCubes(march.CubesConfig{
		Field:  isosurf.Sphere(1),
		Bounds: ms3.Box{Min: ms3.Vec{X: -1.5, Y: -1.5, Z: -1.5}, Max: ms3.Vec{X: 1.5, Y: 1.5, Z: 1.5}},
		Step:   ms3.Vec{X: 0.25, Y: 0.25, Z: 0.25},
	})
	mesh := c.GenerateAll()
	flat, err := march.ComputeNormals(mesh, march.DegenerateZero)
	if err != nil {
		t.Fatal(err)
	}
	smooth, err := fieldeval.GradientNormals(isosurf.Sphere(1), mesh, 0.25)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < len(mesh); i += 3 {
		if flat[i]*smooth[i]+flat[i+1]*smooth[i+1]+flat[i+2]*smooth[i+2] <= 0 {
			t.Fatalf("vertex %d: flat and smooth normals disagree", i/3)
		}
	}
	if _, err := fieldeval.GradientNormals(isosurf.Sphere(1), verts[:4], 0.1); !errors.Is(err, isosurf.ErrFormat) {
		t.Errorf("expected ErrFormat, got %v", err)
	}
	if _, err := fieldeval.GradientNormals(isosurf.Sphere(1), verts, 0); !errors.Is(err, isosurf.ErrConfig) {
		t.Errorf("expected ErrConfig, got %v", err)
	}
}
