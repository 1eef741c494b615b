package isoaux

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/isosurf"
	"github.com/soypat/isosurf/march"
	"github.com/soypat/isosurf/meshio"
)

func TestRender(t *testing.T) {
	dir := t.TempDir()
	var ply, stl bytes.Buffer
	cfg := RenderConfig{
		Iso:       0,
		Bounds:    ms3.Box{Min: ms3.Vec{X: -1.5, Y: -1.5, Z: -1.5}, Max: ms3.Vec{X: 1.5, Y: 1.5, Z: 1.5}},
		Step:      ms3.Vec{X: .25, Y: .25, Z: .25},
		PLYFile:   filepath.Join(dir, "sphere.ply"),
		STLFile:   filepath.Join(dir, "sphere.stl"),
		PLYOutput: &ply,
		STLOutput: &stl,
	}
	result, err := Render(isosurf.Sphere(1), cfg)
	if err != nil {
		t.Fatal(err)
	}
	faces := result.Mesh.Faces()
	if faces == 0 {
		t.Fatal("expected triangles for sphere")
	}
	if result.Evaluations == 0 || result.Planes == 0 {
		t.Errorf("missing statistics: %+v", result)
	}
	got, err := meshio.ReadPLY(&ply)
	if err != nil {
		t.Fatal(err)
	}
	if got.Faces() != faces {
		t.Errorf("PLY output has %d faces, want %d", got.Faces(), faces)
	}
	fromFile, err := meshio.ReadPLYFile(cfg.PLYFile)
	if err != nil {
		t.Fatal(err)
	}
	if fromFile.Faces() != faces {
		t.Errorf("PLY file has %d faces, want %d", fromFile.Faces(), faces)
	}
	model, err := meshio.ReadBinarySTL(&stl)
	if err != nil {
		t.Fatal(err)
	}
	if len(model) != faces {
		t.Errorf("STL output has %d triangles, want %d", len(model), faces)
	}
	stlFile, err := os.ReadFile(cfg.STLFile)
	if err != nil {
		t.Fatal(err)
	}
	model, err = meshio.ReadBinarySTL(bytes.NewReader(stlFile))
	if err != nil {
		t.Fatal(err)
	}
	if len(model) != faces {
		t.Errorf("STL file has %d triangles, want %d", len(model), faces)
	}
}

func TestRenderCachingAndSmooth(t *testing.T) {
	base := RenderConfig{
		Bounds:    ms3.Box{Min: ms3.Vec{X: -1.5, Y: -1.5, Z: -1.5}, Max: ms3.Vec{X: 1.5, Y: 1.5, Z: 1.5}},
		Step:      ms3.Vec{X: .25, Y: .25, Z: .25},
		Vertex:    march.VertexLinear,
		PLYOutput: new(bytes.Buffer),
	}
	plain, err := Render(isosurf.Sphere(1), base)
	if err != nil {
		t.Fatal(err)
	}
	cached := base
	cached.EnableCaching = true
	cached.SmoothNormals = true
	cached.PLYOutput = new(bytes.Buffer)
	withCache, err := Render(isosurf.Sphere(1), cached)
	if err != nil {
		t.Fatal(err)
	}
	if withCache.Mesh.Faces() != plain.Mesh.Faces() {
		t.Errorf("caching changed the mesh: %d vs %d faces", withCache.Mesh.Faces(), plain.Mesh.Faces())
	}
	if withCache.Evaluations >= plain.Evaluations {
		t.Errorf("caching did not reduce evaluations: %d >= %d", withCache.Evaluations, plain.Evaluations)
	}
	for i := 0; i < len(withCache.Mesh.Vertices); i++ {
		if withCache.Mesh.Vertices[i] != plain.Mesh.Vertices[i] {
			t.Fatalf("vertex component %d differs with caching", i)
		}
	}
	if len(withCache.Mesh.Normals) != len(withCache.Mesh.Vertices) {
		t.Errorf("smooth normals length %d, want %d", len(withCache.Mesh.Normals), len(withCache.Mesh.Vertices))
	}
}

func TestRenderErrors(t *testing.T) {
	_, err := Render(isosurf.Sphere(1), RenderConfig{
		Bounds: ms3.Box{Max: ms3.Vec{X: 1, Y: 1, Z: 1}},
		Step:   ms3.Vec{X: .5, Y: .5, Z: .5},
	})
	if !errors.Is(err, isosurf.ErrConfig) {
		t.Errorf("missing output: want ErrConfig, got %v", err)
	}
	_, err = Render(isosurf.Sphere(1), RenderConfig{
		Bounds:    ms3.Box{Max: ms3.Vec{X: 1, Y: 1, Z: 1}},
		Step:      ms3.Vec{X: 0, Y: .5, Z: .5},
		PLYOutput: new(bytes.Buffer),
	})
	if !errors.Is(err, isosurf.ErrConfig) {
		t.Errorf("zero step: want ErrConfig, got %v", err)
	}
	_, err = Render(nil, RenderConfig{PLYOutput: new(bytes.Buffer)})
	if !errors.Is(err, isosurf.ErrConfig) {
		t.Errorf("nil field: want ErrConfig, got %v", err)
	}
	dir := t.TempDir()
	_, err = Render(isosurf.Sphere(1), RenderConfig{
		Bounds:  ms3.Box{Max: ms3.Vec{X: 1, Y: 1, Z: 1}},
		Step:    ms3.Vec{X: .5, Y: .5, Z: 0},
		PLYFile: filepath.Join(dir, "bad.ply"),
		STLFile: filepath.Join(dir, "bad.stl"),
	})
	if !errors.Is(err, isosurf.ErrConfig) {
		t.Errorf("zero step with files: want ErrConfig, got %v", err)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Errorf("failed render left %d files behind", len(entries))
	}
}

func TestPlotContours(t *testing.T) {
	bounds := ms2.Box{Min: ms2.Vec{X: -2, Y: -1}, Max: ms2.Vec{X: 2, Y: 1}}
	step := ms2.Vec{X: .25, Y: .25}
	segs, err := march.MarchSquares(march.SquaresConfig{
		Field:  isosurf.Circle(.8),
		Bounds: bounds,
		Step:   step,
		Vertex: march.VertexLinear,
	})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	err = PlotContours(&buf, isosurf.Circle(.8), segs, PlotConfig{
		Bounds:  bounds,
		Step:    step,
		Height:  100,
		HeatMap: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 200 || img.Bounds().Dy() != 100 {
		t.Errorf("want 200x100 image, got %v", img.Bounds())
	}

	err = PlotContours(new(bytes.Buffer), nil, segs[:3], PlotConfig{Bounds: bounds, Height: 10})
	if !errors.Is(err, isosurf.ErrFormat) {
		t.Errorf("odd segment buffer: want ErrFormat, got %v", err)
	}
	err = PlotContours(new(bytes.Buffer), nil, segs, PlotConfig{Bounds: bounds, Height: 10, HeatMap: true})
	if !errors.Is(err, isosurf.ErrConfig) {
		t.Errorf("heat map without field: want ErrConfig, got %v", err)
	}
	err = PlotContours(new(bytes.Buffer), nil, segs, PlotConfig{Bounds: bounds})
	if !errors.Is(err, isosurf.ErrConfig) {
		t.Errorf("zero height: want ErrConfig, got %v", err)
	}
	wide := PlotConfig{
		Bounds: ms2.Box{Max: ms2.Vec{X: 1e4, Y: 1e-2}},
		Height: 800,
	}
	if err := wide.Validate(); !errors.Is(err, isosurf.ErrConfig) {
		t.Errorf("oversized width: want ErrConfig, got %v", err)
	}
	err = PlotContours(new(bytes.Buffer), nil, nil, wide)
	if !errors.Is(err, isosurf.ErrConfig) {
		t.Errorf("oversized width: want ErrConfig, got %v", err)
	}
	if err := (PlotConfig{Bounds: bounds, Height: 1 << 20}).Validate(); !errors.Is(err, isosurf.ErrConfig) {
		t.Errorf("oversized height: want ErrConfig, got %v", err)
	}
}

func TestPlotContoursFile(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "plot.png")
	bounds := ms2.Box{Min: ms2.Vec{X: -1, Y: -1}, Max: ms2.Vec{X: 1, Y: 1}}
	err := PlotContoursFile(name, nil, nil, PlotConfig{Bounds: bounds})
	if !errors.Is(err, isosurf.ErrConfig) {
		t.Errorf("zero height: want ErrConfig, got %v", err)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Fatalf("failed plot left %d files behind", len(entries))
	}
	err = PlotContoursFile(name, nil, []float32{-1, 0, 1, 0}, PlotConfig{Bounds: bounds, Height: 32})
	if err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(name)
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 32 || img.Bounds().Dy() != 32 {
		t.Errorf("want 32x32 image, got %v", img.Bounds())
	}
}

func TestFieldImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	bounds := ms2.Box{Min: ms2.Vec{X: -2, Y: -1}, Max: ms2.Vec{X: 2, Y: 1}}
	// Negative for x < 0.
	f := isosurf.Field2Func(func(x, y float32) float32 { return x })
	err := FieldImage(img, f, 0, bounds, nil)
	if err != nil {
		t.Fatal(err)
	}
	for j := 0; j < 2; j++ {
		for i := 0; i < 4; i++ {
			want := color.RGBAModel.Convert(color.White)
			if i < 2 {
				want = color.RGBAModel.Convert(color.Black)
			}
			if got := img.At(i, j); got != want {
				t.Errorf("pixel (%d,%d): got %v, want %v", i, j, got, want)
			}
		}
	}
	// Top row maps to Max.Y.
	f = isosurf.Field2Func(func(x, y float32) float32 { return -y })
	err = FieldImage(img, f, 0, bounds, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := img.At(0, 0); got != color.RGBAModel.Convert(color.Black) {
		t.Errorf("top row should be above y=0 and black, got %v", got)
	}
	if err := FieldImage(img, nil, 0, bounds, nil); !errors.Is(err, isosurf.ErrConfig) {
		t.Errorf("nil field: want ErrConfig, got %v", err)
	}
}

func TestColorGradient(t *testing.T) {
	conv := ColorConversionLinearGradient(10, color.White, red)
	if got := conv(-100); got != color.White {
		t.Errorf("far below isovalue want c0, got %v", got)
	}
	if got := conv(100); got != red {
		t.Errorf("far above isovalue want c1, got %v", got)
	}
	var nan float32
	nan = nan / nan
	if got := conv(nan); got != red {
		t.Errorf("NaN want red, got %v", got)
	}
	mid := conv(0).(color.RGBA)
	if mid.A != 255 || mid.R != 255 {
		t.Errorf("unexpected mid gradient color %v", mid)
	}
	iq := ColorConversionInigoQuilez(1)
	if got := iq(0).(color.RGBA); got != (color.RGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("isoline should be white, got %v", got)
	}
}

func TestUIConfigErrors(t *testing.T) {
	err := UI(isosurf.Sphere(1), UIConfig{Width: 0, Height: 10})
	if !errors.Is(err, isosurf.ErrConfig) {
		t.Errorf("want ErrConfig, got %v", err)
	}
	err = UI(isosurf.Sphere(1), UIConfig{Width: 10, Height: 10, Step: ms3.Vec{X: -1, Y: 1, Z: 1}, Bounds: ms3.Box{Max: ms3.Vec{X: 1, Y: 1, Z: 1}}})
	if !errors.Is(err, isosurf.ErrConfig) {
		t.Errorf("want ErrConfig, got %v", err)
	}
}
