package isosurf_test

import (
	"errors"
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/isosurf"
)

func TestSampleFields(t *testing.T) {
	const tol = 1e-6
	var tests = []struct {
		name string
		got  float32
		want float32
	}{
		{"hyperboloid", isosurf.Hyperboloid.Evaluate(1, 1, 1), 1 - 1 - 1 - 1},
		{"sinewave at origin", isosurf.SineWave.Evaluate(0, 0.5, 0), 0.5},
		{"sinewave peak", isosurf.SineWave.Evaluate(math32.Pi/2, 1, 0), 0},
		{"paraboloid", isosurf.Paraboloid.Evaluate(3, 4), 25},
		{"sinxy", isosurf.SinXY.Evaluate(0, 7), 0},
		{"sincos", isosurf.SinCos.Evaluate(math32.Pi/2, 0), 1},
		{"sphere surface", isosurf.Sphere(2).Evaluate(0, 2, 0), 0},
		{"sphere center", isosurf.Sphere(2).Evaluate(0, 0, 0), -4},
		{"circle", isosurf.Circle(1).Evaluate(1, 1), 1},
		{"translated sphere", isosurf.Translate3(isosurf.Sphere(1), 5, 0, 0).Evaluate(5, 1, 0), 0},
	}
	for _, test := range tests {
		if math32.Abs(test.got-test.want) > tol {
			t.Errorf("%s: got %v, want %v", test.name, test.got, test.want)
		}
	}
}

func TestNamedFields(t *testing.T) {
	for name, f := range isosurf.Named3 {
		if f == nil {
			t.Errorf("nil 3D field %q", name)
		}
	}
	for name, f := range isosurf.Named2 {
		if f == nil {
			t.Errorf("nil 2D field %q", name)
		}
	}
}

func TestChecks(t *testing.T) {
	var bad = []error{
		isosurf.CheckStep("x", 0),
		isosurf.CheckStep("x", -1),
		isosurf.CheckStep("x", math32.NaN()),
		isosurf.CheckStep("x", math32.Inf(1)),
		isosurf.CheckRange("y", 1, 1),
		isosurf.CheckRange("y", 2, 1),
		isosurf.CheckRange("y", math32.Inf(-1), 1),
	}
	for i, err := range bad {
		if !errors.Is(err, isosurf.ErrConfig) {
			t.Errorf("check %d: expected ErrConfig, got %v", i, err)
		}
	}
	if err := isosurf.CheckStep("x", 0.1); err != nil {
		t.Error(err)
	}
	if err := isosurf.CheckRange("x", -1, 1); err != nil {
		t.Error(err)
	}
	err := isosurf.Formatf("bad %d", 3)
	if !errors.Is(err, isosurf.ErrFormat) || err.Error() != "format error: bad 3" {
		t.Errorf("unexpected format error %q", err)
	}
}
