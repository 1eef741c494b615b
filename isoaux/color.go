package isoaux

import (
	"image/color"

	math "github.com/chewxy/math32"
	"github.com/soypat/glgl/math/ms1"
	"github.com/soypat/glgl/math/ms3"
)

var red = color.RGBA{R: 255, A: 255}

var (
	aboveIso = ms3.Vec{X: 0.9, Y: 0.6, Z: 0.3}
	belowIso = ms3.Vec{X: 0.65, Y: 0.85, Z: 1.0}
)

// ColorConversionInigoQuilez returns a heat map coloring in the style of
// [Inigo Quilez]'s distance field plots. Its argument is the difference between
// the field value and the isovalue; the isoline is drawn white and periodic
// bands mark level sets spaced by characteristicDistance/25. Returns red for
// non-finite values.
//
// [Inigo Quilez]: https://iquilezles.org/articles/distfunctions2d/
func ColorConversionInigoQuilez(characteristicDistance float32) func(float32) color.Color {
	inv := 1 / characteristicDistance
	white := ms3.Vec{X: 1, Y: 1, Z: 1}
	return func(d float32) color.Color {
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return red
		}
		d *= inv
		base := belowIso
		if d > 0 {
			base = aboveIso
		}
		ad := math.Abs(d)
		shade := (1 - math.Exp(-6*ad)) * (0.8 + 0.2*math.Cos(150*d))
		c := ms3.Scale(shade, base)
		edge := 1 - ms1.SmoothStep(0, 0.01, ad)
		return vecRGBA(ms3.InterpElem(c, white, ms3.Vec{X: edge, Y: edge, Z: edge}))
	}
}

// ColorConversionLinearGradient returns a coloring that blends from c0 to c1
// across a band of width gradientLength centered on the isovalue. Blending is
// done in HSV space along the shortest hue path.
func ColorConversionLinearGradient(gradientLength float32, c0, c1 color.Color) func(d float32) color.Color {
	from, to := toHSV(c0), toHSV(c1)
	return func(d float32) color.Color {
		if math.IsNaN(d) {
			return red
		}
		t := d/gradientLength + 0.5
		switch {
		case t <= 0:
			return c0
		case t >= 1:
			return c1
		}
		return from.lerp(to, t).rgba()
	}
}

// ColorConversionThreshold paints values below the isovalue black and the
// rest white. Non-finite values are red.
func ColorConversionThreshold(d float32) color.Color {
	switch {
	case math.IsNaN(d) || math.IsInf(d, 0):
		return red
	case d < 0:
		return color.Black
	}
	return color.White
}

func vecRGBA(c ms3.Vec) color.RGBA {
	return color.RGBA{
		R: uint8(ms1.Clamp(c.X, 0, 1) * math.MaxUint8),
		G: uint8(ms1.Clamp(c.Y, 0, 1) * math.MaxUint8),
		B: uint8(ms1.Clamp(c.Z, 0, 1) * math.MaxUint8),
		A: 255,
	}
}

// hsv is a color as hue, saturation and value, each in [0,1].
type hsv struct{ h, s, v float32 }

func toHSV(c color.Color) hsv {
	r, g, b, _ := c.RGBA()
	const maxc = 0xffff
	return rgbToHSV(ms3.Vec{X: float32(r) / maxc, Y: float32(g) / maxc, Z: float32(b) / maxc})
}

func (c hsv) lerp(to hsv, t float32) hsv {
	h0, h1 := c.h, to.h
	switch {
	case h1-h0 > 0.5:
		h0++
	case h1-h0 < -0.5:
		h1++
	}
	h := ms1.Interp(h0, h1, t)
	if h > 1 {
		h--
	}
	return hsv{
		h: h,
		s: ms1.Interp(c.s, to.s, t),
		v: ms1.Interp(c.v, to.v, t),
	}
}

func (c hsv) rgba() color.RGBA {
	chroma := c.s * c.v
	sector := c.h * 6
	x := chroma * (1 - math.Abs(math.Mod(sector, 2)-1))
	var rgb ms3.Vec
	switch {
	case sector <= 1:
		rgb = ms3.Vec{X: chroma, Y: x}
	case sector <= 2:
		rgb = ms3.Vec{X: x, Y: chroma}
	case sector <= 3:
		rgb = ms3.Vec{Y: chroma, Z: x}
	case sector <= 4:
		rgb = ms3.Vec{Y: x, Z: chroma}
	case sector <= 5:
		rgb = ms3.Vec{X: x, Z: chroma}
	default:
		rgb = ms3.Vec{X: chroma, Z: x}
	}
	m := c.v - chroma
	return vecRGBA(ms3.Add(rgb, ms3.Vec{X: m, Y: m, Z: m}))
}

func rgbToHSV(c ms3.Vec) hsv {
	hi := max(c.X, c.Y, c.Z)
	chroma := hi - min(c.X, c.Y, c.Z)
	var h float32
	switch {
	case chroma == 0:
	case hi == c.X:
		h = (c.Y - c.Z) / (6 * chroma)
	case hi == c.Y:
		h = 1./3 + (c.Z-c.X)/(6*chroma)
	default:
		h = 2./3 + (c.X-c.Y)/(6*chroma)
	}
	if h < 0 {
		h++
	}
	var s float32
	if hi > 0 {
		s = chroma / hi
	}
	return hsv{h: h, s: s, v: hi}
}
