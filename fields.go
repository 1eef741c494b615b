package isosurf

import "github.com/chewxy/math32"

// Hyperboloid is the field x² − y² − z² − z.
var Hyperboloid Field3 = Field3Func(func(x, y, z float32) float32 {
	return x*x - y*y - z*z - z
})

// SineWave is the field y − sin(x)·cos(z), a height-field surface at isovalue 0.
var SineWave Field3 = Field3Func(func(x, y, z float32) float32 {
	return y - math32.Sin(x)*math32.Cos(z)
})

// Paraboloid is the 2D field x² + y². Its isolines are circles of radius √iso.
var Paraboloid Field2 = Field2Func(func(x, y float32) float32 {
	return x*x + y*y
})

// SinXY is the 2D field sin(x·y).
var SinXY Field2 = Field2Func(func(x, y float32) float32 {
	return math32.Sin(x * y)
})

// SinCos is the 2D field sin(x)·cos(y).
var SinCos Field2 = Field2Func(func(x, y float32) float32 {
	return math32.Sin(x) * math32.Cos(y)
})

// Sphere returns the field x² + y² + z² − r² whose zero isosurface is the
// sphere of radius r centered at the origin. Negative values are inside.
func Sphere(r float32) Field3 {
	r2 := r * r
	return Field3Func(func(x, y, z float32) float32 {
		return x*x + y*y + z*z - r2
	})
}

// Circle returns the field x² + y² − r².
func Circle(r float32) Field2 {
	r2 := r * r
	return Field2Func(func(x, y float32) float32 {
		return x*x + y*y - r2
	})
}

// Translate3 returns f shifted so that its origin lies at (dx, dy, dz).
func Translate3(f Field3, dx, dy, dz float32) Field3 {
	return Field3Func(func(x, y, z float32) float32 {
		return f.Evaluate(x-dx, y-dy, z-dz)
	})
}

// Named3 and Named2 map the names accepted by command line tools to sample fields.
var (
	Named3 = map[string]Field3{
		"hyperboloid": Hyperboloid,
		"sinewave":    SineWave,
		"sphere":      Sphere(1),
	}
	Named2 = map[string]Field2{
		"paraboloid": Paraboloid,
		"sinxy":      SinXY,
		"sincos":     SinCos,
		"circle":     Circle(1),
	}
)
