package isoaux

import (
	"image"
	"image/color"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/isosurf"
)

type setImage = interface {
	image.Image
	Set(x, y int, c color.Color)
}

// FieldImage samples f at the center of every pixel of img over bounds and
// sets the pixel to conv(f-iso). The top row of the image maps to
// bounds.Max.Y. A nil conv selects [ColorConversionThreshold].
func FieldImage(img setImage, f isosurf.Field2, iso float32, bounds ms2.Box, conv func(float32) color.Color) error {
	if f == nil {
		return isosurf.Configf("nil field")
	}
	if err := isosurf.CheckRange("x", bounds.Min.X, bounds.Max.X); err != nil {
		return err
	}
	if err := isosurf.CheckRange("y", bounds.Min.Y, bounds.Max.Y); err != nil {
		return err
	}
	imgBB := img.Bounds()
	if imgBB.Empty() {
		return isosurf.Configf("empty image")
	}
	if conv == nil {
		conv = ColorConversionThreshold
	}
	sz := bounds.Size()
	dx := sz.X / float32(imgBB.Dx())
	dy := sz.Y / float32(imgBB.Dy())
	for j := 0; j < imgBB.Dy(); j++ {
		y := bounds.Max.Y - (float32(j)+0.5)*dy
		for i := 0; i < imgBB.Dx(); i++ {
			x := bounds.Min.X + (float32(i)+0.5)*dx
			img.Set(imgBB.Min.X+i, imgBB.Min.Y+j, conv(f.Evaluate(x, y)-iso))
		}
	}
	return nil
}

// pixelMapper converts field coordinates to image coordinates.
type pixelMapper struct {
	min    ms2.Vec
	maxY   float32
	scaleX float32
	scaleY float32
}

func newPixelMapper(bounds ms2.Box, width, height int) pixelMapper {
	sz := bounds.Size()
	return pixelMapper{
		min:    bounds.Min,
		maxY:   bounds.Max.Y,
		scaleX: float32(width) / sz.X,
		scaleY: float32(height) / sz.Y,
	}
}

func (pm pixelMapper) pixel(x, y float32) (px, py float64) {
	return float64((x - pm.min.X) * pm.scaleX), float64((pm.maxY - y) * pm.scaleY)
}
