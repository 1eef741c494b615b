package isoaux

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"

	"github.com/gogpu/gg"
	"github.com/golang/freetype/truetype"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/isosurf"
	"github.com/soypat/isosurf/meshio"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

// PlotConfig configures [PlotContours].
type PlotConfig struct {
	// Bounds is the plotted region, usually the walked region.
	Bounds ms2.Box
	Iso    float32
	// Step draws the cell grid when both components are positive.
	Step ms2.Vec
	// Height of the image in pixels. Width is chosen to preserve the aspect
	// ratio of Bounds.
	Height int
	// LineWidth of contour segments in pixels. Zero selects 2.
	LineWidth float64
	// HeatMap paints the field behind the contours.
	HeatMap bool
	// ColorConversion maps field values relative to Iso to colors. A nil value
	// chooses [ColorConversionInigoQuilez].
	ColorConversion func(float32) color.Color
	// Caption is drawn in the top left corner. Empty selects a caption with
	// the isovalue and step.
	Caption string
	Logger  *slog.Logger
}

const (
	maxGridLines = 512
	// Largest plot width or height in pixels.
	maxPlotSide = 1 << 14
)

// Validate checks the plot dimensions without drawing anything.
func (cfg PlotConfig) Validate() error {
	_, err := cfg.size()
	return err
}

// size returns the image width for cfg.Height pixels of height.
func (cfg PlotConfig) size() (width int, err error) {
	if cfg.Height <= 0 || cfg.Height > maxPlotSide {
		return 0, isosurf.Configf("invalid plot height %d", cfg.Height)
	}
	if err := isosurf.CheckRange("x", cfg.Bounds.Min.X, cfg.Bounds.Max.X); err != nil {
		return 0, err
	}
	if err := isosurf.CheckRange("y", cfg.Bounds.Min.Y, cfg.Bounds.Max.Y); err != nil {
		return 0, err
	}
	sz := cfg.Bounds.Size()
	w := float64(cfg.Height) * float64(sz.X) / float64(sz.Y)
	if !(w <= maxPlotSide) {
		return 0, isosurf.Configf("plot width %g exceeds %d pixels for bounds %v and height %d", w, maxPlotSide, sz, cfg.Height)
	}
	return max(1, int(w)), nil
}

// PlotContours draws the line segments segs (x0 y0 x1 y1 quadruples as produced
// by the march package) over an optional heat map of f and encodes the
// result as PNG to w. f may be nil when HeatMap is false.
func PlotContours(w io.Writer, f isosurf.Field2, segs []float32, cfg PlotConfig) error {
	if len(segs)%4 != 0 {
		return isosurf.Formatf("segment buffer length %d not a multiple of 4", len(segs))
	} else if cfg.HeatMap && f == nil {
		return isosurf.Configf("heat map requires a field")
	}
	width, err := cfg.size()
	if err != nil {
		return err
	}
	log := logger(cfg.Logger)
	watch := stopwatch()
	sz := cfg.Bounds.Size()
	height := cfg.Height

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	if cfg.HeatMap {
		conv := cfg.ColorConversion
		if conv == nil {
			conv = ColorConversionInigoQuilez(fieldScale(f, cfg.Iso, cfg.Bounds))
		}
		if err := FieldImage(img, f, cfg.Iso, cfg.Bounds, conv); err != nil {
			return err
		}
	} else {
		draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	}
	log.Debug("painted background", slog.Bool("heatmap", cfg.HeatMap), slog.Duration("elapsed", watch()))

	dc := gg.NewContextForImage(img)
	defer dc.Close()
	pm := newPixelMapper(cfg.Bounds, width, height)
	if cfg.Step.X > 0 && cfg.Step.Y > 0 {
		nx := int(sz.X / cfg.Step.X)
		ny := int(sz.Y / cfg.Step.Y)
		if nx <= maxGridLines && ny <= maxGridLines {
			dc.SetRGBA(0.5, 0.5, 0.5, 0.5)
			dc.SetLineWidth(1)
			for i := 0; i <= nx; i++ {
				x0, y0 := pm.pixel(cfg.Bounds.Min.X+float32(i)*cfg.Step.X, cfg.Bounds.Min.Y)
				x1, y1 := pm.pixel(cfg.Bounds.Min.X+float32(i)*cfg.Step.X, cfg.Bounds.Max.Y)
				dc.DrawLine(x0, y0, x1, y1)
			}
			for j := 0; j <= ny; j++ {
				x0, y0 := pm.pixel(cfg.Bounds.Min.X, cfg.Bounds.Min.Y+float32(j)*cfg.Step.Y)
				x1, y1 := pm.pixel(cfg.Bounds.Max.X, cfg.Bounds.Min.Y+float32(j)*cfg.Step.Y)
				dc.DrawLine(x0, y0, x1, y1)
			}
			if err := dc.Stroke(); err != nil {
				return fmt.Errorf("drawing grid: %w", err)
			}
		} else {
			log.Debug("grid omitted", slog.Int("nx", nx), slog.Int("ny", ny))
		}
	}

	lw := cfg.LineWidth
	if lw <= 0 {
		lw = 2
	}
	dc.SetRGB(0.1, 0.1, 0.6)
	dc.SetLineWidth(lw)
	for i := 0; i < len(segs); i += 4 {
		x0, y0 := pm.pixel(segs[i], segs[i+1])
		x1, y1 := pm.pixel(segs[i+2], segs[i+3])
		dc.DrawLine(x0, y0, x1, y1)
	}
	if len(segs) > 0 {
		if err := dc.Stroke(); err != nil {
			return fmt.Errorf("drawing contours: %w", err)
		}
	}

	out := image.NewRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), dc.Image(), image.Point{}, draw.Src)
	caption := cfg.Caption
	if caption == "" {
		caption = fmt.Sprintf("iso=%g step=%gx%g segments=%d", cfg.Iso, cfg.Step.X, cfg.Step.Y, len(segs)/4)
	}
	if err := drawCaption(out, caption, float64(height)/40); err != nil {
		return err
	}
	if err := png.Encode(w, out); err != nil {
		return fmt.Errorf("%w: encoding PNG: %w", isosurf.ErrFormat, err)
	}
	log.Info("plotted contours", slog.Int("segments", len(segs)/4), slog.Int("width", width), slog.Int("height", height), slog.Duration("elapsed", watch()))
	return nil
}

// PlotContoursFile is like [PlotContours] but writes the PNG to the named file.
// The file is only created once the plot has been encoded successfully.
func PlotContoursFile(filename string, f isosurf.Field2, segs []float32, cfg PlotConfig) error {
	return meshio.WriteFileAtomic(filename, func(w io.Writer) error {
		return PlotContours(w, f, segs, cfg)
	})
}

func drawCaption(dst draw.Image, caption string, size float64) error {
	ttf, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return err
	}
	size = max(size, 8)
	face := truetype.NewFace(ttf, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull})
	defer face.Close()
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.Black),
		Face: face,
	}
	// Light backdrop so the caption reads over the heat map.
	adv := d.MeasureString(caption).Ceil()
	pad := int(size / 2)
	back := image.Rect(0, 0, adv+2*pad, int(size)+2*pad).Intersect(dst.Bounds())
	draw.Draw(dst, back, image.NewUniform(color.RGBA{R: 255, G: 255, B: 255, A: 200}), image.Point{}, draw.Over)
	d.Dot = fixed.P(pad, pad+int(size*0.8))
	d.DrawString(caption)
	return nil
}

// fieldScale estimates a characteristic deviation of f from iso over bounds
// for heat map coloring.
func fieldScale(f isosurf.Field2, iso float32, bounds ms2.Box) float32 {
	const n = 16
	sz := bounds.Size()
	var maxAbs float32
	for i := 0; i <= n; i++ {
		for j := 0; j <= n; j++ {
			v := f.Evaluate(bounds.Min.X+sz.X*float32(i)/n, bounds.Min.Y+sz.Y*float32(j)/n) - iso
			if isosurf.IsFinite(v) && v != 0 {
				maxAbs = max(maxAbs, abs32(v))
			}
		}
	}
	if maxAbs == 0 {
		return 1
	}
	return maxAbs / 3
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
