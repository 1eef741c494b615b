// Command isosurf extracts isolines and isosurfaces of scalar fields.
//
//	isosurf cubes --field sphere --min -1.5 --max 1.5 --step 0.1 --ply sphere.ply
//	isosurf squares --field "sin(x*y)" --iso 0.5 --png sinxy.png
//	isosurf view --field hyperboloid
//
// Settings may also be read from a TOML file with --config. Flags set
// explicitly on the command line take precedence over the file.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/isosurf"
	"github.com/soypat/isosurf/fieldeval"
	"github.com/soypat/isosurf/isoaux"
	"github.com/soypat/isosurf/march"
	"github.com/soypat/isosurf/meshio"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err := newRootCmd().ExecuteContext(ctx)
	if err != nil {
		os.Exit(1)
	}
}

// config holds the settings shared by all subcommands.
type config struct {
	Field   string  `toml:"field"`
	Iso     float32 `toml:"iso"`
	Min     float32 `toml:"min"`
	Max     float32 `toml:"max"`
	Step    float32 `toml:"step"`
	Linear  bool    `toml:"linear"`
	Verbose bool    `toml:"verbose"`

	// cubes
	PLY    string `toml:"ply"`
	STL    string `toml:"stl"`
	Smooth bool   `toml:"smooth"`
	Cache  bool   `toml:"cache"`
	Strict bool   `toml:"strict"`

	// squares
	PNG      string `toml:"png"`
	Segments string `toml:"segments"`
	Height   int    `toml:"height"`
	HeatMap  bool   `toml:"heatmap"`

	// view
	Width          int `toml:"width"`
	PlanesPerFrame int `toml:"planes_per_frame"`
}

func defaultConfig() config {
	return config{
		Min:            -5,
		Max:            5,
		Step:           0.1,
		Height:         800,
		Width:          800,
		PlanesPerFrame: 1,
	}
}

func newRootCmd() *cobra.Command {
	cfg := defaultConfig()
	var configFile string
	root := &cobra.Command{
		Use:          "isosurf",
		Short:        "Marching squares and marching cubes isosurface extraction",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configFile == "" {
				return nil
			}
			return loadConfig(cmd.Flags(), configFile, &cfg)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "TOML file with settings. Explicit flags override it")
	pf.StringVarP(&cfg.Field, "field", "f", "", "sample field name or expression over x, y (and z)")
	pf.Float32Var(&cfg.Iso, "iso", cfg.Iso, "isovalue")
	pf.Float32Var(&cfg.Min, "min", cfg.Min, "lower bound of the region on every axis")
	pf.Float32Var(&cfg.Max, "max", cfg.Max, "upper bound of the region on every axis")
	pf.Float32Var(&cfg.Step, "step", cfg.Step, "cell size on every axis")
	pf.BoolVar(&cfg.Linear, "linear", cfg.Linear, "interpolate vertices along cell edges instead of using midpoints")
	pf.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "log debug information")

	cubes := &cobra.Command{
		Use:   "cubes",
		Short: "Extract an isosurface with marching cubes and write it as PLY and/or STL",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCubes(cfg, newLogger(cmd, cfg.Verbose))
		},
	}
	cf := cubes.Flags()
	cf.StringVar(&cfg.PLY, "ply", cfg.PLY, "output PLY file")
	cf.StringVar(&cfg.STL, "stl", cfg.STL, "output binary STL file")
	cf.BoolVar(&cfg.Smooth, "smooth", cfg.Smooth, "smooth normals from the field gradient")
	cf.BoolVar(&cfg.Cache, "cache", cfg.Cache, "cache field evaluations shared between planes")
	cf.BoolVar(&cfg.Strict, "strict", cfg.Strict, "fail on zero-area triangles")

	squares := &cobra.Command{
		Use:   "squares",
		Short: "Extract isolines with marching squares and plot them as PNG",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSquares(cfg, newLogger(cmd, cfg.Verbose))
		},
	}
	sf := squares.Flags()
	sf.StringVar(&cfg.PNG, "png", cfg.PNG, "output PNG plot")
	sf.StringVar(&cfg.Segments, "segments", cfg.Segments, "output text file with one x0 y0 x1 y1 segment per line")
	sf.IntVar(&cfg.Height, "height", cfg.Height, "plot height in pixels")
	sf.BoolVar(&cfg.HeatMap, "heatmap", cfg.HeatMap, "paint the field behind the isolines")

	view := &cobra.Command{
		Use:   "view",
		Short: "Watch an isosurface being generated plane by plane",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(cmd.Context(), cfg, newLogger(cmd, cfg.Verbose))
		},
	}
	vf := view.Flags()
	vf.IntVar(&cfg.Width, "width", cfg.Width, "window width")
	vf.IntVar(&cfg.Height, "height", cfg.Height, "window height")
	vf.IntVar(&cfg.PlanesPerFrame, "planes", cfg.PlanesPerFrame, "planes generated per frame")

	root.AddCommand(cubes, squares, view)
	return root
}

// loadConfig decodes the TOML file into cfg. Flags explicitly set on the
// command line keep their value.
func loadConfig(fs *pflag.FlagSet, filename string, cfg *config) error {
	changed := make(map[string]string)
	fs.Visit(func(f *pflag.Flag) {
		changed[f.Name] = f.Value.String()
	})
	md, err := toml.DecodeFile(filename, cfg)
	if err != nil {
		return fmt.Errorf("%w: reading %s: %w", isosurf.ErrConfig, filename, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return isosurf.Configf("unknown keys in %s: %s", filename, strings.Join(keys, ", "))
	}
	for name, value := range changed {
		if err := fs.Set(name, value); err != nil {
			return err
		}
	}
	return nil
}

func newLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

func (cfg config) vertex() march.VertexPlacement {
	if cfg.Linear {
		return march.VertexLinear
	}
	return march.VertexMidpoint
}

func (cfg config) box3() (ms3.Box, ms3.Vec) {
	return ms3.Box{
			Min: ms3.Vec{X: cfg.Min, Y: cfg.Min, Z: cfg.Min},
			Max: ms3.Vec{X: cfg.Max, Y: cfg.Max, Z: cfg.Max},
		},
		ms3.Vec{X: cfg.Step, Y: cfg.Step, Z: cfg.Step}
}

func (cfg config) box2() (ms2.Box, ms2.Vec) {
	return ms2.Box{
			Min: ms2.Vec{X: cfg.Min, Y: cfg.Min},
			Max: ms2.Vec{X: cfg.Max, Y: cfg.Max},
		},
		ms2.Vec{X: cfg.Step, Y: cfg.Step}
}

// field3 resolves a sample field name or parses an expression.
func field3(name string) (isosurf.Field3, error) {
	if name == "" {
		name = "hyperboloid"
	}
	if f, ok := isosurf.Named3[name]; ok {
		return f, nil
	}
	return fieldeval.ParseField3(name)
}

func field2(name string) (isosurf.Field2, error) {
	if name == "" {
		name = "sinxy"
	}
	if f, ok := isosurf.Named2[name]; ok {
		return f, nil
	}
	return fieldeval.ParseField2(name)
}

func runCubes(cfg config, log *slog.Logger) error {
	if cfg.PLY == "" && cfg.STL == "" {
		return isosurf.Configf("cubes requires --ply or --stl output")
	}
	f, err := field3(cfg.Field)
	if err != nil {
		return err
	}
	bounds, step := cfg.box3()
	rcfg := isoaux.RenderConfig{
		Iso:              cfg.Iso,
		Bounds:           bounds,
		Step:             step,
		Vertex:           cfg.vertex(),
		PLYFile:          cfg.PLY,
		STLFile:          cfg.STL,
		SmoothNormals:    cfg.Smooth,
		StrictDegenerate: cfg.Strict,
		EnableCaching:    cfg.Cache,
		Logger:           log,
	}
	_, err = isoaux.Render(f, rcfg)
	return err
}

func runSquares(cfg config, log *slog.Logger) error {
	if cfg.PNG == "" && cfg.Segments == "" {
		return isosurf.Configf("squares requires --png or --segments output")
	}
	f, err := field2(cfg.Field)
	if err != nil {
		return err
	}
	bounds, step := cfg.box2()
	plot := isoaux.PlotConfig{
		Bounds:  bounds,
		Iso:     cfg.Iso,
		Step:    step,
		Height:  cfg.Height,
		HeatMap: cfg.HeatMap,
		Logger:  log,
	}
	if cfg.PNG != "" {
		if err := plot.Validate(); err != nil {
			return err
		}
	}
	segs, err := march.MarchSquares(march.SquaresConfig{
		Field:  f,
		Iso:    cfg.Iso,
		Bounds: bounds,
		Step:   step,
		Vertex: cfg.vertex(),
	})
	if err != nil {
		return err
	}
	log.Info("marched squares", slog.Int("segments", len(segs)/4))
	if cfg.Segments != "" {
		if err := writeSegments(cfg.Segments, segs); err != nil {
			return err
		}
		log.Info("wrote", slog.String("file", cfg.Segments))
	}
	if cfg.PNG != "" {
		err = isoaux.PlotContoursFile(cfg.PNG, f, segs, plot)
		if err != nil {
			return err
		}
		log.Info("wrote", slog.String("file", cfg.PNG))
	}
	return nil
}

func writeSegments(filename string, segs []float32) error {
	return meshio.WriteFileAtomic(filename, func(w io.Writer) error {
		bw := bufio.NewWriter(w)
		for i := 0; i < len(segs); i += 4 {
			fmt.Fprintf(bw, "%g %g %g %g\n", segs[i], segs[i+1], segs[i+2], segs[i+3])
		}
		return bw.Flush()
	})
}

func runView(ctx context.Context, cfg config, log *slog.Logger) error {
	f, err := field3(cfg.Field)
	if err != nil {
		return err
	}
	bounds, step := cfg.box3()
	return isoaux.UI(f, isoaux.UIConfig{
		Width:          cfg.Width,
		Height:         cfg.Height,
		Iso:            cfg.Iso,
		Bounds:         bounds,
		Step:           step,
		Vertex:         cfg.vertex(),
		PlanesPerFrame: cfg.PlanesPerFrame,
		Context:        ctx,
		Logger:         log,
	})
}
