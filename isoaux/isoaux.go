// Package isoaux provides convenience pipelines built on top of the march and
// meshio packages: mesh file rendering with timing logs, contour plots and an
// interactive viewer. Applications with specific needs are expected to
// assemble their own pipelines from the underlying packages.
package isoaux

import (
	"context"
	"log/slog"
	"time"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/isosurf"
	"github.com/soypat/isosurf/march"
)

// UIConfig configures the interactive viewer started by [UI].
type UIConfig struct {
	Width, Height int
	Iso           float32
	Bounds        ms3.Box
	Step          ms3.Vec
	Vertex        march.VertexPlacement
	// PlanesPerFrame is the amount of scan planes generated per rendered
	// frame. Zero means one plane per frame.
	PlanesPerFrame int
	// Context cancels the viewer loop when done. May be nil.
	Context context.Context
	Logger  *slog.Logger
}

// UI opens a window and renders the isosurface of f while it is generated,
// advancing the walk by cfg.PlanesPerFrame planes every frame. It returns when
// the window is closed. UI requires cgo.
func UI(f isosurf.Field3, cfg UIConfig) error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return isosurf.Configf("invalid window size %dx%d", cfg.Width, cfg.Height)
	} else if cfg.PlanesPerFrame < 0 {
		return isosurf.Configf("negative planes per frame")
	}
	if cfg.PlanesPerFrame == 0 {
		cfg.PlanesPerFrame = 1
	}
	cubes, err := march.NewCubes(march.CubesConfig{
		Field:  f,
		Iso:    cfg.Iso,
		Bounds: cfg.Bounds,
		Step:   cfg.Step,
		Vertex: cfg.Vertex,
	})
	if err != nil {
		return err
	}
	return ui(cubes, cfg, logger(cfg.Logger))
}

// nopHandler is a slog.Handler that discards all records.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// logger returns l or a logger that discards all output if l is nil.
func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(nopHandler{})
	}
	return l
}

func stopwatch() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}

func percentUint64(num, denom uint64) float32 {
	if denom == 0 {
		return 0
	}
	return math32.Trunc(10000*float32(num)/float32(denom)) / 100
}
