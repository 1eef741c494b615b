package isoaux

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/isosurf"
	"github.com/soypat/isosurf/fieldeval"
	"github.com/soypat/isosurf/march"
	"github.com/soypat/isosurf/meshio"
)

// RenderConfig configures [Render]. At least one output must be set.
type RenderConfig struct {
	Iso    float32
	Bounds ms3.Box
	Step   ms3.Vec
	Vertex march.VertexPlacement

	// PLYFile and STLFile are written atomically when not empty.
	PLYFile   string
	STLFile   string
	PLYOutput io.Writer
	STLOutput io.Writer

	// SmoothNormals computes per-vertex normals from the field gradient
	// instead of flat per-triangle normals.
	SmoothNormals bool
	// StrictDegenerate fails rendering on zero-area triangles when computing
	// flat normals.
	StrictDegenerate bool
	// EnableCaching memoizes field evaluations shared between consecutive
	// scan planes, halving evaluations of expensive fields.
	EnableCaching bool

	Logger *slog.Logger
}

// RenderResult holds the generated mesh and statistics of a call to [Render].
type RenderResult struct {
	Mesh        meshio.Mesh
	Planes      int
	Evaluations uint64
}

// Render is an auxiliary function to aid users in getting setup quickly.
// It walks the field plane by plane, computes normals and writes the
// configured outputs, logging timings to cfg.Logger.
func Render(f isosurf.Field3, cfg RenderConfig) (*RenderResult, error) {
	if cfg.PLYFile == "" && cfg.STLFile == "" && cfg.PLYOutput == nil && cfg.STLOutput == nil {
		return nil, isosurf.Configf("Render requires output parameter in config")
	} else if f == nil {
		return nil, isosurf.Configf("nil field")
	}
	log := logger(cfg.Logger)
	counter := &fieldeval.Counter3{F: f}
	var field isosurf.Field3 = counter
	var cache *fieldeval.LatticeCached3
	if cfg.EnableCaching {
		cache = new(fieldeval.LatticeCached3)
		if err := cache.Reset(counter, cfg.Bounds.Min, cfg.Step); err != nil {
			return nil, err
		}
		field = cache
	}
	cubes, err := march.NewCubes(march.CubesConfig{
		Field:  field,
		Iso:    cfg.Iso,
		Bounds: cfg.Bounds,
		Step:   cfg.Step,
		Vertex: cfg.Vertex,
	})
	if err != nil {
		return nil, err
	}
	nx, ny := cubes.Cells()
	log.Debug("walking region", slog.Int("nx", nx), slog.Int("ny", ny), slog.Any("bounds", cfg.Bounds), slog.Any("step", cfg.Step))

	watch := stopwatch()
	st := cubes.Start()
	for !st.IsFinished() {
		cubes.Generate(&st)
		if cache != nil {
			cache.Forget(st.Z)
		}
	}
	result := &RenderResult{
		Planes:      st.Plane,
		Evaluations: counter.Evaluations(),
	}
	result.Mesh.Vertices = st.Vertices
	log.Info("generated mesh",
		slog.Int("triangles", st.Triangles()),
		slog.Int("planes", st.Plane),
		slog.Uint64("evaluations", counter.Evaluations()),
		slog.Duration("elapsed", watch()),
	)
	if cache != nil {
		log.Info("field caching", slog.Float64("omitted_percent", float64(percentUint64(cache.CacheHits(), cache.Evaluations()))))
	}

	watch = stopwatch()
	if cfg.SmoothNormals {
		h := math32.Min(cfg.Step.X, math32.Min(cfg.Step.Y, cfg.Step.Z))
		result.Mesh.Normals, err = fieldeval.GradientNormals(f, st.Vertices, h)
	} else {
		policy := march.DegenerateZero
		if cfg.StrictDegenerate {
			policy = march.DegenerateStrict
		}
		result.Mesh.Normals, err = march.ComputeNormals(st.Vertices, policy)
	}
	if err != nil {
		return result, fmt.Errorf("computing normals: %w", err)
	}
	log.Debug("computed normals", slog.Bool("smooth", cfg.SmoothNormals), slog.Duration("elapsed", watch()))

	if cfg.PLYFile != "" {
		watch = stopwatch()
		err = meshio.WritePLYFile(cfg.PLYFile, result.Mesh.Vertices, result.Mesh.Normals)
		if err != nil {
			return result, fmt.Errorf("writing PLY file: %w", err)
		}
		log.Info("wrote", slog.String("file", cfg.PLYFile), slog.Duration("elapsed", watch()))
	}
	if cfg.PLYOutput != nil {
		watch = stopwatch()
		err = meshio.WritePLY(cfg.PLYOutput, result.Mesh.Vertices, result.Mesh.Normals)
		if err != nil {
			return result, fmt.Errorf("writing PLY: %w", err)
		}
		log.Info("wrote", slog.String("file", outputName(cfg.PLYOutput, "PLY")), slog.Duration("elapsed", watch()))
	}
	if cfg.STLFile == "" && cfg.STLOutput == nil {
		return result, nil
	}
	triangles, err := meshio.Triangles(result.Mesh.Vertices)
	if err != nil {
		return result, err
	}
	if cfg.STLFile != "" {
		watch = stopwatch()
		var n int
		err = meshio.WriteFileAtomic(cfg.STLFile, func(w io.Writer) (err error) {
			n, err = meshio.WriteBinarySTL(w, triangles)
			return err
		})
		if err != nil {
			return result, fmt.Errorf("writing STL file: %w", err)
		}
		log.Info("wrote", slog.String("file", cfg.STLFile), slog.Int("bytes", n), slog.Duration("elapsed", watch()))
	}
	if cfg.STLOutput != nil {
		watch = stopwatch()
		n, err := meshio.WriteBinarySTL(cfg.STLOutput, triangles)
		if err != nil {
			return result, fmt.Errorf("writing STL: %w", err)
		}
		log.Info("wrote", slog.String("file", outputName(cfg.STLOutput, "STL")), slog.Int("bytes", n), slog.Duration("elapsed", watch()))
	}
	return result, nil
}

func outputName(w io.Writer, fallback string) string {
	if fp, ok := w.(*os.File); ok {
		return fp.Name()
	}
	return fallback
}
