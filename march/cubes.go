package march

import (
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/isosurf"
)

// CubesConfig configures a marching cubes walk over a box. Cells are walked
// one z plane at a time.
type CubesConfig struct {
	Field isosurf.Field3
	Iso   float32
	// Bounds is the region walked. Along x and y a cell is visited while its
	// origin is strictly less than Bounds.Max. Along z the walk advances
	// plane by plane and finishes once the plane coordinate exceeds Bounds.Max.Z,
	// so the plane whose origin equals Bounds.Max.Z is still processed.
	// Callers needing strict bounds should shrink Bounds.Max by one step.
	Bounds ms3.Box
	Step   ms3.Vec
	Vertex VertexPlacement
}

// Validate reports an error wrapping [isosurf.ErrConfig] if the configuration
// cannot be walked.
func (cfg CubesConfig) Validate() error {
	if cfg.Field == nil {
		return isosurf.Configf("nil field")
	} else if !isosurf.IsFinite(cfg.Iso) {
		return isosurf.Configf("isovalue must be finite, got %v", cfg.Iso)
	} else if cfg.Vertex > VertexLinear {
		return isosurf.Configf("unknown vertex placement %d", cfg.Vertex)
	}
	axes := [3]struct {
		name           string
		min, max, step float32
	}{
		{"x", cfg.Bounds.Min.X, cfg.Bounds.Max.X, cfg.Step.X},
		{"y", cfg.Bounds.Min.Y, cfg.Bounds.Max.Y, cfg.Step.Y},
		{"z", cfg.Bounds.Min.Z, cfg.Bounds.Max.Z, cfg.Step.Z},
	}
	for _, ax := range axes {
		if err := isosurf.CheckStep(ax.name, ax.step); err != nil {
			return err
		}
		if err := isosurf.CheckRange(ax.name, ax.min, ax.max); err != nil {
			return err
		}
		if _, err := axisCells(ax.name, ax.min, ax.max, ax.step); err != nil {
			return err
		}
	}
	return nil
}

// Cubes is a validated marching cubes walk. It holds the scratch buffers used
// to evaluate the field so it must not be used concurrently. Many states
// may be advanced by the same Cubes one after the other.
type Cubes struct {
	cfg    CubesConfig
	nx, ny int
	// layers holds field values of the lower and upper lattice layers of the
	// current plane. Each is (nx+1)*(ny+1) long and indexed by i*(ny+1)+j.
	layers [2][]float32
}

// CubesState is the progress of an incremental marching cubes walk. The zero
// value is not a valid state; obtain one from [Cubes.Start] or [Cubes.StartAt].
type CubesState struct {
	// Z is the scan coordinate of the next plane to process.
	Z float32
	// Plane counts the planes processed so far.
	Plane    int
	Finished bool
	// Vertices accumulates triangles as flat x y z triples, three per triangle.
	// It is always a valid prefix of the complete result.
	Vertices []float32
}

// IsFinished reports whether the scan coordinate went past the region.
func (st *CubesState) IsFinished() bool { return st.Finished }

// Snapshot returns a copy of the vertices generated so far.
func (st *CubesState) Snapshot() []float32 {
	return append([]float32(nil), st.Vertices...)
}

// Triangles returns the amount of complete triangles generated so far.
func (st *CubesState) Triangles() int { return len(st.Vertices) / 9 }

// NewCubes validates cfg and returns a walker ready to generate.
func NewCubes(cfg CubesConfig) (*Cubes, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	nx, _ := axisCells("x", cfg.Bounds.Min.X, cfg.Bounds.Max.X, cfg.Step.X)
	ny, _ := axisCells("y", cfg.Bounds.Min.Y, cfg.Bounds.Max.Y, cfg.Step.Y)
	c := &Cubes{cfg: cfg, nx: nx, ny: ny}
	size := (nx + 1) * (ny + 1)
	c.layers[0] = make([]float32, size)
	c.layers[1] = make([]float32, size)
	return c, nil
}

// Config returns the validated configuration.
func (c *Cubes) Config() CubesConfig { return c.cfg }

// Cells returns the amount of cells per plane along x and y.
func (c *Cubes) Cells() (nx, ny int) { return c.nx, c.ny }

// Start returns a state whose first plane lies at Bounds.Min.Z.
func (c *Cubes) Start() CubesState { return c.StartAt(c.cfg.Bounds.Min.Z) }

// StartAt returns a state whose first plane lies at z. A z past Bounds.Max.Z
// or non-finite yields a finished state.
func (c *Cubes) StartAt(z float32) CubesState {
	return CubesState{
		Z:        z,
		Finished: !isosurf.IsFinite(z) || z > c.cfg.Bounds.Max.Z,
	}
}

// GenerateAll walks the whole region from Bounds.Min.Z and returns the
// resulting triangle vertices.
func (c *Cubes) GenerateAll() []float32 {
	st := c.Start()
	for !st.IsFinished() {
		c.Generate(&st)
	}
	return st.Vertices
}

// Generate processes exactly one plane of cells at st.Z, appends its
// triangles to st.Vertices and advances st.Z by one step. The field is
// evaluated once per lattice point of the plane. Calling Generate on a
// finished state does nothing.
func (c *Cubes) Generate(st *CubesState) {
	if st.Finished {
		return
	}
	cfg := &c.cfg
	z := st.Z
	c.evalLayer(c.layers[0], z)
	c.evalLayer(c.layers[1], z+cfg.Step.Z)
	stride := c.ny + 1
	lo, hi := c.layers[0], c.layers[1]
	var vals [8]float32
	for i := 0; i < c.nx; i++ {
		x := cfg.Bounds.Min.X + float32(i)*cfg.Step.X
		for j := 0; j < c.ny; j++ {
			y := cfg.Bounds.Min.Y + float32(j)*cfg.Step.Y
			k := i*stride + j
			vals = [8]float32{
				Corner000: lo[k],
				Corner100: lo[k+stride],
				Corner110: lo[k+stride+1],
				Corner010: lo[k+1],
				Corner001: hi[k],
				Corner101: hi[k+stride],
				Corner111: hi[k+stride+1],
				Corner011: hi[k+1],
			}
			m := ClassifyCube(vals, cfg.Iso)
			row := &cubeTriangles[m]
			for e := 0; e < len(row) && row[e] >= 0; e++ {
				v := c.vertex(int(row[e]), &vals)
				st.Vertices = append(st.Vertices,
					x+v[0]*cfg.Step.X,
					y+v[1]*cfg.Step.Y,
					z+v[2]*cfg.Step.Z,
				)
			}
		}
	}
	st.Plane++
	next := z + cfg.Step.Z
	if next > cfg.Bounds.Max.Z || next <= z {
		st.Finished = true
	}
	st.Z = next
}

func (c *Cubes) evalLayer(dst []float32, z float32) {
	cfg := &c.cfg
	stride := c.ny + 1
	for i := 0; i <= c.nx; i++ {
		x := cfg.Bounds.Min.X + float32(i)*cfg.Step.X
		for j := 0; j <= c.ny; j++ {
			y := cfg.Bounds.Min.Y + float32(j)*cfg.Step.Y
			dst[i*stride+j] = cfg.Field.Evaluate(x, y, z)
		}
	}
}

// vertex returns the unit-cell offset of template vertex e.
func (c *Cubes) vertex(e int, vals *[8]float32) [3]float32 {
	if c.cfg.Vertex != VertexLinear {
		return cubeEdgeVerts[e]
	}
	c0, c1 := cubeEdges[e][0], cubeEdges[e][1]
	t := crossing(vals[c0], vals[c1], c.cfg.Iso)
	x0, y0, z0 := c0.Offset()
	x1, y1, z1 := c1.Offset()
	return [3]float32{
		lerp(float32(x0), float32(x1), t),
		lerp(float32(y0), float32(y1), t),
		lerp(float32(z0), float32(z1), t),
	}
}

// Generator drives a cubic region one plane at a time, typically once per
// rendered frame. It pairs a [Cubes] walker with its [CubesState].
type Generator struct {
	c  *Cubes
	st CubesState
}

// NewGenerator returns a generator for the cube [min,max]³ walked with the same
// step along every axis.
func NewGenerator(f isosurf.Field3, iso, min, max, step float32) (*Generator, error) {
	c, err := NewCubes(CubesConfig{
		Field:  f,
		Iso:    iso,
		Bounds: ms3.Box{Min: ms3.Vec{X: min, Y: min, Z: min}, Max: ms3.Vec{X: max, Y: max, Z: max}},
		Step:   ms3.Vec{X: step, Y: step, Z: step},
	})
	if err != nil {
		return nil, err
	}
	return &Generator{c: c, st: c.Start()}, nil
}

// Generate processes one plane. It does nothing once the generator is finished.
func (g *Generator) Generate() { g.c.Generate(&g.st) }

// IsFinished reports whether the whole region has been processed.
func (g *Generator) IsFinished() bool { return g.st.IsFinished() }

// Vertices returns a snapshot of the triangle vertices generated so far.
func (g *Generator) Vertices() []float32 { return g.st.Snapshot() }

// Plane returns the amount of planes processed so far.
func (g *Generator) Plane() int { return g.st.Plane }
