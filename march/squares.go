package march

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/isosurf"
)

// VertexPlacement selects where along a crossed cell edge an output vertex is placed.
type VertexPlacement uint8

const (
	// VertexMidpoint places vertices at edge midpoints of the cell template.
	VertexMidpoint VertexPlacement = iota
	// VertexLinear interpolates the isovalue crossing linearly between the
	// two edge corner values.
	VertexLinear
)

func (vp VertexPlacement) String() string {
	switch vp {
	case VertexMidpoint:
		return "midpoint"
	case VertexLinear:
		return "linear"
	}
	return "invalid vertex placement"
}

// maxAxisCells limits the lattice size along a single axis. Past this value
// float32 cell origins stop being distinct.
const maxAxisCells = 1 << 24

// SquaresConfig configures a marching squares walk over a rectangular region.
type SquaresConfig struct {
	Field isosurf.Field2
	Iso   float32
	// Bounds is the region walked. A cell is visited when its origin is
	// strictly less than Bounds.Max on both axes, so the last row and column
	// of cells may extend past Bounds.Max.
	Bounds ms2.Box
	Step   ms2.Vec
	Vertex VertexPlacement
}

// Validate reports an error wrapping [isosurf.ErrConfig] if the configuration
// cannot be walked.
func (cfg SquaresConfig) Validate() error {
	if cfg.Field == nil {
		return isosurf.Configf("nil field")
	} else if !isosurf.IsFinite(cfg.Iso) {
		return isosurf.Configf("isovalue must be finite, got %v", cfg.Iso)
	} else if cfg.Vertex > VertexLinear {
		return isosurf.Configf("unknown vertex placement %d", cfg.Vertex)
	}
	if err := isosurf.CheckStep("x", cfg.Step.X); err != nil {
		return err
	}
	if err := isosurf.CheckStep("y", cfg.Step.Y); err != nil {
		return err
	}
	if err := isosurf.CheckRange("x", cfg.Bounds.Min.X, cfg.Bounds.Max.X); err != nil {
		return err
	}
	if err := isosurf.CheckRange("y", cfg.Bounds.Min.Y, cfg.Bounds.Max.Y); err != nil {
		return err
	}
	if _, err := axisCells("x", cfg.Bounds.Min.X, cfg.Bounds.Max.X, cfg.Step.X); err != nil {
		return err
	}
	_, err := axisCells("y", cfg.Bounds.Min.Y, cfg.Bounds.Max.Y, cfg.Step.Y)
	return err
}

// axisCells returns the amount of cell origins min+i*step that are strictly less than max.
// Steps under two float32 spacings at the bounds are rejected since adjacent
// origins could then round to the same value.
func axisCells(axis string, min, max, step float32) (int, error) {
	big := math32.Max(math32.Abs(min), math32.Abs(max))
	if spacing := math32.Nextafter(big, math32.Inf(1)) - big; !(step >= 2*spacing) {
		return 0, isosurf.Configf("step %s %v too small for bounds [%v, %v]", axis, step, min, max)
	}
	nf := math32.Ceil((max - min) / step)
	if !(nf <= maxAxisCells) {
		return 0, isosurf.Configf("too many cells along %s: %v", axis, nf)
	}
	n := int(nf)
	for n > 1 && min+float32(n-1)*step >= max {
		n--
	}
	for min+float32(n)*step < max {
		n++
	}
	if n > maxAxisCells {
		return 0, isosurf.Configf("too many cells along %s: %d", axis, n)
	}
	return n, nil
}

// MarchRegion walks the region [minX,maxX)×[minY,maxY) in cells of
// stepX×stepY and returns the isoline of f at iso as a flat buffer of line
// segments x0 y0 x1 y1. Rows are emitted bottom to top, cells left to right.
func MarchRegion(f isosurf.Field2, iso, minX, maxX, minY, maxY, stepX, stepY float32) ([]float32, error) {
	return MarchSquares(SquaresConfig{
		Field:  f,
		Iso:    iso,
		Bounds: ms2.Box{Min: ms2.Vec{X: minX, Y: minY}, Max: ms2.Vec{X: maxX, Y: maxY}},
		Step:   ms2.Vec{X: stepX, Y: stepY},
	})
}

// MarchSquares walks the whole region described by cfg. See [MarchRegion].
func MarchSquares(cfg SquaresConfig) ([]float32, error) {
	sq, err := NewSquares(cfg)
	if err != nil {
		return nil, err
	}
	st := sq.Start()
	for !st.IsFinished() {
		sq.Generate(&st)
	}
	return st.Segments, nil
}

// Squares is a validated marching squares walk. It holds the scratch buffers
// used to evaluate the field so it must not be used concurrently.
type Squares struct {
	cfg    SquaresConfig
	nx, ny int
	// rows holds field values of the bottom and top lattice rows of the
	// current cell row, each nx+1 long.
	rows [2][]float32
}

// SquaresState is the progress of an incremental marching squares walk.
type SquaresState struct {
	// Row is the index of the next cell row to process.
	Row      int
	Finished bool
	// Segments accumulates line segments as x0 y0 x1 y1.
	Segments []float32
}

// IsFinished reports whether all rows have been processed.
func (st *SquaresState) IsFinished() bool { return st.Finished }

// NewSquares validates cfg and returns a walker ready to generate.
func NewSquares(cfg SquaresConfig) (*Squares, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	nx, _ := axisCells("x", cfg.Bounds.Min.X, cfg.Bounds.Max.X, cfg.Step.X)
	ny, _ := axisCells("y", cfg.Bounds.Min.Y, cfg.Bounds.Max.Y, cfg.Step.Y)
	sq := &Squares{cfg: cfg, nx: nx, ny: ny}
	sq.rows[0] = make([]float32, nx+1)
	sq.rows[1] = make([]float32, nx+1)
	return sq, nil
}

// Config returns the validated configuration.
func (sq *Squares) Config() SquaresConfig { return sq.cfg }

// Cells returns the amount of cells along x and y.
func (sq *Squares) Cells() (nx, ny int) { return sq.nx, sq.ny }

// Start returns the state of a walk that has not yet processed any row.
func (sq *Squares) Start() SquaresState { return SquaresState{} }

// Generate processes exactly one row of cells and appends its segments to
// st.Segments. Calling Generate on a finished state does nothing.
func (sq *Squares) Generate(st *SquaresState) {
	if st.Finished {
		return
	}
	if st.Row >= sq.ny {
		st.Finished = true
		return
	}
	cfg := &sq.cfg
	y := cfg.Bounds.Min.Y + float32(st.Row)*cfg.Step.Y
	bot, top := sq.rows[0], sq.rows[1]
	for i := range bot {
		x := sq.x(i)
		bot[i] = cfg.Field.Evaluate(x, y)
		top[i] = cfg.Field.Evaluate(x, y+cfg.Step.Y)
	}
	for i := 0; i < sq.nx; i++ {
		vals := [4]float32{
			BottomLeft:  bot[i],
			BottomRight: bot[i+1],
			TopRight:    top[i+1],
			TopLeft:     top[i],
		}
		m := ClassifySquare(vals, cfg.Iso)
		row := &squareSegments[m]
		x := sq.x(i)
		for k := 0; k < len(row) && row[k] >= 0; k++ {
			v := sq.vertex(int(row[k]), &vals)
			st.Segments = append(st.Segments, x+v[0]*cfg.Step.X, y+v[1]*cfg.Step.Y)
		}
	}
	st.Row++
	if st.Row >= sq.ny {
		st.Finished = true
	}
}

func (sq *Squares) x(i int) float32 {
	return sq.cfg.Bounds.Min.X + float32(i)*sq.cfg.Step.X
}

// vertex returns the unit-cell offset of template vertex e.
func (sq *Squares) vertex(e int, vals *[4]float32) [2]float32 {
	if sq.cfg.Vertex != VertexLinear {
		return squareEdgeVerts[e]
	}
	c0, c1 := squareEdges[e][0], squareEdges[e][1]
	t := crossing(vals[c0], vals[c1], sq.cfg.Iso)
	x0, y0 := c0.Offset()
	x1, y1 := c1.Offset()
	return [2]float32{
		lerp(float32(x0), float32(x1), t),
		lerp(float32(y0), float32(y1), t),
	}
}

// crossing returns the parameter in [0,1] where the line between va and vb
// reaches iso. It returns 0.5 when the crossing is undefined.
func crossing(va, vb, iso float32) float32 {
	if va == vb {
		return 0.5
	}
	t := (iso - va) / (vb - va)
	switch {
	case !isosurf.IsFinite(t):
		return 0.5
	case t < 0:
		return 0
	case t > 1:
		return 1
	}
	return t
}

func lerp(a, b, t float32) float32 { return a + (b-a)*t }
