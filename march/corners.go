package march

// Corner2 identifies a corner of a marching squares cell. The numeric value of a
// corner is its bit index in a [SquareMask] and the order in which
// [ClassifySquare] expects corner values. The squares lookup table is laid out
// against this order, so the two must never be changed independently.
type Corner2 uint8

const (
	BottomLeft  Corner2 = iota // Cell origin (x, y).
	BottomRight                // (x+step, y)
	TopRight                   // (x+step, y+step)
	TopLeft                    // (x, y+step)
)

// Corner3 identifies a corner of a marching cubes cell. The digits of each name
// are the unit offsets along x, y and z from the cell origin. As with [Corner2]
// the numeric value is the bit index in a [CubeMask] and the order expected by
// [ClassifyCube]; the cubes lookup table is built for exactly this order.
type Corner3 uint8

const (
	Corner000 Corner3 = iota
	Corner100
	Corner110
	Corner010
	Corner001
	Corner101
	Corner111
	Corner011
)

// SquareMask has bit i set when corner [Corner2](i) lies below the isovalue.
type SquareMask uint8

// CubeMask has bit i set when corner [Corner3](i) lies below the isovalue.
type CubeMask uint8

const (
	squareFull SquareMask = 1<<4 - 1
	cubeFull   CubeMask   = 1<<8 - 1
)

var squareCornerOffsets = [4][2]uint8{
	BottomLeft:  {0, 0},
	BottomRight: {1, 0},
	TopRight:    {1, 1},
	TopLeft:     {0, 1},
}

var cubeCornerOffsets = [8][3]uint8{
	Corner000: {0, 0, 0},
	Corner100: {1, 0, 0},
	Corner110: {1, 1, 0},
	Corner010: {0, 1, 0},
	Corner001: {0, 0, 1},
	Corner101: {1, 0, 1},
	Corner111: {1, 1, 1},
	Corner011: {0, 1, 1},
}

// Offset returns the corner's unit offset from the cell origin.
func (c Corner2) Offset() (x, y uint8) {
	off := squareCornerOffsets[c]
	return off[0], off[1]
}

// Bit returns the mask bit of the corner.
func (c Corner2) Bit() SquareMask { return 1 << c }

func (c Corner2) String() string {
	switch c {
	case BottomLeft:
		return "bottom-left"
	case BottomRight:
		return "bottom-right"
	case TopRight:
		return "top-right"
	case TopLeft:
		return "top-left"
	}
	return "invalid corner"
}

// Offset returns the corner's unit offset from the cell origin.
func (c Corner3) Offset() (x, y, z uint8) {
	off := cubeCornerOffsets[c]
	return off[0], off[1], off[2]
}

// Bit returns the mask bit of the corner.
func (c Corner3) Bit() CubeMask { return 1 << c }

// ClassifySquare returns the mask of corners whose value is strictly below iso.
// vals is indexed by [Corner2]. Values equal to iso, and NaNs, are outside.
func ClassifySquare(vals [4]float32, iso float32) (m SquareMask) {
	for c, v := range vals {
		if v < iso {
			m |= 1 << c
		}
	}
	return m
}

// ClassifyCube returns the mask of corners whose value is strictly below iso.
// vals is indexed by [Corner3]. Values equal to iso, and NaNs, are outside.
func ClassifyCube(vals [8]float32, iso float32) (m CubeMask) {
	for c, v := range vals {
		if v < iso {
			m |= 1 << c
		}
	}
	return m
}
