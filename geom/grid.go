package geom

import (
	"math"
)

const (
	// DefaultRadius is the covalent radius, in angstroms, used to size grid
	// cells when a session carries no usable radius (e.g. a single atom with
	// radius zero).
	DefaultRadius = 0.77

	// cbrt2 is the factor cell sizes grow by while the cell count is over
	// the device ceiling. Growing all three axes by 2^(1/3) halves the cell
	// count per iteration.
	cbrt2 = 1.2599210498948732
)

// Grid provides an interface for reasoning over a 1D cell array as if it
// were a 3D grid laid over a region of space.
type Grid struct {
	// Min is the world-space position of the grid's lower corner.
	Min Vec
	// CellSize is the side length of the cubical cells.
	CellSize float32
	// Width is the number of cells along each axis.
	Width [3]int

	Length, Area, Volume int
}

// NewGrid returns a grid with the given lower corner, cell size, and shape.
func NewGrid(min Vec, cellSize float32, width [3]int) *Grid {
	g := &Grid{}
	g.Init(min, cellSize, width)
	return g
}

// Init initializes a Grid instance.
func (g *Grid) Init(min Vec, cellSize float32, width [3]int) {
	g.Min = min
	g.CellSize = cellSize
	g.Width = width

	g.Length = width[0]
	g.Area = width[0] * width[1]
	g.Volume = width[0] * width[1] * width[2]
}

// Idx returns the linear cell index corresponding to a set of cell
// coordinates.
func (g *Grid) Idx(x, y, z int) int {
	return x + y*g.Length + z*g.Area
}

// Coords returns the x, y, z cell coordinates of a cell from its linear
// index.
func (g *Grid) Coords(idx int) (x, y, z int) {
	x = idx % g.Length
	y = (idx % g.Area) / g.Length
	z = idx / g.Area
	return x, y, z
}

// BoundsCheck returns true if the given cell coordinates are within the
// grid and false otherwise.
func (g *Grid) BoundsCheck(x, y, z int) bool {
	return x >= 0 && y >= 0 && z >= 0 &&
		x < g.Width[0] && y < g.Width[1] && z < g.Width[2]
}

// CellAt returns the cell coordinates containing the world-space position v.
// Positions bin by floor, so a point exactly on a cell boundary belongs to
// the upper cell, and positions on or past the grid's outer faces clamp
// into the outermost cells.
func (g *Grid) CellAt(v *Vec) (x, y, z int) {
	x = g.cellCoord(v[0], 0)
	y = g.cellCoord(v[1], 1)
	z = g.cellCoord(v[2], 2)
	return x, y, z
}

func (g *Grid) cellCoord(w float32, dim int) int {
	c := int(math.Floor(float64(w-g.Min[dim]) / float64(g.CellSize)))
	if c < 0 {
		return 0
	}
	if c >= g.Width[dim] {
		return g.Width[dim] - 1
	}
	return c
}

// Build returns the grid covering b with cells initially sized to twice
// minRadius, grown by cbrt2 until the cell count fits under maxCells. The
// result is a pure function of the arguments: the same bounds and radius
// always produce the same grid.
func Build(b Box, minRadius float32, maxCells int) *Grid {
	if minRadius <= 0 {
		minRadius = DefaultRadius
	}

	span := b.Span()
	cellSize := float64(2 * minRadius)
	for {
		width, volume := shape(&span, cellSize)
		if volume <= maxCells {
			return NewGrid(b.Min, float32(cellSize), width)
		}
		cellSize *= cbrt2
	}
}

func shape(span *Vec, cellSize float64) (width [3]int, volume int) {
	volume = 1
	for i := 0; i < 3; i++ {
		w := int(math.Ceil(float64(span[i]) / cellSize))
		if w < 1 {
			w = 1
		}
		width[i] = w
		volume *= w
	}
	return width, volume
}
