package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testBox(min, max Vec) Box {
	b := EmptyBox()
	b.Extend(&min, 0)
	b.Extend(&max, 0)
	return b
}

func TestBuildDeterminism(t *testing.T) {
	b := testBox(Vec{-3, -4, -5}, Vec{10, 11, 12})
	g1 := Build(b, 0.5, 1 << 20)
	g2 := Build(b, 0.5, 1 << 20)
	assert.Equal(t, g1, g2, "repeated Build calls")
}

func TestBuildNaturalSize(t *testing.T) {
	b := testBox(Vec{0, 0, 0}, Vec{10, 10, 10})
	g := Build(b, 0.5, 1 << 20)
	assert.Equal(t, float32(1.0), g.CellSize)
	assert.Equal(t, [3]int{10, 10, 10}, g.Width)
	assert.Equal(t, 1000, g.Volume)
}

func TestBuildCeiling(t *testing.T) {
	b := testBox(Vec{0, 0, 0}, Vec{100, 100, 100})
	maxCells := 1 << 10
	g := Build(b, 0.5, maxCells)
	assert.True(t, g.Volume <= maxCells, "volume under ceiling")

	// The cell size must be the smallest cbrt2^k multiple of the natural
	// size that fits.
	natural := 1.0
	k := math.Log(float64(g.CellSize)/natural) / math.Log(cbrt2)
	ki := math.Round(k)
	assert.InDelta(t, ki, k, 1e-4, "cell size is a cbrt2 power")
	assert.True(t, ki >= 1)

	smaller := natural * math.Pow(cbrt2, ki-1)
	_, volume := shape(&Vec{100, 100, 100}, smaller)
	assert.True(t, volume > maxCells, "next smaller size would not fit")
}

func TestBuildSingleAtom(t *testing.T) {
	b := EmptyBox()
	v := Vec{3, 3, 3}
	b.Extend(&v, 0)

	g := Build(b, 0, 1 << 20)
	assert.Equal(t, [3]int{1, 1, 1}, g.Width)
	assert.Equal(t, 1, g.Volume)
	assert.Equal(t, float32(2*DefaultRadius), g.CellSize)
}

func TestIdxCoordsRoundTrip(t *testing.T) {
	g := NewGrid(Vec{}, 1, [3]int{4, 5, 6})
	for idx := 0; idx < g.Volume; idx++ {
		x, y, z := g.Coords(idx)
		assert.True(t, g.BoundsCheck(x, y, z))
		assert.Equal(t, idx, g.Idx(x, y, z))
	}
}

func TestCellAtFloor(t *testing.T) {
	g := NewGrid(Vec{0, 0, 0}, 1, [3]int{4, 4, 4})

	// Interior points floor.
	v := Vec{1.5, 0.5, 3.5}
	x, y, z := g.CellAt(&v)
	assert.Equal(t, [3]int{1, 0, 3}, [3]int{x, y, z})

	// A point exactly on an interior boundary belongs to the upper cell.
	v = Vec{2, 2, 2}
	x, y, z = g.CellAt(&v)
	assert.Equal(t, [3]int{2, 2, 2}, [3]int{x, y, z})

	// The outer faces clamp inward rather than dropping the atom.
	v = Vec{4, 4, 4}
	x, y, z = g.CellAt(&v)
	assert.Equal(t, [3]int{3, 3, 3}, [3]int{x, y, z})
	v = Vec{-1, 0, 0}
	x, _, _ = g.CellAt(&v)
	assert.Equal(t, 0, x)
}

func TestBoxExtend(t *testing.T) {
	b := EmptyBox()
	assert.True(t, b.Empty())

	v := Vec{1, 2, 3}
	b.Extend(&v, 0.5)
	assert.False(t, b.Empty())
	assert.Equal(t, Vec{0.5, 1.5, 2.5}, b.Min)
	assert.Equal(t, Vec{1.5, 2.5, 3.5}, b.Max)

	b2 := EmptyBox()
	v2 := Vec{-1, 2, 3}
	b2.Extend(&v2, 1)
	b.ExtendBox(&b2)
	assert.Equal(t, Vec{-2, 1, 2}, b.Min)
	assert.Equal(t, Vec{1.5, 3, 4}, b.Max)
}
