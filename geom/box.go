package geom

import (
	"math"
)

// Box is an axis-aligned bounding box. The zero Box is empty and must be
// grown with Extend before use.
type Box struct {
	Min, Max Vec
	empty    bool
}

// EmptyBox returns a Box containing no points.
func EmptyBox() Box {
	inf := float32(math.Inf(+1))
	return Box{
		Min:   Vec{+inf, +inf, +inf},
		Max:   Vec{-inf, -inf, -inf},
		empty: true,
	}
}

// Extend grows b to contain the sphere centered at v with radius r.
func (b *Box) Extend(v *Vec, r float32) {
	for i := 0; i < 3; i++ {
		if v[i]-r < b.Min[i] {
			b.Min[i] = v[i] - r
		}
		if v[i]+r > b.Max[i] {
			b.Max[i] = v[i] + r
		}
	}
	b.empty = false
}

// ExtendBox grows b to contain the box b2. Extending by an empty box is a
// no-op.
func (b *Box) ExtendBox(b2 *Box) {
	if b2.empty {
		return
	}
	for i := 0; i < 3; i++ {
		if b2.Min[i] < b.Min[i] {
			b.Min[i] = b2.Min[i]
		}
		if b2.Max[i] > b.Max[i] {
			b.Max[i] = b2.Max[i]
		}
	}
	b.empty = false
}

// Empty returns true if no point has been added to b.
func (b *Box) Empty() bool { return b.empty }

// Span returns the side lengths of b along each axis.
func (b *Box) Span() Vec {
	if b.empty {
		return Vec{}
	}
	return b.Max.Sub(&b.Min)
}
