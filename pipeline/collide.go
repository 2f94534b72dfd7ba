package pipeline

import (
	"context"

	"github.com/nanovis/steric/layout"
)

// collide tests every sorted atom against the atoms of its own and all
// adjacent grid cells, skipping declared bonds, and sets the atom's bit
// (by global id) when any non-bonded neighbor is inside the
// lenience-adjusted radius sum. Equality with the threshold is not a
// collision, and a negative threshold can never be crossed, which is what
// lets lenience take either sign.
func (p *Pipeline) collide(ctx context.Context, lenience float32) error {
	b := p.buf
	b.Mask.Zero()

	return p.dev.Dispatch(ctx, b.AtomCount, func(i int) {
		posI := layout.Pos(b.SortedElems, i)
		rI := layout.Radius(b.SortedElems, i)
		idI := layout.ID(b.SortedElems, i)
		cx, cy, cz := p.grid.CellAt(&posI)

		for dz := -1; dz <= 1; dz++ {
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					x, y, z := cx+dx, cy+dy, cz+dz
					if !p.grid.BoundsCheck(x, y, z) {
						continue
					}
					cell := p.grid.Idx(x, y, z)
					lo := int(b.CellOffsets[cell])
					hi := lo + int(b.CellCounts[cell])
					for j := lo; j < hi; j++ {
						if j == i {
							continue
						}
						idJ := layout.ID(b.SortedElems, j)
						if layout.Bonded(b.SortedBonds, i, idJ) {
							continue
						}
						thr := rI + layout.Radius(b.SortedElems, j) - lenience
						if thr <= 0 {
							continue
						}
						posJ := layout.Pos(b.SortedElems, j)
						if posI.DistSqr(&posJ) < thr*thr {
							b.Mask.Set(int(idI))
							return
						}
					}
				}
			}
		}
	})
}
