package pipeline

import (
	"context"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/nanovis/steric/geom"
	"github.com/nanovis/steric/layout"
)

// assign bins every atom into its grid cell, incrementing the cell's
// counter and recording the cell id. When a pending transform targets the
// atom's id range its position is moved first and the moved position
// written back, so later passes and later runs see the committed result.
func (p *Pipeline) assign(ctx context.Context, pending *Transform) error {
	b := p.buf
	b.ResetCounts()

	return p.dev.Dispatch(ctx, b.AtomCount, func(i int) {
		pos := layout.Pos(b.Elems, i)
		if pending != nil {
			id := layout.ID(b.Elems, i)
			if id >= pending.Start && id < pending.End {
				moved := mgl32.TransformCoordinate(
					mgl32.Vec3{pos[0], pos[1], pos[2]}, pending.Delta)
				pos = geom.Vec{moved[0], moved[1], moved[2]}
				layout.SetPos(b.Elems, i, &pos)
			}
		}

		x, y, z := p.grid.CellAt(&pos)
		cell := p.grid.Idx(x, y, z)
		atomic.AddUint32(&b.CellCounts[cell], 1)
		b.CellIDs[i] = uint32(cell)
	})
}
