/*package pipeline implements the collision pipeline proper: four passes
over the session's packed buffers that bin atoms into the spatial grid,
prefix-sum the bins, counting-sort the atoms into cell order, and test
every atom against its 27-cell neighborhood.

Passes run strictly in order inside one Run; each pass is itself an
order-independent dispatch across atoms or cells. Nothing here touches
per-component state, only the flat buffers, so a Run is the same whether
it came from session start, an incremental update, or a reset.*/
package pipeline

import (
	"context"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/nanovis/steric/compute"
	"github.com/nanovis/steric/geom"
	"github.com/nanovis/steric/layout"
)

// Transform is a pending affine update applied during the assignment pass
// to the atoms whose global ids fall in [Start, End). The moved positions
// are committed back into the element buffer, which is what lets repeated
// incremental updates avoid ever re-reading source coordinates.
type Transform struct {
	Delta      mgl32.Mat4
	Start, End uint32
}

// Pipeline binds a device, a grid, and one session's buffers.
type Pipeline struct {
	dev  *compute.Device
	grid *geom.Grid
	buf  *layout.Buffers
}

// New returns a pipeline over the given device, grid, and buffers.
func New(dev *compute.Device, grid *geom.Grid, buf *layout.Buffers) *Pipeline {
	return &Pipeline{dev: dev, grid: grid, buf: buf}
}

// Run executes assignment, scan, sort, and collision in order. pending may
// be nil for a run with no transform update. Any pass failure aborts the
// run and is returned.
func (p *Pipeline) Run(ctx context.Context, pending *Transform, lenience float32) error {
	if err := p.assign(ctx, pending); err != nil {
		return errors.Wrap(err, "assignment pass")
	}
	maxPerCell, err := p.scan(ctx)
	if err != nil {
		return errors.Wrap(err, "scan pass")
	}
	if err := p.sort(ctx, maxPerCell); err != nil {
		return errors.Wrap(err, "sort pass")
	}
	if err := p.collide(ctx, lenience); err != nil {
		return errors.Wrap(err, "collision pass")
	}
	return nil
}
