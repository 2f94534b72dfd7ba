package pipeline

import (
	"context"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/nanovis/steric/layout"
)

// sort places every atom into cell order: a claim dispatch where each atom
// CASes its id into the first free slot of its cell's offset range, then a
// scatter dispatch that moves element and bond data to the claimed slots.
// The claim loop is a lock-free linear probe bounded by the scan pass's
// max per-cell count, so an atom never probes past its own cell's range.
func (p *Pipeline) sort(ctx context.Context, maxPerCell uint32) error {
	b := p.buf
	b.ResetSort()

	var failed uint32
	err := p.dev.Dispatch(ctx, b.AtomCount, func(i int) {
		cell := b.CellIDs[i]
		base := b.CellOffsets[cell]
		id := layout.ID(b.Elems, i)

		for k := uint32(0); k < maxPerCell; k++ {
			dest := base + k
			if atomic.CompareAndSwapUint32(&b.SortSlots[dest], layout.Sentinel, id) {
				b.SortIdx[i] = dest
				return
			}
		}
		atomic.AddUint32(&failed, 1)
	})
	if err != nil {
		return err
	}
	if failed > 0 {
		// Every cell has exactly as many slots as counted atoms, so an
		// unclaimed atom means the counts and offsets disagree.
		return errors.Errorf("%d atoms failed to claim a sort slot", failed)
	}

	return p.dev.Dispatch(ctx, b.AtomCount, func(i int) {
		dest := int(b.SortIdx[i])
		copy(b.SortedElems[dest*layout.ElemStride:(dest+1)*layout.ElemStride],
			b.Elems[i*layout.ElemStride:(i+1)*layout.ElemStride])
		copy(b.SortedBonds[dest*layout.BondStride:(dest+1)*layout.BondStride],
			b.Bonds[i*layout.BondStride:(i+1)*layout.BondStride])
	})
}
