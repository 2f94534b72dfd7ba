package pipeline

import (
	"context"

	"github.com/pkg/errors"

	"github.com/nanovis/steric/compute"
)

// scanBlock is the element count each block-scan kernel handles.
const scanBlock = compute.WorkgroupSize

// scan computes the exclusive prefix sum of CellCounts into CellOffsets
// and returns the maximum per-cell count, which bounds the sort pass's
// claim probing. The scan is the usual block-scan scheme: scan each block
// in place collecting a block sum and block max, recurse on the block
// sums, then add each block's prefix back over its block.
func (p *Pipeline) scan(ctx context.Context) (maxPerCell uint32, err error) {
	b := p.buf
	copy(b.CellOffsets, b.CellCounts)

	total, maxPerCell, err := scanInPlace(ctx, p.dev, b.CellOffsets)
	if err != nil {
		return 0, err
	}
	// The total doubles as a corruption check: every atom was counted by
	// exactly one assignment kernel, so anything else means a lost or
	// doubled count.
	if total != uint32(b.AtomCount) {
		return 0, errors.Errorf(
			"scanned cell counts total %d, want %d atoms", total, b.AtomCount)
	}
	return maxPerCell, nil
}

func scanInPlace(ctx context.Context, dev *compute.Device, data []uint32) (total, max uint32, err error) {
	blocks := (len(data) + scanBlock - 1) / scanBlock
	sums := make([]uint32, blocks)
	maxes := make([]uint32, blocks)

	err = dev.DispatchBlocks(ctx, blocks, func(bi int) {
		lo := bi * scanBlock
		hi := lo + scanBlock
		if hi > len(data) {
			hi = len(data)
		}
		var run, m uint32
		for i := lo; i < hi; i++ {
			c := data[i]
			data[i] = run
			run += c
			if c > m {
				m = c
			}
		}
		sums[bi] = run
		maxes[bi] = m
	})
	if err != nil {
		return 0, 0, err
	}

	for _, m := range maxes {
		if m > max {
			max = m
		}
	}
	if blocks == 1 {
		return sums[0], max, nil
	}

	total, _, err = scanInPlace(ctx, dev, sums)
	if err != nil {
		return 0, 0, err
	}

	err = dev.DispatchBlocks(ctx, blocks, func(bi int) {
		base := sums[bi]
		lo := bi * scanBlock
		hi := lo + scanBlock
		if hi > len(data) {
			hi = len(data)
		}
		for i := lo; i < hi; i++ {
			data[i] += base
		}
	})
	return total, max, err
}
