package compute

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchCoversIndexSpace(t *testing.T) {
	d, err := NewDevice()
	require.NoError(t, err)

	n := 10*WorkgroupSize + 17
	hits := make([]uint32, n)
	err = d.Dispatch(context.Background(), n, func(i int) {
		atomic.AddUint32(&hits[i], 1)
	})
	require.NoError(t, err)

	for i, h := range hits {
		assert.Equal(t, uint32(1), h, "index %d", i)
	}
}

func TestDispatchEmpty(t *testing.T) {
	d, err := NewDevice()
	require.NoError(t, err)
	assert.NoError(t, d.Dispatch(context.Background(), 0, func(int) {
		t.Fatal("kernel ran on empty dispatch")
	}))
}

func TestDispatchCancellation(t *testing.T) {
	d, err := NewDevice()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran uint32
	err = d.Dispatch(ctx, 1<<20, func(i int) {
		atomic.AddUint32(&ran, 1)
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, atomic.LoadUint32(&ran) < 1<<20, "cancelled dispatch stopped early")
}

func TestDispatchBlocks(t *testing.T) {
	d, err := NewDevice()
	require.NoError(t, err)

	blocks := 33
	hits := make([]uint32, blocks)
	err = d.DispatchBlocks(context.Background(), blocks, func(b int) {
		atomic.AddUint32(&hits[b], 1)
	})
	require.NoError(t, err)
	for b, h := range hits {
		assert.Equal(t, uint32(1), h, "block %d", b)
	}
}

func TestMaxCells(t *testing.T) {
	assert.Equal(t, MaxWorkgroupsPerDim*WorkgroupSize, MaxCells(),
		"dispatch limit binds before the binding-size limit")
}

func TestDispatchWorkgroupCeiling(t *testing.T) {
	d, err := NewDevice()
	require.NoError(t, err)
	err = d.Dispatch(context.Background(), (MaxWorkgroupsPerDim+1)*WorkgroupSize, func(int) {})
	assert.Error(t, err)
}
