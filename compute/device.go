/*package compute provides the execution model the collision pipeline runs
on: a device that dispatches order-independent kernels over a 1D index
space in fixed-size workgroups, plus the capacity limits sessions size
their buffers against.*/
package compute

import (
	"context"
	"runtime"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// WorkgroupSize is the number of kernel invocations per workgroup. Every
// dispatch rounds its index space up to whole workgroups.
const WorkgroupSize = 64

const (
	// MaxStorageBinding caps the byte size of any single buffer a pass
	// binds.
	MaxStorageBinding = 128 << 20

	// MaxWorkgroupsPerDim caps the workgroup count of one dispatch.
	MaxWorkgroupsPerDim = 65535
)

// ErrNotSupported is returned when no usable device exists in this
// environment.
var ErrNotSupported = errors.New(
	"compute device not supported: no usable workers; run in a capable environment")

// MaxCells is the ceiling on grid cell counts: the cell-count buffer must
// fit one binding and the per-cell passes must fit one dispatch.
func MaxCells() int {
	byBinding := MaxStorageBinding / 4
	byDispatch := MaxDispatch()
	if byDispatch < byBinding {
		return byDispatch
	}
	return byBinding
}

// MaxAtoms is the ceiling on atoms per session, fixed by the 24-bit
// element id field.
const MaxAtoms = 1 << 24

// MaxDispatch is the largest index space one Dispatch can cover.
func MaxDispatch() int {
	return MaxWorkgroupsPerDim * WorkgroupSize
}

// Device executes dispatches on a fixed pool of workers.
type Device struct {
	workers int
}

// NewDevice probes the environment and returns a device, or
// ErrNotSupported if none is usable.
func NewDevice() (*Device, error) {
	workers := runtime.GOMAXPROCS(0)
	if workers < 1 {
		return nil, ErrNotSupported
	}
	return &Device{workers: workers}, nil
}

// Workers returns the worker count the device dispatches across.
func (d *Device) Workers() int { return d.workers }

// Dispatch runs kernel once for every index in [0, n). Invocations are
// order-independent and may run concurrently; any state shared between
// them must be written with atomics. Dispatch returns once every
// invocation has completed, or early with the context's error.
func (d *Device) Dispatch(ctx context.Context, n int, kernel func(i int)) error {
	return d.run(ctx, n, WorkgroupSize, kernel)
}

// DispatchBlocks runs kernel once per block index in [0, blocks). Used by
// passes whose kernels already operate on a block of elements internally,
// so one invocation is one unit of scheduling.
func (d *Device) DispatchBlocks(ctx context.Context, blocks int, kernel func(b int)) error {
	return d.run(ctx, blocks, 1, kernel)
}

func (d *Device) run(ctx context.Context, n, chunk int, kernel func(i int)) error {
	if n <= 0 {
		return nil
	}
	groups := (n + chunk - 1) / chunk
	if groups > MaxWorkgroupsPerDim && chunk > 1 {
		return errors.Errorf(
			"dispatch of %d workgroups exceeds the %d limit", groups, MaxWorkgroupsPerDim)
	}

	workers := d.workers
	if workers > groups {
		workers = groups
	}

	var next uint64
	eg, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		eg.Go(func() error {
			for {
				if err := ctx.Err(); err != nil {
					return err
				}
				g := int(atomic.AddUint64(&next, 1)) - 1
				if g >= groups {
					return nil
				}
				lo := g * chunk
				hi := lo + chunk
				if hi > n {
					hi = n
				}
				for i := lo; i < hi; i++ {
					kernel(i)
				}
			}
		})
	}
	return eg.Wait()
}
