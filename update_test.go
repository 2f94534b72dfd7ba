package steric

import (
	"context"
	"sync"
	"testing"

	"github.com/edaniels/golog"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nanovis/steric/pipeline"
)

func TestIdentityUpdateIsIdempotent(t *testing.T) {
	a := singleAtom("a", 0, 0, 0, 1)
	b := singleAtom("b", 1.5, 0, 0, 1)
	s := startedSession(t, []Component{a, b}, 0)
	ctx := context.Background()

	before, err := s.ReadCollisions(ctx)
	require.NoError(t, err)

	require.NoError(t, s.UpdateComponent(a, mgl64.Ident4()).Wait(ctx))
	e, ok := s.AccumulatedError(a)
	require.True(t, ok)
	assert.InDelta(t, 0, e, 1e-12, "identity update adds no drift")

	after, err := s.ReadCollisions(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after, "bitmask unchanged")
}

func TestDriftAccumulatesAndResetZeroes(t *testing.T) {
	a := singleAtom("a", 1, 1, 1, 1)
	b := singleAtom("b", 30, 0, 0, 1)
	s := startedSession(t, []Component{a, b}, 0)
	ctx := context.Background()

	// Chained scale updates: each delta carries a 1/3 that has no exact
	// float representation, so composing onto the committed matrix lands
	// measurably off the requested one.
	scale := 1.0
	var last float64
	for i := 0; i < 4; i++ {
		scale *= 3
		m := mgl64.Scale3D(scale, scale, scale)
		require.NoError(t, s.UpdateComponent(a, m).Wait(ctx))
		e, ok := s.AccumulatedError(a)
		require.True(t, ok)
		assert.True(t, e >= last, "accumulated error never shrinks on update")
		last = e
	}
	assert.True(t, last > 0, "chained non-exact deltas left drift")

	eb, ok := s.AccumulatedError(b)
	require.True(t, ok)
	assert.Equal(t, 0.0, eb, "untouched component stays at zero")

	require.NoError(t, s.ResetComponent(a).Wait(ctx))
	ea, ok := s.AccumulatedError(a)
	require.True(t, ok)
	assert.Equal(t, 0.0, ea, "reset zeroes exactly")
}

func TestResetResyncsFromOriginalCoordinates(t *testing.T) {
	a := singleAtom("a", 0, 0, 0, 1)
	b := singleAtom("b", 1.5, 0, 0, 1)
	ctx := context.Background()
	s := startedSession(t, []Component{a, b}, 0)

	// Walk a away and back through many lossy steps, then reset. The
	// original-coordinate rebuild must restore the colliding state the
	// session started with: a still reports matrix identity.
	for i := 0; i < 5; i++ {
		m := mgl64.Scale3D(1.7, 1.7, 1.7).Mul4(mgl64.Translate3D(float64(i), 0, 0))
		require.NoError(t, s.UpdateComponent(a, m).Wait(ctx))
	}
	require.NoError(t, s.UpdateComponent(a, mgl64.Ident4()).Wait(ctx))
	require.NoError(t, s.ResetComponent(a).Wait(ctx))

	mask, err := s.ReadCollisions(ctx)
	require.NoError(t, err)
	assert.True(t, mask.Get(0), "reset restored the exact original positions")
	assert.True(t, mask.Get(1))
}

func TestUpdatesCoalesceToNewestMatrix(t *testing.T) {
	a := singleAtom("a", 0, 0, 0, 1)
	b := singleAtom("b", 6.5, 0, 0, 1)
	s := startedSession(t, []Component{a, b}, 0)
	ctx := context.Background()

	// A burst of conflicting updates: whatever subset is coalesced away,
	// every job resolves and the session converges on the last matrix.
	jobs := make([]*Job, 0, 20)
	for i := 0; i < 19; i++ {
		jobs = append(jobs, s.UpdateComponent(a, mgl64.Translate3D(float64(i%7), 0, 0)))
	}
	jobs = append(jobs, s.UpdateComponent(a, mgl64.Translate3D(5, 0, 0)))
	for _, j := range jobs {
		require.NoError(t, j.Wait(ctx))
	}

	mask, err := s.ReadCollisions(ctx)
	require.NoError(t, err)
	assert.True(t, mask.Get(0), "a at +5 is 1.5 from b")
	assert.True(t, mask.Get(1))
}

// failAfterCommit lets the real run commit its work, then reports a
// late-pass failure for any run carrying a transform.
type failAfterCommit struct {
	real runner
}

func (f *failAfterCommit) Run(ctx context.Context, tr *pipeline.Transform, lenience float32) error {
	if err := f.real.Run(ctx, tr, lenience); err != nil {
		return err
	}
	if tr != nil {
		return errors.New("device lost")
	}
	return nil
}

func TestFailedUpdateDirectsReset(t *testing.T) {
	logger, logs := golog.NewObservedTestLogger(t)
	a := singleAtom("a", 0, 0, 0, 1)
	b := singleAtom("b", 1.5, 0, 0, 1)
	s, err := NewSession([]Component{a, b}, CollisionParams{}, nil, logger)
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Dispose)
	ctx := context.Background()

	s.pipe = &failAfterCommit{real: s.pipe}

	// The failed run leaves moved positions in the buffers but must not
	// advance the committed matrix or the drift, and it names the way out.
	err = s.UpdateComponent(a, mgl64.Translate3D(5, 0, 0)).Wait(ctx)
	require.Error(t, err)
	assert.True(t, len(logs.FilterMessageSnippet("reset").All()) >= 1,
		"failure log points at ResetComponent")
	e, ok := s.AccumulatedError(a)
	require.True(t, ok)
	assert.Equal(t, 0.0, e, "failed update adds no drift")

	mask, err := s.ReadCollisions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, mask.Count(), "the failed run's moved positions stand")

	// A reset rebuilds from source coordinates and clears the mismatch.
	require.NoError(t, s.ResetComponent(a).Wait(ctx))
	mask, err = s.ReadCollisions(ctx)
	require.NoError(t, err)
	assert.True(t, mask.Get(0), "reset restored the original colliding state")
	assert.True(t, mask.Get(1))
}

func TestErrorChangedSignal(t *testing.T) {
	a := singleAtom("a", 0, 0, 0, 1)
	s := startedSession(t, []Component{a}, 0)
	ctx := context.Background()

	var mu sync.Mutex
	calls := []float64{}
	s.OnErrorChanged(func(comp Component, e float64) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, a.Name(), comp.Name())
		calls = append(calls, e)
	})

	require.NoError(t, s.UpdateComponent(a, mgl64.Translate3D(1, 0, 0)).Wait(ctx))
	require.NoError(t, s.ResetComponent(a).Wait(ctx))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 2, len(calls), "fired after the update and the reset")
	assert.Equal(t, 0.0, calls[1], "reset reports exactly zero")
}

func TestCollisionChangedSignal(t *testing.T) {
	a := singleAtom("a", 0, 0, 0, 1)
	b := singleAtom("b", 6.5, 0, 0, 1)
	s := startedSession(t, []Component{a, b}, 0)
	ctx := context.Background()

	var mu sync.Mutex
	fired := map[string][]int{}
	s.OnCollisionChanged(func(comp Component, changed []int) {
		mu.Lock()
		defer mu.Unlock()
		fired[comp.Name()] = changed
	})

	// First readback: nothing collides, nothing changed versus the empty
	// baseline.
	_, err := s.ReadCollisions(ctx)
	require.NoError(t, err)
	mu.Lock()
	assert.Empty(t, fired)
	mu.Unlock()

	// Move a into range: both components' single atoms flip on.
	require.NoError(t, s.UpdateComponent(a, mgl64.Translate3D(5, 0, 0)).Wait(ctx))
	_, err = s.ReadCollisions(ctx)
	require.NoError(t, err)
	mu.Lock()
	assert.Equal(t, []int{0}, fired["a"])
	assert.Equal(t, []int{0}, fired["b"])
	fired = map[string][]int{}
	mu.Unlock()

	// Unchanged state: a second readback stays silent.
	_, err = s.ReadCollisions(ctx)
	require.NoError(t, err)
	mu.Lock()
	assert.Empty(t, fired)
	mu.Unlock()
}
