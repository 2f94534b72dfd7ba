/*package steric detects steric collisions between rigid atomic components.

A Session owns one activation of the engine over a fixed component set: it
snapshots every component's atoms, packs them into flat device buffers,
lays a uniform grid over them, and runs an assignment/scan/sort/collision
pipeline. Moving a component reruns the pipeline with the movement's delta
transform applied in place of a full re-upload; the imprecision that
shortcut accumulates is measured per component so callers can decide when
to reset from source coordinates.*/
package steric

import (
	"context"
	"image"
	"sync"

	"github.com/edaniels/golog"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/nanovis/steric/compute"
	"github.com/nanovis/steric/geom"
	"github.com/nanovis/steric/layout"
	"github.com/nanovis/steric/overlay"
	"github.com/nanovis/steric/pipeline"
)

// MaxComponents is the hard cap on components per session.
const MaxComponents = 256

// runner is the pipeline surface the session drives: one Run recomputes
// the collision state, optionally applying a pending transform.
type runner interface {
	Run(ctx context.Context, pending *pipeline.Transform, lenience float32) error
}

// CollisionParams tunes detection.
type CollisionParams struct {
	// Lenience, in angstroms, is subtracted from the combined covalent
	// radii of every candidate pair. Positive values tolerate deeper
	// overlap before flagging, negative values flag near-contacts too.
	Lenience float64
}

// Session runs collision detection over a fixed set of components. Create
// one with NewSession, call Start once, then issue updates and readbacks.
// Callers must serialize their own request issuance; the session's only
// internal ordering is the latest-wins coalescing of queued runs.
type Session struct {
	logger golog.Logger
	dev    *compute.Device
	grid   *geom.Grid
	buf    *layout.Buffers
	pipe   runner

	mu       sync.Mutex
	records  []*record
	byComp   map[Component]*record
	params   CollisionParams
	render   overlay.Params
	started  bool
	disposed bool

	pending *work
	running bool
	idle    chan struct{}

	lastRead layout.BitArray

	collisionFns []func(Component, []int)
	errorFns     []func(Component, float64)
}

// NewSession registers components and allocates every session buffer. It
// fails, creating nothing, when given no components, when the environment
// has no usable compute device, or when the atom total exceeds what the
// id field or a buffer binding can hold. Components beyond MaxComponents
// are rejected with a warning naming them rather than failing the call.
func NewSession(
	components []Component, params CollisionParams, render *overlay.Params,
	logger golog.Logger,
) (*Session, error) {
	if logger == nil {
		logger = golog.Global()
	}
	if len(components) == 0 {
		return nil, errors.New("no components to register")
	}

	dev, err := compute.NewDevice()
	if err != nil {
		return nil, err
	}

	if len(components) > MaxComponents {
		names := make([]string, 0, len(components)-MaxComponents)
		for _, c := range components[MaxComponents:] {
			names = append(names, c.Name())
		}
		logger.Warnw("component cap exceeded; rejecting extras",
			"cap", MaxComponents, "rejected", names)
		components = components[:MaxComponents]
	}

	s := &Session{
		logger: logger,
		dev:    dev,
		params: params,
		byComp: map[Component]*record{},
	}
	if render != nil {
		s.render = *render
	} else {
		s.render = overlay.DefaultParams()
	}

	// Assign contiguous global id ranges in registration order.
	total := 0
	for _, c := range components {
		if _, ok := s.byComp[c]; ok {
			logger.Warnw("component registered twice; ignoring duplicate",
				"component", c.Name())
			continue
		}
		atoms := c.Atoms()
		rec := &record{
			comp:   c,
			start:  uint32(total),
			end:    uint32(total + len(atoms)),
			matrix: c.Matrix(),
			atoms:  atoms,
		}
		s.records = append(s.records, rec)
		s.byComp[c] = rec
		total += len(atoms)
	}
	if total == 0 {
		return nil, errors.New("registered components contain no atoms")
	}
	if total > compute.MaxAtoms {
		return nil, errors.Errorf(
			"%d atoms exceed the %d-atom id ceiling", total, compute.MaxAtoms)
	}
	if total > compute.MaxDispatch() {
		return nil, errors.Errorf(
			"%d atoms exceed the %d-invocation dispatch limit", total, compute.MaxDispatch())
	}
	if total*layout.ElemStride*4 > compute.MaxStorageBinding {
		return nil, errors.Errorf(
			"%d atoms need a %d-byte element buffer, over the %d-byte binding limit",
			total, total*layout.ElemStride*4, compute.MaxStorageBinding)
	}

	box := geom.EmptyBox()
	minR := float32(0)
	for _, rec := range s.records {
		for i := range rec.atoms {
			w := worldPos(&rec.matrix, rec.atoms[i].Pos)
			r := float32(rec.atoms[i].Radius)
			box.Extend(&w, r)
			if r > 0 && (minR == 0 || r < minR) {
				minR = r
			}
		}
	}
	s.grid = geom.Build(box, minR, compute.MaxCells())
	s.buf = layout.NewBuffers(total, s.grid.Volume)
	s.pipe = pipeline.New(dev, s.grid, s.buf)

	for _, rec := range s.records {
		s.packComponent(rec, &rec.matrix)
	}

	logger.Infow("collision session created",
		"components", len(s.records), "atoms", total,
		"gridCells", s.grid.Volume, "cellSize", s.grid.CellSize)
	return s, nil
}

// packComponent writes a component's element and bond data, positioned by
// m, into its slice of the buffers. Radius saturation and bond overflow
// are tolerated with warnings here.
func (s *Session) packComponent(rec *record, m *mgl64.Mat4) {
	ids := make([]uint32, 0, layout.BondStride)
	for i := range rec.atoms {
		a := &rec.atoms[i]
		gid := rec.start + uint32(i)
		w := worldPos(m, a.Pos)
		elem := s.buf.Elems[int(gid)*layout.ElemStride:]
		if layout.PackElem(elem, &w, float32(a.Radius), gid) {
			s.logger.Warnw("covalent radius saturated to 255 pm",
				"component", rec.comp.Name(), "atom", i, "radius", a.Radius)
		}

		ids = ids[:0]
		for _, b := range a.Bonds {
			if b < 0 || b >= len(rec.atoms) {
				s.logger.Warnw("bond to nonexistent atom ignored",
					"component", rec.comp.Name(), "atom", i, "bond", b)
				continue
			}
			ids = append(ids, rec.start+uint32(b))
		}
		if dropped := layout.PackBonds(s.buf.Bonds, int(gid), ids); dropped > 0 {
			s.logger.Warnw("atom has more than 4 bonds; extra bonds dropped",
				"component", rec.comp.Name(), "atom", i, "dropped", dropped)
		}
	}
}

// Start runs the pipeline over the freshly registered components. It must
// complete before any update, readback, or render call.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return errors.New("session disposed")
	}
	if s.started {
		s.mu.Unlock()
		return errors.New("session already started")
	}
	s.mu.Unlock()

	if err := s.submit(&work{kind: kindStart}).Wait(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	return nil
}

// ReadCollisions waits for queued runs to finish and returns a copy of the
// collision bitmask, one bit per atom by global id. The result is diffed
// against the previous readback; components whose bits changed are
// reported to collision listeners with the changed atom indices (local to
// the component).
func (s *Session) ReadCollisions(ctx context.Context) (layout.BitArray, error) {
	if err := s.checkStarted(); err != nil {
		return nil, err
	}
	if err := s.waitIdle(ctx); err != nil {
		return nil, err
	}

	type change struct {
		comp Component
		idxs []int
	}
	var changes []change

	s.mu.Lock()
	mask := s.buf.Mask.Clone()
	if len(s.collisionFns) > 0 {
		for _, rec := range s.records {
			var idxs []int
			for id := rec.start; id < rec.end; id++ {
				was := s.lastRead != nil && s.lastRead.Get(int(id))
				if mask.Get(int(id)) != was {
					idxs = append(idxs, int(id-rec.start))
				}
			}
			if len(idxs) > 0 {
				changes = append(changes, change{rec.comp, idxs})
			}
		}
	}
	s.lastRead = mask
	fns := append([]func(Component, []int){}, s.collisionFns...)
	s.mu.Unlock()

	for _, ch := range changes {
		for _, fn := range fns {
			fn(ch.comp, ch.idxs)
		}
	}
	return mask.Clone(), nil
}

// AccumulatedError returns the component's accumulated incremental-update
// error. The second return is false for components this session never
// registered.
func (s *Session) AccumulatedError(comp Component) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byComp[comp]
	if !ok {
		s.logger.Errorw("unknown component", "component", comp.Name())
		return 0, false
	}
	return rec.err, true
}

// SetCollisionParams replaces the detection parameters. The next run picks
// them up; no reset is needed.
func (s *Session) SetCollisionParams(p CollisionParams) {
	s.mu.Lock()
	s.params = p
	s.mu.Unlock()
}

// SetRenderParams replaces the marker appearance parameters. Purely
// visual: the next RenderMarkers call redraws without rerunning detection.
func (s *Session) SetRenderParams(p overlay.Params) {
	s.mu.Lock()
	s.render = p
	s.mu.Unlock()
}

// RenderParams returns the current marker appearance parameters.
func (s *Session) RenderParams() overlay.Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.render
}

// RenderMarkers waits for queued runs and draws a marker for every
// colliding atom into a new w by h image, projected with viewProj.
func (s *Session) RenderMarkers(
	ctx context.Context, w, h int, viewProj mgl64.Mat4,
) (image.Image, error) {
	if err := s.checkStarted(); err != nil {
		return nil, err
	}
	if err := s.waitIdle(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	p := s.render
	s.mu.Unlock()
	return overlay.Render(w, h, viewProj, s.buf.SortedElems, s.buf.Mask, p), nil
}

// OnCollisionChanged registers fn to be called from ReadCollisions for
// every component whose collision bits changed since the prior readback.
func (s *Session) OnCollisionChanged(fn func(comp Component, changed []int)) {
	s.mu.Lock()
	s.collisionFns = append(s.collisionFns, fn)
	s.mu.Unlock()
}

// OnErrorChanged registers fn to be called after every update or reset
// with the component's new accumulated error.
func (s *Session) OnErrorChanged(fn func(comp Component, err float64)) {
	s.mu.Lock()
	s.errorFns = append(s.errorFns, fn)
	s.mu.Unlock()
}

// Dispose waits for any outstanding run and releases every buffer. Call
// it exactly once; later calls log an error and do nothing.
func (s *Session) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		s.logger.Errorw("session disposed twice")
		return
	}
	s.mu.Unlock()

	// No mid-run cancellation exists; drain whatever is queued.
	if err := s.waitIdle(context.Background()); err != nil {
		s.logger.Errorw("draining before dispose", "error", err)
	}

	s.mu.Lock()
	s.disposed = true
	s.buf.Release()
	s.mu.Unlock()
	s.logger.Debugw("collision session disposed")
}

func (s *Session) checkStarted() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return errors.New("session disposed")
	}
	if !s.started {
		return errors.New("session not started")
	}
	return nil
}

// worldPos applies m to a local position and narrows to the buffer's
// float32 precision.
func worldPos(m *mgl64.Mat4, local [3]float64) geom.Vec {
	v := mgl64.TransformCoordinate(mgl64.Vec3{local[0], local[1], local[2]}, *m)
	return geom.Vec{float32(v[0]), float32(v[1]), float32(v[2])}
}
