package steric

import (
	"context"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/nanovis/steric/pipeline"
)

// Job is the handle for one queued run. A job superseded by a newer one
// resolves when the newest run completes, with that run's result.
type Job struct {
	done chan struct{}
	err  error
}

// Wait blocks until the job's run (or the run that superseded it) has
// completed, or the context ends.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return j.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type workKind int

const (
	kindStart workKind = iota
	kindUpdate
	kindReset
)

// work is one queued pipeline run. The session holds at most one pending
// work: submitting while one is pending replaces it, and the replaced
// work's waiters are carried over to the replacement.
type work struct {
	kind   workKind
	rec    *record
	matrix mgl64.Mat4
	jobs   []*Job
}

// UpdateComponent queues an incremental update moving comp to matrix. The
// run applies only the delta against the component's last committed
// matrix, composed onto the positions already resident in the buffers, and
// adds the imprecision of that composition to the component's accumulated
// error. If another update is queued before this one runs, the newest
// matrix wins and this job resolves with the newest run's result.
func (s *Session) UpdateComponent(comp Component, matrix mgl64.Mat4) *Job {
	rec, failed := s.lookupFor(comp)
	if failed != nil {
		return failed
	}
	return s.submit(&work{kind: kindUpdate, rec: rec, matrix: matrix})
}

// ResetComponent queues a full resync of comp: world positions are rebuilt
// from the component's original atom data and current matrix, re-uploaded,
// and the accumulated error drops to exactly zero.
func (s *Session) ResetComponent(comp Component) *Job {
	rec, failed := s.lookupFor(comp)
	if failed != nil {
		return failed
	}
	return s.submit(&work{kind: kindReset, rec: rec})
}

// lookupFor resolves comp to its record, or to a pre-failed job for
// callers operating on components this session never registered.
func (s *Session) lookupFor(comp Component) (*record, *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byComp[comp]
	if !ok {
		s.logger.Errorw("unknown component", "component", comp.Name())
		return nil, failedJob(errors.Errorf(
			"component %q not registered in this session", comp.Name()))
	}
	if !s.started {
		return nil, failedJob(errors.New("session not started"))
	}
	if s.disposed {
		return nil, failedJob(errors.New("session disposed"))
	}
	return rec, nil
}

func failedJob(err error) *Job {
	j := &Job{done: make(chan struct{}), err: err}
	close(j.done)
	return j
}

// submit queues w, coalescing against any still-pending work, and starts
// the run loop if it is not already running.
func (s *Session) submit(w *work) *Job {
	j := &Job{done: make(chan struct{})}
	w.jobs = append(w.jobs, j)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		w.jobs = append(s.pending.jobs, w.jobs...)
	}
	s.pending = w
	if !s.running {
		s.running = true
		go s.loop()
	}
	return j
}

// loop drains the pending slot until it stays empty. Runs execute one at
// a time; the slot's replace-on-submit behavior is what coalesces bursts
// of updates down to "run once with the newest matrix".
func (s *Session) loop() {
	for {
		s.mu.Lock()
		w := s.pending
		s.pending = nil
		if w == nil {
			s.running = false
			if s.idle != nil {
				close(s.idle)
				s.idle = nil
			}
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		err := s.execute(w)
		for _, j := range w.jobs {
			j.err = err
			close(j.done)
		}
	}
}

// waitIdle blocks until no run is executing or pending.
func (s *Session) waitIdle(ctx context.Context) error {
	s.mu.Lock()
	for s.running || s.pending != nil {
		if s.idle == nil {
			s.idle = make(chan struct{})
		}
		ch := s.idle
		s.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
		s.mu.Lock()
	}
	s.mu.Unlock()
	return nil
}

// execute performs one pipeline run. Runs are never cancelled mid-flight,
// so they use a background context; a caller abandoning its Wait does not
// stop the run.
func (s *Session) execute(w *work) error {
	ctx := context.Background()
	s.mu.Lock()
	lenience := float32(s.params.Lenience)
	s.mu.Unlock()

	switch w.kind {
	case kindStart:
		return s.pipe.Run(ctx, nil, lenience)

	case kindUpdate:
		old := w.rec.matrix
		if old.Det() == 0 {
			return errors.Errorf(
				"component %q has a non-invertible committed matrix; reset it",
				w.rec.comp.Name())
		}
		delta := w.matrix.Mul4(old.Inv())
		tr := &pipeline.Transform{
			Delta: mat4To32(delta),
			Start: w.rec.start,
			End:   w.rec.end,
		}
		if err := s.pipe.Run(ctx, tr, lenience); err != nil {
			// The assign pass commits moved positions before later passes
			// run, so the buffers may no longer match the committed matrix.
			s.logger.Errorw("update run failed; reset the component to resync",
				"component", w.rec.comp.Name(), "error", err)
			return err
		}

		step := matrixDrift(delta, old, w.matrix)
		s.mu.Lock()
		w.rec.matrix = w.matrix
		w.rec.err += step
		newErr := w.rec.err
		s.mu.Unlock()
		s.notifyError(w.rec.comp, newErr)
		return nil

	case kindReset:
		m := w.rec.comp.Matrix()
		s.packComponent(w.rec, &m)
		if err := s.pipe.Run(ctx, nil, lenience); err != nil {
			return err
		}
		s.mu.Lock()
		w.rec.matrix = m
		w.rec.err = 0
		s.mu.Unlock()
		s.notifyError(w.rec.comp, 0)
		return nil
	}
	return errors.Errorf("unknown work kind %d", w.kind)
}

func (s *Session) notifyError(comp Component, err float64) {
	s.mu.Lock()
	fns := append([]func(Component, float64){}, s.errorFns...)
	s.mu.Unlock()
	for _, fn := range fns {
		fn(comp, err)
	}
}

// matrixDrift measures how far composing delta onto the old committed
// matrix lands from the requested one: the elementwise L1 difference of
// delta*old and new. Exact arithmetic would give zero; what remains is
// inversion and composition noise, the same noise the buffered positions
// absorbed. Deliberately unnormalized.
func matrixDrift(delta, old, newM mgl64.Mat4) float64 {
	diff := delta.Mul4(old).Sub(newM)
	return floats.Norm(diff[:], 1)
}

func mat4To32(m mgl64.Mat4) mgl32.Mat4 {
	var out mgl32.Mat4
	for i := range m {
		out[i] = float32(m[i])
	}
	return out
}
