package view

import (
	"context"

	"github.com/TFMV/forcegraph/errors"
	"github.com/TFMV/forcegraph/eventloop"
	"github.com/TFMV/forcegraph/models"
	"github.com/TFMV/forcegraph/render"
)

// ctxCheckEvery is how many scheduled callbacks run between context checks.
const ctxCheckEvery = 64

// SettleResult describes a headless layout run.
type SettleResult struct {
	Document *models.GraphDocument // the laid out copy of the input
	Ticks    int
	AtRest   bool  // false when MaxTicks stopped the run first
	Rejected error // edges skipped during load, if any
}

// Settle lays doc out headlessly: it mounts a view on a manual scheduler,
// runs the simulation until it comes to rest (or MaxTicks) and leaves the
// final frame on backend for the caller to encode. The backend is not torn
// down.
func Settle(ctx context.Context, doc *models.GraphDocument, backend render.Backend, vp render.Viewport, opts Options) (*SettleResult, error) {
	m := eventloop.NewManual()
	v := New(m, backend, opts)
	defer v.detach()

	if err := v.Mount(vp); err != nil {
		return nil, err
	}
	rejected := v.Load(doc)
	if rejected != nil && !errors.Is(rejected, errors.ErrCodeInvalidEdge) {
		return nil, rejected
	}

	limit := opts.MaxTicks
	if limit <= 0 {
		limit = DefaultOptions().MaxTicks
	}
	sim := v.Simulation()
	for !sim.Idle() && sim.Ticks() < limit {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "layout cancelled after %d ticks", sim.Ticks())
		}
		if m.RunUntilIdle(ctxCheckEvery) == 0 {
			break
		}
	}
	res := &SettleResult{
		Document: v.Document(),
		Ticks:    sim.Ticks(),
		AtRest:   sim.Idle(),
		Rejected: rejected,
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	if opts.Metrics != nil {
		opts.Metrics.SettleTicks.Observe(float64(res.Ticks))
	}
	v.logger.Debug("settled", "ticks", res.Ticks, "at_rest", res.AtRest)
	return res, nil
}

// detach stops the view without tearing down its backend.
func (v *View) detach() {
	if v.closed {
		return
	}
	v.release()
	v.coord.Close()
	v.closed = true
	if v.opts.Metrics != nil {
		v.opts.Metrics.ActiveViews.Dec()
	}
}
