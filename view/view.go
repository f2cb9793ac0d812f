// Package view composes the layout engine for one mounted graph: simulation,
// render backend, drag controller and resize coordinator, all driven by a
// single scheduler.
package view

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/TFMV/forcegraph/errors"
	"github.com/TFMV/forcegraph/eventloop"
	"github.com/TFMV/forcegraph/graph"
	"github.com/TFMV/forcegraph/interact"
	"github.com/TFMV/forcegraph/metrics"
	"github.com/TFMV/forcegraph/models"
	"github.com/TFMV/forcegraph/physics"
	"github.com/TFMV/forcegraph/render"
	"github.com/TFMV/forcegraph/viewport"
)

// ResizeAlpha is the temperature a resize reheats the layout to.
const ResizeAlpha = 0.3

// Options configures a View.
type Options struct {
	Physics         physics.Config
	Directed        bool          // group parallel edges by ordered (source, target)
	LabelAwareLinks bool          // add half of each endpoint's label width to the link distance
	ResizeDelay     time.Duration // debounce delay for Resize
	MaxTicks        int           // Settle gives up after this many ticks
	Logger          *log.Logger
	Metrics         *metrics.Registry
}

// DefaultOptions returns the options used by the CLI and server.
func DefaultOptions() Options {
	return Options{
		Physics:     physics.DefaultConfig(),
		Directed:    true,
		ResizeDelay: viewport.DefaultDelay,
		MaxTicks:    1000,
	}
}

// View is one graph view. Every method must be called from the scheduler's
// execution context.
type View struct {
	sched   eventloop.Scheduler
	backend render.Backend
	opts    Options
	logger  *log.Logger

	coord *viewport.Coordinator
	doc   *models.GraphDocument
	sim   *physics.Simulation
	drag  *interact.Controller

	mounted bool
	closed  bool
	drawErr error
}

// New creates an unmounted view drawing into backend.
func New(sched eventloop.Scheduler, backend render.Backend, opts Options) *View {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	v := &View{
		sched:   sched,
		backend: backend,
		opts:    opts,
		logger:  opts.Logger.WithPrefix("view"),
	}
	coordOpts := []viewport.Option{
		viewport.WithLogger(opts.Logger),
		viewport.OnFlush(v.resized),
	}
	if opts.ResizeDelay > 0 {
		coordOpts = append(coordOpts, viewport.WithDelay(opts.ResizeDelay))
	}
	v.coord = viewport.NewCoordinator(sched, backend, nil, coordOpts...)
	if opts.Metrics != nil {
		opts.Metrics.ActiveViews.Inc()
	}
	return v
}

// Mount gives the backend its first surface. It applies immediately rather
// than through the resize debounce.
func (v *View) Mount(vp render.Viewport) error {
	if v.closed {
		return errors.New(errors.ErrCodeClosed, "view is closed")
	}
	if !vp.Valid() {
		return errors.New(errors.ErrCodeInvalidInput, "viewport must have a positive size, got %gx%g", vp.Width, vp.Height)
	}
	v.coord.Observe(vp)
	v.coord.Flush()
	v.mounted = true
	return nil
}

// Load replaces the displayed document. The previous simulation is
// destroyed and a new one is built from a private copy of doc. Edges naming
// unknown nodes are skipped; they are reported in the returned error while
// the view keeps running with everything else. A document that fails
// validation is not loaded at all.
func (v *View) Load(doc *models.GraphDocument) error {
	if v.closed {
		return errors.New(errors.ErrCodeClosed, "view is closed")
	}
	if !v.mounted {
		return errors.New(errors.ErrCodeNoSurface, "view is not mounted")
	}
	if doc == nil {
		return errors.New(errors.ErrCodeInvalidInput, "document is nil")
	}

	next := doc.Clone()
	next.DeriveEdgeIDs()
	if err := next.Validate(); err != nil {
		return err
	}

	v.release()

	g, rejected := graph.Resolve(next.Nodes, next.Edges)
	graph.AssignGroups(g.Edges, v.opts.Directed)
	if n := errors.Count(rejected, errors.ErrCodeInvalidEdge); n > 0 {
		v.logger.Warn("edges rejected", "count", n, "document", next.ID)
		if v.opts.Metrics != nil {
			v.opts.Metrics.RejectedEdgesTotal.Add(float64(n))
		}
	}

	if err := v.backend.Sync(g.Nodes, g.Edges); err != nil {
		return err
	}

	vp := v.coord.Applied()
	simOpts := []physics.Option{
		physics.WithScheduler(v.sched),
		physics.WithLogger(v.opts.Logger),
	}
	if v.opts.LabelAwareLinks {
		d := v.opts.Physics.LinkDistance
		simOpts = append(simOpts, physics.WithLinkDistance(func(e *models.Edge) float64 {
			return d + (e.FromNode.Width+e.ToNode.Width)/2
		}))
	}
	v.doc = next
	v.sim = physics.NewSimulation(g, vp.Width, vp.Height, v.opts.Physics, simOpts...)
	v.sim.OnTick(func() {
		if v.opts.Metrics != nil {
			v.opts.Metrics.TicksTotal.Inc()
		}
		v.draw()
	})
	v.sim.OnEnd(func() {
		v.logger.Debug("layout at rest", "ticks", v.sim.Ticks())
	})

	dragOpts := []interact.Option{interact.WithLogger(v.opts.Logger)}
	if v.opts.Metrics != nil {
		drags := v.opts.Metrics.DragsTotal
		dragOpts = append(dragOpts, interact.OnPress(func(string) { drags.Inc() }))
	}
	v.drag = interact.NewController(v.sim, g.Nodes, dragOpts...)
	v.coord.SetSimulation(v.sim)

	v.logger.Info("graph loaded", "document", next.ID, "nodes", len(g.Nodes), "edges", len(g.Edges))
	v.draw()
	v.sim.Start()
	return rejected
}

// PointerDown starts dragging nodeID.
func (v *View) PointerDown(pointer int, nodeID string, x, y float64) error {
	if v.closed {
		return nil
	}
	if v.drag == nil {
		return errors.New(errors.ErrCodeNotFound, "no graph loaded")
	}
	return v.drag.Press(pointer, nodeID, x, y)
}

// PointerMove moves the pointer's dragged node.
func (v *View) PointerMove(pointer int, x, y float64) error {
	if v.closed {
		return nil
	}
	if v.drag == nil {
		return errors.New(errors.ErrCodeNotFound, "no graph loaded")
	}
	return v.drag.Move(pointer, x, y)
}

// PointerUp releases the pointer's dragged node.
func (v *View) PointerUp(pointer int) error {
	if v.closed {
		return nil
	}
	if v.drag == nil {
		return errors.New(errors.ErrCodeNotFound, "no graph loaded")
	}
	return v.drag.Release(pointer)
}

// Resize reports a new viewport size. It is applied after the debounce
// delay.
func (v *View) Resize(vp render.Viewport) {
	if v.closed {
		return
	}
	v.coord.Observe(vp)
}

func (v *View) resized(vp render.Viewport) {
	if v.opts.Metrics != nil && v.mounted {
		v.opts.Metrics.ResizesTotal.Inc()
	}
	if v.sim == nil {
		return
	}
	v.draw()
	v.sim.Reheat(ResizeAlpha)
}

func (v *View) draw() {
	if v.sim == nil {
		return
	}
	start := time.Now()
	err := v.backend.Draw(v.sim.Nodes(), v.sim.Edges())
	if v.opts.Metrics != nil {
		v.opts.Metrics.RecordDraw(string(v.backend.Kind()), time.Since(start))
	}
	if err != nil && v.drawErr == nil {
		v.logger.Error("draw failed", "err", err)
	}
	v.drawErr = err
}

// Encode writes the backend's current surface.
func (v *View) Encode(w io.Writer) error {
	if v.closed {
		return errors.New(errors.ErrCodeClosed, "view is closed")
	}
	return v.backend.Encode(w)
}

// Err returns the error of the most recent draw.
func (v *View) Err() error {
	return v.drawErr
}

// Document returns the view's copy of the loaded document. Node positions
// are live.
func (v *View) Document() *models.GraphDocument {
	return v.doc
}

// Simulation returns the running simulation, or nil before Load.
func (v *View) Simulation() *physics.Simulation {
	return v.sim
}

// Drag returns the drag controller, or nil before Load.
func (v *View) Drag() *interact.Controller {
	return v.drag
}

// Backend returns the render backend.
func (v *View) Backend() render.Backend {
	return v.backend
}

// Viewport returns the applied viewport.
func (v *View) Viewport() render.Viewport {
	return v.coord.Applied()
}

// Closed reports whether Close has been called.
func (v *View) Closed() bool {
	return v.closed
}

// Close tears the view down: no tick, draw or resize flush runs afterwards
// and pointer events become no-ops.
func (v *View) Close() {
	if v.closed {
		return
	}
	v.release()
	v.coord.Close()
	v.backend.Teardown()
	v.closed = true
	if v.opts.Metrics != nil {
		v.opts.Metrics.ActiveViews.Dec()
	}
	v.logger.Debug("view closed")
}

func (v *View) release() {
	if v.drag != nil {
		v.drag.Close()
		v.drag = nil
	}
	if v.sim != nil {
		v.sim.Destroy()
		v.sim = nil
	}
	v.coord.SetSimulation(nil)
}
