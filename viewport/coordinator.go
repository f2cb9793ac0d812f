package viewport

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/TFMV/forcegraph/eventloop"
	"github.com/TFMV/forcegraph/render"
)

// Surface receives new output dimensions.
type Surface interface {
	Resize(vp render.Viewport)
}

// Centered is a simulation whose centering force can be retargeted.
type Centered interface {
	SetCenter(x, y float64)
}

// Option customises a Coordinator.
type Option func(*Coordinator)

// WithDelay sets the debounce delay.
func WithDelay(d time.Duration) Option {
	return func(c *Coordinator) {
		c.delay = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Coordinator) {
		c.logger = l
	}
}

// OnFlush registers fn to run after every applied resize.
func OnFlush(fn func(vp render.Viewport)) Option {
	return func(c *Coordinator) {
		c.onFlush = append(c.onFlush, fn)
	}
}

// Coordinator collects viewport observations and applies the latest one
// once they settle.
type Coordinator struct {
	surface  Surface
	sim      Centered
	debounce *Debouncer
	delay    time.Duration
	latest   render.Viewport
	applied  render.Viewport
	closed   bool

	onFlush []func(vp render.Viewport)
	logger  *log.Logger
}

// NewCoordinator creates a coordinator feeding surface and sim.
func NewCoordinator(sched eventloop.Scheduler, surface Surface, sim Centered, opts ...Option) *Coordinator {
	c := &Coordinator{
		surface: surface,
		sim:     sim,
		delay:   DefaultDelay,
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithPrefix("viewport")
	c.debounce = NewDebouncer(sched, c.delay, c.Flush)
	return c
}

// SetSimulation replaces the simulation to retarget. A nil sim is allowed
// while no graph is loaded.
func (c *Coordinator) SetSimulation(sim Centered) {
	c.sim = sim
}

// Observe records a viewport size and schedules a flush.
func (c *Coordinator) Observe(vp render.Viewport) {
	if c.closed {
		return
	}
	c.latest = vp
	c.debounce.Schedule()
}

// Latest returns the last observed viewport.
func (c *Coordinator) Latest() render.Viewport {
	return c.latest
}

// Applied returns the last viewport handed to the surface.
func (c *Coordinator) Applied() render.Viewport {
	return c.applied
}

// Flush applies the latest observation now.
func (c *Coordinator) Flush() {
	if c.closed {
		return
	}
	c.debounce.Cancel()
	vp := c.latest
	c.applied = vp
	c.surface.Resize(vp)
	if c.sim != nil {
		c.sim.SetCenter(vp.Width/2, vp.Height/2)
	}
	c.logger.Debug("viewport applied", "width", vp.Width, "height", vp.Height, "ratio", vp.PixelRatio)
	for _, fn := range c.onFlush {
		fn(vp)
	}
}

// Close cancels a pending flush. Later observations are ignored.
func (c *Coordinator) Close() {
	c.debounce.Close()
	c.closed = true
}
