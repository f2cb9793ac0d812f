package viewport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/forcegraph/eventloop"
	"github.com/TFMV/forcegraph/render"
)

type recordingSurface struct {
	sizes []render.Viewport
}

func (s *recordingSurface) Resize(vp render.Viewport) { s.sizes = append(s.sizes, vp) }

type recordingSim struct {
	x, y  float64
	calls int
}

func (s *recordingSim) SetCenter(x, y float64) {
	s.x, s.y = x, y
	s.calls++
}

func TestDebouncerCollapsesBursts(t *testing.T) {
	m := eventloop.NewManual()
	var fired int
	d := NewDebouncer(m, 100*time.Millisecond, func() { fired++ })

	for i := 0; i < 5; i++ {
		d.Schedule()
		m.Advance(30 * time.Millisecond)
	}
	assert.Zero(t, fired)
	assert.True(t, d.Pending())
	m.Advance(100 * time.Millisecond)
	assert.Equal(t, 1, fired)
	assert.False(t, d.Pending())

	d.Schedule()
	d.Cancel()
	m.Advance(time.Second)
	assert.Equal(t, 1, fired)

	d.Schedule()
	d.Close()
	d.Schedule()
	m.Advance(time.Second)
	assert.Equal(t, 1, fired)
	assert.Zero(t, m.Pending())
}

func TestCoordinatorAppliesLatest(t *testing.T) {
	m := eventloop.NewManual()
	surface := &recordingSurface{}
	sim := &recordingSim{}
	var flushed []render.Viewport
	c := NewCoordinator(m, surface, sim, OnFlush(func(vp render.Viewport) { flushed = append(flushed, vp) }))

	c.Observe(render.Viewport{Width: 300, Height: 200, PixelRatio: 1})
	m.Advance(50 * time.Millisecond)
	c.Observe(render.Viewport{Width: 640, Height: 480, PixelRatio: 2})
	assert.Empty(t, surface.sizes)

	m.Advance(DefaultDelay)
	require.Len(t, surface.sizes, 1)
	assert.Equal(t, render.Viewport{Width: 640, Height: 480, PixelRatio: 2}, surface.sizes[0])
	assert.Equal(t, 320.0, sim.x)
	assert.Equal(t, 240.0, sim.y)
	assert.Equal(t, surface.sizes, flushed)
	assert.Equal(t, c.Latest(), c.Applied())
}

func TestCoordinatorWithoutSimulation(t *testing.T) {
	m := eventloop.NewManual()
	surface := &recordingSurface{}
	c := NewCoordinator(m, surface, nil, WithDelay(10*time.Millisecond))
	c.Observe(render.Viewport{Width: 10, Height: 10})
	m.Advance(10 * time.Millisecond)
	assert.Len(t, surface.sizes, 1)

	sim := &recordingSim{}
	c.SetSimulation(sim)
	c.Observe(render.Viewport{Width: 20, Height: 40})
	c.Flush()
	assert.Equal(t, 1, sim.calls)
	assert.Equal(t, 20.0, sim.y)
	assert.Zero(t, m.Pending())
}

func TestCoordinatorCloseCancelsFlush(t *testing.T) {
	m := eventloop.NewManual()
	surface := &recordingSurface{}
	sim := &recordingSim{}
	c := NewCoordinator(m, surface, sim)

	c.Observe(render.Viewport{Width: 100, Height: 100})
	c.Close()
	m.Advance(time.Second)
	c.Observe(render.Viewport{Width: 200, Height: 200})
	c.Flush()
	m.Advance(time.Second)

	assert.Empty(t, surface.sizes)
	assert.Zero(t, sim.calls)
	assert.Zero(t, m.Pending())
}
