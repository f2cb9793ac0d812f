// Package interact turns pointer gestures into simulation pins.
//
// The controller only ever writes a node's FX and FY. Velocities and
// positions stay with the simulation, which clamps pinned nodes on its next
// tick.
package interact

import (
	"github.com/charmbracelet/log"

	"github.com/TFMV/forcegraph/errors"
	"github.com/TFMV/forcegraph/models"
)

// DragAlphaTarget is the temperature held while at least one node is dragged.
const DragAlphaTarget = 0.3

// State is the drag state of one node.
type State int

const (
	Free State = iota
	Dragging
)

func (s State) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "free"
}

// Simulation is the part of the physics engine a drag needs.
type Simulation interface {
	SetAlphaTarget(target float64)
	Restart()
	Idle() bool
}

// Option customises a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// OnPress registers fn to run after a node is pinned by a press.
func OnPress(fn func(nodeID string)) Option {
	return func(c *Controller) {
		c.onPress = append(c.onPress, fn)
	}
}

type drag struct {
	node           *models.Node
	startX, startY float64
}

// Controller tracks active drags by pointer id. Several pointers may drag
// distinct nodes at once.
type Controller struct {
	sim    Simulation
	nodes  map[string]*models.Node
	drags  map[int]*drag
	owners map[string]int
	closed bool

	onPress []func(nodeID string)
	logger  *log.Logger
}

// NewController creates a controller over the simulation's nodes.
func NewController(sim Simulation, nodes []*models.Node, opts ...Option) *Controller {
	c := &Controller{
		sim:    sim,
		nodes:  models.IndexNodes(nodes),
		drags:  make(map[int]*drag),
		owners: make(map[string]int),
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithPrefix("drag")
	return c
}

// Press starts dragging nodeID with the given pointer. The node is pinned
// where it currently is. The first active drag raises the alpha target and
// restarts the simulation if it had gone idle.
func (c *Controller) Press(pointer int, nodeID string, x, y float64) error {
	if c.closed {
		return nil
	}
	n, ok := c.nodes[nodeID]
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "node not found: %s", nodeID)
	}
	if owner, busy := c.owners[nodeID]; busy {
		return errors.New(errors.ErrCodeAlreadyDragging, "node %s is already dragged by pointer %d", nodeID, owner)
	}
	if _, busy := c.drags[pointer]; busy {
		return errors.New(errors.ErrCodeAlreadyDragging, "pointer %d is already dragging", pointer)
	}

	if len(c.drags) == 0 {
		c.sim.SetAlphaTarget(DragAlphaTarget)
		if c.sim.Idle() {
			c.sim.Restart()
		}
	}
	n.Pin(n.X, n.Y)
	c.drags[pointer] = &drag{node: n, startX: x, startY: y}
	c.owners[nodeID] = pointer

	c.logger.Debug("drag start", "node", nodeID, "pointer", pointer)
	for _, fn := range c.onPress {
		fn(nodeID)
	}
	return nil
}

// Move pins the pointer's node at (x, y).
func (c *Controller) Move(pointer int, x, y float64) error {
	if c.closed {
		return nil
	}
	d, ok := c.drags[pointer]
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "pointer %d is not dragging", pointer)
	}
	d.node.Pin(x, y)
	return nil
}

// Release unpins the pointer's node. The last release returns the alpha
// target to zero so the simulation cools again.
func (c *Controller) Release(pointer int) error {
	if c.closed {
		return nil
	}
	d, ok := c.drags[pointer]
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "pointer %d is not dragging", pointer)
	}
	c.end(pointer, d)
	c.logger.Debug("drag end", "node", d.node.ID, "pointer", pointer)
	return nil
}

func (c *Controller) end(pointer int, d *drag) {
	d.node.Unpin()
	delete(c.drags, pointer)
	delete(c.owners, d.node.ID)
	if len(c.drags) == 0 {
		c.sim.SetAlphaTarget(0)
	}
}

// State reports whether nodeID is being dragged.
func (c *Controller) State(nodeID string) State {
	if _, ok := c.owners[nodeID]; ok {
		return Dragging
	}
	return Free
}

// Active returns the number of ongoing drags.
func (c *Controller) Active() int {
	return len(c.drags)
}

// Start returns the pointer position recorded when pointer pressed.
func (c *Controller) Start(pointer int) (x, y float64, ok bool) {
	d, ok := c.drags[pointer]
	if !ok {
		return 0, 0, false
	}
	return d.startX, d.startY, true
}

// Close ends every drag and turns all further calls into no-ops.
func (c *Controller) Close() {
	if c.closed {
		return
	}
	for p, d := range c.drags {
		c.end(p, d)
	}
	c.closed = true
}
