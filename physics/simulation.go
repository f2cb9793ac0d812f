// Package physics implements the force-directed layout engine: a velocity
// Verlet style integrator cooled by an "alpha" temperature, with link,
// many-body and centering forces.
//
// A Simulation is not safe for concurrent use. It is meant to be driven from
// a single event loop together with the renderer and the drag controller
// that read and write its nodes.
package physics

import (
	"math"
	"time"

	"github.com/charmbracelet/log"

	"github.com/TFMV/forcegraph/eventloop"
	"github.com/TFMV/forcegraph/graph"
	"github.com/TFMV/forcegraph/models"
)

// Config holds the physical constants of a simulation.
type Config struct {
	LinkDistance     float64       // target separation of linked nodes
	Charge           float64       // many-body strength; negative repels
	Theta            float64       // Barnes-Hut opening ratio
	DistanceMin      float64       // many-body distances are clamped below this
	ApproximateAbove int           // node count at which the quadtree replaces exact pairs
	CenterStrength   float64       // gain pulling the centroid to the center
	VelocityDecay    float64       // fraction of velocity lost each tick
	Alpha            float64       // initial temperature
	AlphaMin         float64       // temperature at which the simulation idles
	AlphaDecay       float64       // fraction of the distance to the target closed each tick
	TickInterval     time.Duration // delay between scheduled ticks
	Seed             int64         // seed for placement and jitter noise
}

// DefaultConfig returns the constants used when a view is not configured.
func DefaultConfig() Config {
	alphaMin := 0.001
	return Config{
		LinkDistance:     100,
		Charge:           -30,
		Theta:            0.9,
		DistanceMin:      1,
		ApproximateAbove: 64,
		CenterStrength:   0.1,
		VelocityDecay:    0.4,
		Alpha:            1,
		AlphaMin:         alphaMin,
		AlphaDecay:       AlphaDecayFor(alphaMin),
		TickInterval:     16 * time.Millisecond,
		Seed:             1,
	}
}

// AlphaDecayFor returns the decay that cools alpha from 1 to alphaMin in
// 300 ticks.
func AlphaDecayFor(alphaMin float64) float64 {
	return 1 - math.Pow(alphaMin, 1.0/300)
}

// Force is one term of the simulation. Initialize is called once with the
// node and edge sets; Apply adds the force's contribution to node velocities
// (or positions) for the given alpha.
type Force interface {
	Initialize(nodes []*models.Node, edges []*models.Edge)
	Apply(alpha float64)
}

type namedForce struct {
	name  string
	force Force
}

// Option customises a Simulation.
type Option func(*Simulation)

// WithScheduler sets the scheduler driving Start and Restart. Without one the
// simulation only advances through explicit Tick or Step calls.
func WithScheduler(s eventloop.Scheduler) Option {
	return func(sim *Simulation) {
		sim.sched = s
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(sim *Simulation) {
		sim.logger = l
	}
}

// WithLinkDistance replaces the constant link distance with a per-edge one.
func WithLinkDistance(fn func(e *models.Edge) float64) Option {
	return func(sim *Simulation) {
		sim.linkDistance = fn
	}
}

// Simulation owns the mutable layout state of one graph view.
type Simulation struct {
	cfg    Config
	nodes  []*models.Node
	edges  []*models.Edge
	forces []namedForce
	center *Center
	jitter *Jitter

	alpha         float64
	alphaTarget   float64
	velocityDecay float64
	ticks         int

	linkDistance func(e *models.Edge) float64

	sched     eventloop.Scheduler
	handle    eventloop.Handle
	running   bool
	destroyed bool

	onTick []func()
	onEnd  []func()

	logger *log.Logger
}

// NewSimulation builds the simulation state for a resolved graph laid out in
// a width x height viewport. Nodes without a position are placed on a spiral
// around the center. The link, charge and center forces are registered in
// that order.
func NewSimulation(g *graph.Graph, width, height float64, cfg Config, opts ...Option) *Simulation {
	s := &Simulation{
		cfg:           cfg,
		nodes:         g.Nodes,
		edges:         g.Edges,
		jitter:        NewJitter(cfg.Seed),
		alpha:         cfg.Alpha,
		velocityDecay: 1 - cfg.VelocityDecay,
		logger:        log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithPrefix("physics")

	s.place(width/2, height/2)

	distance := s.linkDistance
	if distance == nil {
		d := cfg.LinkDistance
		distance = func(*models.Edge) float64 { return d }
	}
	s.center = NewCenter(width/2, height/2, cfg.CenterStrength)
	s.AddForce("link", NewLink(g, distance, s.jitter))
	s.AddForce("charge", NewManyBody(cfg.Charge, cfg.Theta, cfg.DistanceMin, cfg.ApproximateAbove, s.jitter))
	s.AddForce("center", s.center)

	s.logger.Debug("simulation created", "nodes", len(s.nodes), "edges", len(s.edges))
	return s
}

// phyllotaxis constants for initial placement
var (
	initialRadius = 10.0
	initialAngle  = math.Pi * (3 - math.Sqrt(5))
)

// place positions unplaced nodes on a sunflower spiral around (cx, cy),
// nudged by seeded noise so repeated loads of the same seed agree.
func (s *Simulation) place(cx, cy float64) {
	for i, n := range s.nodes {
		if n.FX != nil {
			n.X = *n.FX
		}
		if n.FY != nil {
			n.Y = *n.FY
		}
		if n.Placed() {
			continue
		}
		radius := initialRadius * math.Sqrt(0.5+float64(i))
		angle := float64(i) * initialAngle
		n.X = cx + radius*math.Cos(angle) + s.jitter.Offset(i, 0)
		n.Y = cy + radius*math.Sin(angle) + s.jitter.Offset(i, 1)
		if math.IsNaN(n.VX) {
			n.VX = 0
		}
		if math.IsNaN(n.VY) {
			n.VY = 0
		}
	}
}

// AddForce registers a force after the existing ones. Forces run in
// registration order every tick.
func (s *Simulation) AddForce(name string, f Force) {
	f.Initialize(s.nodes, s.edges)
	s.forces = append(s.forces, namedForce{name: name, force: f})
}

// Nodes returns the simulated nodes. The slice must not be replaced or
// reordered; fields are updated in place.
func (s *Simulation) Nodes() []*models.Node {
	return s.nodes
}

// Edges returns the accepted, resolved edges.
func (s *Simulation) Edges() []*models.Edge {
	return s.edges
}

// Alpha returns the current temperature.
func (s *Simulation) Alpha() float64 {
	return s.alpha
}

// AlphaTarget returns the temperature the simulation is cooling toward.
func (s *Simulation) AlphaTarget() float64 {
	return s.alphaTarget
}

// SetAlphaTarget sets the temperature the simulation cools (or warms) toward.
// A target above AlphaMin keeps the simulation running.
func (s *Simulation) SetAlphaTarget(target float64) {
	s.alphaTarget = target
}

// Ticks returns the number of ticks run so far.
func (s *Simulation) Ticks() int {
	return s.ticks
}

// Center returns the centering force target.
func (s *Simulation) Center() (x, y float64) {
	return s.center.X, s.center.Y
}

// SetCenter retargets the centering force.
func (s *Simulation) SetCenter(x, y float64) {
	s.center.X = x
	s.center.Y = y
}

// OnTick registers fn to run after every tick.
func (s *Simulation) OnTick(fn func()) {
	s.onTick = append(s.onTick, fn)
}

// OnEnd registers fn to run when the simulation cools below AlphaMin.
func (s *Simulation) OnEnd(fn func()) {
	s.onEnd = append(s.onEnd, fn)
}

// Tick advances the simulation by one integration step without firing
// listeners. Forces run first; free nodes then integrate their velocity with
// decay while pinned nodes are clamped to their fixed position.
func (s *Simulation) Tick() {
	s.alpha += (s.alphaTarget - s.alpha) * s.cfg.AlphaDecay

	for _, f := range s.forces {
		f.force.Apply(s.alpha)
	}

	for _, n := range s.nodes {
		if n.FX != nil {
			n.X = *n.FX
			n.VX = 0
		} else {
			n.VX *= s.velocityDecay
			n.X += n.VX
		}
		if n.FY != nil {
			n.Y = *n.FY
			n.VY = 0
		} else {
			n.VY *= s.velocityDecay
			n.Y += n.VY
		}
	}
	s.ticks++
}

// Step runs one tick, notifies tick listeners and reports whether the
// simulation has cooled below AlphaMin.
func (s *Simulation) Step() bool {
	s.Tick()
	for _, fn := range s.onTick {
		fn()
	}
	return s.alpha < s.cfg.AlphaMin
}

// KineticEnergy returns the total kinetic energy of all nodes, counting each
// node as unit mass.
func (s *Simulation) KineticEnergy() float64 {
	var e float64
	for _, n := range s.nodes {
		e += 0.5 * (n.VX*n.VX + n.VY*n.VY)
	}
	return e
}

// Idle reports whether no tick is scheduled.
func (s *Simulation) Idle() bool {
	return !s.running
}

// Start schedules ticks until the simulation cools. It is the same as
// Restart and exists for readability at creation time.
func (s *Simulation) Start() {
	s.Restart()
}

// Restart resumes scheduled ticks if the simulation is idle. The temperature
// is left alone; callers wanting a visible reaction raise the alpha target
// or call Reheat.
func (s *Simulation) Restart() {
	if s.destroyed || s.running || s.sched == nil {
		return
	}
	s.running = true
	s.handle = s.sched.AfterFunc(0, s.frame)
}

// Reheat raises the temperature to at least alpha and restarts.
func (s *Simulation) Reheat(alpha float64) {
	if alpha > s.alpha {
		s.alpha = alpha
	}
	s.Restart()
}

// Stop cancels the scheduled tick, leaving the state untouched.
func (s *Simulation) Stop() {
	if s.handle != nil {
		s.handle.Cancel()
		s.handle = nil
	}
	s.running = false
}

// Destroy stops the simulation for good. No listener fires after Destroy
// returns and Restart becomes a no-op.
func (s *Simulation) Destroy() {
	s.Stop()
	s.destroyed = true
	s.onTick = nil
	s.onEnd = nil
}

// Destroyed reports whether Destroy has been called.
func (s *Simulation) Destroyed() bool {
	return s.destroyed
}

func (s *Simulation) frame() {
	s.handle = nil
	if s.destroyed || !s.running {
		return
	}
	if s.Step() {
		s.running = false
		s.logger.Debug("simulation idle", "ticks", s.ticks, "energy", s.KineticEnergy())
		for _, fn := range s.onEnd {
			fn()
		}
		return
	}
	if s.destroyed {
		return
	}
	s.handle = s.sched.AfterFunc(s.cfg.TickInterval, s.frame)
}
