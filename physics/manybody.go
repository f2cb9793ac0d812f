package physics

import (
	"math"

	"gonum.org/v1/gonum/spatial/barneshut"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/TFMV/forcegraph/models"
)

// ManyBody applies an inverse-square force between every pair of nodes.
// Negative strength repels. Small graphs are summed exactly; from
// approximateAbove nodes on, a Barnes-Hut quadtree approximates distant
// clusters by their center of mass.
type ManyBody struct {
	Strength         float64
	Theta            float64
	DistanceMin2     float64
	ApproximateAbove int

	jitter *Jitter
	nodes  []*models.Node
	bodies []*body
	parts  []barneshut.Particle2
}

// body adapts a node to barneshut.Particle2. Every node has unit mass.
type body struct {
	node *models.Node
}

func (b *body) Coord2() r2.Vec { return r2.Vec{X: b.node.X, Y: b.node.Y} }
func (b *body) Mass() float64  { return 1 }

// NewManyBody creates the charge force.
func NewManyBody(strength, theta, distanceMin float64, approximateAbove int, jitter *Jitter) *ManyBody {
	return &ManyBody{
		Strength:         strength,
		Theta:            theta,
		DistanceMin2:     distanceMin * distanceMin,
		ApproximateAbove: approximateAbove,
		jitter:           jitter,
	}
}

func (m *ManyBody) Initialize(nodes []*models.Node, _ []*models.Edge) {
	m.nodes = nodes
	m.bodies = make([]*body, len(nodes))
	m.parts = make([]barneshut.Particle2, len(nodes))
	for i, n := range nodes {
		m.bodies[i] = &body{node: n}
		m.parts[i] = m.bodies[i]
	}
}

func (m *ManyBody) Apply(alpha float64) {
	if len(m.nodes) < 2 || m.Strength == 0 {
		return
	}
	if m.ApproximateAbove > 0 && len(m.nodes) >= m.ApproximateAbove {
		if plane, err := barneshut.NewPlane(m.parts); err == nil {
			m.applyApprox(plane, alpha)
			return
		}
	}
	m.applyExact(alpha)
}

// scale returns the velocity factor for a separation with squared length l.
func (m *ManyBody) scale(l, mass, alpha float64) float64 {
	if l < m.DistanceMin2 {
		l = math.Sqrt(m.DistanceMin2 * l)
	}
	return m.Strength * alpha * mass / l
}

func (m *ManyBody) applyExact(alpha float64) {
	for i, a := range m.nodes {
		for j, b := range m.nodes {
			if i == j {
				continue
			}
			x := b.X - a.X
			y := b.Y - a.Y
			if x == 0 {
				x = m.jitter.Jiggle()
			}
			if y == 0 {
				y = m.jitter.Jiggle()
			}
			w := m.scale(x*x+y*y, 1, alpha)
			a.VX += x * w
			a.VY += y * w
		}
	}
}

func (m *ManyBody) applyApprox(plane *barneshut.Plane, alpha float64) {
	force := func(p1, p2 barneshut.Particle2, _, m2 float64, v r2.Vec) r2.Vec {
		if p2 == p1 {
			return r2.Vec{}
		}
		if v.X == 0 {
			v.X = m.jitter.Jiggle()
		}
		if v.Y == 0 {
			v.Y = m.jitter.Jiggle()
		}
		return r2.Scale(m.scale(r2.Norm2(v), m2, alpha), v)
	}
	// The tree only reads positions, so velocities update in place.
	for _, b := range m.bodies {
		dv := plane.ForceOn(b, m.Theta, force)
		b.node.VX += dv.X
		b.node.VY += dv.Y
	}
}
