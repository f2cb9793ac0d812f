package physics

import (
	"math"

	"github.com/TFMV/forcegraph/graph"
	"github.com/TFMV/forcegraph/models"
)

// Link pulls (or pushes) the endpoints of every edge toward a target
// distance. Lightly connected nodes move more than heavily connected ones.
type Link struct {
	graph    *graph.Graph
	distance func(e *models.Edge) float64
	jitter   *Jitter

	edges     []*models.Edge
	strengths []float64
	biases    []float64
	distances []float64
}

// NewLink creates the link force for g. distance gives each edge's rest
// length.
func NewLink(g *graph.Graph, distance func(e *models.Edge) float64, jitter *Jitter) *Link {
	return &Link{graph: g, distance: distance, jitter: jitter}
}

func (l *Link) Initialize(_ []*models.Node, edges []*models.Edge) {
	l.edges = edges
	l.strengths = make([]float64, len(edges))
	l.biases = make([]float64, len(edges))
	l.distances = make([]float64, len(edges))
	for i, e := range edges {
		ds := float64(l.graph.Degree(e.Source))
		dt := float64(l.graph.Degree(e.Target))
		l.strengths[i] = 1 / math.Max(1, math.Min(ds, dt))
		if ds+dt > 0 {
			l.biases[i] = ds / (ds + dt)
		} else {
			l.biases[i] = 0.5
		}
		l.distances[i] = l.distance(e)
	}
}

// Distance returns the rest length used for edge i.
func (l *Link) Distance(i int) float64 {
	return l.distances[i]
}

func (l *Link) Apply(alpha float64) {
	for i, e := range l.edges {
		src, tgt := e.FromNode, e.ToNode
		if src == nil || tgt == nil || src == tgt {
			continue
		}
		x := tgt.X + tgt.VX - src.X - src.VX
		y := tgt.Y + tgt.VY - src.Y - src.VY
		if x == 0 {
			x = l.jitter.Jiggle()
		}
		if y == 0 {
			y = l.jitter.Jiggle()
		}
		length := math.Hypot(x, y)
		k := (length - l.distances[i]) / length * alpha * l.strengths[i]
		x *= k
		y *= k

		b := l.biases[i]
		tgt.VX -= x * b
		tgt.VY -= y * b
		src.VX += x * (1 - b)
		src.VY += y * (1 - b)
	}
}

// Center translates all nodes so their centroid moves toward (X, Y). It
// acts on positions, not velocities, so it never adds energy.
type Center struct {
	X, Y     float64
	Strength float64

	nodes []*models.Node
}

// NewCenter creates a centering force at (x, y).
func NewCenter(x, y, strength float64) *Center {
	return &Center{X: x, Y: y, Strength: strength}
}

func (c *Center) Initialize(nodes []*models.Node, _ []*models.Edge) {
	c.nodes = nodes
}

func (c *Center) Apply(float64) {
	if len(c.nodes) == 0 {
		return
	}
	var sx, sy float64
	for _, n := range c.nodes {
		sx += n.X
		sy += n.Y
	}
	count := float64(len(c.nodes))
	dx := (sx/count - c.X) * c.Strength
	dy := (sy/count - c.Y) * c.Strength
	for _, n := range c.nodes {
		n.X -= dx
		n.Y -= dy
	}
}
