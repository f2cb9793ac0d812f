package render

import (
	"github.com/TFMV/forcegraph/geometry"
	"github.com/TFMV/forcegraph/models"
)

const (
	nodeLabelRunes = 5
	edgeLabelRunes = 6
)

// Truncate shortens text to k runes followed by "...". Text shorter than
// k+2 runes is returned unchanged, so truncation always saves space.
func Truncate(text string, k int) string {
	r := []rune(text)
	if len(r) < k+2 {
		return text
	}
	return string(r[:k]) + "..."
}

// NodeLabel is the text drawn inside a node.
func NodeLabel(n *models.Node) string {
	return Truncate(n.DisplayLabel(), nodeLabelRunes)
}

// EdgeLabel is the text drawn along an edge.
func EdgeLabel(e *models.Edge) string {
	return Truncate(e.DisplayLabel(), edgeLabelRunes)
}

// Curve is the quadratic Bézier an edge is drawn along. Start is the
// endpoint with the smaller x so labels read left to right.
type Curve struct {
	Start   geometry.Vec
	Control geometry.Vec
	End     geometry.Vec
}

// EdgeCurve computes the curve for a resolved edge. The control point sits
// off the source-target midpoint, offset by curvature per group index step.
func EdgeCurve(e *models.Edge, curvature float64) Curve {
	p0 := geometry.Vec{X: e.FromNode.X, Y: e.FromNode.Y}
	p1 := geometry.Vec{X: e.ToNode.X, Y: e.ToNode.Y}
	start, end := p0, p1
	if p1.X < p0.X {
		start, end = p1, p0
	}
	return Curve{
		Start:   start,
		Control: geometry.CurveControl(p0, p1, e.GroupIndex, curvature),
		End:     end,
	}
}

// Length approximates the arc length of the curve.
func (c Curve) Length() float64 {
	return geometry.QuadLength(c.Start, c.Control, c.End)
}

// Midpoint returns the point halfway along the curve parameter.
func (c Curve) Midpoint() geometry.Vec {
	return geometry.QuadPoint(c.Start, c.Control, c.End, 0.5)
}
