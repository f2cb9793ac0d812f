package render

import (
	"fmt"
	"html"
	"io"
	"math"

	svg "github.com/ajstarks/svgo"

	"github.com/TFMV/forcegraph/models"
)

// NodeElement is the persistent visual element of one node.
type NodeElement struct {
	ID     string
	Label  string
	Width  float64 // label box, without padding
	Height float64

	// position-dependent attributes, updated every Draw
	RectX, RectY float64
	TextX, TextY float64
}

// EdgeElement is the persistent visual element of one edge.
type EdgeElement struct {
	ID     string
	PathID string
	Label  string

	// position-dependent attributes, updated every Draw
	Curve       Curve
	PathLength  float64
	StartOffset float64
}

// Path returns the SVG path data of the committed curve.
func (e *EdgeElement) Path() string {
	c := e.Curve
	return fmt.Sprintf("M %.2f %.2f Q %.2f %.2f %.2f %.2f",
		c.Start.X, c.Start.Y, c.Control.X, c.Control.Y, c.End.X, c.End.Y)
}

// Retained keeps one element per node and edge id. Sync reconciles the
// element set against the data; Draw only touches positions.
type Retained struct {
	opts     Options
	measurer *Measurer
	vp       Viewport
	surface  bool

	nodes     map[string]*NodeElement
	edges     map[string]*EdgeElement
	nodeOrder []string
	edgeOrder []string
}

// NewRetained creates a retained-mode backend.
func NewRetained(opts Options, measurer *Measurer) *Retained {
	return &Retained{
		opts:     opts,
		measurer: measurer,
		nodes:    make(map[string]*NodeElement),
		edges:    make(map[string]*EdgeElement),
	}
}

func (r *Retained) Kind() Kind          { return KindRetained }
func (r *Retained) ContentType() string { return "image/svg+xml" }
func (r *Retained) Viewport() Viewport  { return r.vp }

// Resize sets the document size. A non-positive size leaves the backend
// without a surface.
func (r *Retained) Resize(vp Viewport) {
	r.vp = vp
	r.surface = vp.Valid()
}

// Sync creates elements for new ids and removes elements for ids that are
// gone. Existing elements keep their identity. A node's label is measured
// when its element is created or its label text changes; otherwise later
// documents carrying the same id reuse the cached size.
func (r *Retained) Sync(nodes []*models.Node, edges []*models.Edge) error {
	if !r.surface {
		return noSurface(KindRetained)
	}

	seen := make(map[string]struct{}, len(nodes))
	r.nodeOrder = r.nodeOrder[:0]
	created, relabeled := 0, 0
	for _, n := range nodes {
		seen[n.ID] = struct{}{}
		r.nodeOrder = append(r.nodeOrder, n.ID)
		el, ok := r.nodes[n.ID]
		if !ok {
			r.measurer.MeasureNode(n)
			el = &NodeElement{ID: n.ID, Label: NodeLabel(n), Width: n.Width, Height: n.Height}
			r.nodes[n.ID] = el
			created++
			continue
		}
		if label := NodeLabel(n); label != el.Label {
			n.Width, n.Height = r.measurer.Measure(label)
			el.Label, el.Width, el.Height = label, n.Width, n.Height
			relabeled++
		} else if n.Width == 0 && n.Height == 0 {
			n.Width, n.Height = el.Width, el.Height
		}
	}
	removed := 0
	for id := range r.nodes {
		if _, ok := seen[id]; !ok {
			delete(r.nodes, id)
			removed++
		}
	}

	seen = make(map[string]struct{}, len(edges))
	r.edgeOrder = r.edgeOrder[:0]
	for _, e := range edges {
		seen[e.ID] = struct{}{}
		r.edgeOrder = append(r.edgeOrder, e.ID)
		if el, ok := r.edges[e.ID]; ok {
			el.Label = EdgeLabel(e)
		} else {
			r.edges[e.ID] = &EdgeElement{ID: e.ID, PathID: "edge-" + e.ID, Label: EdgeLabel(e)}
		}
	}
	for id := range r.edges {
		if _, ok := seen[id]; !ok {
			delete(r.edges, id)
		}
	}

	r.opts.Logger.Debug("retained elements reconciled",
		"nodes", len(r.nodes), "created", created, "relabeled", relabeled,
		"removed", removed, "edges", len(r.edges))
	return nil
}

// Draw updates the position-dependent attributes of existing elements. Edge
// paths are committed first; label offsets are a second pass over the
// committed path lengths.
func (r *Retained) Draw(nodes []*models.Node, edges []*models.Edge) error {
	if !r.surface {
		return noSurface(KindRetained)
	}
	pad := r.opts.Padding

	for _, e := range edges {
		el, ok := r.edges[e.ID]
		if !ok || !e.Resolved() {
			continue
		}
		el.Curve = EdgeCurve(e, r.opts.Curvature)
		el.PathLength = el.Curve.Length()
	}
	for _, e := range edges {
		if el, ok := r.edges[e.ID]; ok {
			el.StartOffset = el.PathLength / 2
		}
	}

	for _, n := range nodes {
		el, ok := r.nodes[n.ID]
		if !ok {
			continue
		}
		el.RectX = n.X - el.Width/2 - pad
		el.RectY = n.Y - el.Height/2 - pad
		el.TextX = n.X
		el.TextY = n.Y
	}
	return nil
}

// Node returns the element for a node id.
func (r *Retained) Node(id string) (*NodeElement, bool) {
	el, ok := r.nodes[id]
	return el, ok
}

// Edge returns the element for an edge id.
func (r *Retained) Edge(id string) (*EdgeElement, bool) {
	el, ok := r.edges[id]
	return el, ok
}

// Len returns the number of node and edge elements.
func (r *Retained) Len() (nodes, edges int) {
	return len(r.nodes), len(r.edges)
}

// Encode writes the element tree as an SVG document. Edges are drawn under
// nodes.
func (r *Retained) Encode(w io.Writer) error {
	if !r.surface {
		return noSurface(KindRetained)
	}
	p := r.opts.Palette
	pad := r.opts.Padding
	width := int(math.Ceil(r.vp.Width))
	height := int(math.Ceil(r.vp.Height))

	canvas := svg.New(w)
	canvas.Start(width, height)
	if p.Background != "" {
		canvas.Rect(0, 0, width, height, attr("fill", p.Background))
	}

	canvas.Group(attr("class", "edges"))
	for _, id := range r.edgeOrder {
		el := r.edges[id]
		canvas.Group(attr("class", "edge"))
		canvas.Path(el.Path(),
			attr("id", el.PathID),
			attr("fill", "none"),
			attr("stroke", p.EdgeStroke),
			attr("stroke-width", num(p.EdgeStrokeWidth)))
		if r.opts.EdgeLabels && el.Label != "" {
			fmt.Fprintf(canvas.Writer, "<text %s %s %s><textPath %s %s>%s</textPath></text>\n",
				attr("text-anchor", "middle"),
				attr("fill", p.Text),
				attr("font-size", num(r.opts.FontSize)),
				attr("xlink:href", "#"+el.PathID),
				attr("startOffset", num(el.StartOffset)),
				html.EscapeString(el.Label))
		}
		canvas.Gend()
	}
	canvas.Gend()

	canvas.Group(attr("class", "nodes"))
	for _, id := range r.nodeOrder {
		el := r.nodes[id]
		canvas.Group(attr("class", "node"), attr("transform", fmt.Sprintf("translate(%.2f,%.2f)", el.RectX, el.RectY)))
		canvas.Rect(0, 0,
			int(math.Ceil(el.Width+2*pad)), int(math.Ceil(el.Height+2*pad)),
			attr("fill", p.NodeFill),
			attr("stroke", p.NodeStroke),
			attr("stroke-width", num(p.NodeStrokeWidth)))
		canvas.Text(int(math.Round(el.TextX-el.RectX)), int(math.Round(el.TextY-el.RectY)),
			el.Label,
			attr("text-anchor", "middle"),
			attr("dominant-baseline", "middle"),
			attr("fill", p.Text),
			attr("font-family", "Go, sans-serif"),
			attr("font-size", num(r.opts.FontSize)))
		canvas.Gend()
	}
	canvas.Gend()

	canvas.End()
	return nil
}

// Teardown drops every element and the surface.
func (r *Retained) Teardown() {
	r.surface = false
	r.nodes = make(map[string]*NodeElement)
	r.edges = make(map[string]*EdgeElement)
	r.nodeOrder = nil
	r.edgeOrder = nil
}

// attr formats a raw SVG attribute for svgo.
func attr(name, value string) string {
	return fmt.Sprintf(`%s="%s"`, name, html.EscapeString(value))
}

func num(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
