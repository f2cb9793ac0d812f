package render

import (
	"io"
	"math"

	"github.com/fogleman/gg"

	"github.com/TFMV/forcegraph/errors"
	"github.com/TFMV/forcegraph/models"
)

// Immediate redraws a raster surface from the current state on every Draw.
// The backing image is PixelRatio times the logical size and the context is
// scaled so drawing code works in logical units.
type Immediate struct {
	opts     Options
	measurer *Measurer
	vp       Viewport
	dc       *gg.Context
	frames   int
}

// NewImmediate creates an immediate-mode backend.
func NewImmediate(opts Options, measurer *Measurer) *Immediate {
	return &Immediate{opts: opts, measurer: measurer}
}

func (r *Immediate) Kind() Kind          { return KindImmediate }
func (r *Immediate) ContentType() string { return "image/png" }
func (r *Immediate) Viewport() Viewport  { return r.vp }

// Resize replaces the backing surface. A non-positive size drops it.
func (r *Immediate) Resize(vp Viewport) {
	r.vp = vp
	if !vp.Valid() {
		r.dc = nil
		return
	}
	ratio := vp.ratio()
	r.dc = gg.NewContext(int(math.Ceil(vp.Width*ratio)), int(math.Ceil(vp.Height*ratio)))
	r.dc.Scale(ratio, ratio)
	r.dc.SetFontFace(r.measurer.Face())
}

// SurfaceSize returns the backing surface size in device pixels.
func (r *Immediate) SurfaceSize() (width, height int) {
	if r.dc == nil {
		return 0, 0
	}
	return r.dc.Width(), r.dc.Height()
}

// Frames returns the number of completed draws.
func (r *Immediate) Frames() int {
	return r.frames
}

// Sync measures labels that have no cached size. There is no element state
// to reconcile.
func (r *Immediate) Sync(nodes []*models.Node, _ []*models.Edge) error {
	if r.dc == nil {
		return noSurface(KindImmediate)
	}
	for _, n := range nodes {
		r.measurer.MeasureNode(n)
	}
	return nil
}

// Draw clears the surface, strokes edges, fills node shapes and draws the
// labels last.
func (r *Immediate) Draw(nodes []*models.Node, edges []*models.Edge) error {
	if r.dc == nil {
		return noSurface(KindImmediate)
	}
	dc := r.dc
	p := r.opts.Palette
	pad := r.opts.Padding

	dc.SetHexColor(p.Background)
	dc.Clear()

	dc.SetHexColor(p.EdgeStroke)
	dc.SetLineWidth(p.EdgeStrokeWidth)
	for _, e := range edges {
		if !e.Resolved() {
			continue
		}
		c := EdgeCurve(e, r.opts.Curvature)
		dc.MoveTo(c.Start.X, c.Start.Y)
		dc.QuadraticTo(c.Control.X, c.Control.Y, c.End.X, c.End.Y)
		dc.Stroke()
	}

	dc.SetLineWidth(p.NodeStrokeWidth)
	for _, n := range nodes {
		switch r.opts.NodeShape {
		case ShapeCircle:
			dc.DrawCircle(n.X, n.Y, r.opts.NodeRadius)
		default:
			w, h := n.Width+2*pad, n.Height+2*pad
			dc.DrawRectangle(n.X-w/2, n.Y-h/2, w, h)
		}
		dc.SetHexColor(p.NodeFill)
		dc.FillPreserve()
		dc.SetHexColor(p.NodeStroke)
		dc.Stroke()
	}

	dc.SetHexColor(p.Text)
	if r.opts.EdgeLabels {
		for _, e := range edges {
			if !e.Resolved() {
				continue
			}
			m := EdgeCurve(e, r.opts.Curvature).Midpoint()
			dc.DrawStringAnchored(EdgeLabel(e), m.X, m.Y, 0.5, 0.5)
		}
	}
	for _, n := range nodes {
		dc.DrawStringAnchored(NodeLabel(n), n.X, n.Y, 0.5, 0.5)
	}

	r.frames++
	return nil
}

// Encode writes the current surface as PNG.
func (r *Immediate) Encode(w io.Writer) error {
	if r.dc == nil {
		return noSurface(KindImmediate)
	}
	if err := r.dc.EncodePNG(w); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "failed to encode png")
	}
	return nil
}

// Teardown drops the surface.
func (r *Immediate) Teardown() {
	r.dc = nil
}
