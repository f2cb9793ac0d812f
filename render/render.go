// Package render draws a simulated graph. Two interchangeable backends share
// one contract: a retained-mode backend that keeps an element per node and
// edge id and serialises to SVG, and an immediate-mode backend that redraws
// a raster surface from scratch every frame.
package render

import (
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/TFMV/forcegraph/errors"
	"github.com/TFMV/forcegraph/models"
)

// Kind names a backend variant.
type Kind string

const (
	KindRetained  Kind = "retained"
	KindImmediate Kind = "immediate"
)

// ParseKind accepts a backend name or the output format it produces.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "retained", "svg":
		return KindRetained, nil
	case "immediate", "png", "raster":
		return KindImmediate, nil
	default:
		return "", errors.New(errors.ErrCodeUnsupported, "unsupported render backend: %s", s)
	}
}

// Shape selects how the immediate backend draws nodes.
type Shape string

const (
	ShapeRect   Shape = "rect"
	ShapeCircle Shape = "circle"
)

// Viewport is the logical drawing area and the device pixel ratio.
type Viewport struct {
	Width      float64
	Height     float64
	PixelRatio float64
}

// Valid reports whether the viewport can back a surface.
func (v Viewport) Valid() bool {
	return v.Width > 0 && v.Height > 0
}

func (v Viewport) ratio() float64 {
	if v.PixelRatio <= 0 {
		return 1
	}
	return v.PixelRatio
}

// Palette holds the stroke and fill colors.
type Palette struct {
	Background      string
	NodeFill        string
	NodeStroke      string
	NodeStrokeWidth float64
	Text            string
	EdgeStroke      string
	EdgeStrokeWidth float64
}

// Options defines rendering configuration.
type Options struct {
	Palette    Palette
	FontSize   float64 // label font size in logical units
	Padding    float64 // space between a label and its node outline
	Curvature  float64 // control point offset per group index step
	NodeShape  Shape   // immediate backend only
	NodeRadius float64 // circle radius when NodeShape is ShapeCircle
	EdgeLabels bool    // draw edge labels along the path
	Logger     *log.Logger
}

// NewDefaultOptions returns the standard look.
func NewDefaultOptions() Options {
	return Options{
		Palette: Palette{
			Background:      "#ffffff",
			NodeFill:        "#dfe6e9",
			NodeStroke:      "#636e72",
			NodeStrokeWidth: 1,
			Text:            "#2d3436",
			EdgeStroke:      "#636e72",
			EdgeStrokeWidth: 1,
		},
		FontSize:   12,
		Padding:    4,
		Curvature:  40,
		NodeShape:  ShapeRect,
		NodeRadius: 8,
		EdgeLabels: true,
	}
}

// Backend is the capability every render variant provides. Sync is called
// when the node or edge set changes; Draw on every simulation tick. Both
// return a NO_SURFACE error until Resize has been given a positive size and
// again after Teardown.
type Backend interface {
	Sync(nodes []*models.Node, edges []*models.Edge) error
	Draw(nodes []*models.Node, edges []*models.Edge) error
	Resize(vp Viewport)
	Viewport() Viewport
	Encode(w io.Writer) error
	Teardown()
	Kind() Kind
	ContentType() string
}

// New creates a backend of the given kind.
func New(kind Kind, opts Options) (Backend, error) {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	measurer, err := NewMeasurer(opts.FontSize)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindRetained:
		return NewRetained(opts, measurer), nil
	case KindImmediate:
		return NewImmediate(opts, measurer), nil
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "unsupported render backend: %s", kind)
	}
}

func noSurface(kind Kind) error {
	return errors.New(errors.ErrCodeNoSurface, "%s backend has no surface", kind)
}
