package render

import (
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/TFMV/forcegraph/errors"
	"github.com/TFMV/forcegraph/models"
)

// Measurer computes label bounding boxes with the Go Regular font.
type Measurer struct {
	face   font.Face
	height float64
}

// NewMeasurer loads Go Regular at the given size in logical units.
func NewMeasurer(size float64) (*Measurer, error) {
	if size <= 0 {
		size = 12
	}
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "failed to parse label font")
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "failed to create label font face")
	}
	m := face.Metrics()
	return &Measurer{
		face:   face,
		height: float64(m.Ascent+m.Descent) / 64,
	}, nil
}

// Face returns the font face used for drawing.
func (m *Measurer) Face() font.Face {
	return m.face
}

// Measure returns the advance width and line height of text.
func (m *Measurer) Measure(text string) (width, height float64) {
	return float64(font.MeasureString(m.face, text)) / 64, m.height
}

// MeasureNode caches the label box on the node unless it already has one.
func (m *Measurer) MeasureNode(n *models.Node) {
	if n.Width != 0 || n.Height != 0 {
		return
	}
	n.Width, n.Height = m.Measure(NodeLabel(n))
}
