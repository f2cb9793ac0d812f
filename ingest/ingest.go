// Package ingest decodes graph documents from JSON, YAML, TOML and CSV edge
// lists, and builds documents from node names.
package ingest

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/TFMV/forcegraph/errors"
	"github.com/TFMV/forcegraph/models"
)

// DataProcessor decodes one input format into a graph document.
type DataProcessor interface {
	// ProcessData takes raw bytes and returns the document they describe
	ProcessData(data []byte) (*models.GraphDocument, error)

	// GetName returns the name of the processor
	GetName() string
}

// JSONProcessor handles the document JSON served by the graph API.
type JSONProcessor struct{}

// GetName returns the name of the processor
func (p *JSONProcessor) GetName() string {
	return "JSON Processor"
}

// ProcessData processes JSON data
func (p *JSONProcessor) ProcessData(data []byte) (*models.GraphDocument, error) {
	var doc models.GraphDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "error parsing JSON")
	}
	return &doc, nil
}

// YAMLProcessor handles YAML documents with the same field names as JSON.
type YAMLProcessor struct{}

// GetName returns the name of the processor
func (p *YAMLProcessor) GetName() string {
	return "YAML Processor"
}

// ProcessData processes YAML data
func (p *YAMLProcessor) ProcessData(data []byte) (*models.GraphDocument, error) {
	var doc models.GraphDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "error parsing YAML")
	}
	return &doc, nil
}

// TOMLProcessor handles TOML documents using [[nodes]] and [[edges]] tables.
type TOMLProcessor struct{}

// GetName returns the name of the processor
func (p *TOMLProcessor) GetName() string {
	return "TOML Processor"
}

// ProcessData processes TOML data
func (p *TOMLProcessor) ProcessData(data []byte) (*models.GraphDocument, error) {
	var doc models.GraphDocument
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "error parsing TOML")
	}
	return &doc, nil
}

// CSVProcessor handles edge lists: a header row naming source and target
// columns, optionally a label column. Nodes are created for every id seen.
type CSVProcessor struct{}

// GetName returns the name of the processor
func (p *CSVProcessor) GetName() string {
	return "CSV Processor"
}

// ProcessData processes CSV data
func (p *CSVProcessor) ProcessData(data []byte) (*models.GraphDocument, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "error reading CSV header")
	}

	sourceIdx, targetIdx, labelIdx := -1, -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "source", "from", "src":
			sourceIdx = i
		case "target", "to", "dst":
			targetIdx = i
		case "label", "name", "title":
			labelIdx = i
		}
	}
	if sourceIdx == -1 || targetIdx == -1 {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "CSV must contain source and target columns")
	}

	doc := &models.GraphDocument{Name: "CSV Import"}
	seen := make(map[string]bool)
	addNode := func(id string) {
		if !seen[id] {
			seen[id] = true
			doc.Nodes = append(doc.Nodes, models.NewNode(id, ""))
		}
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "error reading CSV row")
		}
		source, target := row[sourceIdx], row[targetIdx]
		if source == "" || target == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput, "CSV row has an empty endpoint: %q", strings.Join(row, ","))
		}
		addNode(source)
		addNode(target)

		e := models.NewEdge("", source, target)
		if labelIdx >= 0 && labelIdx < len(row) {
			e.Label = row[labelIdx]
		}
		doc.Edges = append(doc.Edges, e)
	}
	doc.DeriveEdgeIDs()
	return doc, nil
}

// GetProcessor returns the appropriate processor for the given format
func GetProcessor(format string) (DataProcessor, error) {
	switch strings.ToLower(format) {
	case "json":
		return &JSONProcessor{}, nil
	case "yaml", "yml":
		return &YAMLProcessor{}, nil
	case "toml":
		return &TOMLProcessor{}, nil
	case "csv":
		return &CSVProcessor{}, nil
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "unsupported format: %s", format)
	}
}

// DetectFormat returns the format implied by a file name's extension.
func DetectFormat(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

// Decode reads a whole document in the given format.
func Decode(r io.Reader, format string) (*models.GraphDocument, error) {
	p, err := GetProcessor(format)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "failed to read input")
	}
	return p.ProcessData(data)
}

// LoadFile decodes the document at path. An empty format is detected from
// the extension.
func LoadFile(path, format string) (*models.GraphDocument, error) {
	if format == "" {
		format = DetectFormat(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNotFound, err, "failed to open %s", path)
	}
	defer f.Close()
	return Decode(f, format)
}
