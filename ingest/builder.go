package ingest

import (
	"strconv"

	"github.com/TFMV/forcegraph/models"
)

// Builder assembles a document by node name. Node and edge ids are
// sequential integers; an edge added by name connects every node carrying
// the source name to every node carrying the target name once Finalize runs.
type Builder struct {
	name   string
	nodes  []*models.Node
	edges  []pendingEdge
	nextID int
}

type pendingEdge struct {
	source, target, label string
}

// NewBuilder returns an empty builder named "New Graph".
func NewBuilder() *Builder {
	return &Builder{name: "New Graph"}
}

// SetName sets the document name.
func (b *Builder) SetName(name string) *Builder {
	b.name = name
	return b
}

// AddNode adds a node displaying name and returns its id.
func (b *Builder) AddNode(name string) string {
	id := b.generateID()
	b.nodes = append(b.nodes, &models.Node{ID: id, Name: name})
	return id
}

// AddEdge records an edge between node names.
func (b *Builder) AddEdge(source, target, label string) *Builder {
	b.generateID()
	b.edges = append(b.edges, pendingEdge{source: source, target: target, label: label})
	return b
}

// Finalize resolves names to ids and returns the document. Names matching
// no node produce no edge; names matching several nodes produce one edge
// per combination.
func (b *Builder) Finalize() *models.GraphDocument {
	byName := make(map[string][]*models.Node)
	for _, n := range b.nodes {
		byName[n.Name] = append(byName[n.Name], n)
	}

	doc := &models.GraphDocument{Name: b.name}
	for _, n := range b.nodes {
		c := *n
		doc.Nodes = append(doc.Nodes, &c)
	}
	for _, e := range b.edges {
		for _, s := range byName[e.source] {
			for _, t := range byName[e.target] {
				edge := models.NewEdge(b.generateID(), s.ID, t.ID)
				edge.Name = e.label
				doc.Edges = append(doc.Edges, edge)
			}
		}
	}
	return doc
}

func (b *Builder) generateID() string {
	b.nextID++
	return strconv.Itoa(b.nextID)
}
