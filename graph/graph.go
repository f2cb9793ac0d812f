// Package graph prepares a document's edges for simulation: it assigns the
// parallel-edge group indices and binds edge endpoints to node values.
package graph

import (
	"github.com/TFMV/forcegraph/errors"
	"github.com/TFMV/forcegraph/models"
)

// Graph is a resolved node/edge set. Every edge in Edges has FromNode and
// ToNode pointing into Nodes.
type Graph struct {
	Nodes []*models.Node
	Edges []*models.Edge

	index  map[string]*models.Node
	degree map[string]int
}

// Resolve binds each edge's Source and Target ids to nodes. Edges naming a
// node that does not exist are left out of the result; one INVALID_EDGE error
// per skipped edge is joined into the returned error. The Graph is usable
// whether or not an error is returned.
func Resolve(nodes []*models.Node, edges []*models.Edge) (*Graph, error) {
	g := &Graph{
		Nodes:  nodes,
		Edges:  make([]*models.Edge, 0, len(edges)),
		index:  models.IndexNodes(nodes),
		degree: make(map[string]int, len(nodes)),
	}

	var errs []error
	for _, e := range edges {
		from, okFrom := g.index[e.Source]
		to, okTo := g.index[e.Target]
		if !okFrom || !okTo {
			missing := e.Source
			if okFrom {
				missing = e.Target
			}
			errs = append(errs, errors.New(errors.ErrCodeInvalidEdge,
				"edge %q references unknown node %q", e.ID, missing))
			continue
		}
		e.FromNode = from
		e.ToNode = to
		g.degree[from.ID]++
		g.degree[to.ID]++
		g.Edges = append(g.Edges, e)
	}
	return g, errors.Join(errs...)
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (*models.Node, bool) {
	n, ok := g.index[id]
	return n, ok
}

// Degree returns the number of accepted edge endpoints at the node. A self
// loop counts twice.
func (g *Graph) Degree(id string) int {
	return g.degree[id]
}
