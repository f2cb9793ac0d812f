package models

import (
	"github.com/TFMV/forcegraph/errors"
)

// NodeFilter is a function type used to filter nodes in queries
type NodeFilter func(node *Node) bool

// FindNodeByID returns a node by its ID
func (d *GraphDocument) FindNodeByID(id string) (*Node, error) {
	for _, node := range d.Nodes {
		if node.ID == id {
			return node, nil
		}
	}
	return nil, errors.New(errors.ErrCodeNotFound, "node with ID %s not found", id)
}

// FilterNodes returns nodes that match the provided filter function
func (d *GraphDocument) FilterNodes(filter NodeFilter) []*Node {
	var result []*Node
	for _, node := range d.Nodes {
		if filter(node) {
			result = append(result, node)
		}
	}
	return result
}

// IndexNodes maps node ids to nodes. Later duplicates win; Validate reports
// them separately.
func IndexNodes(nodes []*Node) map[string]*Node {
	index := make(map[string]*Node, len(nodes))
	for _, n := range nodes {
		index[n.ID] = n
	}
	return index
}
