package models

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/TFMV/forcegraph/errors"
)

// edgeNamespace scopes derived edge ids.
var edgeNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/TFMV/forcegraph/edge"))

// NewNode creates a node with the given id and display label.
func NewNode(id, label string) *Node {
	return &Node{ID: id, Label: label}
}

// NewEdge creates an edge between two node ids. An empty id is derived later
// by DeriveEdgeIDs.
func NewEdge(id, source, target string) *Edge {
	return &Edge{ID: id, Source: source, Target: target}
}

// DisplayLabel returns the text a renderer should show for the node.
func (n *Node) DisplayLabel() string {
	switch {
	case n.Label != "":
		return n.Label
	case n.Name != "":
		return n.Name
	default:
		return n.ID
	}
}

// SetPosition moves the node.
func (n *Node) SetPosition(x, y float64) {
	n.X = x
	n.Y = y
}

// Pin fixes the node at (x, y).
func (n *Node) Pin(x, y float64) {
	n.FX = &x
	n.FY = &y
}

// Unpin releases both fixed coordinates.
func (n *Node) Unpin() {
	n.FX = nil
	n.FY = nil
}

// Pinned reports whether either coordinate is fixed.
func (n *Node) Pinned() bool {
	return n.FX != nil || n.FY != nil
}

// Placed reports whether the node carries a position. The origin counts as
// unplaced.
func (n *Node) Placed() bool {
	return n.X != 0 || n.Y != 0
}

// DisplayLabel returns the text a renderer should show along the edge.
func (e *Edge) DisplayLabel() string {
	switch {
	case e.Label != "":
		return e.Label
	case e.Name != "":
		return e.Name
	default:
		return e.ID
	}
}

// Resolved reports whether both endpoints are bound to nodes.
func (e *Edge) Resolved() bool {
	return e.FromNode != nil && e.ToNode != nil
}

// Clone returns a deep copy that shares no pointers with d. Endpoint bindings
// are dropped; they refer to the caller's nodes.
func (d *GraphDocument) Clone() *GraphDocument {
	out := &GraphDocument{
		ID:    d.ID,
		Name:  d.Name,
		Nodes: make([]*Node, 0, len(d.Nodes)),
		Edges: make([]*Edge, 0, len(d.Edges)),
	}
	for _, n := range d.Nodes {
		if n == nil {
			continue
		}
		c := *n
		if n.FX != nil {
			fx := *n.FX
			c.FX = &fx
		}
		if n.FY != nil {
			fy := *n.FY
			c.FY = &fy
		}
		out.Nodes = append(out.Nodes, &c)
	}
	for _, e := range d.Edges {
		if e == nil {
			continue
		}
		c := *e
		c.FromNode = nil
		c.ToNode = nil
		out.Edges = append(out.Edges, &c)
	}
	return out
}

// DeriveEdgeIDs fills empty edge ids with a uuid derived from the endpoints
// and the edge's position in the list, so the same document always yields
// the same ids.
func (d *GraphDocument) DeriveEdgeIDs() {
	for i, e := range d.Edges {
		if e.ID != "" {
			continue
		}
		key := fmt.Sprintf("%s\x00%s\x00%d", e.Source, e.Target, i)
		e.ID = uuid.NewSHA1(edgeNamespace, []byte(key)).String()
	}
}

// Validate checks the identity invariants: every node has a unique non-empty
// id and every edge id is unique. Edge endpoints are checked during
// resolution, where bad edges are skipped rather than failing the document.
func (d *GraphDocument) Validate() error {
	var errs []error
	seen := make(map[string]struct{}, len(d.Nodes))
	for i, n := range d.Nodes {
		if n.ID == "" {
			errs = append(errs, errors.New(errors.ErrCodeInvalidInput, "node at index %d has no id", i))
			continue
		}
		if _, dup := seen[n.ID]; dup {
			errs = append(errs, errors.New(errors.ErrCodeDuplicateID, "node id %q appears more than once", n.ID))
			continue
		}
		seen[n.ID] = struct{}{}
	}
	edgeIDs := make(map[string]struct{}, len(d.Edges))
	for _, e := range d.Edges {
		if e.ID == "" {
			continue
		}
		if _, dup := edgeIDs[e.ID]; dup {
			errs = append(errs, errors.New(errors.ErrCodeDuplicateID, "edge id %q appears more than once", e.ID))
			continue
		}
		edgeIDs[e.ID] = struct{}{}
	}
	return errors.Join(errs...)
}
