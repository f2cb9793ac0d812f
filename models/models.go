// Package models provides the data structures shared by the layout engine,
// the render backends and the hosts: nodes, edges and the graph document
// handed in by the data collaborator.
package models

// Node is a graph vertex. Position and velocity are owned by the simulation,
// FX/FY by whoever pins the node (the drag controller), Width/Height by the
// render backend that measured the label.
type Node struct {
	ID    string `json:"id" yaml:"id" toml:"id"`
	Label string `json:"label,omitempty" yaml:"label,omitempty" toml:"label,omitempty"`
	Name  string `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`

	X  float64 `json:"x,omitempty" yaml:"x,omitempty" toml:"x,omitempty"`
	Y  float64 `json:"y,omitempty" yaml:"y,omitempty" toml:"y,omitempty"`
	VX float64 `json:"vx,omitempty" yaml:"-" toml:"-"`
	VY float64 `json:"vy,omitempty" yaml:"-" toml:"-"`

	// FX and FY pin the node when non-nil.
	FX *float64 `json:"fx,omitempty" yaml:"fx,omitempty" toml:"fx,omitempty"`
	FY *float64 `json:"fy,omitempty" yaml:"fy,omitempty" toml:"fy,omitempty"`

	Width  float64 `json:"width,omitempty" yaml:"-" toml:"-"`
	Height float64 `json:"height,omitempty" yaml:"-" toml:"-"`
}

// Edge connects two nodes. Source and Target hold node ids as supplied;
// FromNode and ToNode are bound during resolution and then moved by the
// simulation every tick.
type Edge struct {
	ID     string `json:"id" yaml:"id" toml:"id"`
	Label  string `json:"label,omitempty" yaml:"label,omitempty" toml:"label,omitempty"`
	Name   string `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	Source string `json:"source" yaml:"source" toml:"source"`
	Target string `json:"target" yaml:"target" toml:"target"`

	FromNode *Node `json:"-" yaml:"-" toml:"-"`
	ToNode   *Node `json:"-" yaml:"-" toml:"-"`

	// GroupIndex offsets parallel edges; 0 is straight.
	GroupIndex int `json:"groupIndex" yaml:"-" toml:"-"`
}

// GraphDocument is the immutable input handed in by the data collaborator.
type GraphDocument struct {
	ID    string  `json:"id,omitempty" yaml:"id,omitempty" toml:"id,omitempty"`
	Name  string  `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	Nodes []*Node `json:"nodes" yaml:"nodes" toml:"nodes"`
	Edges []*Edge `json:"edges" yaml:"edges" toml:"edges"`
}
