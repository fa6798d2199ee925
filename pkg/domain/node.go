package domain

import (
	"maps"
	"slices"
)

// EdgeKind identifies the relationship an edge models.
type EdgeKind string

const (
	// KindDock attaches a candidate node to the boundary of a parent (candidate -> parent).
	KindDock EdgeKind = "dock"
	// KindChild models containment (parent -> child).
	KindChild EdgeKind = "child"
	// KindConnection is a generic connector between two nodes (source -> target).
	KindConnection EdgeKind = "connection"
)

// Valid reports whether k is one of the known relationship kinds.
func (k EdgeKind) Valid() bool {
	switch k {
	case KindDock, KindChild, KindConnection:
		return true
	}
	return false
}

// Node represents an element of the diagram graph.
// Edges are referenced by ID only; the graph store resolves them through its index.
type Node struct {
	ID string `json:"id" yaml:"id"`

	// Labels are role names (e.g. "task", "lane") that rule sets match against.
	Labels []string `json:"labels,omitempty" yaml:"labels,omitempty"`

	// Content is the domain payload. The engine never interprets it.
	Content map[string]any `json:"content,omitempty" yaml:"content,omitempty"`

	// InEdges and OutEdges hold edge IDs in insertion order.
	InEdges  []string `json:"in_edges,omitempty" yaml:"in_edges,omitempty"`
	OutEdges []string `json:"out_edges,omitempty" yaml:"out_edges,omitempty"`
}

// HasLabel reports whether the node carries the given label.
func (n *Node) HasLabel(label string) bool {
	return slices.Contains(n.Labels, label)
}

// Clone returns a copy that shares no slices or top-level maps with n.
func (n *Node) Clone() *Node {
	return &Node{
		ID:       n.ID,
		Labels:   slices.Clone(n.Labels),
		Content:  maps.Clone(n.Content),
		InEdges:  slices.Clone(n.InEdges),
		OutEdges: slices.Clone(n.OutEdges),
	}
}

// Edge is a typed relationship between two nodes.
// SourceID and TargetID are empty when the corresponding end is not connected.
type Edge struct {
	ID       string         `json:"id" yaml:"id"`
	Kind     EdgeKind       `json:"kind" yaml:"kind"`
	SourceID string         `json:"source,omitempty" yaml:"source,omitempty"`
	TargetID string         `json:"target,omitempty" yaml:"target,omitempty"`
	Content  map[string]any `json:"content,omitempty" yaml:"content,omitempty"`
}

// Clone returns a copy of the edge with its own content map.
func (e *Edge) Clone() *Edge {
	c := *e
	c.Content = maps.Clone(e.Content)
	return &c
}
