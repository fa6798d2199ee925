package domain

// Snapshot is a serializable copy of one diagram.
// Nodes and Edges are sorted by ID when produced by the graph store.
type Snapshot struct {
	DiagramID string `json:"diagram_id" yaml:"diagram_id"`
	Nodes     []Node `json:"nodes" yaml:"nodes"`
	Edges     []Edge `json:"edges" yaml:"edges"`
}

// NewSnapshot creates an empty snapshot for a diagram.
func NewSnapshot(diagramID string) *Snapshot {
	return &Snapshot{
		DiagramID: diagramID,
		Nodes:     []Node{},
		Edges:     []Edge{},
	}
}

// Clone deep-copies the snapshot so stores can hand out isolated values.
func (s *Snapshot) Clone() *Snapshot {
	out := &Snapshot{
		DiagramID: s.DiagramID,
		Nodes:     make([]Node, len(s.Nodes)),
		Edges:     make([]Edge, len(s.Edges)),
	}
	for i := range s.Nodes {
		out.Nodes[i] = *s.Nodes[i].Clone()
	}
	for i := range s.Edges {
		out.Edges[i] = *s.Edges[i].Clone()
	}
	return out
}
