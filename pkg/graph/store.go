package graph

import (
	"fmt"
	"slices"
	"sort"

	"github.com/aretw0/espalier/pkg/domain"
)

// Store owns the canonical state of one diagram.
// Not safe for concurrent use.
type Store struct {
	diagramID string
	nodes     map[string]*domain.Node
	edges     map[string]*domain.Edge
}

// New creates an empty store for the given diagram.
func New(diagramID string) *Store {
	return &Store{
		diagramID: diagramID,
		nodes:     make(map[string]*domain.Node),
		edges:     make(map[string]*domain.Edge),
	}
}

// DiagramID returns the identifier of the diagram this store holds.
func (s *Store) DiagramID() string {
	return s.diagramID
}

// ResolveNode looks up a node by ID.
// An absent ID is a programming error and is reported as domain.ErrNotFound.
func (s *Store) ResolveNode(id string) (*domain.Node, error) {
	n, ok := s.nodes[id]
	if !ok {
		return nil, domain.NodeNotFound(id)
	}
	return n, nil
}

// ResolveEdge looks up an edge by ID.
func (s *Store) ResolveEdge(id string) (*domain.Edge, error) {
	e, ok := s.edges[id]
	if !ok {
		return nil, domain.EdgeNotFound(id)
	}
	return e, nil
}

// HasNode reports whether id is indexed as a node.
func (s *Store) HasNode(id string) bool {
	_, ok := s.nodes[id]
	return ok
}

// HasEdge reports whether id is indexed as an edge.
func (s *Store) HasEdge(id string) bool {
	_, ok := s.edges[id]
	return ok
}

// RegisterNode adds a node to the index.
// Node and edge IDs share one namespace.
func (s *Store) RegisterNode(n *domain.Node) error {
	if n == nil || n.ID == "" {
		return fmt.Errorf("%w: node requires an id", domain.ErrInvalidArgument)
	}
	if s.taken(n.ID) {
		return fmt.Errorf("%w: %q", domain.ErrDuplicate, n.ID)
	}
	s.nodes[n.ID] = n
	return nil
}

// RemoveNode drops a node from the index. Callers detach its edges first.
func (s *Store) RemoveNode(n *domain.Node) {
	delete(s.nodes, n.ID)
}

// RegisterEdge adds an edge to the index.
func (s *Store) RegisterEdge(e *domain.Edge) error {
	if e == nil || e.ID == "" {
		return fmt.Errorf("%w: edge requires an id", domain.ErrInvalidArgument)
	}
	if s.taken(e.ID) {
		return fmt.Errorf("%w: %q", domain.ErrDuplicate, e.ID)
	}
	s.edges[e.ID] = e
	return nil
}

// RemoveEdge drops an edge from the index. Callers unlink it first.
func (s *Store) RemoveEdge(e *domain.Edge) {
	delete(s.edges, e.ID)
}

func (s *Store) taken(id string) bool {
	return s.HasNode(id) || s.HasEdge(id)
}

// Link connects e from source to target, appending it to the source's outgoing
// and the target's incoming edges. Either end may be nil.
func (s *Store) Link(e *domain.Edge, source, target *domain.Node) {
	if source != nil {
		e.SourceID = source.ID
		source.OutEdges = append(source.OutEdges, e.ID)
	}
	if target != nil {
		e.TargetID = target.ID
		target.InEdges = append(target.InEdges, e.ID)
	}
}

// Unlink clears both ends of e and removes it from its endpoints' edge lists.
func (s *Store) Unlink(e *domain.Edge) {
	if src, ok := s.nodes[e.SourceID]; ok {
		src.OutEdges = removeID(src.OutEdges, e.ID)
	}
	if tgt, ok := s.nodes[e.TargetID]; ok {
		tgt.InEdges = removeID(tgt.InEdges, e.ID)
	}
	e.SourceID = ""
	e.TargetID = ""
}

func removeID(ids []string, id string) []string {
	idx := slices.Index(ids, id)
	if idx < 0 {
		return ids
	}
	return slices.Delete(ids, idx, idx+1)
}

// InEdges resolves the incoming edges of n in order.
func (s *Store) InEdges(n *domain.Node) []*domain.Edge {
	return s.resolveEdges(n.InEdges)
}

// OutEdges resolves the outgoing edges of n in order.
func (s *Store) OutEdges(n *domain.Node) []*domain.Edge {
	return s.resolveEdges(n.OutEdges)
}

func (s *Store) resolveEdges(ids []string) []*domain.Edge {
	out := make([]*domain.Edge, 0, len(ids))
	for _, id := range ids {
		if e, ok := s.edges[id]; ok {
			out = append(out, e)
		}
	}
	return out
}

// Nodes returns all nodes sorted by ID.
func (s *Store) Nodes() []*domain.Node {
	out := make([]*domain.Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Edges returns all edges sorted by ID.
func (s *Store) Edges() []*domain.Edge {
	out := make([]*domain.Edge, 0, len(s.edges))
	for _, e := range s.edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of indexed nodes and edges.
func (s *Store) Len() (nodes, edges int) {
	return len(s.nodes), len(s.edges)
}
