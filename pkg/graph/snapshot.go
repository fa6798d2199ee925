package graph

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/aretw0/espalier/pkg/domain"
)

// Snapshot copies the current graph into a serializable value.
// Nodes and edges are sorted by ID; edge lists keep their order.
func (s *Store) Snapshot() *domain.Snapshot {
	snap := domain.NewSnapshot(s.diagramID)
	for _, n := range s.Nodes() {
		snap.Nodes = append(snap.Nodes, *n.Clone())
	}
	for _, e := range s.Edges() {
		snap.Edges = append(snap.Edges, *e.Clone())
	}
	return snap
}

// FromSnapshot builds a store from a persisted snapshot.
// This is the only bulk load of the index; the result is checked before it is returned.
func FromSnapshot(snap *domain.Snapshot) (*Store, error) {
	if snap == nil {
		return nil, fmt.Errorf("%w: snapshot is nil", domain.ErrInvalidArgument)
	}
	s := New(snap.DiagramID)
	for i := range snap.Nodes {
		if err := s.RegisterNode(snap.Nodes[i].Clone()); err != nil {
			return nil, fmt.Errorf("failed to load node: %w", err)
		}
	}
	for i := range snap.Edges {
		if err := s.RegisterEdge(snap.Edges[i].Clone()); err != nil {
			return nil, fmt.Errorf("failed to load edge: %w", err)
		}
	}
	if err := s.Check(); err != nil {
		return nil, fmt.Errorf("%w: inconsistent snapshot %q: %w", domain.ErrInvalidArgument, snap.DiagramID, err)
	}
	return s, nil
}

// Restore replaces the contents of s with snap in place.
// It does not consult any rules; s is unchanged when snap is inconsistent.
func (s *Store) Restore(snap *domain.Snapshot) error {
	loaded, err := FromSnapshot(snap)
	if err != nil {
		return err
	}
	s.nodes, s.edges = loaded.nodes, loaded.edges
	return nil
}

// Differences lists the structural differences between two snapshots:
// node IDs, labels and content, each node's edge set, and each edge's kind,
// endpoints and content. Edge list order is ignored.
func Differences(a, b *domain.Snapshot) []string {
	var diffs []string

	nodesA := indexNodes(a)
	nodesB := indexNodes(b)
	for id, na := range nodesA {
		nb, ok := nodesB[id]
		if !ok {
			diffs = append(diffs, fmt.Sprintf("node %q only in first", id))
			continue
		}
		if !slices.Equal(sorted(na.Labels), sorted(nb.Labels)) {
			diffs = append(diffs, fmt.Sprintf("node %q labels differ", id))
		}
		if !contentEqual(na.Content, nb.Content) {
			diffs = append(diffs, fmt.Sprintf("node %q content differs", id))
		}
		if !slices.Equal(sorted(na.InEdges), sorted(nb.InEdges)) {
			diffs = append(diffs, fmt.Sprintf("node %q incoming edges differ: %v vs %v", id, na.InEdges, nb.InEdges))
		}
		if !slices.Equal(sorted(na.OutEdges), sorted(nb.OutEdges)) {
			diffs = append(diffs, fmt.Sprintf("node %q outgoing edges differ: %v vs %v", id, na.OutEdges, nb.OutEdges))
		}
	}
	for id := range nodesB {
		if _, ok := nodesA[id]; !ok {
			diffs = append(diffs, fmt.Sprintf("node %q only in second", id))
		}
	}

	edgesA := indexEdges(a)
	edgesB := indexEdges(b)
	for id, ea := range edgesA {
		eb, ok := edgesB[id]
		if !ok {
			diffs = append(diffs, fmt.Sprintf("edge %q only in first", id))
			continue
		}
		if ea.Kind != eb.Kind || ea.SourceID != eb.SourceID || ea.TargetID != eb.TargetID {
			diffs = append(diffs, fmt.Sprintf("edge %q differs: %s %s->%s vs %s %s->%s",
				id, ea.Kind, ea.SourceID, ea.TargetID, eb.Kind, eb.SourceID, eb.TargetID))
		}
		if !contentEqual(ea.Content, eb.Content) {
			diffs = append(diffs, fmt.Sprintf("edge %q content differs", id))
		}
	}
	for id := range edgesB {
		if _, ok := edgesA[id]; !ok {
			diffs = append(diffs, fmt.Sprintf("edge %q only in second", id))
		}
	}

	slices.Sort(diffs)
	return diffs
}

// Equivalent reports whether two snapshots are structurally equal.
func Equivalent(a, b *domain.Snapshot) bool {
	return len(Differences(a, b)) == 0
}

func indexNodes(s *domain.Snapshot) map[string]*domain.Node {
	out := make(map[string]*domain.Node, len(s.Nodes))
	for i := range s.Nodes {
		out[s.Nodes[i].ID] = &s.Nodes[i]
	}
	return out
}

func indexEdges(s *domain.Snapshot) map[string]*domain.Edge {
	out := make(map[string]*domain.Edge, len(s.Edges))
	for i := range s.Edges {
		out[s.Edges[i].ID] = &s.Edges[i]
	}
	return out
}

func sorted(ids []string) []string {
	c := slices.Clone(ids)
	slices.Sort(c)
	return c
}

// contentEqual treats nil and empty payloads as equal.
func contentEqual(a, b map[string]any) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}
