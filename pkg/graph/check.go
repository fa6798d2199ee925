package graph

import (
	"errors"
	"fmt"
	"slices"
)

// Check verifies the index invariants and returns every problem found, joined.
//
//   - every edge ID listed by a node is indexed and points back at that node;
//   - every endpoint set on an edge is an indexed node that lists the edge;
//   - no edge is listed twice by the same node;
//   - every indexed edge has a known kind and at least one endpoint.
func (s *Store) Check() error {
	var problems []error

	for _, n := range s.Nodes() {
		if dup := firstDuplicate(n.InEdges); dup != "" {
			problems = append(problems, fmt.Errorf("node %q lists incoming edge %q twice", n.ID, dup))
		}
		if dup := firstDuplicate(n.OutEdges); dup != "" {
			problems = append(problems, fmt.Errorf("node %q lists outgoing edge %q twice", n.ID, dup))
		}
		for _, id := range n.InEdges {
			e, ok := s.edges[id]
			if !ok {
				problems = append(problems, fmt.Errorf("node %q references unknown incoming edge %q", n.ID, id))
				continue
			}
			if e.TargetID != n.ID {
				problems = append(problems, fmt.Errorf("node %q lists incoming edge %q targeting %q", n.ID, id, e.TargetID))
			}
		}
		for _, id := range n.OutEdges {
			e, ok := s.edges[id]
			if !ok {
				problems = append(problems, fmt.Errorf("node %q references unknown outgoing edge %q", n.ID, id))
				continue
			}
			if e.SourceID != n.ID {
				problems = append(problems, fmt.Errorf("node %q lists outgoing edge %q sourced at %q", n.ID, id, e.SourceID))
			}
		}
	}

	for _, e := range s.Edges() {
		if !e.Kind.Valid() {
			problems = append(problems, fmt.Errorf("edge %q has unknown kind %q", e.ID, e.Kind))
		}
		if e.SourceID == "" && e.TargetID == "" {
			problems = append(problems, fmt.Errorf("edge %q is not connected to any node", e.ID))
		}
		if e.SourceID != "" {
			src, ok := s.nodes[e.SourceID]
			switch {
			case !ok:
				problems = append(problems, fmt.Errorf("edge %q references unknown source %q", e.ID, e.SourceID))
			case !slices.Contains(src.OutEdges, e.ID):
				problems = append(problems, fmt.Errorf("edge %q missing from outgoing edges of %q", e.ID, e.SourceID))
			}
		}
		if e.TargetID != "" {
			tgt, ok := s.nodes[e.TargetID]
			switch {
			case !ok:
				problems = append(problems, fmt.Errorf("edge %q references unknown target %q", e.ID, e.TargetID))
			case !slices.Contains(tgt.InEdges, e.ID):
				problems = append(problems, fmt.Errorf("edge %q missing from incoming edges of %q", e.ID, e.TargetID))
			}
		}
	}

	return errors.Join(problems...)
}

func firstDuplicate(ids []string) string {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return id
		}
		seen[id] = struct{}{}
	}
	return ""
}
