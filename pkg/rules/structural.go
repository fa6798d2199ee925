package rules

import (
	"github.com/aretw0/espalier/pkg/domain"
)

// Structural returns the evaluator for invariants shared by every diagram type:
//
//   - a node is docked to at most one parent;
//   - a node has at most one containing parent, and containment is acyclic;
//   - a connection from a node to itself is flagged as a warning;
//   - deleting a node that still has edges is reported as info.
func Structural() Evaluator {
	return EvaluatorFunc(evaluateStructural)
}

func evaluateStructural(change domain.Change, g Graph) []domain.Violation {
	switch change.Kind {
	case domain.ChangeDock:
		return checkSingleDock(change, g)
	case domain.ChangeSetParent:
		return checkContainment(change, g)
	case domain.ChangeConnect:
		if change.SourceID != "" && change.SourceID == change.TargetID {
			return []domain.Violation{domain.NewViolation(domain.SeverityWarning, change.SourceID,
				"connection from %q to itself", change.SourceID)}
		}
	case domain.ChangeDeleteNode:
		n, err := g.ResolveNode(change.NodeID)
		if err != nil {
			return nil
		}
		if count := len(g.InEdges(n)) + len(g.OutEdges(n)); count > 0 {
			return []domain.Violation{domain.NewViolation(domain.SeverityInfo, n.ID,
				"deleting %q also removes %d edge(s)", n.ID, count)}
		}
	}
	return nil
}

func checkSingleDock(change domain.Change, g Graph) []domain.Violation {
	candidate, err := g.ResolveNode(change.ChildID())
	if err != nil {
		return nil
	}
	for _, e := range g.OutEdges(candidate) {
		if e.Kind == domain.KindDock && e.TargetID != change.ParentID() {
			return []domain.Violation{domain.NewViolation(domain.SeverityError, candidate.ID,
				"%q is already docked to %q", candidate.ID, e.TargetID)}
		}
	}
	return nil
}

func checkContainment(change domain.Change, g Graph) []domain.Violation {
	child, err := g.ResolveNode(change.ChildID())
	if err != nil {
		return nil
	}
	if current := parentOf(g, child); current != "" && current != change.ParentID() {
		return []domain.Violation{domain.NewViolation(domain.SeverityError, child.ID,
			"%q is already contained by %q", child.ID, current)}
	}

	// Walk up from the new parent; meeting the child means a cycle.
	seen := map[string]bool{}
	id := change.ParentID()
	for id != "" && !seen[id] {
		if id == child.ID {
			return []domain.Violation{domain.NewViolation(domain.SeverityError, child.ID,
				"making %q a child of %q would create a containment cycle", child.ID, change.ParentID())}
		}
		seen[id] = true
		n, err := g.ResolveNode(id)
		if err != nil {
			break
		}
		id = parentOf(g, n)
	}
	return nil
}

// parentOf returns the source of the first child edge entering n, or "".
func parentOf(g Graph, n *domain.Node) string {
	for _, e := range g.InEdges(n) {
		if e.Kind == domain.KindChild {
			return e.SourceID
		}
	}
	return ""
}
