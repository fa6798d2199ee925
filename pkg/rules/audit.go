package rules

import (
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/graph"
)

// Audit evaluates an existing diagram as if it had been built edge by edge.
// Nodes are added first; each edge is then evaluated against the graph holding
// only the edges before it, in snapshot order, and linked. Index inconsistencies
// are returned as an error wrapping domain.ErrInvalidArgument.
func Audit(snap *domain.Snapshot, ev Evaluator) (*domain.Result, error) {
	if _, err := graph.FromSnapshot(snap); err != nil {
		return nil, err
	}
	if ev == nil {
		ev = Permissive
	}

	res := domain.Success()
	replay := graph.New(snap.DiagramID)
	for _, n := range snap.Nodes {
		change := domain.Change{Kind: domain.ChangeAddNode, NodeID: n.ID, Labels: n.Labels}
		res.Add(ev.Evaluate(change, replay)...)
		node := n.Clone()
		node.InEdges, node.OutEdges = nil, nil
		if err := replay.RegisterNode(node); err != nil {
			return nil, err
		}
	}

	for _, e := range snap.Edges {
		change := domain.Change{
			Kind:     addingChange(e.Kind),
			EdgeKind: e.Kind,
			EdgeID:   e.ID,
			SourceID: e.SourceID,
			TargetID: e.TargetID,
		}
		res.Add(ev.Evaluate(change, replay)...)

		edge := e.Clone()
		edge.SourceID, edge.TargetID = "", ""
		src, _ := replay.ResolveNode(e.SourceID)
		tgt, _ := replay.ResolveNode(e.TargetID)
		replay.Link(edge, src, tgt)
		if err := replay.RegisterEdge(edge); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func addingChange(kind domain.EdgeKind) domain.ChangeKind {
	switch kind {
	case domain.KindDock:
		return domain.ChangeDock
	case domain.KindChild:
		return domain.ChangeSetParent
	}
	return domain.ChangeConnect
}
