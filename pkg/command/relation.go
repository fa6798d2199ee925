package command

import (
	"maps"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/graph"
)

// relation describes a parent/child edge kind. Dock edges point from the
// candidate to the parent; child edges point from the parent to the child.
type relation struct {
	kind   domain.EdgeKind
	verb   string
	add    func(parentID, childID string) domain.Change
	remove func(parentID, childID string) domain.Change
}

var (
	dockRelation = relation{
		kind:   domain.KindDock,
		verb:   "docked to",
		add:    domain.DockChange,
		remove: domain.UnDockChange,
	}
	childRelation = relation{
		kind:   domain.KindChild,
		verb:   "contained by",
		add:    domain.SetParentChange,
		remove: domain.RemoveParentChange,
	}
)

func (r relation) endpoints(parent, child *domain.Node) (source, target *domain.Node) {
	if r.kind == domain.KindDock {
		return child, parent
	}
	return parent, child
}

// withEdge sets the edge identifier a change refers to.
func withEdge(c domain.Change, edgeID string) domain.Change {
	c.EdgeID = edgeID
	return c
}

// find scans the incoming edges of the target end for an edge of this kind whose
// source is the other end.
func (r relation) find(s *graph.Store, parent, child *domain.Node) *domain.Edge {
	source, target := r.endpoints(parent, child)
	for _, e := range s.InEdges(target) {
		if e.Kind == r.kind && e.SourceID == source.ID {
			return e
		}
	}
	return nil
}

func (r relation) resolve(ctx *Context, parentID, childID string) (parent, child *domain.Node, err error) {
	if err := ctx.valid(); err != nil {
		return nil, nil, err
	}
	if err := requireID("parent", parentID); err != nil {
		return nil, nil, err
	}
	if err := requireID("child", childID); err != nil {
		return nil, nil, err
	}
	if parent, err = ctx.store.ResolveNode(parentID); err != nil {
		return nil, nil, err
	}
	if child, err = ctx.store.ResolveNode(childID); err != nil {
		return nil, nil, err
	}
	return parent, child, nil
}

// checkAdd validates creating the relation. Self-relations and duplicates are
// rejected before the evaluator is consulted.
func (r relation) checkAdd(ctx *Context, parentID, childID, edgeID string) (*domain.Node, *domain.Node, *domain.Result, error) {
	parent, child, err := r.resolve(ctx, parentID, childID)
	if err != nil {
		return nil, nil, nil, err
	}
	if parent.ID == child.ID {
		return parent, child, domain.NewResult(domain.NewViolation(domain.SeverityError, child.ID,
			"%q cannot be %s itself", child.ID, r.verb)), nil
	}
	if existing := r.find(ctx.store, parent, child); existing != nil {
		return parent, child, domain.NewResult(domain.NewViolation(domain.SeverityError, existing.ID,
			"%q is already %s %q", child.ID, r.verb, parent.ID)), nil
	}
	if err := ctx.freeID(edgeID); err != nil {
		return nil, nil, nil, err
	}
	return parent, child, ctx.evaluate(withEdge(r.add(parent.ID, child.ID), edgeID)), nil
}

// checkRemove validates removing the relation. A missing edge is not an error;
// the returned edge is nil and the result is a success.
func (r relation) checkRemove(ctx *Context, parentID, childID string) (*domain.Edge, *domain.Result, error) {
	parent, child, err := r.resolve(ctx, parentID, childID)
	if err != nil {
		return nil, nil, err
	}
	e := r.find(ctx.store, parent, child)
	if e == nil {
		return nil, domain.Success(), nil
	}
	return e, ctx.evaluate(withEdge(r.remove(parent.ID, child.ID), e.ID)), nil
}

// edgeRecord is what a command remembers about an edge it removed,
// enough to recreate it with the same identity.
type edgeRecord struct {
	ID       string
	Kind     domain.EdgeKind
	SourceID string
	TargetID string
	Content  map[string]any
}

// attach creates an edge, links it into its endpoints and registers it.
func attach(s *graph.Store, rec edgeRecord, source, target *domain.Node) error {
	e := &domain.Edge{ID: rec.ID, Kind: rec.Kind, Content: maps.Clone(rec.Content)}
	s.Link(e, source, target)
	if err := s.RegisterEdge(e); err != nil {
		s.Unlink(e)
		return err
	}
	return nil
}

// detach clears both ends of e, removes it from the index and returns its record.
func detach(s *graph.Store, e *domain.Edge) edgeRecord {
	rec := edgeRecord{ID: e.ID, Kind: e.Kind, SourceID: e.SourceID, TargetID: e.TargetID, Content: maps.Clone(e.Content)}
	s.Unlink(e)
	s.RemoveEdge(e)
	return rec
}
