package command

import (
	"fmt"

	"github.com/aretw0/espalier/pkg/domain"
)

// Dock attaches a candidate node to the boundary of a parent node.
// The edge it creates points from the candidate to the parent.
type Dock struct {
	ParentID    string
	CandidateID string
	// EdgeID is assigned on first execution when empty and reused afterwards.
	EdgeID  string
	Content map[string]any
}

// NewDock creates a dock command from identifiers.
func NewDock(parentID, candidateID string) *Dock {
	return &Dock{ParentID: parentID, CandidateID: candidateID}
}

// DockNodes creates a dock command from nodes. Only their identifiers are kept.
func DockNodes(parent, candidate *domain.Node) *Dock {
	return NewDock(parent.ID, candidate.ID)
}

func (c *Dock) Name() string { return "dock" }

func (c *Dock) clone() Command {
	cp := *c
	return &cp
}

func (c *Dock) String() string {
	return fmt.Sprintf("dock %s to %s", c.CandidateID, c.ParentID)
}

// Allow rejects docking a node to itself or to a parent it is already docked to,
// then consults the evaluator.
func (c *Dock) Allow(ctx *Context) (*domain.Result, error) {
	_, _, res, err := dockRelation.checkAdd(ctx, c.ParentID, c.CandidateID, c.EdgeID)
	return res, err
}

// Execute creates the dock edge and registers it.
func (c *Dock) Execute(ctx *Context) (*domain.Result, error) {
	var parent, candidate *domain.Node
	check := func() (res *domain.Result, err error) {
		parent, candidate, res, err = dockRelation.checkAdd(ctx, c.ParentID, c.CandidateID, c.EdgeID)
		return res, err
	}
	return apply(check, func() error {
		if c.EdgeID == "" {
			c.EdgeID = ctx.NewID()
		}
		rec := edgeRecord{ID: c.EdgeID, Kind: domain.KindDock, Content: c.Content}
		return attach(ctx.store, rec, candidate, parent)
	})
}

// Undo removes the dock relation again.
func (c *Dock) Undo(ctx *Context) (*domain.Result, error) {
	return NewUnDock(c.ParentID, c.CandidateID).Execute(ctx)
}

// UnDock detaches a candidate from its parent. When no such dock edge exists the
// command succeeds without changing anything.
type UnDock struct {
	ParentID    string
	CandidateID string

	removed *edgeRecord
}

// NewUnDock creates an undock command from identifiers.
func NewUnDock(parentID, candidateID string) *UnDock {
	return &UnDock{ParentID: parentID, CandidateID: candidateID}
}

// UnDockNodes creates an undock command from nodes.
func UnDockNodes(parent, candidate *domain.Node) *UnDock {
	return NewUnDock(parent.ID, candidate.ID)
}

func (c *UnDock) Name() string { return "undock" }

func (c *UnDock) clone() Command {
	cp := *c
	cp.removed = nil
	return &cp
}

func (c *UnDock) String() string {
	return fmt.Sprintf("undock %s from %s", c.CandidateID, c.ParentID)
}

func (c *UnDock) Allow(ctx *Context) (*domain.Result, error) {
	_, res, err := dockRelation.checkRemove(ctx, c.ParentID, c.CandidateID)
	return res, err
}

// Execute scans the parent's incoming edges for the dock edge sourced at the
// candidate and removes it from both nodes and from the index.
func (c *UnDock) Execute(ctx *Context) (*domain.Result, error) {
	var edge *domain.Edge
	check := func() (res *domain.Result, err error) {
		edge, res, err = dockRelation.checkRemove(ctx, c.ParentID, c.CandidateID)
		return res, err
	}
	return apply(check, func() error {
		c.removed = nil
		if edge != nil {
			rec := detach(ctx.store, edge)
			c.removed = &rec
		}
		return nil
	})
}

// Undo recreates the removed dock edge with its original identifier and content.
// When Execute removed nothing, Undo does nothing.
func (c *UnDock) Undo(ctx *Context) (*domain.Result, error) {
	if err := ctx.valid(); err != nil {
		return nil, err
	}
	if c.removed == nil {
		return domain.Success(), nil
	}
	redock := &Dock{ParentID: c.ParentID, CandidateID: c.CandidateID, EdgeID: c.removed.ID, Content: c.removed.Content}
	return redock.Execute(ctx)
}
