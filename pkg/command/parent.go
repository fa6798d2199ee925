package command

import (
	"fmt"

	"github.com/aretw0/espalier/pkg/domain"
)

// SetParent makes a node the child of another. The edge points from parent to child.
type SetParent struct {
	ParentID string
	ChildID  string
	EdgeID   string
	Content  map[string]any
}

// NewSetParent creates a set-parent command from identifiers.
func NewSetParent(parentID, childID string) *SetParent {
	return &SetParent{ParentID: parentID, ChildID: childID}
}

func (c *SetParent) Name() string { return "set_parent" }

func (c *SetParent) clone() Command {
	cp := *c
	return &cp
}

func (c *SetParent) String() string {
	return fmt.Sprintf("set parent of %s to %s", c.ChildID, c.ParentID)
}

func (c *SetParent) Allow(ctx *Context) (*domain.Result, error) {
	_, _, res, err := childRelation.checkAdd(ctx, c.ParentID, c.ChildID, c.EdgeID)
	return res, err
}

func (c *SetParent) Execute(ctx *Context) (*domain.Result, error) {
	var parent, child *domain.Node
	check := func() (res *domain.Result, err error) {
		parent, child, res, err = childRelation.checkAdd(ctx, c.ParentID, c.ChildID, c.EdgeID)
		return res, err
	}
	return apply(check, func() error {
		if c.EdgeID == "" {
			c.EdgeID = ctx.NewID()
		}
		return attach(ctx.store, edgeRecord{ID: c.EdgeID, Kind: domain.KindChild, Content: c.Content}, parent, child)
	})
}

func (c *SetParent) Undo(ctx *Context) (*domain.Result, error) {
	return NewRemoveParent(c.ParentID, c.ChildID).Execute(ctx)
}

// RemoveParent detaches a child from a parent. A missing relation is a no-op.
type RemoveParent struct {
	ParentID string
	ChildID  string

	removed *edgeRecord
}

// NewRemoveParent creates a remove-parent command from identifiers.
func NewRemoveParent(parentID, childID string) *RemoveParent {
	return &RemoveParent{ParentID: parentID, ChildID: childID}
}

func (c *RemoveParent) Name() string { return "remove_parent" }

func (c *RemoveParent) clone() Command {
	cp := *c
	cp.removed = nil
	return &cp
}

func (c *RemoveParent) String() string {
	return fmt.Sprintf("remove %s from %s", c.ChildID, c.ParentID)
}

func (c *RemoveParent) Allow(ctx *Context) (*domain.Result, error) {
	_, res, err := childRelation.checkRemove(ctx, c.ParentID, c.ChildID)
	return res, err
}

func (c *RemoveParent) Execute(ctx *Context) (*domain.Result, error) {
	var edge *domain.Edge
	check := func() (res *domain.Result, err error) {
		edge, res, err = childRelation.checkRemove(ctx, c.ParentID, c.ChildID)
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

func (c *RemoveParent) Undo(ctx *Context) (*domain.Result, error) {
	if err := ctx.valid(); err != nil {
		return nil, err
	}
	if c.removed == nil {
		return domain.Success(), nil
	}
	restore := &SetParent{ParentID: c.ParentID, ChildID: c.ChildID, EdgeID: c.removed.ID, Content: c.removed.Content}
	return restore.Execute(ctx)
}

// NewReparent moves child from one parent to another as a single atomic batch.
// An empty fromID only sets the new parent.
func NewReparent(childID, fromID, toID string) *Composite {
	var steps []Command
	if fromID != "" {
		steps = append(steps, NewRemoveParent(fromID, childID))
	}
	steps = append(steps, NewSetParent(toID, childID))
	return NewComposite("reparent", steps...)
}
