package command

import (
	"fmt"
	"maps"
	"slices"

	"github.com/aretw0/espalier/pkg/domain"
)

// AddNode registers a new, unconnected node.
type AddNode struct {
	NodeID  string
	Labels  []string
	Content map[string]any
}

// NewAddNode creates a command adding a node with the given labels.
func NewAddNode(id string, labels ...string) *AddNode {
	return &AddNode{NodeID: id, Labels: labels}
}

func (c *AddNode) Name() string { return "add_node" }

func (c *AddNode) String() string {
	return fmt.Sprintf("add node %s", c.NodeID)
}

func (c *AddNode) check(ctx *Context) (*domain.Result, error) {
	if err := ctx.valid(); err != nil {
		return nil, err
	}
	if err := requireID("node", c.NodeID); err != nil {
		return nil, err
	}
	if err := ctx.freeID(c.NodeID); err != nil {
		return nil, err
	}
	return ctx.evaluate(domain.Change{Kind: domain.ChangeAddNode, NodeID: c.NodeID, Labels: c.Labels}), nil
}

func (c *AddNode) Allow(ctx *Context) (*domain.Result, error) {
	return c.check(ctx)
}

func (c *AddNode) Execute(ctx *Context) (*domain.Result, error) {
	return apply(func() (*domain.Result, error) { return c.check(ctx) }, func() error {
		return ctx.store.RegisterNode(&domain.Node{
			ID:      c.NodeID,
			Labels:  slices.Clone(c.Labels),
			Content: maps.Clone(c.Content),
		})
	})
}

// Undo deletes the node, together with any edge attached since.
func (c *AddNode) Undo(ctx *Context) (*domain.Result, error) {
	return NewDeleteNode(c.NodeID).Execute(ctx)
}

// DeleteNode removes a node and every edge incident to it.
// The node and its edges are remembered so Undo restores them with the same identifiers.
type DeleteNode struct {
	NodeID string

	node  *domain.Node
	edges []edgeRecord
}

// NewDeleteNode creates a command deleting the node and its incident edges.
func NewDeleteNode(id string) *DeleteNode {
	return &DeleteNode{NodeID: id}
}

func (c *DeleteNode) Name() string { return "delete_node" }

func (c *DeleteNode) clone() Command {
	cp := *c
	cp.node, cp.edges = nil, nil
	return &cp
}

func (c *DeleteNode) String() string {
	return fmt.Sprintf("delete node %s", c.NodeID)
}

func (c *DeleteNode) check(ctx *Context) (*domain.Node, *domain.Result, error) {
	if err := ctx.valid(); err != nil {
		return nil, nil, err
	}
	if err := requireID("node", c.NodeID); err != nil {
		return nil, nil, err
	}
	n, err := ctx.store.ResolveNode(c.NodeID)
	if err != nil {
		return nil, nil, err
	}
	return n, ctx.evaluate(domain.Change{Kind: domain.ChangeDeleteNode, NodeID: n.ID, Labels: n.Labels}), nil
}

func (c *DeleteNode) Allow(ctx *Context) (*domain.Result, error) {
	_, res, err := c.check(ctx)
	return res, err
}

func (c *DeleteNode) Execute(ctx *Context) (*domain.Result, error) {
	var n *domain.Node
	check := func() (res *domain.Result, err error) {
		n, res, err = c.check(ctx)
		return res, err
	}
	return apply(check, func() error {
		s := ctx.store
		// A self-loop appears in both lists; remove it once.
		incident := append(s.InEdges(n), s.OutEdges(n)...)
		c.edges = c.edges[:0]
		seen := make(map[string]bool, len(incident))
		for _, e := range incident {
			if seen[e.ID] {
				continue
			}
			seen[e.ID] = true
			c.edges = append(c.edges, detach(s, e))
		}
		c.node = n.Clone()
		c.node.InEdges, c.node.OutEdges = nil, nil
		s.RemoveNode(n)
		return nil
	})
}

// Undo re-adds the node and then each removed edge, atomically.
func (c *DeleteNode) Undo(ctx *Context) (*domain.Result, error) {
	if err := ctx.valid(); err != nil {
		return nil, err
	}
	if c.node == nil {
		return domain.Success(), nil
	}
	steps := []Command{&AddNode{NodeID: c.node.ID, Labels: c.node.Labels, Content: c.node.Content}}
	for _, rec := range c.edges {
		steps = append(steps, &restoreEdge{rec: rec})
	}
	return NewComposite("restore "+c.node.ID, steps...).Execute(ctx)
}

// restoreEdge recreates a removed edge of any kind with its original identity.
type restoreEdge struct {
	rec edgeRecord
}

func (c *restoreEdge) String() string {
	return fmt.Sprintf("restore %s edge %s", c.rec.Kind, c.rec.ID)
}

func (c *restoreEdge) check(ctx *Context) (source, target *domain.Node, res *domain.Result, err error) {
	if err := ctx.valid(); err != nil {
		return nil, nil, nil, err
	}
	if source, target, err = resolveEnds(ctx, c.rec.SourceID, c.rec.TargetID); err != nil {
		return nil, nil, nil, err
	}
	if err := ctx.freeID(c.rec.ID); err != nil {
		return nil, nil, nil, err
	}
	change := domain.Change{Kind: addingChange(c.rec.Kind), EdgeKind: c.rec.Kind, EdgeID: c.rec.ID, SourceID: c.rec.SourceID, TargetID: c.rec.TargetID}
	return source, target, ctx.evaluate(change), nil
}

func (c *restoreEdge) Allow(ctx *Context) (*domain.Result, error) {
	_, _, res, err := c.check(ctx)
	return res, err
}

func (c *restoreEdge) Execute(ctx *Context) (*domain.Result, error) {
	var source, target *domain.Node
	check := func() (res *domain.Result, err error) {
		source, target, res, err = c.check(ctx)
		return res, err
	}
	return apply(check, func() error {
		return attach(ctx.store, c.rec, source, target)
	})
}

func (c *restoreEdge) Undo(ctx *Context) (*domain.Result, error) {
	if err := ctx.valid(); err != nil {
		return nil, err
	}
	e, err := ctx.store.ResolveEdge(c.rec.ID)
	if err != nil {
		return nil, err
	}
	detach(ctx.store, e)
	return domain.Success(), nil
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
