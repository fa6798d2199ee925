package command

import (
	"fmt"

	"github.com/aretw0/espalier/pkg/domain"
)

// Connect creates a connection edge. At least one endpoint is required;
// parallel connections between the same nodes are allowed.
type Connect struct {
	SourceID string
	TargetID string
	EdgeID   string
	Content  map[string]any
}

// NewConnect creates a connection from sourceID to targetID. Either may be empty.
func NewConnect(sourceID, targetID string) *Connect {
	return &Connect{SourceID: sourceID, TargetID: targetID}
}

func (c *Connect) Name() string { return "connect" }

func (c *Connect) clone() Command {
	cp := *c
	return &cp
}

func (c *Connect) String() string {
	return fmt.Sprintf("connect %s -> %s", orDash(c.SourceID), orDash(c.TargetID))
}

func (c *Connect) check(ctx *Context) (source, target *domain.Node, res *domain.Result, err error) {
	if err := ctx.valid(); err != nil {
		return nil, nil, nil, err
	}
	if c.SourceID == "" && c.TargetID == "" {
		return nil, nil, nil, fmt.Errorf("%w: connection needs a source or a target", domain.ErrInvalidArgument)
	}
	if source, target, err = resolveEnds(ctx, c.SourceID, c.TargetID); err != nil {
		return nil, nil, nil, err
	}
	if err := ctx.freeID(c.EdgeID); err != nil {
		return nil, nil, nil, err
	}
	change := domain.Change{Kind: domain.ChangeConnect, EdgeKind: domain.KindConnection, EdgeID: c.EdgeID, SourceID: c.SourceID, TargetID: c.TargetID}
	return source, target, ctx.evaluate(change), nil
}

func (c *Connect) Allow(ctx *Context) (*domain.Result, error) {
	_, _, res, err := c.check(ctx)
	return res, err
}

func (c *Connect) Execute(ctx *Context) (*domain.Result, error) {
	var source, target *domain.Node
	check := func() (res *domain.Result, err error) {
		source, target, res, err = c.check(ctx)
		return res, err
	}
	return apply(check, func() error {
		if c.EdgeID == "" {
			c.EdgeID = ctx.NewID()
		}
		return attach(ctx.store, edgeRecord{ID: c.EdgeID, Kind: domain.KindConnection, Content: c.Content}, source, target)
	})
}

// Undo removes the edge created by Execute. It fails with domain.ErrNotFound
// when that edge no longer exists.
func (c *Connect) Undo(ctx *Context) (*domain.Result, error) {
	if err := requireID("edge", c.EdgeID); err != nil {
		return nil, err
	}
	return NewDisconnect(c.EdgeID).Execute(ctx)
}

// Disconnect removes a connection edge. Dock and child edges are rejected with an
// ERROR violation; they are removed with UnDock and RemoveParent.
type Disconnect struct {
	EdgeID string

	removed *edgeRecord
}

// NewDisconnect creates a command removing the connection edgeID.
func NewDisconnect(edgeID string) *Disconnect {
	return &Disconnect{EdgeID: edgeID}
}

func (c *Disconnect) Name() string { return "disconnect" }

func (c *Disconnect) clone() Command {
	cp := *c
	cp.removed = nil
	return &cp
}

func (c *Disconnect) String() string {
	return fmt.Sprintf("disconnect %s", c.EdgeID)
}

func (c *Disconnect) check(ctx *Context) (*domain.Edge, *domain.Result, error) {
	if err := ctx.valid(); err != nil {
		return nil, nil, err
	}
	if err := requireID("edge", c.EdgeID); err != nil {
		return nil, nil, err
	}
	e, err := ctx.store.ResolveEdge(c.EdgeID)
	if err != nil {
		return nil, nil, err
	}
	if e.Kind != domain.KindConnection {
		return e, domain.NewResult(domain.NewViolation(domain.SeverityError, e.ID,
			"edge %q is a %s relation, not a connection", e.ID, e.Kind)), nil
	}
	change := domain.Change{Kind: domain.ChangeDisconnect, EdgeKind: e.Kind, EdgeID: e.ID, SourceID: e.SourceID, TargetID: e.TargetID}
	return e, ctx.evaluate(change), nil
}

func (c *Disconnect) Allow(ctx *Context) (*domain.Result, error) {
	_, res, err := c.check(ctx)
	return res, err
}

func (c *Disconnect) Execute(ctx *Context) (*domain.Result, error) {
	var edge *domain.Edge
	check := func() (res *domain.Result, err error) {
		edge, res, err = c.check(ctx)
		return res, err
	}
	return apply(check, func() error {
		rec := detach(ctx.store, edge)
		c.removed = &rec
		return nil
	})
}

// Undo reconnects the removed edge with its identifier, endpoints and content.
func (c *Disconnect) Undo(ctx *Context) (*domain.Result, error) {
	if err := ctx.valid(); err != nil {
		return nil, err
	}
	if c.removed == nil {
		return domain.Success(), nil
	}
	reconnect := &Connect{SourceID: c.removed.SourceID, TargetID: c.removed.TargetID, EdgeID: c.removed.ID, Content: c.removed.Content}
	return reconnect.Execute(ctx)
}

// resolveEnds resolves whichever endpoints are set.
func resolveEnds(ctx *Context, sourceID, targetID string) (source, target *domain.Node, err error) {
	if sourceID != "" {
		if source, err = ctx.store.ResolveNode(sourceID); err != nil {
			return nil, nil, err
		}
	}
	if targetID != "" {
		if target, err = ctx.store.ResolveNode(targetID); err != nil {
			return nil, nil, err
		}
	}
	return source, target, nil
}

func orDash(id string) string {
	if id == "" {
		return "-"
	}
	return id
}
