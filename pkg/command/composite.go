package command

import (
	"fmt"
	"strings"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/graph"
)

// Composite runs an ordered batch of commands as one.
//
// Execute dry-runs the whole batch first and touches the graph only when no step
// faults or reports an ERROR. Should a step still fail on the real graph, the
// graph is restored from a snapshot taken before the first step; that recovery
// does not consult the evaluator, so it cannot be vetoed. Undo runs the
// children's Undo in reverse with the same all-or-nothing behaviour.
type Composite struct {
	Label    string
	Children []Command
}

// NewComposite creates a batch. Nil children are dropped.
func NewComposite(label string, children ...Command) *Composite {
	c := &Composite{Label: label}
	for _, child := range children {
		if child != nil {
			c.Children = append(c.Children, child)
		}
	}
	return c
}

func (c *Composite) Name() string { return "batch" }

func (c *Composite) String() string {
	parts := make([]string, len(c.Children))
	for i, child := range c.Children {
		parts[i] = child.String()
	}
	label := c.Label
	if label == "" {
		label = "batch"
	}
	return fmt.Sprintf("%s[%s]", label, strings.Join(parts, "; "))
}

// Allow dry-runs the batch against a scratch copy of the graph, so a child may
// depend on an earlier one (add a node, then dock it). The real graph is untouched.
// Built-in children are dry-run on fresh copies so their recorded state and edge
// IDs are left alone; other Command implementations are dry-run as they are.
func (c *Composite) Allow(ctx *Context) (*domain.Result, error) {
	if err := ctx.valid(); err != nil {
		return nil, err
	}
	scratch, err := graph.FromSnapshot(ctx.store.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("failed to copy graph for %s: %w", c.Label, err)
	}
	dry := ctx.withStore(scratch)
	dry.newID = scratchIDs(scratch)

	res := domain.Success()
	for i, child := range c.Children {
		r, err := dryCopy(child).Execute(dry)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, child, err)
		}
		res.Merge(r)
		if r.HasError() {
			break
		}
	}
	return res, nil
}

// Execute runs the children in order once the dry run has passed.
func (c *Composite) Execute(ctx *Context) (*domain.Result, error) {
	res, err := c.Allow(ctx)
	if err != nil || res.HasError() {
		return res, err
	}
	before := ctx.store.Snapshot()
	res = domain.Success()
	for i, child := range c.Children {
		r, err := child.Execute(ctx)
		if err != nil || r.HasError() {
			c.restore(ctx, before)
			if err != nil {
				return nil, fmt.Errorf("step %d (%s): %w", i, child, err)
			}
			res.Merge(r)
			return res, nil
		}
		res.Merge(r)
	}
	return res, nil
}

// Undo undoes the children in reverse order.
func (c *Composite) Undo(ctx *Context) (*domain.Result, error) {
	if err := ctx.valid(); err != nil {
		return nil, err
	}
	before := ctx.store.Snapshot()
	res := domain.Success()
	for i := len(c.Children) - 1; i >= 0; i-- {
		child := c.Children[i]
		r, err := child.Undo(ctx)
		if err != nil || r.HasError() {
			c.restore(ctx, before)
			if err != nil {
				return nil, fmt.Errorf("undo step %d (%s): %w", i, child, err)
			}
			res.Merge(r)
			return res, nil
		}
		res.Merge(r)
	}
	return res, nil
}

func (c *Composite) clone() Command {
	cp := &Composite{Label: c.Label, Children: make([]Command, len(c.Children))}
	for i, child := range c.Children {
		cp.Children[i] = dryCopy(child)
	}
	return cp
}

// restore puts the graph back to snap after a step failed part way.
func (c *Composite) restore(ctx *Context, snap *domain.Snapshot) {
	if err := ctx.store.Restore(snap); err != nil {
		ctx.Logger().Error("failed to restore graph after batch step", "batch", c.Label, "error", err)
	}
}

// cloner is implemented by commands that record state while they run.
// clone returns a copy with that state cleared.
type cloner interface {
	clone() Command
}

func dryCopy(cmd Command) Command {
	if c, ok := cmd.(cloner); ok {
		return c.clone()
	}
	return cmd
}

// scratchIDs hands out edge IDs for a dry run without drawing on the real generator.
func scratchIDs(s *graph.Store) IDGenerator {
	n := 0
	return func() string {
		for {
			n++
			id := fmt.Sprintf("dry-run-%d", n)
			if !s.HasNode(id) && !s.HasEdge(id) {
				return id
			}
		}
	}
}
