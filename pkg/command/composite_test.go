package command_test

import (
	"errors"
	"testing"

	"github.com/aretw0/espalier/pkg/command"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposite_AllowDryRunsDependentSteps(t *testing.T) {
	s := newGraph(t, "task")
	ctx := newContext(s)
	before := s.Snapshot()

	batch := command.NewComposite("add timer",
		command.NewAddNode("timer", "timer"),
		command.NewDock("task", "timer"),
	)

	res, err := batch.Allow(ctx)
	require.NoError(t, err)
	assert.True(t, res.IsSuccess())
	requireUnchanged(t, before, s)

	res, err = batch.Execute(ctx)
	require.NoError(t, err)
	assert.True(t, res.IsSuccess())
	assert.True(t, s.HasNode("timer"))
	require.NoError(t, s.Check())

	res, err = batch.Undo(ctx)
	require.NoError(t, err)
	assert.True(t, res.IsSuccess())
	requireUnchanged(t, before, s)
}

func TestComposite_RollsBackOnError(t *testing.T) {
	s := newGraph(t, "a", "b")
	ctx := newContext(s, command.WithEvaluator(rejecting(domain.ChangeDock)))
	before := s.Snapshot()

	batch := command.NewComposite("",
		command.NewConnect("a", "b"),
		command.NewAddNode("c"),
		command.NewDock("a", "c"),
	)
	res, err := batch.Execute(ctx)
	require.NoError(t, err)
	assert.True(t, res.HasError())
	requireUnchanged(t, before, s)
}

func TestComposite_RollsBackOnFault(t *testing.T) {
	s := newGraph(t, "a", "b")
	ctx := newContext(s)
	before := s.Snapshot()

	batch := command.NewComposite("broken",
		command.NewConnect("a", "b"),
		command.NewDock("a", "ghost"),
	)
	res, err := batch.Execute(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Nil(t, res)
	requireUnchanged(t, before, s)
}

func TestComposite_EmptyAndString(t *testing.T) {
	s := newGraph(t)
	batch := command.NewComposite("noop", nil)

	res, err := batch.Execute(newContext(s))
	require.NoError(t, err)
	assert.True(t, res.IsSuccess())
	assert.Equal(t, "noop[]", batch.String())
	assert.Equal(t, "batch", command.NameOf(batch))
}

func TestComposite_RejectedStepLeavesNoPartialEdges(t *testing.T) {
	s := newGraph(t, "a", "b", "c")
	ev := rules.Chain(rejecting(domain.ChangeUnDock), rejecting(domain.ChangeConnect))
	ctx := newContext(s, command.WithEvaluator(ev))
	before := s.Snapshot()

	dock := command.NewDock("a", "c")
	batch := command.NewComposite("", dock, command.NewConnect("a", "b"))
	res, err := batch.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ResultError, res.Type())
	requireUnchanged(t, before, s)
	_, edges := s.Len()
	assert.Zero(t, edges)
	assert.Empty(t, dock.EdgeID, "the dock never ran on the real graph")
}

// flaky passes its first Execute and faults on every later one.
type flaky struct {
	calls int
}

func (f *flaky) Allow(*command.Context) (*domain.Result, error) { return domain.Success(), nil }

func (f *flaky) Execute(*command.Context) (*domain.Result, error) {
	f.calls++
	if f.calls > 1 {
		return nil, errors.New("backend went away")
	}
	return domain.Success(), nil
}

func (f *flaky) Undo(*command.Context) (*domain.Result, error) { return domain.Success(), nil }

func (f *flaky) String() string { return "flaky" }

func TestComposite_StepFailureAfterDryRunRestoresGraph(t *testing.T) {
	s := newGraph(t, "a", "c")
	ctx := newContext(s, command.WithEvaluator(rejecting(domain.ChangeUnDock)))
	before := s.Snapshot()

	batch := command.NewComposite("", command.NewDock("a", "c"), &flaky{})
	res, err := batch.Execute(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend went away")
	assert.Nil(t, res)
	requireUnchanged(t, before, s)
}

func TestComposite_RejectedUndoRestoresGraph(t *testing.T) {
	s := newGraph(t, "a", "b", "c")
	ctx := newContext(s)

	batch := command.NewComposite("", command.NewDock("a", "c"), command.NewConnect("a", "b"))
	res, err := batch.Execute(ctx)
	require.NoError(t, err)
	require.True(t, res.IsSuccess())
	after := s.Snapshot()

	// The connection is removed first, then the undock is refused; putting the
	// connection back must not depend on the evaluator either.
	ev := rules.Chain(rejecting(domain.ChangeUnDock), rejecting(domain.ChangeConnect))
	res, err = batch.Undo(newContext(s, command.WithEvaluator(ev)))
	require.NoError(t, err)
	assert.Equal(t, domain.ResultError, res.Type())
	requireUnchanged(t, after, s)
}

func TestComposite_AllowKeepsChildrenUntouched(t *testing.T) {
	s := newGraph(t, "task", "timer", "end")
	ctx := newContext(s)
	_, err := command.NewConnect("timer", "end").Execute(ctx)
	require.NoError(t, err)
	before := s.Snapshot()

	dock := command.NewDock("task", "timer")
	remove := command.NewDeleteNode("end")
	batch := command.NewComposite("", dock, remove)

	for i := 0; i < 2; i++ {
		res, err := batch.Allow(ctx)
		require.NoError(t, err)
		assert.True(t, res.IsSuccess())
		assert.Empty(t, dock.EdgeID)
		requireUnchanged(t, before, s)
	}
	res, err := remove.Undo(ctx)
	require.NoError(t, err)
	assert.True(t, res.IsSuccess(), "a dry run records nothing for undo")
	requireUnchanged(t, before, s)

	res, err = batch.Execute(ctx)
	require.NoError(t, err)
	assert.True(t, res.IsSuccess())
	assert.Equal(t, "e2", dock.EdgeID, "dry runs do not draw from the id generator")
	assert.False(t, s.HasNode("end"))

	res, err = batch.Undo(ctx)
	require.NoError(t, err)
	assert.True(t, res.IsSuccess())
	requireUnchanged(t, before, s)
}
