package command_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/command"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	op  string
	ctx *command.Context
	cmd command.Command
	res *domain.Result
}

type recorder struct {
	calls []call
}

func (r *recorder) OnAllow(ctx *command.Context, cmd command.Command, res *domain.Result) {
	r.calls = append(r.calls, call{"allow", ctx, cmd, res})
}

func (r *recorder) OnExecute(ctx *command.Context, cmd command.Command, res *domain.Result) {
	r.calls = append(r.calls, call{"execute", ctx, cmd, res})
}

func (r *recorder) OnUndo(ctx *command.Context, cmd command.Command, res *domain.Result) {
	r.calls = append(r.calls, call{"undo", ctx, cmd, res})
}

func TestManager_NotifiesListenerOncePerCall(t *testing.T) {
	s := newGraph(t, "task", "timer")
	ctx := newContext(s)
	rec := &recorder{}
	m := command.NewManager(command.WithListener(rec))
	dock := command.NewDock("task", "timer")

	for _, op := range []struct {
		name string
		run  func(*command.Context, command.Command) (*domain.Result, error)
	}{
		{"allow", m.Allow},
		{"execute", m.Execute},
		{"undo", m.Undo},
	} {
		rec.calls = nil
		res, err := op.run(ctx, dock)
		require.NoError(t, err)

		require.Len(t, rec.calls, 1, op.name)
		got := rec.calls[0]
		assert.Equal(t, op.name, got.op)
		assert.Same(t, ctx, got.ctx)
		assert.Same(t, dock, got.cmd)
		assert.Same(t, res, got.res)
	}
}

func TestManager_NotifiesOnErrorResult(t *testing.T) {
	s := newGraph(t, "task", "timer")
	ctx := newContext(s, command.WithEvaluator(rejecting(domain.ChangeDock)))
	rec := &recorder{}
	m := command.NewManager()
	m.SetListener(rec)

	res, err := m.Execute(ctx, command.NewDock("task", "timer"))
	require.NoError(t, err)
	assert.True(t, res.HasError())
	require.Len(t, rec.calls, 1)
	assert.True(t, rec.calls[0].res.HasError())
}

func TestManager_FaultsAreNotNotified(t *testing.T) {
	s := newGraph(t, "task")
	rec := &recorder{}
	m := command.NewManager(command.WithListener(rec))

	_, err := m.Execute(newContext(s), command.NewDock("task", "ghost"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = m.Execute(nil, command.NewDock("task", "ghost"))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = m.Allow(newContext(s), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	assert.Empty(t, rec.calls)
}

func TestManager_RecoversListenerPanic(t *testing.T) {
	var buf bytes.Buffer
	s := newGraph(t, "task", "timer")
	ctx := newContext(s, command.WithLogger(logging.NewWithWriter(&buf, slog.LevelDebug)))
	m := command.NewManager(command.WithListener(command.ListenerFuncs{
		AfterExecute: func(*command.Context, command.Command, *domain.Result) { panic("boom") },
	}))

	res, err := m.Execute(ctx, command.NewDock("task", "timer"))
	require.NoError(t, err)
	assert.True(t, res.IsSuccess())
	assert.True(t, s.HasEdge("e1"))

	out := buf.String()
	assert.Contains(t, out, "command start")
	assert.Contains(t, out, "command done")
	assert.Contains(t, out, "command listener panicked")
}

func TestManager_SetListenerReplaces(t *testing.T) {
	s := newGraph(t, "task", "timer")
	first, second := &recorder{}, &recorder{}
	m := command.NewManager(command.WithListener(first))
	m.SetListener(second)

	_, err := m.Allow(newContext(s), command.NewDock("task", "timer"))
	require.NoError(t, err)
	assert.Empty(t, first.calls)
	assert.Len(t, second.calls, 1)

	m.SetListener(nil)
	_, err = m.Allow(newContext(s), command.NewDock("task", "timer"))
	require.NoError(t, err)
	assert.Len(t, second.calls, 1)
}

func TestManager_SnapshotsStayConsistent(t *testing.T) {
	s := newGraph(t, "pool", "lane", "task", "timer", "end")
	ctx := newContext(s)
	m := command.NewManager()
	var done []command.Command

	for _, cmd := range []command.Command{
		command.NewSetParent("pool", "lane"),
		command.NewSetParent("lane", "task"),
		command.NewDock("task", "timer"),
		command.NewConnect("timer", "end"),
		command.NewUnDock("task", "timer"),
		command.NewReparent("task", "lane", "pool"),
		command.NewDeleteNode("timer"),
	} {
		res, err := m.Execute(ctx, cmd)
		require.NoError(t, err, cmd.String())
		require.False(t, res.HasError(), cmd.String())
		require.NoError(t, s.Check(), cmd.String())
		done = append(done, cmd)
	}

	for i := len(done) - 1; i >= 0; i-- {
		res, err := m.Undo(ctx, done[i])
		require.NoError(t, err, done[i].String())
		require.False(t, res.HasError(), done[i].String())
		require.NoError(t, s.Check(), done[i].String())
	}
	_, edges := s.Len()
	assert.Zero(t, edges)
}
