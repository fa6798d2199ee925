package command

import (
	"fmt"

	"github.com/aretw0/espalier/pkg/domain"
)

// Listener observes every call made through a Manager.
// It is invoked after the call returns a result, whatever its type.
type Listener interface {
	OnAllow(ctx *Context, cmd Command, res *domain.Result)
	OnExecute(ctx *Context, cmd Command, res *domain.Result)
	OnUndo(ctx *Context, cmd Command, res *domain.Result)
}

// ListenerFuncs adapts optional callbacks to the Listener interface.
type ListenerFuncs struct {
	AfterAllow   func(ctx *Context, cmd Command, res *domain.Result)
	AfterExecute func(ctx *Context, cmd Command, res *domain.Result)
	AfterUndo    func(ctx *Context, cmd Command, res *domain.Result)
}

func (l ListenerFuncs) OnAllow(ctx *Context, cmd Command, res *domain.Result) {
	if l.AfterAllow != nil {
		l.AfterAllow(ctx, cmd, res)
	}
}

func (l ListenerFuncs) OnExecute(ctx *Context, cmd Command, res *domain.Result) {
	if l.AfterExecute != nil {
		l.AfterExecute(ctx, cmd, res)
	}
}

func (l ListenerFuncs) OnUndo(ctx *Context, cmd Command, res *domain.Result) {
	if l.AfterUndo != nil {
		l.AfterUndo(ctx, cmd, res)
	}
}

// Operation names a Manager entry point.
type Operation string

const (
	OpAllow   Operation = "allow"
	OpExecute Operation = "execute"
	OpUndo    Operation = "undo"
)

// Manager is the single entry point for running commands.
// It holds at most one listener; compose several with observability.Chain.
type Manager struct {
	listener Listener
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithListener registers the listener.
func WithListener(l Listener) ManagerOption {
	return func(m *Manager) {
		m.listener = l
	}
}

// NewManager creates a manager.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetListener replaces the listener. Nil removes it.
func (m *Manager) SetListener(l Listener) {
	m.listener = l
}

// Allow asks cmd whether it could run now.
func (m *Manager) Allow(ctx *Context, cmd Command) (*domain.Result, error) {
	return m.run(OpAllow, ctx, cmd)
}

// Execute runs cmd.
func (m *Manager) Execute(ctx *Context, cmd Command) (*domain.Result, error) {
	return m.run(OpExecute, ctx, cmd)
}

// Undo reverses cmd.
func (m *Manager) Undo(ctx *Context, cmd Command) (*domain.Result, error) {
	return m.run(OpUndo, ctx, cmd)
}

func (m *Manager) run(op Operation, ctx *Context, cmd Command) (*domain.Result, error) {
	if cmd == nil {
		return nil, fmt.Errorf("%w: command is nil", domain.ErrInvalidArgument)
	}
	if ctx == nil {
		return nil, fmt.Errorf("%w: context is nil", domain.ErrInvalidArgument)
	}

	logger := ctx.Logger()
	logger.Debug("command start", "op", op, "command", cmd.String())

	var (
		res *domain.Result
		err error
	)
	switch op {
	case OpAllow:
		res, err = cmd.Allow(ctx)
	case OpExecute:
		res, err = cmd.Execute(ctx)
	case OpUndo:
		res, err = cmd.Undo(ctx)
	}

	if err != nil {
		logger.Debug("command failed", "op", op, "command", cmd.String(), "error", err)
		return nil, err
	}
	logger.Debug("command done", "op", op, "command", cmd.String(), "result", res.Type())

	m.notify(op, ctx, cmd, res)
	return res, nil
}

func (m *Manager) notify(op Operation, ctx *Context, cmd Command, res *domain.Result) {
	l := m.listener
	if l == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			ctx.Logger().Warn("command listener panicked", "op", op, "command", cmd.String(), "panic", r)
		}
	}()
	switch op {
	case OpAllow:
		l.OnAllow(ctx, cmd, res)
	case OpExecute:
		l.OnExecute(ctx, cmd, res)
	case OpUndo:
		l.OnUndo(ctx, cmd, res)
	}
}
