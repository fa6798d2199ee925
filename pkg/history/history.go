// Package history keeps the undo and redo stacks for commands run through a Manager.
//
// The engine itself does not order undos; History is the caller-side bookkeeping.
// A command is pushed only when it executed without an ERROR result, and undo or
// redo moves it between the stacks only when that call succeeded as well.
package history

import (
	"errors"

	"github.com/aretw0/espalier/pkg/command"
	"github.com/aretw0/espalier/pkg/domain"
)

var (
	// ErrNothingToUndo is returned by Undo on an empty undo stack.
	ErrNothingToUndo = errors.New("nothing to undo")
	// ErrNothingToRedo is returned by Redo on an empty redo stack.
	ErrNothingToRedo = errors.New("nothing to redo")
)

// History records executed commands.
type History struct {
	manager *command.Manager
	limit   int
	done    []command.Command
	undone  []command.Command
}

// Option configures a History.
type Option func(*History)

// WithLimit caps the number of undoable commands. Zero means unlimited.
func WithLimit(n int) Option {
	return func(h *History) {
		if n >= 0 {
			h.limit = n
		}
	}
}

// New creates a history that runs commands through m.
func New(m *command.Manager, opts ...Option) *History {
	if m == nil {
		m = command.NewManager()
	}
	h := &History{manager: m}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Execute runs cmd and records it. Executing clears the redo stack.
func (h *History) Execute(ctx *command.Context, cmd command.Command) (*domain.Result, error) {
	res, err := h.manager.Execute(ctx, cmd)
	if err != nil || res.HasError() {
		return res, err
	}
	h.push(cmd)
	h.undone = nil
	return res, nil
}

// Undo reverses the most recent command.
func (h *History) Undo(ctx *command.Context) (*domain.Result, error) {
	if len(h.done) == 0 {
		return nil, ErrNothingToUndo
	}
	cmd := h.done[len(h.done)-1]
	res, err := h.manager.Undo(ctx, cmd)
	if err != nil || res.HasError() {
		return res, err
	}
	h.done = h.done[:len(h.done)-1]
	h.undone = append(h.undone, cmd)
	return res, nil
}

// Redo re-executes the most recently undone command.
func (h *History) Redo(ctx *command.Context) (*domain.Result, error) {
	if len(h.undone) == 0 {
		return nil, ErrNothingToRedo
	}
	cmd := h.undone[len(h.undone)-1]
	res, err := h.manager.Execute(ctx, cmd)
	if err != nil || res.HasError() {
		return res, err
	}
	h.undone = h.undone[:len(h.undone)-1]
	h.push(cmd)
	return res, nil
}

func (h *History) push(cmd command.Command) {
	h.done = append(h.done, cmd)
	if h.limit > 0 && len(h.done) > h.limit {
		h.done = h.done[len(h.done)-h.limit:]
	}
}

// CanUndo reports whether Undo has a command to reverse.
func (h *History) CanUndo() bool { return len(h.done) > 0 }

// CanRedo reports whether Redo has a command to re-execute.
func (h *History) CanRedo() bool { return len(h.undone) > 0 }

// Len returns the sizes of the undo and redo stacks.
func (h *History) Len() (undo, redo int) { return len(h.done), len(h.undone) }

// Clear drops both stacks.
func (h *History) Clear() {
	h.done, h.undone = nil, nil
}
