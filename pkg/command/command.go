package command

import (
	"fmt"

	"github.com/aretw0/espalier/pkg/domain"
)

// Command is a unit of structural change to a diagram.
//
// Allow reports whether the command could run now without mutating anything.
// Execute runs Allow and applies the change unless the result carries an ERROR.
// Undo applies the structural inverse of the last Execute, and is itself checked.
type Command interface {
	Allow(ctx *Context) (*domain.Result, error)
	Execute(ctx *Context) (*domain.Result, error)
	Undo(ctx *Context) (*domain.Result, error)
	String() string
}

// Named is implemented by commands that report a stable type name
// (the name they are registered under, e.g. "dock").
type Named interface {
	Name() string
}

// NameOf returns the type name of cmd, falling back to its Go type.
func NameOf(cmd Command) string {
	if n, ok := cmd.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", cmd)
}

// checkFunc resolves a command's references and evaluates its rules.
type checkFunc func() (*domain.Result, error)

// apply runs check and calls mutate only when check neither faulted nor rejected.
// It is the single place where error-atomicity is enforced.
func apply(check checkFunc, mutate func() error) (*domain.Result, error) {
	res, err := check()
	if err != nil {
		return nil, err
	}
	if res.HasError() {
		return res, nil
	}
	if err := mutate(); err != nil {
		return nil, err
	}
	return res, nil
}

func requireID(what, id string) error {
	if id == "" {
		return fmt.Errorf("%w: %s id is required", domain.ErrInvalidArgument, what)
	}
	return nil
}
