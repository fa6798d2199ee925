package command

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/graph"
	"github.com/aretw0/espalier/pkg/rules"
	"github.com/google/uuid"
)

// IDGenerator returns a fresh identifier for a new edge.
type IDGenerator func() string

// Context is the transient bundle a command runs against.
// It is cheap to build; commands never keep it between calls.
type Context struct {
	store     *graph.Store
	evaluator rules.Evaluator
	newID     IDGenerator
	logger    *slog.Logger
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithEvaluator sets the rule evaluator. The default permits every change.
func WithEvaluator(ev rules.Evaluator) ContextOption {
	return func(c *Context) {
		if ev != nil {
			c.evaluator = ev
		}
	}
}

// WithIDGenerator sets the source of new edge IDs. The default is uuid.NewString.
func WithIDGenerator(gen IDGenerator) ContextOption {
	return func(c *Context) {
		if gen != nil {
			c.newID = gen
		}
	}
}

// WithLogger sets the logger used by commands and by the Manager.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *Context) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewContext creates a context over store.
func NewContext(store *graph.Store, opts ...ContextOption) *Context {
	c := &Context{
		store:     store,
		evaluator: rules.Permissive,
		newID:     uuid.NewString,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the graph the context operates on.
func (c *Context) Store() *graph.Store { return c.store }

// Evaluator returns the rule evaluator.
func (c *Context) Evaluator() rules.Evaluator { return c.evaluator }

// Logger returns the context logger.
func (c *Context) Logger() *slog.Logger {
	if c.logger == nil {
		return logging.NewNop()
	}
	return c.logger
}

// NewID returns a fresh edge identifier.
func (c *Context) NewID() string { return c.newID() }

// withStore returns a copy of c operating on another store.
func (c *Context) withStore(store *graph.Store) *Context {
	cp := *c
	cp.store = store
	return &cp
}

func (c *Context) valid() error {
	if c == nil || c.store == nil {
		return fmt.Errorf("%w: command context has no graph store", domain.ErrInvalidArgument)
	}
	return nil
}

// evaluate asks the rule evaluator about change.
func (c *Context) evaluate(change domain.Change) *domain.Result {
	return domain.NewResult(c.evaluator.Evaluate(change, c.store)...)
}

// freeID fails with domain.ErrDuplicate when a caller-supplied id is taken.
func (c *Context) freeID(id string) error {
	if id != "" && (c.store.HasNode(id) || c.store.HasEdge(id)) {
		return fmt.Errorf("%w: %q is already in use", domain.ErrDuplicate, id)
	}
	return nil
}
