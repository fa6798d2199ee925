package espalier

import (
	"log/slog"

	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/command"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/graph"
	"github.com/aretw0/espalier/pkg/history"
	"github.com/aretw0/espalier/pkg/rules"
)

// Editor is the high-level entry point for the library.
// It owns one in-memory diagram and runs commands against it with undo/redo.
// An Editor is not safe for concurrent use; pkg/session adds locking and persistence.
type Editor struct {
	store   *graph.Store
	ctx     *command.Context
	manager *command.Manager
	history *history.History
}

type config struct {
	evaluator    rules.Evaluator
	ids          command.IDGenerator
	logger       *slog.Logger
	listener     command.Listener
	historyLimit int
}

// Option defines a functional option for configuring the Editor.
type Option func(*config)

// WithEvaluator sets the rule evaluator. The default allows every change.
func WithEvaluator(ev rules.Evaluator) Option {
	return func(c *config) {
		c.evaluator = ev
	}
}

// WithIDGenerator sets the generator for new edge IDs.
func WithIDGenerator(gen command.IDGenerator) Option {
	return func(c *config) {
		c.ids = gen
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithListener registers the single command listener.
func WithListener(l command.Listener) Option {
	return func(c *config) {
		c.listener = l
	}
}

// WithHistoryLimit bounds the undo stack. Zero keeps everything.
func WithHistoryLimit(n int) Option {
	return func(c *config) {
		c.historyLimit = n
	}
}

// New creates an Editor over an empty diagram.
func New(diagramID string, opts ...Option) *Editor {
	return newEditor(graph.New(diagramID), opts)
}

// Open creates an Editor over a copy of snap.
// An inconsistent snapshot is rejected with an error wrapping domain.ErrInvalidArgument.
func Open(snap *domain.Snapshot, opts ...Option) (*Editor, error) {
	s, err := graph.FromSnapshot(snap)
	if err != nil {
		return nil, err
	}
	return newEditor(s, opts), nil
}

func newEditor(s *graph.Store, opts []Option) *Editor {
	c := &config{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(c)
	}

	m := command.NewManager(command.WithListener(c.listener))
	return &Editor{
		store: s,
		ctx: command.NewContext(s,
			command.WithEvaluator(c.evaluator),
			command.WithIDGenerator(c.ids),
			command.WithLogger(c.logger),
		),
		manager: m,
		history: history.New(m, history.WithLimit(c.historyLimit)),
	}
}

// Allow reports whether cmd would be accepted, without changing the diagram.
func (e *Editor) Allow(cmd command.Command) (*domain.Result, error) {
	return e.manager.Allow(e.ctx, cmd)
}

// Execute runs cmd and records it for undo unless the result carries an ERROR.
func (e *Editor) Execute(cmd command.Command) (*domain.Result, error) {
	return e.history.Execute(e.ctx, cmd)
}

// Undo reverses the last executed command.
func (e *Editor) Undo() (*domain.Result, error) {
	return e.history.Undo(e.ctx)
}

// Redo re-executes the last undone command.
func (e *Editor) Redo() (*domain.Result, error) {
	return e.history.Redo(e.ctx)
}

// CanUndo reports whether Undo has anything to reverse.
func (e *Editor) CanUndo() bool { return e.history.CanUndo() }

// CanRedo reports whether Redo has anything to re-execute.
func (e *Editor) CanRedo() bool { return e.history.CanRedo() }

// Snapshot returns a copy of the current diagram.
func (e *Editor) Snapshot() *domain.Snapshot {
	return e.store.Snapshot()
}

// Graph exposes the live store for read access. Mutating it directly bypasses rules and history.
func (e *Editor) Graph() *graph.Store {
	return e.store
}

// Check audits the whole diagram against the configured evaluator.
func (e *Editor) Check() (*domain.Result, error) {
	return rules.Audit(e.store.Snapshot(), e.ctx.Evaluator())
}
