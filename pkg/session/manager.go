package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/command"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/graph"
	"github.com/aretw0/espalier/pkg/history"
	"github.com/aretw0/espalier/pkg/ports"
	"github.com/aretw0/espalier/pkg/rules"
)

// DefaultLockTTL bounds how long a distributed lock survives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// diagram is the live state kept for one diagram between calls.
type diagram struct {
	store   *graph.Store
	history *history.History
}

// Manager orchestrates diagram access, ensuring safe concurrent operations.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store ports.SnapshotStore

	mu       sync.Mutex            // Global lock for the maps
	locks    map[string]*lockEntry // Map of active locks
	diagrams map[string]*diagram

	locker       ports.DistributedLocker
	lockTTL      time.Duration
	logger       *slog.Logger
	evaluator    rules.Evaluator
	ids          command.IDGenerator
	commands     *command.Manager
	historyLimit int
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager and the commands it runs.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithEvaluator sets the rule evaluator used for every command.
func WithEvaluator(ev rules.Evaluator) Option {
	return func(m *Manager) {
		m.evaluator = ev
	}
}

// WithIDGenerator sets the source of new edge IDs.
func WithIDGenerator(gen command.IDGenerator) Option {
	return func(m *Manager) {
		m.ids = gen
	}
}

// WithListener registers the command listener.
func WithListener(l command.Listener) Option {
	return func(m *Manager) {
		m.commands.SetListener(l)
	}
}

// WithHistoryLimit caps the undo stack of each diagram.
func WithHistoryLimit(n int) Option {
	return func(m *Manager) {
		m.historyLimit = n
	}
}

// NewManager creates a new diagram Manager over the given snapshot store.
func NewManager(store ports.SnapshotStore, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		locks:     make(map[string]*lockEntry),
		diagrams:  make(map[string]*diagram),
		lockTTL:   DefaultLockTTL,
		logger:    logging.NewNop(),
		evaluator: rules.Permissive,
		commands:  command.NewManager(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(diagramID) after unlocking.
func (m *Manager) acquire(diagramID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[diagramID]
	if !exists {
		entry = &lockEntry{}
		m.locks[diagramID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(diagramID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[diagramID]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, diagramID)
	}
}

// WithLock executes a function while holding the lock for the diagram.
func (m *Manager) WithLock(ctx context.Context, diagramID string, fn func(context.Context) error) error {
	entry := m.acquire(diagramID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(diagramID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, diagramID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"diagram_id", diagramID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Store returns the underlying snapshot store.
func (m *Manager) Store() ports.SnapshotStore {
	return m.store
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Create stores an empty diagram. It fails with domain.ErrDuplicate if the ID exists.
func (m *Manager) Create(ctx context.Context, diagramID string) (*domain.Snapshot, error) {
	if diagramID == "" {
		return nil, fmt.Errorf("%w: diagram id is required", domain.ErrInvalidArgument)
	}
	snap := domain.NewSnapshot(diagramID)
	err := m.WithLock(ctx, diagramID, func(ctx context.Context) error {
		_, err := m.store.Load(ctx, diagramID)
		if err == nil {
			return fmt.Errorf("%w: diagram %q already exists", domain.ErrDuplicate, diagramID)
		}
		if !errors.Is(err, domain.ErrDiagramNotFound) {
			return fmt.Errorf("failed to check diagram existence: %w", err)
		}
		if err := m.store.Save(ctx, snap); err != nil {
			return fmt.Errorf("failed to create diagram: %w", err)
		}
		m.forget(diagramID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Import validates a snapshot and stores it, replacing the diagram and its history.
func (m *Manager) Import(ctx context.Context, snap *domain.Snapshot) error {
	if _, err := graph.FromSnapshot(snap); err != nil {
		return err
	}
	if snap.DiagramID == "" {
		return fmt.Errorf("%w: diagram id is required", domain.ErrInvalidArgument)
	}
	return m.WithLock(ctx, snap.DiagramID, func(ctx context.Context) error {
		if err := m.store.Save(ctx, snap); err != nil {
			return fmt.Errorf("failed to import diagram: %w", err)
		}
		m.forget(snap.DiagramID)
		return nil
	})
}

// Snapshot returns the current state of a diagram.
func (m *Manager) Snapshot(ctx context.Context, diagramID string) (*domain.Snapshot, error) {
	var snap *domain.Snapshot
	err := m.WithLock(ctx, diagramID, func(ctx context.Context) error {
		d, err := m.load(ctx, diagramID)
		if err != nil {
			return err
		}
		snap = d.store.Snapshot()
		return nil
	})
	return snap, err
}

// Delete removes the diagram from the store and drops its history.
func (m *Manager) Delete(ctx context.Context, diagramID string) error {
	return m.WithLock(ctx, diagramID, func(ctx context.Context) error {
		m.forget(diagramID)
		return m.store.Delete(ctx, diagramID)
	})
}

// Allow checks cmd against the diagram without changing it.
func (m *Manager) Allow(ctx context.Context, diagramID string, cmd command.Command) (*domain.Result, error) {
	var res *domain.Result
	err := m.WithLock(ctx, diagramID, func(ctx context.Context) error {
		d, err := m.load(ctx, diagramID)
		if err != nil {
			return err
		}
		res, err = m.commands.Allow(m.context(d), cmd)
		return err
	})
	return res, err
}

// Execute runs cmd and persists the diagram unless the result carries an ERROR.
func (m *Manager) Execute(ctx context.Context, diagramID string, cmd command.Command) (*domain.Result, error) {
	return m.mutate(ctx, diagramID, func(d *diagram, cctx *command.Context) (*domain.Result, error) {
		return d.history.Execute(cctx, cmd)
	}, func(d *diagram, cctx *command.Context) (*domain.Result, error) {
		return d.history.Undo(cctx)
	})
}

// Undo reverses the last command executed on the diagram.
func (m *Manager) Undo(ctx context.Context, diagramID string) (*domain.Result, error) {
	return m.mutate(ctx, diagramID, func(d *diagram, cctx *command.Context) (*domain.Result, error) {
		return d.history.Undo(cctx)
	}, func(d *diagram, cctx *command.Context) (*domain.Result, error) {
		return d.history.Redo(cctx)
	})
}

// Redo re-executes the last undone command.
func (m *Manager) Redo(ctx context.Context, diagramID string) (*domain.Result, error) {
	return m.mutate(ctx, diagramID, func(d *diagram, cctx *command.Context) (*domain.Result, error) {
		return d.history.Redo(cctx)
	}, func(d *diagram, cctx *command.Context) (*domain.Result, error) {
		return d.history.Undo(cctx)
	})
}

// mutate runs op under the lock and saves the snapshot. When saving fails,
// revert restores the live graph so it keeps matching the store.
func (m *Manager) mutate(ctx context.Context, diagramID string,
	op func(*diagram, *command.Context) (*domain.Result, error),
	revert func(*diagram, *command.Context) (*domain.Result, error),
) (*domain.Result, error) {
	var res *domain.Result
	err := m.WithLock(ctx, diagramID, func(ctx context.Context) error {
		d, err := m.load(ctx, diagramID)
		if err != nil {
			return err
		}
		cctx := m.context(d)
		res, err = op(d, cctx)
		if err != nil || res.HasError() {
			return err
		}
		if err := m.store.Save(ctx, d.store.Snapshot()); err != nil {
			if rres, rerr := revert(d, cctx); rerr != nil || rres.HasError() {
				m.logger.Warn("Failed to revert diagram after save error",
					"diagram_id", diagramID, "err", rerr, "result", rres.String())
			}
			return fmt.Errorf("failed to save diagram %q: %w", diagramID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (m *Manager) context(d *diagram) *command.Context {
	return command.NewContext(d.store,
		command.WithEvaluator(m.evaluator),
		command.WithIDGenerator(m.ids),
		command.WithLogger(m.logger),
	)
}

// load returns the live diagram, reading the snapshot when it is not cached
// or when another replica may have changed it.
func (m *Manager) load(ctx context.Context, diagramID string) (*diagram, error) {
	m.mu.Lock()
	d, ok := m.diagrams[diagramID]
	m.mu.Unlock()
	if ok && m.locker == nil {
		return d, nil
	}

	snap, err := m.store.Load(ctx, diagramID)
	if err != nil {
		return nil, err
	}
	s, err := graph.FromSnapshot(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to load diagram %q: %w", diagramID, err)
	}

	if !ok {
		d = &diagram{history: history.New(m.commands, history.WithLimit(m.historyLimit))}
	}
	d.store = s

	m.mu.Lock()
	m.diagrams[diagramID] = d
	m.mu.Unlock()
	return d, nil
}

func (m *Manager) forget(diagramID string) {
	m.mu.Lock()
	delete(m.diagrams, diagramID)
	m.mu.Unlock()
}
