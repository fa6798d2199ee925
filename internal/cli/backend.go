package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/espalier/internal/config"
	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/adapters/file"
	"github.com/aretw0/espalier/pkg/adapters/memory"
	"github.com/aretw0/espalier/pkg/adapters/redis"
	"github.com/aretw0/espalier/pkg/adapters/sqlite"
	"github.com/aretw0/espalier/pkg/command"
	"github.com/aretw0/espalier/pkg/persistence/middleware"
	"github.com/aretw0/espalier/pkg/ports"
	"github.com/aretw0/espalier/pkg/rules"
	"github.com/aretw0/espalier/pkg/session"
)

// LockPrefix namespaces distributed lock keys in Redis.
const LockPrefix = "espalier:lock:"

// Backend is the snapshot store selected by configuration, plus the
// distributed locker when the store supports one.
type Backend struct {
	Store  ports.SnapshotStore
	Locker ports.DistributedLocker

	closers []func() error
}

// Close releases every connection opened by OpenBackend.
func (b *Backend) Close() error {
	var errs []error
	for _, c := range b.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// OpenBackend builds the snapshot store named by cfg.Store.
func OpenBackend(cfg config.Config) (*Backend, error) {
	b := &Backend{}
	switch cfg.Store {
	case config.StoreMemory:
		b.Store = memory.NewStore()
	case config.StoreFile, "":
		b.Store = file.New(cfg.DataDir)
	case config.StoreRedis:
		var opts []redis.Option
		if cfg.RedisTTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.RedisTTL))
		}
		st := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, opts...)
		b.Store = st
		b.closers = append(b.closers, st.Close)
		if cfg.RedisLock {
			b.Locker = redis.NewLocker(st.Client(), LockPrefix)
		}
	case config.StoreSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
			}
		}
		st, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		b.Store = st
		b.closers = append(b.closers, st.Close)
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}

	mws, err := storeMiddleware(cfg)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	b.Store = middleware.Wrap(b.Store, mws...)
	return b, nil
}

// storeMiddleware builds redaction then encryption, as configured.
func storeMiddleware(cfg config.Config) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if len(cfg.RedactKeys) > 0 {
		mw, err := middleware.NewRedactionMiddleware(cfg.RedactKeys)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	active, fallback, err := cfg.EncryptionKeys()
	if err != nil {
		return nil, err
	}
	if active != nil {
		mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: active, FallbackKeys: fallback})
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	return mws, nil
}

// LoadEvaluator returns the structural rules, followed by the rule set at path when given.
func LoadEvaluator(path string) (rules.Evaluator, error) {
	if path == "" {
		return rules.Structural(), nil
	}
	rs, err := rules.LoadRuleSet(path)
	if err != nil {
		return nil, err
	}
	return rules.Chain(rules.Structural(), rs), nil
}

// NewLogger builds the process logger for a level name.
func NewLogger(level string) (*slog.Logger, error) {
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return logging.New(lvl), nil
}

// NewSessions wires a session manager over the backend.
func NewSessions(b *Backend, ev rules.Evaluator, cfg config.Config, logger *slog.Logger, listener command.Listener) *session.Manager {
	opts := []session.Option{
		session.WithEvaluator(ev),
		session.WithLogger(logger),
		session.WithHistoryLimit(cfg.HistoryLimit),
	}
	if listener != nil {
		opts = append(opts, session.WithListener(listener))
	}
	if b.Locker != nil {
		opts = append(opts, session.WithLocker(b.Locker))
	}
	return session.NewManager(b.Store, opts...)
}
