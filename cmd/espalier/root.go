package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/espalier/internal/cli"
	"github.com/aretw0/espalier/internal/config"
	"github.com/aretw0/espalier/pkg/command"
	"github.com/aretw0/espalier/pkg/observability"
	"github.com/aretw0/espalier/pkg/rules"
	"github.com/aretw0/espalier/pkg/session"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "espalier",
	Short: "Espalier is a rule-checked command engine for diagram graphs",
	Long: `Espalier edits diagrams (nodes joined by dock, containment and connection edges)
through reversible commands that are checked against structural and user-defined rules.

Configuration is read from ESPALIER_* environment variables; flags override them.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	flags := rootCmd.PersistentFlags()
	flags.String("store", "", "Snapshot store: memory, file, redis or sqlite (env ESPALIER_STORE)")
	flags.String("data-dir", "", "Directory for the file store (env ESPALIER_DATA_DIR)")
	flags.String("redis-addr", "", "Redis address (env ESPALIER_REDIS_ADDR)")
	flags.String("sqlite-path", "", "SQLite database path (env ESPALIER_SQLITE_PATH)")
	flags.String("rules", "", "YAML rule set checked after the structural rules (env ESPALIER_RULES)")
	flags.String("log-level", "", "Log level: debug, info, warn or error (env ESPALIER_LOG_LEVEL)")
}

// loadConfig reads the environment and applies the flags that were set explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	flags := cmd.Flags()
	overrides := map[string]*string{
		"store":       &cfg.Store,
		"data-dir":    &cfg.DataDir,
		"redis-addr":  &cfg.RedisAddr,
		"sqlite-path": &cfg.SQLitePath,
		"rules":       &cfg.Rules,
		"log-level":   &cfg.LogLevel,
	}
	for name, target := range overrides {
		if flags.Changed(name) {
			*target, _ = flags.GetString(name)
		}
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// app bundles what every diagram command needs.
type app struct {
	cfg       config.Config
	logger    *slog.Logger
	backend   *cli.Backend
	evaluator rules.Evaluator
}

func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := cli.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	ev, err := cli.LoadEvaluator(cfg.Rules)
	if err != nil {
		return nil, err
	}
	backend, err := cli.OpenBackend(cfg)
	if err != nil {
		return nil, err
	}
	logger.Debug("backend ready", "store", cfg.Store, "rules", cfg.Rules)
	return &app{cfg: cfg, logger: logger, backend: backend, evaluator: ev}, nil
}

// sessions creates the session manager. Several listeners are chained.
func (a *app) sessions(listeners ...command.Listener) *session.Manager {
	var l command.Listener
	if len(listeners) > 0 {
		l = observability.Chain(listeners...)
	}
	return cli.NewSessions(a.backend, a.evaluator, a.cfg, a.logger, l)
}

func (a *app) Close() {
	if err := a.backend.Close(); err != nil {
		a.logger.Warn("failed to close backend", "err", err)
	}
}
