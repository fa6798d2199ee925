package cli_test

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/espalier/internal/cli"
	"github.com/aretw0/espalier/internal/config"
	"github.com/aretw0/espalier/pkg/adapters/file"
	"github.com/aretw0/espalier/pkg/adapters/memory"
	"github.com/aretw0/espalier/pkg/command"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/persistence/middleware"
	"github.com/aretw0/espalier/pkg/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	cases := map[string]config.Config{
		config.StoreMemory: {Store: config.StoreMemory},
		config.StoreFile:   {Store: config.StoreFile, DataDir: filepath.Join(t.TempDir(), "diagrams")},
		config.StoreSQLite: {Store: config.StoreSQLite, SQLitePath: filepath.Join(t.TempDir(), "nested", "espalier.db")},
		config.StoreRedis:  {Store: config.StoreRedis, RedisAddr: mr.Addr(), RedisLock: true},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			b, err := cli.OpenBackend(cfg)
			require.NoError(t, err)
			defer func() { assert.NoError(t, b.Close()) }()

			require.NoError(t, b.Store.Save(ctx, domain.NewSnapshot("d1")))
			ids, err := b.Store.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"d1"}, ids)
			assert.Equal(t, name == config.StoreRedis, b.Locker != nil)
		})
	}

	t.Run("types", func(t *testing.T) {
		b, err := cli.OpenBackend(config.Config{Store: config.StoreMemory})
		require.NoError(t, err)
		assert.IsType(t, &memory.Store{}, b.Store)

		b, err = cli.OpenBackend(config.Config{Store: config.StoreFile, DataDir: t.TempDir()})
		require.NoError(t, err)
		assert.IsType(t, &file.Store{}, b.Store)
	})

	t.Run("encrypted and redacted", func(t *testing.T) {
		dir := t.TempDir()
		cfg := config.Config{
			Store:         config.StoreFile,
			DataDir:       dir,
			EncryptionKey: base64.StdEncoding.EncodeToString(make([]byte, 32)),
			RedactKeys:    []string{"token"},
		}
		b, err := cli.OpenBackend(cfg)
		require.NoError(t, err)

		snap := domain.NewSnapshot("d1")
		snap.Nodes = append(snap.Nodes, domain.Node{ID: "n", Content: map[string]any{"token": "abc", "name": "visible"}})
		require.NoError(t, b.Store.Save(ctx, snap))

		raw, err := file.New(dir).Load(ctx, "d1")
		require.NoError(t, err)
		require.Len(t, raw.Nodes, 1)
		assert.Equal(t, middleware.EnvelopeNodeID, raw.Nodes[0].ID)

		loaded, err := b.Store.Load(ctx, "d1")
		require.NoError(t, err)
		assert.Equal(t, middleware.Mask, loaded.Nodes[0].Content["token"])
		assert.Equal(t, "visible", loaded.Nodes[0].Content["name"])

		cfg.EncryptionKey = base64.StdEncoding.EncodeToString([]byte("short"))
		_, err = cli.OpenBackend(cfg)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := cli.OpenBackend(config.Config{Store: "etcd"})
		assert.Error(t, err)
	})
}

func TestLoadEvaluator(t *testing.T) {
	ev, err := cli.LoadEvaluator("")
	require.NoError(t, err)
	assert.NotNil(t, ev)

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules:\n  - type: docking\n    subject: task\n    allow: [timer]\n"), 0o644))
	ev, err = cli.LoadEvaluator(path)
	require.NoError(t, err)

	b, err := cli.OpenBackend(config.Config{Store: config.StoreMemory})
	require.NoError(t, err)
	m := cli.NewSessions(b, ev, config.Config{HistoryLimit: 10}, nil, nil)
	ctx := context.Background()
	_, err = m.Create(ctx, "d1")
	require.NoError(t, err)
	for _, id := range []string{"task", "note"} {
		_, err := m.Execute(ctx, "d1", command.NewAddNode(id, id))
		require.NoError(t, err)
	}
	res, err := m.Execute(ctx, "d1", command.NewDock("task", "note"))
	require.NoError(t, err)
	assert.True(t, res.HasError(), "rule set is chained after the structural rules")

	_, err = cli.LoadEvaluator(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
	var _ rules.Evaluator = ev
}

func TestNewLogger(t *testing.T) {
	logger, err := cli.NewLogger("debug")
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = cli.NewLogger("loud")
	assert.Error(t, err)
}
