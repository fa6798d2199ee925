package observability_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/command"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/graph"
	"github.com/aretw0/espalier/pkg/observability"
	"github.com/aretw0/espalier/pkg/rules"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(t *testing.T) *command.Context {
	t.Helper()
	s := graph.New("obs")
	for _, id := range []string{"task", "timer", "other"} {
		require.NoError(t, s.RegisterNode(&domain.Node{ID: id}))
	}
	return command.NewContext(s, command.WithEvaluator(rules.Structural()))
}

func TestMetrics_CountsCallsAndViolations(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	ctx := newContext(t)
	m := command.NewManager(command.WithListener(metrics))

	_, err = m.Execute(ctx, command.NewDock("task", "timer"))
	require.NoError(t, err)
	res, err := m.Execute(ctx, command.NewDock("other", "timer"))
	require.NoError(t, err)
	require.True(t, res.HasError())
	_, err = m.Allow(ctx, command.NewDock("task", "timer"))
	require.NoError(t, err)

	// Faults are not notified, so not counted.
	_, err = m.Execute(ctx, command.NewDock("task", "ghost"))
	require.Error(t, err)

	expected := `
# HELP espalier_commands_total Total number of command calls by operation, command type and result type
# TYPE espalier_commands_total counter
espalier_commands_total{command="dock",op="allow",outcome="error"} 1
espalier_commands_total{command="dock",op="execute",outcome="error"} 1
espalier_commands_total{command="dock",op="execute",outcome="success"} 1
# HELP espalier_violations_total Total number of rule violations reported, by severity
# TYPE espalier_violations_total counter
espalier_violations_total{severity="error"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected)))

	_, err = observability.NewMetrics(reg)
	assert.Error(t, err, "registering twice fails")
}

func TestChain_ForwardsInOrder(t *testing.T) {
	var order []string
	record := func(name string) command.Listener {
		return command.ListenerFuncs{
			AfterExecute: func(*command.Context, command.Command, *domain.Result) { order = append(order, name) },
		}
	}

	ctx := newContext(t)
	m := command.NewManager(command.WithListener(observability.Chain(record("first"), nil, record("second"))))
	_, err := m.Execute(ctx, command.NewDock("task", "timer"))
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestLogListener(t *testing.T) {
	var buf bytes.Buffer
	ctx := newContext(t)
	m := command.NewManager(command.WithListener(observability.NewLogListener(logging.NewWithWriter(&buf, slog.LevelInfo))))

	_, err := m.Execute(ctx, command.NewDock("task", "timer"))
	require.NoError(t, err)
	_, err = m.Execute(ctx, command.NewDock("other", "timer"))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "level=INFO msg=command op=execute command=dock")
	assert.Contains(t, out, "diagram=obs")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "already docked")
}
