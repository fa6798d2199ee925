package cli_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/espalier/internal/cli"
	"github.com/aretw0/espalier/pkg/adapters/memory"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/rules"
	"github.com/aretw0/espalier/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const orderScript = `
diagram: order
create: true
steps:
  - type: add_node
    params: {id: task, labels: [task]}
  - type: add_node
    params: {id: timer, labels: [timer]}
  - op: allow
    type: dock
    params: {parent: task, candidate: timer}
  - type: batch
    params:
      label: attach
      steps:
        - type: dock
          params: {parent: task, candidate: timer, edge_id: d1}
        - type: connect
          params: {source: timer, target: task}
  - op: undo
  - op: redo
`

func TestParseScript(t *testing.T) {
	s, err := cli.ParseScript([]byte(orderScript))
	require.NoError(t, err)
	assert.Equal(t, "order", s.Diagram)
	assert.True(t, s.Create)
	require.Len(t, s.Steps, 6)
	assert.Equal(t, cli.OpExecute, s.Steps[0].Op)
	assert.Equal(t, "add_node", s.Steps[0].Type)
	assert.Equal(t, cli.OpAllow, s.Steps[2].Op)
	assert.Equal(t, cli.OpUndo, s.Steps[4].Op)
}

func TestParseScript_Invalid(t *testing.T) {
	cases := map[string]string{
		"missing diagram":      "steps: []\n",
		"unknown op":           "diagram: d\nsteps:\n  - op: rewind\n",
		"execute without type": "diagram: d\nsteps:\n  - op: execute\n",
		"undo with command":    "diagram: d\nsteps:\n  - op: undo\n    type: dock\n",
		"unknown field":        "diagram: d\nsteps:\n  - type: dock\n    parms: {}\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := cli.ParseScript([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestRunScript(t *testing.T) {
	ctx := context.Background()
	m := session.NewManager(memory.NewStore(), session.WithEvaluator(rules.Structural()))

	path := filepath.Join(t.TempDir(), "order.yaml")
	require.NoError(t, os.WriteFile(path, []byte(orderScript), 0o644))
	s, err := cli.LoadScript(path)
	require.NoError(t, err)

	var seen []string
	report, err := cli.RunScript(ctx, m, nil, s, func(o cli.StepOutcome) { seen = append(seen, o.Label) })
	require.NoError(t, err)
	require.Len(t, report.Steps, 6)
	assert.Zero(t, report.Rejected())
	assert.Equal(t, "allow dock timer to task", seen[2])
	assert.Equal(t, []string{"undo", "redo"}, seen[4:])

	snap, err := m.Snapshot(ctx, "order")
	require.NoError(t, err)
	assert.Len(t, snap.Edges, 2)

	// Running again with create set tolerates the existing diagram; the
	// duplicate node is a fault and stops the script.
	report, err = cli.RunScript(ctx, m, nil, s, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDuplicate)
	assert.Len(t, report.Steps, 1)
}

func TestRunScript_Rejections(t *testing.T) {
	ctx := context.Background()
	m := session.NewManager(memory.NewStore(), session.WithEvaluator(rules.Structural()))

	doc := `
diagram: d
create: true
steps:
  - type: add_node
    params: {id: a}
  - type: set_parent
    params: {parent: a, child: a}
  - type: add_node
    params: {id: b}
`
	s, err := cli.ParseScript([]byte(doc))
	require.NoError(t, err)

	report, err := cli.RunScript(ctx, m, nil, s, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 2")
	assert.Equal(t, 1, report.Rejected())
	assert.Len(t, report.Steps, 2)

	s.ContinueOnError = true
	s.Steps = s.Steps[1:]
	report, err = cli.RunScript(ctx, m, nil, s, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Rejected())
	assert.Len(t, report.Steps, 2)
}

func TestLoadScript_Missing(t *testing.T) {
	_, err := cli.LoadScript(filepath.Join(t.TempDir(), "none.yaml"))
	assert.Error(t, err)
}
