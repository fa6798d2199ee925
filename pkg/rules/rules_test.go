package rules_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/graph"
	"github.com/aretw0/espalier/pkg/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture builds: lane contains task; timer docked to task; start -> task connection.
func fixture(t *testing.T) *graph.Store {
	t.Helper()
	s := graph.New("d")
	for id, labels := range map[string][]string{
		"lane":  {"lane"},
		"task":  {"task"},
		"task2": {"task"},
		"timer": {"timer"},
		"start": {"start"},
		"note":  {"note"},
	} {
		require.NoError(t, s.RegisterNode(&domain.Node{ID: id, Labels: labels}))
	}
	link := func(id string, kind domain.EdgeKind, from, to string) {
		src, _ := s.ResolveNode(from)
		tgt, _ := s.ResolveNode(to)
		e := &domain.Edge{ID: id, Kind: kind}
		s.Link(e, src, tgt)
		require.NoError(t, s.RegisterEdge(e))
	}
	link("c1", domain.KindChild, "lane", "task")
	link("d1", domain.KindDock, "timer", "task")
	link("s1", domain.KindConnection, "start", "task")
	require.NoError(t, s.Check())
	return s
}

func TestChain_ConcatenatesInOrder(t *testing.T) {
	first := rules.EvaluatorFunc(func(domain.Change, rules.Graph) []domain.Violation {
		return []domain.Violation{{Severity: domain.SeverityWarning, Message: "first"}}
	})
	second := rules.EvaluatorFunc(func(domain.Change, rules.Graph) []domain.Violation {
		return []domain.Violation{{Severity: domain.SeverityError, Message: "second"}}
	})

	got := rules.Chain(first, nil, rules.Permissive, second).Evaluate(domain.Change{}, graph.New("d"))
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Message)
	assert.Equal(t, "second", got[1].Message)
}

func TestStructural(t *testing.T) {
	s := fixture(t)
	ev := rules.Structural()

	t.Run("Second Dock Parent Rejected", func(t *testing.T) {
		got := ev.Evaluate(domain.DockChange("task2", "timer"), s)
		require.Len(t, got, 1)
		assert.Equal(t, domain.SeverityError, got[0].Severity)
		assert.Equal(t, "timer", got[0].ElementID)
	})

	t.Run("Docking To Same Parent Is Not Its Concern", func(t *testing.T) {
		assert.Empty(t, ev.Evaluate(domain.DockChange("task", "timer"), s))
	})

	t.Run("Single Containing Parent", func(t *testing.T) {
		got := ev.Evaluate(domain.SetParentChange("task2", "task"), s)
		require.Len(t, got, 1)
		assert.Contains(t, got[0].Message, `already contained by "lane"`)
	})

	t.Run("Containment Cycle", func(t *testing.T) {
		got := ev.Evaluate(domain.SetParentChange("task", "lane"), s)
		require.Len(t, got, 1)
		assert.Contains(t, got[0].Message, "cycle")
	})

	t.Run("Self Connection Warns", func(t *testing.T) {
		got := ev.Evaluate(domain.Change{Kind: domain.ChangeConnect, EdgeKind: domain.KindConnection, SourceID: "task", TargetID: "task"}, s)
		require.Len(t, got, 1)
		assert.Equal(t, domain.SeverityWarning, got[0].Severity)
	})

	t.Run("Delete With Edges Informs", func(t *testing.T) {
		got := ev.Evaluate(domain.Change{Kind: domain.ChangeDeleteNode, NodeID: "task"}, s)
		require.Len(t, got, 1)
		assert.Equal(t, domain.SeverityInfo, got[0].Severity)
		assert.Contains(t, got[0].Message, "3 edge(s)")

		assert.Empty(t, ev.Evaluate(domain.Change{Kind: domain.ChangeDeleteNode, NodeID: "note"}, s))
	})
}

const ruleSetYAML = `
name: bpmn-lite
rules:
  - type: docking
    subject: task
    allow: [timer, error]
  - type: containment
    subject: lane
    allow: [task]
    severity: warning
  - type: connection
    subject: start
    allow: [task]
  - id: single-start-exit
    type: cardinality
    subject: start
    direction: outgoing
    max: 1
    message: start events have a single outgoing flow
`

func TestRuleSet_Evaluate(t *testing.T) {
	rs, err := rules.ParseRuleSet([]byte(ruleSetYAML))
	require.NoError(t, err)
	assert.Equal(t, "bpmn-lite", rs.Name)
	require.Len(t, rs.Rules, 4)
	assert.Equal(t, "docking#0", rs.Rules[0].ID)

	s := fixture(t)

	t.Run("Docking Allowed Label", func(t *testing.T) {
		assert.Empty(t, rs.Evaluate(domain.DockChange("task2", "timer"), s))
	})

	t.Run("Docking Forbidden Label", func(t *testing.T) {
		got := rs.Evaluate(domain.DockChange("task2", "note"), s)
		require.Len(t, got, 1)
		assert.Equal(t, domain.SeverityError, got[0].Severity)
		assert.Equal(t, `"note" may not be docked to "task2"`, got[0].Message)
	})

	t.Run("Parent Without Subject Label Is Unconstrained", func(t *testing.T) {
		assert.Empty(t, rs.Evaluate(domain.DockChange("note", "lane"), s))
	})

	t.Run("Containment Uses Configured Severity", func(t *testing.T) {
		got := rs.Evaluate(domain.SetParentChange("lane", "note"), s)
		require.Len(t, got, 1)
		assert.Equal(t, domain.SeverityWarning, got[0].Severity)
	})

	t.Run("Connection Target Label", func(t *testing.T) {
		change := domain.Change{Kind: domain.ChangeConnect, EdgeKind: domain.KindConnection, SourceID: "start", TargetID: "note"}
		got := rs.Evaluate(change, s)
		// Both the label rule and the cardinality rule fire.
		require.Len(t, got, 2)
		assert.Equal(t, "start events have a single outgoing flow", got[1].Message)
	})
}

func TestParseRuleSet_Invalid(t *testing.T) {
	cases := map[string]string{
		"unknown type":     "rules:\n  - type: magic\n    subject: a\n",
		"missing subject":  "rules:\n  - type: docking\n    allow: [a]\n",
		"missing allow":    "rules:\n  - type: docking\n    subject: a\n",
		"bad direction":    "rules:\n  - type: cardinality\n    subject: a\n    direction: up\n",
		"bad severity":     "rules:\n  - type: docking\n    subject: a\n    allow: [b]\n    severity: fatal\n",
		"unknown field":    "rules:\n  - type: docking\n    subject: a\n    allow: [b]\n    colour: red\n",
		"negative maximum": "rules:\n  - type: cardinality\n    subject: a\n    direction: incoming\n    max: -1\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := rules.ParseRuleSet([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestParseRuleSet_Empty(t *testing.T) {
	rs, err := rules.ParseRuleSet(nil)
	require.NoError(t, err)
	assert.Empty(t, rs.Rules)
}

func TestLoadRuleSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(ruleSetYAML), 0o644))

	rs, err := rules.LoadRuleSet(path)
	require.NoError(t, err)
	assert.Len(t, rs.Rules, 4)

	_, err = rules.LoadRuleSet(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestAudit(t *testing.T) {
	s := fixture(t)

	res, err := rules.Audit(s.Snapshot(), rules.Structural())
	require.NoError(t, err)
	assert.True(t, res.IsSuccess(), res.String())

	// A second containing parent is only visible once c1 has been replayed.
	task2, _ := s.ResolveNode("task2")
	task, _ := s.ResolveNode("task")
	e := &domain.Edge{ID: "c2", Kind: domain.KindChild}
	s.Link(e, task2, task)
	require.NoError(t, s.RegisterEdge(e))

	res, err = rules.Audit(s.Snapshot(), rules.Structural())
	require.NoError(t, err)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, domain.SeverityError, res.Violations[0].Severity)
	assert.Contains(t, res.Violations[0].Message, `already contained by "lane"`)

	res, err = rules.Audit(s.Snapshot(), nil)
	require.NoError(t, err)
	assert.True(t, res.IsSuccess())
}

func TestAudit_RejectsInconsistentSnapshot(t *testing.T) {
	snap := &domain.Snapshot{DiagramID: "d", Nodes: []domain.Node{{ID: "a", OutEdges: []string{"ghost"}}}}
	_, err := rules.Audit(snap, rules.Structural())
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}
