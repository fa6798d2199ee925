package command_test

import (
	"fmt"
	"testing"

	"github.com/aretw0/espalier/pkg/command"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/graph"
	"github.com/aretw0/espalier/pkg/rules"
	"github.com/stretchr/testify/require"
)

// sequence returns a deterministic edge ID generator: e1, e2, ...
func sequence() command.IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("e%d", n)
	}
}

// newGraph builds a store holding the given nodes, each labelled with its own ID.
func newGraph(t *testing.T, ids ...string) *graph.Store {
	t.Helper()
	s := graph.New("test")
	for _, id := range ids {
		require.NoError(t, s.RegisterNode(&domain.Node{ID: id, Labels: []string{id}}))
	}
	return s
}

func newContext(s *graph.Store, opts ...command.ContextOption) *command.Context {
	return command.NewContext(s, append([]command.ContextOption{command.WithIDGenerator(sequence())}, opts...)...)
}

// rejecting returns an evaluator that reports an ERROR for changes of the given kind.
func rejecting(kind domain.ChangeKind) rules.Evaluator {
	return rules.EvaluatorFunc(func(c domain.Change, _ rules.Graph) []domain.Violation {
		if c.Kind == kind {
			return []domain.Violation{domain.NewViolation(domain.SeverityError, "", "%s is forbidden", kind)}
		}
		return nil
	})
}

func warning(msg string) rules.Evaluator {
	return rules.EvaluatorFunc(func(domain.Change, rules.Graph) []domain.Violation {
		return []domain.Violation{{Severity: domain.SeverityWarning, Message: msg}}
	})
}

func requireUnchanged(t *testing.T, before *domain.Snapshot, s *graph.Store) {
	t.Helper()
	after := s.Snapshot()
	require.True(t, graph.Equivalent(before, after), "graph changed: %v", graph.Differences(before, after))
	require.NoError(t, s.Check())
}
