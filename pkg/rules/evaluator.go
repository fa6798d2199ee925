package rules

import (
	"github.com/aretw0/espalier/pkg/domain"
)

// Graph is the read-only view of the diagram an evaluator may consult.
// *graph.Store satisfies it.
type Graph interface {
	ResolveNode(id string) (*domain.Node, error)
	ResolveEdge(id string) (*domain.Edge, error)
	InEdges(n *domain.Node) []*domain.Edge
	OutEdges(n *domain.Node) []*domain.Edge
}

// Evaluator decides whether a proposed change is permitted.
// Evaluators must not mutate the graph.
type Evaluator interface {
	Evaluate(change domain.Change, g Graph) []domain.Violation
}

// EvaluatorFunc adapts a function to the Evaluator interface.
type EvaluatorFunc func(change domain.Change, g Graph) []domain.Violation

// Evaluate calls f.
func (f EvaluatorFunc) Evaluate(change domain.Change, g Graph) []domain.Violation {
	return f(change, g)
}

// Permissive allows every change.
var Permissive Evaluator = EvaluatorFunc(func(domain.Change, Graph) []domain.Violation {
	return nil
})

// Chain evaluates each evaluator in order and concatenates the violations.
// Nil entries are skipped.
func Chain(evaluators ...Evaluator) Evaluator {
	return EvaluatorFunc(func(change domain.Change, g Graph) []domain.Violation {
		var out []domain.Violation
		for _, ev := range evaluators {
			if ev == nil {
				continue
			}
			out = append(out, ev.Evaluate(change, g)...)
		}
		return out
	})
}
