/*
Package rules defines the Rule Evaluator contract and a few reference evaluators.

An Evaluator receives a description of a proposed structural change (domain.Change) and
read access to the graph, and returns zero or more violations. An empty slice means the
change is permitted. The engine treats evaluators as opaque: it only interprets the
severity of what they return.

# Key Types

  - Evaluator / EvaluatorFunc: the contract and its function adapter.
  - Chain: runs several evaluators in order and concatenates their findings.
  - Structural: containment and docking invariants that hold for every diagram type.
  - RuleSet: declarative docking, containment, connection and cardinality rules over node labels, loaded from YAML.
  - Audit: replays a stored diagram through an evaluator to report what it violates.
*/
package rules
