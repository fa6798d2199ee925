/*
Package espalier is a command engine for editing diagram graphs.

A diagram is a set of nodes joined by typed edges: dock (a node attached to the
boundary of another), child (containment) and connection. Every edit is a
reversible command that is checked against pluggable rules before it touches the
graph, so a rejected edit never leaves the diagram half-changed.

# Key Concepts

  - Editor: an in-memory diagram with a command manager and undo/redo history.
  - Command: an edit with Allow (dry run), Execute and Undo. See pkg/command.
  - Result: the outcome of a command. An ERROR violation means the graph was not changed.
  - Evaluator: the rule hook consulted before every change. See pkg/rules.
  - Session: a persisted, lockable Editor keyed by diagram ID. See pkg/session.

# Usage

	ed := espalier.New("order-flow", espalier.WithEvaluator(rules.Structural()))
	ed.Execute(command.NewAddNode("task"))
	ed.Execute(command.NewAddNode("timer", "event"))

	res, err := ed.Execute(command.NewDock("task", "timer"))
	if err != nil {
		// unknown node or invalid argument
	}
	if res.HasError() {
		// rejected by a rule; nothing changed
	}

For service use, pkg/session persists diagrams through the adapters in
pkg/adapters, and cmd/espalier exposes them over a CLI, HTTP and MCP.
*/
package espalier
