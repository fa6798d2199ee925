/*
Package command implements structural edits to a diagram graph as reversible commands,
and the Manager that sequences them.

A Command holds identifiers only. Every call resolves them afresh through the Context,
asks the rule evaluator about the proposed change, and mutates the graph.Store only when
neither step reported a problem. Two failure channels are kept apart:

  - a returned error means a structural fault (unknown identifier, missing argument,
    identifier collision). No mutation was attempted and there is no result.
  - a *domain.Result carrying an ERROR violation means the change was rejected by a
    rule. The graph is unchanged. WARNING and INFO violations do not block.

# Key Types

  - Context: per-call bundle of store, evaluator, edge ID source and logger.
  - Dock / UnDock: the dock relationship (candidate -> parent).
  - SetParent / RemoveParent / NewReparent: containment (parent -> child).
  - Connect / Disconnect: generic connections.
  - AddNode / DeleteNode: node lifecycle; deletion removes and remembers incident edges.
  - Composite: an ordered batch that is atomic on execute and undo.
  - Manager: the single entry point that notifies one Listener after every call.
*/
package command
