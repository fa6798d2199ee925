/*
Package domain contains the core types of the Espalier graph command engine.

It defines the elements of a diagram graph, the change descriptions handed to rule
evaluators and the results commands report back. This package is kept pure and free of
external dependencies like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - Node: A diagram element with a stable ID, labels and ordered incoming/outgoing edge IDs.
  - Edge: A typed relationship (dock, child, connection) between two nodes, referenced by ID.
  - Change: A description of a proposed structural edit, evaluated by rules before it is applied.
  - Result: The outcome of allow/execute/undo: success or an ordered list of Violations.
  - Snapshot: A serializable copy of a diagram, used by stores and for structural comparison.
*/
package domain
