/*
Package graph implements the Graph Store: an arena of nodes and edges keyed by stable
identifier, plus the index commands use to resolve those identifiers.

Nodes and edges never hold pointers to each other. A node lists its edge IDs and an edge
names its endpoint node IDs; every cross-reference goes through the store. Commands
update the index incrementally (RegisterEdge, RemoveEdge, ...) as the last step of a
successful apply. The store performs no locking and has no transactions: it assumes a
single writer, and rollback is the responsibility of each command's execute/undo pair.
A batch that fails part way puts the whole store back with Restore.
*/
package graph
