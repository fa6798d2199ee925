/*
Package session runs commands against persisted diagrams.

Each call loads the diagram (or reuses the live graph kept in memory), runs the command
through a command.Manager while holding a per-diagram lock, and saves the resulting
snapshot. A ports.DistributedLocker can be added to serialize writers across replicas;
in that mode the graph is reloaded from the store on every call.

Undo and redo history is kept per diagram, in memory, for the life of the Manager.
*/
package session
