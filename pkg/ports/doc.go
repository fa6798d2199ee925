/*
Package ports defines the driven ports (interfaces) for the Espalier service layer.

The command engine itself works on an in-memory graph.Store and needs none of these.
They decouple the session layer from where diagrams are persisted and how concurrent
writers are coordinated.

# Key Interfaces

  - SnapshotStore: persists and loads diagram snapshots (memory, file, redis, sqlite).
  - DistributedLocker: provides distributed locking for diagrams edited from several replicas.
*/
package ports
