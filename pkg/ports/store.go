package ports

import (
	"context"

	"github.com/aretw0/espalier/pkg/domain"
)

// SnapshotStore defines the interface for persisting diagram snapshots.
type SnapshotStore interface {
	// Save persists the snapshot under snap.DiagramID, replacing any previous one.
	Save(ctx context.Context, snap *domain.Snapshot) error

	// Load retrieves the snapshot for a given diagram ID.
	// Returns domain.ErrDiagramNotFound if the diagram does not exist.
	Load(ctx context.Context, diagramID string) (*domain.Snapshot, error)

	// Delete removes the snapshot for a given diagram ID.
	// Deleting an unknown diagram is not an error.
	Delete(ctx context.Context, diagramID string) error

	// List returns the IDs of all stored diagrams, sorted.
	List(ctx context.Context) ([]string, error)
}
