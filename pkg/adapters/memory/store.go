package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
)

var _ ports.SnapshotStore = (*Store)(nil)

// Store implements ports.SnapshotStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Snapshot
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Snapshot),
	}
}

// Save keeps a deep copy of the snapshot, similar to serialization.
func (s *Store) Save(ctx context.Context, snap *domain.Snapshot) error {
	if snap == nil || snap.DiagramID == "" {
		return fmt.Errorf("%w: snapshot requires a diagram id", domain.ErrInvalidArgument)
	}
	copied := snap.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[snap.DiagramID] = copied
	return nil
}

// Load retrieves a copy of the snapshot so callers can't mutate the stored one.
func (s *Store) Load(ctx context.Context, diagramID string) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.data[diagramID]
	if !ok {
		return nil, domain.ErrDiagramNotFound
	}
	return snap.Clone(), nil
}

// Delete removes the snapshot.
func (s *Store) Delete(ctx context.Context, diagramID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, diagramID)
	return nil
}

// List returns the stored diagram IDs.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	diagrams := make([]string, 0, len(s.data))
	for id := range s.data {
		diagrams = append(diagrams, id)
	}
	sort.Strings(diagrams)
	return diagrams, nil
}
