package ports

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// contractSnapshot builds a small consistent diagram: a task with a docked timer
// and a labelled connection to an end event.
func contractSnapshot(id string) *domain.Snapshot {
	snap := domain.NewSnapshot(id)
	snap.Nodes = []domain.Node{
		{ID: "end", Labels: []string{"end"}, InEdges: []string{"flow"}},
		{ID: "task", Labels: []string{"task"}, Content: map[string]any{"name": "Review"}, InEdges: []string{"boundary"}, OutEdges: []string{"flow"}},
		{ID: "timer", Labels: []string{"timer"}, OutEdges: []string{"boundary"}},
	}
	snap.Edges = []domain.Edge{
		{ID: "boundary", Kind: domain.KindDock, SourceID: "timer", TargetID: "task"},
		{ID: "flow", Kind: domain.KindConnection, SourceID: "task", TargetID: "end", Content: map[string]any{"label": "done"}},
	}
	return snap
}

// RunSnapshotStoreContract runs a suite of tests to verify that a SnapshotStore implementation
// adheres to the defined interface contract.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	ctx := context.Background()
	diagramID := "contract-test-diagram-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		snap := contractSnapshot(diagramID)

		err := store.Save(ctx, snap)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, diagramID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, diagramID, loaded.DiagramID)
		require.Len(t, loaded.Nodes, 3)
		require.Len(t, loaded.Edges, 2)
		assert.Equal(t, "Review", loaded.Nodes[1].Content["name"])
		assert.Equal(t, domain.KindDock, loaded.Edges[0].Kind)
		assert.Equal(t, []string{"boundary"}, loaded.Nodes[1].InEdges)
		assert.Equal(t, "done", loaded.Edges[1].Content["label"])
	})

	t.Run("Load Returns A Copy", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, contractSnapshot(diagramID)))

		loaded, err := store.Load(ctx, diagramID)
		require.NoError(t, err)
		loaded.Nodes[0].ID = "mutated"

		again, err := store.Load(ctx, diagramID)
		require.NoError(t, err)
		assert.Equal(t, "end", again.Nodes[0].ID)
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, contractSnapshot(diagramID)))

		smaller := domain.NewSnapshot(diagramID)
		smaller.Nodes = []domain.Node{{ID: "only"}}
		require.NoError(t, store.Save(ctx, smaller))

		loaded, err := store.Load(ctx, diagramID)
		require.NoError(t, err)
		require.Len(t, loaded.Nodes, 1)
		assert.Empty(t, loaded.Edges)
	})

	t.Run("Save Rejects Invalid Input", func(t *testing.T) {
		assert.ErrorIs(t, store.Save(ctx, nil), domain.ErrInvalidArgument)
		assert.ErrorIs(t, store.Save(ctx, domain.NewSnapshot("")), domain.ErrInvalidArgument)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+diagramID)
		assert.ErrorIs(t, err, domain.ErrDiagramNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, contractSnapshot(diagramID)))

		err := store.Delete(ctx, diagramID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, diagramID)
		assert.ErrorIs(t, err, domain.ErrDiagramNotFound, "Load after Delete should return ErrDiagramNotFound")

		assert.NoError(t, store.Delete(ctx, diagramID), "Deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := diagramID + "-1"
		id2 := diagramID + "-2"
		require.NoError(t, store.Save(ctx, contractSnapshot(id1)))
		require.NoError(t, store.Save(ctx, contractSnapshot(id2)))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		diagrams, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, diagrams, id1)
		assert.Contains(t, diagrams, id2)
		assert.IsIncreasing(t, diagrams)
	})
}

// RunLockerContract verifies that a DistributedLocker serializes holders of one key
// and leaves other keys independent.
func RunLockerContract(t *testing.T, locker DistributedLocker) {
	ctx := context.Background()
	key := fmt.Sprintf("contract-lock-%d", time.Now().UnixNano())

	t.Run("Lock And Unlock", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, key, time.Second)
		require.NoError(t, err)
		require.NoError(t, unlock(ctx))

		unlock, err = locker.Lock(ctx, key, time.Second)
		require.NoError(t, err, "lock is reusable after release")
		require.NoError(t, unlock(ctx))
	})

	t.Run("Contended Lock Waits For Context", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, key, 5*time.Second)
		require.NoError(t, err)
		defer func() { _ = unlock(ctx) }()

		short, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		defer cancel()
		_, err = locker.Lock(short, key, time.Second)
		assert.Error(t, err)

		other, err := locker.Lock(ctx, key+"-other", time.Second)
		require.NoError(t, err, "distinct keys do not contend")
		require.NoError(t, other(ctx))
	})
}
