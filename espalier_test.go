package espalier_test

import (
	"testing"

	"github.com/aretw0/espalier"
	"github.com/aretw0/espalier/pkg/command"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersion(t *testing.T) {
	assert.NotEmpty(t, espalier.Version)
}

func TestEditor_UndoRedo(t *testing.T) {
	var executed []string
	ed := espalier.New("d1",
		espalier.WithIDGenerator(sequentialIDs()),
		espalier.WithListener(command.ListenerFuncs{
			AfterExecute: func(_ *command.Context, cmd command.Command, _ *domain.Result) {
				executed = append(executed, cmd.String())
			},
		}),
	)
	require.False(t, ed.CanUndo())

	for _, cmd := range []command.Command{
		command.NewAddNode("lane"),
		command.NewAddNode("task"),
		command.NewSetParent("lane", "task"),
	} {
		res, err := ed.Execute(cmd)
		require.NoError(t, err)
		require.True(t, res.IsSuccess())
	}
	assert.Len(t, ed.Snapshot().Edges, 1)
	assert.Len(t, executed, 3)

	_, err := ed.Undo()
	require.NoError(t, err)
	assert.Empty(t, ed.Snapshot().Edges)
	assert.True(t, ed.CanRedo())

	_, err = ed.Redo()
	require.NoError(t, err)
	snap := ed.Snapshot()
	require.Len(t, snap.Edges, 1)
	assert.Equal(t, "e1", snap.Edges[0].ID, "redo reuses the edge ID")
}

func TestEditor_Faults(t *testing.T) {
	ed := espalier.New("d1")

	_, err := ed.Execute(command.NewDock("a", "b"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = ed.Execute(nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.False(t, ed.CanUndo())
}

func TestOpen(t *testing.T) {
	snap := &domain.Snapshot{
		DiagramID: "d1",
		Nodes: []domain.Node{
			{ID: "a", OutEdges: []string{"e1", "e2"}},
			{ID: "b", InEdges: []string{"e1"}},
			{ID: "c", InEdges: []string{"e2"}},
		},
		Edges: []domain.Edge{
			{ID: "e1", Kind: domain.KindDock, SourceID: "a", TargetID: "b"},
			{ID: "e2", Kind: domain.KindDock, SourceID: "a", TargetID: "c"},
		},
	}

	ed, err := espalier.Open(snap, espalier.WithEvaluator(rules.Structural()))
	require.NoError(t, err)

	res, err := ed.Check()
	require.NoError(t, err)
	assert.True(t, res.HasError(), "double dock is flagged by the audit")
	assert.Equal(t, "d1", ed.Graph().DiagramID())

	_, err = espalier.Open(&domain.Snapshot{
		DiagramID: "bad",
		Edges:     []domain.Edge{{ID: "e1", Kind: domain.KindDock, SourceID: "x", TargetID: "y"}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}
