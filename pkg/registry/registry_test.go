package registry_test

import (
	"testing"

	"github.com/aretw0/espalier/pkg/command"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Names(t *testing.T) {
	assert.Equal(t, []string{
		"add_node", "batch", "connect", "delete_node", "disconnect",
		"dock", "remove_parent", "reparent", "set_parent", "undock",
	}, registry.Default().Names())
}

func TestBuild_Dock(t *testing.T) {
	cmd, err := registry.Default().Build(registry.Spec{
		Type:   "dock",
		Params: map[string]any{"parent": "task", "candidate": "timer", "edge_id": "b1"},
	})
	require.NoError(t, err)

	dock, ok := cmd.(*command.Dock)
	require.True(t, ok)
	assert.Equal(t, "task", dock.ParentID)
	assert.Equal(t, "timer", dock.CandidateID)
	assert.Equal(t, "b1", dock.EdgeID)
	assert.Equal(t, "dock", command.NameOf(cmd))
}

func TestBuild_BatchIsNested(t *testing.T) {
	cmd, err := registry.Default().Build(registry.Spec{
		Type: "batch",
		Params: map[string]any{
			"label": "add timer",
			"steps": []any{
				map[string]any{"type": "add_node", "params": map[string]any{"id": "timer", "labels": []any{"timer"}}},
				map[string]any{"type": "dock", "params": map[string]any{"parent": "task", "candidate": "timer"}},
			},
		},
	})
	require.NoError(t, err)

	batch, ok := cmd.(*command.Composite)
	require.True(t, ok)
	assert.Equal(t, "add timer", batch.Label)
	require.Len(t, batch.Children, 2)
	add := batch.Children[0].(*command.AddNode)
	assert.Equal(t, []string{"timer"}, add.Labels)
}

func TestBuild_Errors(t *testing.T) {
	r := registry.Default()

	_, err := r.Build(registry.Spec{Type: "teleport"})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = r.Build(registry.Spec{Type: "dock", Params: map[string]any{"parent": "a", "colour": "red"}})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = r.Build(registry.Spec{Type: "batch", Params: map[string]any{
		"steps": []any{map[string]any{"type": "nope"}},
	}})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestRegister_Overrides(t *testing.T) {
	r := registry.NewRegistry()
	r.Register("noop", func(map[string]any) (command.Command, error) {
		return command.NewComposite("noop"), nil
	})

	cmd, err := r.Build(registry.Spec{Type: "noop"})
	require.NoError(t, err)
	assert.Equal(t, "noop[]", cmd.String())
}
