package registry

import (
	"github.com/aretw0/espalier/pkg/command"
)

type nodeParams struct {
	ID      string         `mapstructure:"id"`
	Labels  []string       `mapstructure:"labels"`
	Content map[string]any `mapstructure:"content"`
}

type relationParams struct {
	Parent    string         `mapstructure:"parent"`
	Candidate string         `mapstructure:"candidate"`
	Child     string         `mapstructure:"child"`
	EdgeID    string         `mapstructure:"edge_id"`
	Content   map[string]any `mapstructure:"content"`
}

type connectParams struct {
	Source  string         `mapstructure:"source"`
	Target  string         `mapstructure:"target"`
	EdgeID  string         `mapstructure:"edge_id"`
	Content map[string]any `mapstructure:"content"`
}

type reparentParams struct {
	Child string `mapstructure:"child"`
	From  string `mapstructure:"from"`
	To    string `mapstructure:"to"`
}

type batchParams struct {
	Label string `mapstructure:"label"`
	Steps []Spec `mapstructure:"steps"`
}

// Default returns a registry holding every built-in command type:
// add_node, delete_node, connect, disconnect, dock, undock, set_parent,
// remove_parent, reparent and batch.
func Default() *Registry {
	r := NewRegistry()
	RegisterBuiltins(r)
	return r
}

// RegisterBuiltins adds the built-in command types to r.
func RegisterBuiltins(r *Registry) {
	r.Register("add_node", func(params map[string]any) (command.Command, error) {
		var p nodeParams
		if err := Decode(params, &p); err != nil {
			return nil, err
		}
		return &command.AddNode{NodeID: p.ID, Labels: p.Labels, Content: p.Content}, nil
	})
	r.Register("delete_node", func(params map[string]any) (command.Command, error) {
		var p nodeParams
		if err := Decode(params, &p); err != nil {
			return nil, err
		}
		return command.NewDeleteNode(p.ID), nil
	})
	r.Register("connect", func(params map[string]any) (command.Command, error) {
		var p connectParams
		if err := Decode(params, &p); err != nil {
			return nil, err
		}
		return &command.Connect{SourceID: p.Source, TargetID: p.Target, EdgeID: p.EdgeID, Content: p.Content}, nil
	})
	r.Register("disconnect", func(params map[string]any) (command.Command, error) {
		var p connectParams
		if err := Decode(params, &p); err != nil {
			return nil, err
		}
		return command.NewDisconnect(p.EdgeID), nil
	})
	r.Register("dock", func(params map[string]any) (command.Command, error) {
		var p relationParams
		if err := Decode(params, &p); err != nil {
			return nil, err
		}
		return &command.Dock{ParentID: p.Parent, CandidateID: p.Candidate, EdgeID: p.EdgeID, Content: p.Content}, nil
	})
	r.Register("undock", func(params map[string]any) (command.Command, error) {
		var p relationParams
		if err := Decode(params, &p); err != nil {
			return nil, err
		}
		return command.NewUnDock(p.Parent, p.Candidate), nil
	})
	r.Register("set_parent", func(params map[string]any) (command.Command, error) {
		var p relationParams
		if err := Decode(params, &p); err != nil {
			return nil, err
		}
		return &command.SetParent{ParentID: p.Parent, ChildID: p.Child, EdgeID: p.EdgeID, Content: p.Content}, nil
	})
	r.Register("remove_parent", func(params map[string]any) (command.Command, error) {
		var p relationParams
		if err := Decode(params, &p); err != nil {
			return nil, err
		}
		return command.NewRemoveParent(p.Parent, p.Child), nil
	})
	r.Register("reparent", func(params map[string]any) (command.Command, error) {
		var p reparentParams
		if err := Decode(params, &p); err != nil {
			return nil, err
		}
		return command.NewReparent(p.Child, p.From, p.To), nil
	})
	r.Register("batch", func(params map[string]any) (command.Command, error) {
		var p batchParams
		if err := Decode(params, &p); err != nil {
			return nil, err
		}
		steps := make([]command.Command, 0, len(p.Steps))
		for _, spec := range p.Steps {
			cmd, err := r.Build(spec)
			if err != nil {
				return nil, err
			}
			steps = append(steps, cmd)
		}
		return command.NewComposite(p.Label, steps...), nil
	})
}
