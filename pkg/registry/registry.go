package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/espalier/pkg/command"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Spec is the serialized form of a command request, as received from HTTP,
// MCP or a YAML script.
type Spec struct {
	Type   string         `json:"type" yaml:"type" mapstructure:"type"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty" mapstructure:"params"`
}

// Factory builds a command from decoded parameters.
type Factory func(params map[string]any) (command.Command, error)

// Registry maps command type names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a factory to the registry.
// If a factory with the same name exists, it is overwritten.
func (r *Registry) Register(name string, fn Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = fn
}

// Build looks up the factory for spec.Type and builds the command.
// Unknown types and malformed parameters wrap domain.ErrInvalidArgument.
func (r *Registry) Build(spec Spec) (command.Command, error) {
	r.mu.RLock()
	fn, ok := r.factories[spec.Type]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: unknown command type %q", domain.ErrInvalidArgument, spec.Type)
	}

	cmd, err := fn(spec.Params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", spec.Type, err)
	}
	return cmd, nil
}

// Names returns the registered command types, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Decode copies params into the struct pointed to by out.
// Unknown keys are rejected.
func Decode(params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(params); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	return nil
}
