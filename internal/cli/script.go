package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/registry"
	"github.com/aretw0/espalier/pkg/session"
	"gopkg.in/yaml.v3"
)

// Step operations. An empty Op means OpExecute.
const (
	OpExecute = "execute"
	OpAllow   = "allow"
	OpUndo    = "undo"
	OpRedo    = "redo"
)

// Step is one entry of a script. Command steps embed the registry spec.
type Step struct {
	Op            string `yaml:"op,omitempty"`
	registry.Spec `yaml:",inline"`
}

// Script is a YAML list of commands applied to one diagram.
//
//	diagram: order
//	create: true
//	steps:
//	  - type: add_node
//	    params: {id: task, labels: [task]}
//	  - op: undo
type Script struct {
	Diagram string `yaml:"diagram"`
	// Create makes the diagram first when it does not exist.
	Create bool `yaml:"create,omitempty"`
	// ContinueOnError keeps running after a step is rejected by a rule.
	// Faults always stop the script.
	ContinueOnError bool   `yaml:"continue_on_error,omitempty"`
	Steps           []Step `yaml:"steps"`
}

// LoadScript reads a script from a YAML file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	s, err := ParseScript(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseScript decodes and validates a script. Unknown fields are rejected.
func ParseScript(data []byte) (*Script, error) {
	var s Script
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	if strings.TrimSpace(s.Diagram) == "" {
		return nil, errors.New("script: diagram is required")
	}
	for i := range s.Steps {
		st := &s.Steps[i]
		if st.Op == "" {
			st.Op = OpExecute
		}
		switch st.Op {
		case OpExecute, OpAllow:
			if st.Type == "" {
				return nil, fmt.Errorf("step %d: type is required for %s", i+1, st.Op)
			}
		case OpUndo, OpRedo:
			if st.Type != "" {
				return nil, fmt.Errorf("step %d: %s takes no command", i+1, st.Op)
			}
		default:
			return nil, fmt.Errorf("step %d: unknown op %q", i+1, st.Op)
		}
	}
	return &s, nil
}

// StepOutcome is what happened to one step.
type StepOutcome struct {
	Index  int
	Label  string
	Result *domain.Result
	Err    error
}

// Report collects the outcome of every step that ran.
type Report struct {
	Steps []StepOutcome
}

// Rejected counts steps whose result carried an ERROR violation.
func (r *Report) Rejected() int {
	n := 0
	for _, s := range r.Steps {
		if s.Result.HasError() {
			n++
		}
	}
	return n
}

// RunScript applies the script through sessions. onStep, when not nil, sees
// every outcome as soon as it is known. The returned error is the first fault,
// or a rejection when ContinueOnError is false.
func RunScript(ctx context.Context, sessions *session.Manager, reg *registry.Registry, s *Script, onStep func(StepOutcome)) (*Report, error) {
	if reg == nil {
		reg = registry.Default()
	}
	if s.Create {
		if _, err := sessions.Create(ctx, s.Diagram); err != nil && !errors.Is(err, domain.ErrDuplicate) {
			return nil, err
		}
	}

	report := &Report{}
	for i, st := range s.Steps {
		out := runStep(ctx, sessions, reg, s.Diagram, st)
		out.Index = i + 1
		report.Steps = append(report.Steps, out)
		if onStep != nil {
			onStep(out)
		}
		if out.Err != nil {
			return report, fmt.Errorf("step %d (%s): %w", out.Index, out.Label, out.Err)
		}
		if out.Result.HasError() && !s.ContinueOnError {
			return report, fmt.Errorf("step %d (%s) rejected: %s", out.Index, out.Label, out.Result)
		}
	}
	return report, nil
}

func runStep(ctx context.Context, sessions *session.Manager, reg *registry.Registry, diagramID string, st Step) StepOutcome {
	switch st.Op {
	case OpUndo:
		res, err := sessions.Undo(ctx, diagramID)
		return StepOutcome{Label: OpUndo, Result: res, Err: err}
	case OpRedo:
		res, err := sessions.Redo(ctx, diagramID)
		return StepOutcome{Label: OpRedo, Result: res, Err: err}
	}

	cmd, err := reg.Build(st.Spec)
	if err != nil {
		return StepOutcome{Label: st.Type, Err: err}
	}
	if st.Op == OpAllow {
		res, err := sessions.Allow(ctx, diagramID, cmd)
		return StepOutcome{Label: "allow " + cmd.String(), Result: res, Err: err}
	}
	res, err := sessions.Execute(ctx, diagramID, cmd)
	return StepOutcome{Label: cmd.String(), Result: res, Err: err}
}
