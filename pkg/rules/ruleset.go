package rules

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/aretw0/espalier/pkg/domain"
	"gopkg.in/yaml.v3"
)

// RuleType selects how a Rule is matched.
type RuleType string

const (
	// RuleDocking: when the parent carries Subject, the docked candidate must carry one of Allow.
	RuleDocking RuleType = "docking"
	// RuleContainment: when the parent carries Subject, the child must carry one of Allow.
	RuleContainment RuleType = "containment"
	// RuleConnection: when the source carries Subject, the target must carry one of Allow.
	RuleConnection RuleType = "connection"
	// RuleCardinality: a node carrying Subject may have at most Max edges of kind Edge in Direction.
	RuleCardinality RuleType = "cardinality"
)

// Direction values for cardinality rules.
const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
)

// Rule is one declarative constraint over node labels.
type Rule struct {
	ID       string   `yaml:"id"`
	Type     RuleType `yaml:"type"`
	Subject  string   `yaml:"subject"`
	Allow    []string `yaml:"allow,omitempty"`
	Severity string   `yaml:"severity,omitempty"`
	Message  string   `yaml:"message,omitempty"`

	// Cardinality only.
	Edge      domain.EdgeKind `yaml:"edge,omitempty"`
	Direction string          `yaml:"direction,omitempty"`
	Max       int             `yaml:"max,omitempty"`

	severity domain.Severity
}

// RuleSet is a named collection of rules, typically one per diagram type.
type RuleSet struct {
	Name  string `yaml:"name"`
	Rules []Rule `yaml:"rules"`
}

// LoadRuleSet reads a rule set from a YAML file.
func LoadRuleSet(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule set: %w", err)
	}
	rs, err := ParseRuleSet(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rs, nil
}

// ParseRuleSet decodes and validates a YAML rule set. Unknown fields are rejected.
func ParseRuleSet(data []byte) (*RuleSet, error) {
	var rs RuleSet
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&rs); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse rule set: %w", err)
	}

	for i := range rs.Rules {
		if err := rs.Rules[i].normalize(i); err != nil {
			return nil, err
		}
	}
	return &rs, nil
}

func (r *Rule) normalize(index int) error {
	if r.ID == "" {
		r.ID = fmt.Sprintf("%s#%d", r.Type, index)
	}
	if strings.TrimSpace(r.Subject) == "" {
		return fmt.Errorf("rule %s: subject is required", r.ID)
	}

	switch r.Type {
	case RuleDocking, RuleContainment, RuleConnection:
		if len(r.Allow) == 0 {
			return fmt.Errorf("rule %s: allow must list at least one label", r.ID)
		}
	case RuleCardinality:
		if r.Edge == "" {
			r.Edge = domain.KindConnection
		}
		if !r.Edge.Valid() {
			return fmt.Errorf("rule %s: unknown edge kind %q", r.ID, r.Edge)
		}
		if r.Direction != DirectionIncoming && r.Direction != DirectionOutgoing {
			return fmt.Errorf("rule %s: direction must be %q or %q", r.ID, DirectionIncoming, DirectionOutgoing)
		}
		if r.Max < 0 {
			return fmt.Errorf("rule %s: max must not be negative", r.ID)
		}
	default:
		return fmt.Errorf("rule %s: unknown type %q", r.ID, r.Type)
	}

	sev, err := domain.ParseSeverity(r.Severity)
	if err != nil {
		return fmt.Errorf("rule %s: %w", r.ID, err)
	}
	r.severity = sev
	return nil
}

// Evaluate applies every matching rule to the change, in declaration order.
func (rs *RuleSet) Evaluate(change domain.Change, g Graph) []domain.Violation {
	var out []domain.Violation
	for i := range rs.Rules {
		if v, ok := rs.Rules[i].evaluate(change, g); ok {
			out = append(out, v)
		}
	}
	return out
}

func (r *Rule) evaluate(change domain.Change, g Graph) (domain.Violation, bool) {
	switch r.Type {
	case RuleDocking:
		if change.Kind == domain.ChangeDock {
			return r.checkAllowed(g, change.ParentID(), change.ChildID(), "%q may not be docked to %q")
		}
	case RuleContainment:
		if change.Kind == domain.ChangeSetParent {
			return r.checkAllowed(g, change.ParentID(), change.ChildID(), "%q may not be contained by %q")
		}
	case RuleConnection:
		if change.Kind == domain.ChangeConnect && change.SourceID != "" && change.TargetID != "" {
			return r.checkAllowed(g, change.SourceID, change.TargetID, "%q may not be connected from %q")
		}
	case RuleCardinality:
		return r.checkCardinality(change, g)
	}
	return domain.Violation{}, false
}

// checkAllowed applies when subjectID carries the rule subject; otherID must then carry an allowed label.
func (r *Rule) checkAllowed(g Graph, subjectID, otherID, format string) (domain.Violation, bool) {
	subject, err := g.ResolveNode(subjectID)
	if err != nil || !subject.HasLabel(r.Subject) {
		return domain.Violation{}, false
	}
	other, err := g.ResolveNode(otherID)
	if err != nil {
		return domain.Violation{}, false
	}
	if slices.ContainsFunc(r.Allow, other.HasLabel) {
		return domain.Violation{}, false
	}
	return r.violation(otherID, format, otherID, subjectID), true
}

func (r *Rule) checkCardinality(change domain.Change, g Graph) (domain.Violation, bool) {
	if !addsEdge(change.Kind) || change.EdgeKind != r.Edge {
		return domain.Violation{}, false
	}
	nodeID := change.SourceID
	if r.Direction == DirectionIncoming {
		nodeID = change.TargetID
	}
	if nodeID == "" {
		return domain.Violation{}, false
	}
	n, err := g.ResolveNode(nodeID)
	if err != nil || !n.HasLabel(r.Subject) {
		return domain.Violation{}, false
	}

	edges := g.OutEdges(n)
	if r.Direction == DirectionIncoming {
		edges = g.InEdges(n)
	}
	count := 0
	for _, e := range edges {
		if e.Kind == r.Edge {
			count++
		}
	}
	if count < r.Max {
		return domain.Violation{}, false
	}
	return r.violation(nodeID, "%q allows at most %d %s %s edge(s)", nodeID, r.Max, r.Direction, r.Edge), true
}

func (r *Rule) violation(elementID, format string, args ...any) domain.Violation {
	v := domain.NewViolation(r.level(), elementID, format, args...)
	if r.Message != "" {
		v.Message = r.Message
	}
	return v
}

// level falls back to parsing Severity for rules built in code rather than parsed.
func (r *Rule) level() domain.Severity {
	if r.severity != "" {
		return r.severity
	}
	sev, err := domain.ParseSeverity(r.Severity)
	if err != nil {
		return domain.SeverityError
	}
	return sev
}

func addsEdge(kind domain.ChangeKind) bool {
	switch kind {
	case domain.ChangeConnect, domain.ChangeDock, domain.ChangeSetParent:
		return true
	}
	return false
}
