package domain

import (
	"fmt"
	"strings"
)

// Severity grades a rule violation.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

func (s Severity) rank() int {
	switch s {
	case SeverityInfo:
		return 1
	case SeverityWarning:
		return 2
	case SeverityError:
		return 3
	}
	return 0
}

// ParseSeverity converts a configuration string to a Severity.
// Empty input defaults to SeverityError.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "error":
		return SeverityError, nil
	case "warn", "warning":
		return SeverityWarning, nil
	case "info":
		return SeverityInfo, nil
	}
	return "", fmt.Errorf("%w: unknown severity %q", ErrInvalidArgument, s)
}

// Violation is a single finding reported by a rule evaluator or a command check.
type Violation struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	// ElementID optionally points at the offending node or edge.
	ElementID string `json:"element_id,omitempty"`
}

func (v Violation) String() string {
	if v.ElementID == "" {
		return fmt.Sprintf("[%s] %s", v.Severity, v.Message)
	}
	return fmt.Sprintf("[%s] %s (%s)", v.Severity, v.Message, v.ElementID)
}

// NewViolation is a shorthand used by evaluators.
func NewViolation(severity Severity, elementID, format string, args ...any) Violation {
	return Violation{
		Severity:  severity,
		Message:   fmt.Sprintf(format, args...),
		ElementID: elementID,
	}
}

// ResultType summarizes a Result by its most severe violation.
type ResultType string

const (
	ResultSuccess ResultType = "success"
	ResultInfo    ResultType = "info"
	ResultWarning ResultType = "warning"
	ResultError   ResultType = "error"
)

// Result is the outcome of allow, execute or undo.
// A Result without violations is a success.
type Result struct {
	Violations []Violation `json:"violations,omitempty"`
}

// Success returns an empty, successful result.
func Success() *Result {
	return &Result{}
}

// NewResult builds a result from the given violations, in order.
func NewResult(violations ...Violation) *Result {
	r := &Result{}
	r.Add(violations...)
	return r
}

// Add appends violations to the result, preserving order.
func (r *Result) Add(violations ...Violation) {
	r.Violations = append(r.Violations, violations...)
}

// Merge appends the violations of other to r. A nil other is ignored.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	r.Add(other.Violations...)
}

// Type returns the severity class of the most severe violation.
func (r *Result) Type() ResultType {
	if r == nil {
		return ResultSuccess
	}
	highest := 0
	for _, v := range r.Violations {
		if rank := v.Severity.rank(); rank > highest {
			highest = rank
		}
	}
	switch highest {
	case 3:
		return ResultError
	case 2:
		return ResultWarning
	case 1:
		return ResultInfo
	}
	return ResultSuccess
}

// IsSuccess reports whether the result carries no violations at all.
func (r *Result) IsSuccess() bool {
	return r == nil || len(r.Violations) == 0
}

// HasError reports whether any violation has error severity.
// Callers branch on this to know whether the graph was mutated.
func (r *Result) HasError() bool {
	return r.Type() == ResultError
}

// Errors returns the error-severity violations.
func (r *Result) Errors() []Violation {
	if r == nil {
		return nil
	}
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == SeverityError {
			out = append(out, v)
		}
	}
	return out
}

func (r *Result) String() string {
	if r.IsSuccess() {
		return string(ResultSuccess)
	}
	parts := make([]string, len(r.Violations))
	for i, v := range r.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("%s: %s", r.Type(), strings.Join(parts, "; "))
}
