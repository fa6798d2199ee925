package domain

import (
	"errors"
	"testing"
)

func TestResultType(t *testing.T) {
	tests := []struct {
		name       string
		violations []Violation
		want       ResultType
		hasError   bool
	}{
		{name: "Empty Is Success", want: ResultSuccess},
		{
			name:       "Info Only",
			violations: []Violation{{Severity: SeverityInfo, Message: "fyi"}},
			want:       ResultInfo,
		},
		{
			name: "Warning Beats Info",
			violations: []Violation{
				{Severity: SeverityInfo, Message: "fyi"},
				{Severity: SeverityWarning, Message: "careful"},
			},
			want: ResultWarning,
		},
		{
			name: "Error Anywhere",
			violations: []Violation{
				{Severity: SeverityError, Message: "nope"},
				{Severity: SeverityWarning, Message: "careful"},
			},
			want:     ResultError,
			hasError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResult(tt.violations...)
			if got := r.Type(); got != tt.want {
				t.Errorf("Type() = %v, want %v", got, tt.want)
			}
			if got := r.HasError(); got != tt.hasError {
				t.Errorf("HasError() = %v, want %v", got, tt.hasError)
			}
			if got := r.IsSuccess(); got != (len(tt.violations) == 0) {
				t.Errorf("IsSuccess() = %v", got)
			}
		})
	}
}

func TestResultMergeKeepsOrder(t *testing.T) {
	r := NewResult(Violation{Severity: SeverityWarning, Message: "first"})
	r.Merge(NewResult(Violation{Severity: SeverityError, Message: "second"}))
	r.Merge(nil)

	if len(r.Violations) != 2 {
		t.Fatalf("expected 2 violations, got %d", len(r.Violations))
	}
	if r.Violations[0].Message != "first" || r.Violations[1].Message != "second" {
		t.Errorf("unexpected order: %v", r.Violations)
	}
	if errs := r.Errors(); len(errs) != 1 || errs[0].Message != "second" {
		t.Errorf("Errors() = %v", errs)
	}
}

func TestNilResultIsSuccess(t *testing.T) {
	var r *Result
	if !r.IsSuccess() || r.HasError() || r.Type() != ResultSuccess {
		t.Errorf("nil result should behave as success")
	}
}

func TestParseSeverity(t *testing.T) {
	cases := map[string]Severity{
		"":        SeverityError,
		"ERROR":   SeverityError,
		"warn":    SeverityWarning,
		"warning": SeverityWarning,
		" info ":  SeverityInfo,
	}
	for in, want := range cases {
		got, err := ParseSeverity(in)
		if err != nil {
			t.Fatalf("ParseSeverity(%q) error: %v", in, err)
		}
		if got != want {
			t.Errorf("ParseSeverity(%q) = %v, want %v", in, got, want)
		}
	}

	if _, err := ParseSeverity("fatal"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestNotFoundError(t *testing.T) {
	err := NodeNotFound("n1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected errors.Is(err, ErrNotFound)")
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.ID != "n1" || nf.Kind != ElementNode {
		t.Errorf("unexpected error detail: %#v", nf)
	}
	if err.Error() != `node "n1" not found` {
		t.Errorf("unexpected message: %s", err.Error())
	}
}
