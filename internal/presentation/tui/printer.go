package tui

import (
	"fmt"
	"io"
	"os"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// ProfileFor returns the color profile of the terminal behind w,
// or termenv.Ascii when w is not a terminal.
func ProfileFor(w io.Writer) termenv.Profile {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return termenv.Ascii
	}
	return termenv.ColorProfile()
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Printer writes command results with severity colors.
type Printer struct {
	out     io.Writer
	profile termenv.Profile
}

// NewPrinter creates a printer whose colors follow the capabilities of out.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out, profile: ProfileFor(out)}
}

// NewPlainPrinter creates a printer that never emits escape codes.
func NewPlainPrinter(out io.Writer) *Printer {
	return &Printer{out: out, profile: termenv.Ascii}
}

var severityColors = map[domain.ResultType]string{
	domain.ResultSuccess: "#22c55e",
	domain.ResultInfo:    "#38bdf8",
	domain.ResultWarning: "#f59e0b",
	domain.ResultError:   "#ef4444",
}

var severityMarks = map[domain.ResultType]string{
	domain.ResultSuccess: "✔",
	domain.ResultInfo:    "ℹ",
	domain.ResultWarning: "⚠",
	domain.ResultError:   "✘",
}

func (p *Printer) paint(kind domain.ResultType, s string) termenv.Style {
	return p.profile.String(s).Foreground(p.profile.Color(severityColors[kind]))
}

// Result prints one line for the outcome of label followed by its violations.
func (p *Printer) Result(label string, res *domain.Result) {
	kind := res.Type()
	fmt.Fprintf(p.out, "%s %s: %s\n", p.paint(kind, severityMarks[kind]), label, p.paint(kind, string(kind)))
	if res == nil {
		return
	}
	for _, v := range res.Violations {
		sev := domain.ResultType(v.Severity)
		fmt.Fprintf(p.out, "    %s\n", p.paint(sev, v.String()))
	}
}

// Failure prints a fault returned instead of a result.
func (p *Printer) Failure(label string, err error) {
	fmt.Fprintf(p.out, "%s %s: %v\n", p.paint(domain.ResultError, severityMarks[domain.ResultError]), label, err)
}
