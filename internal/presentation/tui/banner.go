package tui

import (
	"fmt"
	"io"
)

// PrintBanner writes the espalier banner to w.
func PrintBanner(w io.Writer) {
	p := ProfileFor(w)
	lines := []struct{ text, color string }{
		{"                       _ _           ", "#34d399"},
		{"   ___  ___ _ __   __ _| (_) ___ _ __ ", "#10b981"},
		{"  / _ \\/ __| '_ \\ / _` | | |/ _ \\ '__|", "#059669"},
		{" |  __/\\__ \\ |_) | (_| | | |  __/ |   ", "#047857"},
		{"  \\___||___/ .__/ \\__,_|_|_|\\___|_|   ", "#065f46"},
		{"           |_|                        ", "#064e3b"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, p.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
