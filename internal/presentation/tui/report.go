package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/espalier/pkg/domain"
)

// DescribeMarkdown builds a markdown report of a diagram and, when res is not nil,
// the findings of a check over it.
func DescribeMarkdown(snap *domain.Snapshot, res *domain.Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Diagram `%s`\n\n", snap.DiagramID)

	counts := map[domain.EdgeKind]int{}
	for _, e := range snap.Edges {
		counts[e.Kind]++
	}
	fmt.Fprintf(&sb, "%d node(s), %d edge(s): %d dock, %d child, %d connection.\n\n",
		len(snap.Nodes), len(snap.Edges),
		counts[domain.KindDock], counts[domain.KindChild], counts[domain.KindConnection])

	if len(snap.Nodes) > 0 {
		sb.WriteString("## Nodes\n\n| ID | Labels | In | Out |\n|---|---|---|---|\n")
		for _, n := range snap.Nodes {
			fmt.Fprintf(&sb, "| %s | %s | %d | %d |\n",
				cell(n.ID), cell(strings.Join(n.Labels, ", ")), len(n.InEdges), len(n.OutEdges))
		}
		sb.WriteString("\n")
	}

	if len(snap.Edges) > 0 {
		sb.WriteString("## Edges\n\n| ID | Kind | Source | Target |\n|---|---|---|---|\n")
		edges := slices.Clone(snap.Edges)
		slices.SortStableFunc(edges, func(a, b domain.Edge) int {
			return strings.Compare(string(a.Kind), string(b.Kind))
		})
		for _, e := range edges {
			fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n",
				cell(e.ID), e.Kind, cell(orDash(e.SourceID)), cell(orDash(e.TargetID)))
		}
		sb.WriteString("\n")
	}

	if res != nil {
		sb.WriteString("## Findings\n\n")
		if len(res.Violations) == 0 {
			sb.WriteString("No findings.\n")
		}
		for _, v := range res.Violations {
			fmt.Fprintf(&sb, "- **%s** %s\n", v.Severity, v.Message)
		}
	}
	return sb.String()
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
