package graph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/espalier/pkg/domain"
)

// Overlay contains state data to visualize on top of the diagram.
type Overlay struct {
	// Flagged elements are styled as rule violations.
	Flagged []string
	// Focus is styled as the current selection.
	Focus string
}

// OverlayFromResult flags every element a result points at.
func OverlayFromResult(res *domain.Result) *Overlay {
	if res == nil {
		return nil
	}
	o := &Overlay{}
	for _, v := range res.Violations {
		if v.ElementID != "" {
			o.Flagged = append(o.Flagged, v.ElementID)
		}
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart for a snapshot.
// It applies semantic styling by label:
// - start, end, event: ((Circle))
// - gateway: {Rhombus}
// - Default: [Rectangle]
// Nodes with children become subgraphs. Dock edges are drawn dotted,
// connections as arrows labelled with their "label" content.
func GenerateMermaid(snap *domain.Snapshot, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	if snap == nil {
		return sb.String()
	}

	nodes := make(map[string]*domain.Node, len(snap.Nodes))
	for i := range snap.Nodes {
		nodes[snap.Nodes[i].ID] = &snap.Nodes[i]
	}
	edges := make(map[string]*domain.Edge, len(snap.Edges))
	children := make(map[string][]string)
	contained := make(map[string]bool)
	for i := range snap.Edges {
		e := &snap.Edges[i]
		edges[e.ID] = e
		if e.Kind == domain.KindChild && e.SourceID != "" && e.TargetID != "" {
			children[e.SourceID] = append(children[e.SourceID], e.TargetID)
			contained[e.TargetID] = true
		}
	}

	w := &writer{sb: &sb, nodes: nodes, children: children, seen: map[string]bool{}}
	for _, n := range snap.Nodes {
		if !contained[n.ID] {
			w.node(n.ID, 1)
		}
	}
	// Containment cycles leave nodes unreached from any root.
	for _, n := range snap.Nodes {
		w.node(n.ID, 1)
	}

	for _, e := range snap.Edges {
		if e.Kind == domain.KindChild {
			continue
		}
		if e.SourceID == "" || e.TargetID == "" {
			sb.WriteString(fmt.Sprintf("    %%%% edge %s is detached\n", e.ID))
			continue
		}
		from, to := sanitizeMermaidID(e.SourceID), sanitizeMermaidID(e.TargetID)
		switch e.Kind {
		case domain.KindDock:
			sb.WriteString(fmt.Sprintf("    %s -. docked .- %s\n", from, to))
		default:
			arrow := "-->"
			if label, ok := e.Content["label"].(string); ok && label != "" {
				arrow = fmt.Sprintf("-- \"%s\" -->", strings.ReplaceAll(label, "\"", "'"))
			}
			sb.WriteString(fmt.Sprintf("    %s %s %s\n", from, arrow, to))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef flagged fill:#ffebee,stroke:#c62828,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef focus fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		flagged := make(map[string]bool)
		for _, id := range overlay.Flagged {
			// Edges cannot carry classes; only style known nodes.
			if _, ok := nodes[id]; !ok || flagged[id] {
				continue
			}
			flagged[id] = true
			sb.WriteString(fmt.Sprintf("    class %s flagged;\n", sanitizeMermaidID(id)))
		}
		if _, ok := nodes[overlay.Focus]; ok {
			sb.WriteString(fmt.Sprintf("    class %s focus;\n", sanitizeMermaidID(overlay.Focus)))
		}
	}

	return sb.String()
}

type writer struct {
	sb       *strings.Builder
	nodes    map[string]*domain.Node
	children map[string][]string
	seen     map[string]bool
}

func (w *writer) node(id string, depth int) {
	n, ok := w.nodes[id]
	if !ok || w.seen[id] {
		return
	}
	w.seen[id] = true
	indent := strings.Repeat("    ", depth)
	safeID := sanitizeMermaidID(id)

	if kids := w.children[id]; len(kids) > 0 {
		w.sb.WriteString(fmt.Sprintf("%ssubgraph %s[\"%s\"]\n", indent, safeID, displayName(n)))
		for _, kid := range slices.Sorted(slices.Values(kids)) {
			w.node(kid, depth+1)
		}
		w.sb.WriteString(indent + "end\n")
		return
	}

	opener, closer := "[", "]"
	switch {
	case n.HasLabel("start"), n.HasLabel("end"), n.HasLabel("event"):
		opener, closer = "((", "))"
	case n.HasLabel("gateway"):
		opener, closer = "{", "}"
	}
	w.sb.WriteString(fmt.Sprintf("%s%s%s\"%s\"%s\n", indent, safeID, opener, displayName(n), closer))
}

// displayName prefers the "name" content field over the ID.
func displayName(n *domain.Node) string {
	if name, ok := n.Content["name"].(string); ok && name != "" {
		return strings.ReplaceAll(name, "\"", "'")
	}
	return n.ID
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
