// Package export renders store snapshots as Mermaid flowcharts and Markdown
// outlines.
package export

import (
	"fmt"
	"strings"

	"github.com/starford/modeltree/internal/modelstore"
)

// Mermaid produces a flowchart of every model in snap. Leaves are drawn as
// rounded boxes, internal nodes as rectangles and the root as a circle.
// Repeated child entries collapse into one labelled edge.
func Mermaid(snap modelstore.Snapshot) string {
	names := snap.Names()
	ids := make(map[string]string, len(names))
	for i, name := range names {
		ids[name] = fmt.Sprintf("n%d", i)
	}

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	var shared, orphans []string
	for _, name := range names {
		m := snap.Models[name]
		id := ids[name]
		label := escapeLabel(name)

		opener, closer := "[", "]"
		switch {
		case name == snap.Root:
			opener, closer = "((", "))"
		case m.IsLeaf():
			opener, closer = "(", ")"
		}
		if m.IsLeaf() && m.Algorithm != nil {
			label += " <br/> " + escapeLabel(*m.Algorithm)
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", id, opener, label, closer)

		if m.RefCount > 1 {
			shared = append(shared, id)
		}
		if m.RefCount == 0 && name != snap.Root {
			orphans = append(orphans, id)
		}
	}

	for _, name := range names {
		m := snap.Models[name]
		seen := make(map[string]int, len(m.Children))
		var order []string
		for _, c := range m.Children {
			if seen[c] == 0 {
				order = append(order, c)
			}
			seen[c]++
		}
		for _, c := range order {
			to, ok := ids[c]
			if !ok {
				continue
			}
			if n := seen[c]; n > 1 {
				fmt.Fprintf(&sb, "    %s -- \"x%d\" --> %s\n", ids[name], n, to)
			} else {
				fmt.Fprintf(&sb, "    %s --> %s\n", ids[name], to)
			}
		}
	}

	if len(shared) > 0 || len(orphans) > 0 {
		sb.WriteString("\n    classDef shared fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef orphan fill:#eeeeee,stroke:#9e9e9e,stroke-dasharray:4,color:#000;\n")
		if len(shared) > 0 {
			fmt.Fprintf(&sb, "    class %s shared;\n", strings.Join(shared, ","))
		}
		if len(orphans) > 0 {
			fmt.Fprintf(&sb, "    class %s orphan;\n", strings.Join(orphans, ","))
		}
	}
	return sb.String()
}

func escapeLabel(s string) string {
	s = strings.ReplaceAll(s, "\"", "#quot;")
	s = strings.ReplaceAll(s, "<", "#lt;")
	s = strings.ReplaceAll(s, ">", "#gt;")
	return s
}
