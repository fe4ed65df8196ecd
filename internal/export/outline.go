package export

import (
	"fmt"
	"strings"

	"github.com/starford/modeltree/internal/modelstore"
)

// Outline renders the tree reachable from the root as a nested Markdown list.
// A shared model is expanded at its first occurrence only; later occurrences
// are marked as references. Cycles are cut the same way.
func Outline(snap modelstore.Snapshot) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", snap.Root)

	root, ok := snap.Models[snap.Root]
	if !ok {
		sb.WriteString("_root model missing_\n")
		return sb.String()
	}
	if root.IsLeaf() {
		fmt.Fprintf(&sb, "Leaf model, algorithm %s.\n", codeSpan(algorithmOf(snap, snap.Root)))
		return sb.String()
	}
	if len(root.Children) == 0 {
		sb.WriteString("_no children_\n")
		return sb.String()
	}

	expanded := map[string]bool{snap.Root: true}
	var walk func(name string, depth int)
	walk = func(name string, depth int) {
		indent := strings.Repeat("  ", depth)
		m, ok := snap.Models[name]
		if !ok {
			fmt.Fprintf(&sb, "%s- %s _(missing)_\n", indent, name)
			return
		}
		suffix := ""
		if m.RefCount > 1 {
			suffix = fmt.Sprintf(" _(shared x%d)_", m.RefCount)
		}
		if m.IsLeaf() {
			fmt.Fprintf(&sb, "%s- **%s**: %s%s\n", indent, name, codeSpan(algorithmOf(snap, name)), suffix)
			return
		}
		if expanded[name] {
			fmt.Fprintf(&sb, "%s- %s%s _(see above)_\n", indent, name, suffix)
			return
		}
		expanded[name] = true
		fmt.Fprintf(&sb, "%s- %s%s\n", indent, name, suffix)
		for _, c := range m.Children {
			walk(c, depth+1)
		}
	}
	for _, c := range root.Children {
		walk(c, 0)
	}

	var orphans []string
	for _, name := range snap.Names() {
		if m := snap.Models[name]; m.RefCount == 0 && name != snap.Root {
			orphans = append(orphans, name)
		}
	}
	if len(orphans) > 0 {
		sb.WriteString("\n## Unreferenced\n\n")
		for _, name := range orphans {
			fmt.Fprintf(&sb, "- %s\n", name)
		}
	}
	return sb.String()
}

func algorithmOf(snap modelstore.Snapshot, name string) string {
	if m := snap.Models[name]; m != nil && m.Algorithm != nil {
		return *m.Algorithm
	}
	return ""
}

// codeSpan wraps s in an inline code span whose fence is one backtick longer
// than the longest backtick run inside s.
func codeSpan(s string) string {
	longest, run := 0, 0
	for _, r := range s {
		if r != '`' {
			run = 0
			continue
		}
		run++
		longest = max(longest, run)
	}
	fence := strings.Repeat("`", longest+1)
	if strings.HasPrefix(s, "`") || strings.HasSuffix(s, "`") {
		return fence + " " + s + " " + fence
	}
	return fence + s + fence
}
