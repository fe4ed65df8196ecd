package modelstore

import "github.com/starford/modeltree/internal/models"

// countRefs returns, for every key in ms, the number of (parent, slot) pairs
// that name it. A name listed twice by one parent counts twice.
func countRefs(ms map[string]*models.Model) map[string]int {
	counts := make(map[string]int, len(ms))
	for name := range ms {
		counts[name] = 0
	}
	for _, m := range ms {
		for _, child := range m.Children {
			counts[child]++
		}
	}
	return counts
}

// recount rescans the whole store and overwrites every RefCount. It is the
// only writer of RefCount and is idempotent.
func recount(ms map[string]*models.Model) map[string]int {
	counts := countRefs(ms)
	for name, m := range ms {
		m.RefCount = counts[name]
	}
	return counts
}
