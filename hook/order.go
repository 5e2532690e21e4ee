package hook

import (
	"github.com/quazardous/qdadm-go/internal/depgraph"
)

// highestFirst places higher priorities earlier; equal priorities keep
// registration order.
func highestFirst(a, b depgraph.Node) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.Seq < b.Seq
}

// orderEntries linearizes one pass's handlers. After edges constrain the
// order first; within those constraints higher priorities run earlier and
// remaining ties keep registration order. After references to ids absent
// from entries are ignored. A cyclic After relationship falls back to
// priority and registration order among the cycle's members instead of
// failing.
func orderEntries(entries []*entry) []*entry {
	if len(entries) < 2 {
		return entries
	}

	byID := make(map[string]*entry, len(entries))
	g := depgraph.New(highestFirst)
	for _, e := range entries {
		g.AddNode(e.id, e.priority)
		byID[e.id] = e
	}
	for _, e := range entries {
		for _, dep := range e.after {
			if dep == e.id {
				continue
			}
			if _, ok := byID[dep]; !ok {
				continue
			}
			// Both endpoints exist and differ, so the edge cannot fail.
			_ = g.AddEdge(dep, e.id)
		}
	}

	ids, _ := g.Order(true)
	out := make([]*entry, 0, len(ids))
	for _, id := range ids {
		out = append(out, byID[id])
	}
	return out
}
