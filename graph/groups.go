package graph

import (
	"github.com/TFMV/forcegraph/models"
)

// pairKey identifies the endpoint pair an edge belongs to.
type pairKey struct {
	a, b string
}

func keyOf(e *models.Edge, directed bool) pairKey {
	if !directed && e.Target < e.Source {
		return pairKey{a: e.Target, b: e.Source}
	}
	return pairKey{a: e.Source, b: e.Target}
}

// AssignGroups sets GroupIndex on every edge so that edges sharing an
// endpoint pair get 0, 1, -1, 2, -2, ... in input order. With directed set,
// a->b and b->a are separate pairs.
//
// The indices depend on edge order, so they must be recomputed whenever the
// edge list changes. Edges are updated in place and the slice is returned.
func AssignGroups(edges []*models.Edge, directed bool) []*models.Edge {
	counters := make(map[pairKey]int)
	for _, e := range edges {
		k := keyOf(e, directed)
		a := counters[k]
		e.GroupIndex = a
		switch {
		case a == 0:
			counters[k] = 1
		case a > 0:
			counters[k] = -a
		default:
			counters[k] = -a + 1
		}
	}
	return edges
}
