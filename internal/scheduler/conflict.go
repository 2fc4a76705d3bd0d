package scheduler

import (
	"sort"

	"github.com/samber/lo"
)

// ConflictGraph maps a course code to the codes of courses sharing at least one student.
type ConflictGraph map[string]map[string]struct{}

// BuildConflictGraph computes pairwise conflicts. Every course appears as a key,
// even when it has no neighbours.
func BuildConflictGraph(courses []*Course) ConflictGraph {
	graph := make(ConflictGraph, len(courses))
	for _, c := range courses {
		if _, ok := graph[c.Code]; !ok {
			graph[c.Code] = make(map[string]struct{})
		}
	}
	for i := 0; i < len(courses); i++ {
		for j := i + 1; j < len(courses); j++ {
			a, b := courses[i], courses[j]
			if a.Code == b.Code {
				continue
			}
			if len(lo.Intersect(a.students, b.students)) == 0 {
				continue
			}
			graph[a.Code][b.Code] = struct{}{}
			graph[b.Code][a.Code] = struct{}{}
		}
	}
	return graph
}

// Degree is the number of conflicting courses.
func (g ConflictGraph) Degree(code string) int {
	return len(g[code])
}

// Conflicts reports whether two courses share a student.
func (g ConflictGraph) Conflicts(a, b string) bool {
	_, ok := g[a][b]
	return ok
}

// Neighbours lists conflicting codes in sorted order.
func (g ConflictGraph) Neighbours(code string) []string {
	out := lo.Keys(g[code])
	sort.Strings(out)
	return out
}

// Density is the share of course pairs in conflict, in [0, 1].
func (g ConflictGraph) Density() float64 {
	n := len(g)
	if n < 2 {
		return 0
	}
	edges := 0
	for _, adj := range g {
		edges += len(adj)
	}
	return float64(edges/2) / float64(n*(n-1)/2)
}

// MaxDegree returns the largest degree in the graph.
func (g ConflictGraph) MaxDegree() int {
	max := 0
	for _, adj := range g {
		if len(adj) > max {
			max = len(adj)
		}
	}
	return max
}
