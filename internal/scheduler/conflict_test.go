package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildConflictGraph(t *testing.T) {
	courses := []*Course{
		NewCourse("A", []string{"s1", "s2"}, 0),
		NewCourse("B", []string{"s2", "s3"}, 0),
		NewCourse("C", []string{"s4"}, 0),
	}

	graph := BuildConflictGraph(courses)

	assert.Len(t, graph, 3)
	assert.True(t, graph.Conflicts("A", "B"))
	assert.True(t, graph.Conflicts("B", "A"))
	assert.False(t, graph.Conflicts("A", "C"))
	assert.Equal(t, []string{"B"}, graph.Neighbours("A"))
	assert.Empty(t, graph.Neighbours("C"))
	assert.Equal(t, 0, graph.Degree("C"))
	assert.Equal(t, 1, graph.MaxDegree())
	assert.InDelta(t, 1.0/3.0, graph.Density(), 1e-9)
}

func TestBuildConflictGraphNeverSelfConflicts(t *testing.T) {
	graph := BuildConflictGraph([]*Course{NewCourse("A", []string{"s1"}, 0)})
	assert.False(t, graph.Conflicts("A", "A"))
	assert.Equal(t, 0.0, graph.Density())
}

func TestBuildConflictGraphEmpty(t *testing.T) {
	graph := BuildConflictGraph(nil)
	assert.Empty(t, graph)
}
