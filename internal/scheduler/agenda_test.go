package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStudentAgendaLegality(t *testing.T) {
	first := NewCourse("A", []string{"s1"}, 0)
	probe := NewCourse("B", []string{"s1", "s2"}, 0)

	cases := []struct {
		name   string
		seed   func(a studentAgenda)
		day    int
		start  int
		length int
		want   bool
	}{
		{name: "empty agenda", day: 0, start: 0, length: 1, want: true},
		{name: "slot range exceeded", day: 0, start: 4, length: 2, want: false},
		{name: "negative start", day: 0, start: -1, length: 1, want: false},
		{
			name:   "adjacent after",
			seed:   func(a studentAgenda) { a.add(first, 0, 0, 1) },
			day:    0, start: 1, length: 1, want: false,
		},
		{
			name:   "adjacent before",
			seed:   func(a studentAgenda) { a.add(first, 0, 2, 1) },
			day:    0, start: 0, length: 2, want: false,
		},
		{
			name:   "overlap",
			seed:   func(a studentAgenda) { a.add(first, 0, 1, 2) },
			day:    0, start: 2, length: 1, want: false,
		},
		{
			name:   "one free slot between",
			seed:   func(a studentAgenda) { a.add(first, 0, 0, 1) },
			day:    0, start: 2, length: 1, want: true,
		},
		{
			name:   "other day is free",
			seed:   func(a studentAgenda) { a.add(first, 0, 0, 1) },
			day:    1, start: 1, length: 1, want: true,
		},
		{
			name: "daily cap",
			seed: func(a studentAgenda) {
				a.add(first, 0, 0, 1)
				a.add(NewCourse("X", []string{"s1"}, 0), 0, 2, 1)
			},
			day: 0, start: 4, length: 1, want: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			agenda := newStudentAgenda()
			if tc.seed != nil {
				tc.seed(agenda)
			}
			assert.Equal(t, tc.want, agenda.legal(probe, tc.day, tc.start, tc.length, 5))
		})
	}
}

func TestStudentAgendaRemoveRestoresShape(t *testing.T) {
	agenda := newStudentAgenda()
	a := NewCourse("A", []string{"s1", "s2"}, 0)
	b := NewCourse("B", []string{"s2", "s3"}, 0)

	agenda.add(a, 0, 0, 1)
	before := cloneAgenda(agenda)

	agenda.add(b, 0, 2, 2)
	agenda.remove(b, 0, 2, 2)
	assert.Equal(t, before, agenda)

	agenda.remove(a, 0, 0, 1)
	assert.Empty(t, agenda)
}

func cloneAgenda(a studentAgenda) studentAgenda {
	out := make(studentAgenda, len(a))
	for id, days := range a {
		out[id] = make(map[int][]interval, len(days))
		for d, list := range days {
			out[id][d] = append([]interval(nil), list...)
		}
	}
	return out
}
