package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistributeStudentsFillsRoomsInOrder(t *testing.T) {
	courses := []*Course{NewCourse("A", []string{"s5", "s1", "s3", "s2", "s4"}, 0)}
	rooms := []Classroom{{Code: "BIG", Capacity: 3}, {Code: "SMALL", Capacity: 2}}
	assignments := map[string]Assignment{
		"A": {CourseCode: "A", Day: 0, StartSlot: 0, SlotsNeeded: 1, Rooms: []string{"BIG", "SMALL"}},
	}

	seats := DistributeStudents(courses, rooms, assignments)

	require.Len(t, seats, 5)
	assert.Equal(t, "BIG", seats[SeatKey{StudentID: "s1", CourseCode: "A"}])
	assert.Equal(t, "BIG", seats[SeatKey{StudentID: "s3", CourseCode: "A"}])
	assert.Equal(t, "SMALL", seats[SeatKey{StudentID: "s4", CourseCode: "A"}])
	assert.Equal(t, "SMALL", seats[SeatKey{StudentID: "s5", CourseCode: "A"}])
}

func TestDistributeStudentsSkipsUnassignedCourses(t *testing.T) {
	courses := []*Course{NewCourse("A", []string{"s1"}, 0), NewCourse("B", []string{"s1"}, 0)}
	assignments := map[string]Assignment{"A": {CourseCode: "A", Rooms: []string{"R"}}}

	seats := DistributeStudents(courses, []Classroom{{Code: "R", Capacity: 1}}, assignments)

	assert.Equal(t, map[SeatKey]string{{StudentID: "s1", CourseCode: "A"}: "R"}, seats)
}

func TestVerifyFlagsBrokenSchedules(t *testing.T) {
	courses := []*Course{
		NewCourse("A", []string{"s1", "s2"}, 0),
		NewCourse("B", []string{"s2"}, 0),
		NewCourse("C", []string{"s3", "s4"}, 0),
	}
	rooms := []Classroom{{Code: "R1", Capacity: 2}, {Code: "R2", Capacity: 1}}
	params := Params{NumDays: 1, SlotsPerDay: 3, SlotDurationMinutes: 60}
	assignments := map[string]Assignment{
		"A": {CourseCode: "A", Day: 0, StartSlot: 0, SlotsNeeded: 1, Rooms: []string{"R1"}},
		"B": {CourseCode: "B", Day: 0, StartSlot: 1, SlotsNeeded: 1, Rooms: []string{"R1"}},
		"C": {CourseCode: "C", Day: 0, StartSlot: 1, SlotsNeeded: 1, Rooms: []string{"R2"}},
	}

	violations := Verify(courses, rooms, params, assignments, nil)

	rules := make(map[string]bool)
	for _, v := range violations {
		rules[v.Rule] = true
	}
	assert.True(t, rules[RuleAdjacency])
	assert.True(t, rules[RuleCapacity])
	assert.False(t, rules[RuleRoomClash])
}

func TestVerifyDetectsRoomClashAndMissingSeats(t *testing.T) {
	courses := []*Course{NewCourse("A", []string{"s1"}, 0), NewCourse("B", []string{"s2"}, 0)}
	rooms := []Classroom{{Code: "R1", Capacity: 5}}
	params := Params{NumDays: 1, SlotsPerDay: 2, SlotDurationMinutes: 60}
	assignments := map[string]Assignment{
		"A": {CourseCode: "A", Day: 0, StartSlot: 0, SlotsNeeded: 2, Rooms: []string{"R1"}},
		"B": {CourseCode: "B", Day: 0, StartSlot: 1, SlotsNeeded: 1, Rooms: []string{"R1"}},
	}
	seats := map[SeatKey]string{{StudentID: "s1", CourseCode: "A"}: "R1"}

	violations := Verify(courses, rooms, params, assignments, seats)

	rules := make(map[string]bool)
	for _, v := range violations {
		rules[v.Rule] = true
	}
	assert.True(t, rules[RuleRoomClash])
	assert.True(t, rules[RuleSeatMissing])
	assert.False(t, rules[RuleSlotRange])
}

func TestDiagnoseReportsOversizedCourse(t *testing.T) {
	courses := []*Course{NewCourse("A", []string{"s1", "s2", "s3"}, 240)}
	reasons := Diagnose(courses, []Classroom{{Code: "R", Capacity: 2}}, Params{NumDays: 2, SlotsPerDay: 3, SlotDurationMinutes: 60}, nil)

	assert.Contains(t, reasons[0], "needs 4 consecutive slots")
	assert.Contains(t, reasons[1], "exceeds total classroom capacity 2")
	assert.Contains(t, reasons[len(reasons)-1], "conflict density")
}
