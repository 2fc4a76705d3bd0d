package scheduler

import (
	"fmt"
	"sort"
)

// DistributeStudents seats every enrolled student in one of the rooms assigned
// to their exam. Rooms are filled in allocation order from the sorted roster.
func DistributeStudents(courses []*Course, rooms []Classroom, assignments map[string]Assignment) map[SeatKey]string {
	capacity := make(map[string]int, len(rooms))
	for _, r := range rooms {
		capacity[r.Code] = r.Capacity
	}
	sorted := make([]*Course, len(courses))
	copy(sorted, courses)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Code < sorted[j].Code })

	seats := make(map[SeatKey]string)
	for _, c := range sorted {
		a, ok := assignments[c.Code]
		if !ok {
			continue
		}
		students := c.students
		next := 0
		for _, room := range a.Rooms {
			for filled := 0; filled < capacity[room] && next < len(students); filled++ {
				seats[SeatKey{StudentID: students[next], CourseCode: c.Code}] = room
				next++
			}
			if next == len(students) {
				break
			}
		}
	}
	return seats
}

// Diagnose explains why an exhausted search found nothing.
func Diagnose(courses []*Course, rooms []Classroom, params Params, graph ConflictGraph) []string {
	var reasons []string

	totalSeats := 0
	for _, r := range rooms {
		totalSeats += r.Capacity
	}
	for _, c := range courses {
		if n := SlotsNeeded(c, params.SlotDurationMinutes); n > params.SlotsPerDay {
			reasons = append(reasons, fmt.Sprintf("insufficient slots: course %s needs %d consecutive slots but a day has %d", c.Code, n, params.SlotsPerDay))
		}
		if c.Enrollment() > totalSeats {
			reasons = append(reasons, fmt.Sprintf("course %s enrollment %d exceeds total classroom capacity %d", c.Code, c.Enrollment(), totalSeats))
		}
	}

	// A student can sit at most this many single-slot exams per day once the
	// free-slot gap is respected.
	perDay := (params.SlotsPerDay + 1) / 2
	if perDay > maxExamsPerDay {
		perDay = maxExamsPerDay
	}
	limit := perDay * params.NumDays
	examCount := make(map[string]int)
	for _, c := range courses {
		for _, id := range c.students {
			examCount[id]++
		}
	}
	busiest, most := "", 0
	for id, n := range examCount {
		if n > most || (n == most && id < busiest) {
			busiest, most = id, n
		}
	}
	if most > limit {
		reasons = append(reasons, fmt.Sprintf("insufficient slots: student %s sits %d exams but at most %d fit in %d day(s) of %d slot(s)", busiest, most, limit, params.NumDays, params.SlotsPerDay))
	}

	if graph == nil {
		graph = BuildConflictGraph(courses)
	}
	reasons = append(reasons, fmt.Sprintf("high conflict density: %.0f%% of course pairs share students (max degree %d)", graph.Density()*100, graph.MaxDegree()))
	return reasons
}
