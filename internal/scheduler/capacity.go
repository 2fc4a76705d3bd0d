package scheduler

import (
	"fmt"
	"math/rand"
	"sort"
)

// SlotsNeeded converts a course duration into contiguous slots.
func SlotsNeeded(c *Course, slotMinutes int) int {
	if c == nil || !c.HasDuration || slotMinutes <= 0 {
		return 1
	}
	n := (c.Duration + slotMinutes - 1) / slotMinutes
	if n < 1 {
		return 1
	}
	return n
}

// CapacityCheck is the outcome of the seat-slot pre-check.
type CapacityCheck struct {
	Demand   int64 `json:"demand"`
	Supply   int64 `json:"supply"`
	Feasible bool  `json:"feasible"`
}

func (c CapacityCheck) String() string {
	if c.Feasible {
		return fmt.Sprintf("required seat-slots %d fit within available seat-slots %d", c.Demand, c.Supply)
	}
	return fmt.Sprintf("required seat-slots %d exceed available seat-slots %d", c.Demand, c.Supply)
}

// CheckCapacity compares total seat-slot demand with what the calendar offers.
func CheckCapacity(courses []*Course, rooms []Classroom, params Params) CapacityCheck {
	var demand, seats int64
	for _, c := range courses {
		demand += int64(c.Enrollment()) * int64(SlotsNeeded(c, params.SlotDurationMinutes))
	}
	for _, r := range rooms {
		seats += int64(r.Capacity)
	}
	supply := int64(params.NumDays) * int64(params.SlotsPerDay) * seats
	return CapacityCheck{Demand: demand, Supply: supply, Feasible: demand <= supply}
}

// OrderCourses returns the placement order: largest enrollment first, then
// highest conflict degree. The input slice is not modified.
func OrderCourses(courses []*Course, graph ConflictGraph, shuffle bool, rng *rand.Rand) []*Course {
	ordered := make([]*Course, len(courses))
	copy(ordered, courses)
	if shuffle && rng != nil {
		rng.Shuffle(len(ordered), func(i, j int) {
			ordered[i], ordered[j] = ordered[j], ordered[i]
		})
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Enrollment() != b.Enrollment() {
			return a.Enrollment() > b.Enrollment()
		}
		return graph.Degree(a.Code) > graph.Degree(b.Code)
	})
	return ordered
}
