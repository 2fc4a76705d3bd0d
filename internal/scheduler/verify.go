package scheduler

import (
	"fmt"
	"sort"
)

// Violation describes one broken rule in a produced schedule.
type Violation struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

const (
	RuleUnplaced    = "unplaced"
	RuleSlotRange   = "slot_range"
	RuleRoomClash   = "room_clash"
	RuleCapacity    = "capacity"
	RuleDailyCap    = "daily_cap"
	RuleOverlap     = "overlap"
	RuleAdjacency   = "adjacency"
	RuleSeatMissing = "seat_missing"
	RuleSeatRoom    = "seat_room"
	RuleRoomFull    = "room_full"
)

// Verify re-checks a schedule and its seat map from scratch. An empty result
// means the schedule is valid.
func Verify(courses []*Course, rooms []Classroom, params Params, assignments map[string]Assignment, seats map[SeatKey]string) []Violation {
	var out []Violation
	add := func(rule, format string, args ...interface{}) {
		out = append(out, Violation{Rule: rule, Message: fmt.Sprintf(format, args...)})
	}

	capacity := make(map[string]int, len(rooms))
	for _, r := range rooms {
		capacity[r.Code] = r.Capacity
	}

	sorted := make([]*Course, len(courses))
	copy(sorted, courses)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Code < sorted[j].Code })

	occupied := make(map[slotKey]map[string]string)
	agenda := make(map[string]map[int][]interval)
	for _, c := range sorted {
		a, ok := assignments[c.Code]
		if !ok {
			add(RuleUnplaced, "course %s has no assignment", c.Code)
			continue
		}
		if a.Day < 0 || a.Day >= params.NumDays || a.StartSlot < 0 || a.EndSlot() > params.SlotsPerDay {
			add(RuleSlotRange, "course %s at day %d slot %d (+%d) is outside the calendar", c.Code, a.Day, a.StartSlot, a.SlotsNeeded)
		}
		seatsAvailable := 0
		for _, room := range a.Rooms {
			seatsAvailable += capacity[room]
			for s := a.StartSlot; s < a.EndSlot(); s++ {
				key := slotKey{Day: a.Day, Slot: s}
				if occupied[key] == nil {
					occupied[key] = make(map[string]string)
				}
				if other, taken := occupied[key][room]; taken {
					add(RuleRoomClash, "room %s holds %s and %s on day %d slot %d", room, other, c.Code, a.Day, s)
				}
				occupied[key][room] = c.Code
			}
		}
		if seatsAvailable < c.Enrollment() {
			add(RuleCapacity, "course %s seats %d of %d students", c.Code, seatsAvailable, c.Enrollment())
		}
		iv := interval{Start: a.StartSlot, Length: a.SlotsNeeded}
		for _, id := range c.students {
			if agenda[id] == nil {
				agenda[id] = make(map[int][]interval)
			}
			for _, other := range agenda[id][a.Day] {
				if iv.overlaps(other) {
					add(RuleOverlap, "student %s has overlapping exams on day %d", id, a.Day)
				} else if iv.touches(other) {
					add(RuleAdjacency, "student %s has back-to-back exams on day %d", id, a.Day)
				}
			}
			agenda[id][a.Day] = append(agenda[id][a.Day], iv)
			if len(agenda[id][a.Day]) == maxExamsPerDay+1 {
				add(RuleDailyCap, "student %s has more than %d exams on day %d", id, maxExamsPerDay, a.Day)
			}
		}

		if seats == nil {
			continue
		}
		assigned := make(map[string]bool, len(a.Rooms))
		for _, room := range a.Rooms {
			assigned[room] = true
		}
		perRoom := make(map[string]int)
		for _, id := range c.students {
			room, ok := seats[SeatKey{StudentID: id, CourseCode: c.Code}]
			if !ok {
				add(RuleSeatMissing, "student %s has no room for %s", id, c.Code)
				continue
			}
			if !assigned[room] {
				add(RuleSeatRoom, "student %s seated in %s which is not assigned to %s", id, room, c.Code)
			}
			perRoom[room]++
		}
		for room, n := range perRoom {
			if n > capacity[room] {
				add(RuleRoomFull, "room %s seats %d students for %s but holds %d", room, n, c.Code, capacity[room])
			}
		}
	}
	return out
}
