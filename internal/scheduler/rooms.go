package scheduler

import "sort"

type slotKey struct {
	Day  int
	Slot int
}

// roomLedger holds room reservations and the usage counters that steer the search.
// Zero counters and empty reservation sets are removed on release.
type roomLedger struct {
	reserved  map[slotKey]map[string]struct{}
	roomUsage map[string]int
	slotUsage map[slotKey]int
}

func newRoomLedger() *roomLedger {
	return &roomLedger{
		reserved:  make(map[slotKey]map[string]struct{}),
		roomUsage: make(map[string]int),
		slotUsage: make(map[slotKey]int),
	}
}

func (l *roomLedger) free(code string, day, start, length int) bool {
	for s := start; s < start+length; s++ {
		if _, taken := l.reserved[slotKey{Day: day, Slot: s}][code]; taken {
			return false
		}
	}
	return true
}

// allocate picks rooms free for the whole interval, least used first and then
// largest first, until capacity covers the enrollment. At least one room is
// always taken. It returns nil when the free rooms cannot seat everyone.
func (l *roomLedger) allocate(rooms []Classroom, day, start, length, enrollment int) []string {
	available := make([]Classroom, 0, len(rooms))
	for _, r := range rooms {
		if l.free(r.Code, day, start, length) {
			available = append(available, r)
		}
	}
	sort.SliceStable(available, func(i, j int) bool {
		a, b := available[i], available[j]
		if l.roomUsage[a.Code] != l.roomUsage[b.Code] {
			return l.roomUsage[a.Code] < l.roomUsage[b.Code]
		}
		if a.Capacity != b.Capacity {
			return a.Capacity > b.Capacity
		}
		return a.Code < b.Code
	})

	var (
		chosen []string
		seats  int
	)
	for _, r := range available {
		chosen = append(chosen, r.Code)
		seats += r.Capacity
		if seats >= enrollment {
			return chosen
		}
	}
	return nil
}

func (l *roomLedger) commit(rooms []string, day, start, length int) {
	for s := start; s < start+length; s++ {
		key := slotKey{Day: day, Slot: s}
		set, ok := l.reserved[key]
		if !ok {
			set = make(map[string]struct{}, len(rooms))
			l.reserved[key] = set
		}
		for _, code := range rooms {
			set[code] = struct{}{}
			l.roomUsage[code]++
			l.slotUsage[key]++
		}
	}
}

func (l *roomLedger) release(rooms []string, day, start, length int) {
	for s := start; s < start+length; s++ {
		key := slotKey{Day: day, Slot: s}
		set := l.reserved[key]
		for _, code := range rooms {
			delete(set, code)
			decrement(l.roomUsage, code)
			decrement(l.slotUsage, key)
		}
		if len(set) == 0 {
			delete(l.reserved, key)
		}
	}
}

// load sums slot usage over an interval; used to rank candidate positions.
func (l *roomLedger) load(day, start, length int) int {
	total := 0
	for s := start; s < start+length; s++ {
		total += l.slotUsage[slotKey{Day: day, Slot: s}]
	}
	return total
}

func decrement[K comparable](m map[K]int, key K) {
	if m[key] <= 1 {
		delete(m, key)
		return
	}
	m[key]--
}
