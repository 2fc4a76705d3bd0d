package scheduler

// maxExamsPerDay is the most exams one student may sit on a single day.
const maxExamsPerDay = 2

type interval struct {
	Start  int
	Length int
}

func (iv interval) end() int { return iv.Start + iv.Length }

func (iv interval) overlaps(o interval) bool {
	return iv.Start < o.end() && o.Start < iv.end()
}

// touches reports back-to-back intervals with no free slot between them.
func (iv interval) touches(o interval) bool {
	return iv.Start == o.end() || o.Start == iv.end()
}

// studentAgenda tracks, per student and day, the intervals already committed.
// Empty inner entries are deleted so that undo restores the exact prior shape.
type studentAgenda map[string]map[int][]interval

func newStudentAgenda() studentAgenda {
	return make(studentAgenda)
}

// legal checks every student of the course against the day rules, in order:
// slot range, daily cap, overlap, adjacency.
func (a studentAgenda) legal(c *Course, day, start, length, slotsPerDay int) bool {
	if start < 0 || length < 1 || start+length > slotsPerDay {
		return false
	}
	candidate := interval{Start: start, Length: length}
	for _, id := range c.students {
		existing := a[id][day]
		if len(existing) >= maxExamsPerDay {
			return false
		}
		for _, iv := range existing {
			if candidate.overlaps(iv) || candidate.touches(iv) {
				return false
			}
		}
	}
	return true
}

func (a studentAgenda) add(c *Course, day, start, length int) {
	iv := interval{Start: start, Length: length}
	for _, id := range c.students {
		days, ok := a[id]
		if !ok {
			days = make(map[int][]interval)
			a[id] = days
		}
		days[day] = append(days[day], iv)
	}
}

func (a studentAgenda) remove(c *Course, day, start, length int) {
	iv := interval{Start: start, Length: length}
	for _, id := range c.students {
		days := a[id]
		list := days[day]
		for i := len(list) - 1; i >= 0; i-- {
			if list[i] == iv {
				list = append(list[:i], list[i+1:]...)
				break
			}
		}
		if len(list) == 0 {
			delete(days, day)
		} else {
			days[day] = list
		}
		if len(days) == 0 {
			delete(a, id)
		}
	}
}
