package scheduler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Course is an exam to place. The roster is deduplicated and kept sorted.
type Course struct {
	Code        string
	Duration    int
	HasDuration bool

	students []string
	roster   map[string]struct{}
}

// NewCourse builds a course from a raw roster. A duration <= 0 means the course
// takes exactly one slot.
func NewCourse(code string, students []string, duration int) *Course {
	c := &Course{Code: strings.TrimSpace(code)}
	c.setStudents(students)
	if duration > 0 {
		c.Duration = duration
		c.HasDuration = true
	}
	return c
}

func (c *Course) setStudents(students []string) {
	cleaned := lo.Uniq(lo.FilterMap(students, func(id string, _ int) (string, bool) {
		id = strings.TrimSpace(id)
		return id, id != ""
	}))
	sort.Strings(cleaned)
	c.students = cleaned
	c.roster = make(map[string]struct{}, len(cleaned))
	for _, id := range cleaned {
		c.roster[id] = struct{}{}
	}
}

// Students returns a copy of the sorted roster.
func (c *Course) Students() []string {
	out := make([]string, len(c.students))
	copy(out, c.students)
	return out
}

// Enrollment is the number of distinct students sitting the exam.
func (c *Course) Enrollment() int {
	return len(c.students)
}

// Enrolled reports whether the student sits this exam.
func (c *Course) Enrolled(studentID string) bool {
	_, ok := c.roster[studentID]
	return ok
}

// AddStudents merges additional ids into the roster.
func (c *Course) AddStudents(students []string) {
	c.setStudents(append(c.Students(), students...))
}

// MergeDuration records a duration discovered after the course was created.
func (c *Course) MergeDuration(minutes int) {
	if minutes <= 0 {
		return
	}
	c.Duration = minutes
	c.HasDuration = true
}

// Classroom is an exam room. Capacity is the number of seats.
type Classroom struct {
	Code     string
	Capacity int
}

// Params carries the calendar grid and search budgets.
type Params struct {
	NumDays             int
	SlotsPerDay         int
	SlotDurationMinutes int
	// MaxIterations caps recursive search calls; zero disables the cap.
	MaxIterations int
	// PollEvery is the number of search calls between cancellation checks.
	PollEvery int
	Shuffle   bool
	// Seed drives course shuffling and candidate tie-breaking; zero picks a
	// time-based seed.
	Seed int64
}

const (
	DefaultNumDays       = 7
	DefaultSlotsPerDay   = 5
	DefaultSlotMinutes   = 60
	DefaultMaxIterations = 2_000_000
	DefaultPollEvery     = 10
)

// DefaultParams mirrors the defaults used by the command line and API.
func DefaultParams() Params {
	return Params{
		NumDays:             DefaultNumDays,
		SlotsPerDay:         DefaultSlotsPerDay,
		SlotDurationMinutes: DefaultSlotMinutes,
		MaxIterations:       DefaultMaxIterations,
		PollEvery:           DefaultPollEvery,
	}
}

// Validate rejects grids that cannot host a single exam.
func (p Params) Validate() error {
	if p.NumDays <= 0 {
		return fmt.Errorf("numDays must be positive, got %d", p.NumDays)
	}
	if p.SlotsPerDay <= 0 {
		return fmt.Errorf("slotsPerDay must be positive, got %d", p.SlotsPerDay)
	}
	if p.SlotDurationMinutes <= 0 {
		return fmt.Errorf("slot duration must be positive, got %d", p.SlotDurationMinutes)
	}
	if p.MaxIterations < 0 {
		return fmt.Errorf("maxIterations cannot be negative")
	}
	return nil
}

func (p Params) withDefaults() Params {
	if p.PollEvery <= 0 {
		p.PollEvery = DefaultPollEvery
	}
	return p
}

// Assignment is the committed placement of one course.
type Assignment struct {
	CourseCode  string   `json:"courseCode"`
	Day         int      `json:"day"`
	StartSlot   int      `json:"startSlot"`
	SlotsNeeded int      `json:"slotsNeeded"`
	Rooms       []string `json:"rooms"`
}

// EndSlot is the first slot after the exam.
func (a Assignment) EndSlot() int {
	return a.StartSlot + a.SlotsNeeded
}

// SeatKey identifies one student sitting one exam.
type SeatKey struct {
	StudentID  string
	CourseCode string
}
