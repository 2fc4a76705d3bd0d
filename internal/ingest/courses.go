package ingest

import (
	"io"

	"github.com/noah-isme/exam-scheduler-api/internal/scheduler"
)

// CourseEntry is one line of a course list: a code and an optional duration in minutes.
type CourseEntry struct {
	Code     string
	Duration int
}

// ReadCourseList parses "CODE" or "CODE;MINUTES" lines.
func ReadCourseList(r io.Reader) ([]CourseEntry, error) {
	text, err := readText(r)
	if err != nil {
		return nil, err
	}
	var entries []CourseEntry
	for _, line := range lines(text) {
		if isHeader(line) {
			continue
		}
		code, value, _ := splitCodeValue(line)
		if code == "" {
			continue
		}
		duration, _ := parsePositive(value)
		entries = append(entries, CourseEntry{Code: code, Duration: duration})
	}
	return entries, nil
}

// ReadAttendance parses course blocks: a code line (optionally "CODE;MINUTES")
// followed by lines holding quoted student ids such as ['S1', 'S2'].
// Repeated blocks for the same code merge their students; the latest explicit
// duration wins. Courses are returned in first-seen order.
func ReadAttendance(r io.Reader) ([]*scheduler.Course, error) {
	text, err := readText(r)
	if err != nil {
		return nil, err
	}
	var (
		courses  []*scheduler.Course
		byCode   = make(map[string]*scheduler.Course)
		code     string
		duration int
	)
	for _, line := range lines(text) {
		if containsList(line) {
			if code == "" {
				continue
			}
			ids := studentIDs(line)
			if len(ids) == 0 {
				continue
			}
			if existing, ok := byCode[code]; ok {
				existing.AddStudents(ids)
				existing.MergeDuration(duration)
				continue
			}
			course := scheduler.NewCourse(code, ids, duration)
			byCode[code] = course
			courses = append(courses, course)
			continue
		}
		if isHeader(line) {
			continue
		}
		var value string
		code, value, _ = splitCodeValue(line)
		duration, _ = parsePositive(value)
	}
	return courses, nil
}

// ApplyDurations merges durations from a course list into attendance courses
// by code. Entries for unknown codes are returned.
func ApplyDurations(courses []*scheduler.Course, entries []CourseEntry) []CourseEntry {
	byCode := make(map[string]*scheduler.Course, len(courses))
	for _, c := range courses {
		byCode[c.Code] = c
	}
	var unknown []CourseEntry
	for _, e := range entries {
		c, ok := byCode[e.Code]
		if !ok {
			unknown = append(unknown, e)
			continue
		}
		c.MergeDuration(e.Duration)
	}
	return unknown
}

func containsList(line string) bool {
	open := -1
	for i, r := range line {
		if r == '[' && open < 0 {
			open = i
		}
		if r == ']' && open >= 0 {
			return true
		}
	}
	return false
}

func studentIDs(line string) []string {
	matches := quotedID.FindAllStringSubmatch(line, -1)
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m[1])
	}
	return ids
}
