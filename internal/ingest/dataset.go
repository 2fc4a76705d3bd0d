package ingest

import (
	"fmt"
	"io"
	"sort"

	"github.com/samber/lo"

	"github.com/noah-isme/exam-scheduler-api/internal/scheduler"
)

// Sources names the input files. Attendance and Classrooms are required.
type Sources struct {
	Classrooms string
	Attendance string
	Courses    string
	Students   string
}

// Dataset is everything a solve needs plus the optional full roster.
type Dataset struct {
	Classrooms []scheduler.Classroom
	Courses    []*scheduler.Course
	Students   []string
	// UnknownCourses lists course-list codes that never appear in attendance.
	UnknownCourses []string
}

// Stats summarises a dataset for reporting.
type Stats struct {
	Classrooms       int `json:"classrooms"`
	Courses          int `json:"courses"`
	EnrolledStudents int `json:"enrolledStudents"`
	ListedStudents   int `json:"listedStudents"`
	// StudentsWithoutExams are listed in the roster but sit no exam.
	StudentsWithoutExams int `json:"studentsWithoutExams"`
	// UnlistedStudents sit an exam but are missing from the roster.
	UnlistedStudents int `json:"unlistedStudents"`
	TotalSeats       int `json:"totalSeats"`
}

// Load reads every configured source file.
func Load(src Sources) (*Dataset, error) {
	if src.Classrooms == "" || src.Attendance == "" {
		return nil, fmt.Errorf("classrooms and attendance files are required")
	}
	ds := &Dataset{}
	var err error
	if ds.Classrooms, err = LoadClassrooms(src.Classrooms); err != nil {
		return nil, err
	}
	if err = openFile(src.Attendance, func(r io.Reader) error {
		ds.Courses, err = ReadAttendance(r)
		return err
	}); err != nil {
		return nil, err
	}
	if src.Courses != "" {
		var entries []CourseEntry
		if err = openFile(src.Courses, func(r io.Reader) error {
			entries, err = ReadCourseList(r)
			return err
		}); err != nil {
			return nil, err
		}
		for _, e := range ApplyDurations(ds.Courses, entries) {
			ds.UnknownCourses = append(ds.UnknownCourses, e.Code)
		}
	}
	if src.Students != "" {
		if err = openFile(src.Students, func(r io.Reader) error {
			ds.Students, err = ReadStudents(r)
			return err
		}); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// EnrolledStudents returns the sorted ids sitting at least one exam.
func EnrolledStudents(courses []*scheduler.Course) []string {
	var ids []string
	for _, c := range courses {
		ids = append(ids, c.Students()...)
	}
	ids = lo.Uniq(ids)
	sort.Strings(ids)
	return ids
}

// Summarize computes dataset statistics.
func Summarize(classrooms []scheduler.Classroom, courses []*scheduler.Course, students []string) Stats {
	enrolled := EnrolledStudents(courses)
	stats := Stats{
		Classrooms:       len(classrooms),
		Courses:          len(courses),
		EnrolledStudents: len(enrolled),
		ListedStudents:   len(students),
		TotalSeats:       lo.SumBy(classrooms, func(c scheduler.Classroom) int { return c.Capacity }),
	}
	if len(students) > 0 {
		withoutExams, unlisted := lo.Difference(students, enrolled)
		stats.StudentsWithoutExams = len(withoutExams)
		stats.UnlistedStudents = len(unlisted)
	}
	return stats
}
