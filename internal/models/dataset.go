package models

import "time"

// DatasetClassroom is a classroom row stored in a dataset snapshot slot.
type DatasetClassroom struct {
	Slot     int    `db:"slot" json:"slot"`
	Code     string `db:"code" json:"code"`
	Capacity int    `db:"capacity" json:"capacity"`
}

// DatasetCourse is a course row; Duration is nil when the course uses one slot.
type DatasetCourse struct {
	Slot     int    `db:"slot" json:"slot"`
	Code     string `db:"code" json:"code"`
	Duration *int   `db:"duration" json:"duration,omitempty"`
}

// DatasetEnrollment links a student to a course inside a snapshot.
type DatasetEnrollment struct {
	Slot       int    `db:"slot" json:"slot"`
	CourseCode string `db:"course_code" json:"course_code"`
	StudentID  string `db:"student_id" json:"student_id"`
}

// DatasetStudent is an entry of the full student list.
type DatasetStudent struct {
	Slot      int    `db:"slot" json:"slot"`
	StudentID string `db:"student_id" json:"student_id"`
}

// DatasetCounts summarises what a snapshot slot holds.
type DatasetCounts struct {
	Slot        int        `db:"slot" json:"slot"`
	Classrooms  int        `db:"classrooms" json:"classrooms"`
	Courses     int        `db:"courses" json:"courses"`
	Enrollments int        `db:"enrollments" json:"enrollments"`
	Students    int        `db:"students" json:"students"`
	SavedAt     *time.Time `db:"saved_at" json:"saved_at,omitempty"`
}

// DatasetSnapshot is the full content of a snapshot slot.
type DatasetSnapshot struct {
	Slot        int                 `json:"slot"`
	Classrooms  []DatasetClassroom  `json:"classrooms"`
	Courses     []DatasetCourse     `json:"courses"`
	Enrollments []DatasetEnrollment `json:"enrollments"`
	Students    []DatasetStudent    `json:"students"`
}
