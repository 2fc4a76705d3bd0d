package dto

import "github.com/noah-isme/exam-scheduler-api/internal/models"

// DatasetView is a stored snapshot rendered as solve input.
type DatasetView struct {
	Slot    int                  `json:"slot"`
	Counts  models.DatasetCounts `json:"counts"`
	Dataset DatasetInput         `json:"dataset"`
}

// CapacityChange reports a classroom whose capacity differs.
type CapacityChange struct {
	Code     string `json:"code"`
	Stored   int    `json:"stored"`
	Incoming int    `json:"incoming"`
}

// DurationChange reports a course whose duration differs.
type DurationChange struct {
	Code     string `json:"code"`
	Stored   int    `json:"stored"`
	Incoming int    `json:"incoming"`
}

// RosterChange lists students joining or leaving a course.
type RosterChange struct {
	Code    string   `json:"code"`
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

// DatasetDiff compares an incoming dataset with a stored slot.
type DatasetDiff struct {
	Slot              int              `json:"slot"`
	Identical         bool             `json:"identical"`
	AddedClassrooms   []string         `json:"addedClassrooms,omitempty"`
	RemovedClassrooms []string         `json:"removedClassrooms,omitempty"`
	CapacityChanges   []CapacityChange `json:"capacityChanges,omitempty"`
	AddedCourses      []string         `json:"addedCourses,omitempty"`
	RemovedCourses    []string         `json:"removedCourses,omitempty"`
	DurationChanges   []DurationChange `json:"durationChanges,omitempty"`
	RosterChanges     []RosterChange   `json:"rosterChanges,omitempty"`
	AddedStudents     []string         `json:"addedStudents,omitempty"`
	RemovedStudents   []string         `json:"removedStudents,omitempty"`
}
