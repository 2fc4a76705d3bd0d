package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
)

// ExamScheduleStatus represents lifecycle phases for stored exam schedules.
type ExamScheduleStatus string

const (
	ExamScheduleStatusDraft     ExamScheduleStatus = "DRAFT"
	ExamScheduleStatusPublished ExamScheduleStatus = "PUBLISHED"
)

// ExamSchedule is a persisted solver result.
type ExamSchedule struct {
	ID          string             `db:"id" json:"id"`
	DatasetSlot *int               `db:"dataset_slot" json:"dataset_slot,omitempty"`
	Status      ExamScheduleStatus `db:"status" json:"status"`
	NumDays     int                `db:"num_days" json:"num_days"`
	SlotsPerDay int                `db:"slots_per_day" json:"slots_per_day"`
	SlotMinutes int                `db:"slot_minutes" json:"slot_minutes"`
	Fingerprint string             `db:"fingerprint" json:"fingerprint"`
	Meta        types.JSONText     `db:"meta" json:"meta"`
	CreatedAt   time.Time          `db:"created_at" json:"created_at"`
}

// ExamAssignment is the placement of one course inside a stored schedule.
type ExamAssignment struct {
	ID          string         `db:"id" json:"id"`
	ScheduleID  string         `db:"schedule_id" json:"schedule_id"`
	CourseCode  string         `db:"course_code" json:"course_code"`
	Day         int            `db:"day" json:"day"`
	StartSlot   int            `db:"start_slot" json:"start_slot"`
	SlotsNeeded int            `db:"slots_needed" json:"slots_needed"`
	Rooms       pq.StringArray `db:"rooms" json:"rooms"`
	Enrollment  int            `db:"enrollment" json:"enrollment"`
}

// ExamSeat places one student in one room for one exam.
type ExamSeat struct {
	ScheduleID string `db:"schedule_id" json:"schedule_id"`
	StudentID  string `db:"student_id" json:"student_id"`
	CourseCode string `db:"course_code" json:"course_code"`
	RoomCode   string `db:"room_code" json:"room_code"`
}
