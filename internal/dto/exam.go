package dto

import (
	"time"

	"github.com/noah-isme/exam-scheduler-api/internal/models"
)

// ClassroomInput is a classroom in an inline dataset.
type ClassroomInput struct {
	Code     string `json:"code" validate:"required"`
	Capacity int    `json:"capacity" validate:"min=0"`
}

// CourseInput is a course with its roster. Duration is in minutes; zero means one slot.
type CourseInput struct {
	Code     string   `json:"code" validate:"required"`
	Duration int      `json:"duration" validate:"omitempty,min=1"`
	Students []string `json:"students" validate:"dive,required"`
}

// DatasetInput carries everything a solve needs.
type DatasetInput struct {
	Classrooms []ClassroomInput `json:"classrooms" validate:"required,min=1,dive"`
	Courses    []CourseInput    `json:"courses" validate:"dive"`
	Students   []string         `json:"students" validate:"dive,required"`
}

// SolveOptions overrides the configured calendar and budgets. Zero values fall back to config.
type SolveOptions struct {
	NumDays          int   `json:"numDays" validate:"omitempty,min=1,max=31"`
	SlotsPerDay      int   `json:"slotsPerDay" validate:"omitempty,min=1,max=24"`
	SlotMinutes      int   `json:"slotMinutes" validate:"omitempty,min=1,max=600"`
	TimeLimitSeconds int   `json:"timeLimitSeconds" validate:"omitempty,min=1,max=3600"`
	MaxIterations    int   `json:"maxIterations" validate:"omitempty,min=1"`
	Shuffle          bool  `json:"shuffle"`
	Seed             int64 `json:"seed"`
	// Retries re-runs a timed out or exhausted search with a fresh shuffle.
	Retries int `json:"retries" validate:"omitempty,min=0,max=5"`
}

// SolveRequest asks for an exam schedule over an inline dataset or a stored snapshot slot.
type SolveRequest struct {
	Dataset     *DatasetInput `json:"dataset" validate:"required_without=DatasetSlot,omitempty"`
	DatasetSlot *int          `json:"datasetSlot" validate:"required_without=Dataset,omitempty,min=1,max=99"`
	Options     SolveOptions  `json:"options"`
	Persist     bool          `json:"persist"`
}

// ExamAssignmentView is one placed exam.
type ExamAssignmentView struct {
	CourseCode  string   `json:"courseCode"`
	Day         int      `json:"day"`
	StartSlot   int      `json:"startSlot"`
	EndSlot     int      `json:"endSlot"`
	SlotsNeeded int      `json:"slotsNeeded"`
	Rooms       []string `json:"rooms"`
	Enrollment  int      `json:"enrollment"`
}

// SeatView places one student for one exam.
type SeatView struct {
	StudentID  string `json:"studentId"`
	CourseCode string `json:"courseCode"`
	RoomCode   string `json:"roomCode"`
}

// SolveStats reports dataset figures and search effort.
type SolveStats struct {
	Courses              int     `json:"courses"`
	Classrooms           int     `json:"classrooms"`
	EnrolledStudents     int     `json:"enrolledStudents"`
	ListedStudents       int     `json:"listedStudents"`
	StudentsWithoutExams int     `json:"studentsWithoutExams"`
	UnlistedStudents     int     `json:"unlistedStudents"`
	TotalSeats           int     `json:"totalSeats"`
	ConflictDensity      float64 `json:"conflictDensity"`
	Iterations           int     `json:"iterations"`
	ElapsedMs            int64   `json:"elapsedMs"`
}

// SolveResponse is the outcome of a solve.
type SolveResponse struct {
	ScheduleID  string               `json:"scheduleId,omitempty"`
	Success     bool                 `json:"success"`
	Outcome     string               `json:"outcome"`
	Message     string               `json:"message"`
	Reasons     []string             `json:"reasons,omitempty"`
	Assignments []ExamAssignmentView `json:"assignments,omitempty"`
	Seats       []SeatView           `json:"seats,omitempty"`
	Stats       SolveStats           `json:"stats"`
	Fingerprint string               `json:"fingerprint"`
	Cached      bool                 `json:"cached"`
}

// SolveJobStatus tracks an asynchronous solve.
type SolveJobStatus string

const (
	SolveJobQueued   SolveJobStatus = "QUEUED"
	SolveJobRunning  SolveJobStatus = "RUNNING"
	SolveJobStopping SolveJobStatus = "STOPPING"
	SolveJobDone     SolveJobStatus = "DONE"
	SolveJobFailed   SolveJobStatus = "FAILED"
)

// Finished reports whether the job reached a terminal state.
func (s SolveJobStatus) Finished() bool {
	return s == SolveJobDone || s == SolveJobFailed
}

// SolveJobResponse describes an asynchronous solve.
type SolveJobResponse struct {
	JobID       string         `json:"jobId"`
	Status      SolveJobStatus `json:"status"`
	SubmittedAt time.Time      `json:"submittedAt"`
	StartedAt   *time.Time     `json:"startedAt,omitempty"`
	FinishedAt  *time.Time     `json:"finishedAt,omitempty"`
	Result      *SolveResponse `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// ExamScheduleDetail is a stored schedule with its placements and seats.
type ExamScheduleDetail struct {
	Schedule    models.ExamSchedule  `json:"schedule"`
	Assignments []ExamAssignmentView `json:"assignments"`
	Seats       []SeatView           `json:"seats"`
}

// ExamScheduleQuery pages through stored schedules.
type ExamScheduleQuery struct {
	Page     int `form:"page" validate:"omitempty,min=1"`
	PageSize int `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// ExportQuery selects the export rendering.
type ExportQuery struct {
	Format string `form:"format" validate:"omitempty,oneof=csv pdf"`
	View   string `form:"view" validate:"omitempty,oneof=timetable seats"`
}
