package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/exam-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/exam-scheduler-api/pkg/errors"
)

// ExamScheduleRepository persists solved exam schedules with their assignments and seats.
type ExamScheduleRepository struct {
	db *sqlx.DB
}

// NewExamScheduleRepository constructs repository.
func NewExamScheduleRepository(db *sqlx.DB) *ExamScheduleRepository {
	return &ExamScheduleRepository{db: db}
}

func (r *ExamScheduleRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts the schedule header, filling id, status, meta and timestamp when unset.
func (r *ExamScheduleRepository) Create(ctx context.Context, exec sqlx.ExtContext, schedule *models.ExamSchedule) error {
	if schedule == nil {
		return fmt.Errorf("exam schedule payload is nil")
	}
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	if schedule.Status == "" {
		schedule.Status = models.ExamScheduleStatusDraft
	}
	if len(schedule.Meta) == 0 {
		schedule.Meta = types.JSONText(`{}`)
	}
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = time.Now().UTC()
	}

	const query = `
INSERT INTO exam_schedules (id, dataset_slot, status, num_days, slots_per_day, slot_minutes, fingerprint, meta, created_at)
VALUES (:id, :dataset_slot, :status, :num_days, :slots_per_day, :slot_minutes, :fingerprint, :meta, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, schedule); err != nil {
		return fmt.Errorf("insert exam schedule: %w", err)
	}
	return nil
}

// InsertAssignments stores course placements for a schedule.
func (r *ExamScheduleRepository) InsertAssignments(ctx context.Context, exec sqlx.ExtContext, assignments []models.ExamAssignment) error {
	for i := range assignments {
		if assignments[i].ID == "" {
			assignments[i].ID = uuid.NewString()
		}
	}
	const query = `
INSERT INTO exam_assignments (id, schedule_id, course_code, day, start_slot, slots_needed, rooms, enrollment)
VALUES (:id, :schedule_id, :course_code, :day, :start_slot, :slots_needed, :rooms, :enrollment)`
	if err := insertBatches(ctx, r.exec(exec), query, assignments); err != nil {
		return fmt.Errorf("insert exam assignments: %w", err)
	}
	return nil
}

// InsertSeats stores the student to room map for a schedule.
func (r *ExamScheduleRepository) InsertSeats(ctx context.Context, exec sqlx.ExtContext, seats []models.ExamSeat) error {
	const query = `
INSERT INTO exam_seats (schedule_id, student_id, course_code, room_code)
VALUES (:schedule_id, :student_id, :course_code, :room_code)`
	if err := insertBatches(ctx, r.exec(exec), query, seats); err != nil {
		return fmt.Errorf("insert exam seats: %w", err)
	}
	return nil
}

// FindByID fetches a schedule header.
func (r *ExamScheduleRepository) FindByID(ctx context.Context, id string) (*models.ExamSchedule, error) {
	const query = `SELECT id, dataset_slot, status, num_days, slots_per_day, slot_minutes, fingerprint, meta, created_at
FROM exam_schedules WHERE id = $1`
	var schedule models.ExamSchedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam schedule not found")
		}
		return nil, fmt.Errorf("get exam schedule: %w", err)
	}
	return &schedule, nil
}

// List returns schedules newest first along with the total count.
func (r *ExamScheduleRepository) List(ctx context.Context, limit, offset int) ([]models.ExamSchedule, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM exam_schedules`); err != nil {
		return nil, 0, fmt.Errorf("count exam schedules: %w", err)
	}
	const query = `SELECT id, dataset_slot, status, num_days, slots_per_day, slot_minutes, fingerprint, meta, created_at
FROM exam_schedules ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	var schedules []models.ExamSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("list exam schedules: %w", err)
	}
	return schedules, total, nil
}

// ListAssignments returns placements ordered by day and start slot.
func (r *ExamScheduleRepository) ListAssignments(ctx context.Context, scheduleID string) ([]models.ExamAssignment, error) {
	const query = `SELECT id, schedule_id, course_code, day, start_slot, slots_needed, rooms, enrollment
FROM exam_assignments WHERE schedule_id = $1 ORDER BY day, start_slot, course_code`
	var assignments []models.ExamAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list exam assignments: %w", err)
	}
	return assignments, nil
}

// ListSeats returns seats ordered by student and course.
func (r *ExamScheduleRepository) ListSeats(ctx context.Context, scheduleID string) ([]models.ExamSeat, error) {
	const query = `SELECT schedule_id, student_id, course_code, room_code
FROM exam_seats WHERE schedule_id = $1 ORDER BY student_id, course_code`
	var seats []models.ExamSeat
	if err := r.db.SelectContext(ctx, &seats, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list exam seats: %w", err)
	}
	return seats, nil
}

// Delete removes a schedule; assignments and seats cascade.
func (r *ExamScheduleRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM exam_schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete exam schedule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("exam schedule rows affected: %w", err)
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "exam schedule not found")
	}
	return nil
}
