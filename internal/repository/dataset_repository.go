package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/exam-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/exam-scheduler-api/pkg/errors"
)

var datasetTables = []string{"dataset_classrooms", "dataset_courses", "dataset_enrollments", "dataset_students"}

// DatasetRepository persists numbered dataset snapshot slots.
type DatasetRepository struct {
	db *sqlx.DB
}

// NewDatasetRepository constructs repository.
func NewDatasetRepository(db *sqlx.DB) *DatasetRepository {
	return &DatasetRepository{db: db}
}

func (r *DatasetRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Replace overwrites a slot with the snapshot content. Run it inside a transaction.
func (r *DatasetRepository) Replace(ctx context.Context, exec sqlx.ExtContext, snapshot *models.DatasetSnapshot) error {
	if snapshot == nil {
		return fmt.Errorf("dataset snapshot is nil")
	}
	target := r.exec(exec)
	slot := snapshot.Slot

	if err := r.deleteRows(ctx, target, slot); err != nil {
		return err
	}

	const upsertMeta = `INSERT INTO dataset_meta (slot, saved_at) VALUES ($1, NOW())
ON CONFLICT (slot) DO UPDATE SET saved_at = EXCLUDED.saved_at`
	if _, err := target.ExecContext(ctx, upsertMeta, slot); err != nil {
		return fmt.Errorf("upsert dataset meta: %w", err)
	}

	for i := range snapshot.Classrooms {
		snapshot.Classrooms[i].Slot = slot
	}
	for i := range snapshot.Courses {
		snapshot.Courses[i].Slot = slot
	}
	for i := range snapshot.Enrollments {
		snapshot.Enrollments[i].Slot = slot
	}
	for i := range snapshot.Students {
		snapshot.Students[i].Slot = slot
	}

	if err := insertBatches(ctx, target, `INSERT INTO dataset_classrooms (slot, code, capacity) VALUES (:slot, :code, :capacity)`, snapshot.Classrooms); err != nil {
		return fmt.Errorf("insert dataset classrooms: %w", err)
	}
	if err := insertBatches(ctx, target, `INSERT INTO dataset_courses (slot, code, duration) VALUES (:slot, :code, :duration)`, snapshot.Courses); err != nil {
		return fmt.Errorf("insert dataset courses: %w", err)
	}
	if err := insertBatches(ctx, target, `INSERT INTO dataset_enrollments (slot, course_code, student_id) VALUES (:slot, :course_code, :student_id)`, snapshot.Enrollments); err != nil {
		return fmt.Errorf("insert dataset enrollments: %w", err)
	}
	if err := insertBatches(ctx, target, `INSERT INTO dataset_students (slot, student_id) VALUES (:slot, :student_id)`, snapshot.Students); err != nil {
		return fmt.Errorf("insert dataset students: %w", err)
	}
	return nil
}

// Load returns the full content of a slot.
func (r *DatasetRepository) Load(ctx context.Context, slot int) (*models.DatasetSnapshot, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM dataset_meta WHERE slot = $1)`, slot); err != nil {
		return nil, fmt.Errorf("check dataset slot: %w", err)
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("dataset slot %d is empty", slot))
	}

	snapshot := &models.DatasetSnapshot{Slot: slot}
	if err := r.db.SelectContext(ctx, &snapshot.Classrooms, `SELECT slot, code, capacity FROM dataset_classrooms WHERE slot = $1 ORDER BY code`, slot); err != nil {
		return nil, fmt.Errorf("load dataset classrooms: %w", err)
	}
	if err := r.db.SelectContext(ctx, &snapshot.Courses, `SELECT slot, code, duration FROM dataset_courses WHERE slot = $1 ORDER BY code`, slot); err != nil {
		return nil, fmt.Errorf("load dataset courses: %w", err)
	}
	if err := r.db.SelectContext(ctx, &snapshot.Enrollments, `SELECT slot, course_code, student_id FROM dataset_enrollments WHERE slot = $1 ORDER BY course_code, student_id`, slot); err != nil {
		return nil, fmt.Errorf("load dataset enrollments: %w", err)
	}
	if err := r.db.SelectContext(ctx, &snapshot.Students, `SELECT slot, student_id FROM dataset_students WHERE slot = $1 ORDER BY student_id`, slot); err != nil {
		return nil, fmt.Errorf("load dataset students: %w", err)
	}
	return snapshot, nil
}

// Clear empties a slot. Clearing an empty slot reports not found.
func (r *DatasetRepository) Clear(ctx context.Context, exec sqlx.ExtContext, slot int) error {
	target := r.exec(exec)
	if err := r.deleteRows(ctx, target, slot); err != nil {
		return err
	}
	res, err := target.ExecContext(ctx, `DELETE FROM dataset_meta WHERE slot = $1`, slot)
	if err != nil {
		return fmt.Errorf("delete dataset meta: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("dataset meta rows affected: %w", err)
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("dataset slot %d is empty", slot))
	}
	return nil
}

// Counts reports how many rows a slot holds per table.
func (r *DatasetRepository) Counts(ctx context.Context, slot int) (*models.DatasetCounts, error) {
	const query = `SELECT m.slot,
	(SELECT COUNT(*) FROM dataset_classrooms WHERE slot = m.slot) AS classrooms,
	(SELECT COUNT(*) FROM dataset_courses WHERE slot = m.slot) AS courses,
	(SELECT COUNT(*) FROM dataset_enrollments WHERE slot = m.slot) AS enrollments,
	(SELECT COUNT(*) FROM dataset_students WHERE slot = m.slot) AS students,
	m.saved_at
FROM dataset_meta m WHERE m.slot = $1`
	var counts models.DatasetCounts
	if err := r.db.GetContext(ctx, &counts, query, slot); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("dataset slot %d is empty", slot))
		}
		return nil, fmt.Errorf("count dataset slot: %w", err)
	}
	return &counts, nil
}

func (r *DatasetRepository) deleteRows(ctx context.Context, exec sqlx.ExtContext, slot int) error {
	for _, table := range datasetTables {
		if _, err := exec.ExecContext(ctx, "DELETE FROM "+table+" WHERE slot = $1", slot); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}
