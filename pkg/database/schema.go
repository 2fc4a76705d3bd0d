package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema holds idempotent DDL for dataset snapshots and stored schedules.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS dataset_meta (
		slot INT PRIMARY KEY,
		saved_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS dataset_classrooms (
		slot INT NOT NULL,
		code TEXT NOT NULL,
		capacity INT NOT NULL,
		PRIMARY KEY (slot, code)
	)`,
	`CREATE TABLE IF NOT EXISTS dataset_courses (
		slot INT NOT NULL,
		code TEXT NOT NULL,
		duration INT,
		PRIMARY KEY (slot, code)
	)`,
	`CREATE TABLE IF NOT EXISTS dataset_enrollments (
		slot INT NOT NULL,
		course_code TEXT NOT NULL,
		student_id TEXT NOT NULL,
		PRIMARY KEY (slot, course_code, student_id)
	)`,
	`CREATE TABLE IF NOT EXISTS dataset_students (
		slot INT NOT NULL,
		student_id TEXT NOT NULL,
		PRIMARY KEY (slot, student_id)
	)`,
	`CREATE TABLE IF NOT EXISTS exam_schedules (
		id UUID PRIMARY KEY,
		dataset_slot INT,
		status TEXT NOT NULL,
		num_days INT NOT NULL,
		slots_per_day INT NOT NULL,
		slot_minutes INT NOT NULL,
		fingerprint TEXT NOT NULL,
		meta JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS exam_assignments (
		id UUID PRIMARY KEY,
		schedule_id UUID NOT NULL REFERENCES exam_schedules(id) ON DELETE CASCADE,
		course_code TEXT NOT NULL,
		day INT NOT NULL,
		start_slot INT NOT NULL,
		slots_needed INT NOT NULL,
		rooms TEXT[] NOT NULL,
		enrollment INT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS exam_seats (
		schedule_id UUID NOT NULL REFERENCES exam_schedules(id) ON DELETE CASCADE,
		student_id TEXT NOT NULL,
		course_code TEXT NOT NULL,
		room_code TEXT NOT NULL,
		PRIMARY KEY (schedule_id, student_id, course_code)
	)`,
}

// EnsureSchema creates missing tables.
func EnsureSchema(ctx context.Context, db sqlx.ExecerContext) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
