package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/exam-scheduler-api/pkg/errors"
)

func newDatasetRepoMock(t *testing.T) (*DatasetRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewDatasetRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func expectDatasetDeletes(mock sqlmock.Sqlmock, slot int) {
	for _, table := range datasetTables {
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM " + table + " WHERE slot = $1")).
			WithArgs(slot).
			WillReturnResult(sqlmock.NewResult(0, 3))
	}
}

func TestDatasetRepositoryReplace(t *testing.T) {
	repo, mock := newDatasetRepoMock(t)
	duration := 90

	expectDatasetDeletes(mock, 2)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO dataset_meta (slot, saved_at) VALUES ($1, NOW())")).
		WithArgs(2).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO dataset_classrooms (slot, code, capacity) VALUES")).
		WithArgs(2, "R1", 10, 2, "R2", 5).
		WillReturnResult(sqlmock.NewResult(2, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO dataset_courses (slot, code, duration) VALUES")).
		WithArgs(2, "A", 90).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO dataset_enrollments (slot, course_code, student_id) VALUES")).
		WithArgs(2, "A", "s1").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Replace(context.Background(), nil, &models.DatasetSnapshot{
		Slot:        2,
		Classrooms:  []models.DatasetClassroom{{Code: "R1", Capacity: 10}, {Code: "R2", Capacity: 5}},
		Courses:     []models.DatasetCourse{{Code: "A", Duration: &duration}},
		Enrollments: []models.DatasetEnrollment{{CourseCode: "A", StudentID: "s1"}},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatasetRepositoryLoad(t *testing.T) {
	repo, mock := newDatasetRepoMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM dataset_meta WHERE slot = $1)")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT slot, code, capacity FROM dataset_classrooms")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"slot", "code", "capacity"}).AddRow(1, "R1", 10))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT slot, code, duration FROM dataset_courses")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"slot", "code", "duration"}).AddRow(1, "A", nil).AddRow(1, "B", 120))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT slot, course_code, student_id FROM dataset_enrollments")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"slot", "course_code", "student_id"}).AddRow(1, "A", "s1").AddRow(1, "B", "s1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT slot, student_id FROM dataset_students")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"slot", "student_id"}))

	snapshot, err := repo.Load(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, snapshot.Courses, 2)
	assert.Nil(t, snapshot.Courses[0].Duration)
	require.NotNil(t, snapshot.Courses[1].Duration)
	assert.Equal(t, 120, *snapshot.Courses[1].Duration)
	assert.Len(t, snapshot.Enrollments, 2)
	assert.Empty(t, snapshot.Students)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatasetRepositoryLoadEmptySlot(t *testing.T) {
	repo, mock := newDatasetRepoMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM dataset_meta WHERE slot = $1)")).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := repo.Load(context.Background(), 3)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatasetRepositoryClear(t *testing.T) {
	repo, mock := newDatasetRepoMock(t)
	expectDatasetDeletes(mock, 1)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM dataset_meta WHERE slot = $1")).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Clear(context.Background(), nil, 1))

	expectDatasetDeletes(mock, 4)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM dataset_meta WHERE slot = $1")).
		WithArgs(4).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.Clear(context.Background(), nil, 4)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatasetRepositoryCounts(t *testing.T) {
	repo, mock := newDatasetRepoMock(t)
	saved := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM dataset_meta m WHERE m.slot = $1")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"slot", "classrooms", "courses", "enrollments", "students", "saved_at"}).
			AddRow(1, 2, 3, 40, 25, saved))

	counts, err := repo.Counts(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 40, counts.Enrollments)
	require.NotNil(t, counts.SavedAt)
	assert.True(t, saved.Equal(*counts.SavedAt))

	mock.ExpectQuery(regexp.QuoteMeta("FROM dataset_meta m WHERE m.slot = $1")).
		WithArgs(9).
		WillReturnRows(sqlmock.NewRows([]string{"slot", "classrooms", "courses", "enrollments", "students", "saved_at"}))
	_, err = repo.Counts(context.Background(), 9)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
