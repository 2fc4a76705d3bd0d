package service

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-scheduler-api/internal/dto"
	"github.com/noah-isme/exam-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/exam-scheduler-api/pkg/errors"
)

type datasetStoreStub struct {
	slots map[int]*models.DatasetSnapshot
	loads int
}

func newDatasetStoreStub() *datasetStoreStub {
	return &datasetStoreStub{slots: make(map[int]*models.DatasetSnapshot)}
}

func (d *datasetStoreStub) Replace(_ context.Context, _ sqlx.ExtContext, snapshot *models.DatasetSnapshot) error {
	d.slots[snapshot.Slot] = snapshot
	return nil
}

func (d *datasetStoreStub) Load(_ context.Context, slot int) (*models.DatasetSnapshot, error) {
	d.loads++
	snapshot, ok := d.slots[slot]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "dataset slot is empty")
	}
	return snapshot, nil
}

func (d *datasetStoreStub) Clear(_ context.Context, _ sqlx.ExtContext, slot int) error {
	if _, ok := d.slots[slot]; !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "dataset slot is empty")
	}
	delete(d.slots, slot)
	return nil
}

func (d *datasetStoreStub) Counts(_ context.Context, slot int) (*models.DatasetCounts, error) {
	snapshot, ok := d.slots[slot]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "dataset slot is empty")
	}
	return &models.DatasetCounts{
		Slot:        slot,
		Classrooms:  len(snapshot.Classrooms),
		Courses:     len(snapshot.Courses),
		Enrollments: len(snapshot.Enrollments),
		Students:    len(snapshot.Students),
	}, nil
}

func TestDatasetServiceSaveLoadClear(t *testing.T) {
	store := newDatasetStoreStub()
	tx, mock := newTxProviderMock(t)
	cacheRepo := newMemoryCacheRepo()
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	svc := NewDatasetService(store, tx, cache, nil, nil)
	ctx := context.Background()

	input := *threeCourseDataset()
	input.Courses = append(input.Courses, dto.CourseInput{Code: "A", Duration: 90, Students: []string{"s5"}})
	input.Students = []string{"s2", "s1", "s2"}

	mock.ExpectBegin()
	mock.ExpectCommit()
	counts, err := svc.Save(ctx, 4, input)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Classrooms)
	assert.Equal(t, 3, counts.Courses)
	assert.Equal(t, 6, counts.Enrollments)
	assert.Equal(t, 2, counts.Students)
	assert.Equal(t, []string{"dataset:4"}, cacheRepo.deleted)

	loaded, err := svc.Input(ctx, 4)
	require.NoError(t, err)
	require.Len(t, loaded.Courses, 3)
	assert.Equal(t, dto.CourseInput{Code: "A", Duration: 90, Students: []string{"s1", "s2", "s5"}}, loaded.Courses[0])
	assert.Equal(t, []string{"s1", "s2"}, loaded.Students)

	_, err = svc.Input(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 1, store.loads)

	view, err := svc.Get(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, view.Slot)
	assert.Equal(t, 3, view.Counts.Courses)

	mock.ExpectBegin()
	mock.ExpectCommit()
	require.NoError(t, svc.Clear(ctx, 4))
	require.NoError(t, mock.ExpectationsWereMet())

	_, err = svc.Input(ctx, 4)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestDatasetServiceRejectsBadSlots(t *testing.T) {
	svc := NewDatasetService(newDatasetStoreStub(), nil, nil, nil, nil)
	_, err := svc.Save(context.Background(), 0, *threeCourseDataset())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Input(context.Background(), 100)
	require.Error(t, err)

	_, err = svc.Save(context.Background(), 1, dto.DatasetInput{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestDatasetServiceRejectsDuplicateClassrooms(t *testing.T) {
	store := newDatasetStoreStub()
	svc := NewDatasetService(store, nil, nil, nil, nil)
	input := threeCourseDataset()
	input.Classrooms = append(input.Classrooms, dto.ClassroomInput{Code: " R1 ", Capacity: 99})

	_, err := svc.Save(context.Background(), 2, *input)
	require.Error(t, err)
	apiErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, apiErr.Code)
	assert.Equal(t, appErrors.ErrValidation.Status, apiErr.Status)
	assert.Equal(t, "duplicate classroom code R1", apiErr.Message)
	assert.Empty(t, store.slots)

	_, err = svc.Diff(context.Background(), 2, *input)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestDatasetServiceClearRollsBackMissingSlot(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	svc := NewDatasetService(newDatasetStoreStub(), tx, nil, nil, nil)

	mock.ExpectBegin()
	mock.ExpectRollback()
	err := svc.Clear(context.Background(), 9)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDatasetServiceDiff(t *testing.T) {
	store := newDatasetStoreStub()
	store.slots[1] = snapshotFromInput(1, *threeCourseDataset())
	svc := NewDatasetService(store, nil, nil, nil, nil)

	incoming := dto.DatasetInput{
		Classrooms: []dto.ClassroomInput{{Code: "R1", Capacity: 12}, {Code: "R2", Capacity: 5}},
		Courses: []dto.CourseInput{
			{Code: "A", Duration: 120, Students: []string{"s1", "s6"}},
			{Code: "B", Students: []string{"s2", "s3"}},
			{Code: "D", Students: []string{"s4"}},
		},
		Students: []string{"s1"},
	}
	diff, err := svc.Diff(context.Background(), 1, incoming)
	require.NoError(t, err)
	assert.False(t, diff.Identical)
	assert.Equal(t, 1, diff.Slot)
	assert.Equal(t, []string{"R2"}, diff.AddedClassrooms)
	assert.Empty(t, diff.RemovedClassrooms)
	assert.Equal(t, []dto.CapacityChange{{Code: "R1", Stored: 10, Incoming: 12}}, diff.CapacityChanges)
	assert.Equal(t, []string{"D"}, diff.AddedCourses)
	assert.Equal(t, []string{"C"}, diff.RemovedCourses)
	assert.Equal(t, []dto.DurationChange{{Code: "A", Stored: 0, Incoming: 120}}, diff.DurationChanges)
	assert.Equal(t, []dto.RosterChange{{Code: "A", Added: []string{"s6"}, Removed: []string{"s2"}}}, diff.RosterChanges)
	assert.Equal(t, []string{"s1"}, diff.AddedStudents)

	same, err := svc.Diff(context.Background(), 1, *threeCourseDataset())
	require.NoError(t, err)
	assert.True(t, same.Identical)
}
