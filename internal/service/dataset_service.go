package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-scheduler-api/internal/dto"
	"github.com/noah-isme/exam-scheduler-api/internal/models"
	"github.com/noah-isme/exam-scheduler-api/internal/scheduler"
	appErrors "github.com/noah-isme/exam-scheduler-api/pkg/errors"
)

const datasetCachePrefix = "dataset:"

type datasetStore interface {
	Replace(ctx context.Context, exec sqlx.ExtContext, snapshot *models.DatasetSnapshot) error
	Load(ctx context.Context, slot int) (*models.DatasetSnapshot, error)
	Clear(ctx context.Context, exec sqlx.ExtContext, slot int) error
	Counts(ctx context.Context, slot int) (*models.DatasetCounts, error)
}

// DatasetService manages numbered dataset snapshot slots.
type DatasetService struct {
	repo      datasetStore
	tx        txProvider
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDatasetService constructs the service.
func NewDatasetService(repo datasetStore, tx txProvider, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *DatasetService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DatasetService{repo: repo, tx: tx, cache: cache, validator: validate, logger: logger}
}

func (s *DatasetService) checkSlot(slot int) error {
	if err := s.validator.Var(slot, "min=1,max=99"); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "slot must be between 1 and 99")
	}
	return nil
}

func datasetCacheKey(slot int) string {
	return fmt.Sprintf("%s%d", datasetCachePrefix, slot)
}

// Save replaces the content of slot and returns the stored counts.
func (s *DatasetService) Save(ctx context.Context, slot int, input dto.DatasetInput) (counts *models.DatasetCounts, err error) {
	if err := s.checkSlot(slot); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid dataset payload")
	}
	if err := checkClassroomCodes(input); err != nil {
		return nil, err
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin dataset transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = s.repo.Replace(ctx, tx, snapshotFromInput(slot, input)); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit dataset transaction: %w", err)
	}
	s.cache.Invalidate(ctx, datasetCacheKey(slot))
	s.logger.Info("dataset snapshot saved", zap.Int("slot", slot))

	return s.repo.Counts(ctx, slot)
}

// Input loads slot as solve input.
func (s *DatasetService) Input(ctx context.Context, slot int) (*dto.DatasetInput, error) {
	if err := s.checkSlot(slot); err != nil {
		return nil, err
	}
	var cached dto.DatasetInput
	if s.cache.Get(ctx, datasetCacheKey(slot), &cached) {
		return &cached, nil
	}
	snapshot, err := s.repo.Load(ctx, slot)
	if err != nil {
		return nil, err
	}
	input := inputFromSnapshot(snapshot)
	s.cache.Set(ctx, datasetCacheKey(slot), input)
	return &input, nil
}

// Get returns the content and counts of slot.
func (s *DatasetService) Get(ctx context.Context, slot int) (*dto.DatasetView, error) {
	if err := s.checkSlot(slot); err != nil {
		return nil, err
	}
	counts, err := s.repo.Counts(ctx, slot)
	if err != nil {
		return nil, err
	}
	input, err := s.Input(ctx, slot)
	if err != nil {
		return nil, err
	}
	return &dto.DatasetView{Slot: slot, Counts: *counts, Dataset: *input}, nil
}

// Clear empties slot.
func (s *DatasetService) Clear(ctx context.Context, slot int) (err error) {
	if err := s.checkSlot(slot); err != nil {
		return err
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin dataset transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = s.repo.Clear(ctx, tx, slot); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit dataset transaction: %w", err)
	}
	s.cache.Invalidate(ctx, datasetCacheKey(slot))
	s.logger.Info("dataset snapshot cleared", zap.Int("slot", slot))
	return nil
}

// Diff compares an incoming dataset with the content of slot.
func (s *DatasetService) Diff(ctx context.Context, slot int, incoming dto.DatasetInput) (*dto.DatasetDiff, error) {
	if err := s.validator.Struct(incoming); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid dataset payload")
	}
	if err := checkClassroomCodes(incoming); err != nil {
		return nil, err
	}
	stored, err := s.Input(ctx, slot)
	if err != nil {
		return nil, err
	}
	diff := DiffDatasets(buildInstance(*stored), buildInstance(incoming))
	diff.Slot = slot
	return diff, nil
}

// DiffDatasets reports what changes going from stored to incoming.
func DiffDatasets(stored, incoming instance) *dto.DatasetDiff {
	diff := &dto.DatasetDiff{}

	storedRooms := lo.SliceToMap(stored.rooms, func(r scheduler.Classroom) (string, int) { return r.Code, r.Capacity })
	incomingRooms := lo.SliceToMap(incoming.rooms, func(r scheduler.Classroom) (string, int) { return r.Code, r.Capacity })
	diff.AddedClassrooms, diff.RemovedClassrooms = sortedDifference(lo.Keys(incomingRooms), lo.Keys(storedRooms))
	for _, code := range sortedIntersect(lo.Keys(storedRooms), lo.Keys(incomingRooms)) {
		if storedRooms[code] != incomingRooms[code] {
			diff.CapacityChanges = append(diff.CapacityChanges, dto.CapacityChange{Code: code, Stored: storedRooms[code], Incoming: incomingRooms[code]})
		}
	}

	storedCourses := lo.KeyBy(stored.courses, func(c *scheduler.Course) string { return c.Code })
	incomingCourses := lo.KeyBy(incoming.courses, func(c *scheduler.Course) string { return c.Code })
	diff.AddedCourses, diff.RemovedCourses = sortedDifference(lo.Keys(incomingCourses), lo.Keys(storedCourses))
	for _, code := range sortedIntersect(lo.Keys(storedCourses), lo.Keys(incomingCourses)) {
		before, after := storedCourses[code], incomingCourses[code]
		if before.Duration != after.Duration {
			diff.DurationChanges = append(diff.DurationChanges, dto.DurationChange{Code: code, Stored: before.Duration, Incoming: after.Duration})
		}
		added, removed := sortedDifference(after.Students(), before.Students())
		if len(added) > 0 || len(removed) > 0 {
			diff.RosterChanges = append(diff.RosterChanges, dto.RosterChange{Code: code, Added: added, Removed: removed})
		}
	}

	diff.AddedStudents, diff.RemovedStudents = sortedDifference(incoming.students, stored.students)

	diff.Identical = len(diff.AddedClassrooms)+len(diff.RemovedClassrooms)+len(diff.CapacityChanges)+
		len(diff.AddedCourses)+len(diff.RemovedCourses)+len(diff.DurationChanges)+len(diff.RosterChanges)+
		len(diff.AddedStudents)+len(diff.RemovedStudents) == 0
	return diff
}

// sortedDifference returns the sorted elements only in a and only in b.
func sortedDifference(a, b []string) ([]string, []string) {
	onlyA, onlyB := lo.Difference(a, b)
	sort.Strings(onlyA)
	sort.Strings(onlyB)
	return onlyA, onlyB
}

func sortedIntersect(a, b []string) []string {
	out := lo.Intersect(a, b)
	sort.Strings(out)
	return out
}
