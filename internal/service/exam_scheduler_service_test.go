package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-scheduler-api/internal/dto"
	"github.com/noah-isme/exam-scheduler-api/internal/models"
	"github.com/noah-isme/exam-scheduler-api/internal/scheduler"
	appErrors "github.com/noah-isme/exam-scheduler-api/pkg/errors"
	"github.com/noah-isme/exam-scheduler-api/pkg/jobs"
)

type txProviderMock struct {
	db *sqlx.DB
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlx.NewDb(db, "sqlmock")}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

type scheduleStoreStub struct {
	mu          sync.Mutex
	schedules   []models.ExamSchedule
	assignments []models.ExamAssignment
	seats       []models.ExamSeat
}

func (s *scheduleStoreStub) Create(_ context.Context, _ sqlx.ExtContext, schedule *models.ExamSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	schedule.ID = fmt.Sprintf("sch-%d", len(s.schedules)+1)
	schedule.Status = models.ExamScheduleStatusDraft
	s.schedules = append(s.schedules, *schedule)
	return nil
}

func (s *scheduleStoreStub) InsertAssignments(_ context.Context, _ sqlx.ExtContext, assignments []models.ExamAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments = append(s.assignments, assignments...)
	return nil
}

func (s *scheduleStoreStub) InsertSeats(_ context.Context, _ sqlx.ExtContext, seats []models.ExamSeat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seats = append(s.seats, seats...)
	return nil
}

func (s *scheduleStoreStub) FindByID(_ context.Context, id string) (*models.ExamSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.schedules {
		if s.schedules[i].ID == id {
			schedule := s.schedules[i]
			return &schedule, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "exam schedule not found")
}

func (s *scheduleStoreStub) List(_ context.Context, limit, offset int) ([]models.ExamSchedule, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if offset >= len(s.schedules) {
		return nil, len(s.schedules), nil
	}
	end := offset + limit
	if end > len(s.schedules) {
		end = len(s.schedules)
	}
	return append([]models.ExamSchedule(nil), s.schedules[offset:end]...), len(s.schedules), nil
}

func (s *scheduleStoreStub) ListAssignments(_ context.Context, scheduleID string) ([]models.ExamAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ExamAssignment
	for _, a := range s.assignments {
		if a.ScheduleID == scheduleID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *scheduleStoreStub) ListSeats(_ context.Context, scheduleID string) ([]models.ExamSeat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ExamSeat
	for _, seat := range s.seats {
		if seat.ScheduleID == scheduleID {
			out = append(out, seat)
		}
	}
	return out, nil
}

func (s *scheduleStoreStub) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.schedules {
		if s.schedules[i].ID == id {
			s.schedules = append(s.schedules[:i], s.schedules[i+1:]...)
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrNotFound, "exam schedule not found")
}

type datasetSourceStub struct {
	input *dto.DatasetInput
	err   error
}

func (d datasetSourceStub) Input(_ context.Context, _ int) (*dto.DatasetInput, error) {
	return d.input, d.err
}

func jobsJob(id string, plan *solvePlan) jobs.Job[*solvePlan] {
	return jobs.Job[*solvePlan]{ID: id, Payload: plan}
}

func threeCourseDataset() *dto.DatasetInput {
	return &dto.DatasetInput{
		Classrooms: []dto.ClassroomInput{{Code: "R1", Capacity: 10}},
		Courses: []dto.CourseInput{
			{Code: "A", Students: []string{"s1", "s2"}},
			{Code: "B", Students: []string{"s2", "s3"}},
			{Code: "C", Students: []string{"s4"}},
		},
	}
}

func oneDayOptions(slots int) dto.SolveOptions {
	return dto.SolveOptions{NumDays: 1, SlotsPerDay: slots, SlotMinutes: 60, TimeLimitSeconds: 5, Seed: 7}
}

func newExamSchedulerForTest(t *testing.T, cache *CacheService, store examScheduleStore, tx txProvider, datasets datasetSource) *ExamSchedulerService {
	t.Helper()
	return NewExamSchedulerService(nil, datasets, store, tx, cache, NewMetricsService(), ExamSchedulerConfig{
		Defaults:  scheduler.DefaultParams(),
		TimeLimit: 5 * time.Second,
		Workers:   1,
		QueueSize: 4,
		JobTTL:    time.Minute,
	}, nil)
}

func TestExamSchedulerSolveSeparatesConflictingCourses(t *testing.T) {
	svc := newExamSchedulerForTest(t, nil, nil, nil, nil)

	resp, err := svc.Solve(context.Background(), dto.SolveRequest{Dataset: threeCourseDataset(), Options: oneDayOptions(4)})
	require.NoError(t, err)
	require.True(t, resp.Success, resp.Message)
	assert.Equal(t, string(scheduler.OutcomeSolved), resp.Outcome)
	require.Len(t, resp.Assignments, 3)
	assert.Len(t, resp.Seats, 5)
	assert.Equal(t, 4, resp.Stats.EnrolledStudents)
	assert.NotEmpty(t, resp.Fingerprint)
	assert.False(t, resp.Cached)

	placed := make(map[string]dto.ExamAssignmentView)
	for _, a := range resp.Assignments {
		placed[a.CourseCode] = a
		assert.Equal(t, []string{"R1"}, a.Rooms)
	}
	gap := placed["A"].StartSlot - placed["B"].StartSlot
	assert.True(t, gap >= 2 || gap <= -2, "conflicting exams must not touch")
	assert.NoError(t, OutcomeError(resp.Outcome, resp.Message))
}

func TestExamSchedulerSolveReportsExhaustedCalendar(t *testing.T) {
	svc := newExamSchedulerForTest(t, nil, nil, nil, nil)

	resp, err := svc.Solve(context.Background(), dto.SolveRequest{Dataset: threeCourseDataset(), Options: oneDayOptions(2)})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, string(scheduler.OutcomeExhausted), resp.Outcome)
	assert.Empty(t, resp.Assignments)

	outcomeErr := appErrors.FromError(OutcomeError(resp.Outcome, resp.Message))
	assert.Equal(t, appErrors.ErrInfeasible.Code, outcomeErr.Code)
}

func TestExamSchedulerSolveRetriesSumIterations(t *testing.T) {
	svc := newExamSchedulerForTest(t, nil, nil, nil, nil)
	opts := oneDayOptions(2)
	opts.Retries = 2

	single, err := svc.Solve(context.Background(), dto.SolveRequest{Dataset: threeCourseDataset(), Options: oneDayOptions(2)})
	require.NoError(t, err)
	retried, err := svc.Solve(context.Background(), dto.SolveRequest{Dataset: threeCourseDataset(), Options: opts})
	require.NoError(t, err)
	assert.Equal(t, string(scheduler.OutcomeExhausted), retried.Outcome)
	assert.Greater(t, retried.Stats.Iterations, single.Stats.Iterations)
}

func TestExamSchedulerSolveValidation(t *testing.T) {
	svc := newExamSchedulerForTest(t, nil, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.Solve(ctx, dto.SolveRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Solve(ctx, dto.SolveRequest{Dataset: &dto.DatasetInput{}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	dup := threeCourseDataset()
	dup.Classrooms = append(dup.Classrooms, dto.ClassroomInput{Code: "R1", Capacity: 5})
	_, err = svc.Solve(ctx, dto.SolveRequest{Dataset: dup, Options: oneDayOptions(4)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Equal(t, "duplicate classroom code R1", appErrors.FromError(err).Message)

	tooMany := oneDayOptions(4)
	tooMany.Retries = 6
	_, err = svc.Solve(ctx, dto.SolveRequest{Dataset: threeCourseDataset(), Options: tooMany})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Solve(ctx, dto.SolveRequest{Dataset: threeCourseDataset(), Persist: true})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)

	slot := 3
	_, err = svc.Solve(ctx, dto.SolveRequest{DatasetSlot: &slot})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestExamSchedulerSolveNoCourses(t *testing.T) {
	svc := newExamSchedulerForTest(t, nil, nil, nil, nil)
	input := threeCourseDataset()
	input.Courses = nil

	resp, err := svc.Solve(context.Background(), dto.SolveRequest{Dataset: input})
	require.NoError(t, err)
	assert.Equal(t, string(scheduler.OutcomeNoData), resp.Outcome)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(OutcomeError(resp.Outcome, resp.Message)).Code)
}

func TestExamSchedulerSolveUsesResultCache(t *testing.T) {
	metrics := NewMetricsService()
	cache := NewCacheService(newMemoryCacheRepo(), metrics, time.Minute, nil, true)
	svc := newExamSchedulerForTest(t, cache, nil, nil, nil)
	ctx := context.Background()

	first, err := svc.Solve(ctx, dto.SolveRequest{Dataset: threeCourseDataset(), Options: oneDayOptions(4)})
	require.NoError(t, err)
	assert.False(t, first.Cached)

	opts := oneDayOptions(4)
	opts.Seed = 99
	second, err := svc.Solve(ctx, dto.SolveRequest{Dataset: threeCourseDataset(), Options: opts})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.Equal(t, first.Assignments, second.Assignments)

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.CacheHits)
}

func TestExamSchedulerSolveFromDatasetSlotAndPersist(t *testing.T) {
	store := &scheduleStoreStub{}
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	svc := newExamSchedulerForTest(t, nil, store, tx, datasetSourceStub{input: threeCourseDataset()})

	slot := 2
	resp, err := svc.Solve(context.Background(), dto.SolveRequest{DatasetSlot: &slot, Options: oneDayOptions(4), Persist: true})
	require.NoError(t, err)
	require.True(t, resp.Success)
	assert.Equal(t, "sch-1", resp.ScheduleID)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, store.schedules, 1)
	assert.Equal(t, &slot, store.schedules[0].DatasetSlot)
	assert.Len(t, store.assignments, 3)
	assert.Len(t, store.seats, 5)

	detail, err := svc.GetSchedule(context.Background(), "sch-1")
	require.NoError(t, err)
	assert.Len(t, detail.Assignments, 3)
	assert.Len(t, detail.Seats, 5)

	items, page, err := svc.ListSchedules(context.Background(), dto.ExamScheduleQuery{})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 1, page.TotalCount)
	assert.Equal(t, 20, page.PageSize)

	require.NoError(t, svc.DeleteSchedule(context.Background(), "sch-1"))
	_, err = svc.GetSchedule(context.Background(), "sch-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExamSchedulerSolveBusy(t *testing.T) {
	svc := newExamSchedulerForTest(t, nil, nil, nil, nil)
	svc.slots <- struct{}{}
	defer func() { <-svc.slots }()

	_, err := svc.Solve(context.Background(), dto.SolveRequest{Dataset: threeCourseDataset()})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSolverBusy.Code, appErrors.FromError(err).Code)
}

func TestExamSchedulerJobRunsToCompletion(t *testing.T) {
	svc := newExamSchedulerForTest(t, nil, nil, nil, nil)
	svc.Start(context.Background())
	defer svc.Shutdown()

	job, err := svc.Submit(context.Background(), dto.SolveRequest{Dataset: threeCourseDataset(), Options: oneDayOptions(4)})
	require.NoError(t, err)
	assert.Equal(t, dto.SolveJobQueued, job.Status)

	require.Eventually(t, func() bool {
		status, err := svc.Status(job.JobID)
		return err == nil && status.Status.Finished()
	}, 5*time.Second, 10*time.Millisecond)

	status, err := svc.Status(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, dto.SolveJobDone, status.Status)
	require.NotNil(t, status.Result)
	assert.True(t, status.Result.Success)

	detail, err := svc.JobSchedule(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, job.JobID, detail.Schedule.ID)
	assert.Len(t, detail.Assignments, 3)

	_, err = svc.Stop(job.JobID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestExamSchedulerStopBeforeStartCancels(t *testing.T) {
	svc := newExamSchedulerForTest(t, nil, nil, nil, nil)
	ctx := context.Background()

	plan, err := svc.plan(ctx, dto.SolveRequest{Dataset: threeCourseDataset(), Options: oneDayOptions(4)})
	require.NoError(t, err)
	svc.jobs["job-1"] = &jobState{id: "job-1", status: dto.SolveJobQueued, submittedAt: time.Now()}

	stopped, err := svc.Stop("job-1")
	require.NoError(t, err)
	assert.Equal(t, dto.SolveJobStopping, stopped.Status)

	require.NoError(t, svc.runJob(ctx, jobsJob("job-1", plan)))
	status, err := svc.Status("job-1")
	require.NoError(t, err)
	assert.Equal(t, dto.SolveJobDone, status.Status)
	assert.Equal(t, string(scheduler.OutcomeCancelled), status.Result.Outcome)

	_, err = svc.JobSchedule("job-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestExamSchedulerJobLookupAndSweep(t *testing.T) {
	svc := newExamSchedulerForTest(t, nil, nil, nil, nil)
	_, err := svc.Status("missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.Stop("missing")
	require.Error(t, err)

	old := time.Now().Add(-2 * time.Minute)
	svc.jobs["old"] = &jobState{id: "old", status: dto.SolveJobDone, finishedAt: &old}
	_, err = svc.Status("old")
	require.Error(t, err)
	assert.Empty(t, svc.jobs)
}

func TestOutcomeErrorMapping(t *testing.T) {
	cases := map[scheduler.Outcome]*appErrors.Error{
		scheduler.OutcomeInfeasibleCapacity: appErrors.ErrInfeasible,
		scheduler.OutcomeTimeout:            appErrors.ErrSolveTimeout,
		scheduler.OutcomeIterationLimit:     appErrors.ErrSolveTimeout,
		scheduler.OutcomeCancelled:          appErrors.ErrSolveCancelled,
		scheduler.OutcomeBusy:               appErrors.ErrSolverBusy,
		scheduler.OutcomeInternalError:      appErrors.ErrInternal,
	}
	for outcome, want := range cases {
		got := appErrors.FromError(OutcomeError(string(outcome), "msg"))
		assert.Equal(t, want.Code, got.Code, string(outcome))
		assert.Equal(t, "msg", got.Message)
	}
}
