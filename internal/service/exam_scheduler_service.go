package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-scheduler-api/internal/dto"
	"github.com/noah-isme/exam-scheduler-api/internal/ingest"
	"github.com/noah-isme/exam-scheduler-api/internal/models"
	"github.com/noah-isme/exam-scheduler-api/internal/scheduler"
	appErrors "github.com/noah-isme/exam-scheduler-api/pkg/errors"
	"github.com/noah-isme/exam-scheduler-api/pkg/jobs"
)

const solveCachePrefix = "solve:"

type examScheduleStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, schedule *models.ExamSchedule) error
	InsertAssignments(ctx context.Context, exec sqlx.ExtContext, assignments []models.ExamAssignment) error
	InsertSeats(ctx context.Context, exec sqlx.ExtContext, seats []models.ExamSeat) error
	FindByID(ctx context.Context, id string) (*models.ExamSchedule, error)
	List(ctx context.Context, limit, offset int) ([]models.ExamSchedule, int, error)
	ListAssignments(ctx context.Context, scheduleID string) ([]models.ExamAssignment, error)
	ListSeats(ctx context.Context, scheduleID string) ([]models.ExamSeat, error)
	Delete(ctx context.Context, id string) error
}

type datasetSource interface {
	Input(ctx context.Context, slot int) (*dto.DatasetInput, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// ExamSchedulerConfig holds calendar defaults and worker settings.
type ExamSchedulerConfig struct {
	Defaults  scheduler.Params
	TimeLimit time.Duration
	// Workers bounds concurrent synchronous solves and sizes the job pool.
	Workers   int
	QueueSize int
	JobTTL    time.Duration
}

// ExamSchedulerService runs exam solves synchronously or as background jobs.
type ExamSchedulerService struct {
	validator *validator.Validate
	datasets  datasetSource
	schedules examScheduleStore
	tx        txProvider
	cache     *CacheService
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       ExamSchedulerConfig

	slots chan struct{}
	queue *jobs.Queue[*solvePlan]

	jobsMu sync.Mutex
	jobs   map[string]*jobState
	now    func() time.Time
}

// solvePlan is a validated request ready to run.
type solvePlan struct {
	inst        instance
	params      scheduler.Params
	timeLimit   time.Duration
	fingerprint string
	persist     bool
	retries     int
}

// NewExamSchedulerService wires the service. datasets, schedules and tx may be
// nil when persistence is disabled.
func NewExamSchedulerService(
	validate *validator.Validate,
	datasets datasetSource,
	schedules examScheduleStore,
	tx txProvider,
	cache *CacheService,
	metrics *MetricsService,
	cfg ExamSchedulerConfig,
	logger *zap.Logger,
) *ExamSchedulerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Defaults.NumDays == 0 {
		cfg.Defaults = scheduler.DefaultParams()
	}
	if cfg.TimeLimit <= 0 {
		cfg.TimeLimit = 300 * time.Second
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 30 * time.Minute
	}
	s := &ExamSchedulerService{
		validator: validate,
		datasets:  datasets,
		schedules: schedules,
		tx:        tx,
		cache:     cache,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
		slots:     make(chan struct{}, cfg.Workers),
		jobs:      make(map[string]*jobState),
		now:       time.Now,
	}
	s.queue = jobs.NewQueue[*solvePlan]("exam-solve", s.runJob, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.QueueSize,
		Logger:     logger,
	})
	return s
}

// Start launches the background job workers.
func (s *ExamSchedulerService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Shutdown stops running jobs and waits for workers to exit.
func (s *ExamSchedulerService) Shutdown() {
	s.jobsMu.Lock()
	for _, state := range s.jobs {
		if state.engine != nil && !state.status.Finished() {
			state.engine.RequestStop()
		}
	}
	s.jobsMu.Unlock()
	s.queue.Stop()
}

// Solve runs a solve in the caller's goroutine. Non-success outcomes are
// reported in the response, not as errors; see OutcomeError.
func (s *ExamSchedulerService) Solve(ctx context.Context, req dto.SolveRequest) (*dto.SolveResponse, error) {
	plan, err := s.plan(ctx, req)
	if err != nil {
		return nil, err
	}

	select {
	case s.slots <- struct{}{}:
		defer func() { <-s.slots }()
	default:
		return nil, appErrors.Clone(appErrors.ErrSolverBusy, "all solver workers are busy; submit a job instead")
	}

	return s.execute(ctx, plan, nil)
}

func (s *ExamSchedulerService) plan(ctx context.Context, req dto.SolveRequest) (*solvePlan, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid solve payload")
	}
	if req.Persist && (s.schedules == nil || s.tx == nil) {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "schedule persistence is disabled")
	}

	var input dto.DatasetInput
	switch {
	case req.Dataset != nil:
		input = *req.Dataset
	case s.datasets == nil:
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "dataset snapshots are disabled")
	default:
		stored, err := s.datasets.Input(ctx, *req.DatasetSlot)
		if err != nil {
			return nil, err
		}
		input = *stored
	}
	if err := checkClassroomCodes(input); err != nil {
		return nil, err
	}

	params := s.cfg.Defaults
	opts := req.Options
	if opts.NumDays > 0 {
		params.NumDays = opts.NumDays
	}
	if opts.SlotsPerDay > 0 {
		params.SlotsPerDay = opts.SlotsPerDay
	}
	if opts.SlotMinutes > 0 {
		params.SlotDurationMinutes = opts.SlotMinutes
	}
	if opts.MaxIterations > 0 {
		params.MaxIterations = opts.MaxIterations
	}
	params.Shuffle = opts.Shuffle
	params.Seed = opts.Seed
	if err := params.Validate(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	timeLimit := s.cfg.TimeLimit
	if opts.TimeLimitSeconds > 0 {
		timeLimit = time.Duration(opts.TimeLimitSeconds) * time.Second
	}

	inst := buildInstance(input)
	inst.slot = req.DatasetSlot
	return &solvePlan{
		inst:        inst,
		params:      params,
		timeLimit:   timeLimit,
		fingerprint: fingerprint(inst, params),
		persist:     req.Persist,
		retries:     opts.Retries,
	}, nil
}

// execute serves from cache when possible, otherwise runs the engine with
// retries. onEngine is called with every engine before it starts.
func (s *ExamSchedulerService) execute(ctx context.Context, plan *solvePlan, onEngine func(*scheduler.Engine)) (*dto.SolveResponse, error) {
	var cached dto.SolveResponse
	if s.cache.Get(ctx, solveCachePrefix+plan.fingerprint, &cached) {
		cached.Cached = true
		if plan.persist && cached.Success {
			id, err := s.persist(ctx, plan, &cached, 0, 0)
			if err != nil {
				return nil, err
			}
			cached.ScheduleID = id
		}
		return &cached, nil
	}

	var (
		engine *scheduler.Engine
		result scheduler.Result
	)
	totalIterations := 0
	var totalElapsed time.Duration
	params := plan.params
	for attempt := 0; ; attempt++ {
		var err error
		engine, err = scheduler.NewEngine(plan.inst.courses, plan.inst.rooms, params, s.logger)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
		}
		if onEngine != nil {
			onEngine(engine)
		}
		s.metrics.SolveStarted()
		result = engine.Solve(ctx, plan.timeLimit)
		s.metrics.SolveFinished(result)
		totalIterations += result.Iterations
		totalElapsed += result.Elapsed

		if result.Success || !result.Outcome.Retryable() || attempt >= plan.retries || ctx.Err() != nil {
			break
		}
		s.logger.Info("retrying exam solve with a fresh shuffle",
			zap.String("outcome", string(result.Outcome)),
			zap.Int("attempt", attempt+1),
		)
		params.Shuffle = true
		params.Seed = 0
	}
	result.Iterations = totalIterations
	result.Elapsed = totalElapsed

	resp := s.buildResponse(plan, result, engine)
	if result.Success {
		assignments := engine.Assignments()
		seats := engine.StudentRooms()
		if violations := scheduler.Verify(plan.inst.courses, plan.inst.rooms, engine.Params(), assignments, seats); len(violations) > 0 {
			s.logger.Error("solver produced an invalid schedule",
				zap.String("fingerprint", plan.fingerprint),
				zap.Any("violations", violations),
			)
			return nil, appErrors.Clone(appErrors.ErrInternal, "solver produced an invalid schedule")
		}
	}

	if cacheableOutcome(result.Outcome) {
		s.cache.Set(ctx, solveCachePrefix+plan.fingerprint, resp)
	}

	if plan.persist && result.Success {
		id, err := s.persist(ctx, plan, resp, result.Iterations, result.Elapsed)
		if err != nil {
			return nil, err
		}
		resp.ScheduleID = id
	}
	return resp, nil
}

// cacheableOutcome lists outcomes that depend only on the fingerprinted input.
func cacheableOutcome(o scheduler.Outcome) bool {
	switch o {
	case scheduler.OutcomeSolved, scheduler.OutcomeNoData, scheduler.OutcomeInfeasibleCapacity:
		return true
	}
	return false
}

func (s *ExamSchedulerService) buildResponse(plan *solvePlan, result scheduler.Result, engine *scheduler.Engine) *dto.SolveResponse {
	inst := plan.inst
	summary := ingest.Summarize(inst.rooms, inst.courses, inst.students)
	resp := &dto.SolveResponse{
		Success:     result.Success,
		Outcome:     string(result.Outcome),
		Message:     result.Message,
		Reasons:     result.Reasons,
		Fingerprint: plan.fingerprint,
		Stats: dto.SolveStats{
			Courses:              summary.Courses,
			Classrooms:           summary.Classrooms,
			EnrolledStudents:     summary.EnrolledStudents,
			ListedStudents:       summary.ListedStudents,
			StudentsWithoutExams: summary.StudentsWithoutExams,
			UnlistedStudents:     summary.UnlistedStudents,
			TotalSeats:           summary.TotalSeats,
			ConflictDensity:      scheduler.BuildConflictGraph(inst.courses).Density(),
			Iterations:           result.Iterations,
			ElapsedMs:            result.Elapsed.Milliseconds(),
		},
	}
	if !result.Success || engine == nil {
		return resp
	}

	enrollment := make(map[string]int, len(inst.courses))
	for _, c := range inst.courses {
		enrollment[c.Code] = c.Enrollment()
	}
	for _, a := range engine.Assignments() {
		resp.Assignments = append(resp.Assignments, dto.ExamAssignmentView{
			CourseCode:  a.CourseCode,
			Day:         a.Day,
			StartSlot:   a.StartSlot,
			EndSlot:     a.EndSlot(),
			SlotsNeeded: a.SlotsNeeded,
			Rooms:       a.Rooms,
			Enrollment:  enrollment[a.CourseCode],
		})
	}
	sortAssignmentViews(resp.Assignments)

	for key, room := range engine.StudentRooms() {
		resp.Seats = append(resp.Seats, dto.SeatView{StudentID: key.StudentID, CourseCode: key.CourseCode, RoomCode: room})
	}
	sort.Slice(resp.Seats, func(i, j int) bool {
		if resp.Seats[i].StudentID != resp.Seats[j].StudentID {
			return resp.Seats[i].StudentID < resp.Seats[j].StudentID
		}
		return resp.Seats[i].CourseCode < resp.Seats[j].CourseCode
	})
	return resp
}

func sortAssignmentViews(views []dto.ExamAssignmentView) {
	sort.Slice(views, func(i, j int) bool {
		a, b := views[i], views[j]
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		if a.StartSlot != b.StartSlot {
			return a.StartSlot < b.StartSlot
		}
		return a.CourseCode < b.CourseCode
	})
}

func (s *ExamSchedulerService) persist(ctx context.Context, plan *solvePlan, resp *dto.SolveResponse, iterations int, elapsed time.Duration) (id string, err error) {
	if s.schedules == nil || s.tx == nil {
		return "", appErrors.Clone(appErrors.ErrPreconditionFailed, "schedule persistence is disabled")
	}
	meta, err := json.Marshal(map[string]any{
		"iterations": iterations,
		"elapsedMs":  elapsed.Milliseconds(),
		"stats":      resp.Stats,
	})
	if err != nil {
		return "", fmt.Errorf("marshal schedule meta: %w", err)
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin schedule transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	record := &models.ExamSchedule{
		DatasetSlot: plan.inst.slot,
		NumDays:     plan.params.NumDays,
		SlotsPerDay: plan.params.SlotsPerDay,
		SlotMinutes: plan.params.SlotDurationMinutes,
		Fingerprint: plan.fingerprint,
		Meta:        types.JSONText(meta),
	}
	if err = s.schedules.Create(ctx, tx, record); err != nil {
		return "", err
	}

	assignments := make([]models.ExamAssignment, 0, len(resp.Assignments))
	for _, a := range resp.Assignments {
		assignments = append(assignments, models.ExamAssignment{
			ScheduleID:  record.ID,
			CourseCode:  a.CourseCode,
			Day:         a.Day,
			StartSlot:   a.StartSlot,
			SlotsNeeded: a.SlotsNeeded,
			Rooms:       pq.StringArray(a.Rooms),
			Enrollment:  a.Enrollment,
		})
	}
	if err = s.schedules.InsertAssignments(ctx, tx, assignments); err != nil {
		return "", err
	}

	seats := make([]models.ExamSeat, 0, len(resp.Seats))
	for _, seat := range resp.Seats {
		seats = append(seats, models.ExamSeat{ScheduleID: record.ID, StudentID: seat.StudentID, CourseCode: seat.CourseCode, RoomCode: seat.RoomCode})
	}
	if err = s.schedules.InsertSeats(ctx, tx, seats); err != nil {
		return "", err
	}

	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("commit schedule transaction: %w", err)
	}
	s.logger.Info("exam schedule stored", zap.String("schedule_id", record.ID), zap.Int("exams", len(assignments)))
	return record.ID, nil
}

// GetSchedule returns a stored schedule with its assignments and seats.
func (s *ExamSchedulerService) GetSchedule(ctx context.Context, id string) (*dto.ExamScheduleDetail, error) {
	if s.schedules == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "schedule persistence is disabled")
	}
	schedule, err := s.schedules.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	assignments, err := s.schedules.ListAssignments(ctx, id)
	if err != nil {
		return nil, err
	}
	seats, err := s.schedules.ListSeats(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &dto.ExamScheduleDetail{Schedule: *schedule}
	for _, a := range assignments {
		detail.Assignments = append(detail.Assignments, dto.ExamAssignmentView{
			CourseCode:  a.CourseCode,
			Day:         a.Day,
			StartSlot:   a.StartSlot,
			EndSlot:     a.StartSlot + a.SlotsNeeded,
			SlotsNeeded: a.SlotsNeeded,
			Rooms:       []string(a.Rooms),
			Enrollment:  a.Enrollment,
		})
	}
	for _, seat := range seats {
		detail.Seats = append(detail.Seats, dto.SeatView{StudentID: seat.StudentID, CourseCode: seat.CourseCode, RoomCode: seat.RoomCode})
	}
	return detail, nil
}

// ListSchedules pages through stored schedules, newest first.
func (s *ExamSchedulerService) ListSchedules(ctx context.Context, query dto.ExamScheduleQuery) ([]models.ExamSchedule, *models.Pagination, error) {
	if s.schedules == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "schedule persistence is disabled")
	}
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid pagination")
	}
	if query.Page == 0 {
		query.Page = 1
	}
	if query.PageSize == 0 {
		query.PageSize = 20
	}
	items, total, err := s.schedules.List(ctx, query.PageSize, (query.Page-1)*query.PageSize)
	if err != nil {
		return nil, nil, err
	}
	return items, &models.Pagination{Page: query.Page, PageSize: query.PageSize, TotalCount: total}, nil
}

// DeleteSchedule removes a stored schedule with its assignments and seats.
func (s *ExamSchedulerService) DeleteSchedule(ctx context.Context, id string) error {
	if s.schedules == nil {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "schedule persistence is disabled")
	}
	if err := s.schedules.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("exam schedule deleted", zap.String("schedule_id", id))
	return nil
}

// OutcomeError maps a non-success outcome to the error whose status an HTTP
// caller should see. It returns nil for solved results.
func OutcomeError(outcome string, message string) error {
	var base *appErrors.Error
	switch scheduler.Outcome(outcome) {
	case scheduler.OutcomeSolved:
		return nil
	case scheduler.OutcomeNoData:
		base = appErrors.ErrValidation
	case scheduler.OutcomeInfeasibleCapacity, scheduler.OutcomeExhausted:
		base = appErrors.ErrInfeasible
	case scheduler.OutcomeTimeout, scheduler.OutcomeIterationLimit:
		base = appErrors.ErrSolveTimeout
	case scheduler.OutcomeCancelled:
		base = appErrors.ErrSolveCancelled
	case scheduler.OutcomeBusy:
		base = appErrors.ErrSolverBusy
	default:
		base = appErrors.ErrInternal
	}
	return appErrors.Clone(base, message)
}
