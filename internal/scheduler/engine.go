package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Engine owns one dataset and runs the backtracking search over it.
// Only one Solve may run at a time; RequestStop is safe from any goroutine.
type Engine struct {
	courses []*Course
	rooms   []Classroom
	params  Params
	logger  *zap.Logger

	stop    atomic.Bool
	running atomic.Bool

	mu          sync.RWMutex
	assignments map[string]Assignment
	seats       map[SeatKey]string
}

// NewEngine validates the inputs and prepares an engine.
func NewEngine(courses []*Course, rooms []Classroom, params Params, logger *zap.Logger) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	seenCourses := make(map[string]struct{}, len(courses))
	for _, c := range courses {
		if c == nil || c.Code == "" {
			return nil, fmt.Errorf("course code is required")
		}
		if _, dup := seenCourses[c.Code]; dup {
			return nil, fmt.Errorf("duplicate course code %q", c.Code)
		}
		seenCourses[c.Code] = struct{}{}
	}
	seenRooms := make(map[string]struct{}, len(rooms))
	for _, r := range rooms {
		if r.Code == "" {
			return nil, fmt.Errorf("classroom code is required")
		}
		if r.Capacity < 0 {
			return nil, fmt.Errorf("classroom %q has negative capacity", r.Code)
		}
		if _, dup := seenRooms[r.Code]; dup {
			return nil, fmt.Errorf("duplicate classroom code %q", r.Code)
		}
		seenRooms[r.Code] = struct{}{}
	}
	return &Engine{
		courses: courses,
		rooms:   append([]Classroom(nil), rooms...),
		params:  params.withDefaults(),
		logger:  logger,
	}, nil
}

// RequestStop asks a running search to stop at its next poll. A request made
// while idle cancels the next solve.
func (e *Engine) RequestStop() {
	e.stop.Store(true)
}

// Running reports whether a solve is in progress.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Params returns the effective parameters.
func (e *Engine) Params() Params {
	return e.params
}

// Assignments returns a copy of the last successful placement, keyed by course code.
func (e *Engine) Assignments() map[string]Assignment {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return copyAssignments(e.assignments)
}

// StudentRooms returns a copy of the last successful seat map.
func (e *Engine) StudentRooms() map[SeatKey]string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[SeatKey]string, len(e.seats))
	for k, v := range e.seats {
		out[k] = v
	}
	return out
}

// Solve runs the search until it succeeds, exhausts the space, or hits a
// budget. timeLimit <= 0 means the deadline has already passed.
func (e *Engine) Solve(ctx context.Context, timeLimit time.Duration) (result Result) {
	if !e.running.CompareAndSwap(false, true) {
		return failure(OutcomeBusy, "a solve is already running on this engine")
	}
	defer func() {
		e.stop.Store(false)
		e.running.Store(false)
	}()
	if ctx == nil {
		ctx = context.Background()
	}

	e.mu.Lock()
	e.assignments = nil
	e.seats = nil
	e.mu.Unlock()

	start := time.Now()
	var s *search
	e.logger.Info("exam solve started",
		zap.Int("courses", len(e.courses)),
		zap.Int("classrooms", len(e.rooms)),
		zap.Int("days", e.params.NumDays),
		zap.Int("slots_per_day", e.params.SlotsPerDay),
		zap.Duration("time_limit", timeLimit),
	)
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("exam solve panicked", zap.Any("panic", r))
			result = failure(OutcomeInternalError, fmt.Sprintf("internal solver error: %v", r))
		}
		if s != nil {
			result.Iterations = s.calls
		}
		result.Elapsed = time.Since(start)
		e.logger.Info("exam solve finished",
			zap.String("outcome", string(result.Outcome)),
			zap.Int("iterations", result.Iterations),
			zap.Duration("elapsed", result.Elapsed),
		)
	}()

	if len(e.courses) == 0 {
		return failure(OutcomeNoData, "no courses to schedule")
	}

	check := CheckCapacity(e.courses, e.rooms, e.params)
	if !check.Feasible {
		return failure(OutcomeInfeasibleCapacity, "insufficient capacity: "+check.String())
	}

	seed := e.params.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	graph := BuildConflictGraph(e.courses)
	order := OrderCourses(e.courses, graph, e.params.Shuffle, rng)

	s = newSearch(ctx, &e.stop, start.Add(timeLimit), e.params, order, e.rooms, rng)
	if s.place(0) {
		assignments := copyAssignments(s.assignments)
		seats := DistributeStudents(e.courses, e.rooms, assignments)
		e.mu.Lock()
		e.assignments = assignments
		e.seats = seats
		e.mu.Unlock()
		return Result{Success: true, Outcome: OutcomeSolved, Message: fmt.Sprintf("scheduled %d exams", len(assignments))}
	}

	switch s.abort {
	case OutcomeTimeout:
		e.logger.Warn("exam solve timed out", zap.Int("iterations", s.calls))
		return failure(OutcomeTimeout, "time limit reached before a schedule was found")
	case OutcomeIterationLimit:
		e.logger.Warn("exam solve hit iteration limit", zap.Int("max_iterations", e.params.MaxIterations))
		return failure(OutcomeIterationLimit, fmt.Sprintf("iteration limit of %d reached before a schedule was found", e.params.MaxIterations))
	case OutcomeCancelled:
		e.logger.Warn("exam solve cancelled", zap.Int("iterations", s.calls))
		return failure(OutcomeCancelled, "solve cancelled")
	}
	return failure(OutcomeExhausted, "no schedule found for this calendar; try more days or slots per day, or a shuffled retry",
		Diagnose(e.courses, e.rooms, e.params, graph)...)
}

// --- Search state ---

type search struct {
	ctx      context.Context
	stop     *atomic.Bool
	deadline time.Time
	params   Params
	order    []*Course
	lengths  []int
	rooms    []Classroom
	rng      *rand.Rand

	agenda      studentAgenda
	ledger      *roomLedger
	assignments map[string]Assignment

	calls int
	abort Outcome
}

func newSearch(ctx context.Context, stop *atomic.Bool, deadline time.Time, params Params, order []*Course, rooms []Classroom, rng *rand.Rand) *search {
	lengths := make([]int, len(order))
	for i, c := range order {
		lengths[i] = SlotsNeeded(c, params.SlotDurationMinutes)
	}
	return &search{
		ctx:         ctx,
		stop:        stop,
		deadline:    deadline,
		params:      params,
		order:       order,
		lengths:     lengths,
		rooms:       rooms,
		rng:         rng,
		agenda:      newStudentAgenda(),
		ledger:      newRoomLedger(),
		assignments: make(map[string]Assignment, len(order)),
	}
}

func (s *search) place(index int) bool {
	if s.abort != "" {
		return false
	}
	if s.calls%s.params.PollEvery == 0 && s.interrupted() {
		return false
	}
	s.calls++
	if s.params.MaxIterations > 0 && s.calls > s.params.MaxIterations {
		s.abort = OutcomeIterationLimit
		return false
	}
	if index == len(s.order) {
		return true
	}

	course := s.order[index]
	length := s.lengths[index]
	for _, cand := range s.candidates(length) {
		if !s.agenda.legal(course, cand.Day, cand.Slot, length, s.params.SlotsPerDay) {
			continue
		}
		rooms := s.ledger.allocate(s.rooms, cand.Day, cand.Slot, length, course.Enrollment())
		if rooms == nil {
			continue
		}
		s.commit(course, cand.Day, cand.Slot, length, rooms)
		if s.place(index + 1) {
			return true
		}
		s.undo(course, cand.Day, cand.Slot, length, rooms)
		if s.abort != "" {
			return false
		}
	}
	return false
}

func (s *search) interrupted() bool {
	switch {
	case s.stop.Load():
		s.abort = OutcomeCancelled
	case s.ctx.Err() != nil:
		if errors.Is(s.ctx.Err(), context.DeadlineExceeded) {
			s.abort = OutcomeTimeout
		} else {
			s.abort = OutcomeCancelled
		}
	case !time.Now().Before(s.deadline):
		s.abort = OutcomeTimeout
	}
	return s.abort != ""
}

// candidates lists feasible start positions, least loaded first with random tie-break.
func (s *search) candidates(length int) []slotKey {
	type ranked struct {
		key  slotKey
		load int
		tie  int64
	}
	last := s.params.SlotsPerDay - length
	if last < 0 {
		return nil
	}
	list := make([]ranked, 0, s.params.NumDays*(last+1))
	for d := 0; d < s.params.NumDays; d++ {
		for slot := 0; slot <= last; slot++ {
			list = append(list, ranked{
				key:  slotKey{Day: d, Slot: slot},
				load: s.ledger.load(d, slot, length),
				tie:  s.rng.Int63(),
			})
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].load != list[j].load {
			return list[i].load < list[j].load
		}
		return list[i].tie < list[j].tie
	})
	out := make([]slotKey, len(list))
	for i, r := range list {
		out[i] = r.key
	}
	return out
}

func (s *search) commit(c *Course, day, start, length int, rooms []string) {
	s.assignments[c.Code] = Assignment{CourseCode: c.Code, Day: day, StartSlot: start, SlotsNeeded: length, Rooms: rooms}
	s.ledger.commit(rooms, day, start, length)
	s.agenda.add(c, day, start, length)
}

func (s *search) undo(c *Course, day, start, length int, rooms []string) {
	s.agenda.remove(c, day, start, length)
	s.ledger.release(rooms, day, start, length)
	delete(s.assignments, c.Code)
}

func copyAssignments(in map[string]Assignment) map[string]Assignment {
	out := make(map[string]Assignment, len(in))
	for k, v := range in {
		v.Rooms = append([]string(nil), v.Rooms...)
		out[k] = v
	}
	return out
}
