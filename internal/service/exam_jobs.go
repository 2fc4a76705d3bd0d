package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-scheduler-api/internal/dto"
	"github.com/noah-isme/exam-scheduler-api/internal/scheduler"
	appErrors "github.com/noah-isme/exam-scheduler-api/pkg/errors"
	"github.com/noah-isme/exam-scheduler-api/pkg/jobs"
)

type jobState struct {
	id            string
	status        dto.SolveJobStatus
	submittedAt   time.Time
	startedAt     *time.Time
	finishedAt    *time.Time
	result        *dto.SolveResponse
	errMsg        string
	engine        *scheduler.Engine
	stopRequested bool
}

func (j *jobState) view() *dto.SolveJobResponse {
	return &dto.SolveJobResponse{
		JobID:       j.id,
		Status:      j.status,
		SubmittedAt: j.submittedAt,
		StartedAt:   j.startedAt,
		FinishedAt:  j.finishedAt,
		Result:      j.result,
		Error:       j.errMsg,
	}
}

// Submit validates the request and queues it for a background worker.
func (s *ExamSchedulerService) Submit(ctx context.Context, req dto.SolveRequest) (*dto.SolveJobResponse, error) {
	plan, err := s.plan(ctx, req)
	if err != nil {
		return nil, err
	}
	s.sweepJobs()

	state := &jobState{id: uuid.NewString(), status: dto.SolveJobQueued, submittedAt: s.now().UTC()}
	s.jobsMu.Lock()
	s.jobs[state.id] = state
	view := state.view()
	s.jobsMu.Unlock()

	if err := s.queue.Enqueue(jobs.Job[*solvePlan]{ID: state.id, Payload: plan}); err != nil {
		s.jobsMu.Lock()
		delete(s.jobs, state.id)
		s.jobsMu.Unlock()
		if errors.Is(err, jobs.ErrQueueFull) {
			return nil, appErrors.Clone(appErrors.ErrSolverBusy, "solve queue is full")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "solve queue unavailable")
	}
	s.logger.Info("exam solve job queued", zap.String("job_id", state.id), zap.String("fingerprint", plan.fingerprint))
	return view, nil
}

// Status reports the current state of a job.
func (s *ExamSchedulerService) Status(jobID string) (*dto.SolveJobResponse, error) {
	s.sweepJobs()
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	state, ok := s.jobs[jobID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "solve job not found")
	}
	return state.view(), nil
}

// Stop asks a queued or running job to stop. A running search notices the
// request within one poll interval; a queued job is cancelled when it starts.
func (s *ExamSchedulerService) Stop(jobID string) (*dto.SolveJobResponse, error) {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	state, ok := s.jobs[jobID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "solve job not found")
	}
	if state.status.Finished() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "solve job already finished")
	}
	state.stopRequested = true
	state.status = dto.SolveJobStopping
	if state.engine != nil {
		state.engine.RequestStop()
	}
	s.logger.Info("exam solve job stop requested", zap.String("job_id", jobID))
	return state.view(), nil
}

// JobSchedule returns the placement of a finished, successful job for export.
func (s *ExamSchedulerService) JobSchedule(jobID string) (*dto.ExamScheduleDetail, error) {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	state, ok := s.jobs[jobID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "solve job not found")
	}
	if state.result == nil || !state.result.Success || !state.status.Finished() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "solve job has no schedule")
	}
	detail := &dto.ExamScheduleDetail{Assignments: state.result.Assignments, Seats: state.result.Seats}
	detail.Schedule.ID = state.result.ScheduleID
	if detail.Schedule.ID == "" {
		detail.Schedule.ID = jobID
	}
	detail.Schedule.Fingerprint = state.result.Fingerprint
	return detail, nil
}

func (s *ExamSchedulerService) runJob(ctx context.Context, job jobs.Job[*solvePlan]) error {
	s.jobsMu.Lock()
	state, ok := s.jobs[job.ID]
	if ok {
		started := s.now().UTC()
		state.startedAt = &started
		if !state.stopRequested {
			state.status = dto.SolveJobRunning
		}
	}
	s.jobsMu.Unlock()
	if !ok {
		return nil
	}

	resp, err := s.execute(ctx, job.Payload, func(engine *scheduler.Engine) {
		s.jobsMu.Lock()
		defer s.jobsMu.Unlock()
		state.engine = engine
		if state.stopRequested {
			engine.RequestStop()
		}
	})

	finished := s.now().UTC()
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	state.engine = nil
	state.finishedAt = &finished
	if err != nil {
		state.status = dto.SolveJobFailed
		state.errMsg = appErrors.FromError(err).Message
		s.logger.Warn("exam solve job failed", zap.String("job_id", job.ID), zap.Error(err))
		return nil
	}
	state.status = dto.SolveJobDone
	state.result = resp
	s.logger.Info("exam solve job finished", zap.String("job_id", job.ID), zap.String("outcome", resp.Outcome))
	return nil
}

// sweepJobs forgets finished jobs older than the configured TTL.
func (s *ExamSchedulerService) sweepJobs() {
	cutoff := s.now().UTC().Add(-s.cfg.JobTTL)
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	for id, state := range s.jobs {
		if state.finishedAt != nil && state.finishedAt.Before(cutoff) {
			delete(s.jobs, id)
		}
	}
}
