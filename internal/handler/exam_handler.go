package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-scheduler-api/internal/dto"
	"github.com/noah-isme/exam-scheduler-api/internal/models"
	"github.com/noah-isme/exam-scheduler-api/internal/service"
	appErrors "github.com/noah-isme/exam-scheduler-api/pkg/errors"
	"github.com/noah-isme/exam-scheduler-api/pkg/response"
)

type examScheduler interface {
	Solve(ctx context.Context, req dto.SolveRequest) (*dto.SolveResponse, error)
	Submit(ctx context.Context, req dto.SolveRequest) (*dto.SolveJobResponse, error)
	Status(jobID string) (*dto.SolveJobResponse, error)
	Stop(jobID string) (*dto.SolveJobResponse, error)
	JobSchedule(jobID string) (*dto.ExamScheduleDetail, error)
	GetSchedule(ctx context.Context, id string) (*dto.ExamScheduleDetail, error)
	ListSchedules(ctx context.Context, query dto.ExamScheduleQuery) ([]models.ExamSchedule, *models.Pagination, error)
	DeleteSchedule(ctx context.Context, id string) error
}

type scheduleExporter interface {
	Render(detail *dto.ExamScheduleDetail, query dto.ExportQuery) (*service.ExportFile, error)
	Publish(detail *dto.ExamScheduleDetail, query dto.ExportQuery) (*service.ExportLink, error)
}

// ExamHandler exposes exam solving, solve jobs and stored schedules.
type ExamHandler struct {
	service  examScheduler
	exporter scheduleExporter
}

// NewExamHandler constructs the handler.
func NewExamHandler(svc *service.ExamSchedulerService, exporter *service.ExportService) *ExamHandler {
	return &ExamHandler{service: svc, exporter: exporter}
}

// Solve godoc
// @Summary Solve an exam timetable synchronously
// @Description Non-success outcomes return the solve body together with an error whose status reflects the outcome.
// @Tags Exams
// @Accept json
// @Produce json
// @Param payload body dto.SolveRequest true "Solve payload"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /exams/solve [post]
func (h *ExamHandler) Solve(c *gin.Context) {
	var req dto.SolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid solve payload"))
		return
	}
	resp, err := h.service.Solve(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if outcomeErr := service.OutcomeError(resp.Outcome, resp.Message); outcomeErr != nil {
		response.ErrorWithData(c, outcomeErr, resp)
		return
	}
	response.OK(c, resp, requestedBy(c))
}

// SubmitJob godoc
// @Summary Queue an exam solve in the background
// @Tags Exams
// @Accept json
// @Produce json
// @Param payload body dto.SolveRequest true "Solve payload"
// @Success 202 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /exams/jobs [post]
func (h *ExamHandler) SubmitJob(c *gin.Context) {
	var req dto.SolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid solve payload"))
		return
	}
	job, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil, requestedBy(c))
}

// JobStatus godoc
// @Summary Get the state of a solve job
// @Tags Exams
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /exams/jobs/{id} [get]
func (h *ExamHandler) JobStatus(c *gin.Context) {
	job, err := h.service.Status(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, job)
}

// StopJob godoc
// @Summary Ask a queued or running solve job to stop
// @Tags Exams
// @Produce json
// @Param id path string true "Job ID"
// @Success 202 {object} response.Envelope
// @Router /exams/jobs/{id}/stop [post]
func (h *ExamHandler) StopJob(c *gin.Context) {
	job, err := h.service.Stop(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job)
}

// ExportJob godoc
// @Summary Download the schedule found by a solve job
// @Tags Exams
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Job ID"
// @Param format query string false "csv or pdf"
// @Param view query string false "timetable or seats"
// @Success 200 {file} file
// @Router /exams/jobs/{id}/export [get]
func (h *ExamHandler) ExportJob(c *gin.Context) {
	detail, err := h.service.JobSchedule(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.stream(c, detail)
}

// ListSchedules godoc
// @Summary List stored exam schedules
// @Tags Exams
// @Produce json
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /exams/schedules [get]
func (h *ExamHandler) ListSchedules(c *gin.Context) {
	var query dto.ExamScheduleQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid pagination"))
		return
	}
	items, pagination, err := h.service.ListSchedules(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// GetSchedule godoc
// @Summary Get a stored exam schedule with assignments and seats
// @Tags Exams
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /exams/schedules/{id} [get]
func (h *ExamHandler) GetSchedule(c *gin.Context) {
	detail, err := h.service.GetSchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, detail)
}

// DeleteSchedule godoc
// @Summary Delete a stored exam schedule
// @Tags Exams
// @Param id path string true "Schedule ID"
// @Success 204
// @Router /exams/schedules/{id} [delete]
func (h *ExamHandler) DeleteSchedule(c *gin.Context) {
	if err := h.service.DeleteSchedule(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ExportSchedule godoc
// @Summary Download a stored exam schedule
// @Tags Exams
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Schedule ID"
// @Param format query string false "csv or pdf"
// @Param view query string false "timetable or seats"
// @Success 200 {file} file
// @Router /exams/schedules/{id}/export [get]
func (h *ExamHandler) ExportSchedule(c *gin.Context) {
	detail, err := h.service.GetSchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.stream(c, detail)
}

// PublishSchedule godoc
// @Summary Store an export of a schedule and return a signed download link
// @Tags Exams
// @Produce json
// @Param id path string true "Schedule ID"
// @Param format query string false "csv or pdf"
// @Param view query string false "timetable or seats"
// @Success 201 {object} response.Envelope
// @Router /exams/schedules/{id}/publish [post]
func (h *ExamHandler) PublishSchedule(c *gin.Context) {
	query, ok := bindExportQuery(c)
	if !ok {
		return
	}
	detail, err := h.service.GetSchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	link, err := h.exporter.Publish(detail, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, link)
}

func (h *ExamHandler) stream(c *gin.Context, detail *dto.ExamScheduleDetail) {
	query, ok := bindExportQuery(c)
	if !ok {
		return
	}
	file, err := h.exporter.Render(detail, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

func bindExportQuery(c *gin.Context) (dto.ExportQuery, bool) {
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export query"))
		return query, false
	}
	return query, true
}
