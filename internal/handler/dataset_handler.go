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

type datasetManager interface {
	Save(ctx context.Context, slot int, input dto.DatasetInput) (*models.DatasetCounts, error)
	Get(ctx context.Context, slot int) (*dto.DatasetView, error)
	Clear(ctx context.Context, slot int) error
	Diff(ctx context.Context, slot int, incoming dto.DatasetInput) (*dto.DatasetDiff, error)
}

// DatasetHandler manages stored dataset snapshot slots.
type DatasetHandler struct {
	service datasetManager
}

// NewDatasetHandler constructs the handler.
func NewDatasetHandler(svc *service.DatasetService) *DatasetHandler {
	return &DatasetHandler{service: svc}
}

// Save godoc
// @Summary Replace the content of a dataset slot
// @Tags Datasets
// @Accept json
// @Produce json
// @Param slot path int true "Slot number (1-99)"
// @Param payload body dto.DatasetInput true "Dataset"
// @Success 200 {object} response.Envelope
// @Router /datasets/{slot} [put]
func (h *DatasetHandler) Save(c *gin.Context) {
	slot, err := slotParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var input dto.DatasetInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid dataset payload"))
		return
	}
	counts, err := h.service.Save(c.Request.Context(), slot, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, counts, requestedBy(c))
}

// Get godoc
// @Summary Get the content of a dataset slot
// @Tags Datasets
// @Produce json
// @Param slot path int true "Slot number (1-99)"
// @Success 200 {object} response.Envelope
// @Router /datasets/{slot} [get]
func (h *DatasetHandler) Get(c *gin.Context) {
	slot, err := slotParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	view, err := h.service.Get(c.Request.Context(), slot)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, view)
}

// Clear godoc
// @Summary Empty a dataset slot
// @Tags Datasets
// @Param slot path int true "Slot number (1-99)"
// @Success 204
// @Router /datasets/{slot} [delete]
func (h *DatasetHandler) Clear(c *gin.Context) {
	slot, err := slotParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Clear(c.Request.Context(), slot); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Diff godoc
// @Summary Compare a dataset with the content of a slot
// @Tags Datasets
// @Accept json
// @Produce json
// @Param slot path int true "Slot number (1-99)"
// @Param payload body dto.DatasetInput true "Dataset"
// @Success 200 {object} response.Envelope
// @Router /datasets/{slot}/diff [post]
func (h *DatasetHandler) Diff(c *gin.Context) {
	slot, err := slotParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var input dto.DatasetInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid dataset payload"))
		return
	}
	diff, err := h.service.Diff(c.Request.Context(), slot, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, diff)
}
