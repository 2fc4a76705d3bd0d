package handler

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-scheduler-api/internal/service"
	"github.com/noah-isme/exam-scheduler-api/pkg/response"
)

type exportOpener interface {
	Open(token string) (*os.File, string, error)
}

// ExportHandler serves published exports behind signed tokens.
type ExportHandler struct {
	exports exportOpener
}

// NewExportHandler constructs the handler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Download godoc
// @Summary Download a published export
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Failure 410 {object} response.Envelope
// @Router /exports/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	file, name, err := h.exports.Open(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, err)
		return
	}
	c.DataFromReader(http.StatusOK, info.Size(), service.ContentTypeFor(name), file, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", name),
	})
}
