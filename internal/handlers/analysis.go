package handlers

import (
	"errors"
	"fmt"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/nutrilens/backend/internal/middleware"
	"github.com/nutrilens/backend/internal/services"
	"github.com/nutrilens/backend/pkg/logger"
	"github.com/nutrilens/backend/pkg/response"
)

type AnalysisHandler struct {
	pipeline   *services.AnalysisService
	records    *services.AnalysisLogService
	reports    *services.ReportService
	dailyLimit int
}

func NewAnalysisHandler(pipeline *services.AnalysisService, records *services.AnalysisLogService, reports *services.ReportService, dailyLimit int) *AnalysisHandler {
	return &AnalysisHandler{
		pipeline:   pipeline,
		records:    records,
		reports:    reports,
		dailyLimit: dailyLimit,
	}
}

// AnalyzeImage runs one food image through the admission pipeline.
// POST /api/analyze-image
func (h *AnalysisHandler) AnalyzeImage(c *gin.Context) {
	id := middleware.GetIdentity(c)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, "image file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		response.BadRequest(c, "failed to read uploaded file")
		return
	}

	upload := &services.ImageUpload{
		Data:        data,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	}

	outcome, err := h.pipeline.HandleRequest(c.Request.Context(), id, upload)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.Success(c, outcome)
}

// respondError translates the pipeline error taxonomy to HTTP once, here.
func (h *AnalysisHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrQuotaExceeded):
		response.TooManyRequests(c, fmt.Sprintf(
			"Daily limit of %d requests exceeded. Please try again tomorrow.", h.dailyLimit))
	case errors.Is(err, services.ErrInvalidInput):
		response.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrUnauthenticated):
		response.Unauthorized(c, "invalid authentication token")
	default:
		// AnalysisFailed and StorageUnavailable both surface generically;
		// details go to the logs, not the caller.
		logger.Error().Err(err).Str("user_id", middleware.GetIdentity(c).UserID).Msg("analysis request failed")
		response.ServerError(c, "An error occurred while processing the image. Please try again.")
	}
}

// DownloadReport renders an owned analysis record as a PDF.
// GET /api/analyses/:id/report
func (h *AnalysisHandler) DownloadReport(c *gin.Context) {
	id := middleware.GetIdentity(c)

	rec, err := h.records.Get(c.Param("id"))
	if err != nil {
		response.ServerError(c, "failed to load analysis")
		return
	}
	if rec == nil || (rec.UserID != id.UserID && !middleware.IsAdmin(c)) {
		// Non-owners get the same answer as a missing record.
		response.NotFound(c, "analysis not found")
		return
	}

	pdfBytes, err := h.reports.GenerateReport(rec, id.Email)
	if err != nil {
		logger.Error().Err(err).Str("analysis_id", rec.ID).Msg("report generation failed")
		response.ServerError(c, "failed to generate report")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+h.reports.ReportFilename(rec)+`"`)
	c.Data(200, "application/pdf", pdfBytes)
}
