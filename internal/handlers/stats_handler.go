package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/thnkthuhigh/kiemtratienganh-sub000/internal/models"
	"github.com/thnkthuhigh/kiemtratienganh-sub000/internal/services"
	"github.com/thnkthuhigh/kiemtratienganh-sub000/internal/utils"
)

type StatsHandler struct {
	BaseHandler
	statsService        services.StatsService
	importExportService services.ImportExportService
}

func NewStatsHandler(
	statsService services.StatsService,
	importExportService services.ImportExportService,
	logger utils.Logger,
) *StatsHandler {
	return &StatsHandler{
		BaseHandler:         NewBaseHandler(logger),
		statsService:        statsService,
		importExportService: importExportService,
	}
}

// SubmitStats records a finished quiz batch into the user's statistics
func (h *StatsHandler) SubmitStats(c *gin.Context) {
	userID := ParseStringIDParam(c, "id")
	if userID == "" {
		return
	}

	var req services.SubmitStatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Submitting quiz results", "user_id", userID, "results_count", len(req.Results))

	resp, err := h.statsService.RecordQuizResults(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetStats returns the full statistics document for a user
func (h *StatsHandler) GetStats(c *gin.Context) {
	userID := ParseStringIDParam(c, "id")
	if userID == "" {
		return
	}

	stats, err := h.statsService.GetStats(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetPriorityQuestions returns questions ordered by practice priority
func (h *StatsHandler) GetPriorityQuestions(c *gin.Context) {
	userID := ParseStringIDParam(c, "id")
	if userID == "" {
		return
	}

	category := models.ExerciseCategory(c.Query("category"))
	limit := ParseIntQuery(c, "limit", 0)

	resp, err := h.statsService.GetPriorityQuestions(c.Request.Context(), userID, category, limit)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetPerformanceSummary returns the dashboard summary for a user
func (h *StatsHandler) GetPerformanceSummary(c *gin.Context) {
	userID := ParseStringIDParam(c, "id")
	if userID == "" {
		return
	}

	summary, err := h.statsService.GetPerformanceSummary(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// ExportWrongAnswers streams the user's wrong-answer log as Excel
func (h *StatsHandler) ExportWrongAnswers(c *gin.Context) {
	userID := ParseStringIDParam(c, "id")
	if userID == "" {
		return
	}

	data, err := h.importExportService.ExportWrongAnswersToExcel(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("wrong_answers_%s_%s.xlsx", userID, time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

func (h *StatsHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var validationError *services.ValidationError
	if errors.As(err, &validationError) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationError,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "User not found",
		})
	case errors.Is(err, services.ErrStatsNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Statistics not found for user",
		})
	default:
		h.LogError(c, err, "Unhandled stats service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
