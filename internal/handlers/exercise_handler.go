package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/thnkthuhigh/kiemtratienganh-sub000/internal/models"
	"github.com/thnkthuhigh/kiemtratienganh-sub000/internal/repositories"
	"github.com/thnkthuhigh/kiemtratienganh-sub000/internal/services"
	"github.com/thnkthuhigh/kiemtratienganh-sub000/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ExerciseHandler struct {
	BaseHandler
	exerciseService     services.ExerciseService
	importExportService services.ImportExportService
}

func NewExerciseHandler(
	exerciseService services.ExerciseService,
	importExportService services.ImportExportService,
	logger utils.Logger,
) *ExerciseHandler {
	return &ExerciseHandler{
		BaseHandler:         NewBaseHandler(logger),
		exerciseService:     exerciseService,
		importExportService: importExportService,
	}
}

// CreateExercise creates a new exercise
func (h *ExerciseHandler) CreateExercise(c *gin.Context) {
	var req services.CreateExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	exercise, err := h.exerciseService.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, exercise)
}

// GetExercise retrieves an exercise by ID
func (h *ExerciseHandler) GetExercise(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	exercise, err := h.exerciseService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, exercise)
}

// ListExercises lists exercises with filters
func (h *ExerciseHandler) ListExercises(c *gin.Context) {
	limit, offset := ParsePagination(c)

	filters := repositories.ExerciseFilters{
		Limit:     limit,
		Offset:    offset,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if raw := c.Query("category"); raw != "" {
		category := models.ExerciseCategory(raw)
		filters.Category = &category
	}
	if raw := c.Query("difficulty"); raw != "" {
		difficulty := models.DifficultyLevel(raw)
		filters.Difficulty = &difficulty
	}
	if raw := c.Query("created_by"); raw != "" {
		filters.CreatedBy = &raw
	}

	exercises, total, err := h.exerciseService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{
		Data:   exercises,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// UpdateExercise updates an existing exercise
func (h *ExerciseHandler) UpdateExercise(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var req services.UpdateExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	exercise, err := h.exerciseService.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, exercise)
}

// DeleteExercise deletes an exercise
func (h *ExerciseHandler) DeleteExercise(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	h.LogRequest(c, "Deleting exercise", "exercise_id", id)

	if err := h.exerciseService.Delete(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetCategoryCounts returns exercise counts grouped by category
func (h *ExerciseHandler) GetCategoryCounts(c *gin.Context) {
	counts, err := h.exerciseService.CountByCategory(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, counts)
}

// ImportExercises imports exercises from an uploaded CSV or Excel file
func (h *ExerciseHandler) ImportExercises(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Missing file upload",
			Details: err.Error(),
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Failed to open uploaded file",
			Details: err.Error(),
		})
		return
	}
	defer file.Close()

	creatorID := c.Query("created_by")
	result, err := h.importExportService.ImportExercisesFromFile(c.Request.Context(), file, fileHeader.Filename, creatorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ExportExercises streams the exercise bank as an Excel workbook
func (h *ExerciseHandler) ExportExercises(c *gin.Context) {
	filters := repositories.ExerciseFilters{}
	if raw := c.Query("category"); raw != "" {
		category := models.ExerciseCategory(raw)
		filters.Category = &category
	}

	data, err := h.importExportService.ExportExercisesToExcel(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("exercises_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

func (h *ExerciseHandler) handleServiceError(c *gin.Context, err error) {
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
	case errors.Is(err, services.ErrExerciseNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Exercise not found",
		})
	case errors.Is(err, services.ErrExerciseInvalidCategory):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid exercise category",
		})
	case errors.Is(err, services.ErrExerciseInvalidContent):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Exercise content does not match category",
		})
	default:
		h.LogError(c, err, "Unhandled exercise service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
