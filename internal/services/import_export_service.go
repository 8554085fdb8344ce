package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/thnkthuhigh/kiemtratienganh-sub000/internal/models"
	"github.com/thnkthuhigh/kiemtratienganh-sub000/internal/repositories"
	"github.com/thnkthuhigh/kiemtratienganh-sub000/internal/validator"
	"github.com/xuri/excelize/v2"
)

// ImportExportService moves exercises and wrong-answer reports in and
// out of spreadsheet files. One import row is one question; rows
// sharing (exercise_title, category) are grouped into one exercise.
type ImportExportService interface {
	ImportExercisesFromFile(ctx context.Context, reader io.Reader, filename, creatorID string) (*ImportResult, error)
	ImportExercisesFromCSV(ctx context.Context, reader io.Reader, creatorID string) (*ImportResult, error)
	ImportExercisesFromExcel(ctx context.Context, reader io.Reader, creatorID string) (*ImportResult, error)

	ExportExercisesToExcel(ctx context.Context, filters repositories.ExerciseFilters) ([]byte, error)
	ExportWrongAnswersToExcel(ctx context.Context, userID string) ([]byte, error)
}

type ImportResult struct {
	TotalRows     int                `json:"totalRows"`
	ProcessedRows int                `json:"processedRows"`
	SuccessCount  int                `json:"successCount"`
	ErrorCount    int                `json:"errorCount"`
	Errors        []ImportRowError   `json:"errors,omitempty"`
	Exercises     []*models.Exercise `json:"exercises,omitempty"`
}

type ImportRowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

type importExportService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewImportExportService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) ImportExportService {
	return &importExportService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

// ===== IMPORT =====

var importRequiredColumns = []string{"exercise_title", "category", "question_type", "question_text", "correct_answer"}

func (s *importExportService) ImportExercisesFromFile(ctx context.Context, reader io.Reader, filename, creatorID string) (*ImportResult, error) {
	s.logger.Info("Starting exercise import", "filename", filename, "creator_id", creatorID)

	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".csv":
		return s.ImportExercisesFromCSV(ctx, reader, creatorID)
	case ".xlsx", ".xls":
		return s.ImportExercisesFromExcel(ctx, reader, creatorID)
	default:
		return nil, NewValidationError("file", "unsupported file format", ext)
	}
}

func (s *importExportService) ImportExercisesFromCSV(ctx context.Context, reader io.Reader, creatorID string) (*ImportResult, error) {
	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return s.importRows(ctx, records, creatorID, "CSV")
}

func (s *importExportService) ImportExercisesFromExcel(ctx context.Context, reader io.Reader, creatorID string) (*ImportResult, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, NewValidationError("file", "Excel file has no sheets", nil)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read Excel rows: %w", err)
	}
	return s.importRows(ctx, rows, creatorID, "Excel")
}

func (s *importExportService) importRows(ctx context.Context, rows [][]string, creatorID, source string) (*ImportResult, error) {
	if len(rows) < 2 {
		return nil, NewValidationError("file", "file must have a header row and at least one data row", len(rows))
	}

	headerMap := make(map[string]int)
	for i, header := range rows[0] {
		headerMap[strings.ToLower(strings.TrimSpace(header))] = i
	}
	for _, col := range importRequiredColumns {
		if _, exists := headerMap[col]; !exists {
			return nil, NewValidationError("headers", fmt.Sprintf("missing required column: %s", col), col)
		}
	}

	result := &ImportResult{TotalRows: len(rows) - 1}
	groups := newExerciseGrouper(creatorID)

	for rowIndex, row := range rows[1:] {
		rowNum := rowIndex + 2
		rowErrors := groups.addRow(row, headerMap, rowNum)
		if len(rowErrors) > 0 {
			result.Errors = append(result.Errors, rowErrors...)
			result.ErrorCount++
		} else {
			result.SuccessCount++
		}
		result.ProcessedRows++
	}

	exercises, buildErrors := groups.build(s.validator)
	result.Errors = append(result.Errors, buildErrors...)
	result.ErrorCount += len(buildErrors)

	if len(exercises) > 0 {
		if err := s.repo.Exercise().CreateBatch(ctx, exercises); err != nil {
			return nil, fmt.Errorf("failed to save exercises: %w", err)
		}
	}
	result.Exercises = exercises

	s.logger.Info(source+" import completed",
		"total_rows", result.TotalRows,
		"exercises", len(exercises),
		"error_count", result.ErrorCount)

	return result, nil
}

// exerciseGrouper accumulates question rows into one exercise per
// (title, category), preserving first-seen order.
type exerciseGrouper struct {
	creatorID string
	order     []string
	groups    map[string]*exerciseGroup
}

type exerciseGroup struct {
	title      string
	category   models.ExerciseCategory
	difficulty models.DifficultyLevel
	passage    string
	audioURL   string
	transcript string
	clozeText  string
	questions  []models.ExerciseQuestion
	firstRow   int
}

func newExerciseGrouper(creatorID string) *exerciseGrouper {
	return &exerciseGrouper{
		creatorID: creatorID,
		groups:    make(map[string]*exerciseGroup),
	}
}

func (g *exerciseGrouper) addRow(row []string, headerMap map[string]int, rowNum int) []ImportRowError {
	cell := func(name string) string {
		idx, ok := headerMap[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var errs []ImportRowError
	title := cell("exercise_title")
	if title == "" {
		errs = append(errs, ImportRowError{Row: rowNum, Field: "exercise_title", Message: "is required"})
	}

	category := models.ExerciseCategory(strings.ToLower(cell("category")))
	switch category {
	case models.CategoryReading, models.CategoryListening, models.CategoryClozetext:
	default:
		errs = append(errs, ImportRowError{Row: rowNum, Field: "category", Message: "must be reading, listening or clozetext"})
	}

	questionType := models.QuestionType(strings.ToLower(cell("question_type")))
	switch questionType {
	case models.QuestionMultipleChoice, models.QuestionTrueFalse, models.QuestionFillBlank:
	default:
		errs = append(errs, ImportRowError{Row: rowNum, Field: "question_type", Message: "must be multiple-choice, true-false or fill-blank"})
	}

	questionText := cell("question_text")
	if questionText == "" {
		errs = append(errs, ImportRowError{Row: rowNum, Field: "question_text", Message: "is required"})
	}
	correctAnswer := cell("correct_answer")
	if correctAnswer == "" {
		errs = append(errs, ImportRowError{Row: rowNum, Field: "correct_answer", Message: "is required"})
	}
	if len(errs) > 0 {
		return errs
	}

	key := string(category) + "|" + title
	group, exists := g.groups[key]
	if !exists {
		group = &exerciseGroup{
			title:      title,
			category:   category,
			difficulty: models.DifficultyLevel(strings.ToLower(cell("difficulty"))),
			firstRow:   rowNum,
		}
		g.groups[key] = group
		g.order = append(g.order, key)
	}

	// Context columns may appear on any row of the group; last
	// non-empty value wins.
	if v := cell("passage"); v != "" {
		group.passage = v
	}
	if v := cell("audio_url"); v != "" {
		group.audioURL = v
	}
	if v := cell("transcript"); v != "" {
		group.transcript = v
	}
	if v := cell("cloze_text"); v != "" {
		group.clozeText = v
	}

	var options []string
	if raw := cell("options"); raw != "" {
		for _, opt := range strings.Split(raw, "|") {
			if opt = strings.TrimSpace(opt); opt != "" {
				options = append(options, opt)
			}
		}
	}

	group.questions = append(group.questions, models.ExerciseQuestion{
		ID:            fmt.Sprintf("q%d", len(group.questions)+1),
		Type:          questionType,
		Question:      questionText,
		Options:       options,
		CorrectAnswer: correctAnswer,
		Explanation:   cell("explanation"),
	})
	return nil
}

func (g *exerciseGrouper) build(v *validator.Validator) ([]*models.Exercise, []ImportRowError) {
	var exercises []*models.Exercise
	var errs []ImportRowError

	for _, key := range g.order {
		group := g.groups[key]

		var payload interface{}
		switch group.category {
		case models.CategoryReading:
			payload = &models.ReadingContent{Passage: group.passage, Questions: group.questions}
		case models.CategoryListening:
			payload = &models.ListeningContent{AudioURL: group.audioURL, Transcript: group.transcript, Questions: group.questions}
		case models.CategoryClozetext:
			payload = &models.ClozeContent{Text: group.clozeText, Questions: group.questions}
		}

		if err := v.Validate(payload); err != nil {
			errs = append(errs, ImportRowError{
				Row:     group.firstRow,
				Field:   string(group.category),
				Message: err.Error(),
			})
			continue
		}

		raw, err := json.Marshal(payload)
		if err != nil {
			errs = append(errs, ImportRowError{Row: group.firstRow, Field: "content", Message: err.Error()})
			continue
		}

		difficulty := group.difficulty
		switch difficulty {
		case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
		default:
			difficulty = models.DifficultyMedium
		}

		exercises = append(exercises, &models.Exercise{
			ID:         uuid.NewString(),
			Title:      group.title,
			Category:   group.category,
			Difficulty: difficulty,
			Content:    raw,
			CreatedBy:  g.creatorID,
		})
	}
	return exercises, errs
}

// ===== EXPORT =====

func (s *importExportService) ExportExercisesToExcel(ctx context.Context, filters repositories.ExerciseFilters) ([]byte, error) {
	exercises, _, err := s.repo.Exercise().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list exercises: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Exercises"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"exercise_title", "category", "difficulty", "question_id", "question_type", "question_text", "options", "correct_answer", "explanation"}
	if err := writeHeaderRow(f, sheet, headers); err != nil {
		return nil, err
	}

	rowNum := 2
	for _, exercise := range exercises {
		questions, err := exercise.Questions()
		if err != nil {
			s.logger.Warn("Skipping exercise with undecodable content",
				"exercise_id", exercise.ID, "error", err)
			continue
		}
		for _, q := range questions {
			values := []interface{}{
				exercise.Title,
				string(exercise.Category),
				string(exercise.Difficulty),
				q.ID,
				string(q.Type),
				q.Question,
				strings.Join(q.Options, "|"),
				q.CorrectAnswer,
				q.Explanation,
			}
			if err := writeRow(f, sheet, rowNum, values); err != nil {
				return nil, err
			}
			rowNum++
		}
	}

	return workbookBytes(f)
}

func (s *importExportService) ExportWrongAnswersToExcel(ctx context.Context, userID string) ([]byte, error) {
	stats, err := s.repo.Stats().Get(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrStatsNotFound
		}
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	wrongSheet := "WrongAnswers"
	f.SetSheetName("Sheet1", wrongSheet)

	headers := []string{"question_id", "exercise_id", "category", "question_text", "selected_answer", "correct_answer", "timestamp"}
	if err := writeHeaderRow(f, wrongSheet, headers); err != nil {
		return nil, err
	}
	for i, record := range stats.WrongAnswers {
		values := []interface{}{
			record.QuestionID,
			record.ExerciseID,
			string(record.Category),
			record.QuestionText,
			record.SelectedAnswer,
			record.CorrectAnswer,
			record.Timestamp.Format("2006-01-02 15:04:05"),
		}
		if err := writeRow(f, wrongSheet, i+2, values); err != nil {
			return nil, err
		}
	}

	freqSheet := "FrequentlyWrong"
	if _, err := f.NewSheet(freqSheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := writeHeaderRow(f, freqSheet, []string{"question_id", "count", "last_wrong_at"}); err != nil {
		return nil, err
	}
	for i, counter := range stats.FrequentlyWrong {
		values := []interface{}{
			counter.QuestionID,
			counter.Count,
			counter.LastWrongAt.Format("2006-01-02 15:04:05"),
		}
		if err := writeRow(f, freqSheet, i+2, values); err != nil {
			return nil, err
		}
	}

	return workbookBytes(f)
}

func writeHeaderRow(f *excelize.File, sheet string, headers []string) error {
	values := make([]interface{}, len(headers))
	for i, h := range headers {
		values[i] = h
	}
	return writeRow(f, sheet, 1, values)
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("failed to build cell name: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}

func workbookBytes(f *excelize.File) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}
