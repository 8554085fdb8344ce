package postgres

import (
	"context"

	"github.com/thnkthuhigh/kiemtratienganh-sub000/internal/models"
	"github.com/thnkthuhigh/kiemtratienganh-sub000/internal/repositories"
	"gorm.io/gorm"
)

type ExercisePostgreSQL struct {
	db *gorm.DB
}

func NewExercisePostgreSQL(db *gorm.DB) repositories.ExerciseRepository {
	return &ExercisePostgreSQL{db: db}
}

func (e *ExercisePostgreSQL) Create(ctx context.Context, exercise *models.Exercise) error {
	return e.db.WithContext(ctx).Create(exercise).Error
}

func (e *ExercisePostgreSQL) CreateBatch(ctx context.Context, exercises []*models.Exercise) error {
	if len(exercises) == 0 {
		return nil
	}
	return e.db.WithContext(ctx).Create(exercises).Error
}

func (e *ExercisePostgreSQL) GetByID(ctx context.Context, id string) (*models.Exercise, error) {
	var exercise models.Exercise
	if err := e.db.WithContext(ctx).First(&exercise, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &exercise, nil
}

func (e *ExercisePostgreSQL) List(ctx context.Context, filters repositories.ExerciseFilters) ([]*models.Exercise, int64, error) {
	var exercises []*models.Exercise
	var total int64

	// apply filters first
	query := e.db.WithContext(ctx).Model(&models.Exercise{})
	query = e.applyFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// then pagination and sorting
	query = applyPaginationAndSort(query, filters.Limit, filters.Offset, filters.SortBy, filters.SortOrder)

	if err := query.Find(&exercises).Error; err != nil {
		return nil, 0, err
	}

	return exercises, total, nil
}

func (e *ExercisePostgreSQL) Update(ctx context.Context, exercise *models.Exercise) error {
	return e.db.WithContext(ctx).Save(exercise).Error
}

func (e *ExercisePostgreSQL) Delete(ctx context.Context, id string) error {
	return e.db.WithContext(ctx).Delete(&models.Exercise{}, "id = ?", id).Error
}

func (e *ExercisePostgreSQL) CountByCategory(ctx context.Context) (map[models.ExerciseCategory]int64, error) {
	type row struct {
		Category models.ExerciseCategory
		Count    int64
	}
	var rows []row
	if err := e.db.WithContext(ctx).
		Model(&models.Exercise{}).
		Select("category, count(*) as count").
		Group("category").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[models.ExerciseCategory]int64, len(rows))
	for _, r := range rows {
		counts[r.Category] = r.Count
	}
	return counts, nil
}

func (e *ExercisePostgreSQL) applyFilters(query *gorm.DB, filters repositories.ExerciseFilters) *gorm.DB {
	if filters.Category != nil {
		query = query.Where("category = ?", *filters.Category)
	}
	if filters.Difficulty != nil {
		query = query.Where("difficulty = ?", *filters.Difficulty)
	}
	if filters.CreatedBy != nil {
		query = query.Where("created_by = ?", *filters.CreatedBy)
	}
	return query
}
