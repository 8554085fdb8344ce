package repositories

import (
	"context"
	"errors"

	"github.com/thnkthuhigh/kiemtratienganh-sub000/internal/models"
	"gorm.io/gorm"
)

// ===== SHARED FILTER STRUCTS =====

type UserFilters struct {
	IsActive  *bool  `json:"is_active"`
	Limit     int    `json:"limit"`
	Offset    int    `json:"offset"`
	SortBy    string `json:"sort_by"`    // "created_at", "username"
	SortOrder string `json:"sort_order"` // "asc", "desc"
}

type ExerciseFilters struct {
	Category   *models.ExerciseCategory `json:"category"`
	Difficulty *models.DifficultyLevel  `json:"difficulty"`
	CreatedBy  *string                  `json:"created_by"`
	Limit      int                      `json:"limit"`
	Offset     int                      `json:"offset"`
	SortBy     string                   `json:"sort_by"`
	SortOrder  string                   `json:"sort_order"`
}

// ===== REPOSITORY INTERFACES =====

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context, filters UserFilters) ([]*models.User, int64, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

type ExerciseRepository interface {
	Create(ctx context.Context, exercise *models.Exercise) error
	CreateBatch(ctx context.Context, exercises []*models.Exercise) error
	GetByID(ctx context.Context, id string) (*models.Exercise, error)
	List(ctx context.Context, filters ExerciseFilters) ([]*models.Exercise, int64, error)
	Update(ctx context.Context, exercise *models.Exercise) error
	Delete(ctx context.Context, id string) error
	CountByCategory(ctx context.Context) (map[models.ExerciseCategory]int64, error)
}

// StatsRepository persists the per-user statistics document. Writers
// must load the document through GetForUpdate inside a transaction so
// concurrent submissions for the same user serialize on the row lock
// instead of clobbering each other.
type StatsRepository interface {
	Get(ctx context.Context, userID string) (*models.UserStats, error)
	GetForUpdate(ctx context.Context, userID string) (*models.UserStats, error)
	Save(ctx context.Context, stats *models.UserStats) error
}

// Repository aggregates all repositories plus transaction control.
type Repository interface {
	User() UserRepository
	Exercise() ExerciseRepository
	Stats() StatsRepository

	WithTransaction(ctx context.Context, fn func(Repository) error) error
	Ping(ctx context.Context) error
	Close() error
}

// IsNotFoundError reports whether err is the storage layer's missing
// record error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
