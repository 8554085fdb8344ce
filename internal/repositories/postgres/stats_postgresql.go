package postgres

import (
	"context"

	"github.com/thnkthuhigh/kiemtratienganh-sub000/internal/models"
	"github.com/thnkthuhigh/kiemtratienganh-sub000/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StatsPostgreSQL struct {
	db *gorm.DB
}

func NewStatsPostgreSQL(db *gorm.DB) repositories.StatsRepository {
	return &StatsPostgreSQL{db: db}
}

func (s *StatsPostgreSQL) Get(ctx context.Context, userID string) (*models.UserStats, error) {
	var stats models.UserStats
	if err := s.db.WithContext(ctx).First(&stats, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}

// GetForUpdate locks the stats row for the rest of the surrounding
// transaction. Two concurrent submissions for the same user serialize
// here instead of racing on the read-modify-write.
func (s *StatsPostgreSQL) GetForUpdate(ctx context.Context, userID string) (*models.UserStats, error) {
	var stats models.UserStats
	if err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&stats, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *StatsPostgreSQL) Save(ctx context.Context, stats *models.UserStats) error {
	return s.db.WithContext(ctx).Save(stats).Error
}
