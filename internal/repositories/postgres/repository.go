package postgres

import (
	"context"

	"github.com/thnkthuhigh/kiemtratienganh-sub000/internal/repositories"
	"gorm.io/gorm"
)

type gormRepository struct {
	db       *gorm.DB
	user     repositories.UserRepository
	exercise repositories.ExerciseRepository
	stats    repositories.StatsRepository
}

// New builds the PostgreSQL-backed repository set on top of one gorm
// connection.
func New(db *gorm.DB) repositories.Repository {
	return &gormRepository{
		db:       db,
		user:     NewUserPostgreSQL(db),
		exercise: NewExercisePostgreSQL(db),
		stats:    NewStatsPostgreSQL(db),
	}
}

func (r *gormRepository) User() repositories.UserRepository         { return r.user }
func (r *gormRepository) Exercise() repositories.ExerciseRepository { return r.exercise }
func (r *gormRepository) Stats() repositories.StatsRepository       { return r.stats }

// WithTransaction runs fn against a repository set bound to a single
// transaction; fn returning an error rolls everything back.
func (r *gormRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}

func (r *gormRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *gormRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
