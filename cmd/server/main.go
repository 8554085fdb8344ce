package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/thnkthuhigh/kiemtratienganh-sub000/internal/cache"
	"github.com/thnkthuhigh/kiemtratienganh-sub000/internal/config"
	"github.com/thnkthuhigh/kiemtratienganh-sub000/internal/handlers"
	"github.com/thnkthuhigh/kiemtratienganh-sub000/internal/models"
	"github.com/thnkthuhigh/kiemtratienganh-sub000/internal/repositories/postgres"
	"github.com/thnkthuhigh/kiemtratienganh-sub000/internal/services"
	"github.com/thnkthuhigh/kiemtratienganh-sub000/internal/utils"
	"github.com/thnkthuhigh/kiemtratienganh-sub000/internal/validator"
	"github.com/thnkthuhigh/kiemtratienganh-sub000/pkg"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Environment)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		return err
	}

	if err := db.AutoMigrate(&models.User{}, &models.Exercise{}, &models.UserStats{}); err != nil {
		return err
	}

	// The cache is optional; the service degrades to direct reads when
	// Redis is unreachable.
	var cacheService cache.CacheService
	if redisClient, err := pkg.NewRedisClient(cfg); err != nil {
		logger.Warn("Redis unavailable, running without cache", "error", err)
	} else {
		defer redisClient.Close()
		cacheService = cache.NewRedisCache(redisClient, logger)
	}

	publisher, err := cfg.Events.CreateEventPublisher(logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	repo := postgres.New(db)
	v := validator.New()

	userService := services.NewUserService(repo, logger, v)
	exerciseService := services.NewExerciseService(repo, logger, v)
	statsService := services.NewStatsService(repo, logger, v, cacheService, publisher)
	importExportService := services.NewImportExportService(repo, logger, v)

	handlerLogger := utils.FromSlogLogger(logger)
	handlerManager := handlers.NewHandlerManager(
		userService,
		exerciseService,
		statsService,
		importExportService,
		handlerLogger,
	)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(utils.LoggerMiddleware(handlerLogger))
	router.Use(gin.Recovery())
	handlerManager.SetupRoutes(router)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("Server stopped")
	return nil
}

func newLogger(environment string) *slog.Logger {
	if environment == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}
