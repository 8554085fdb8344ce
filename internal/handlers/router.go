package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/thnkthuhigh/kiemtratienganh-sub000/internal/services"
	"github.com/thnkthuhigh/kiemtratienganh-sub000/internal/utils"
)

type HandlerManager struct {
	userHandler     *UserHandler
	exerciseHandler *ExerciseHandler
	statsHandler    *StatsHandler
}

func NewHandlerManager(
	userService services.UserService,
	exerciseService services.ExerciseService,
	statsService services.StatsService,
	importExportService services.ImportExportService,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		userHandler:     NewUserHandler(userService, logger),
		exerciseHandler: NewExerciseHandler(exerciseService, importExportService, logger),
		statsHandler:    NewStatsHandler(statsService, importExportService, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "quiz-stats-service",
		})
	})

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// User routes
		users := v1.Group("/users")
		{
			users.POST("", hm.userHandler.CreateUser)
			users.GET("", hm.userHandler.ListUsers)
			users.GET("/:id", hm.userHandler.GetUser)
			users.GET("/username/:username", hm.userHandler.GetUserByUsername)
			users.PUT("/:id", hm.userHandler.UpdateUser)
			users.DELETE("/:id", hm.userHandler.DeleteUser)

			// Performance tracking routes
			users.POST("/:id/stats", hm.statsHandler.SubmitStats)
			users.GET("/:id/stats", hm.statsHandler.GetStats)
			users.GET("/:id/stats/priority", hm.statsHandler.GetPriorityQuestions)
			users.GET("/:id/stats/summary", hm.statsHandler.GetPerformanceSummary)
			users.GET("/:id/stats/wrong-answers/export", hm.statsHandler.ExportWrongAnswers)
		}

		// Exercise routes
		exercises := v1.Group("/exercises")
		{
			exercises.POST("", hm.exerciseHandler.CreateExercise)
			exercises.GET("", hm.exerciseHandler.ListExercises)
			exercises.GET("/counts", hm.exerciseHandler.GetCategoryCounts)
			exercises.GET("/export", hm.exerciseHandler.ExportExercises)
			exercises.POST("/import", hm.exerciseHandler.ImportExercises)
			exercises.GET("/:id", hm.exerciseHandler.GetExercise)
			exercises.PUT("/:id", hm.exerciseHandler.UpdateExercise)
			exercises.DELETE("/:id", hm.exerciseHandler.DeleteExercise)
		}
	}
}
