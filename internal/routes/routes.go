package routes

import (
	"net/http"

	"time-tracking-api/internal/handlers"
	"time-tracking-api/internal/middleware"

	"github.com/gin-gonic/gin"
)

func SetupRoutes() *gin.Engine {
	ginRouter := gin.Default()
	ginRouter.Use(middleware.CORS())

	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Time Tracking API is running",
		})
	})

	// Public routes
	api := ginRouter.Group("/api")
	{
		api.POST("/register", handlers.Register)
		api.POST("/login", handlers.Login)
	}

	// Protected routes
	protected := api.Group("")
	protected.Use(middleware.JWTAuthMiddleware())
	{
		protected.GET("/users/me", handlers.GetCurrentUser)
		protected.PUT("/users/password", handlers.UpdatePassword)
		protected.PUT("/users/details", handlers.UpdateDetails)

		protected.GET("/tasks", handlers.GetTasks)
		protected.GET("/tasks/ongoing", handlers.GetOngoingTasks)
		protected.GET("/tasks/:id", handlers.GetTaskByID)
		protected.POST("/tasks", handlers.CreateTask)
		protected.POST("/tasks/ai", handlers.CreateTaskWithAI)
		protected.PUT("/tasks/:id", handlers.UpdateTask)
		protected.PATCH("/tasks/:id/status", handlers.UpdateTaskStatus)
		protected.PATCH("/tasks/:id/priority", handlers.UpdateTaskPriority)
		protected.POST("/tasks/:id/remarks", handlers.AddTaskRemark)
		protected.DELETE("/tasks/:id", handlers.DeleteTask)

		protected.GET("/time-logs", handlers.GetTimeLogs)
		protected.GET("/time-logs/active", handlers.GetActiveTimeLogs)
		protected.GET("/time-logs/task/:taskId", handlers.GetTaskTimeLogs)
		protected.POST("/time-logs/start/:taskId", handlers.StartTracking)
		protected.POST("/time-logs/stop/:timeLogId", handlers.StopTracking)
		protected.POST("/time-logs/pause/:timeLogId", handlers.PauseTracking)

		protected.GET("/daily-summaries", handlers.GetDailySummaries)
		protected.GET("/daily-summaries/date/:date", handlers.GetDailySummaryByDate)
		protected.GET("/daily-summaries/:id", handlers.GetDailySummaryByID)
		protected.POST("/daily-summaries/:id/generate-summary", handlers.GenerateDailySummary)

		protected.GET("/ws", handlers.WebSocketHandler)
	}

	return ginRouter
}
