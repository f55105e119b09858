package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursesync-backend/internal/handlers"
	"github.com/yungbote/coursesync-backend/internal/middleware"
	"github.com/yungbote/coursesync-backend/internal/platform/envutil"
)

type RouterConfig struct {
	AuthMiddleware    *middleware.AuthMiddleware
	UserHandler       *handlers.UserHandler
	CourseHandler     *handlers.CourseHandler
	AssignmentHandler *handlers.AssignmentHandler
	SyncHandler       *handlers.SyncHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := strings.Split(envutil.String("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173"), ",")
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	protected := router.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())

	// User
	protected.GET("/user", cfg.UserHandler.GetMe)
	protected.POST("/auth-bundle", cfg.UserHandler.SaveAuthBundle)

	// Courses
	protected.GET("/courses", cfg.CourseHandler.List)

	// Assignments
	protected.GET("/assignments", cfg.AssignmentHandler.List)
	protected.GET("/assignments/:id/due-dates", cfg.AssignmentHandler.ListDueDates)
	protected.POST("/assignments/:id/complete", cfg.AssignmentHandler.MarkCompleted)
	protected.PUT("/assignments/:id/due-date", cfg.AssignmentHandler.SetDueDateOverride)

	// Sync pipeline
	protected.POST("/sync-course", cfg.SyncHandler.TriggerSync)
	protected.GET("/sync-course/:group_id", cfg.SyncHandler.GroupStatus)

	return router
}
