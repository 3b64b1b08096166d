package app

import (
	"quiz_engine_backend/docs"
	"quiz_engine_backend/internal/config"
	"quiz_engine_backend/internal/middleware"
	"quiz_engine_backend/internal/model"
	"quiz_engine_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	api := router.Group("/api")
	api.GET("/health", c.health.HealthCheck)

	registerAssignmentRoutes(api, c, cfg)
}

func registerAssignmentRoutes(api *gin.RouterGroup, c *controllers, cfg *config.Config) {
	// 公共读取：可选认证，管理员看到完整视图
	public := api.Group("/assignments")
	public.Use(middleware.TryAuthMiddleware(cfg))
	{
		public.GET("", c.assignment.ListAssignments)
		public.GET("/:id", c.assignment.GetAssignment)
	}

	authorized := api.Group("/assignments")
	authorized.Use(middleware.AuthMiddleware(cfg))
	{
		authorized.POST("/start", c.assignment.StartAttempt)
		authorized.POST("/submit", c.assignment.SubmitAssignment)
		authorized.GET("/my-submissions", c.assignment.ListMySubmissions)
		authorized.GET("/:id/result/:attemptId", c.assignment.GetResult)

		// 创建者/管理员
		authorized.DELETE("/:id", c.assignment.DeleteAssignment)
		authorized.GET("/:id/submissions", c.assignment.ListSubmissions)

		// 教师接口
		teacher := authorized.Group("")
		teacher.Use(middleware.RoleMiddleware(model.Teacher))
		{
			teacher.POST("", c.assignment.CreateAssignment)
			teacher.GET("/my-assignments", c.assignment.ListMyAssignments)
		}
	}
}
