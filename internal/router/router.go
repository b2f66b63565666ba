package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lifelog/internal/handler"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, metricsEnabled bool) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(handler.RequestLogger(logrus.StandardLogger()))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	r.GET("/healthz", api.HealthCheck)
	if metricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/tasks", api.ListTasks)
		apiGroup.POST("/tasks", api.CreateTask)
		apiGroup.POST("/tasks/:id/archive", api.ArchiveTask)
		apiGroup.POST("/tasks/:id/complete", api.CompleteTask)
		apiGroup.POST("/tasks/:id/skip", api.SkipTask)
		apiGroup.POST("/tasks/:id/unskip", api.UnskipTask)

		apiGroup.GET("/logs", api.GetDayLogs)
		apiGroup.POST("/exercises", api.CreateExerciseLog)
		apiGroup.POST("/reading", api.CreateReadingLog)
		apiGroup.POST("/learning", api.CreateLearningLog)

		apiGroup.GET("/streak", api.GetStreak)
		apiGroup.POST("/streak/recompute", api.RecomputeStreak)
		apiGroup.POST("/streak/repair", api.RepairStreak)
		apiGroup.GET("/special-tasks", api.GetSpecialTasks)

		apiGroup.GET("/settings/milestones", api.GetMilestoneSettings)
		apiGroup.PUT("/settings/milestones", api.UpdateMilestoneSettings)
		apiGroup.DELETE("/settings/milestones", api.ResetMilestoneSettings)
	}

	return r
}
