package handler

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
)

// HealthCheck 提供监控系统使用的健康检查端点。
func (a *API) HealthCheck(c *gin.Context) {
	sqlDB, err := a.db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "database handle unavailable",
		})
		return
	}

	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "error",
			"message": "database unreachable",
		})
		return
	}

	names := make([]string, 0, len(a.checks))
	for name := range a.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	payload := gin.H{"status": "ok", "database": "up"}
	for _, name := range names {
		if err := a.checks[name](c.Request.Context()); err != nil {
			a.log.WithError(err).WithField("check", name).Warn("health check failed")
			payload["status"] = "error"
			payload[name] = "down"
			c.JSON(http.StatusServiceUnavailable, payload)
			return
		}
		payload[name] = "up"
	}

	c.JSON(http.StatusOK, payload)
}
