package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lifelog/internal/streak"
)

type milestonesRequest struct {
	Milestones streak.MilestoneTable `json:"milestones"`
}

// GetMilestoneSettings 返回当前生效的里程碑表及来源
func (a *API) GetMilestoneSettings(c *gin.Context) {
	settings, err := a.settings.GetMilestones(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取里程碑配置失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

// UpdateMilestoneSettings 保存里程碑表，删除已发放过的里程碑会被拒绝
func (a *API) UpdateMilestoneSettings(c *gin.Context) {
	var payload milestonesRequest
	if !bindJSON(c, &payload, "请填写完整的里程碑配置") {
		return
	}

	settings, err := a.settings.UpdateMilestones(c.Request.Context(), payload.Milestones)
	if err != nil {
		handleStreakError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "里程碑配置已保存",
		"settings": settings,
	})
}

// ResetMilestoneSettings 删除覆盖值，回退表缺少已发放的里程碑时拒绝
func (a *API) ResetMilestoneSettings(c *gin.Context) {
	settings, err := a.settings.ResetMilestones(c.Request.Context())
	if err != nil {
		handleStreakError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}
