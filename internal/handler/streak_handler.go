package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lifelog/internal/streak"
)

type streakDayPayload struct {
	Date string `json:"date"`
}

// GetStreak 返回仪表盘使用的连胜快照。
// 今天还没有记录时先生成；日志不可用时返回上一次成功的快照并标记 stale，
// 没有可用快照时返回 503，绝不返回伪造的 0。
func (a *API) GetStreak(c *gin.Context) {
	ctx := c.Request.Context()

	today, err := a.engine.Today()
	if err != nil {
		handleStreakError(c, err)
		return
	}
	if _, err := a.engine.EnsureDay(ctx, today); err != nil {
		switch {
		case errors.Is(err, streak.ErrDataUnavailable):
			a.respondStaleSnapshot(c, err)
			return
		case errors.Is(err, streak.ErrCorruptRecord), errors.Is(err, streak.ErrVersionConflict):
			// 快照本身只读，这两种情况仍然可以展示。
			a.log.WithError(err).WithField("date", today.String()).Warn("could not materialize today's record")
		default:
			handleStreakError(c, err)
			return
		}
	}

	snapshot, err := a.engine.Snapshot(ctx)
	if err != nil {
		if errors.Is(err, streak.ErrDataUnavailable) {
			a.respondStaleSnapshot(c, err)
			return
		}
		handleStreakError(c, err)
		return
	}

	a.snapshots.store(snapshot)
	c.JSON(http.StatusOK, gin.H{"snapshot": snapshot})
}

func (a *API) respondStaleSnapshot(c *gin.Context, cause error) {
	a.log.WithError(cause).Warn("activity data unavailable for streak snapshot")
	if snapshot, ok := a.snapshots.stale(); ok {
		c.JSON(http.StatusOK, gin.H{"snapshot": snapshot})
		return
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error":  "活动数据暂时不可用",
		"status": "unavailable",
	})
}

// RecomputeStreak 手动重算某天（默认今天）的记录
func (a *API) RecomputeStreak(c *gin.Context) {
	var payload streakDayPayload
	if !bindOptionalJSON(c, &payload, "请求参数不合法") {
		return
	}
	day, err := a.resolveDay(payload.Date)
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的日期")
		return
	}

	result, err := a.engine.UpdateStreakForDate(c.Request.Context(), day)
	if err != nil {
		handleStreakError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"streak": result})
}

// RepairStreak 修复损坏的单日记录，date 必填
func (a *API) RepairStreak(c *gin.Context) {
	var payload streakDayPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}
	if payload.Date == "" {
		respondError(c, http.StatusBadRequest, "请指定需要修复的日期")
		return
	}
	day, err := a.resolveDay(payload.Date)
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的日期")
		return
	}

	result, err := a.engine.RepairRecord(c.Request.Context(), day)
	if err != nil {
		handleStreakError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"repair": result})
}

// GetSpecialTasks 返回今天（或 ?date= 指定日期）由活动日志合成的虚拟任务
func (a *API) GetSpecialTasks(c *gin.Context) {
	day, err := a.resolveDay(c.Query("date"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的日期")
		return
	}

	tasks, err := a.specialTasks.SpecialTasksOn(c.Request.Context(), day)
	if err != nil {
		handleStreakError(c, err)
		return
	}

	points := 0
	for _, task := range tasks {
		points += task.Points
	}
	c.JSON(http.StatusOK, gin.H{"date": day, "tasks": tasks, "points": points})
}
