package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lifelog/internal/daykey"
	"github.com/lifelog/internal/service"
	"github.com/lifelog/internal/streak"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

// bindOptionalJSON 允许空请求体。
func bindOptionalJSON(c *gin.Context, dst interface{}, message string) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return bindJSON(c, dst, message)
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	raw := c.Param(key)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(id), nil
}

// resolveDay 解析 YYYY-MM-DD，空值时返回参考时区下的今天。
func (a *API) resolveDay(raw string) (daykey.DayKey, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return a.engine.Today()
	}
	return daykey.Parse(raw)
}

// resolveActionDay 在 resolveDay 的基础上拒绝未来日期，用于写入打卡之前。
func (a *API) resolveActionDay(raw string) (daykey.DayKey, error) {
	day, err := a.resolveDay(raw)
	if err != nil {
		return daykey.DayKey{}, err
	}
	if err := a.engine.CheckNotFuture(day); err != nil {
		return daykey.DayKey{}, err
	}
	return day, nil
}

// respondDayError 区分未来日期与格式错误，两者都返回 400。
func respondDayError(c *gin.Context, err error, message string) {
	if errors.Is(err, streak.ErrFutureDay) {
		respondError(c, http.StatusBadRequest, "不能为未来的日期记录")
		return
	}
	respondError(c, http.StatusBadRequest, message)
}

// resolveInstant 解析 RFC3339 时间，空值时返回引擎时钟的当前时间。
func (a *API) resolveInstant(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return a.engine.Now(), nil
	}
	return time.Parse(time.RFC3339, raw)
}

func handleStreakError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTaskNotFound):
		respondError(c, http.StatusNotFound, "任务不存在")
	case errors.Is(err, service.ErrCompletionNotFound):
		respondError(c, http.StatusNotFound, "没有可撤销的跳过记录")
	case errors.Is(err, service.ErrTaskArchived):
		respondError(c, http.StatusConflict, "任务已归档")
	case errors.Is(err, service.ErrTaskNameRequired):
		respondError(c, http.StatusBadRequest, "任务名称不能为空")
	case errors.Is(err, service.ErrInvalidLog):
		respondError(c, http.StatusBadRequest, "记录参数不合法")
	case errors.Is(err, streak.ErrFutureDay):
		respondError(c, http.StatusBadRequest, "不能为未来的日期记录")
	case errors.Is(err, streak.ErrInvalidInput):
		respondError(c, http.StatusBadRequest, "无效的日期")
	case errors.Is(err, streak.ErrInvalidMilestones):
		respondError(c, http.StatusBadRequest, "里程碑配置无效")
	case errors.Is(err, streak.ErrCorruptRecord):
		respondError(c, http.StatusConflict, "当天的连胜记录已损坏，请先修复")
	case errors.Is(err, streak.ErrVersionConflict):
		respondError(c, http.StatusConflict, "记录已被其他请求更新，请重试")
	case errors.Is(err, streak.ErrDataUnavailable):
		respondError(c, http.StatusServiceUnavailable, "活动数据暂时不可用")
	default:
		respondError(c, http.StatusInternalServerError, "操作失败")
	}
}
