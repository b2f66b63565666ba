package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lifelog/internal/daykey"
	"github.com/lifelog/internal/db"
	"github.com/lifelog/internal/service"
	"github.com/lifelog/internal/streak"
	"github.com/sirupsen/logrus"
)

type taskPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	SortOrder   int    `json:"sort_order"`
}

type completionPayload struct {
	Date string `json:"date"` // 2006-01-02，可选
	Note string `json:"note"`
}

// ListTasks 返回任务列表 JSON
func (a *API) ListTasks(c *gin.Context) {
	filter := service.TaskFilter{
		Status:   c.Query("status"),
		Category: c.Query("category"),
		Search:   c.Query("search"),
	}

	tasks, err := a.tasks.List(filter)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取任务列表失败")
		return
	}

	items := make([]gin.H, 0, len(tasks))
	for _, task := range tasks {
		items = append(items, taskToPayload(task))
	}
	c.JSON(http.StatusOK, gin.H{"tasks": items})
}

// CreateTask 创建任务
func (a *API) CreateTask(c *gin.Context) {
	var payload taskPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	task, err := a.tasks.Create(service.TaskInput{
		Name:        payload.Name,
		Description: payload.Description,
		Category:    payload.Category,
		SortOrder:   payload.SortOrder,
	})
	if err != nil {
		handleStreakError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"task": taskToPayload(*task)})
}

// ArchiveTask 归档任务，历史打卡保留
func (a *API) ArchiveTask(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的任务ID")
		return
	}

	task, err := a.tasks.Archive(id)
	if err != nil {
		handleStreakError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"task": taskToPayload(*task)})
}

// CompleteTask 标记任务完成并重算当天连胜
func (a *API) CompleteTask(c *gin.Context) {
	a.markTask(c, a.logs.Complete)
}

// SkipTask 标记任务跳过并重算当天连胜
func (a *API) SkipTask(c *gin.Context) {
	a.markTask(c, a.logs.Skip)
}

func (a *API) markTask(c *gin.Context, mark func(context.Context, service.CompletionInput) (*db.TaskCompletion, error)) {
	taskID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的任务ID")
		return
	}

	var payload completionPayload
	if !bindOptionalJSON(c, &payload, "请求参数不合法") {
		return
	}
	day, err := a.resolveActionDay(payload.Date)
	if err != nil {
		respondDayError(c, err, "无效的打卡日期")
		return
	}

	ctx := c.Request.Context()
	completion, err := mark(ctx, service.CompletionInput{
		TaskID: taskID,
		Date:   day,
		At:     a.engine.Now(),
		Note:   payload.Note,
	})
	if err != nil {
		handleStreakError(c, err)
		return
	}

	body := gin.H{"completion": serializeCompletion(*completion)}
	a.attachRecompute(ctx, body, day, 0)
	c.JSON(http.StatusOK, body)
}

// UnskipTask 撤销跳过并重算当天连胜
func (a *API) UnskipTask(c *gin.Context) {
	taskID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的任务ID")
		return
	}

	var payload completionPayload
	if !bindOptionalJSON(c, &payload, "请求参数不合法") {
		return
	}
	day, err := a.resolveActionDay(payload.Date)
	if err != nil {
		respondDayError(c, err, "无效的日期")
		return
	}

	ctx := c.Request.Context()
	if err := a.logs.Unskip(ctx, taskID, day); err != nil {
		handleStreakError(c, err)
		return
	}

	body := gin.H{"unskipped": true, "task_id": taskID, "date": day}
	a.attachRecompute(ctx, body, day, 0)
	c.JSON(http.StatusOK, body)
}

// attachRecompute 重算受影响的日期并把结果写入响应。
// 打卡本身已经保存，重算失败只在响应中说明，不回滚。
func (a *API) attachRecompute(ctx context.Context, body gin.H, day daykey.DayKey, followingDays int) {
	result, err := a.recomputeAffected(ctx, day, followingDays)
	if err != nil {
		a.log.WithError(err).WithField("date", day.String()).Warn("streak recompute after action failed")
		body["streak_error"] = err.Error()
		return
	}
	body["streak"] = result
}

// recomputeAffected 依次重算 day 及其后 followingDays 天（不超过今天），
// day 早于今天时再重算今天，返回 day 当天的结果。
func (a *API) recomputeAffected(ctx context.Context, day daykey.DayKey, followingDays int) (streak.UpdateResult, error) {
	if err := a.engine.CheckNotFuture(day); err != nil {
		return streak.UpdateResult{}, err
	}
	today, err := a.engine.Today()
	if err != nil {
		return streak.UpdateResult{}, err
	}

	first, err := a.engine.UpdateStreakForDate(ctx, day)
	if err != nil {
		return streak.UpdateResult{}, err
	}

	last := day.AddDays(followingDays)
	if last.After(today) {
		last = today
	}
	for next := day.AddDays(1); !next.After(last); next = next.AddDays(1) {
		if _, err := a.engine.UpdateStreakForDate(ctx, next); err != nil {
			return first, err
		}
	}
	if last.Before(today) {
		if _, err := a.engine.UpdateStreakForDate(ctx, today); err != nil {
			a.log.WithError(err).WithFields(logrus.Fields{
				"date":  today.String(),
				"after": day.String(),
			}).Warn("today's streak recompute failed")
		}
	}
	return first, nil
}

func taskToPayload(task db.Task) gin.H {
	return gin.H{
		"id":          task.ID,
		"name":        task.Name,
		"description": task.Description,
		"category":    task.Category,
		"status":      task.Status,
		"sort_order":  task.SortOrder,
		"created_at":  task.CreatedAt.Format(time.RFC3339),
	}
}

func serializeCompletion(completion db.TaskCompletion) gin.H {
	return gin.H{
		"id":           completion.ID,
		"task_id":      completion.TaskID,
		"date":         completion.Date,
		"status":       completion.Status,
		"completed_at": completion.CompletedAt.Format(time.RFC3339),
		"note":         strings.TrimSpace(completion.Note),
	}
}
