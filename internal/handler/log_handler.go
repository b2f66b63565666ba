package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lifelog/internal/db"
	"github.com/lifelog/internal/service"
	"golang.org/x/sync/errgroup"
)

// exerciseRecomputeDays 是运动记录影响到的后续天数：休息日资格回看前两天。
const exerciseRecomputeDays = 2

type exercisePayload struct {
	Kind            string `json:"kind"`
	DurationMinutes int    `json:"duration_minutes"`
	LoggedAt        string `json:"logged_at"` // RFC3339，可选
	Note            string `json:"note"`
}

type readingPayload struct {
	Title    string `json:"title"`
	Pages    int    `json:"pages"`
	LoggedAt string `json:"logged_at"`
	Note     string `json:"note"`
}

type learningPayload struct {
	Topic    string `json:"topic"`
	Minutes  int    `json:"minutes"`
	LoggedAt string `json:"logged_at"`
	Note     string `json:"note"`
}

// CreateExerciseLog 新增运动记录，并重算当天及之后两天的连胜
func (a *API) CreateExerciseLog(c *gin.Context) {
	var payload exercisePayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}
	loggedAt, err := a.resolveInstant(payload.LoggedAt)
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的记录时间")
		return
	}
	day, err := a.engine.Calendar().DayKey(loggedAt)
	if err != nil {
		handleStreakError(c, err)
		return
	}
	if err := a.engine.CheckNotFuture(day); err != nil {
		handleStreakError(c, err)
		return
	}

	ctx := c.Request.Context()
	entry, err := a.logs.LogExercise(ctx, service.ExerciseInput{
		Kind:            payload.Kind,
		DurationMinutes: payload.DurationMinutes,
		LoggedAt:        loggedAt,
		Note:            payload.Note,
	})
	if err != nil {
		handleStreakError(c, err)
		return
	}

	body := gin.H{"exercise": serializeExercise(*entry), "date": day}
	a.attachRecompute(ctx, body, day, exerciseRecomputeDays)
	c.JSON(http.StatusCreated, body)
}

// CreateReadingLog 新增阅读记录，阅读只影响虚拟任务展示
func (a *API) CreateReadingLog(c *gin.Context) {
	var payload readingPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}
	loggedAt, err := a.resolveInstant(payload.LoggedAt)
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的记录时间")
		return
	}

	entry, err := a.logs.LogReading(c.Request.Context(), service.ReadingInput{
		Title:    payload.Title,
		Pages:    payload.Pages,
		LoggedAt: loggedAt,
		Note:     payload.Note,
	})
	if err != nil {
		handleStreakError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"reading": gin.H{
		"id":        entry.ID,
		"title":     entry.Title,
		"pages":     entry.Pages,
		"logged_at": entry.LoggedAt.Format(time.RFC3339),
		"note":      entry.Note,
	}})
}

// CreateLearningLog 新增学习记录
func (a *API) CreateLearningLog(c *gin.Context) {
	var payload learningPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}
	loggedAt, err := a.resolveInstant(payload.LoggedAt)
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的记录时间")
		return
	}

	entry, err := a.logs.LogLearning(c.Request.Context(), service.LearningInput{
		Topic:    payload.Topic,
		Minutes:  payload.Minutes,
		LoggedAt: loggedAt,
		Note:     payload.Note,
	})
	if err != nil {
		handleStreakError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"learning": gin.H{
		"id":        entry.ID,
		"topic":     entry.Topic,
		"minutes":   entry.Minutes,
		"logged_at": entry.LoggedAt.Format(time.RFC3339),
		"note":      entry.Note,
	}})
}

// GetDayLogs 返回某天的打卡与活动记录
func (a *API) GetDayLogs(c *gin.Context) {
	day, err := a.resolveDay(c.Query("date"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的日期")
		return
	}

	var (
		completions []db.TaskCompletion
		exercises   []db.ExerciseLog
		reading     []db.ReadingLog
		learning    []db.LearningLog
	)
	ctx := c.Request.Context()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		completions, err = a.logs.CompletionsOn(gctx, day)
		return err
	})
	g.Go(func() (err error) {
		exercises, err = a.logs.ExercisesOn(gctx, day)
		return err
	})
	g.Go(func() (err error) {
		reading, err = a.logs.ReadingOn(gctx, day)
		return err
	})
	g.Go(func() (err error) {
		learning, err = a.logs.LearningOn(gctx, day)
		return err
	})
	if err := g.Wait(); err != nil {
		respondError(c, http.StatusInternalServerError, "获取记录失败")
		return
	}

	completionItems := make([]gin.H, 0, len(completions))
	for _, completion := range completions {
		completionItems = append(completionItems, serializeCompletion(completion))
	}
	exerciseItems := make([]gin.H, 0, len(exercises))
	for _, entry := range exercises {
		exerciseItems = append(exerciseItems, serializeExercise(entry))
	}

	c.JSON(http.StatusOK, gin.H{
		"date":           day,
		"completions":    completionItems,
		"exercises":      exerciseItems,
		"reading_count":  len(reading),
		"learning_count": len(learning),
	})
}

func serializeExercise(entry db.ExerciseLog) gin.H {
	return gin.H{
		"id":               entry.ID,
		"kind":             entry.Kind,
		"duration_minutes": entry.DurationMinutes,
		"logged_at":        entry.LoggedAt.Format(time.RFC3339),
		"note":             entry.Note,
	}
}
