package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lifelog/internal/daykey"
	"github.com/lifelog/internal/db"
	"github.com/lifelog/internal/streak"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrCompletionNotFound 在撤销不存在的跳过记录时返回
	ErrCompletionNotFound = errors.New("task completion not found")
	// ErrInvalidLog 在日志字段不合法时返回
	ErrInvalidLog = errors.New("invalid activity log")
)

// ActivityLogService 负责任务打卡与运动/阅读/学习日志，
// 同时作为连胜引擎的日志源。
//
// 所有时间以 UTC 落库并截断到秒，区间查询使用同样的格式，
// 因此 SQLite 的文本比较与时间顺序一致。
type ActivityLogService struct {
	db        *gorm.DB
	cal       daykey.Calendar
	tolerance time.Duration
	policy    *bluemonday.Policy
}

// NewActivityLogService 构造 ActivityLogService
func NewActivityLogService(gdb *gorm.DB, cal daykey.Calendar) *ActivityLogService {
	return &ActivityLogService{
		db:     gdb,
		cal:    cal,
		policy: bluemonday.StrictPolicy(),
	}
}

// WithLegacyTolerance 为运动记录的存在性检查两侧各放宽 d。
// 仅用于兼容早期按错误时区写入的运动记录，打卡数统计不受影响。
func (s *ActivityLogService) WithLegacyTolerance(d time.Duration) *ActivityLogService {
	if d > 0 {
		s.tolerance = d
	}
	return s
}

// Calendar 返回参考日历
func (s *ActivityLogService) Calendar() daykey.Calendar {
	return s.cal
}

// CompletionInput 描述一次打卡或跳过
type CompletionInput struct {
	TaskID uint
	Date   daykey.DayKey
	At     time.Time
	Note   string
}

// Complete 标记任务在某天完成，重复调用只更新时间和备注
func (s *ActivityLogService) Complete(ctx context.Context, input CompletionInput) (*db.TaskCompletion, error) {
	return s.upsertCompletion(ctx, input, db.CompletionStatusCompleted)
}

// Skip 标记任务在某天跳过，跳过不计入完成数
func (s *ActivityLogService) Skip(ctx context.Context, input CompletionInput) (*db.TaskCompletion, error) {
	return s.upsertCompletion(ctx, input, db.CompletionStatusSkipped)
}

// Unskip 撤销某天的跳过记录，已完成的记录不受影响
func (s *ActivityLogService) Unskip(ctx context.Context, taskID uint, day daykey.DayKey) error {
	if day.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidLog)
	}
	result := s.db.WithContext(ctx).
		Unscoped().
		Where("task_id = ? AND date = ? AND status = ?", taskID, day, db.CompletionStatusSkipped).
		Delete(&db.TaskCompletion{})
	if result.Error != nil {
		return fmt.Errorf("unskip task: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCompletionNotFound
	}
	return nil
}

func (s *ActivityLogService) upsertCompletion(ctx context.Context, input CompletionInput, status string) (*db.TaskCompletion, error) {
	if input.Date.IsZero() {
		return nil, fmt.Errorf("%w: missing date", ErrInvalidLog)
	}

	var task db.Task
	if err := s.db.WithContext(ctx).First(&task, input.TaskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("find task: %w", err)
	}
	if task.Status == db.TaskStatusArchived {
		return nil, ErrTaskArchived
	}

	record := db.TaskCompletion{
		TaskID:      input.TaskID,
		Date:        input.Date,
		CompletedAt: s.instantOn(input.Date, input.At),
		Status:      status,
		Note:        s.policy.Sanitize(strings.TrimSpace(input.Note)),
	}

	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "task_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"completed_at", "status", "note", "updated_at"}),
	}).Create(&record).Error; err != nil {
		return nil, fmt.Errorf("upsert task completion: %w", err)
	}

	if err := s.db.WithContext(ctx).Where("task_id = ? AND date = ?", input.TaskID, input.Date).First(&record).Error; err != nil {
		return nil, fmt.Errorf("reload task completion: %w", err)
	}
	return &record, nil
}

// instantOn 返回落在 day 内的时间点：at 属于当天时原样使用，
// 否则（补打卡）取当天中午，保证按区间统计时落在正确的一天。
func (s *ActivityLogService) instantOn(day daykey.DayKey, at time.Time) time.Time {
	r := s.cal.Range(day)
	if !at.IsZero() && r.Contains(at) {
		return storedTime(at)
	}
	return storedTime(r.Start.Add(r.End.Sub(r.Start) / 2))
}

func storedTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// CompletionsOn 返回某天的全部打卡记录
func (s *ActivityLogService) CompletionsOn(ctx context.Context, day daykey.DayKey) ([]db.TaskCompletion, error) {
	var rows []db.TaskCompletion
	if err := s.db.WithContext(ctx).
		Preload("Task").
		Where("date = ?", day).
		Order("completed_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list task completions: %w", err)
	}
	return rows, nil
}

// ExerciseInput 描述一条运动记录
type ExerciseInput struct {
	Kind            string
	DurationMinutes int
	LoggedAt        time.Time
	Note            string
}

// ReadingInput 描述一条阅读记录
type ReadingInput struct {
	Title    string
	Pages    int
	LoggedAt time.Time
	Note     string
}

// LearningInput 描述一条学习记录
type LearningInput struct {
	Topic    string
	Minutes  int
	LoggedAt time.Time
	Note     string
}

// LogExercise 新增运动记录
func (s *ActivityLogService) LogExercise(ctx context.Context, input ExerciseInput) (*db.ExerciseLog, error) {
	if input.LoggedAt.IsZero() {
		return nil, fmt.Errorf("%w: logged_at is required", ErrInvalidLog)
	}
	if input.DurationMinutes < 0 {
		return nil, fmt.Errorf("%w: duration must not be negative", ErrInvalidLog)
	}
	record := db.ExerciseLog{
		Kind:            strings.TrimSpace(input.Kind),
		DurationMinutes: input.DurationMinutes,
		LoggedAt:        storedTime(input.LoggedAt),
		Note:            s.policy.Sanitize(strings.TrimSpace(input.Note)),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, fmt.Errorf("create exercise log: %w", err)
	}
	return &record, nil
}

// LogReading 新增阅读记录
func (s *ActivityLogService) LogReading(ctx context.Context, input ReadingInput) (*db.ReadingLog, error) {
	if input.LoggedAt.IsZero() {
		return nil, fmt.Errorf("%w: logged_at is required", ErrInvalidLog)
	}
	if input.Pages < 0 {
		return nil, fmt.Errorf("%w: pages must not be negative", ErrInvalidLog)
	}
	record := db.ReadingLog{
		Title:    strings.TrimSpace(input.Title),
		Pages:    input.Pages,
		LoggedAt: storedTime(input.LoggedAt),
		Note:     s.policy.Sanitize(strings.TrimSpace(input.Note)),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, fmt.Errorf("create reading log: %w", err)
	}
	return &record, nil
}

// LogLearning 新增学习记录
func (s *ActivityLogService) LogLearning(ctx context.Context, input LearningInput) (*db.LearningLog, error) {
	if input.LoggedAt.IsZero() {
		return nil, fmt.Errorf("%w: logged_at is required", ErrInvalidLog)
	}
	if input.Minutes < 0 {
		return nil, fmt.Errorf("%w: minutes must not be negative", ErrInvalidLog)
	}
	record := db.LearningLog{
		Topic:    strings.TrimSpace(input.Topic),
		Minutes:  input.Minutes,
		LoggedAt: storedTime(input.LoggedAt),
		Note:     s.policy.Sanitize(strings.TrimSpace(input.Note)),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, fmt.Errorf("create learning log: %w", err)
	}
	return &record, nil
}

// ExercisesOn 返回某天的运动记录
func (s *ActivityLogService) ExercisesOn(ctx context.Context, day daykey.DayKey) ([]db.ExerciseLog, error) {
	var rows []db.ExerciseLog
	if err := s.between(ctx, s.cal.Range(day)).Order("logged_at ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list exercise logs: %w", err)
	}
	return rows, nil
}

// ReadingOn 返回某天的阅读记录
func (s *ActivityLogService) ReadingOn(ctx context.Context, day daykey.DayKey) ([]db.ReadingLog, error) {
	var rows []db.ReadingLog
	if err := s.between(ctx, s.cal.Range(day)).Order("logged_at ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list reading logs: %w", err)
	}
	return rows, nil
}

// LearningOn 返回某天的学习记录
func (s *ActivityLogService) LearningOn(ctx context.Context, day daykey.DayKey) ([]db.LearningLog, error) {
	var rows []db.LearningLog
	if err := s.between(ctx, s.cal.Range(day)).Order("logged_at ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list learning logs: %w", err)
	}
	return rows, nil
}

func (s *ActivityLogService) between(ctx context.Context, r daykey.Range) *gorm.DB {
	return s.db.WithContext(ctx).Where("logged_at >= ? AND logged_at < ?", storedTime(r.Start), storedTime(r.End))
}

// CountCompletedTasks 统计 CompletedAt 落在区间内的完成记录数
func (s *ActivityLogService) CountCompletedTasks(ctx context.Context, r daykey.Range) (int, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&db.TaskCompletion{}).
		Where("status = ?", db.CompletionStatusCompleted).
		Where("completed_at >= ? AND completed_at < ?", storedTime(r.Start), storedTime(r.End)).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count completed tasks: %w", err)
	}
	return int(count), nil
}

// HasExerciseLog 判断区间内（含兼容放宽）是否存在运动记录
func (s *ActivityLogService) HasExerciseLog(ctx context.Context, r daykey.Range) (bool, error) {
	var count int64
	if err := s.between(ctx, r.Widen(s.tolerance)).Model(&db.ExerciseLog{}).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check exercise log: %w", err)
	}
	return count > 0, nil
}

// DailyActivity 一次性取回 [from, to] 内的打卡与运动记录并按天汇总，
// 结果与逐日调用 CountCompletedTasks / HasExerciseLog 一致。
func (s *ActivityLogService) DailyActivity(ctx context.Context, from, to daykey.DayKey) (map[daykey.DayKey]streak.DayActivity, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: %s is before %s", daykey.ErrInvalidInput, to, from)
	}
	window := s.cal.SpanRange(from, to)
	out := make(map[daykey.DayKey]streak.DayActivity)

	var completions []time.Time
	if err := s.db.WithContext(ctx).Model(&db.TaskCompletion{}).
		Where("status = ?", db.CompletionStatusCompleted).
		Where("completed_at >= ? AND completed_at < ?", storedTime(window.Start), storedTime(window.End)).
		Pluck("completed_at", &completions).Error; err != nil {
		return nil, fmt.Errorf("load task completions: %w", err)
	}
	for _, at := range completions {
		day, err := s.cal.DayKey(at)
		if err != nil {
			continue
		}
		a := out[day]
		a.CompletedTasks++
		out[day] = a
	}

	var exercises []time.Time
	if err := s.between(ctx, window.Widen(s.tolerance)).Model(&db.ExerciseLog{}).
		Pluck("logged_at", &exercises).Error; err != nil {
		return nil, fmt.Errorf("load exercise logs: %w", err)
	}
	for _, at := range exercises {
		for _, day := range s.daysCovering(at) {
			if day.Before(from) || day.After(to) {
				continue
			}
			a := out[day]
			a.HasExercise = true
			out[day] = a
		}
	}

	return out, nil
}

// daysCovering 返回放宽后的单日区间包含 at 的所有日期。
func (s *ActivityLogService) daysCovering(at time.Time) []daykey.DayKey {
	first, err := s.cal.DayKey(at.Add(-s.tolerance))
	if err != nil {
		return nil
	}
	last, err := s.cal.DayKey(at.Add(s.tolerance))
	if err != nil {
		return nil
	}
	var days []daykey.DayKey
	for _, day := range daykey.Span(first, last) {
		if s.cal.Range(day).Widen(s.tolerance).Contains(at) {
			days = append(days, day)
		}
	}
	return days
}
