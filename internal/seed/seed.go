// Package seed 生成本地演示用的例行任务与历史打卡数据。
package seed

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/lifelog/internal/daykey"
	"github.com/lifelog/internal/db"
	"github.com/lifelog/internal/service"
	"github.com/lifelog/internal/streak"
	log "github.com/sirupsen/logrus"
)

// DefaultDays 是默认生成的历史天数。
const DefaultDays = 30

var defaultTasks = []service.TaskInput{
	{Name: "早起", Category: "morning", SortOrder: 1},
	{Name: "冥想十分钟", Category: "morning", SortOrder: 2},
	{Name: "喝够八杯水", Category: "health", SortOrder: 3},
	{Name: "整理桌面", Category: "work", SortOrder: 4},
	{Name: "写日记", Category: "evening", SortOrder: 5},
	{Name: "拉伸", Category: "health", SortOrder: 6},
}

var exerciseKinds = []string{"跑步", "力量训练", "游泳", "骑行"}

// Options 控制生成范围。
type Options struct {
	Days  int
	Today daykey.DayKey
	Seed  uint64
	Force bool
}

// Result 汇总一次生成。
type Result struct {
	Skipped       bool `json:"skipped"`
	TasksCreated  int  `json:"tasks_created"`
	Days          int  `json:"days"`
	ValidDays     int  `json:"valid_days"`
	CurrentStreak int  `json:"current_streak"`
	BonusPoints   int  `json:"bonus_points"`
}

// Seeder 通过服务层写入数据，并用连胜引擎从旧到新逐日重算。
type Seeder struct {
	tasks  *service.TaskService
	logs   *service.ActivityLogService
	engine *streak.Engine
}

// NewSeeder 构造 Seeder
func NewSeeder(tasks *service.TaskService, logs *service.ActivityLogService, engine *streak.Engine) *Seeder {
	return &Seeder{tasks: tasks, logs: logs, engine: engine}
}

// Run 生成数据。已有任务时跳过，除非 Force。
func (s *Seeder) Run(ctx context.Context, opts Options) (Result, error) {
	if opts.Days <= 0 {
		opts.Days = DefaultDays
	}
	if opts.Days > streak.MaxLookbackDays {
		opts.Days = streak.MaxLookbackDays
	}
	if opts.Today.IsZero() {
		today, err := s.engine.Today()
		if err != nil {
			return Result{}, err
		}
		opts.Today = today
	}

	count, err := s.tasks.Count()
	if err != nil {
		return Result{}, err
	}
	if count > 0 && !opts.Force {
		log.WithField("tasks", count).Info("任务已存在，跳过生成")
		return Result{Skipped: true}, nil
	}

	var result Result
	tasks, err := s.tasks.List(service.TaskFilter{})
	if err != nil {
		return Result{}, err
	}
	if len(tasks) == 0 {
		for _, input := range defaultTasks {
			task, err := s.tasks.Create(input)
			if err != nil {
				return Result{}, err
			}
			tasks = append(tasks, *task)
			result.TasksCreated++
		}
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	loc := s.engine.Calendar().Location()
	first := opts.Today.AddDays(-(opts.Days - 1))

	for _, day := range daykey.Span(first, opts.Today) {
		if err := s.seedDay(ctx, rng, tasks, day, loc); err != nil {
			return Result{}, fmt.Errorf("seed %s: %w", day, err)
		}
		update, err := s.engine.UpdateStreakForDate(ctx, day)
		if err != nil {
			return Result{}, fmt.Errorf("recompute %s: %w", day, err)
		}
		result.Days++
		if update.Valid {
			result.ValidDays++
		}
		result.CurrentStreak = update.CurrentStreak
		result.BonusPoints += update.BonusPoints
	}

	log.WithFields(log.Fields{
		"days":           result.Days,
		"valid_days":     result.ValidDays,
		"current_streak": result.CurrentStreak,
		"bonus_points":   result.BonusPoints,
	}).Info("测试数据生成完成")
	return result, nil
}

// seedDay 大约八成的日子完成足够多的任务，七成的日子有运动。
func (s *Seeder) seedDay(ctx context.Context, rng *rand.Rand, tasks []db.Task, day daykey.DayKey, loc *time.Location) error {
	done := 2 + rng.IntN(3)
	if rng.Float64() < 0.8 {
		done = min(len(tasks), 5+rng.IntN(2))
	}
	order := rng.Perm(len(tasks))
	for i, idx := range order {
		input := service.CompletionInput{TaskID: tasks[idx].ID, Date: day}
		var err error
		if i < done {
			_, err = s.logs.Complete(ctx, input)
		} else if rng.Float64() < 0.3 {
			_, err = s.logs.Skip(ctx, input)
		}
		if err != nil {
			return err
		}
	}

	start := day.StartOfDay(loc)
	if rng.Float64() < 0.7 {
		if _, err := s.logs.LogExercise(ctx, service.ExerciseInput{
			Kind:            exerciseKinds[rng.IntN(len(exerciseKinds))],
			DurationMinutes: 20 + rng.IntN(40),
			LoggedAt:        start.Add(7*time.Hour + time.Duration(rng.IntN(90))*time.Minute),
		}); err != nil {
			return err
		}
	}
	if rng.Float64() < 0.5 {
		if _, err := s.logs.LogReading(ctx, service.ReadingInput{
			Title:    "Designing Data-Intensive Applications",
			Pages:    10 + rng.IntN(30),
			LoggedAt: start.Add(21 * time.Hour),
		}); err != nil {
			return err
		}
	}
	if rng.Float64() < 0.4 {
		if _, err := s.logs.LogLearning(ctx, service.LearningInput{
			Topic:    "Go",
			Minutes:  15 + rng.IntN(45),
			LoggedAt: start.Add(20 * time.Hour),
		}); err != nil {
			return err
		}
	}
	return nil
}
