package streak

import (
	"context"
	"fmt"
	"time"

	"github.com/lifelog/internal/daykey"
)

// snapshotDays 是仪表盘展示的最近天数。
const snapshotDays = 7

// TodayBreakdown 是今天的判定明细及距离达标还差的任务数。
type TodayBreakdown struct {
	DayEvaluation
	MinRoutineTasks int `json:"min_routine_tasks"`
	TasksRemaining  int `json:"tasks_remaining"`
}

// NextMilestone 是下一个尚未达成的里程碑。
type NextMilestone struct {
	Milestone
	DaysRemaining int `json:"days_remaining"`
}

// Snapshot 是仪表盘读取的连胜汇总，每次请求重新计算。
type Snapshot struct {
	Today             daykey.DayKey   `json:"today"`
	CurrentStreak     int             `json:"current_streak"`
	LongestStreak     int             `json:"longest_streak"`
	TodayBreakdown    TodayBreakdown  `json:"today_breakdown"`
	Last7Days         []DayEvaluation `json:"last_7_days"`
	NextMilestone     *NextMilestone  `json:"next_milestone,omitempty"`
	TotalBonusPoints  int             `json:"total_bonus_points"`
	ReachedMilestones []Milestone     `json:"reached_milestones"`
	GeneratedAt       time.Time       `json:"generated_at"`
	Stale             bool            `json:"stale"`
}

// Snapshot 计算参考时区下"今天"的汇总。只读，不写入任何记录。
// 日志查询失败时返回 ErrDataUnavailable，由调用方决定是否展示旧数据。
func (e *Engine) Snapshot(ctx context.Context) (Snapshot, error) {
	now := e.clock.Now()
	today, err := e.cal.DayKey(now)
	if err != nil {
		return Snapshot{}, err
	}
	return e.SnapshotAt(ctx, today, now)
}

// SnapshotAt 以指定日期作为"今天"计算汇总。
func (e *Engine) SnapshotAt(ctx context.Context, today daykey.DayKey, now time.Time) (Snapshot, error) {
	if today.IsZero() {
		return Snapshot{}, fmt.Errorf("%w: zero day key", ErrInvalidInput)
	}
	table, err := e.table(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	lookup, err := e.window(ctx, today)
	if err != nil {
		return Snapshot{}, err
	}
	todayEval, err := e.evaluateWith(ctx, lookup, today)
	if err != nil {
		return Snapshot{}, err
	}
	run, err := e.runBefore(ctx, lookup, today)
	if err != nil {
		return Snapshot{}, err
	}
	current := withToday(run, todayEval.Valid)

	last7 := make([]DayEvaluation, 0, snapshotDays)
	for _, day := range daykey.Span(today.AddDays(-(snapshotDays - 1)), today) {
		if day == today {
			last7 = append(last7, todayEval)
			continue
		}
		eval, err := e.evaluateWith(ctx, lookup, day)
		if err != nil {
			return Snapshot{}, err
		}
		last7 = append(last7, eval)
	}

	records, err := e.store.List(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list daily records: %w", err)
	}
	records = e.usable(records, table)

	var reached []int
	total := 0
	for _, r := range records {
		reached = mergeMilestones(reached, r.MilestonesReached)
		total += r.BonusPointsAwarded
	}

	// 最长连胜只看有效日；损坏记录已在上面记录过日志，这里直接跳过。
	validRecords, err := e.store.ListValid(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list valid daily records: %w", err)
	}
	valid := make([]Record, 0, len(validRecords))
	for _, r := range validRecords {
		if r.Validate(table) == nil {
			valid = append(valid, r)
		}
	}

	snap := Snapshot{
		Today:         today,
		CurrentStreak: current,
		LongestStreak: LongestStreak(valid, current),
		TodayBreakdown: TodayBreakdown{
			DayEvaluation:   todayEval,
			MinRoutineTasks: e.minTasks,
			TasksRemaining:  max(e.minTasks-todayEval.RoutineTasksCompleted, 0),
		},
		Last7Days:         last7,
		TotalBonusPoints:  total,
		ReachedMilestones: make([]Milestone, 0, len(reached)),
		GeneratedAt:       now,
	}
	for _, days := range reached {
		if m, ok := table.Lookup(days); ok {
			snap.ReachedMilestones = append(snap.ReachedMilestones, m)
		}
	}
	if next, ok := table.NextUnreached(reached); ok {
		snap.NextMilestone = &NextMilestone{
			Milestone:     next,
			DaysRemaining: max(next.Days-current, 0),
		}
	}
	return snap, nil
}
