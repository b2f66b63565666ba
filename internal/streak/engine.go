// Package streak 实现连胜判定与里程碑奖励。
//
// Engine 是无状态的：每次调用都从日志源和记录仓库重新推导，
// 只在 UpdateStreakForDate / RepairRecord 中写入单日记录。
package streak

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lifelog/internal/daykey"
	"github.com/lifelog/internal/metrics"
	"github.com/sirupsen/logrus"
)

// Engine 组合日志源、记录仓库、参考日历与里程碑配置。
type Engine struct {
	logs       LogSource
	store      RecordStore
	cal        daykey.Calendar
	clock      Clock
	milestones MilestoneProvider
	minTasks   int
	log        logrus.FieldLogger
}

// NewEngine 构造 Engine，默认使用系统时钟、内置里程碑表和最少 5 个任务的规则。
func NewEngine(logs LogSource, store RecordStore, cal daykey.Calendar) *Engine {
	return &Engine{
		logs:       logs,
		store:      store,
		cal:        cal,
		clock:      SystemClock,
		milestones: StaticMilestones(DefaultMilestones()),
		minTasks:   DefaultMinRoutineTasks,
		log:        logrus.StandardLogger(),
	}
}

// WithClock 替换时钟。
func (e *Engine) WithClock(clock Clock) *Engine {
	if clock != nil {
		e.clock = clock
	}
	return e
}

// WithMinRoutineTasks 调整有效日所需的任务数，n<=0 时忽略。
func (e *Engine) WithMinRoutineTasks(n int) *Engine {
	if n > 0 {
		e.minTasks = n
	}
	return e
}

// WithMilestones 替换里程碑配置来源。
func (e *Engine) WithMilestones(provider MilestoneProvider) *Engine {
	if provider != nil {
		e.milestones = provider
	}
	return e
}

// WithLogger 替换日志输出。
func (e *Engine) WithLogger(logger logrus.FieldLogger) *Engine {
	if logger != nil {
		e.log = logger
	}
	return e
}

// Calendar 返回参考日历。
func (e *Engine) Calendar() daykey.Calendar {
	return e.cal
}

// Today 返回参考时区下的今天。
func (e *Engine) Today() (daykey.DayKey, error) {
	return e.cal.DayKey(e.clock.Now())
}

// Now 返回引擎时钟的当前时间。
func (e *Engine) Now() time.Time {
	return e.clock.Now()
}

// CheckNotFuture 拒绝晚于今天的日期，未来日期的输入尚不存在。
func (e *Engine) CheckNotFuture(day daykey.DayKey) error {
	today, err := e.Today()
	if err != nil {
		return err
	}
	if day.After(today) {
		return fmt.Errorf("%w: %s", ErrFutureDay, day)
	}
	return nil
}

func (e *Engine) table(ctx context.Context) (MilestoneTable, error) {
	table, err := e.milestones.Milestones(ctx)
	if err != nil {
		return nil, fmt.Errorf("load milestones: %w", err)
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// UpdateStreakForDate 重新计算并持久化某天的记录。
//
// 流程：判定当天有效性 -> 计算截至当天的连胜 -> 与已达成的里程碑比对 ->
// 以版本号做读-改-写。同一输入重复调用不会重复发放奖励。
// 当天已有记录校验失败时返回 ErrCorruptRecord 且不写入，需先调用 RepairRecord。
// 晚于今天的日期返回 ErrFutureDay。
func (e *Engine) UpdateStreakForDate(ctx context.Context, day daykey.DayKey) (UpdateResult, error) {
	started := time.Now()
	result, outcome, err := e.updateStreakForDate(ctx, day)
	metrics.ObserveRecompute(outcome, time.Since(started))
	return result, err
}

func (e *Engine) updateStreakForDate(ctx context.Context, day daykey.DayKey) (UpdateResult, string, error) {
	if day.IsZero() {
		return UpdateResult{}, metrics.OutcomeError, fmt.Errorf("%w: zero day key", ErrInvalidInput)
	}
	if err := e.CheckNotFuture(day); err != nil {
		return UpdateResult{}, metrics.OutcomeError, err
	}

	table, err := e.table(ctx)
	if err != nil {
		return UpdateResult{}, metrics.OutcomeError, err
	}

	lookup, err := e.window(ctx, day)
	if err != nil {
		return UpdateResult{}, metrics.OutcomeUnavailable, err
	}
	eval, err := e.evaluateWith(ctx, lookup, day)
	if err != nil {
		return UpdateResult{}, metrics.OutcomeUnavailable, err
	}
	run, err := e.runBefore(ctx, lookup, day)
	if err != nil {
		return UpdateResult{}, metrics.OutcomeUnavailable, err
	}
	current := withToday(run, eval.Valid)

	previous, found, err := e.store.Get(ctx, day)
	if err != nil {
		return UpdateResult{}, metrics.OutcomeError, fmt.Errorf("load daily record %s: %w", day, err)
	}
	if found {
		if err := previous.Validate(table); err != nil {
			metrics.ObserveCorruptRecord()
			e.log.WithError(err).WithField("date", day.String()).Error("refusing to recompute corrupt daily record")
			return UpdateResult{}, metrics.OutcomeCorrupt, err
		}
	} else {
		previous = Record{Date: day}
	}

	var rec Reconciliation
	if eval.Valid {
		reached, err := e.reachedMilestones(ctx, table)
		if err != nil {
			return UpdateResult{}, metrics.OutcomeError, err
		}
		rec = ReconcileMilestones(table, current, mergeMilestones(reached, previous.MilestonesReached))
	}

	next := previous.clone()
	next.RoutineTasksCompleted = eval.RoutineTasksCompleted
	next.HasExerciseLog = eval.HasExercise
	next.StreakValid = eval.Valid
	next.IsRestDay = eval.IsRestDay
	next.MilestonesReached = mergeMilestones(previous.MilestonesReached, rec.NewMilestones)
	next.BonusPointsAwarded = previous.BonusPointsAwarded + rec.BonusPoints

	result := UpdateResult{
		Date:          day,
		Valid:         eval.Valid,
		IsRestDay:     eval.IsRestDay,
		CurrentStreak: current,
		BonusPoints:   rec.BonusPoints,
		NewMilestones: rec.NewMilestones,
	}

	if found && previous.sameState(next) {
		result.DayBonusPoints = previous.BonusPointsAwarded
		return result, metrics.OutcomeUnchanged, nil
	}

	saved, err := e.store.Upsert(ctx, next, previous.Version)
	if err != nil {
		if errors.Is(err, ErrVersionConflict) {
			e.log.WithField("date", day.String()).Warn("daily record changed during recompute")
			return UpdateResult{}, metrics.OutcomeConflict, err
		}
		return UpdateResult{}, metrics.OutcomeError, fmt.Errorf("save daily record %s: %w", day, err)
	}
	result.DayBonusPoints = saved.BonusPointsAwarded

	for _, days := range rec.NewMilestones {
		m, _ := table.Lookup(days)
		metrics.ObserveMilestone(m.Days, m.Points)
		e.log.WithFields(logrus.Fields{
			"date":   day.String(),
			"days":   m.Days,
			"label":  m.Label,
			"points": m.Points,
		}).Info("streak milestone reached")
	}

	return result, metrics.OutcomeOK, nil
}

// reachedMilestones 汇总所有记录中已经达成的里程碑，里程碑一生只奖励一次。
// 校验失败的记录按空记录处理。
func (e *Engine) reachedMilestones(ctx context.Context, table MilestoneTable) ([]int, error) {
	records, err := e.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list daily records: %w", err)
	}
	var reached []int
	for _, r := range e.usable(records, table) {
		reached = mergeMilestones(reached, r.MilestonesReached)
	}
	return reached, nil
}

// usable 过滤掉校验失败的记录并记录日志。
func (e *Engine) usable(records []Record, table MilestoneTable) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if err := r.Validate(table); err != nil {
			metrics.ObserveCorruptRecord()
			e.log.WithError(err).WithField("date", r.Date.String()).Warn("ignoring corrupt daily record")
			continue
		}
		out = append(out, r)
	}
	return out
}

// EnsureDay 在某天尚无记录时计算并写入，已有记录时不做任何事。
func (e *Engine) EnsureDay(ctx context.Context, day daykey.DayKey) (bool, error) {
	if day.IsZero() {
		return false, fmt.Errorf("%w: zero day key", ErrInvalidInput)
	}
	_, found, err := e.store.Get(ctx, day)
	if err != nil {
		return false, fmt.Errorf("load daily record %s: %w", day, err)
	}
	if found {
		return false, nil
	}
	if _, err := e.UpdateStreakForDate(ctx, day); err != nil {
		return false, err
	}
	return true, nil
}

// RepairResult 描述一次显式修复。
type RepairResult struct {
	Record            Record `json:"record"`
	DroppedMilestones []int  `json:"dropped_milestones"`
	Repaired          bool   `json:"repaired"`
}

// RepairRecord 显式修复校验失败的记录：剔除未知、重复或非正的里程碑，
// 按保留下来的里程碑重算奖励，并根据日志重新判定有效性。
// 记录本身合法时不做修改。
func (e *Engine) RepairRecord(ctx context.Context, day daykey.DayKey) (RepairResult, error) {
	if day.IsZero() {
		return RepairResult{}, fmt.Errorf("%w: zero day key", ErrInvalidInput)
	}
	table, err := e.table(ctx)
	if err != nil {
		return RepairResult{}, err
	}

	record, found, err := e.store.Get(ctx, day)
	if err != nil {
		return RepairResult{}, fmt.Errorf("load daily record %s: %w", day, err)
	}
	if !found {
		return RepairResult{}, fmt.Errorf("repair %s: no daily record", day)
	}
	if record.Validate(table) == nil {
		return RepairResult{Record: record}, nil
	}

	eval, err := e.Evaluate(ctx, day)
	if err != nil {
		return RepairResult{}, err
	}

	repaired := record.clone()
	repaired.MilestonesReached = nil
	repaired.BonusPointsAwarded = 0
	var dropped []int
	seen := make(map[int]struct{})
	for _, days := range record.MilestonesReached {
		m, ok := table.Lookup(days)
		if _, dup := seen[days]; dup || !ok {
			dropped = append(dropped, days)
			continue
		}
		seen[days] = struct{}{}
		repaired.MilestonesReached = mergeMilestones(repaired.MilestonesReached, []int{days})
		repaired.BonusPointsAwarded += m.Points
	}
	repaired.RoutineTasksCompleted = eval.RoutineTasksCompleted
	repaired.HasExerciseLog = eval.HasExercise
	repaired.StreakValid = eval.Valid
	repaired.IsRestDay = eval.IsRestDay

	saved, err := e.store.Upsert(ctx, repaired, record.Version)
	if err != nil {
		return RepairResult{}, fmt.Errorf("save repaired record %s: %w", day, err)
	}

	e.log.WithFields(logrus.Fields{
		"date":    day.String(),
		"dropped": dropped,
	}).Warn("daily streak record repaired")

	return RepairResult{Record: saved, DroppedMilestones: dropped, Repaired: true}, nil
}
