package streak

import (
	"context"

	"github.com/lifelog/internal/daykey"
)

// activityLookup 以 DayKey 为单位查询日志，屏蔽逐日查询与批量预取的差异。
type activityLookup interface {
	completedTasks(ctx context.Context, day daykey.DayKey) (int, error)
	hasExercise(ctx context.Context, day daykey.DayKey) (bool, error)
}

// liveLookup 每次都向 LogSource 发起单日区间查询。
type liveLookup struct {
	src LogSource
	cal daykey.Calendar
}

func (l liveLookup) completedTasks(ctx context.Context, day daykey.DayKey) (int, error) {
	n, err := l.src.CountCompletedTasks(ctx, l.cal.Range(day))
	if err != nil {
		return 0, unavailable("count completed tasks", day, err)
	}
	return n, nil
}

func (l liveLookup) hasExercise(ctx context.Context, day daykey.DayKey) (bool, error) {
	ok, err := l.src.HasExerciseLog(ctx, l.cal.Range(day))
	if err != nil {
		return false, unavailable("check exercise log", day, err)
	}
	return ok, nil
}

// windowLookup 持有 [from, to] 的批量预取结果，窗口外的日期回退到逐日查询。
type windowLookup struct {
	from, to daykey.DayKey
	days     map[daykey.DayKey]DayActivity
	live     liveLookup
}

func (w windowLookup) covers(day daykey.DayKey) bool {
	return !day.Before(w.from) && !day.After(w.to)
}

func (w windowLookup) completedTasks(ctx context.Context, day daykey.DayKey) (int, error) {
	if !w.covers(day) {
		return w.live.completedTasks(ctx, day)
	}
	return w.days[day].CompletedTasks, nil
}

func (w windowLookup) hasExercise(ctx context.Context, day daykey.DayKey) (bool, error) {
	if !w.covers(day) {
		return w.live.hasExercise(ctx, day)
	}
	return w.days[day].HasExercise, nil
}
