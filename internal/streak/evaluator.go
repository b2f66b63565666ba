package streak

import (
	"context"
	"fmt"

	"github.com/lifelog/internal/daykey"
)

// DefaultMinRoutineTasks 是一天计入连胜所需的最少完成任务数。
const DefaultMinRoutineTasks = 5

// Evaluate 判定某天是否计入连胜：
// 任务数达标且有运动记录即有效；任务数达标但无运动时，
// 只有满足休息日条件才有效；任务数不足一律无效。
func (e *Engine) Evaluate(ctx context.Context, day daykey.DayKey) (DayEvaluation, error) {
	if day.IsZero() {
		return DayEvaluation{}, fmt.Errorf("%w: zero day key", ErrInvalidInput)
	}
	return e.evaluateWith(ctx, e.live(), day)
}

// IsEligibleRestDay 仅当前两天（day-1 与 day-2）都有运动记录时返回 true。
// 每次都直接查运动日志，不参考前几天缓存的 StreakValid。
func (e *Engine) IsEligibleRestDay(ctx context.Context, day daykey.DayKey) (bool, error) {
	if day.IsZero() {
		return false, fmt.Errorf("%w: zero day key", ErrInvalidInput)
	}
	return e.restDayWith(ctx, e.live(), day)
}

func (e *Engine) evaluateWith(ctx context.Context, lookup activityLookup, day daykey.DayKey) (DayEvaluation, error) {
	tasks, err := lookup.completedTasks(ctx, day)
	if err != nil {
		return DayEvaluation{}, err
	}
	exercise, err := lookup.hasExercise(ctx, day)
	if err != nil {
		return DayEvaluation{}, err
	}

	eval := DayEvaluation{Date: day, RoutineTasksCompleted: tasks, HasExercise: exercise}
	if tasks < e.minTasks {
		return eval, nil
	}
	if exercise {
		eval.Valid = true
		return eval, nil
	}

	eligible, err := e.restDayWith(ctx, lookup, day)
	if err != nil {
		return DayEvaluation{}, err
	}
	eval.Valid = eligible
	eval.IsRestDay = eligible
	return eval, nil
}

func (e *Engine) restDayWith(ctx context.Context, lookup activityLookup, day daykey.DayKey) (bool, error) {
	for _, offset := range []int{-1, -2} {
		ok, err := lookup.hasExercise(ctx, day.AddDays(offset))
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
