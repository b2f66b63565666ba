package streak

import (
	"context"
	"fmt"
	"slices"

	"github.com/lifelog/internal/daykey"
	"github.com/lifelog/internal/metrics"
)

// MaxLookbackDays 是当前连胜向前回溯的硬上限。
//
// 这是防止数据缺失或损坏时无限扫描的保护，而不是产品规则：
// 超过上限时扫描直接停止并返回已累计的天数，不报错。
const MaxLookbackDays = 365

// restDayLookback 是休息日判定需要额外回看的天数。
const restDayLookback = 2

// CurrentStreak 返回截至 today 的当前连胜：从 today-1 开始逐日向前，
// 遇到无效日即停止；today 本身有效时再加一。结果不超过 MaxLookbackDays。
func (e *Engine) CurrentStreak(ctx context.Context, today daykey.DayKey) (int, error) {
	if today.IsZero() {
		return 0, fmt.Errorf("%w: zero day key", ErrInvalidInput)
	}
	lookup, err := e.window(ctx, today)
	if err != nil {
		return 0, err
	}

	run, err := e.runBefore(ctx, lookup, today)
	if err != nil {
		return 0, err
	}
	eval, err := e.evaluateWith(ctx, lookup, today)
	if err != nil {
		return 0, err
	}
	return withToday(run, eval.Valid), nil
}

func withToday(run int, todayValid bool) int {
	if todayValid {
		run++
	}
	return min(run, MaxLookbackDays)
}

// runBefore 统计 day 之前连续有效的天数，最多回溯 MaxLookbackDays 天。
func (e *Engine) runBefore(ctx context.Context, lookup activityLookup, day daykey.DayKey) (int, error) {
	count := 0
	check := day.AddDays(-1)
	for i := 0; i < MaxLookbackDays; i++ {
		eval, err := e.evaluateWith(ctx, lookup, check)
		if err != nil {
			return 0, err
		}
		if !eval.Valid {
			return count, nil
		}
		count++
		check = check.AddDays(-1)
	}

	metrics.ObserveScanCap()
	e.log.WithField("date", day.String()).
		WithField("cap", MaxLookbackDays).
		Debug("current streak scan stopped at lookback cap")
	return count, nil
}

// window 为以 day 结尾的回溯窗口准备日志查询。
// 日志源支持批量查询时一次取回整个窗口，否则逐日查询。
func (e *Engine) window(ctx context.Context, day daykey.DayKey) (activityLookup, error) {
	live := e.live()
	bulk, ok := e.logs.(BulkLogSource)
	if !ok {
		return live, nil
	}

	from := day.AddDays(-(MaxLookbackDays + restDayLookback))
	days, err := bulk.DailyActivity(ctx, from, day)
	if err != nil {
		return nil, unavailable("load daily activity from", from, err)
	}
	return windowLookup{from: from, to: day, days: days, live: live}, nil
}

func (e *Engine) live() liveLookup {
	return liveLookup{src: e.logs, cal: e.cal}
}

// LongestStreak 在按日期升序的有效记录中寻找最长的连续天数，
// 并与 current 取最大值（进行中的连胜可能超过任何历史区段）。
func LongestStreak(records []Record, current int) int {
	valid := make([]daykey.DayKey, 0, len(records))
	for _, r := range records {
		if r.StreakValid {
			valid = append(valid, r.Date)
		}
	}
	slices.SortFunc(valid, func(a, b daykey.DayKey) int { return a.Compare(b) })

	longest, run := 0, 0
	for i, d := range valid {
		if i > 0 && daykey.Between(valid[i-1], d) == 1 {
			run++
		} else {
			run = 1
		}
		longest = max(longest, run)
	}
	return max(longest, current)
}
