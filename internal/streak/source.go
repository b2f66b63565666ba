package streak

import (
	"context"
	"time"

	"github.com/lifelog/internal/daykey"
)

// LogSource 提供按时间区间统计的打卡与运动日志。
type LogSource interface {
	CountCompletedTasks(ctx context.Context, r daykey.Range) (int, error)
	HasExerciseLog(ctx context.Context, r daykey.Range) (bool, error)
}

// DayActivity 是某一天的日志汇总。
type DayActivity struct {
	CompletedTasks int
	HasExercise    bool
}

// BulkLogSource 可以一次性返回 [from, to] 内每天的汇总，
// 缺失的日期视为没有任何日志。
type BulkLogSource interface {
	LogSource
	DailyActivity(ctx context.Context, from, to daykey.DayKey) (map[daykey.DayKey]DayActivity, error)
}

// RecordStore 按 DayKey 持久化每日连胜记录。
//
// Upsert 以 expectedVersion 做乐观并发控制：0 表示记录尚不存在，
// 其余值必须与库中版本一致，否则返回 ErrVersionConflict。
// 返回的记录携带新版本号。
type RecordStore interface {
	Get(ctx context.Context, day daykey.DayKey) (Record, bool, error)
	Upsert(ctx context.Context, record Record, expectedVersion int) (Record, error)
	ListValid(ctx context.Context) ([]Record, error)
	List(ctx context.Context) ([]Record, error)
}

// MilestoneProvider 返回当前生效的里程碑配置。
type MilestoneProvider interface {
	Milestones(ctx context.Context) (MilestoneTable, error)
}

// StaticMilestones 是固定不变的里程碑配置。
type StaticMilestones MilestoneTable

// Milestones 实现 MilestoneProvider。
func (s StaticMilestones) Milestones(context.Context) (MilestoneTable, error) {
	return MilestoneTable(s), nil
}

// Clock 抽象“当前时间”，便于测试注入。
type Clock interface {
	Now() time.Time
}

// ClockFunc 让普通函数实现 Clock。
type ClockFunc func() time.Time

// Now 实现 Clock。
func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock 使用 time.Now。
var SystemClock Clock = ClockFunc(time.Now)

// FixedClock 总是返回同一时间。
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}
