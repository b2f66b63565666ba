package streak

import (
	"fmt"
	"slices"

	"github.com/lifelog/internal/daykey"
)

// Record 是某一天的连胜记录。
//
// StreakValid/IsRestDay 是由日志推导出的缓存；MilestonesReached 只增不减，
// BonusPointsAwarded 只记录在计算这一天时新达成的里程碑奖励，
// 累计积分需要对所有记录求和。
type Record struct {
	Date                  daykey.DayKey `json:"date"`
	RoutineTasksCompleted int           `json:"routine_tasks_completed"`
	HasExerciseLog        bool          `json:"has_exercise_log"`
	StreakValid           bool          `json:"streak_valid"`
	IsRestDay             bool          `json:"is_rest_day"`
	BonusPointsAwarded    int           `json:"bonus_points_awarded"`
	MilestonesReached     []int         `json:"milestones_reached"`
	Version               int           `json:"version"`
}

// Validate 校验记录是否与里程碑配置一致。
func (r Record) Validate(table MilestoneTable) error {
	if r.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrCorruptRecord)
	}
	if r.RoutineTasksCompleted < 0 {
		return fmt.Errorf("%w: %s has negative task count %d", ErrCorruptRecord, r.Date, r.RoutineTasksCompleted)
	}
	if r.BonusPointsAwarded < 0 {
		return fmt.Errorf("%w: %s has negative bonus %d", ErrCorruptRecord, r.Date, r.BonusPointsAwarded)
	}
	seen := make(map[int]struct{}, len(r.MilestonesReached))
	for _, days := range r.MilestonesReached {
		if days <= 0 {
			return fmt.Errorf("%w: %s has non-positive milestone %d", ErrCorruptRecord, r.Date, days)
		}
		if _, dup := seen[days]; dup {
			return fmt.Errorf("%w: %s has duplicate milestone %d", ErrCorruptRecord, r.Date, days)
		}
		seen[days] = struct{}{}
		if _, ok := table.Lookup(days); !ok {
			return fmt.Errorf("%w: %s has unknown milestone %d", ErrCorruptRecord, r.Date, days)
		}
	}
	return nil
}

func (r Record) clone() Record {
	r.MilestonesReached = slices.Clone(r.MilestonesReached)
	return r
}

func (r Record) sameState(other Record) bool {
	return r.Date == other.Date &&
		r.RoutineTasksCompleted == other.RoutineTasksCompleted &&
		r.HasExerciseLog == other.HasExerciseLog &&
		r.StreakValid == other.StreakValid &&
		r.IsRestDay == other.IsRestDay &&
		r.BonusPointsAwarded == other.BonusPointsAwarded &&
		slices.Equal(r.MilestonesReached, other.MilestonesReached)
}

// DayEvaluation 是某天的有效性判定明细。
type DayEvaluation struct {
	Date                  daykey.DayKey `json:"date"`
	Valid                 bool          `json:"valid"`
	IsRestDay             bool          `json:"is_rest_day"`
	RoutineTasksCompleted int           `json:"routine_tasks_completed"`
	HasExercise           bool          `json:"has_exercise"`
}

// UpdateResult 是 UpdateStreakForDate 的返回值。
// BonusPoints 为本次调用新增的奖励，DayBonusPoints 为该日累计奖励。
type UpdateResult struct {
	Date           daykey.DayKey `json:"date"`
	Valid          bool          `json:"valid"`
	IsRestDay      bool          `json:"is_rest_day"`
	CurrentStreak  int           `json:"current_streak"`
	BonusPoints    int           `json:"bonus_points"`
	NewMilestones  []int         `json:"new_milestones"`
	DayBonusPoints int           `json:"day_bonus_points"`
}
