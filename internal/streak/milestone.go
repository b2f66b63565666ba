package streak

import (
	"fmt"
	"slices"
	"strings"
)

// Milestone 描述一个连胜天数门槛及其一次性奖励。
type Milestone struct {
	Days   int    `json:"days" yaml:"days"`
	Points int    `json:"points" yaml:"points"`
	Label  string `json:"label" yaml:"label"`
}

// MilestoneTable 按 Days 严格升序排列。
type MilestoneTable []Milestone

// DefaultMilestones 返回内置的奖励表。
func DefaultMilestones() MilestoneTable {
	return MilestoneTable{
		{Days: 7, Points: 100, Label: "Week Warrior"},
		{Days: 14, Points: 250, Label: "Fortnight Fighter"},
		{Days: 30, Points: 500, Label: "Month Master"},
		{Days: 60, Points: 1000, Label: "Habit Hero"},
		{Days: 100, Points: 2000, Label: "Century Champion"},
		{Days: 365, Points: 10000, Label: "Year Legend"},
	}
}

// Validate 校验天数为正且严格升序、积分非负、名称非空。
func (t MilestoneTable) Validate() error {
	prev := 0
	for i, m := range t {
		if m.Days <= 0 {
			return fmt.Errorf("%w: entry %d has non-positive days %d", ErrInvalidMilestones, i, m.Days)
		}
		if m.Days <= prev {
			return fmt.Errorf("%w: entry %d (%d days) is not ascending", ErrInvalidMilestones, i, m.Days)
		}
		if m.Points < 0 {
			return fmt.Errorf("%w: entry %d has negative points", ErrInvalidMilestones, i)
		}
		if strings.TrimSpace(m.Label) == "" {
			return fmt.Errorf("%w: entry %d has empty label", ErrInvalidMilestones, i)
		}
		prev = m.Days
	}
	return nil
}

// Lookup 按天数查找里程碑。
func (t MilestoneTable) Lookup(days int) (Milestone, bool) {
	for _, m := range t {
		if m.Days == days {
			return m, true
		}
	}
	return Milestone{}, false
}

// NextUnreached 返回第一个不在 reached 中的里程碑。
func (t MilestoneTable) NextUnreached(reached []int) (Milestone, bool) {
	for _, m := range t {
		if !slices.Contains(reached, m.Days) {
			return m, true
		}
	}
	return Milestone{}, false
}

// Reconciliation 是一次里程碑比对的结果。
type Reconciliation struct {
	NewMilestones []int
	BonusPoints   int
}

// ReconcileMilestones 找出 streakLen 已经达到、但 previouslyReached 中还没有的门槛。
// 用更新后的 previouslyReached 重复调用时结果为空，因此天然幂等。
// 只应在当天有效时调用。
func ReconcileMilestones(table MilestoneTable, streakLen int, previouslyReached []int) Reconciliation {
	var result Reconciliation
	for _, m := range table {
		if streakLen < m.Days {
			break
		}
		if slices.Contains(previouslyReached, m.Days) {
			continue
		}
		result.NewMilestones = append(result.NewMilestones, m.Days)
		result.BonusPoints += m.Points
	}
	return result
}

// mergeMilestones 返回两个集合的升序并集。
func mergeMilestones(a, b []int) []int {
	merged := make([]int, 0, len(a)+len(b))
	merged = append(merged, a...)
	merged = append(merged, b...)
	slices.Sort(merged)
	return slices.Compact(merged)
}
