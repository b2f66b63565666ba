package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lifelog/internal/daykey"
)

// DailyStreakRecord 是每个自然日一条的连胜记录。
// Version 每次写入加一，用于乐观并发控制。
type DailyStreakRecord struct {
	ID                    uint          `gorm:"primarykey"`
	Date                  daykey.DayKey `gorm:"size:10;uniqueIndex;not null"`
	RoutineTasksCompleted int           `gorm:"not null;default:0"`
	HasExerciseLog        bool          `gorm:"not null;default:false"`
	StreakValid           bool          `gorm:"index;not null;default:false"`
	IsRestDay             bool          `gorm:"not null;default:false"`
	BonusPointsAwarded    int           `gorm:"not null;default:0"`
	MilestonesReached     MilestoneSet  `gorm:"type:text"`
	Version               int           `gorm:"not null;default:0"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// TableName 自定义表名。
func (DailyStreakRecord) TableName() string {
	return "daily_streak_records"
}

// MilestoneSet 以 JSON 数组形式存储已达成的里程碑天数。
type MilestoneSet []int

// Value 实现 driver.Valuer。
func (m MilestoneSet) Value() (driver.Value, error) {
	if len(m) == 0 {
		return "[]", nil
	}
	raw, err := json.Marshal([]int(m))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan 实现 sql.Scanner。
func (m *MilestoneSet) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into MilestoneSet", src)
	}
	if len(raw) == 0 {
		*m = nil
		return nil
	}
	var days []int
	if err := json.Unmarshal(raw, &days); err != nil {
		return fmt.Errorf("decode milestone set: %w", err)
	}
	*m = days
	return nil
}
