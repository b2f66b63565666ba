package db

import (
	"time"

	"github.com/lifelog/internal/daykey"
	"gorm.io/gorm"
)

// 任务状态。
const (
	TaskStatusActive   = "active"
	TaskStatusArchived = "archived"
)

// 打卡状态，只有 completed 计入连胜。
const (
	CompletionStatusCompleted = "completed"
	CompletionStatusSkipped   = "skipped"
)

// Task 是一项日常例行任务。
// Category 用于分组展示，SortOrder 控制列表顺序。
type Task struct {
	gorm.Model
	Name        string `gorm:"size:120;not null"`
	Description string
	Category    string `gorm:"size:60;index"`
	Status      string `gorm:"size:20;index;not null;default:active"`
	SortOrder   int
}

// TaskCompletion 记录某任务在某天的完成或跳过。
// TaskID + Date 唯一，保证同一天重复打卡是幂等的；
// CompletedAt 以 UTC 存储，连胜统计按它落在哪个自然日区间计算。
type TaskCompletion struct {
	gorm.Model
	TaskID      uint          `gorm:"index;uniqueIndex:idx_task_completion_day"`
	Task        Task          `gorm:"constraint:OnDelete:CASCADE"`
	Date        daykey.DayKey `gorm:"size:10;uniqueIndex:idx_task_completion_day;not null"`
	CompletedAt time.Time     `gorm:"index;not null"`
	Status      string        `gorm:"size:20;index;not null"`
	Note        string
}

// TableName 固定表名，确保唯一索引作用到 task_id + date。
func (TaskCompletion) TableName() string {
	return "task_completions"
}
