package db

import "gorm.io/gorm"

// SystemSetting 存储可在运行时调整的系统级键值对。
type SystemSetting struct {
	gorm.Model
	Key   string `gorm:"size:100;uniqueIndex;not null"`
	Value string `gorm:"type:text"`
}

// TableName 自定义表名以保持命名一致。
func (SystemSetting) TableName() string {
	return "system_settings"
}

const (
	// SettingKeyStreakMilestones 存储 YAML 格式的里程碑奖励表。
	SettingKeyStreakMilestones = "streak_milestones"
)
