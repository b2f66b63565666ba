package db

import (
	"time"

	"gorm.io/gorm"
)

// ExerciseLog 是一条运动记录，是否存在决定当天能否不依赖休息日规则而有效。
type ExerciseLog struct {
	gorm.Model
	Kind            string `gorm:"size:60"`
	DurationMinutes int
	LoggedAt        time.Time `gorm:"index;not null"`
	Note            string    `gorm:"type:text"`
}

// ReadingLog 是一条阅读记录。
type ReadingLog struct {
	gorm.Model
	Title    string `gorm:"size:200"`
	Pages    int
	LoggedAt time.Time `gorm:"index;not null"`
	Note     string    `gorm:"type:text"`
}

// LearningLog 是一条学习记录。
type LearningLog struct {
	gorm.Model
	Topic    string `gorm:"size:200"`
	Minutes  int
	LoggedAt time.Time `gorm:"index;not null"`
	Note     string    `gorm:"type:text"`
}
