package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/lifelog/internal/daykey"
	"github.com/lifelog/internal/db"
	"github.com/lifelog/internal/streak"
	"gorm.io/gorm"
)

// RecordService 基于 gorm 持久化每日连胜记录，实现 streak.RecordStore。
type RecordService struct {
	db *gorm.DB
}

// NewRecordService 构造 RecordService
func NewRecordService(gdb *gorm.DB) *RecordService {
	return &RecordService{db: gdb}
}

// Get 读取某天的记录
func (s *RecordService) Get(ctx context.Context, day daykey.DayKey) (streak.Record, bool, error) {
	var row db.DailyStreakRecord
	if err := s.db.WithContext(ctx).Where("date = ?", day).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return streak.Record{}, false, nil
		}
		return streak.Record{}, false, fmt.Errorf("get daily record: %w", err)
	}
	return toRecord(row), true, nil
}

// Upsert 以版本号做条件写入：expectedVersion 为 0 时插入，否则只更新版本一致的行。
func (s *RecordService) Upsert(ctx context.Context, record streak.Record, expectedVersion int) (streak.Record, error) {
	if record.Date.IsZero() {
		return streak.Record{}, fmt.Errorf("%w: record without date", streak.ErrInvalidInput)
	}
	record.Version = expectedVersion + 1
	row := fromRecord(record)

	if expectedVersion == 0 {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var existing int64
			if err := tx.Model(&db.DailyStreakRecord{}).Where("date = ?", record.Date).Count(&existing).Error; err != nil {
				return err
			}
			if existing > 0 {
				return streak.ErrVersionConflict
			}
			return tx.Create(&row).Error
		})
		if err != nil {
			if errors.Is(err, streak.ErrVersionConflict) {
				return streak.Record{}, err
			}
			return streak.Record{}, fmt.Errorf("create daily record: %w", err)
		}
		return record, nil
	}

	result := s.db.WithContext(ctx).Model(&db.DailyStreakRecord{}).
		Where("date = ? AND version = ?", record.Date, expectedVersion).
		Updates(map[string]any{
			"routine_tasks_completed": row.RoutineTasksCompleted,
			"has_exercise_log":        row.HasExerciseLog,
			"streak_valid":            row.StreakValid,
			"is_rest_day":             row.IsRestDay,
			"bonus_points_awarded":    row.BonusPointsAwarded,
			"milestones_reached":      row.MilestonesReached,
			"version":                 row.Version,
		})
	if result.Error != nil {
		return streak.Record{}, fmt.Errorf("update daily record: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return streak.Record{}, streak.ErrVersionConflict
	}
	return record, nil
}

// ListValid 按日期升序返回所有有效日记录
func (s *RecordService) ListValid(ctx context.Context) ([]streak.Record, error) {
	return s.list(ctx, s.db.WithContext(ctx).Where("streak_valid = ?", true))
}

// List 按日期升序返回全部记录
func (s *RecordService) List(ctx context.Context) ([]streak.Record, error) {
	return s.list(ctx, s.db.WithContext(ctx))
}

func (s *RecordService) list(_ context.Context, query *gorm.DB) ([]streak.Record, error) {
	var rows []db.DailyStreakRecord
	if err := query.Order("date ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list daily records: %w", err)
	}
	records := make([]streak.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, toRecord(row))
	}
	return records, nil
}

func toRecord(row db.DailyStreakRecord) streak.Record {
	return streak.Record{
		Date:                  row.Date,
		RoutineTasksCompleted: row.RoutineTasksCompleted,
		HasExerciseLog:        row.HasExerciseLog,
		StreakValid:           row.StreakValid,
		IsRestDay:             row.IsRestDay,
		BonusPointsAwarded:    row.BonusPointsAwarded,
		MilestonesReached:     []int(row.MilestonesReached),
		Version:               row.Version,
	}
}

func fromRecord(record streak.Record) db.DailyStreakRecord {
	return db.DailyStreakRecord{
		Date:                  record.Date,
		RoutineTasksCompleted: record.RoutineTasksCompleted,
		HasExerciseLog:        record.HasExerciseLog,
		StreakValid:           record.StreakValid,
		IsRestDay:             record.IsRestDay,
		BonusPointsAwarded:    record.BonusPointsAwarded,
		MilestonesReached:     db.MilestoneSet(record.MilestonesReached),
		Version:               record.Version,
	}
}
