package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/lifelog/internal/db"
	"github.com/lifelog/internal/streak"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 里程碑配置来源。
const (
	MilestoneSourceSetting = "setting"
	MilestoneSourceFile    = "file"
	MilestoneSourceDefault = "default"
)

// MilestoneSettings 是当前生效的里程碑表及其来源。
type MilestoneSettings struct {
	Milestones streak.MilestoneTable `json:"milestones"`
	Source     string                `json:"source"`
}

// milestoneDocument 是里程碑 YAML 的顶层结构。
type milestoneDocument struct {
	Milestones streak.MilestoneTable `yaml:"milestones"`
}

// SettingService 提供运行时可调整的配置，目前只有连胜里程碑表。
// 读取顺序：system_settings 中的覆盖值 -> 配置文件 -> 内置默认表。
// 实现 streak.MilestoneProvider。
type SettingService struct {
	db      *gorm.DB
	file    string
	records recordLister
}

// recordLister 提供已落库的每日记录，用于检查已达成的里程碑。
type recordLister interface {
	List(ctx context.Context) ([]streak.Record, error)
}

// NewSettingService 构造 SettingService，默认从同一个库读取每日记录。
func NewSettingService(gdb *gorm.DB) *SettingService {
	return &SettingService{db: gdb, records: NewRecordService(gdb)}
}

// WithRecords 指定每日记录所在的仓库，记录存放在 PostgreSQL 时使用。
func (s *SettingService) WithRecords(records recordLister) *SettingService {
	if records != nil {
		s.records = records
	}
	return s
}

// WithMilestonesFile 指定作为回退的 YAML 文件路径。
func (s *SettingService) WithMilestonesFile(path string) *SettingService {
	s.file = strings.TrimSpace(path)
	return s
}

// Milestones 实现 streak.MilestoneProvider。
func (s *SettingService) Milestones(ctx context.Context) (streak.MilestoneTable, error) {
	settings, err := s.GetMilestones(ctx)
	if err != nil {
		return nil, err
	}
	return settings.Milestones, nil
}

// GetMilestones 读取当前生效的里程碑表。
func (s *SettingService) GetMilestones(ctx context.Context) (MilestoneSettings, error) {
	var record db.SystemSetting
	err := s.db.WithContext(ctx).Where("key = ?", db.SettingKeyStreakMilestones).First(&record).Error
	switch {
	case err == nil && strings.TrimSpace(record.Value) != "":
		table, err := ParseMilestones([]byte(record.Value))
		if err != nil {
			return MilestoneSettings{}, fmt.Errorf("load milestone setting: %w", err)
		}
		return MilestoneSettings{Milestones: table, Source: MilestoneSourceSetting}, nil
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return MilestoneSettings{}, fmt.Errorf("load milestone setting: %w", err)
	}

	return s.fallbackMilestones()
}

// fallbackMilestones 返回没有覆盖值时生效的表：配置文件优先，否则内置默认表。
func (s *SettingService) fallbackMilestones() (MilestoneSettings, error) {
	if s.file != "" {
		table, err := LoadMilestonesFile(s.file)
		if err != nil {
			return MilestoneSettings{}, err
		}
		return MilestoneSettings{Milestones: table, Source: MilestoneSourceFile}, nil
	}
	return MilestoneSettings{Milestones: streak.DefaultMilestones(), Source: MilestoneSourceDefault}, nil
}

// UpdateMilestones 校验并保存里程碑表。
// 已发放的里程碑必须保留在新表中，否则对应记录会校验失败，返回 ErrInvalidMilestones。
func (s *SettingService) UpdateMilestones(ctx context.Context, table streak.MilestoneTable) (MilestoneSettings, error) {
	if len(table) == 0 {
		return MilestoneSettings{}, fmt.Errorf("%w: at least one milestone is required", streak.ErrInvalidMilestones)
	}
	if err := table.Validate(); err != nil {
		return MilestoneSettings{}, err
	}
	if err := s.keepsReached(ctx, table); err != nil {
		return MilestoneSettings{}, err
	}

	raw, err := yaml.Marshal(milestoneDocument{Milestones: table})
	if err != nil {
		return MilestoneSettings{}, fmt.Errorf("encode milestones: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return upsertSetting(tx, db.SettingKeyStreakMilestones, string(raw))
	})
	if err != nil {
		return MilestoneSettings{}, fmt.Errorf("update milestone setting: %w", err)
	}

	return MilestoneSettings{Milestones: table, Source: MilestoneSourceSetting}, nil
}

// ResetMilestones 删除覆盖值，回退到文件或默认表。
// 回退表缺少已发放的里程碑时拒绝重置。
func (s *SettingService) ResetMilestones(ctx context.Context) (MilestoneSettings, error) {
	fallback, err := s.fallbackMilestones()
	if err != nil {
		return MilestoneSettings{}, err
	}
	if err := s.keepsReached(ctx, fallback.Milestones); err != nil {
		return MilestoneSettings{}, err
	}
	if err := s.db.WithContext(ctx).Unscoped().
		Where("key = ?", db.SettingKeyStreakMilestones).
		Delete(&db.SystemSetting{}).Error; err != nil {
		return MilestoneSettings{}, fmt.Errorf("reset milestone setting: %w", err)
	}
	return s.GetMilestones(ctx)
}

// keepsReached 检查 next 是否包含所有已发放且在当前表中有效的里程碑。
// 当前表里本就未知的里程碑属于损坏记录，交给 RepairRecord 处理。
func (s *SettingService) keepsReached(ctx context.Context, next streak.MilestoneTable) error {
	current, err := s.GetMilestones(ctx)
	if err != nil {
		return err
	}
	records, err := s.records.List(ctx)
	if err != nil {
		return fmt.Errorf("list daily records: %w", err)
	}
	for _, record := range records {
		for _, days := range record.MilestonesReached {
			if _, known := current.Milestones.Lookup(days); !known {
				continue
			}
			if _, kept := next.Lookup(days); !kept {
				return fmt.Errorf("%w: milestone %d was reached on %s and cannot be removed",
					streak.ErrInvalidMilestones, days, record.Date)
			}
		}
	}
	return nil
}

// ParseMilestones 解析并校验 YAML 里程碑表。
// 既接受 {milestones: [...]} 也接受顶层数组。
func ParseMilestones(raw []byte) (streak.MilestoneTable, error) {
	var doc milestoneDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil || len(doc.Milestones) == 0 {
		var table streak.MilestoneTable
		if listErr := yaml.Unmarshal(raw, &table); listErr != nil {
			if err == nil {
				err = listErr
			}
			return nil, fmt.Errorf("%w: %v", streak.ErrInvalidMilestones, err)
		}
		doc.Milestones = table
	}
	if len(doc.Milestones) == 0 {
		return nil, fmt.Errorf("%w: empty milestone table", streak.ErrInvalidMilestones)
	}
	if err := doc.Milestones.Validate(); err != nil {
		return nil, err
	}
	return doc.Milestones, nil
}

// LoadMilestonesFile 从 YAML 文件读取里程碑表。
func LoadMilestonesFile(path string) (streak.MilestoneTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read milestones file: %w", err)
	}
	table, err := ParseMilestones(raw)
	if err != nil {
		return nil, fmt.Errorf("parse milestones file %s: %w", path, err)
	}
	return table, nil
}

func upsertSetting(tx *gorm.DB, key, value string) error {
	setting := db.SystemSetting{Key: key, Value: value}
	if err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"value":      value,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(&setting).Error; err != nil {
		return fmt.Errorf("upsert setting %s: %w", key, err)
	}
	return nil
}
