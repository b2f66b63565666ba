package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr   string `envconfig:"LISTEN_ADDR" default:":8082"`
	DatabasePath string `envconfig:"DATABASE_PATH" default:"lifelog.db"`
	GinMode      string `envconfig:"GIN_MODE" default:"release"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`

	// --- Streak ---
	Timezone             string        `envconfig:"APP_TIMEZONE" default:"Asia/Shanghai"`
	MinRoutineTasks      int           `envconfig:"STREAK_MIN_ROUTINE_TASKS" default:"5"`
	MilestonesFile       string        `envconfig:"STREAK_MILESTONES_FILE"`
	LegacyRangeTolerance time.Duration `envconfig:"LEGACY_RANGE_TOLERANCE" default:"0s"`
	StoreURL             string        `envconfig:"STREAK_STORE_URL"`

	// --- Jobs ---
	NightlySealCron string `envconfig:"NIGHTLY_SEAL_CRON" default:"5 0 * * *"`

	MetricsEnabled bool `envconfig:"METRICS_ENABLED" default:"true"`
}

// Load 从环境变量读取应用配置，缺失项使用默认值。
func Load() (AppConfig, error) {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("load config: %w", err)
	}
	cfg.ListenAddr = strings.TrimSpace(cfg.ListenAddr)
	cfg.DatabasePath = strings.TrimSpace(cfg.DatabasePath)
	cfg.Timezone = strings.TrimSpace(cfg.Timezone)

	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// Validate 检查取值范围。
func (c AppConfig) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("LISTEN_ADDR must not be empty")
	}
	if c.MinRoutineTasks <= 0 {
		return fmt.Errorf("STREAK_MIN_ROUTINE_TASKS must be > 0, got %d", c.MinRoutineTasks)
	}
	if c.LegacyRangeTolerance < 0 || c.LegacyRangeTolerance > 12*time.Hour {
		return fmt.Errorf("LEGACY_RANGE_TOLERANCE must be between 0 and 12h, got %s", c.LegacyRangeTolerance)
	}
	switch c.GinMode {
	case "", "debug", "release", "test":
	default:
		return fmt.Errorf("GIN_MODE must be debug, release or test, got %q", c.GinMode)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if strings.TrimSpace(c.NightlySealCron) != "" {
		if _, err := cron.ParseStandard(c.NightlySealCron); err != nil {
			return fmt.Errorf("NIGHTLY_SEAL_CRON: %w", err)
		}
	}
	return nil
}

// Location 加载参考时区。系统缺少 tzdata 时，Asia/Shanghai 回退到固定的 UTC+8。
func (c AppConfig) Location() (*time.Location, error) {
	name := c.Timezone
	if name == "" {
		name = "Asia/Shanghai"
	}
	loc, err := time.LoadLocation(name)
	if err == nil {
		return loc, nil
	}
	if name == "Asia/Shanghai" {
		log.WithError(err).Warn("failed to load Asia/Shanghai, falling back to UTC+8")
		return time.FixedZone("CST", 8*60*60), nil
	}
	return nil, fmt.Errorf("APP_TIMEZONE %q: %w", name, err)
}

// LogLevelValue 返回解析后的日志级别。
func (c AppConfig) LogLevelValue() log.Level {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return level
}
