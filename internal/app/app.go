// Package app 负责组装应用的各个组件。
// 顺序：数据库 -> 日历 -> 日志与配置服务 -> 记录仓库 -> 连胜引擎 -> HTTP 处理器 -> 定时任务。
package app

import (
	"context"
	"fmt"

	"github.com/lifelog/internal/config"
	"github.com/lifelog/internal/daykey"
	"github.com/lifelog/internal/db"
	"github.com/lifelog/internal/handler"
	"github.com/lifelog/internal/jobs"
	"github.com/lifelog/internal/service"
	"github.com/lifelog/internal/service/pgstore"
	"github.com/lifelog/internal/streak"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App 持有所有运行期组件。
type App struct {
	Config    config.AppConfig
	DB        *gorm.DB
	Calendar  daykey.Calendar
	Tasks     *service.TaskService
	Logs      *service.ActivityLogService
	Settings  *service.SettingService
	Records   streak.RecordStore
	Engine    *streak.Engine
	API       *handler.API
	Scheduler *jobs.Scheduler

	pg *pgstore.Store
}

// New 打开 SQLite 数据库并组装应用。
func New(ctx context.Context, cfg config.AppConfig) (*App, error) {
	if err := db.Init(cfg.DatabasePath); err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	return Build(ctx, cfg, db.DB)
}

// Build 基于已打开的 gorm 连接组装应用，测试中直接传入内存库。
func Build(ctx context.Context, cfg config.AppConfig, gdb *gorm.DB) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	cal := daykey.NewCalendar(loc)

	logs := service.NewActivityLogService(gdb, cal).WithLegacyTolerance(cfg.LegacyRangeTolerance)
	settings := service.NewSettingService(gdb).WithMilestonesFile(cfg.MilestonesFile)
	if _, err := settings.GetMilestones(ctx); err != nil {
		return nil, fmt.Errorf("load milestones: %w", err)
	}

	a := &App{
		Config:   cfg,
		DB:       gdb,
		Calendar: cal,
		Tasks:    service.NewTaskService(gdb),
		Logs:     logs,
		Settings: settings,
		Records:  service.NewRecordService(gdb),
	}

	if cfg.StoreURL != "" {
		pg, err := pgstore.Open(ctx, cfg.StoreURL)
		if err != nil {
			return nil, fmt.Errorf("open record store: %w", err)
		}
		a.pg = pg
		a.Records = pg
	}

	settings.WithRecords(a.Records)

	a.Engine = streak.NewEngine(logs, a.Records, cal).
		WithMinRoutineTasks(cfg.MinRoutineTasks).
		WithMilestones(settings).
		WithLogger(log.StandardLogger())

	a.API = handler.NewAPI(gdb, logs, settings, a.Engine)
	if a.pg != nil {
		a.API.WithHealthCheck("record_store", a.pg.Ping)
	}
	a.Scheduler = jobs.NewScheduler(a.Engine, cfg.NightlySealCron)

	log.WithFields(log.Fields{
		"timezone":          loc.String(),
		"min_routine_tasks": cfg.MinRoutineTasks,
		"record_store":      a.recordStoreName(),
	}).Info("application assembled")
	return a, nil
}

func (a *App) recordStoreName() string {
	if a.pg != nil {
		return "postgres"
	}
	return "sqlite"
}

// Close 释放数据库连接。
func (a *App) Close() {
	if a.pg != nil {
		a.pg.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.WithError(err).Warn("failed to close database")
		}
	}
}
