package handler

import (
	"context"
	"sync"

	"github.com/lifelog/internal/service"
	"github.com/lifelog/internal/streak"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db           *gorm.DB
	tasks        *service.TaskService
	logs         *service.ActivityLogService
	settings     *service.SettingService
	specialTasks *service.SpecialTaskService
	engine       *streak.Engine
	snapshots    *snapshotCache
	checks       map[string]func(context.Context) error
	log          logrus.FieldLogger
}

// NewAPI constructs a handler set with shared services.
// engine 由调用方组装，记录仓库可以是 sqlite 也可以是 PostgreSQL。
func NewAPI(gdb *gorm.DB, logs *service.ActivityLogService, settings *service.SettingService, engine *streak.Engine) *API {
	return &API{
		db:           gdb,
		tasks:        service.NewTaskService(gdb),
		logs:         logs,
		settings:     settings,
		specialTasks: service.NewSpecialTaskService(logs),
		engine:       engine,
		snapshots:    &snapshotCache{},
		checks:       map[string]func(context.Context) error{},
		log:          logrus.StandardLogger(),
	}
}

// WithHealthCheck 为 /healthz 追加一个依赖检查，例如外部记录仓库。
func (a *API) WithHealthCheck(name string, check func(context.Context) error) *API {
	if name != "" && check != nil {
		a.checks[name] = check
	}
	return a
}

// WithSpecialTasks 替换虚拟任务服务，主要用于测试注入时钟。
func (a *API) WithSpecialTasks(s *service.SpecialTaskService) *API {
	if s != nil {
		a.specialTasks = s
	}
	return a
}

// WithLogger 替换日志输出。
func (a *API) WithLogger(logger logrus.FieldLogger) *API {
	if logger != nil {
		a.log = logger
	}
	return a
}

// DB exposes the underlying gorm instance.
func (a *API) DB() *gorm.DB {
	return a.db
}

// snapshotCache 保存最近一次成功计算的快照，仅在日志不可用时作为兜底。
type snapshotCache struct {
	mu   sync.RWMutex
	last *streak.Snapshot
}

func (s *snapshotCache) store(snapshot streak.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = &snapshot
}

func (s *snapshotCache) stale() (streak.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return streak.Snapshot{}, false
	}
	snapshot := *s.last
	snapshot.Stale = true
	return snapshot, true
}
