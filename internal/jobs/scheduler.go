// Package jobs 管理后台定时任务。
// scheduler.go 在参考时区的每天凌晨封存前一天的连胜记录。
package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lifelog/internal/daykey"
	"github.com/lifelog/internal/streak"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// DefaultSealSpec 每天 00:05 执行。
const DefaultSealSpec = "5 0 * * *"

// Recomputer 是调度器依赖的引擎能力。
type Recomputer interface {
	Calendar() daykey.Calendar
	Today() (daykey.DayKey, error)
	UpdateStreakForDate(ctx context.Context, day daykey.DayKey) (streak.UpdateResult, error)
}

// Scheduler 管理后台任务。
type Scheduler struct {
	cron   *cron.Cron
	engine Recomputer
	spec   string
}

// NewScheduler 创建调度器，时区与引擎的参考日历一致。spec 为空时使用 DefaultSealSpec。
func NewScheduler(engine Recomputer, spec string) *Scheduler {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		spec = DefaultSealSpec
	}
	loc := engine.Calendar().Location()
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		engine: engine,
		spec:   spec,
	}
}

// Start 注册并启动所有任务。
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() {
		log.Info("[CRON] sealing yesterday's streak record")
		if _, err := s.SealYesterday(ctx); err != nil {
			log.WithError(err).Error("[CRON] seal failed")
		}
	}); err != nil {
		return fmt.Errorf("schedule seal job: %w", err)
	}

	s.cron.Start()
	log.WithFields(log.Fields{
		"spec":     s.spec,
		"timezone": s.engine.Calendar().Location().String(),
	}).Info("scheduler started")
	return nil
}

// Stop 停止调度器并等待正在执行的任务结束。
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("scheduler stopped")
}

// SealYesterday 重算昨天的记录。昨天的日志在零点后不再变化，
// 这一次写入即为最终结果。
func (s *Scheduler) SealYesterday(ctx context.Context) (streak.UpdateResult, error) {
	today, err := s.engine.Today()
	if err != nil {
		return streak.UpdateResult{}, fmt.Errorf("resolve today: %w", err)
	}
	yesterday := today.AddDays(-1)

	started := time.Now()
	result, err := s.engine.UpdateStreakForDate(ctx, yesterday)
	entry := log.WithFields(log.Fields{
		"date":    yesterday.String(),
		"elapsed": time.Since(started).String(),
	})
	switch {
	case errors.Is(err, streak.ErrCorruptRecord):
		entry.WithError(err).Error("yesterday's record is corrupt, run repair")
		return streak.UpdateResult{}, err
	case err != nil:
		return streak.UpdateResult{}, fmt.Errorf("seal %s: %w", yesterday, err)
	}

	entry.WithFields(log.Fields{
		"valid":          result.Valid,
		"current_streak": result.CurrentStreak,
		"bonus_points":   result.BonusPoints,
	}).Info("streak record sealed")
	return result, nil
}
