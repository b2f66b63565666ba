// Package pgstore 是每日连胜记录的 PostgreSQL 实现，
// 在配置了 STREAK_STORE_URL 时替代默认的 SQLite 存储。
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lifelog/internal/daykey"
	"github.com/lifelog/internal/streak"
	log "github.com/sirupsen/logrus"
)

const schema = `
CREATE TABLE IF NOT EXISTS daily_streak_records (
	date                    DATE PRIMARY KEY,
	routine_tasks_completed INTEGER NOT NULL DEFAULT 0,
	has_exercise_log        BOOLEAN NOT NULL DEFAULT FALSE,
	streak_valid            BOOLEAN NOT NULL DEFAULT FALSE,
	is_rest_day             BOOLEAN NOT NULL DEFAULT FALSE,
	bonus_points_awarded    INTEGER NOT NULL DEFAULT 0,
	milestones_reached      BIGINT[] NOT NULL DEFAULT '{}',
	version                 INTEGER NOT NULL DEFAULT 1,
	created_at              TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at              TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_daily_streak_records_valid ON daily_streak_records (date) WHERE streak_valid;
`

const selectColumns = `date, routine_tasks_completed, has_exercise_log, streak_valid,
	is_rest_day, bonus_points_awarded, milestones_reached, version`

// Store 实现 streak.RecordStore。
type Store struct {
	pool *pgxpool.Pool
}

// New 包装已有连接池。
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Open 建立连接池并确保表结构存在。
func Open(ctx context.Context, url string) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse store url: %w", err)
	}
	poolConfig.MaxConns = 4
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := New(pool)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	log.Info("daily streak records stored in PostgreSQL")
	return store, nil
}

// Migrate 创建表和索引，可重复执行。
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate daily_streak_records: %w", err)
	}
	return nil
}

// Ping 检查数据库是否可用。
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close 关闭连接池。
func (s *Store) Close() {
	s.pool.Close()
}

// Get 读取某天的记录。
func (s *Store) Get(ctx context.Context, day daykey.DayKey) (streak.Record, bool, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM daily_streak_records WHERE date = $1`, dateArg(day))
	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return streak.Record{}, false, nil
		}
		return streak.Record{}, false, fmt.Errorf("get daily record %s: %w", day, err)
	}
	return record, true, nil
}

// Upsert 以版本号做条件写入。
func (s *Store) Upsert(ctx context.Context, record streak.Record, expectedVersion int) (streak.Record, error) {
	if record.Date.IsZero() {
		return streak.Record{}, fmt.Errorf("%w: record without date", streak.ErrInvalidInput)
	}
	record.Version = expectedVersion + 1
	args := []any{
		dateArg(record.Date),
		record.RoutineTasksCompleted,
		record.HasExerciseLog,
		record.StreakValid,
		record.IsRestDay,
		record.BonusPointsAwarded,
		milestonesArg(record.MilestonesReached),
		record.Version,
	}

	var query string
	if expectedVersion == 0 {
		query = `
			INSERT INTO daily_streak_records (date, routine_tasks_completed, has_exercise_log,
			       streak_valid, is_rest_day, bonus_points_awarded, milestones_reached, version)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (date) DO NOTHING
		`
	} else {
		query = `
			UPDATE daily_streak_records
			SET routine_tasks_completed = $2, has_exercise_log = $3, streak_valid = $4,
			    is_rest_day = $5, bonus_points_awarded = $6, milestones_reached = $7,
			    version = $8, updated_at = NOW()
			WHERE date = $1 AND version = $9
		`
		args = append(args, expectedVersion)
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return streak.Record{}, fmt.Errorf("upsert daily record %s: %w", record.Date, err)
	}
	if tag.RowsAffected() == 0 {
		return streak.Record{}, streak.ErrVersionConflict
	}
	return record, nil
}

// ListValid 按日期升序返回有效日记录。
func (s *Store) ListValid(ctx context.Context) ([]streak.Record, error) {
	return s.list(ctx, `SELECT `+selectColumns+` FROM daily_streak_records WHERE streak_valid ORDER BY date ASC`)
}

// List 按日期升序返回全部记录。
func (s *Store) List(ctx context.Context) ([]streak.Record, error) {
	return s.list(ctx, `SELECT `+selectColumns+` FROM daily_streak_records ORDER BY date ASC`)
}

func (s *Store) list(ctx context.Context, query string) ([]streak.Record, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list daily records: %w", err)
	}
	defer rows.Close()

	var records []streak.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan daily record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list daily records: %w", err)
	}
	return records, nil
}

func scanRecord(row pgx.Row) (streak.Record, error) {
	var (
		record     streak.Record
		date       time.Time
		milestones []int64
	)
	if err := row.Scan(
		&date, &record.RoutineTasksCompleted, &record.HasExerciseLog, &record.StreakValid,
		&record.IsRestDay, &record.BonusPointsAwarded, &milestones, &record.Version,
	); err != nil {
		return streak.Record{}, err
	}
	record.Date = daykey.FromDate(date)
	for _, m := range milestones {
		record.MilestonesReached = append(record.MilestonesReached, int(m))
	}
	return record, nil
}

func dateArg(day daykey.DayKey) time.Time {
	return day.StartOfDay(time.UTC)
}

func milestonesArg(days []int) []int64 {
	out := make([]int64, 0, len(days))
	for _, d := range days {
		out = append(out, int64(d))
	}
	return out
}
