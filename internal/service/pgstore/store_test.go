package pgstore

import (
	"context"
	"errors"
	"os"
	"slices"
	"testing"

	"github.com/lifelog/internal/daykey"
	"github.com/lifelog/internal/streak"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("LIFELOG_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("LIFELOG_TEST_POSTGRES_URL not set")
	}
	ctx := context.Background()
	store, err := Open(ctx, url)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if _, err := store.pool.Exec(ctx, `TRUNCATE daily_streak_records`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func TestStoreUpsertAndGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	day := daykey.MustParse("2024-06-07")

	if _, found, err := store.Get(ctx, day); err != nil || found {
		t.Fatalf("expected no record, got found=%v err=%v", found, err)
	}

	saved, err := store.Upsert(ctx, streak.Record{
		Date:                  day,
		RoutineTasksCompleted: 5,
		HasExerciseLog:        true,
		StreakValid:           true,
		BonusPointsAwarded:    100,
		MilestonesReached:     []int{7},
	}, 0)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if saved.Version != 1 {
		t.Fatalf("expected version 1, got %d", saved.Version)
	}

	got, found, err := store.Get(ctx, day)
	if err != nil || !found {
		t.Fatalf("expected record, got found=%v err=%v", found, err)
	}
	if got.Date != day || !slices.Equal(got.MilestonesReached, []int{7}) || got.BonusPointsAwarded != 100 {
		t.Fatalf("unexpected record: %+v", got)
	}

	if _, err := store.Upsert(ctx, got, 0); !errors.Is(err, streak.ErrVersionConflict) {
		t.Fatalf("expected conflict on duplicate insert, got %v", err)
	}
	if _, err := store.Upsert(ctx, got, 5); !errors.Is(err, streak.ErrVersionConflict) {
		t.Fatalf("expected conflict on stale version, got %v", err)
	}

	got.StreakValid = false
	updated, err := store.Upsert(ctx, got, got.Version)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Version != 2 {
		t.Fatalf("expected version 2, got %d", updated.Version)
	}

	valid, err := store.ListValid(ctx)
	if err != nil {
		t.Fatalf("list valid: %v", err)
	}
	if len(valid) != 0 {
		t.Fatalf("expected no valid records, got %d", len(valid))
	}
}

func TestStoreWithEngine(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	engine := streak.NewEngine(alwaysValid{}, store, daykey.NewCalendar(nil))
	for _, d := range daykey.Span(daykey.MustParse("2024-01-01"), daykey.MustParse("2024-01-07")) {
		if _, err := engine.UpdateStreakForDate(ctx, d); err != nil {
			t.Fatalf("UpdateStreakForDate(%s): %v", d, err)
		}
	}

	rec, found, err := store.Get(ctx, daykey.MustParse("2024-01-07"))
	if err != nil || !found {
		t.Fatalf("expected record, got found=%v err=%v", found, err)
	}
	if !slices.Equal(rec.MilestonesReached, []int{7}) {
		t.Fatalf("expected milestone 7, got %v", rec.MilestonesReached)
	}
}

type alwaysValid struct{}

func (alwaysValid) CountCompletedTasks(context.Context, daykey.Range) (int, error) { return 5, nil }
func (alwaysValid) HasExerciseLog(context.Context, daykey.Range) (bool, error)     { return true, nil }
