package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lifelog/internal/daykey"
	"github.com/lifelog/internal/db"
	"github.com/lifelog/internal/streak"
)

func createTasks(t *testing.T, svc *TaskService, n int) []db.Task {
	t.Helper()
	tasks := make([]db.Task, 0, n)
	for i := 0; i < n; i++ {
		task, err := svc.Create(TaskInput{Name: "任务", SortOrder: i})
		if err != nil {
			t.Fatalf("create task: %v", err)
		}
		tasks = append(tasks, *task)
	}
	return tasks
}

func TestActivityLogCompleteIsIdempotent(t *testing.T) {
	gdb := setupServiceTestDB(t)
	tasks := createTasks(t, NewTaskService(gdb), 1)
	logs := NewActivityLogService(gdb, shanghaiCalendar())
	ctx := context.Background()
	day := daykey.MustParse("2024-06-10")

	first, err := logs.Complete(ctx, CompletionInput{TaskID: tasks[0].ID, Date: day, At: at("2024-06-10", 7, 0)})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	second, err := logs.Complete(ctx, CompletionInput{TaskID: tasks[0].ID, Date: day, At: at("2024-06-10", 9, 0), Note: "<b>补记</b>"})
	if err != nil {
		t.Fatalf("second Complete returned error: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same row, got %d and %d", first.ID, second.ID)
	}
	if second.Note != "补记" {
		t.Fatalf("expected sanitized note, got %q", second.Note)
	}

	count, err := logs.CountCompletedTasks(ctx, logs.Calendar().Range(day))
	if err != nil {
		t.Fatalf("CountCompletedTasks returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 completion, got %d", count)
	}
}

func TestActivityLogSkipAndUnskip(t *testing.T) {
	gdb := setupServiceTestDB(t)
	tasks := createTasks(t, NewTaskService(gdb), 2)
	logs := NewActivityLogService(gdb, shanghaiCalendar())
	ctx := context.Background()
	day := daykey.MustParse("2024-06-10")
	r := logs.Calendar().Range(day)

	if _, err := logs.Complete(ctx, CompletionInput{TaskID: tasks[0].ID, Date: day}); err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if _, err := logs.Skip(ctx, CompletionInput{TaskID: tasks[1].ID, Date: day}); err != nil {
		t.Fatalf("Skip returned error: %v", err)
	}

	if count, _ := logs.CountCompletedTasks(ctx, r); count != 1 {
		t.Fatalf("expected skipped task not to count, got %d", count)
	}

	if err := logs.Unskip(ctx, tasks[1].ID, day); err != nil {
		t.Fatalf("Unskip returned error: %v", err)
	}
	if err := logs.Unskip(ctx, tasks[1].ID, day); !errors.Is(err, ErrCompletionNotFound) {
		t.Fatalf("expected ErrCompletionNotFound, got %v", err)
	}
	// 已完成的记录不会被撤销跳过删除。
	if err := logs.Unskip(ctx, tasks[0].ID, day); !errors.Is(err, ErrCompletionNotFound) {
		t.Fatalf("expected completed entry to be untouched, got %v", err)
	}

	rows, err := logs.CompletionsOn(ctx, day)
	if err != nil {
		t.Fatalf("CompletionsOn returned error: %v", err)
	}
	if len(rows) != 1 || rows[0].Status != db.CompletionStatusCompleted {
		t.Fatalf("unexpected completions: %+v", rows)
	}
}

func TestActivityLogRejectsArchivedTask(t *testing.T) {
	gdb := setupServiceTestDB(t)
	taskSvc := NewTaskService(gdb)
	tasks := createTasks(t, taskSvc, 1)
	if _, err := taskSvc.Archive(tasks[0].ID); err != nil {
		t.Fatalf("Archive returned error: %v", err)
	}
	logs := NewActivityLogService(gdb, shanghaiCalendar())

	_, err := logs.Complete(context.Background(), CompletionInput{TaskID: tasks[0].ID, Date: daykey.MustParse("2024-06-10")})
	if !errors.Is(err, ErrTaskArchived) {
		t.Fatalf("expected ErrTaskArchived, got %v", err)
	}
	_, err = logs.Complete(context.Background(), CompletionInput{TaskID: 4242, Date: daykey.MustParse("2024-06-10")})
	if !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestCountCompletedTasksUsesReferenceTimezone(t *testing.T) {
	gdb := setupServiceTestDB(t)
	tasks := createTasks(t, NewTaskService(gdb), 2)
	logs := NewActivityLogService(gdb, shanghaiCalendar())
	ctx := context.Background()

	// 00:30 CST 是 UTC 前一天 16:30，但属于上海的 06-10。
	if _, err := logs.Complete(ctx, CompletionInput{TaskID: tasks[0].ID, Date: daykey.MustParse("2024-06-10"), At: at("2024-06-10", 0, 30)}); err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	// 补打卡：时间不在当天时取当天中午。
	if _, err := logs.Complete(ctx, CompletionInput{TaskID: tasks[1].ID, Date: daykey.MustParse("2024-06-09"), At: at("2024-06-10", 8, 0)}); err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}

	cal := logs.Calendar()
	for day, want := range map[string]int{"2024-06-09": 1, "2024-06-10": 1, "2024-06-11": 0} {
		got, err := logs.CountCompletedTasks(ctx, cal.Range(daykey.MustParse(day)))
		if err != nil {
			t.Fatalf("CountCompletedTasks returned error: %v", err)
		}
		if got != want {
			t.Fatalf("%s: expected %d, got %d", day, want, got)
		}
	}
}

func TestHasExerciseLogLegacyTolerance(t *testing.T) {
	gdb := setupServiceTestDB(t)
	logs := NewActivityLogService(gdb, shanghaiCalendar())
	ctx := context.Background()

	if _, err := logs.LogExercise(ctx, ExerciseInput{Kind: "跑步", DurationMinutes: 30, LoggedAt: at("2024-06-09", 23, 0)}); err != nil {
		t.Fatalf("LogExercise returned error: %v", err)
	}

	r := logs.Calendar().Range(daykey.MustParse("2024-06-10"))
	strict, err := logs.HasExerciseLog(ctx, r)
	if err != nil {
		t.Fatalf("HasExerciseLog returned error: %v", err)
	}
	if strict {
		t.Fatal("expected strict range to exclude the previous evening")
	}

	logs.WithLegacyTolerance(12 * time.Hour)
	widened, err := logs.HasExerciseLog(ctx, r)
	if err != nil {
		t.Fatalf("HasExerciseLog returned error: %v", err)
	}
	if !widened {
		t.Fatal("expected widened range to include the previous evening")
	}
}

func TestDailyActivityMatchesPerDayQueries(t *testing.T) {
	for _, tolerance := range []time.Duration{0, 12 * time.Hour} {
		gdb := setupServiceTestDB(t)
		tasks := createTasks(t, NewTaskService(gdb), 5)
		logs := NewActivityLogService(gdb, shanghaiCalendar()).WithLegacyTolerance(tolerance)
		ctx := context.Background()

		for i, task := range tasks {
			if _, err := logs.Complete(ctx, CompletionInput{TaskID: task.ID, Date: daykey.MustParse("2024-06-10"), At: at("2024-06-10", 6+i, 0)}); err != nil {
				t.Fatalf("Complete returned error: %v", err)
			}
		}
		if _, err := logs.Complete(ctx, CompletionInput{TaskID: tasks[0].ID, Date: daykey.MustParse("2024-06-08")}); err != nil {
			t.Fatalf("Complete returned error: %v", err)
		}
		for _, ts := range []time.Time{at("2024-06-07", 23, 30), at("2024-06-09", 7, 0), at("2024-06-12", 0, 15)} {
			if _, err := logs.LogExercise(ctx, ExerciseInput{LoggedAt: ts}); err != nil {
				t.Fatalf("LogExercise returned error: %v", err)
			}
		}

		from, to := daykey.MustParse("2024-06-06"), daykey.MustParse("2024-06-13")
		bulk, err := logs.DailyActivity(ctx, from, to)
		if err != nil {
			t.Fatalf("DailyActivity returned error: %v", err)
		}
		for _, day := range daykey.Span(from, to) {
			r := logs.Calendar().Range(day)
			count, err := logs.CountCompletedTasks(ctx, r)
			if err != nil {
				t.Fatalf("CountCompletedTasks returned error: %v", err)
			}
			exercise, err := logs.HasExerciseLog(ctx, r)
			if err != nil {
				t.Fatalf("HasExerciseLog returned error: %v", err)
			}
			if got := bulk[day]; got.CompletedTasks != count || got.HasExercise != exercise {
				t.Fatalf("tolerance %s day %s: bulk %+v, per-day {%d %v}", tolerance, day, got, count, exercise)
			}
		}
	}
}

func TestEngineOverActivityLogs(t *testing.T) {
	gdb := setupServiceTestDB(t)
	tasks := createTasks(t, NewTaskService(gdb), 5)
	logs := NewActivityLogService(gdb, shanghaiCalendar())
	records := NewRecordService(gdb)
	ctx := context.Background()

	for _, day := range daykey.Span(daykey.MustParse("2024-06-01"), daykey.MustParse("2024-06-07")) {
		for _, task := range tasks {
			if _, err := logs.Complete(ctx, CompletionInput{TaskID: task.ID, Date: day}); err != nil {
				t.Fatalf("Complete returned error: %v", err)
			}
		}
		y, m, d := day.Date()
		if _, err := logs.LogExercise(ctx, ExerciseInput{LoggedAt: time.Date(y, m, d, 18, 0, 0, 0, shanghai)}); err != nil {
			t.Fatalf("LogExercise returned error: %v", err)
		}
	}

	engine := streak.NewEngine(logs, records, logs.Calendar())
	var result streak.UpdateResult
	for _, day := range daykey.Span(daykey.MustParse("2024-06-01"), daykey.MustParse("2024-06-07")) {
		var err error
		result, err = engine.UpdateStreakForDate(ctx, day)
		if err != nil {
			t.Fatalf("UpdateStreakForDate(%s) returned error: %v", day, err)
		}
	}

	if !result.Valid || result.CurrentStreak != 7 || result.BonusPoints != 100 {
		t.Fatalf("unexpected result: %+v", result)
	}
}
