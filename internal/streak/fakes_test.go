package streak

import (
	"context"
	"io"
	"slices"
	"testing"
	"time"

	"github.com/lifelog/internal/daykey"
	"github.com/sirupsen/logrus"
)

type fakeLogs struct {
	days  map[daykey.DayKey]DayActivity
	err   error
	calls int
}

func newFakeLogs() *fakeLogs {
	return &fakeLogs{days: make(map[daykey.DayKey]DayActivity)}
}

func (f *fakeLogs) set(day string, tasks int, exercise bool) {
	f.days[daykey.MustParse(day)] = DayActivity{CompletedTasks: tasks, HasExercise: exercise}
}

// validRun 从 from 开始连续 n 天写入 5 个任务加运动。
func (f *fakeLogs) validRun(from string, n int) {
	start := daykey.MustParse(from)
	for i := 0; i < n; i++ {
		f.days[start.AddDays(i)] = DayActivity{CompletedTasks: DefaultMinRoutineTasks, HasExercise: true}
	}
}

func (f *fakeLogs) CountCompletedTasks(_ context.Context, r daykey.Range) (int, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.days[daykey.FromDate(r.Start)].CompletedTasks, nil
}

func (f *fakeLogs) HasExerciseLog(_ context.Context, r daykey.Range) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.days[daykey.FromDate(r.Start)].HasExercise, nil
}

type bulkLogs struct {
	*fakeLogs
	bulkCalls int
}

func (b *bulkLogs) DailyActivity(_ context.Context, from, to daykey.DayKey) (map[daykey.DayKey]DayActivity, error) {
	b.bulkCalls++
	if b.err != nil {
		return nil, b.err
	}
	out := make(map[daykey.DayKey]DayActivity)
	for day, a := range b.days {
		if !day.Before(from) && !day.After(to) {
			out[day] = a
		}
	}
	return out, nil
}

type memStore struct {
	records      map[daykey.DayKey]Record
	upserts      int
	beforeUpsert func()
}

func newMemStore() *memStore {
	return &memStore{records: make(map[daykey.DayKey]Record)}
}

func (m *memStore) Get(_ context.Context, day daykey.DayKey) (Record, bool, error) {
	r, ok := m.records[day]
	return r.clone(), ok, nil
}

func (m *memStore) Upsert(_ context.Context, record Record, expectedVersion int) (Record, error) {
	if hook := m.beforeUpsert; hook != nil {
		m.beforeUpsert = nil
		hook()
	}
	current := 0
	if existing, ok := m.records[record.Date]; ok {
		current = existing.Version
	}
	if current != expectedVersion {
		return Record{}, ErrVersionConflict
	}
	record.Version = current + 1
	m.records[record.Date] = record.clone()
	m.upserts++
	return record, nil
}

func (m *memStore) List(context.Context) ([]Record, error) {
	out := make([]Record, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r.clone())
	}
	slices.SortFunc(out, func(a, b Record) int { return a.Date.Compare(b.Date) })
	return out, nil
}

func (m *memStore) ListValid(ctx context.Context) ([]Record, error) {
	all, _ := m.List(ctx)
	out := all[:0]
	for _, r := range all {
		if r.StreakValid {
			out = append(out, r)
		}
	}
	return out, nil
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestEngine(t *testing.T, logs LogSource, store RecordStore) *Engine {
	t.Helper()
	return NewEngine(logs, store, daykey.NewCalendar(time.UTC)).WithLogger(quietLogger())
}

func day(value string) daykey.DayKey {
	return daykey.MustParse(value)
}
