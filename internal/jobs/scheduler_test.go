package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lifelog/internal/daykey"
	"github.com/lifelog/internal/streak"
)

type fakeEngine struct {
	today daykey.DayKey
	err   error
	days  []daykey.DayKey
}

func (f *fakeEngine) Calendar() daykey.Calendar {
	return daykey.NewCalendar(time.UTC)
}

func (f *fakeEngine) Today() (daykey.DayKey, error) {
	return f.today, nil
}

func (f *fakeEngine) UpdateStreakForDate(_ context.Context, day daykey.DayKey) (streak.UpdateResult, error) {
	f.days = append(f.days, day)
	if f.err != nil {
		return streak.UpdateResult{}, f.err
	}
	return streak.UpdateResult{Date: day, Valid: true, CurrentStreak: 3}, nil
}

func TestSealYesterdayRecomputesPreviousDay(t *testing.T) {
	engine := &fakeEngine{today: daykey.MustParse("2024-03-01")}
	s := NewScheduler(engine, "")

	result, err := s.SealYesterday(context.Background())
	if err != nil {
		t.Fatalf("SealYesterday returned error: %v", err)
	}
	if len(engine.days) != 1 || engine.days[0] != daykey.MustParse("2024-02-29") {
		t.Fatalf("expected 2024-02-29 to be sealed, got %v", engine.days)
	}
	if result.CurrentStreak != 3 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if s.spec != DefaultSealSpec {
		t.Fatalf("expected default spec, got %q", s.spec)
	}
}

func TestSealYesterdayPropagatesErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "corrupt", err: streak.ErrCorruptRecord},
		{name: "unavailable", err: streak.ErrDataUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &fakeEngine{today: daykey.MustParse("2024-06-10"), err: tt.err}
			s := NewScheduler(engine, "0 1 * * *")
			if _, err := s.SealYesterday(context.Background()); !errors.Is(err, tt.err) {
				t.Fatalf("expected %v, got %v", tt.err, err)
			}
		})
	}
}

func TestStartRejectsBadSpec(t *testing.T) {
	s := NewScheduler(&fakeEngine{}, "not a cron spec")
	if err := s.Start(context.Background()); err == nil {
		s.Stop()
		t.Fatal("expected invalid spec to be rejected")
	}
}

func TestStartAndStop(t *testing.T) {
	s := NewScheduler(&fakeEngine{today: daykey.MustParse("2024-06-10")}, DefaultSealSpec)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	s.Stop()
}
