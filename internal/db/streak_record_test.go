package db

import (
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/lifelog/internal/daykey"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := Open(fmt.Sprintf("file:dbtest-%d?mode=memory&cache=shared", time.Now().UnixNano()))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

func TestDailyStreakRecordRoundTrip(t *testing.T) {
	gdb := openTestDB(t)

	day := daykey.MustParse("2024-06-07")
	record := DailyStreakRecord{
		Date:                  day,
		RoutineTasksCompleted: 6,
		HasExerciseLog:        true,
		StreakValid:           true,
		BonusPointsAwarded:    100,
		MilestonesReached:     MilestoneSet{7},
		Version:               1,
	}
	if err := gdb.Create(&record).Error; err != nil {
		t.Fatalf("create record: %v", err)
	}

	var loaded DailyStreakRecord
	if err := gdb.Where("date = ?", day).First(&loaded).Error; err != nil {
		t.Fatalf("load record: %v", err)
	}
	if loaded.Date != day {
		t.Fatalf("expected date %s, got %s", day, loaded.Date)
	}
	if !slices.Equal([]int(loaded.MilestonesReached), []int{7}) {
		t.Fatalf("expected milestones [7], got %v", loaded.MilestonesReached)
	}

	dup := DailyStreakRecord{Date: day}
	if err := gdb.Create(&dup).Error; err == nil {
		t.Fatal("expected unique constraint on date")
	}
}

func TestMilestoneSetScan(t *testing.T) {
	tests := []struct {
		name string
		src  any
		want []int
	}{
		{name: "nil", src: nil, want: nil},
		{name: "empty string", src: "", want: nil},
		{name: "empty array", src: "[]", want: []int{}},
		{name: "bytes", src: []byte("[7,14]"), want: []int{7, 14}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var set MilestoneSet
			if err := set.Scan(tt.src); err != nil {
				t.Fatalf("Scan returned error: %v", err)
			}
			if !slices.Equal([]int(set), tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, set)
			}
		})
	}

	var set MilestoneSet
	if err := set.Scan("not json"); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}
