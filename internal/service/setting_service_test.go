package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/lifelog/internal/daykey"
	"github.com/lifelog/internal/streak"
)

func TestSettingServiceDefaults(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewSettingService(gdb)

	settings, err := svc.GetMilestones(context.Background())
	if err != nil {
		t.Fatalf("GetMilestones returned error: %v", err)
	}
	if settings.Source != MilestoneSourceDefault {
		t.Fatalf("expected default source, got %s", settings.Source)
	}
	if len(settings.Milestones) != len(streak.DefaultMilestones()) {
		t.Fatalf("expected default table, got %+v", settings.Milestones)
	}
}

func TestSettingServiceFileFallback(t *testing.T) {
	gdb := setupServiceTestDB(t)
	path := filepath.Join(t.TempDir(), "milestones.yaml")
	content := "milestones:\n  - days: 3\n    points: 30\n    label: Starter\n  - days: 10\n    points: 200\n    label: Tenacious\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	svc := NewSettingService(gdb).WithMilestonesFile(path)
	table, err := svc.Milestones(context.Background())
	if err != nil {
		t.Fatalf("Milestones returned error: %v", err)
	}
	if len(table) != 2 || table[0].Days != 3 || table[1].Label != "Tenacious" {
		t.Fatalf("unexpected table from file: %+v", table)
	}

	missing := NewSettingService(gdb).WithMilestonesFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := missing.Milestones(context.Background()); err == nil {
		t.Fatal("expected error for missing milestones file")
	}
}

func TestSettingServiceUpdateAndReset(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewSettingService(gdb)
	ctx := context.Background()

	table := streak.MilestoneTable{
		{Days: 7, Points: 100, Label: "Week"},
		{Days: 30, Points: 500, Label: "Month"},
	}
	if _, err := svc.UpdateMilestones(ctx, table); err != nil {
		t.Fatalf("UpdateMilestones returned error: %v", err)
	}

	settings, err := svc.GetMilestones(ctx)
	if err != nil {
		t.Fatalf("GetMilestones returned error: %v", err)
	}
	if settings.Source != MilestoneSourceSetting || len(settings.Milestones) != 2 || settings.Milestones[1].Points != 500 {
		t.Fatalf("unexpected stored settings: %+v", settings)
	}

	// 再次更新会覆盖而不是新增一行。
	if _, err := svc.UpdateMilestones(ctx, table[:1]); err != nil {
		t.Fatalf("second UpdateMilestones returned error: %v", err)
	}
	settings, _ = svc.GetMilestones(ctx)
	if len(settings.Milestones) != 1 {
		t.Fatalf("expected overwrite, got %+v", settings.Milestones)
	}

	reset, err := svc.ResetMilestones(ctx)
	if err != nil {
		t.Fatalf("ResetMilestones returned error: %v", err)
	}
	if reset.Source != MilestoneSourceDefault {
		t.Fatalf("expected default after reset, got %s", reset.Source)
	}
}

func TestSettingServiceRejectsInvalidTable(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewSettingService(gdb)

	cases := []streak.MilestoneTable{
		nil,
		{{Days: 30, Points: 1, Label: "a"}, {Days: 7, Points: 1, Label: "b"}},
		{{Days: 7, Points: -1, Label: "a"}},
	}
	for i, table := range cases {
		if _, err := svc.UpdateMilestones(context.Background(), table); !errors.Is(err, streak.ErrInvalidMilestones) {
			t.Fatalf("case %d: expected ErrInvalidMilestones, got %v", i, err)
		}
	}
}

func TestParseMilestonesAcceptsBareList(t *testing.T) {
	table, err := ParseMilestones([]byte("- days: 5\n  points: 50\n  label: Five\n"))
	if err != nil {
		t.Fatalf("ParseMilestones returned error: %v", err)
	}
	if len(table) != 1 || table[0].Days != 5 {
		t.Fatalf("unexpected table: %+v", table)
	}

	if _, err := ParseMilestones([]byte("milestones: []\n")); !errors.Is(err, streak.ErrInvalidMilestones) {
		t.Fatalf("expected ErrInvalidMilestones for empty table, got %v", err)
	}
}

func TestSettingServiceKeepsReachedMilestones(t *testing.T) {
	gdb := setupServiceTestDB(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "milestones.yaml")
	content := "milestones:\n  - days: 30\n    points: 500\n    label: Month\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	svc := NewSettingService(gdb).WithMilestonesFile(path)

	withWeek := streak.MilestoneTable{
		{Days: 7, Points: 100, Label: "Week"},
		{Days: 30, Points: 500, Label: "Month"},
	}
	if _, err := svc.UpdateMilestones(ctx, withWeek); err != nil {
		t.Fatalf("UpdateMilestones returned error: %v", err)
	}

	records := NewRecordService(gdb)
	if _, err := records.Upsert(ctx, streak.Record{
		Date:               daykey.MustParse("2024-06-07"),
		StreakValid:        true,
		BonusPointsAwarded: 100,
		MilestonesReached:  []int{7},
	}, 0); err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}

	monthOnly := streak.MilestoneTable{{Days: 30, Points: 500, Label: "Month"}}
	if _, err := svc.UpdateMilestones(ctx, monthOnly); !errors.Is(err, streak.ErrInvalidMilestones) {
		t.Fatalf("expected ErrInvalidMilestones when dropping a reached milestone, got %v", err)
	}
	// 回退文件里没有 7 天，重置同样会让已发放的记录失效
	if _, err := svc.ResetMilestones(ctx); !errors.Is(err, streak.ErrInvalidMilestones) {
		t.Fatalf("expected reset to be refused, got %v", err)
	}

	current, err := svc.GetMilestones(ctx)
	if err != nil {
		t.Fatalf("GetMilestones returned error: %v", err)
	}
	if current.Source != MilestoneSourceSetting || len(current.Milestones) != 2 {
		t.Fatalf("expected stored table to be untouched, got %+v", current)
	}

	repriced := streak.MilestoneTable{
		{Days: 7, Points: 150, Label: "Week"},
		{Days: 60, Points: 1000, Label: "Two Months"},
	}
	if _, err := svc.UpdateMilestones(ctx, repriced); err != nil {
		t.Fatalf("expected repricing and dropping unreached milestones to succeed, got %v", err)
	}
}
