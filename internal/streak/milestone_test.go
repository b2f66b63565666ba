package streak

import (
	"errors"
	"slices"
	"testing"
)

func TestReconcileMilestones(t *testing.T) {
	table := MilestoneTable{
		{Days: 7, Points: 100, Label: "Week"},
		{Days: 30, Points: 500, Label: "Month"},
	}

	first := ReconcileMilestones(table, 7, nil)
	if !slices.Equal(first.NewMilestones, []int{7}) || first.BonusPoints != 100 {
		t.Fatalf("expected {7} / 100, got %+v", first)
	}

	again := ReconcileMilestones(table, 7, first.NewMilestones)
	if len(again.NewMilestones) != 0 || again.BonusPoints != 0 {
		t.Fatalf("expected nothing new on second pass, got %+v", again)
	}
}

func TestReconcileMilestonesCatchesUp(t *testing.T) {
	table := DefaultMilestones()

	got := ReconcileMilestones(table, 45, []int{7})
	if !slices.Equal(got.NewMilestones, []int{14, 30}) {
		t.Fatalf("expected 14 and 30, got %v", got.NewMilestones)
	}
	if got.BonusPoints != 750 {
		t.Fatalf("expected 750 points, got %d", got.BonusPoints)
	}

	if got := ReconcileMilestones(table, 6, nil); len(got.NewMilestones) != 0 {
		t.Fatalf("expected nothing below first threshold, got %v", got.NewMilestones)
	}
}

func TestMilestoneTableValidate(t *testing.T) {
	if err := DefaultMilestones().Validate(); err != nil {
		t.Fatalf("default table should be valid: %v", err)
	}

	bad := []MilestoneTable{
		{{Days: 0, Points: 10, Label: "zero"}},
		{{Days: 7, Points: 10, Label: "a"}, {Days: 7, Points: 20, Label: "b"}},
		{{Days: 14, Points: 10, Label: "a"}, {Days: 7, Points: 20, Label: "b"}},
		{{Days: 7, Points: -1, Label: "negative"}},
		{{Days: 7, Points: 10, Label: "  "}},
	}
	for i, table := range bad {
		if err := table.Validate(); !errors.Is(err, ErrInvalidMilestones) {
			t.Fatalf("case %d: expected ErrInvalidMilestones, got %v", i, err)
		}
	}
}

func TestNextUnreached(t *testing.T) {
	table := DefaultMilestones()

	next, ok := table.NextUnreached([]int{7, 30})
	if !ok || next.Days != 14 {
		t.Fatalf("expected 14 as next milestone, got %+v (ok=%v)", next, ok)
	}

	all := make([]int, 0, len(table))
	for _, m := range table {
		all = append(all, m.Days)
	}
	if _, ok := table.NextUnreached(all); ok {
		t.Fatalf("expected no next milestone once all are reached")
	}
}

func TestRecordValidate(t *testing.T) {
	table := DefaultMilestones()

	good := Record{Date: day("2024-06-10"), RoutineTasksCompleted: 5, MilestonesReached: []int{7, 14}}
	if err := good.Validate(table); err != nil {
		t.Fatalf("expected valid record, got %v", err)
	}

	bad := []Record{
		{MilestonesReached: []int{7}},
		{Date: day("2024-06-10"), RoutineTasksCompleted: -1},
		{Date: day("2024-06-10"), BonusPointsAwarded: -5},
		{Date: day("2024-06-10"), MilestonesReached: []int{7, 7}},
		{Date: day("2024-06-10"), MilestonesReached: []int{8}},
		{Date: day("2024-06-10"), MilestonesReached: []int{-7}},
	}
	for i, r := range bad {
		if err := r.Validate(table); !errors.Is(err, ErrCorruptRecord) {
			t.Fatalf("case %d: expected ErrCorruptRecord, got %v", i, err)
		}
	}
}
