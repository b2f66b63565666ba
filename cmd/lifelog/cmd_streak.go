package main

import (
	"encoding/json"
	"fmt"

	"github.com/lifelog/internal/daykey"
	"github.com/lifelog/internal/streak"
	"github.com/spf13/cobra"
)

func runRecompute(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	application, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	days, err := recomputeDays(application.Engine, dateFlag, fromFlag, toFlag)
	if err != nil {
		return err
	}

	for _, day := range days {
		result, err := application.Engine.UpdateStreakForDate(ctx, day)
		if err != nil {
			return fmt.Errorf("recompute %s: %w", day, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderUpdate(result))
	}
	return nil
}

// recomputeDays 解析 --date 或 --from/--to，范围按日期升序返回，不能晚于今天。
func recomputeDays(engine *streak.Engine, date, from, to string) ([]daykey.DayKey, error) {
	if date != "" && from != "" {
		return nil, fmt.Errorf("--date and --from are mutually exclusive")
	}
	today, err := engine.Today()
	if err != nil {
		return nil, err
	}
	if from == "" {
		day := today
		if date != "" {
			if day, err = daykey.Parse(date); err != nil {
				return nil, err
			}
		}
		if err := engine.CheckNotFuture(day); err != nil {
			return nil, err
		}
		return []daykey.DayKey{day}, nil
	}

	first, err := daykey.Parse(from)
	if err != nil {
		return nil, err
	}
	last := today
	if to != "" {
		if last, err = daykey.Parse(to); err != nil {
			return nil, err
		}
	}
	if last.Before(first) {
		return nil, fmt.Errorf("--to %s is before --from %s", last, first)
	}
	if err := engine.CheckNotFuture(last); err != nil {
		return nil, err
	}
	if daykey.Between(first, last) > streak.MaxLookbackDays {
		return nil, fmt.Errorf("range %s..%s exceeds %d days", first, last, streak.MaxLookbackDays)
	}
	return daykey.Span(first, last), nil
}

func runRepair(cmd *cobra.Command, args []string) error {
	day, err := daykey.Parse(args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	application, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	result, err := application.Engine.RepairRecord(ctx, day)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderRepair(result))
	return nil
}

func runSnapshot(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	application, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	snapshot, err := application.Engine.Snapshot(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(snapshot)
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderSnapshot(snapshot))
	return nil
}
