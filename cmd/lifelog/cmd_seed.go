package main

import (
	"fmt"

	"github.com/lifelog/internal/seed"
	"github.com/spf13/cobra"
)

func runSeed(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	application, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	seeder := seed.NewSeeder(application.Tasks, application.Logs, application.Engine)
	result, err := seeder.Run(ctx, seed.Options{Days: seedDays, Seed: seedValue, Force: seedForce})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if result.Skipped {
		fmt.Fprintln(out, mutedStyle.Render("tasks already exist, nothing generated (use --force)"))
		return nil
	}
	fmt.Fprintln(out, titleStyle.Render("Seed complete"))
	fmt.Fprintf(out, "tasks created:  %d\n", result.TasksCreated)
	fmt.Fprintf(out, "days generated: %d (%d valid)\n", result.Days, result.ValidDays)
	fmt.Fprintf(out, "current streak: %d\n", result.CurrentStreak)
	fmt.Fprintf(out, "bonus points:   %d\n", result.BonusPoints)
	return nil
}
