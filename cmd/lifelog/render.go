package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lifelog/internal/streak"
)

// Color palette
var (
	colorPrimary = lipgloss.Color("#6C63FF")
	colorMuted   = lipgloss.Color("#666666")
	colorSuccess = lipgloss.Color("#2ECC71")
	colorWarning = lipgloss.Color("#F39C12")
	colorError   = lipgloss.Color("#E74C3C")
	colorSubtle  = lipgloss.Color("#414868")
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSubtle).
			Padding(0, 1)

	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	validStyle   = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	restStyle    = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	invalidStyle = lipgloss.NewStyle().Foreground(colorError)
)

// dayMark 返回单日的标记：✔ 有效，R 休息日，· 无效。
func dayMark(eval streak.DayEvaluation) string {
	switch {
	case eval.Valid && eval.IsRestDay:
		return restStyle.Render("R")
	case eval.Valid:
		return validStyle.Render("✔")
	default:
		return invalidStyle.Render("·")
	}
}

func renderSnapshot(s streak.Snapshot) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Streak on %s", s.Today)))
	if s.Stale {
		b.WriteString(" " + mutedStyle.Render("(stale)"))
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Current streak: %d days\n", s.CurrentStreak)
	fmt.Fprintf(&b, "Longest streak: %d days\n", s.LongestStreak)
	fmt.Fprintf(&b, "Bonus points:   %d\n", s.TotalBonusPoints)

	today := s.TodayBreakdown
	fmt.Fprintf(&b, "Today:          %d/%d tasks, exercise %s",
		today.RoutineTasksCompleted, today.MinRoutineTasks, yesNo(today.HasExercise))
	if today.TasksRemaining > 0 {
		b.WriteString(mutedStyle.Render(fmt.Sprintf(" (%d to go)", today.TasksRemaining)))
	}
	b.WriteString("\n")

	marks := make([]string, 0, len(s.Last7Days))
	for _, eval := range s.Last7Days {
		marks = append(marks, dayMark(eval))
	}
	fmt.Fprintf(&b, "Last 7 days:    %s\n", strings.Join(marks, " "))

	if s.NextMilestone != nil {
		fmt.Fprintf(&b, "Next milestone: %s (%d days, +%d) in %d days\n",
			s.NextMilestone.Label, s.NextMilestone.Days, s.NextMilestone.Points, s.NextMilestone.DaysRemaining)
	} else {
		b.WriteString("Next milestone: " + mutedStyle.Render("all reached") + "\n")
	}

	if len(s.ReachedMilestones) > 0 {
		labels := make([]string, 0, len(s.ReachedMilestones))
		for _, m := range s.ReachedMilestones {
			labels = append(labels, m.Label)
		}
		fmt.Fprintf(&b, "Reached:        %s\n", strings.Join(labels, ", "))
	}

	return panelStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func renderUpdate(r streak.UpdateResult) string {
	status := invalidStyle.Render("invalid")
	switch {
	case r.Valid && r.IsRestDay:
		status = restStyle.Render("rest day")
	case r.Valid:
		status = validStyle.Render("valid")
	}
	line := fmt.Sprintf("%s  %s  streak %d", r.Date, status, r.CurrentStreak)
	if r.BonusPoints > 0 {
		line += fmt.Sprintf("  +%d points (milestones %v)", r.BonusPoints, r.NewMilestones)
	}
	return line
}

func renderRepair(r streak.RepairResult) string {
	if !r.Repaired {
		return fmt.Sprintf("%s  %s", r.Record.Date, mutedStyle.Render("record is consistent, nothing to repair"))
	}
	return fmt.Sprintf("%s  %s  dropped milestones %v, bonus now %d",
		r.Record.Date, restStyle.Render("repaired"), r.DroppedMilestones, r.Record.BonusPointsAwarded)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
