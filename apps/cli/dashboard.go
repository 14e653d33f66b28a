package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/volatiletech/null/v8"

	"github.com/PWRApex/english-prep-companion/core/dashboard"
)

func (a *app) dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Summary of upcoming exams, pending assignments, absences and progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.requireUser(); err != nil {
				return err
			}
			sum, err := a.c.Dashboard(cmd.Context())
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), sum)
			return nil
		},
	}
}

func printSummary(out io.Writer, sum dashboard.Summary) {
	g := sum.Greeting
	printf(out, "Welcome back, %s! (%s, level %s)\n\n", g.Name, g.Initials, g.Level)

	printf(out, "Course progress: %d%% (%d/%d tracks completed)\n", sum.CourseProgress, sum.CompletedTracks, sum.TotalTracks)
	printf(out, "Average grade: %s\n", grade(sum.AverageGrade))
	absence := fmt.Sprintf("%dh", sum.TotalAbsenceHours)
	if sum.HighAbsence {
		absence += " (warning: high absence)"
	}
	printf(out, "Absences: %s\n", absence)

	if len(sum.AverageByType) > 0 {
		printf(out, "\nAverage by exam type:\n")
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, avg := range sum.AverageByType {
			_, _ = fmt.Fprintf(tw, "  %s\t%s\t(%d)\n", avg.Label, grade(avg.Average), avg.Count)
		}
		_ = tw.Flush()
	}

	printf(out, "\nUpcoming exams:\n")
	if len(sum.UpcomingExams) == 0 {
		printf(out, "  none\n")
	}
	for _, e := range sum.UpcomingExams {
		printf(out, "  %s  %s (%s)\n", e.Date, e.Title, e.Type.Label())
	}

	printf(out, "\nPending assignments:\n")
	if len(sum.PendingAssignments) == 0 {
		printf(out, "  none\n")
	}
	for _, as := range sum.PendingAssignments {
		printf(out, "  %s  %s (%s)\n", as.DueDate, as.Title, as.Status.Label())
	}
}

func grade(g null.Float64) string {
	if !g.Valid {
		return "-"
	}
	return fmt.Sprintf("%.1f", g.Float64)
}
