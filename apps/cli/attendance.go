package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/PWRApex/english-prep-companion/core"
	"github.com/PWRApex/english-prep-companion/core/attendance"
	"github.com/PWRApex/english-prep-companion/core/dashboard"
)

func (a *app) attendanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attendance",
		Short: "Manage attendance records",
	}
	cmd.AddCommand(a.attendanceListCmd(), a.attendanceAddCmd(), a.attendanceRemoveCmd())
	return cmd
}

func (a *app) attendanceListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List attendance records, latest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.requireUser(); err != nil {
				return err
			}
			records, err := a.c.Attendance.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(records) == 0 {
				printf(cmd.OutOrStdout(), "No attendance records yet.\n")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ID\tDATE\tSTATUS\tHOURS")
			for _, r := range records {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", r.ID, r.Date, r.Status.Label(), r.Hours)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			total := dashboard.TotalAbsenceHours(records)
			printf(cmd.OutOrStdout(), "\nTotal absence: %dh\n", total)
			if dashboard.HighAbsence(total) {
				printf(cmd.OutOrStdout(), "Warning: high absence\n")
			}
			return nil
		},
	}
}

func (a *app) attendanceAddCmd() *cobra.Command {
	var (
		date   string
		hours  int
		absent bool
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a class, present unless --absent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d := core.DateOf(time.Now())
			if date != "" {
				var err error
				if d, err = core.ParseDate(date); err != nil {
					return err
				}
			}
			na := attendance.Default(d)
			na.Hours = hours
			if absent {
				na.Status = attendance.Absent
			}
			r, err := a.c.Attendance.Create(cmd.Context(), na)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s\n", r.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "class date (YYYY-MM-DD, default today)")
	cmd.Flags().IntVar(&hours, "hours", attendance.MinHours, fmt.Sprintf("class hours (%d-%d)", attendance.MinHours, attendance.MaxHours))
	cmd.Flags().BoolVar(&absent, "absent", false, "record an absence")
	return cmd
}

func (a *app) attendanceRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete an attendance record",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.c.Attendance.Delete(cmd.Context(), args[0])
		},
	}
}
