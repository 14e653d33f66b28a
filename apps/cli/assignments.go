package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/volatiletech/null/v8"

	"github.com/PWRApex/english-prep-companion/core"
	"github.com/PWRApex/english-prep-companion/core/assignment"
)

func (a *app) assignmentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "assignments",
		Aliases: []string{"assignment"},
		Short:   "Manage assignments",
	}
	cmd.AddCommand(a.assignmentsListCmd(), a.assignmentsAddCmd(), a.assignmentsStatusCmd(), a.assignmentsRemoveCmd())
	return cmd
}

func (a *app) assignmentsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List assignments by due date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.requireUser(); err != nil {
				return err
			}
			list, err := a.c.Assignments.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(list) == 0 {
				printf(cmd.OutOrStdout(), "No assignments yet.\n")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ID\tDUE\tSTATUS\tTITLE")
			for _, as := range list {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", as.ID, as.DueDate, as.Status.Label(), as.Title)
			}
			return tw.Flush()
		},
	}
}

func (a *app) assignmentsAddCmd() *cobra.Command {
	var due, description, status string
	cmd := &cobra.Command{
		Use:   "add TITLE",
		Short: "Add an assignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := core.ParseDate(due)
			if err != nil {
				return err
			}
			as, err := a.c.Assignments.Create(cmd.Context(), assignment.NewAssignment{
				Title:       args[0],
				Description: null.NewString(description, description != ""),
				DueDate:     d,
				Status:      assignment.Status(status),
			})
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s\n", as.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&status, "status", string(assignment.Pending), "pending, in_progress or completed")
	_ = cmd.MarkFlagRequired("due")
	return cmd
}

func (a *app) assignmentsStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status ID pending|in_progress|completed",
		Short: "Change the status of an assignment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status := assignment.Status(args[1])
			if !status.Valid() {
				return errors.Errorf("unknown status %q", args[1])
			}
			_, err := a.c.Assignments.SetStatus(cmd.Context(), args[0], status)
			return err
		},
	}
}

func (a *app) assignmentsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete an assignment",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.c.Assignments.Delete(cmd.Context(), args[0])
		},
	}
}
