package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/volatiletech/null/v8"

	"github.com/PWRApex/english-prep-companion/core"
	"github.com/PWRApex/english-prep-companion/core/dashboard"
	"github.com/PWRApex/english-prep-companion/core/exam"
)

func (a *app) examsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "exams",
		Aliases: []string{"exam"},
		Short:   "Manage exams and grades",
	}
	cmd.AddCommand(a.examsListCmd(), a.examsAddCmd(), a.examsGradeCmd(), a.examsRemoveCmd())
	return cmd
}

func (a *app) examsListCmd() *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List exams, latest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.requireUser(); err != nil {
				return err
			}
			if filter != dashboard.FilterAll && !exam.Type(filter).Valid() {
				return errors.Errorf("unknown exam type %q", filter)
			}
			exams, err := a.c.Exams.List(cmd.Context())
			if err != nil {
				return err
			}
			exams = dashboard.FilterExams(exams, filter)
			if len(exams) == 0 {
				printf(cmd.OutOrStdout(), "No exams yet.\n")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ID\tDATE\tTYPE\tTITLE\tGRADE")
			for _, e := range exams {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.ID, e.Date, e.Type.Label(), e.Title, grade(e.Grade))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&filter, "type", dashboard.FilterAll, "exam type: all, quiz, midterm, final or speaking")
	return cmd
}

func (a *app) examsAddCmd() *cobra.Command {
	var (
		examType, date, notes string
		gradeVal              float64
	)
	cmd := &cobra.Command{
		Use:   "add TITLE",
		Short: "Record an exam",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := core.ParseDate(date)
			if err != nil {
				return err
			}
			ne := exam.NewExam{
				Title: args[0],
				Type:  exam.Type(examType),
				Date:  d,
				Grade: null.NewFloat64(gradeVal, cmd.Flags().Changed("grade")),
				Notes: null.NewString(notes, notes != ""),
			}
			e, err := a.c.Exams.Create(cmd.Context(), ne)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s\n", e.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&examType, "type", string(exam.Quiz), "exam type: quiz, midterm, final or speaking")
	cmd.Flags().StringVar(&date, "date", "", "exam date (YYYY-MM-DD)")
	cmd.Flags().Float64Var(&gradeVal, "grade", 0, "grade out of 100")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func (a *app) examsGradeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "grade ID GRADE|none",
		Short: "Record the grade of an exam, or clear it with none",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var g null.Float64
			if args[1] != "none" {
				f, err := strconv.ParseFloat(args[1], 64)
				if err != nil {
					return errors.Errorf("invalid grade %q", args[1])
				}
				g = null.Float64From(f)
			}
			_, err := a.c.Exams.SetGrade(cmd.Context(), args[0], g)
			return err
		},
	}
}

func (a *app) examsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete an exam",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.c.Exams.Delete(cmd.Context(), args[0])
		},
	}
}
