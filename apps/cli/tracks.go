package cli

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/PWRApex/english-prep-companion/core/track"
	"github.com/PWRApex/english-prep-companion/services/importer"
)

func (a *app) tracksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tracks",
		Aliases: []string{"track"},
		Short:   "Manage course units: vocabulary and grammar topics",
	}
	cmd.AddCommand(a.tracksListCmd(), a.tracksAddCmd(), a.tracksLearnCmd(), a.tracksRemoveCmd(), a.tracksImportCmd())
	return cmd
}

func (a *app) tracksListCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracks and their completion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.requireUser(); err != nil {
				return err
			}
			tracks, err := a.c.Tracks.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(tracks) == 0 {
				printf(cmd.OutOrStdout(), "No tracks yet.\n")
				return nil
			}
			if verbose {
				for _, t := range tracks {
					printTrack(cmd, t)
				}
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ID\tUNIT\tWORDS\tTOPICS\tDONE")
			for _, t := range tracks {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%d\t%d%%\n",
					t.ID, t.UnitName, t.LearnedCount(), len(t.Vocabulary), len(t.GrammarTopics), t.CompletionPercentage)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print the vocabulary and grammar topics")
	return cmd
}

func printTrack(cmd *cobra.Command, t track.Track) {
	out := cmd.OutOrStdout()
	printf(out, "%s  %s (%d%%)\n", t.ID, t.UnitName, t.CompletionPercentage)
	for i, item := range t.Vocabulary {
		mark := " "
		if item.Learned {
			mark = "x"
		}
		printf(out, "  %d. [%s] %s: %s\n", i, mark, item.Word, item.Meaning)
	}
	for _, topic := range t.GrammarTopics {
		printf(out, "  - %s\n", topic)
	}
}

func (a *app) tracksAddCmd() *cobra.Command {
	var words, topics []string
	cmd := &cobra.Command{
		Use:   "add UNIT",
		Short: `Create a track, e.g. add "Unit 1" --word "apple=elma" --topic "Present simple"`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := new(track.Draft)
			d.SetUnitName(args[0])
			for _, w := range words {
				word, meaning, ok := strings.Cut(w, "=")
				if !ok || !d.AddVocabulary(word, meaning) {
					return errors.Errorf("invalid word %q: expected WORD=MEANING", w)
				}
			}
			for _, topic := range topics {
				if !d.AddGrammarTopic(topic) {
					return errors.Errorf("invalid grammar topic %q", topic)
				}
			}
			t, err := a.c.Tracks.CreateFromDraft(cmd.Context(), d)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s\n", t.ID)
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&words, "word", "w", nil, "vocabulary item as WORD=MEANING (repeatable)")
	cmd.Flags().StringArrayVarP(&topics, "topic", "t", nil, "grammar topic (repeatable)")
	return cmd
}

func (a *app) tracksLearnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "learn ID INDEX",
		Short: "Toggle the learned flag of a vocabulary item (see list -v for the indexes)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return errors.Errorf("invalid index %q", args[1])
			}
			t, err := a.c.Tracks.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			t, err = a.c.Tracks.ToggleLearned(cmd.Context(), t, index)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s: %d%%\n", t.UnitName, t.CompletionPercentage)
			return nil
		},
	}
}

func (a *app) tracksRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete a track",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.c.Tracks.Delete(cmd.Context(), args[0])
		},
	}
}

func (a *app) tracksImportCmd() *cobra.Command {
	var (
		unit   string
		dryRun bool
	)
	cfg := importer.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Create a track from a vocabulary spreadsheet (xlsx or csv)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := new(track.Draft)
			d.SetUnitName(unit)
			res, err := importer.ImportFile(args[0], cfg, d)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printf(out, "Processed %d rows: %d words, %d grammar topics, %d skipped\n",
				res.TotalProcessed, res.Vocabulary, res.GrammarTopics, res.Skipped)
			for _, e := range res.Errors {
				printf(out, "  %s\n", e)
			}
			if dryRun {
				return nil
			}
			t, err := a.c.Tracks.CreateFromDraft(cmd.Context(), d)
			if err != nil {
				return err
			}
			printf(out, "%s\n", t.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&unit, "unit", "u", "", "unit name")
	cmd.Flags().StringVar(&cfg.WordColumn, "word-column", cfg.WordColumn, "column of the words")
	cmd.Flags().StringVar(&cfg.MeaningColumn, "meaning-column", cfg.MeaningColumn, "column of the meanings")
	cmd.Flags().StringVar(&cfg.GrammarColumn, "grammar-column", cfg.GrammarColumn, "column of the grammar topics (empty to skip)")
	cmd.Flags().StringVar(&cfg.SheetName, "sheet", "", "xlsx sheet (default the first one)")
	cmd.Flags().IntVar(&cfg.StartRow, "start-row", cfg.StartRow, "first imported row")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse the file without creating the track")
	_ = cmd.MarkFlagRequired("unit")
	return cmd
}
