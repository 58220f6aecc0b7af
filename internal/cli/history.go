package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RSinthu/QuizGenerator/internal/db"
)

var (
	historyLimit   int
	historySimilar   string
	historySummaries bool
	historyJSON      bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored quizzes",
	Long: `Lists quizzes recorded in the database, newest first. With --similar
the quizzes whose topic is closest to the given text are listed instead.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", db.DefaultListLimit, "maximum number of quizzes")
	historyCmd.Flags().StringVar(&historySimilar, "similar", "", "rank quizzes by similarity to this topic")
	historyCmd.Flags().BoolVar(&historySummaries, "summaries", false, "list stored summaries instead of quizzes")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if a.DB == nil {
		return errors.New("no database configured; set DATABASE_URL")
	}

	if historySummaries {
		return listSummaries(cmd, a.DB)
	}

	var quizzes []*db.Quiz
	if historySimilar != "" {
		vec, err := a.Embedder.EmbedText(ctx, historySimilar)
		if err != nil {
			return fmt.Errorf("failed to embed topic: %w", err)
		}
		quizzes, err = a.DB.SimilarQuizzes(ctx, vec, historyLimit)
		if err != nil {
			return err
		}
	} else if quizzes, err = a.DB.ListQuizzes(ctx, historyLimit); err != nil {
		return err
	}

	if historyJSON {
		data, err := json.MarshalIndent(quizzes, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal history: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}
	if len(quizzes) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No quizzes recorded.")
		return nil
	}
	for _, q := range quizzes {
		line := fmt.Sprintf("%s  %-8s %-7s %2d questions  %s", q.CreatedAt.Format("2006-01-02 15:04"), q.SourceKind, q.Difficulty, len(q.Questions), q.Topic)
		if q.Distance != nil {
			line += fmt.Sprintf("  (distance %.3f)", *q.Distance)
		}
		if q.Title != "" {
			line += "  · " + q.Title
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return nil
}

func listSummaries(cmd *cobra.Command, store *db.DB) error {
	summaries, err := store.ListSummaries(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if historyJSON {
		data, err := json.MarshalIndent(summaries, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal history: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}
	if len(summaries) == 0 {
		fmt.Fprintln(out, "No summaries recorded.")
		return nil
	}
	for _, s := range summaries {
		title := s.Title
		if title == "" {
			title = s.SourceRef
		}
		fmt.Fprintf(out, "%s  %-8s %-10s %s\n", s.CreatedAt.Format("2006-01-02 15:04"), s.SourceKind, s.Method, title)
	}
	return nil
}
