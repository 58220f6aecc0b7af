package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/RSinthu/QuizGenerator/internal/app"
	"github.com/RSinthu/QuizGenerator/internal/quiz"
	"github.com/RSinthu/QuizGenerator/internal/tui"
)

var (
	quizTopic      string
	quizCount      int
	quizDifficulty string
	quizPlay       bool
	quizJSON       bool
)

var quizCmd = &cobra.Command{
	Use:   "quiz <file.pdf|youtube-url>",
	Short: "Generate a multiple-choice quiz",
	Long: `Generates a quiz from a PDF file or a YouTube video. With --play the
quiz is taken interactively in the terminal and scored at the end.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuiz,
}

func init() {
	quizCmd.Flags().StringVarP(&quizTopic, "topic", "t", "", "area the questions should focus on (required)")
	quizCmd.Flags().IntVarP(&quizCount, "count", "n", 5, "number of questions")
	quizCmd.Flags().StringVarP(&quizDifficulty, "difficulty", "d", quiz.Medium, "easy, medium or hard")
	quizCmd.Flags().BoolVar(&quizPlay, "play", false, "take the quiz interactively")
	quizCmd.Flags().BoolVar(&quizJSON, "json", false, "output the quiz as JSON")
	_ = quizCmd.MarkFlagRequired("topic")
	rootCmd.AddCommand(quizCmd)
}

func runQuiz(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	req := quiz.Request{Topic: quizTopic, Count: quizCount, Difficulty: quizDifficulty}
	if err := req.Validate(); err != nil {
		return err
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	load := quizLoader(a, args[0], req)
	if quizPlay {
		res, err := tui.Run(ctx, fmt.Sprintf("Quiz: %s", req.Topic), load)
		if err != nil {
			return err
		}
		if res != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Final score: %d/%d (%d%%)\n", res.Correct, res.Total, res.Percentage)
		}
		return nil
	}

	questions, err := load(ctx)
	if err != nil {
		return err
	}
	if quizJSON {
		data, err := json.MarshalIndent(quiz.Quiz{Quiz: questions}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal quiz: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}
	printQuiz(cmd.OutOrStdout(), questions)
	return nil
}

func quizLoader(a *app.App, src string, req quiz.Request) tui.LoadFunc {
	return func(ctx context.Context) ([]quiz.Question, error) {
		if isVideoURL(src) {
			return a.Quizzes.FromVideo(ctx, quiz.VideoRequest{URL: src, Request: req})
		}
		doc, origin, err := pdfSource(src)
		if err != nil {
			return nil, err
		}
		return a.Quizzes.FromPDF(ctx, doc, origin, req)
	}
}

func printQuiz(w io.Writer, questions []quiz.Question) {
	for i, q := range questions {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%d. %s [%s]\n", i+1, q.Question, q.Difficulty)
		for j, opt := range q.Options {
			fmt.Fprintf(w, "   %c) %s\n", 'A'+rune(j), opt)
		}
		fmt.Fprintf(w, "   Answer: %c\n", 'A'+rune(q.Correct))
	}
}
