package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RSinthu/QuizGenerator/internal/summarize"
)

var summarizeJSON bool

var summarizeCmd = &cobra.Command{
	Use:     "summarize <file.pdf|youtube-url>",
	Aliases: []string{"summary"},
	Short:   "Summarize a PDF or a YouTube video",
	Args:    cobra.ExactArgs(1),
	RunE:    runSummarize,
}

func init() {
	summarizeCmd.Flags().BoolVar(&summarizeJSON, "json", false, "output the summary as JSON")
	rootCmd.AddCommand(summarizeCmd)
}

func runSummarize(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var sum *summarize.Summary
	if isVideoURL(args[0]) {
		sum, err = a.Summaries.FromVideo(ctx, summarize.VideoRequest{URL: args[0]})
	} else {
		doc, origin, openErr := pdfSource(args[0])
		if openErr != nil {
			return openErr
		}
		sum, err = a.Summaries.FromPDF(ctx, doc, origin)
	}
	if err != nil {
		return err
	}

	if summarizeJSON {
		data, err := json.MarshalIndent(sum, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal summary: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), sum.Summary)
	for _, w := range sum.Warnings {
		cmd.PrintErrln("warning:", w)
	}
	return nil
}
