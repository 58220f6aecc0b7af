package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/RSinthu/QuizGenerator/internal/rag"
)

var (
	retrieveK    int
	retrieveJSON bool
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve <file.pdf> <query>",
	Short: "Show the chunks a query retrieves from a PDF",
	Long: `Indexes the text and images of a PDF and prints the chunks most similar
to the query, as they would be handed to the generation model.`,
	Args: cobra.ExactArgs(2),
	RunE: runRetrieve,
}

func init() {
	retrieveCmd.Flags().IntVarP(&retrieveK, "k", "k", 0, "number of chunks (default from config)")
	retrieveCmd.Flags().BoolVar(&retrieveJSON, "json", false, "output the result as JSON")
	rootCmd.AddCommand(retrieveCmd)
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	doc, _, err := pdfSource(args[0])
	if err != nil {
		return err
	}
	res, err := a.Retriever.Retrieve(ctx, doc, args[1], retrieveK)
	if err != nil {
		return err
	}

	if retrieveJSON {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}
	printHits(cmd.OutOrStdout(), res)
	for _, w := range res.WarningMessages() {
		cmd.PrintErrln("warning:", w)
	}
	return nil
}

func printHits(w io.Writer, res *rag.RetrievalResult) {
	fmt.Fprintf(w, "%d chunks indexed, %d retrieved\n\n", res.Indexed, len(res.Hits))
	for _, h := range res.Hits {
		content := strings.Join(strings.Fields(h.Chunk.Content), " ")
		if len(content) > 120 {
			content = content[:117] + "..."
		}
		fmt.Fprintf(w, "[%.3f] page %d %-5s %s\n        %s\n", h.Score, h.Chunk.Page, h.Chunk.Modality, h.Chunk.ID, content)
	}
}
