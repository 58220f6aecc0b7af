package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/RSinthu/QuizGenerator/internal/ollama"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models installed on the local Ollama server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		selector := ollama.NewModelSelector(ollama.NewClient(cfg.Generation.Ollama.BaseURL, 10*time.Second))

		models, err := selector.ListModels(ctx)
		if err != nil {
			return err
		}
		if len(models) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No models installed.")
			return nil
		}
		chosen, err := selector.SelectModel(ctx, cfg.Generation.Ollama.Model, true)
		if err != nil {
			return err
		}
		for _, m := range models {
			marker := " "
			if m.Name == chosen {
				marker = "*"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %-32s %6.1f GB\n", marker, m.Name, float64(m.Size)/(1<<30))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
