// Package cli implements the quizgen command line.
package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RSinthu/QuizGenerator/config"
	"github.com/RSinthu/QuizGenerator/internal/app"
	"github.com/RSinthu/QuizGenerator/internal/documents"
	"github.com/RSinthu/QuizGenerator/internal/logging"
	"github.com/RSinthu/QuizGenerator/internal/rag"
)

var (
	cfgPath string
	cfg     *config.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "quizgen",
	Short: "Generate quizzes and summaries from PDFs and YouTube videos",
	Long: `quizgen builds multiple-choice quizzes and summaries from PDF documents
and YouTube videos. Text and page images are embedded into a shared vector
space so retrieval can return diagrams alongside the text around them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.Logging.Level, cfg.Logging.Format)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ~/.quizgen/config.yaml)")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	defer func() {
		if logger != nil {
			_ = logger.Sync()
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

func newApp(ctx context.Context) (*app.App, error) {
	return app.New(ctx, cfg, logger)
}

func isVideoURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// pdfSource reads a PDF from disk and identifies it by content hash.
func pdfSource(path string) (rag.Source, rag.Origin, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, rag.Origin{}, err
	}
	origin := rag.Origin{Name: filepath.Base(path), Ref: documents.ContentHash(data)}
	return rag.PDFBytes(data), origin, nil
}
