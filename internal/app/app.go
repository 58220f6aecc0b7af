// Package app wires configuration into the running services.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/RSinthu/QuizGenerator/config"
	"github.com/RSinthu/QuizGenerator/internal/db"
	"github.com/RSinthu/QuizGenerator/internal/embeddings"
	"github.com/RSinthu/QuizGenerator/internal/llm"
	"github.com/RSinthu/QuizGenerator/internal/ollama"
	"github.com/RSinthu/QuizGenerator/internal/quiz"
	"github.com/RSinthu/QuizGenerator/internal/rag"
	"github.com/RSinthu/QuizGenerator/internal/server"
	"github.com/RSinthu/QuizGenerator/internal/summarize"
	"github.com/RSinthu/QuizGenerator/internal/transcript"
)

// App holds every long-lived dependency. Optional stores (DB, Redis) are
// nil when not configured or unreachable.
type App struct {
	Config *config.Config
	Logger *zap.Logger

	Embedder    embeddings.Embedder
	Retriever   *rag.Retriever
	Generator   *llm.Chain
	Transcripts transcript.Fetcher

	DB    *db.DB
	Redis *redis.Client

	Quizzes   *quiz.Service
	Summaries *summarize.Summarizer
}

// New builds the application from cfg. Only an unusable embedder is fatal;
// missing providers and unreachable stores are logged and skipped.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	if err := a.initEmbedder(); err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	a.Retriever = rag.NewRetriever(a.Embedder, rag.Config{
		TopK:                   cfg.Processing.TopK,
		ChunkSize:              cfg.Processing.ChunkSize,
		ChunkOverlap:           cfg.Processing.ChunkOverlap,
		Workers:                cfg.Processing.EmbedWorkers,
		TranscriptChunkSize:    cfg.Processing.TranscriptChunkSize,
		TranscriptChunkOverlap: cfg.Processing.TranscriptChunkOverlap,
		MMRFetchK:              cfg.Processing.MMRFetchK,
		MMRLambda:              cfg.Processing.MMRLambda,
	}, logger)

	if err := a.initGenerators(); err != nil {
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}
	a.initRedis(ctx)
	a.initTranscripts()
	a.initDatabase(ctx)
	a.initServices()

	logger.Info("all dependencies initialized",
		zap.String("embedder", a.Embedder.Name()),
		zap.String("providers", a.Generator.Name()),
		zap.Bool("history", a.DB != nil),
		zap.Bool("transcript_cache", a.Redis != nil))
	return a, nil
}

func (a *App) initEmbedder() error {
	cfg := a.Config
	emb, err := embeddings.Shared(embeddings.Options{
		Backend:   cfg.Embeddings.Backend,
		Dimension: cfg.Embeddings.Dimension,
		MaxTokens: cfg.Embeddings.MaxTokens,
		CLIP: embeddings.CLIPConfig{
			PythonPath: cfg.CLIP.PythonPath,
			ScriptPath: cfg.CLIP.ScriptPath,
			Model:      cfg.CLIP.Model,
		},
	}, a.Logger)
	if err != nil {
		return err
	}
	a.Embedder = emb
	return nil
}

// initGenerators builds the provider chain: Gemini, then Groq, then a local
// Ollama server.
func (a *App) initGenerators() error {
	gen := a.Config.Generation
	var providers []llm.Generator

	if gen.Gemini.APIKey != "" {
		g, err := llm.NewGemini(llm.GeminiConfig{
			APIKey:  gen.Gemini.APIKey,
			Model:   gen.Gemini.Model,
			BaseURL: gen.Gemini.BaseURL,
			Timeout: gen.Gemini.Timeout,
		})
		if err != nil {
			return err
		}
		providers = append(providers, g)
	}
	if gen.Groq.APIKey != "" {
		g, err := llm.NewGroq(llm.GroqConfig{
			APIKey:  gen.Groq.APIKey,
			Model:   gen.Groq.Model,
			BaseURL: gen.Groq.BaseURL,
			Timeout: gen.Groq.Timeout,
		})
		if err != nil {
			return err
		}
		providers = append(providers, g)
	}
	if gen.Ollama.Enabled {
		client := ollama.NewClient(gen.Ollama.BaseURL, 5*time.Minute)
		providers = append(providers, llm.NewOllama(client, gen.Ollama.Model, a.Logger))
	}

	if len(providers) == 0 {
		a.Logger.Warn("no generation providers configured; quiz and summary requests will fail",
			zap.String("hint", "set GOOGLE_API_KEY, GROQ_API_KEY or enable ollama"))
	}
	a.Generator = llm.NewChain(a.Logger, providers...)
	return nil
}

func (a *App) initRedis(ctx context.Context) {
	rc := a.Config.Redis
	if rc.Addr == "" {
		return
	}
	client := redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		a.Logger.Warn("redis unreachable, transcript cache disabled",
			zap.String("addr", rc.Addr), zap.Error(err))
		_ = client.Close()
		return
	}
	a.Redis = client
}

// initTranscripts builds the fallback chain of transcript sources, cached in
// redis when available.
func (a *App) initTranscripts() {
	lang := a.Config.Processing.TranscriptLanguage
	httpClient := &http.Client{Timeout: 30 * time.Second}
	yt := transcript.NewYouTubeClient(httpClient)

	chain := transcript.NewChain(a.Logger,
		transcript.NewCaptions(httpClient, transcript.DefaultWatchURL, lang),
		transcript.NewLoader(yt, lang),
		transcript.NewDescription(yt),
	)
	if a.Redis == nil {
		a.Transcripts = chain
		return
	}
	a.Transcripts = transcript.NewCache(chain, a.Redis, a.Config.Redis.TranscriptTTL, a.Logger)
}

func (a *App) initDatabase(ctx context.Context) {
	conn := a.Config.Database.ConnectionString
	if conn == "" {
		a.Logger.Info("no database configured, history disabled")
		return
	}
	database, err := db.New(ctx, conn)
	if err != nil {
		a.Logger.Warn("database unavailable, history disabled", zap.Error(err))
		return
	}
	a.DB = database
	a.Logger.Info("database connection established")
}

func (a *App) initServices() {
	cfg := a.Config

	quizOpts := []quiz.Option{quiz.WithLogger(a.Logger), quiz.WithTopK(cfg.Processing.TopK)}
	sumCfg := summarize.Config{GroupChars: cfg.Processing.SummaryGroupChars}
	if a.DB != nil {
		quizOpts = append(quizOpts, quiz.WithHistory(a.DB))
		sumCfg.History = a.DB
	}

	a.Quizzes = quiz.NewService(a.Retriever, a.Embedder, a.Transcripts, a.Generator, quizOpts...)
	a.Summaries = summarize.New(a.Generator, a.Transcripts, sumCfg, a.Logger)
}

// Server returns the HTTP server over the app's services.
func (a *App) Server() *server.Server {
	deps := server.Deps{
		Quizzes:   a.Quizzes,
		Summaries: a.Summaries,
		Retriever: a.Retriever,
		Embedder:  a.Embedder,
	}
	if a.DB != nil {
		deps.History = a.DB
	}
	sc := a.Config.Server
	return server.New(deps, server.Config{
		RequestTimeout: sc.RequestTimeout,
		MaxUploadBytes: sc.MaxUploadMB << 20,
		CORSOrigins:    sc.CORSOrigins,
	}, a.Logger)
}

// Close releases the stores.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if c, ok := a.Embedder.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			a.Logger.Warn("failed to stop embedder", zap.Error(err))
		}
	}
}
