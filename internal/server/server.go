// Package server exposes quiz, summary and retrieval endpoints over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/RSinthu/QuizGenerator/internal/db"
	"github.com/RSinthu/QuizGenerator/internal/embeddings"
	"github.com/RSinthu/QuizGenerator/internal/quiz"
	"github.com/RSinthu/QuizGenerator/internal/rag"
	"github.com/RSinthu/QuizGenerator/internal/summarize"
)

// QuizService generates quizzes.
type QuizService interface {
	FromPDF(ctx context.Context, src rag.Source, origin rag.Origin, req quiz.Request) ([]quiz.Question, error)
	FromVideo(ctx context.Context, req quiz.VideoRequest) ([]quiz.Question, error)
}

// SummaryService generates summaries.
type SummaryService interface {
	FromPDF(ctx context.Context, src rag.Source, origin rag.Origin) (*summarize.Summary, error)
	FromVideo(ctx context.Context, req summarize.VideoRequest) (*summarize.Summary, error)
}

// Retriever runs a retrieval over one document.
type Retriever interface {
	Retrieve(ctx context.Context, src rag.Source, query string, k int) (*rag.RetrievalResult, error)
}

// History reads stored quizzes and summaries.
type History interface {
	ListQuizzes(ctx context.Context, limit int) ([]*db.Quiz, error)
	SimilarQuizzes(ctx context.Context, embedding []float32, limit int) ([]*db.Quiz, error)
	ListSummaries(ctx context.Context, limit int) ([]*db.Summary, error)
}

// Config tunes the HTTP layer.
type Config struct {
	RequestTimeout time.Duration
	MaxUploadBytes int64
	CORSOrigins    []string
}

// Deps are the services the server calls.
type Deps struct {
	Quizzes   QuizService
	Summaries SummaryService
	Retriever Retriever
	Embedder  embeddings.Embedder
	// History is optional; without it the history endpoints return 404.
	History History
}

// Server holds the handlers' dependencies.
type Server struct {
	deps   Deps
	cfg    Config
	logger *zap.Logger
}

// New creates a Server.
func New(deps Deps, cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Minute
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 50 << 20
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
	return &Server{deps: deps, cfg: cfg, logger: logger}
}

// Routes returns the router with all middleware installed.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/", s.handleRoot)
	r.Get("/healthz", s.handleHealth)

	r.Route("/quiz", func(r chi.Router) {
		r.Post("/pdf", s.handleQuizPDF)
		r.Post("/youtube", s.handleQuizYouTube)
	})
	r.Route("/summary", func(r chi.Router) {
		r.Post("/pdf", s.handleSummaryPDF)
		r.Post("/youtube", s.handleSummaryYouTube)
	})
	r.Post("/retrieve/pdf", s.handleRetrievePDF)
	r.Route("/history/quizzes", func(r chi.Router) {
		r.Get("/", s.handleListQuizzes)
		r.Get("/similar", s.handleSimilarQuizzes)
	})
	r.Get("/history/summaries", s.handleListSummaries)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.respond(w, http.StatusNotFound, ErrorResponse{Error: "not_found", Detail: "endpoint not found"})
	})
	return r
}

// requestLogger logs one line per request with its outcome.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Info("http request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("took", time.Since(start)))
		}()
		next.ServeHTTP(ww, r)
	})
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
