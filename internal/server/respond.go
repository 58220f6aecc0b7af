package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/RSinthu/QuizGenerator/internal/documents"
	"github.com/RSinthu/QuizGenerator/internal/embeddings"
	"github.com/RSinthu/QuizGenerator/internal/index"
	"github.com/RSinthu/QuizGenerator/internal/llm"
	"github.com/RSinthu/QuizGenerator/internal/quiz"
	"github.com/RSinthu/QuizGenerator/internal/summarize"
	"github.com/RSinthu/QuizGenerator/internal/transcript"
	"github.com/RSinthu/QuizGenerator/internal/validation"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields,omitempty"`
}

// errNotConfigured is returned by endpoints whose backing store is absent.
var errNotConfigured = errors.New("history is not configured")

// writeJSON writes data with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(data)
}

func (s *Server) respond(w http.ResponseWriter, status int, data any) {
	if err := writeJSON(w, status, data); err != nil {
		s.logger.Error("failed to write response", zap.Error(err))
	}
}

// handleError maps domain errors to status codes.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
	} else {
		s.logger.Info("request rejected",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.String("reason", body.Error),
			zap.Error(err))
	}
	s.respond(w, status, body)
}

func classify(err error) (int, ErrorResponse) {
	var tooLarge *http.MaxBytesError
	switch {
	case validation.Is(err):
		return http.StatusBadRequest, ErrorResponse{Error: "validation_error", Detail: err.Error(), Fields: validation.Fields(err)}
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, ErrorResponse{Error: "file_too_large", Detail: err.Error()}
	case errors.Is(err, documents.ErrExtraction), errors.Is(err, summarize.ErrEmptyDocument):
		return http.StatusUnprocessableEntity, ErrorResponse{Error: "extraction_failed", Detail: err.Error()}
	case errors.Is(err, embeddings.ErrEmbedding):
		return http.StatusUnprocessableEntity, ErrorResponse{Error: "embedding_failed", Detail: err.Error()}
	case errors.Is(err, index.ErrIndexQuery), errors.Is(err, index.ErrDimensionMismatch):
		return http.StatusInternalServerError, ErrorResponse{Error: "index_mismatch", Detail: err.Error()}
	case errors.Is(err, quiz.ErrInvalidQuiz):
		return http.StatusUnprocessableEntity, ErrorResponse{Error: "invalid_quiz", Detail: err.Error()}
	case errors.Is(err, transcript.ErrNoTranscript):
		return http.StatusNotFound, ErrorResponse{Error: "no_transcript", Detail: err.Error()}
	case errors.Is(err, errNotConfigured):
		return http.StatusNotFound, ErrorResponse{Error: "not_configured", Detail: err.Error()}
	case errors.Is(err, llm.ErrGeneration), isStatusError(err):
		return http.StatusBadGateway, ErrorResponse{Error: "generation_failed", Detail: err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrorResponse{Error: "timeout", Detail: "request timed out"}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Detail: "an internal error occurred"}
	}
}

func isStatusError(err error) bool {
	var se *llm.StatusError
	return errors.As(err, &se)
}
