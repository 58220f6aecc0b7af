package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/RSinthu/QuizGenerator/internal/db"
	"github.com/RSinthu/QuizGenerator/internal/documents"
	"github.com/RSinthu/QuizGenerator/internal/index"
	"github.com/RSinthu/QuizGenerator/internal/quiz"
	"github.com/RSinthu/QuizGenerator/internal/rag"
	"github.com/RSinthu/QuizGenerator/internal/summarize"
	"github.com/RSinthu/QuizGenerator/internal/validation"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"message": "System is running"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok", "history": s.deps.History != nil}
	if s.deps.Embedder != nil {
		body["embedder"] = s.deps.Embedder.Name()
	}
	s.respond(w, http.StatusOK, body)
}

func (s *Server) handleQuizPDF(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(w, r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	count, err := formInt(r, "no")
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	req := quiz.Request{
		Topic:      r.FormValue("specificArea"),
		Count:      count,
		Difficulty: r.FormValue("difficulty"),
	}

	questions, err := s.deps.Quizzes.FromPDF(r.Context(), rag.PDFBytes(up.data), up.origin(), req)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, quiz.Quiz{Quiz: questions})
}

func (s *Server) handleQuizYouTube(w http.ResponseWriter, r *http.Request) {
	var req quiz.VideoRequest
	if err := decodeJSON(r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}
	questions, err := s.deps.Quizzes.FromVideo(r.Context(), req)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, quiz.Quiz{Quiz: questions})
}

func (s *Server) handleSummaryPDF(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(w, r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	sum, err := s.deps.Summaries.FromPDF(r.Context(), rag.PDFBytes(up.data), up.origin())
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, sum)
}

func (s *Server) handleSummaryYouTube(w http.ResponseWriter, r *http.Request) {
	var req summarize.VideoRequest
	if err := decodeJSON(r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}
	sum, err := s.deps.Summaries.FromVideo(r.Context(), req)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, sum)
}

// retrieveResponse is the reply of /retrieve/pdf. Attachment bytes are
// base64 encoded by encoding/json.
type retrieveResponse struct {
	Query    string             `json:"query"`
	Hits     []index.Hit        `json:"hits"`
	Context  rag.ContextPayload `json:"context"`
	Indexed  int                `json:"indexed"`
	Warnings []string           `json:"warnings"`
}

func (s *Server) handleRetrievePDF(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(w, r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	query := strings.TrimSpace(r.FormValue("query"))
	if query == "" {
		s.handleError(w, r, validation.New("query", "query is required"))
		return
	}
	k := 0
	if r.FormValue("k") != "" {
		if k, err = formInt(r, "k"); err != nil {
			s.handleError(w, r, err)
			return
		}
	}

	res, err := s.deps.Retriever.Retrieve(r.Context(), rag.PDFBytes(up.data), query, k)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, retrieveResponse{
		Query:    query,
		Hits:     res.Hits,
		Context:  res.Payload,
		Indexed:  res.Indexed,
		Warnings: res.WarningMessages(),
	})
}

func (s *Server) handleListQuizzes(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		s.handleError(w, r, errNotConfigured)
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	quizzes, err := s.deps.History.ListQuizzes(r.Context(), limit)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"quizzes": nonNil(quizzes)})
}

func (s *Server) handleSimilarQuizzes(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		s.handleError(w, r, errNotConfigured)
		return
	}
	topic := strings.TrimSpace(r.URL.Query().Get("topic"))
	if topic == "" {
		s.handleError(w, r, validation.New("topic", "topic is required"))
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	vec, err := s.deps.Embedder.EmbedText(r.Context(), topic)
	if err != nil {
		s.handleError(w, r, fmt.Errorf("failed to embed topic: %w", err))
		return
	}
	quizzes, err := s.deps.History.SimilarQuizzes(r.Context(), vec, limit)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"topic": topic, "quizzes": nonNil(quizzes)})
}

func (s *Server) handleListSummaries(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		s.handleError(w, r, errNotConfigured)
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	summaries, err := s.deps.History.ListSummaries(r.Context(), limit)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if summaries == nil {
		summaries = []*db.Summary{}
	}
	s.respond(w, http.StatusOK, map[string]any{"summaries": summaries})
}

type upload struct {
	name string
	data []byte
}

func (u upload) origin() rag.Origin {
	return rag.Origin{Name: u.name, Ref: documents.ContentHash(u.data)}
}

// readUpload parses the multipart form and returns the "file" part.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return upload{}, tooLarge
		}
		return upload{}, validation.New("file", "request must be multipart/form-data with a file")
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		return upload{}, validation.New("file", "file is required")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return upload{}, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return upload{}, validation.New("file", "file is empty")
	}
	return upload{name: header.Filename, data: data}, nil
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return validation.New("body", "request body must be valid JSON: "+err.Error())
	}
	return nil
}

func formInt(r *http.Request, field string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(r.FormValue(field)))
	if err != nil {
		return 0, validation.New(field, field+" must be an integer")
	}
	return v, nil
}

func queryLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, validation.New("limit", "limit must be a non-negative integer")
	}
	return n, nil
}

func nonNil(quizzes []*db.Quiz) []*db.Quiz {
	if quizzes == nil {
		return []*db.Quiz{}
	}
	return quizzes
}
