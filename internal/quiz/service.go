package quiz

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/RSinthu/QuizGenerator/internal/embeddings"
	"github.com/RSinthu/QuizGenerator/internal/llm"
	"github.com/RSinthu/QuizGenerator/internal/rag"
	"github.com/RSinthu/QuizGenerator/internal/transcript"
	"github.com/RSinthu/QuizGenerator/internal/validation"
)

// Source kinds recorded in history.
const (
	SourcePDF     = "pdf"
	SourceYouTube = "youtube"
)

// Record is a generated quiz as kept in history.
type Record struct {
	SourceKind  string
	SourceRef   string
	Title       string
	Topic       string
	Difficulty  string
	Questions   []Question
	TopicVector embeddings.Vector
}

// HistoryStore persists generated quizzes.
type HistoryStore interface {
	RecordQuiz(ctx context.Context, rec Record) error
}

// Service turns documents and videos into quizzes.
type Service struct {
	retriever   *rag.Retriever
	embedder    embeddings.Embedder
	transcripts transcript.Fetcher
	generator   llm.Generator
	history     HistoryStore
	topK        int
	logger      *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithHistory records every generated quiz in store.
func WithHistory(store HistoryStore) Option {
	return func(s *Service) { s.history = store }
}

// WithTopK sets the number of chunks retrieved per quiz.
func WithTopK(k int) Option {
	return func(s *Service) { s.topK = k }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a quiz service.
func NewService(retriever *rag.Retriever, embedder embeddings.Embedder, transcripts transcript.Fetcher, generator llm.Generator, opts ...Option) *Service {
	s := &Service{
		retriever:   retriever,
		embedder:    embedder,
		transcripts: transcripts,
		generator:   generator,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FromPDF retrieves the chunks of src closest to the topic and asks the
// generator for a quiz over them. Retrieved images are sent with the prompt.
func (s *Service) FromPDF(ctx context.Context, src rag.Source, origin rag.Origin, req Request) ([]Question, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	res, err := s.retriever.Retrieve(ctx, src, req.Topic, s.topK)
	if err != nil {
		return nil, err
	}

	attachments := make([]llm.Attachment, len(res.Payload.Attachments))
	for i, a := range res.Payload.Attachments {
		attachments[i] = llm.Attachment{
			Label:    fmt.Sprintf("\n[Image from page %d]:\n", a.Page),
			MIMEType: a.MIMEType,
			Data:     a.Data,
		}
	}

	questions, err := s.generate(ctx, llm.Request{
		Prompt:      PDFPrompt(req) + res.Payload.Text,
		Attachments: attachments,
		JSON:        true,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("quiz generated",
		zap.String("source", SourcePDF),
		zap.String("topic", req.Topic),
		zap.Int("questions", len(questions)),
		zap.Int("images", len(attachments)),
		zap.Duration("took", time.Since(start)))
	s.record(ctx, Record{
		SourceKind: SourcePDF,
		SourceRef:  origin.Ref,
		Title:      origin.Name,
		Topic:      req.Topic,
		Difficulty: req.Difficulty,
		Questions:  questions,
	})
	return questions, nil
}

// FromVideo fetches the transcript of the video at req.URL, picks the
// windows most relevant to the request and asks for a quiz over them.
func (s *Service) FromVideo(ctx context.Context, req VideoRequest) ([]Question, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	videoID, err := transcript.VideoID(req.URL)
	if err != nil {
		return nil, validation.New("url", err.Error())
	}
	start := time.Now()

	tr, err := s.transcripts.Fetch(ctx, videoID)
	if err != nil {
		return nil, err
	}

	hits, err := s.retriever.RetrieveText(ctx, []string{tr.Text}, VideoQuery(req.Request), s.topK)
	if err != nil {
		return nil, err
	}

	questions, err := s.generate(ctx, llm.Request{
		Prompt: VideoPrompt(req.Request, rag.JoinContent(hits)),
		JSON:   true,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("quiz generated",
		zap.String("source", SourceYouTube),
		zap.String("video_id", videoID),
		zap.String("transcript", tr.Source),
		zap.Int("questions", len(questions)),
		zap.Duration("took", time.Since(start)))
	s.record(ctx, Record{
		SourceKind: SourceYouTube,
		SourceRef:  videoID,
		Title:      tr.Title,
		Topic:      req.Topic,
		Difficulty: req.Difficulty,
		Questions:  questions,
	})
	return questions, nil
}

func (s *Service) generate(ctx context.Context, req llm.Request) ([]Question, error) {
	raw, err := s.generator.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	questions, err := ParseQuestions(raw)
	if err != nil {
		s.logger.Warn("unusable quiz reply",
			zap.String("generator", s.generator.Name()),
			zap.Int("reply_chars", len(raw)),
			zap.Error(err))
		return nil, err
	}
	return questions, nil
}

// record stores rec in history. Failures are logged only.
func (s *Service) record(ctx context.Context, rec Record) {
	if s.history == nil {
		return
	}
	vec, err := s.embedder.EmbedText(ctx, rec.Topic)
	if err != nil {
		s.logger.Warn("failed to embed quiz topic", zap.Error(err))
		return
	}
	rec.TopicVector = vec
	if err := s.history.RecordQuiz(ctx, rec); err != nil {
		s.logger.Warn("failed to record quiz", zap.String("topic", rec.Topic), zap.Error(err))
	}
}
