// Package summarize produces structured summaries of documents and videos.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/RSinthu/QuizGenerator/internal/documents"
	"github.com/RSinthu/QuizGenerator/internal/llm"
	"github.com/RSinthu/QuizGenerator/internal/rag"
	"github.com/RSinthu/QuizGenerator/internal/transcript"
	"github.com/RSinthu/QuizGenerator/internal/validation"
)

// Defaults for grouping and windowing.
const (
	DefaultGroupChars    = 10000
	DefaultWindowSize    = 4000
	DefaultWindowOverlap = 200
)

// Methods reported in a Summary.
const (
	MethodStuff     = "stuff"
	MethodMapReduce = "map_reduce"
	MethodRefine    = "refine"
)

// ErrEmptyDocument is returned when there is nothing to summarise.
var ErrEmptyDocument = errors.New("document has no text or images")

// Summary is a generated summary.
type Summary struct {
	Summary  string   `json:"summary"`
	Method   string   `json:"method"`
	Sections int      `json:"sections"`
	Warnings []string `json:"warnings,omitempty"`
}

// VideoRequest asks for the summary of a YouTube video.
type VideoRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// Record is a generated summary as kept in history.
type Record struct {
	SourceKind string
	SourceRef  string
	Title      string
	Method     string
	Summary    string
}

// HistoryStore persists generated summaries.
type HistoryStore interface {
	RecordSummary(ctx context.Context, rec Record) error
}

// Summarizer runs the summary chains against a generator.
type Summarizer struct {
	generator   llm.Generator
	transcripts transcript.Fetcher
	history     HistoryStore
	groupChars  int
	splitter    *documents.Splitter
	logger      *zap.Logger
}

// Config tunes a Summarizer.
type Config struct {
	GroupChars    int
	WindowSize    int
	WindowOverlap int
	// History, when set, records every summary.
	History HistoryStore
}

// New creates a Summarizer.
func New(generator llm.Generator, transcripts transcript.Fetcher, cfg Config, logger *zap.Logger) *Summarizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.GroupChars <= 0 {
		cfg.GroupChars = DefaultGroupChars
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = DefaultWindowSize
	}
	if cfg.WindowOverlap <= 0 {
		cfg.WindowOverlap = DefaultWindowOverlap
	}
	return &Summarizer{
		generator:   generator,
		transcripts: transcripts,
		history:     cfg.History,
		groupChars:  cfg.GroupChars,
		splitter: documents.NewSplitter(
			documents.WithChunkSize(cfg.WindowSize),
			documents.WithChunkOverlap(cfg.WindowOverlap)),
		logger: logger,
	}
}

// FromPDF summarises every page of src. Documents that fit in one group are
// summarised with a single prompt; larger ones are summarised group by group
// and the section summaries combined.
func (s *Summarizer) FromPDF(ctx context.Context, src rag.Source, origin rag.Origin) (*Summary, error) {
	doc, err := src.Open(s.logger)
	if err != nil {
		if !errors.Is(err, documents.ErrExtraction) {
			err = fmt.Errorf("%w: %v", documents.ErrExtraction, err)
		}
		return nil, err
	}
	defer doc.Close()

	pages, warnings, err := documents.LoadPages(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to load pages: %w", err)
	}
	start := time.Now()

	groups := groupPages(pages, s.groupChars)
	if len(groups) == 0 {
		return nil, fmt.Errorf("%w: %w", documents.ErrExtraction, ErrEmptyDocument)
	}

	out := &Summary{Sections: len(groups)}
	for _, w := range warnings {
		out.Warnings = append(out.Warnings, w.String())
	}

	if len(groups) == 1 {
		out.Method = MethodStuff
		out.Summary, err = s.stuff(ctx, groups[0])
	} else {
		out.Method = MethodMapReduce
		out.Summary, err = s.mapReduce(ctx, groups)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("document summarised",
		zap.String("method", out.Method),
		zap.Int("pages", len(pages)),
		zap.Int("sections", out.Sections),
		zap.Int("warnings", len(warnings)),
		zap.Duration("took", time.Since(start)))
	s.record(ctx, Record{SourceKind: "pdf", SourceRef: origin.Ref, Title: origin.Name, Method: out.Method, Summary: out.Summary})
	return out, nil
}

func (s *Summarizer) stuff(ctx context.Context, pages []documents.Page) (string, error) {
	var attachments []llm.Attachment
	for _, p := range pages {
		for _, img := range p.Images {
			attachments = append(attachments, llm.Attachment{
				Label:    fmt.Sprintf("[Image from page %d]:", p.Number),
				MIMEType: rag.PNGMIMEType,
				Data:     img.Data,
			})
		}
	}
	return s.generate(ctx, llm.Request{Prompt: StuffPrompt(pages), Attachments: attachments})
}

func (s *Summarizer) mapReduce(ctx context.Context, groups [][]documents.Page) (string, error) {
	sections := make([]string, len(groups))
	for i, g := range groups {
		summary, err := s.stuff(ctx, g)
		if err != nil {
			return "", fmt.Errorf("failed to summarise section %d: %w", i+1, err)
		}
		sections[i] = summary
		s.logger.Debug("section summarised", zap.Int("section", i+1), zap.Int("of", len(groups)))
	}
	return s.generate(ctx, llm.Request{Prompt: CombinePrompt(sections)})
}

// FromVideo summarises the transcript of the video with a refine chain: the
// first window is summarised and every further window refines the summary.
func (s *Summarizer) FromVideo(ctx context.Context, req VideoRequest) (*Summary, error) {
	req.URL = strings.TrimSpace(req.URL)
	if err := validation.Struct(req); err != nil {
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

	text := tr.Text
	if tr.Title != "" {
		text = fmt.Sprintf("Title: %s\nAuthor: %s\n\n%s", tr.Title, tr.Author, tr.Text)
	}
	windows := s.splitter.Split(strings.TrimSpace(text))
	if len(windows) == 0 {
		return nil, transcript.ErrNoTranscript
	}

	summary, err := s.generate(ctx, llm.Request{Prompt: InitialPrompt(windows[0])})
	if err != nil {
		return nil, err
	}
	for i, w := range windows[1:] {
		summary, err = s.generate(ctx, llm.Request{Prompt: RefinePrompt(summary, w)})
		if err != nil {
			return nil, fmt.Errorf("failed to refine with window %d: %w", i+2, err)
		}
	}

	s.logger.Info("video summarised",
		zap.String("video_id", videoID),
		zap.String("transcript", tr.Source),
		zap.Int("windows", len(windows)),
		zap.Duration("took", time.Since(start)))
	s.record(ctx, Record{SourceKind: "youtube", SourceRef: videoID, Title: tr.Title, Method: MethodRefine, Summary: summary})
	return &Summary{Summary: summary, Method: MethodRefine, Sections: len(windows)}, nil
}

// record stores rec in history. Failures are logged only.
func (s *Summarizer) record(ctx context.Context, rec Record) {
	if s.history == nil {
		return
	}
	if err := s.history.RecordSummary(ctx, rec); err != nil {
		s.logger.Warn("failed to record summary", zap.String("source", rec.SourceRef), zap.Error(err))
	}
}

func (s *Summarizer) generate(ctx context.Context, req llm.Request) (string, error) {
	out, err := s.generator.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// groupPages packs consecutive pages with content into groups of at most
// limit characters of text. A page longer than limit is a group of its own.
func groupPages(pages []documents.Page, limit int) [][]documents.Page {
	var (
		groups [][]documents.Page
		cur    []documents.Page
		size   int
	)
	for _, p := range pages {
		if p.Text == "" && len(p.Images) == 0 {
			continue
		}
		n := len(p.Text)
		if len(cur) > 0 && size+n > limit {
			groups = append(groups, cur)
			cur, size = nil, 0
		}
		cur = append(cur, p)
		size += n
	}
	if len(cur) > 0 {
		groups = append(groups, cur)
	}
	return groups
}
