// Package transcript fetches the text of YouTube videos through an ordered
// list of strategies.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrNoTranscript is returned when every strategy failed.
	ErrNoTranscript = errors.New("no transcript available")
	// ErrInvalidURL is returned for links that do not name a YouTube video.
	ErrInvalidURL = errors.New("not a YouTube video URL")
)

// Transcript is the text of a video plus what is known about it.
type Transcript struct {
	VideoID  string `json:"video_id"`
	Title    string `json:"title,omitempty"`
	Author   string `json:"author,omitempty"`
	Language string `json:"language,omitempty"`
	Text     string `json:"text"`
	// Source names the strategy that produced the text.
	Source string `json:"source"`
}

// Fetcher returns the transcript of a video id.
type Fetcher interface {
	Fetch(ctx context.Context, videoID string) (*Transcript, error)
}

// Strategy is one named way of obtaining a transcript.
type Strategy interface {
	Fetcher
	Name() string
}

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// VideoID extracts the video id from youtube.com/watch?v=, youtu.be/,
// /shorts/ and /embed/ links.
func VideoID(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}

	var id string
	switch strings.ToLower(u.Hostname()) {
	case "youtube.com", "www.youtube.com", "m.youtube.com", "music.youtube.com":
		if v := u.Query().Get("v"); v != "" {
			id = v
			break
		}
		for _, prefix := range []string{"/shorts/", "/embed/", "/live/"} {
			if strings.HasPrefix(u.Path, prefix) {
				id = strings.SplitN(strings.TrimPrefix(u.Path, prefix), "/", 2)[0]
			}
		}
	case "youtu.be":
		id = strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 2)[0]
	}

	if !videoIDPattern.MatchString(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return id, nil
}

// Chain tries its strategies in order.
type Chain struct {
	strategies []Strategy
	logger     *zap.Logger
}

// NewChain creates a chain over strategies.
func NewChain(logger *zap.Logger, strategies ...Strategy) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{strategies: strategies, logger: logger}
}

// Names returns the strategy names in order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		names[i] = s.Name()
	}
	return names
}

// Fetch returns the first non-empty transcript. If all strategies fail the
// error wraps ErrNoTranscript and each strategy's failure.
func (c *Chain) Fetch(ctx context.Context, videoID string) (*Transcript, error) {
	errs := []error{ErrNoTranscript}
	for _, s := range c.strategies {
		start := time.Now()
		t, err := s.Fetch(ctx, videoID)
		if err == nil && (t == nil || strings.TrimSpace(t.Text) == "") {
			err = errors.New("empty transcript")
		}
		if err == nil {
			t.VideoID = videoID
			t.Source = s.Name()
			c.logger.Info("transcript fetched",
				zap.String("video_id", videoID),
				zap.String("strategy", s.Name()),
				zap.Int("chars", len(t.Text)),
				zap.Duration("took", time.Since(start)))
			return t, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Join(append(errs, ctxErr)...)
		}
		c.logger.Warn("transcript strategy failed",
			zap.String("video_id", videoID),
			zap.String("strategy", s.Name()),
			zap.Error(err))
	}
	return nil, errors.Join(errs...)
}
