package transcript

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/kkdai/youtube/v2"
)

// videoClient is the part of youtube.Client the strategies use.
type videoClient interface {
	GetVideoContext(ctx context.Context, id string) (*youtube.Video, error)
	GetTranscriptCtx(ctx context.Context, video *youtube.Video, lang string) (youtube.VideoTranscript, error)
}

// NewYouTubeClient returns a kkdai/youtube client using httpClient.
func NewYouTubeClient(httpClient *http.Client) *youtube.Client {
	return &youtube.Client{HTTPClient: httpClient}
}

// Loader fetches the transcript through the innertube API together with
// the video title and author.
type Loader struct {
	client   videoClient
	language string
}

// NewLoader creates the loader strategy.
func NewLoader(client *youtube.Client, language string) *Loader {
	return newLoader(client, language)
}

func newLoader(client videoClient, language string) *Loader {
	if language == "" {
		language = "en"
	}
	return &Loader{client: client, language: language}
}

// Name returns the strategy name.
func (l *Loader) Name() string { return "loader" }

// Fetch loads video metadata and its transcript.
func (l *Loader) Fetch(ctx context.Context, videoID string) (*Transcript, error) {
	video, err := l.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to load video: %w", err)
	}
	segments, err := l.client.GetTranscriptCtx(ctx, video, l.language)
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}

	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if text := strings.TrimSpace(s.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return &Transcript{
		Title:    video.Title,
		Author:   video.Author,
		Language: l.language,
		Text:     strings.Join(parts, " "),
	}, nil
}

// Description uses the video description when no transcript exists.
type Description struct {
	client videoClient
}

// NewDescription creates the description strategy.
func NewDescription(client *youtube.Client) *Description {
	return &Description{client: client}
}

// Name returns the strategy name.
func (d *Description) Name() string { return "description" }

// Fetch returns the title and description as the transcript text.
func (d *Description) Fetch(ctx context.Context, videoID string) (*Transcript, error) {
	video, err := d.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to load video: %w", err)
	}
	desc := strings.TrimSpace(video.Description)
	if desc == "" {
		return nil, errors.New("video has no description")
	}
	text := desc
	if video.Title != "" {
		text = video.Title + "\n\n" + desc
	}
	return &Transcript{Title: video.Title, Author: video.Author, Text: text}, nil
}
