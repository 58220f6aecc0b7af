package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// DefaultWatchURL is the page the captions strategy scrapes.
const DefaultWatchURL = "https://www.youtube.com/watch"

// captionTracksPattern finds the start of the track array; the array itself
// is read with a JSON decoder because track names nest brackets.
var captionTracksPattern = regexp.MustCompile(`"captionTracks"\s*:\s*\[`)

// Captions reads the caption track list embedded in the watch page and
// downloads the timed-text XML of the preferred language.
type Captions struct {
	client   *http.Client
	watchURL string
	language string
}

// NewCaptions creates the captions strategy. An empty watchURL uses YouTube.
func NewCaptions(client *http.Client, watchURL, language string) *Captions {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if watchURL == "" {
		watchURL = DefaultWatchURL
	}
	if language == "" {
		language = "en"
	}
	return &Captions{client: client, watchURL: watchURL, language: language}
}

// Name returns the strategy name.
func (c *Captions) Name() string { return "captions" }

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

type timedText struct {
	Texts []struct {
		Start string `xml:"start,attr"`
		Body  string `xml:",chardata"`
	} `xml:"text"`
}

// Fetch downloads and flattens the caption track.
func (c *Captions) Fetch(ctx context.Context, videoID string) (*Transcript, error) {
	page, err := c.get(ctx, c.watchURL+"?v="+url.QueryEscape(videoID))
	if err != nil {
		return nil, err
	}

	loc := captionTracksPattern.FindIndex(page)
	if loc == nil {
		return nil, errors.New("no caption tracks on watch page")
	}
	var tracks []captionTrack
	if err := json.NewDecoder(bytes.NewReader(page[loc[1]-1:])).Decode(&tracks); err != nil {
		return nil, fmt.Errorf("failed to decode caption tracks: %w", err)
	}
	track, ok := pickTrack(tracks, c.language)
	if !ok {
		return nil, fmt.Errorf("no %s caption track", c.language)
	}

	body, err := c.get(ctx, track.BaseURL)
	if err != nil {
		return nil, err
	}
	var tt timedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return nil, fmt.Errorf("failed to decode timed text: %w", err)
	}

	lines := make([]string, 0, len(tt.Texts))
	for _, t := range tt.Texts {
		line := strings.Join(strings.Fields(html.UnescapeString(t.Body)), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return &Transcript{Language: track.LanguageCode, Text: strings.Join(lines, " ")}, nil
}

// pickTrack prefers a manual track over an auto-generated one.
func pickTrack(tracks []captionTrack, language string) (captionTrack, bool) {
	var auto *captionTrack
	for i, t := range tracks {
		if t.LanguageCode != language && !strings.HasPrefix(t.LanguageCode, language+"-") {
			continue
		}
		if t.Kind != "asr" {
			return t, true
		}
		if auto == nil {
			auto = &tracks[i]
		}
	}
	if auto != nil {
		return *auto, true
	}
	return captionTrack{}, false
}

func (c *Captions) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept-Language", c.language)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, req.URL.Host)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}
