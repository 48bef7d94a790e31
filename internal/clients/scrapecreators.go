// Package clients contains thin HTTP clients for the external providers the
// pipeline depends on: the transcript scraping API, the LLM extraction API,
// the geocoding/place-details API, and the experiences catalog search.
//
// All clients follow the same rules: a single attempt per call (retry policy
// belongs to the caller), explicit timeouts, and provider failures surfaced
// as errors at the call boundary so callers can degrade to empty results.
package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Default endpoints for the transcript scraping provider.
const (
	DefaultYouTubeAPIURL   = "https://api.scrapecreators.com/v1/youtube/video"
	DefaultInstagramAPIURL = "https://api.scrapecreators.com/v2/instagram/media/transcript"
)

// TranscriptSegment is one timestamped piece of a YouTube transcript.
type TranscriptSegment struct {
	Text          string `json:"text"`
	StartMs       string `json:"startMs"`
	EndMs         string `json:"endMs"`
	StartTimeText string `json:"startTimeText"`
}

// Channel identifies the YouTube channel that published a video.
type Channel struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Handle string `json:"handle"`
	Title  string `json:"title"`
}

// YouTubeContent is the scraped payload for one YouTube video. Transcript
// and TranscriptOnlyText may both be empty when the video has no captions.
type YouTubeContent struct {
	ID                 string              `json:"id"`
	Type               string              `json:"type"`
	Title              string              `json:"title"`
	Description        string              `json:"description"`
	Channel            Channel             `json:"channel"`
	Transcript         []TranscriptSegment `json:"transcript"`
	TranscriptOnlyText string              `json:"transcript_only_text"`
}

// InstagramTranscript is the transcript of one reel.
type InstagramTranscript struct {
	ID        string `json:"id"`
	Shortcode string `json:"shortcode"`
	Text      string `json:"text"`
}

// InstagramContent is the scraped payload for an Instagram post.
type InstagramContent struct {
	Success     bool                  `json:"success"`
	Transcripts []InstagramTranscript `json:"transcripts"`
}

// ScrapeCreatorsClient fetches video/reel transcripts from the scraping API.
type ScrapeCreatorsClient struct {
	apiKey       string
	youtubeURL   string
	instagramURL string
	httpClient   *http.Client
}

// NewScrapeCreatorsClient builds a client for the given API key. Empty
// endpoint overrides fall back to the provider defaults.
func NewScrapeCreatorsClient(apiKey, youtubeURL, instagramURL string, timeout time.Duration) *ScrapeCreatorsClient {
	if youtubeURL == "" {
		youtubeURL = DefaultYouTubeAPIURL
	}
	if instagramURL == "" {
		instagramURL = DefaultInstagramAPIURL
	}
	return &ScrapeCreatorsClient{
		apiKey:       apiKey,
		youtubeURL:   youtubeURL,
		instagramURL: instagramURL,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// FetchYouTube retrieves the transcript payload for a YouTube video URL.
func (c *ScrapeCreatorsClient) FetchYouTube(ctx context.Context, videoURL string) (*YouTubeContent, error) {
	params := url.Values{}
	params.Set("url", videoURL)
	params.Set("get_transcript", "true")

	var out YouTubeContent
	if err := c.get(ctx, c.youtubeURL, params, &out); err != nil {
		return nil, fmt.Errorf("youtube fetch: %w", err)
	}
	return &out, nil
}

// FetchInstagram retrieves the transcript payload for an Instagram URL.
func (c *ScrapeCreatorsClient) FetchInstagram(ctx context.Context, postURL string) (*InstagramContent, error) {
	params := url.Values{}
	params.Set("url", postURL)

	var out InstagramContent
	if err := c.get(ctx, c.instagramURL, params, &out); err != nil {
		return nil, fmt.Errorf("instagram fetch: %w", err)
	}
	if !out.Success {
		return nil, fmt.Errorf("instagram fetch: provider reported failure")
	}
	return &out, nil
}

// get performs an authenticated GET and decodes the JSON body into out.
func (c *ScrapeCreatorsClient) get(ctx context.Context, base string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("provider status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
