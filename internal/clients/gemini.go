// Package clients – LLM extraction client.
//
// Calls the Gemini generateContent endpoint with a JSON response schema so
// the model returns a typed location list instead of free text. One call per
// invocation, no retries; any failure means "no locations" to the caller.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/headstart/go-poi-backend/internal/domain"
)

// DefaultGeminiModel is the generation model used for extraction.
const DefaultGeminiModel = "gemini-1.5-flash"

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// Candidate is one extracted point of interest, pre-enrichment. Type is the
// raw category label from the model; Location is a best-guess "City,
// Country" string; Timestamp (MM:SS) is present only in timestamped mode.
type Candidate struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Location  string `json:"location"`
	Timestamp string `json:"timestamp,omitempty"`
}

// ExtractionResult is the schema-constrained response payload.
type ExtractionResult struct {
	Locations []Candidate `json:"locations"`
}

// GeminiClient performs schema-constrained extraction calls.
type GeminiClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewGeminiClient builds a client for the given API key. An empty model
// selects DefaultGeminiModel.
func NewGeminiClient(apiKey, model string, timeout time.Duration) *GeminiClient {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiClient{
		apiKey:     apiKey,
		model:      model,
		baseURL:    geminiBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// request/response envelopes for the generateContent REST surface.

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	ResponseMIMEType string        `json:"response_mime_type"`
	ResponseSchema   *geminiSchema `json:"response_schema,omitempty"`
}

type geminiSchema struct {
	Type        string                   `json:"type"`
	Description string                   `json:"description,omitempty"`
	Enum        []string                 `json:"enum,omitempty"`
	Properties  map[string]*geminiSchema `json:"properties,omitempty"`
	Items       *geminiSchema            `json:"items,omitempty"`
	Required    []string                 `json:"required,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Extract asks the model for the points of interest mentioned in the
// transcript. In timestamped mode the segment list is embedded in the prompt
// and the schema requires an MM:SS timestamp per location.
func (c *GeminiClient) Extract(ctx context.Context, transcript string, segments []TranscriptSegment, timestamped bool) (*ExtractionResult, error) {
	prompt := buildExtractionPrompt(transcript, segments, timestamped)

	reqBody := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   extractionSchema(timestamped),
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call provider: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider status %d: %s", resp.StatusCode, string(body))
	}

	var envelope geminiResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if len(envelope.Candidates) == 0 || len(envelope.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty model response")
	}

	var result ExtractionResult
	if err := json.Unmarshal([]byte(envelope.Candidates[0].Content.Parts[0].Text), &result); err != nil {
		return nil, fmt.Errorf("decode locations: %w", err)
	}
	return &result, nil
}

// categoryDescriptions explains the vocabulary to the model; it is attached
// to the category field of the response schema.
const categoryDescriptions = `Here's what each category means:

- Eats: Any location primarily focused on food or drink. Includes restaurants, cafes, food stalls, dessert shops, street food spots, breweries, or places known for a signature dish or culinary experience.

- Attractions: Well-known or iconic places that people visit for sightseeing or experiences. This includes museums, monuments, theme parks, cultural landmarks, observation decks, and major tourist sites.

- Stay: Any type of accommodation where someone might spend the night. Includes hotels, hostels, resorts, vacation rentals, guesthouses, and unique stays like treehouses, boats, or homestays.

- Shopping: Locations focused on retail or local goods. Includes malls, markets, shopping streets, boutiques, souvenir shops, artisan stores, and specialty food stores.

- Nature & Parks: Outdoor locations with natural beauty or green space. Includes national parks, beaches, hiking trails, lakes, gardens, forests, mountains, and scenic viewpoints.

- Hidden Gems: Lesser-known or off-the-beaten-path places that are not crowded or widely publicized. Often local favorites or secret spots that feel special, authentic, or uniquely charming.

- Nightlife: Places known for activity after dark. Includes bars, clubs, night markets, late-night food spots, live music venues, lounges, and any social venue that thrives at night.`

// buildExtractionPrompt embeds the transcript (and in timestamped mode the
// segment list) into the extraction instruction. The examples steer the
// model toward core proper names instead of descriptions.
func buildExtractionPrompt(transcript string, segments []TranscriptSegment, timestamped bool) string {
	var b strings.Builder
	b.WriteString(`Extract all location names, landmarks, restaurants, cafes, and attractions from this travel video transcript. Do not add city, state/province or country names as a separate location. Try to get to the core location name and not just a description. These locations will be used to geocode the locations, so make sure to extract the core location name.

For example, if the transcript says "Greenwich Meridian Line at the Royal Observatory", the location name should just be "Royal Observatory".

Also watch out for brand names and locations that might be duplicated.

For example, if the transcript says "I love everything about the citizen M hotels especially their Tower of London hotel", the location name should just be "Citizen M Tower of London".

Extract only the name of the location that this person seems to be visiting, add any neighborhood or related landmark information to the main location name.

For example, if the transcript says "I went to the shoreditch neighborhood to get to Dishoom", the location name should be "Dishoom Shoreditch".

Finally, make a best guess as to the city and country of each location and add it to the result in the structure given below.

Full transcript: `)
	b.WriteString(transcript)

	if timestamped && len(segments) > 0 {
		type stamped struct {
			Text          string `json:"text"`
			StartTimeText string `json:"startTimeText"`
		}
		list := make([]stamped, 0, len(segments))
		for _, s := range segments {
			list = append(list, stamped{Text: s.Text, StartTimeText: s.StartTimeText})
		}
		encoded, _ := json.Marshal(list)
		b.WriteString("\nTimestamped segments: ")
		b.Write(encoded)
		b.WriteString("\nUse the timestamp information provided to match locations with their timestamps.")
	}

	b.WriteString(`
Focus on:
- Landmarks: monuments, temples, historical sites, famous buildings
- Restaurants/Cafes: dining establishments, food spots, bars
- Attractions: tourist sites, parks, museums, entertainment venues
`)
	return b.String()
}

// extractionSchema builds the response schema: an object with a locations
// array of {name, type, location} items, plus a required MM:SS timestamp in
// timestamped mode. The type enum is the fixed 7-value vocabulary.
func extractionSchema(timestamped bool) *geminiSchema {
	enum := make([]string, 0, 7)
	for _, c := range domain.Categories() {
		enum = append(enum, string(c))
	}

	itemProps := map[string]*geminiSchema{
		"name": {
			Type:        "string",
			Description: "The specific name of the location, landmark, restaurant, or attraction",
		},
		"type": {
			Type:        "string",
			Enum:        enum,
			Description: categoryDescriptions,
		},
		"location": {
			Type:        "string",
			Description: "City and country where this location is situated (e.g., 'London, UK', 'Paris, France')",
		},
	}
	required := []string{"name", "type", "location"}
	if timestamped {
		itemProps["timestamp"] = &geminiSchema{
			Type:        "string",
			Description: "Timestamp in MM:SS format when this location is mentioned in the video",
		}
		required = append(required, "timestamp")
	}

	return &geminiSchema{
		Type: "object",
		Properties: map[string]*geminiSchema{
			"locations": {
				Type:        "array",
				Description: "List of locations found in the video transcript",
				Items: &geminiSchema{
					Type:       "object",
					Properties: itemProps,
					Required:   required,
				},
			},
		},
		Required: []string{"locations"},
	}
}
