// Package clients – experiences catalog search.
//
// Looks up a (city, poi name) pair in the catalog search API and returns
// the first product id. Consumed by the tgid backfill pass; the extraction
// pipeline itself never calls this.
package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultHeadoutSearchURL is the catalog search endpoint.
const DefaultHeadoutSearchURL = "https://search.headout.com/api/v3/search/"

// HeadoutClient queries the experiences catalog.
type HeadoutClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHeadoutClient builds a client; an empty baseURL selects the default.
func NewHeadoutClient(baseURL string, timeout time.Duration) *HeadoutClient {
	if baseURL == "" {
		baseURL = DefaultHeadoutSearchURL
	}
	return &HeadoutClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type headoutSearchResponse struct {
	Results []struct {
		Type   string `json:"type"`
		Values []struct {
			ID json.Number `json:"id"`
		} `json:"values"`
	} `json:"results"`
}

// SearchProduct returns the id of the first PRODUCT result for the combined
// city+name query, or "" when the catalog has no match.
func (c *HeadoutClient) SearchProduct(ctx context.Context, city, poiName string) (string, error) {
	query := strings.ReplaceAll(city+"+"+poiName, " ", "+")
	endpoint := c.baseURL + "?query=" + url.QueryEscape(query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("catalog status %d: %s", resp.StatusCode, string(body))
	}

	var out headoutSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	for _, r := range out.Results {
		if r.Type != "PRODUCT" || len(r.Values) == 0 {
			continue
		}
		return r.Values[0].ID.String(), nil
	}
	return "", nil
}
