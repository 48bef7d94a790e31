// Package clients – place enrichment client.
//
// Two-step lookup per POI name: geocode for coordinates and a place id,
// then a details call for address, URLs, rating, and photos. Lookups run
// strictly sequentially in input order and the result list always has the
// same length and order as the input; a failed lookup holds its position
// with a NotFound/Error entry so positional zipping stays valid.
package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/headstart/go-poi-backend/internal/domain"
)

const (
	defaultGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"
	defaultDetailsURL = "https://maps.googleapis.com/maps/api/place/details/json"
	defaultPhotoURL   = "https://maps.googleapis.com/maps/api/place/photo"

	// maxPhotosPerPlace caps how many photo links are kept per place.
	maxPhotosPerPlace = 3
)

// PlaceStatus classifies the outcome of a single enrichment lookup.
type PlaceStatus int

const (
	// PlaceFound: geocode and details both succeeded.
	PlaceFound PlaceStatus = iota
	// PlaceFoundNoDetails: geocode succeeded, details lookup failed.
	PlaceFoundNoDetails
	// PlaceNotFound: no geocode match for the name.
	PlaceNotFound
	// PlaceError: transport or provider failure.
	PlaceError
)

// PlaceResult is the enrichment outcome for one POI name. Lat/Lng are only
// meaningful for PlaceFound and PlaceFoundNoDetails.
type PlaceResult struct {
	Status           PlaceStatus
	Lat              float64
	Lng              float64
	PlaceID          string
	Name             string
	FormattedAddress string
	MapsURL          string
	Website          string
	Rating           float64
	RatingsTotal     int
	Photos           []domain.PhotoLink
	Err              string
}

// HasCoordinates reports whether the result carries a usable geocode.
func (r PlaceResult) HasCoordinates() bool {
	return r.Status == PlaceFound || r.Status == PlaceFoundNoDetails
}

// PlacesClient resolves POI names against the geocoding and place-details
// APIs.
type PlacesClient struct {
	apiKey     string
	geocodeURL string
	detailsURL string
	photoURL   string
	httpClient *http.Client
}

// NewPlacesClient builds a client for the given API key.
func NewPlacesClient(apiKey string, timeout time.Duration) *PlacesClient {
	return &PlacesClient{
		apiKey:     apiKey,
		geocodeURL: defaultGeocodeURL,
		detailsURL: defaultDetailsURL,
		photoURL:   defaultPhotoURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Resolve looks up every name in order, one at a time, and returns a result
// list of exactly the same length and order. It never returns an error:
// per-name failures are recorded in the corresponding entry.
func (c *PlacesClient) Resolve(ctx context.Context, names []string) []PlaceResult {
	results := make([]PlaceResult, 0, len(names))
	for _, name := range names {
		results = append(results, c.resolveOne(ctx, name))
	}
	return results
}

// geocodeResponse is the subset of the geocode payload we read.
type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		PlaceID  string `json:"place_id"`
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// detailsResponse is the subset of the place-details payload we read.
type detailsResponse struct {
	Status string `json:"status"`
	Result struct {
		Name             string  `json:"name"`
		FormattedAddress string  `json:"formatted_address"`
		URL              string  `json:"url"`
		Website          string  `json:"website"`
		Rating           float64 `json:"rating"`
		UserRatingsTotal int     `json:"user_ratings_total"`
		Photos           []struct {
			PhotoReference string `json:"photo_reference"`
			Width          int    `json:"width"`
			Height         int    `json:"height"`
		} `json:"photos"`
	} `json:"result"`
}

func (c *PlacesClient) resolveOne(ctx context.Context, name string) PlaceResult {
	geoParams := url.Values{}
	geoParams.Set("address", name)
	geoParams.Set("key", c.apiKey)

	var geo geocodeResponse
	if err := c.get(ctx, c.geocodeURL, geoParams, &geo); err != nil {
		return PlaceResult{Status: PlaceError, Err: err.Error()}
	}
	if geo.Status != "OK" || len(geo.Results) == 0 {
		return PlaceResult{Status: PlaceNotFound}
	}

	// First geocode match wins; no ranking beyond that.
	first := geo.Results[0]
	base := PlaceResult{
		Status:  PlaceFoundNoDetails,
		Lat:     first.Geometry.Location.Lat,
		Lng:     first.Geometry.Location.Lng,
		PlaceID: first.PlaceID,
	}
	if first.PlaceID == "" {
		base.Err = "no place id available"
		return base
	}

	detParams := url.Values{}
	detParams.Set("place_id", first.PlaceID)
	detParams.Set("fields", "name,formatted_address,photo,url,website,rating,user_ratings_total")
	detParams.Set("key", c.apiKey)

	var det detailsResponse
	if err := c.get(ctx, c.detailsURL, detParams, &det); err != nil {
		base.Err = err.Error()
		return base
	}
	if det.Status != "OK" {
		base.Err = fmt.Sprintf("places api error: %s", det.Status)
		return base
	}

	base.Status = PlaceFound
	base.Name = det.Result.Name
	base.FormattedAddress = det.Result.FormattedAddress
	base.MapsURL = det.Result.URL
	base.Website = det.Result.Website
	base.Rating = det.Result.Rating
	base.RatingsTotal = det.Result.UserRatingsTotal

	for i, p := range det.Result.Photos {
		if i >= maxPhotosPerPlace {
			break
		}
		if p.PhotoReference == "" {
			continue
		}
		base.Photos = append(base.Photos, domain.PhotoLink{
			PhotoReference: p.PhotoReference,
			URL:            c.photoFetchURL(p.PhotoReference),
			Width:          p.Width,
			Height:         p.Height,
		})
	}
	return base
}

// photoFetchURL builds a fully-formed photo fetch URL embedding the provider
// key and reference.
func (c *PlacesClient) photoFetchURL(reference string) string {
	params := url.Values{}
	params.Set("maxwidth", "400")
	params.Set("photoreference", reference)
	params.Set("key", c.apiKey)
	return c.photoURL + "?" + params.Encode()
}

func (c *PlacesClient) get(ctx context.Context, base string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
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
