// Package services – location extraction orchestrator.
//
// Combines one LLM extraction call with per-name place enrichment. The two
// result lists are zipped positionally (index i of the candidates pairs with
// index i of the enrichment results, never by name similarity), categories
// are normalized onto the wire vocabulary, and coordinates are converted
// from the provider's (lat, lng) to the persisted [lng, lat] ordering.
package services

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/headstart/go-poi-backend/internal/clients"
	"github.com/headstart/go-poi-backend/internal/domain"
)

// unknownField is the sentinel for detail fields enrichment could not fill.
const unknownField = "Unknown"

// Extractor is the LLM extraction contract consumed by the orchestrator.
type Extractor interface {
	Extract(ctx context.Context, transcript string, segments []clients.TranscriptSegment, timestamped bool) (*clients.ExtractionResult, error)
}

// PlaceResolver is the enrichment contract. Implementations must return a
// result list with the same length and order as names.
type PlaceResolver interface {
	Resolve(ctx context.Context, names []string) []clients.PlaceResult
}

// ExtractionService orchestrates LLM extraction and place enrichment into
// enriched, persistable locations.
type ExtractionService struct {
	LLM    Extractor
	Places PlaceResolver
}

// FromYouTube extracts locations from a scraped YouTube payload. Both the
// plain transcript and a non-empty timestamped segment list are required;
// a video missing either yields ErrNoTranscript rather than degrading to
// the untimestamped mode.
func (s *ExtractionService) FromYouTube(ctx context.Context, yt *clients.YouTubeContent) ([]domain.Location, error) {
	tr := otel.Tracer("services/ExtractionService")
	ctx, span := tr.Start(ctx, "FromYouTube",
		trace.WithAttributes(attribute.String("video.id", yt.ID)),
	)
	defer span.End()

	if yt.TranscriptOnlyText == "" || len(yt.Transcript) == 0 {
		log.Warn().
			Str("video_id", yt.ID).
			Bool("has_text", yt.TranscriptOnlyText != "").
			Int("segments", len(yt.Transcript)).
			Msg("youtube content missing transcript data")
		return nil, ErrNoTranscript
	}
	return s.extract(ctx, yt.TranscriptOnlyText, yt.Transcript, true)
}

// FromInstagram extracts locations from a scraped Instagram payload. Only
// the first transcript entry is used; reels have no timestamp support.
func (s *ExtractionService) FromInstagram(ctx context.Context, ig *clients.InstagramContent) ([]domain.Location, error) {
	tr := otel.Tracer("services/ExtractionService")
	ctx, span := tr.Start(ctx, "FromInstagram")
	defer span.End()

	if len(ig.Transcripts) == 0 || ig.Transcripts[0].Text == "" {
		log.Warn().Msg("instagram content has no transcript")
		return nil, ErrNoTranscript
	}
	return s.extract(ctx, ig.Transcripts[0].Text, nil, false)
}

func (s *ExtractionService) extract(ctx context.Context, transcript string, segments []clients.TranscriptSegment, timestamped bool) ([]domain.Location, error) {
	result, err := s.LLM.Extract(ctx, transcript, segments, timestamped)
	if err != nil {
		log.Error().Err(err).Msg("llm extraction call failed")
		return nil, ErrExtractionFailed
	}
	if len(result.Locations) == 0 {
		return []domain.Location{}, nil
	}

	names := make([]string, 0, len(result.Locations))
	for _, cand := range result.Locations {
		names = append(names, cand.Name)
	}

	var enriched []clients.PlaceResult
	if s.Places != nil {
		enriched = s.Places.Resolve(ctx, names)
	}
	return buildLocations(result.Locations, enriched), nil
}

// buildLocations zips candidate[i] with enrichment[i] by index. Enrichment
// lists shorter than the candidate list are legal: indices past the end
// default to sentinel values, so the output always has one entry per
// candidate.
func buildLocations(candidates []clients.Candidate, enriched []clients.PlaceResult) []domain.Location {
	out := make([]domain.Location, 0, len(candidates))
	for i, cand := range candidates {
		loc := domain.Location{
			POIName:     cand.Name,
			Category:    domain.NormalizeCategory(cand.Type),
			GeoLocation: []float64{0, 0},
			MapsURL:     unknownField,
			WebsiteURL:  unknownField,
			PhotosLinks: []domain.PhotoLink{},
			City:        cand.Location,
			TGID:        nil,
		}
		if loc.City == "" {
			loc.City = unknownField
		}

		if i < len(enriched) {
			res := enriched[i]
			if res.HasCoordinates() {
				loc.GeoLocation = swapToLngLat(res.Lat, res.Lng)
			}
			if res.Status == clients.PlaceFound {
				if res.MapsURL != "" {
					loc.MapsURL = res.MapsURL
				}
				if res.Website != "" {
					loc.WebsiteURL = res.Website
				}
				if len(res.Photos) > 0 {
					loc.PhotosLinks = res.Photos
				}
			}
		}
		out = append(out, loc)
	}
	return out
}

// swapToLngLat converts provider (lat, lng) ordering to the persisted
// longitude-first form. The (0, 0) sentinel passes through unchanged so the
// "enrichment failed" marker stays recognizable.
func swapToLngLat(lat, lng float64) []float64 {
	if lat == 0 && lng == 0 {
		return []float64{0, 0}
	}
	return []float64{lng, lat}
}
