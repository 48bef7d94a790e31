package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/headstart/go-poi-backend/internal/domain"
	"github.com/headstart/go-poi-backend/internal/repo"
)

// ProductSearcher resolves a POI within a city to a bookable product id.
type ProductSearcher interface {
	SearchProduct(ctx context.Context, city, poiName string) (string, error)
}

// CatalogStore is the store slice the backfill needs.
type CatalogStore interface {
	GetUser(ctx context.Context, phoneNo string) (*domain.User, error)
	SetLocationTGID(ctx context.Context, phoneNo, poiName, tgid string) error
}

// BackfillReport summarizes one catalog backfill pass.
type BackfillReport struct {
	Scanned int `json:"scanned"`
	Matched int `json:"matched"`
	Failed  int `json:"failed"`
}

// CatalogService backfills bookable product ids onto a user's locations.
// A location is attempted once per pass; unmatched POIs stay without a
// tgid and are retried on the next pass.
type CatalogService struct {
	Store   CatalogStore
	Catalog ProductSearcher
}

// Backfill scans the user's locations and resolves a product id for every
// location that does not have one yet. Lookup failures are counted and
// logged but never abort the pass.
func (s *CatalogService) Backfill(ctx context.Context, phoneNo string) (*BackfillReport, error) {
	tr := otel.Tracer("services/CatalogService")
	ctx, span := tr.Start(ctx, "Backfill",
		trace.WithAttributes(attribute.String("phone", phoneNo)),
	)
	defer span.End()

	u, err := s.Store.GetUser(ctx, phoneNo)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	report := &BackfillReport{}
	for _, loc := range u.Locations {
		if loc.TGID != nil {
			continue
		}
		report.Scanned++

		city := loc.City
		if city == unknownField {
			city = ""
		}
		tgid, err := s.Catalog.SearchProduct(ctx, city, loc.POIName)
		if err != nil {
			report.Failed++
			log.Warn().Err(err).Str("poi", loc.POIName).Msg("catalog lookup failed")
			continue
		}
		if tgid == "" {
			continue
		}

		if err := s.Store.SetLocationTGID(ctx, phoneNo, loc.POIName, tgid); err != nil {
			report.Failed++
			log.Error().Err(err).Str("poi", loc.POIName).Msg("tgid write failed")
			continue
		}
		report.Matched++
	}

	span.SetAttributes(attribute.Int("backfill.matched", report.Matched))
	return report, nil
}
