package services

import (
	"context"
	"errors"
	"sort"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/headstart/go-poi-backend/internal/domain"
	"github.com/headstart/go-poi-backend/internal/repo"
	"github.com/headstart/go-poi-backend/internal/utils"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// UserStore is the subset of the store the read API needs.
type UserStore interface {
	GetUser(ctx context.Context, phoneNo string) (*domain.User, error)
	CreateUser(ctx context.Context, name, phoneNo string) error
}

// POIPage is one page of a user's accumulated locations.
type POIPage struct {
	Locations []domain.UserLocation `json:"locations"`
	Page      int                   `json:"page"`
	PageSize  int                   `json:"page_size"`
	Total     int                   `json:"total"`
}

// UserService serves login plus the per-user read endpoints. All reads
// work off the single user document; the store keeps it small enough that
// in-process filtering beats a second query.
type UserService struct {
	Store UserStore
}

// Login fetches the user record, creating it on first contact. A concurrent
// create racing this one is indistinguishable from success, so the duplicate
// error folds into a re-read.
func (s *UserService) Login(ctx context.Context, name, phoneNo string) (*domain.User, error) {
	tr := otel.Tracer("services/UserService")
	ctx, span := tr.Start(ctx, "Login")
	defer span.End()

	u, err := s.Store.GetUser(ctx, phoneNo)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	if cerr := s.Store.CreateUser(ctx, name, phoneNo); cerr != nil && !errors.Is(cerr, repo.ErrDuplicate) {
		return nil, cerr
	}
	log.Info().Str("phone", phoneNo).Msg("user registered")
	return s.Store.GetUser(ctx, phoneNo)
}

// Cities returns the distinct cities across the user's locations, sorted
// for stable output. Locations whose city is unknown are skipped.
func (s *UserService) Cities(ctx context.Context, phoneNo string) ([]string, error) {
	u, err := s.getUser(ctx, phoneNo)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(u.Locations))
	cities := make([]string, 0, len(u.Locations))
	for _, loc := range u.Locations {
		if loc.City == "" || loc.City == unknownField {
			continue
		}
		if _, ok := seen[loc.City]; ok {
			continue
		}
		seen[loc.City] = struct{}{}
		cities = append(cities, loc.City)
	}
	sort.Strings(cities)
	return cities, nil
}

// POIs returns one page of the user's locations, optionally filtered by
// city. page and pageSize arrive as raw query strings; anything unparseable
// falls back to defaults rather than erroring.
func (s *UserService) POIs(ctx context.Context, phoneNo, city, page, pageSize string) (*POIPage, error) {
	tr := otel.Tracer("services/UserService")
	ctx, span := tr.Start(ctx, "POIs", trace.WithAttributes(attribute.String("city", city)))
	defer span.End()

	u, err := s.getUser(ctx, phoneNo)
	if err != nil {
		return nil, err
	}

	filtered := u.Locations
	if city != "" {
		filtered = make([]domain.UserLocation, 0, len(u.Locations))
		for _, loc := range u.Locations {
			if loc.City == city {
				filtered = append(filtered, loc)
			}
		}
	}

	p := utils.AtoiDefault(page, 1)
	size := utils.AtoiDefault(pageSize, defaultPageSize)
	lo, hi := utils.PageBounds(p, size, defaultPageSize, maxPageSize, len(filtered))

	out := &POIPage{
		Locations: filtered[lo:hi],
		Page:      p,
		PageSize:  hi - lo,
		Total:     len(filtered),
	}
	if out.Locations == nil {
		out.Locations = []domain.UserLocation{}
	}
	return out, nil
}

// Links returns the user's saved links, newest first.
func (s *UserService) Links(ctx context.Context, phoneNo string) ([]domain.UserLink, error) {
	u, err := s.getUser(ctx, phoneNo)
	if err != nil {
		return nil, err
	}
	links := make([]domain.UserLink, len(u.Links))
	copy(links, u.Links)
	sort.Slice(links, func(i, j int) bool { return links[i].AddedAt.After(links[j].AddedAt) })
	return links, nil
}

func (s *UserService) getUser(ctx context.Context, phoneNo string) (*domain.User, error) {
	u, err := s.Store.GetUser(ctx, phoneNo)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}
