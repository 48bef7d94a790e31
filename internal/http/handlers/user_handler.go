// User HTTP handlers.
//
// This file exposes REST endpoints for user resources:
//   - POST /login                          (get-or-create by phone number)
//   - GET  /users/{phoneNo}/cities         (distinct cities across saved POIs)
//   - GET  /users/{phoneNo}/pois           (paginated POIs, optional city filter)
//   - GET  /users/{phoneNo}/links          (saved links, newest first)
//   - POST /users/{phoneNo}/catalog-backfill (resolve bookable product ids)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses.
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/headstart/go-poi-backend/internal/domain"
	"github.com/headstart/go-poi-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// UserService defines user lifecycle and read operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type UserService interface {
	// Login fetches the user, creating the record on first contact.
	Login(ctx context.Context, name, phoneNo string) (*domain.User, error)
	// Cities returns the distinct cities across the user's locations.
	Cities(ctx context.Context, phoneNo string) ([]string, error)
	// POIs returns one page of the user's locations, optionally by city.
	POIs(ctx context.Context, phoneNo, city, page, pageSize string) (*services.POIPage, error)
	// Links returns the user's saved links.
	Links(ctx context.Context, phoneNo string) ([]domain.UserLink, error)
}

// CatalogService resolves bookable product ids onto a user's locations.
type CatalogService interface {
	Backfill(ctx context.Context, phoneNo string) (*services.BackfillReport, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for the webhook, job status, and user
// reads. It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	pipeline PipelineCoordinator
	users    UserService
	catalog  CatalogService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(pipeline PipelineCoordinator, users UserService, catalog CatalogService) *Handlers {
	return &Handlers{pipeline: pipeline, users: users, catalog: catalog}
}

//
// DTOs
//

// LoginRequest is the JSON payload for logging a user in.
type LoginRequest struct {
	// Name is the user's display name, recorded on first contact.
	Name string `json:"name" binding:"required,min=1"`
	// PhoneNo is the user's WhatsApp id.
	PhoneNo string `json:"phoneNo" binding:"required,min=1"`
}

// CitiesResponse lists the distinct cities for a user.
type CitiesResponse struct {
	Cities []string `json:"cities"`
}

// LinksResponse lists the user's saved links.
type LinksResponse struct {
	Links []domain.UserLink `json:"links"`
}

//
// Handlers
//

// Login returns the user record for phoneNo, creating it if absent.
func (h *Handlers) Login(c *gin.Context) {
	ctx := c.Request.Context()

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name and phoneNo required")
		return
	}

	u, err := h.users.Login(ctx, strings.TrimSpace(req.Name), strings.TrimSpace(req.PhoneNo))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeLoginFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, u)
}

// Cities lists the distinct cities across the user's saved locations.
func (h *Handlers) Cities(c *gin.Context) {
	ctx := c.Request.Context()
	phoneNo := c.Param("phoneNo")

	cities, err := h.users.Cities(ctx, phoneNo)
	if err != nil {
		switch err {
		case services.ErrUserNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, CitiesResponse{Cities: cities})
}

// POIs returns a page of the user's saved locations. Supports `city`,
// `page`, and `page_size` query parameters; garbage values fall back to
// defaults.
func (h *Handlers) POIs(c *gin.Context) {
	ctx := c.Request.Context()
	phoneNo := c.Param("phoneNo")

	page, err := h.users.POIs(ctx, phoneNo, c.Query("city"), c.Query("page"), c.Query("page_size"))
	if err != nil {
		switch err {
		case services.ErrUserNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, page)
}

// Links lists the user's saved links, newest first.
func (h *Handlers) Links(c *gin.Context) {
	ctx := c.Request.Context()
	phoneNo := c.Param("phoneNo")

	links, err := h.users.Links(ctx, phoneNo)
	if err != nil {
		switch err {
		case services.ErrUserNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, LinksResponse{Links: links})
}

// CatalogBackfill resolves bookable product ids for the user's locations
// that do not carry one yet.
func (h *Handlers) CatalogBackfill(c *gin.Context) {
	ctx := c.Request.Context()
	phoneNo := c.Param("phoneNo")

	report, err := h.catalog.Backfill(ctx, phoneNo)
	if err != nil {
		switch err {
		case services.ErrUserNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeBackfillFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, report)
}
