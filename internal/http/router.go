// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/headstart/go-poi-backend/internal/config"
	"github.com/headstart/go-poi-backend/internal/domain"
	"github.com/headstart/go-poi-backend/internal/http/handlers"
	"github.com/headstart/go-poi-backend/internal/http/middleware"
	"github.com/headstart/go-poi-backend/internal/repo"
	"github.com/headstart/go-poi-backend/internal/services"
)

// storeShim adapts the repository free functions to the store interfaces
// expected by the services. This keeps services decoupled from the concrete
// repo package while reusing existing functions.
type storeShim struct {
	db *mongo.Database
}

// GetGlobalLink proxies repo.GetGlobalLink.
func (s storeShim) GetGlobalLink(ctx context.Context, link string) (*domain.GlobalLink, error) {
	return repo.GetGlobalLink(ctx, s.db, link)
}

// SaveGlobalLink proxies repo.SaveGlobalLink.
func (s storeShim) SaveGlobalLink(ctx context.Context, link string, author *string, locations []domain.Location) error {
	return repo.SaveGlobalLink(ctx, s.db, link, author, locations)
}

// IncrementProcessedCount proxies repo.IncrementProcessedCount.
func (s storeShim) IncrementProcessedCount(ctx context.Context, link string) error {
	return repo.IncrementProcessedCount(ctx, s.db, link)
}

// GetUser proxies repo.GetUser.
func (s storeShim) GetUser(ctx context.Context, phoneNo string) (*domain.User, error) {
	return repo.GetUser(ctx, s.db, phoneNo)
}

// CreateUser proxies repo.CreateUser.
func (s storeShim) CreateUser(ctx context.Context, name, phoneNo string) error {
	return repo.CreateUser(ctx, s.db, name, phoneNo)
}

// AddLinkToUser proxies repo.AddLinkToUser.
func (s storeShim) AddLinkToUser(ctx context.Context, phoneNo, link string) error {
	return repo.AddLinkToUser(ctx, s.db, phoneNo, link)
}

// AddLocationsToUser proxies repo.AddLocationsToUser.
func (s storeShim) AddLocationsToUser(ctx context.Context, phoneNo string, locations []domain.Location, sourceLink string) error {
	return repo.AddLocationsToUser(ctx, s.db, phoneNo, locations, sourceLink)
}

// SetLocationTGID proxies repo.SetLocationTGID.
func (s storeShim) SetLocationTGID(ctx context.Context, phoneNo, poiName, tgid string) error {
	return repo.SetLocationTGID(ctx, s.db, phoneNo, poiName, tgid)
}

// MarkProcessed proxies repo.MarkProcessed.
func (s storeShim) MarkProcessed(ctx context.Context, key, phoneNo, text string) error {
	return repo.MarkProcessed(ctx, s.db, key, phoneNo, text)
}

// CreateJob proxies repo.CreateJob.
func (s storeShim) CreateJob(ctx context.Context, id, link, phoneNo string) error {
	return repo.CreateJob(ctx, s.db, id, link, phoneNo)
}

// CompleteJob proxies repo.CompleteJob.
func (s storeShim) CompleteJob(ctx context.Context, id string, locations []domain.Location, author *string, cacheHit bool) error {
	return repo.CompleteJob(ctx, s.db, id, locations, author, cacheHit)
}

// FailJob proxies repo.FailJob.
func (s storeShim) FailJob(ctx context.Context, id, reason string) error {
	return repo.FailJob(ctx, s.db, id, reason)
}

// GetJob proxies repo.GetJob.
func (s storeShim) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	return repo.GetJob(ctx, s.db, id)
}

// Deps bundles the externally constructed dependencies the router wires into
// handlers: the Mongo database, the provider-facing services, and the worker
// pool driving asynchronous runs.
type Deps struct {
	DB      *mongo.Database
	Fetcher services.ContentFetcher
	Extract services.LocationExtractor
	Catalog services.ProductSearcher
	Pool    services.Runner
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), rate limiting,
// CORS and security headers, health and metrics endpoints, and then mounts
// the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Gzip compression
//  7. Metrics
//  8. Rate limiter (per phone/IP)
//  9. CORS and Security headers
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction. Every request on this API can
	// carry a phone number, so the redacting variant is not optional here.
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-API-Key",
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (64 KiB; webhook payloads are small)
	r.Use(limitBody(64 << 10))

	// 6) Compress responses (POI pages with photo links get large)
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Token-bucket rate limiter per phone/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByPhoneOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services ← repo/db/providers
	store := storeShim{db: deps.DB}
	pipelineSvc := &services.PipelineService{
		Store:      store,
		Dedup:      store,
		Jobs:       store,
		Fetcher:    deps.Fetcher,
		Extract:    deps.Extract,
		Pool:       deps.Pool,
		RunTimeout: cfg.Workers.RunTimeout,
	}
	userSvc := &services.UserService{Store: store}
	catalogSvc := &services.CatalogService{Store: store, Catalog: deps.Catalog}

	h := handlers.New(pipelineSvc, userSvc, catalogSvc)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Webhook + job status
		api.POST("/process-message", h.ProcessMessage)
		api.GET("/status/:job_id", h.JobStatus)

		// Users
		api.POST("/login", h.Login)
		api.GET("/users/:phoneNo/cities", h.Cities)
		api.GET("/users/:phoneNo/pois", h.POIs)
		api.GET("/users/:phoneNo/links", h.Links)
		api.POST("/users/:phoneNo/catalog-backfill", h.CatalogBackfill)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
