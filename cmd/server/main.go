// Command server runs the POI backend HTTP API.
//
// Startup order: environment, logging, config, Mongo, worker pool, routes,
// optional OpenTelemetry, then the HTTP listener. Shutdown reverses it:
// stop accepting requests, drain the pool, flush traces, close Mongo.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/headstart/go-poi-backend/internal/clients"
	"github.com/headstart/go-poi-backend/internal/config"
	httpapi "github.com/headstart/go-poi-backend/internal/http"
	"github.com/headstart/go-poi-backend/internal/observability"
	"github.com/headstart/go-poi-backend/internal/repo"
	"github.com/headstart/go-poi-backend/internal/services"
	"github.com/headstart/go-poi-backend/internal/sysutil"
	"github.com/headstart/go-poi-backend/internal/worker"
)

const version = "1.0.0"

func main() {
	// .env is optional; real deployments inject the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, db, err := repo.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connect failed")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(disconnectCtx); err != nil {
			log.Error().Err(err).Msg("mongo disconnect failed")
		}
	}()

	if err := repo.EnsureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("mongo index setup failed")
	}

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(flushCtx); err != nil {
			log.Error().Err(err).Msg("otel shutdown failed")
		}
	}()

	pool := worker.NewPool(cfg.Workers.Count, cfg.Workers.QueueSize)

	p := cfg.Providers
	scraper := clients.NewScrapeCreatorsClient(p.ScrapeAPIKey, p.ScrapeYouTube, p.ScrapeInstagram, p.HTTPTimeout)
	gemini := clients.NewGeminiClient(p.GeminiAPIKey, p.GeminiModel, p.HTTPTimeout)
	places := clients.NewPlacesClient(p.MapsAPIKey, p.HTTPTimeout)
	headout := clients.NewHeadoutClient(p.HeadoutURL, p.HTTPTimeout)

	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{
		DB:      db,
		Fetcher: scraper,
		Extract: &services.ExtractionService{LLM: gemini, Places: places},
		Catalog: headout,
		Pool:    pool,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("base_path", cfg.APIBasePath).Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}

	// Let in-flight pipeline runs finish before closing Mongo.
	pool.Shutdown()
	log.Info().Msg("server stopped")
}
