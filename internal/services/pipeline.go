// Package services – pipeline coordinator.
//
// The coordinator owns the per-link state machine: platform detect → dedup
// admission → cache lookup → fetch → extract/enrich → save global → update
// user. Every failure edge is terminal for that run; there are no retries.
// Runs execute asynchronously on a worker pool and report through durable
// job records, so the inbound handler can acknowledge immediately and
// clients poll the status endpoint for the outcome.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/headstart/go-poi-backend/internal/clients"
	"github.com/headstart/go-poi-backend/internal/domain"
	"github.com/headstart/go-poi-backend/internal/repo"
)

// LinkStore is the two-tier store contract: the global link cache plus
// per-user accumulation. The store owns all record types; the coordinator
// never touches collections directly.
type LinkStore interface {
	GetGlobalLink(ctx context.Context, link string) (*domain.GlobalLink, error)
	SaveGlobalLink(ctx context.Context, link string, author *string, locations []domain.Location) error
	IncrementProcessedCount(ctx context.Context, link string) error
	GetUser(ctx context.Context, phoneNo string) (*domain.User, error)
	CreateUser(ctx context.Context, name, phoneNo string) error
	AddLinkToUser(ctx context.Context, phoneNo, link string) error
	AddLocationsToUser(ctx context.Context, phoneNo string, locations []domain.Location, sourceLink string) error
}

// DedupStore is the admission gate: MarkProcessed reserves a message key
// atomically and returns repo.ErrDuplicate for redeliveries.
type DedupStore interface {
	MarkProcessed(ctx context.Context, key, phoneNo, text string) error
}

// JobStore persists pipeline run status for the polling endpoint.
type JobStore interface {
	CreateJob(ctx context.Context, id, link, phoneNo string) error
	CompleteJob(ctx context.Context, id string, locations []domain.Location, author *string, cacheHit bool) error
	FailJob(ctx context.Context, id, reason string) error
	GetJob(ctx context.Context, id string) (*domain.Job, error)
}

// ContentFetcher retrieves platform content from the transcript provider.
type ContentFetcher interface {
	FetchYouTube(ctx context.Context, url string) (*clients.YouTubeContent, error)
	FetchInstagram(ctx context.Context, url string) (*clients.InstagramContent, error)
}

// LocationExtractor turns platform content into enriched locations.
type LocationExtractor interface {
	FromYouTube(ctx context.Context, yt *clients.YouTubeContent) ([]domain.Location, error)
	FromInstagram(ctx context.Context, ig *clients.InstagramContent) ([]domain.Location, error)
}

// Runner executes pipeline work off the request path.
type Runner interface {
	Submit(job func())
}

// InboundMessage is the minimum inbound WhatsApp event the coordinator
// needs; additional webhook fields are ignored.
type InboundMessage struct {
	Text              string
	WaID              string
	SenderName        string
	WhatsAppMessageID string
	ID                string
	Timestamp         string
}

// Submission is the immediate acknowledgment for an admitted message.
type Submission struct {
	JobID    string
	Platform domain.Platform
}

// PipelineService coordinates the full link-processing sequence.
type PipelineService struct {
	Store   LinkStore
	Dedup   DedupStore
	Jobs    JobStore
	Fetcher ContentFetcher
	Extract LocationExtractor
	Pool    Runner

	// RunTimeout bounds one asynchronous pipeline run. Zero selects the
	// default of 5 minutes.
	RunTimeout time.Duration
}

// Submit admits one inbound message and schedules its pipeline run.
//
// Order matters: platform detection is a pure check and happens first so an
// unsupported URL causes no store writes at all; the dedup reservation then
// happens before the run is scheduled, closing the redelivery window to the
// single check-and-reserve call.
func (s *PipelineService) Submit(ctx context.Context, msg InboundMessage) (*Submission, error) {
	tr := otel.Tracer("services/PipelineService")
	ctx, span := tr.Start(ctx, "Submit",
		trace.WithAttributes(attribute.String("wa.id", msg.WaID)),
	)
	defer span.End()

	platform := domain.DetectPlatform(msg.Text)
	if !platform.Supported() {
		return nil, ErrUnsupportedPlatform
	}

	key := domain.MessageKey(msg.WhatsAppMessageID, msg.ID, msg.WaID, msg.Text, msg.Timestamp)
	if err := s.Dedup.MarkProcessed(ctx, key, msg.WaID, msg.Text); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			duplicateMessages.Inc()
			log.Info().Str("message_key", key).Msg("duplicate inbound message short-circuited")
			return nil, ErrDuplicateMessage
		}
		return nil, err
	}

	jobID := uuid.NewString()
	if err := s.Jobs.CreateJob(ctx, jobID, msg.Text, msg.WaID); err != nil {
		return nil, err
	}

	s.Pool.Submit(func() { s.run(jobID, platform, msg) })
	return &Submission{JobID: jobID, Platform: platform}, nil
}

// run executes one pipeline pass. It runs detached from the inbound request,
// so it derives its own bounded context; cancellation by the submitting
// caller is deliberately not supported.
func (s *PipelineService) run(jobID string, platform domain.Platform, msg InboundMessage) {
	timeout := s.RunTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	tr := otel.Tracer("services/PipelineService")
	ctx, span := tr.Start(ctx, "run",
		trace.WithAttributes(
			attribute.String("job.id", jobID),
			attribute.String("platform", string(platform)),
		),
	)
	defer span.End()

	link := msg.Text
	lg := log.With().Str("job_id", jobID).Str("link", link).Logger()

	// Cache lookup. A read failure is treated as a miss: the full pipeline
	// can still produce a result, and save_global's unique key prevents a
	// double insert.
	cached, err := s.Store.GetGlobalLink(ctx, link)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		lg.Error().Err(err).Msg("cache lookup failed, treating as miss")
	}
	if cached != nil {
		cacheHits.Inc()
		lg.Info().Int("locations", len(cached.Locations)).Msg("cache hit, reusing stored locations")
		if err := s.Store.IncrementProcessedCount(ctx, link); err != nil {
			lg.Error().Err(err).Msg("processed_count increment failed")
		}
		s.updateUserData(ctx, msg.WaID, msg.SenderName, link, cached.Locations)
		s.complete(ctx, jobID, cached.Locations, cached.Author, true)
		return
	}

	// Cache miss: fetch platform content. Fetch failure is terminal.
	locations, author, err := s.fetchAndExtract(ctx, platform, link)
	if err != nil {
		pipelineRuns.WithLabelValues("failure").Inc()
		lg.Error().Err(err).Msg("pipeline run failed")
		if ferr := s.Jobs.FailJob(ctx, jobID, err.Error()); ferr != nil {
			lg.Error().Err(ferr).Msg("job status write failed")
		}
		return
	}

	// Cache the result even when empty: a link that yielded nothing is
	// never retried.
	if err := s.Store.SaveGlobalLink(ctx, link, author, locations); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			lg.Info().Msg("global link already cached by a concurrent run")
		} else {
			// Store write failures do not fail the run; the in-memory result
			// still reaches the job record.
			lg.Error().Err(err).Msg("global link save failed")
		}
	}

	s.updateUserData(ctx, msg.WaID, msg.SenderName, link, locations)
	s.complete(ctx, jobID, locations, author, false)
}

// fetchAndExtract runs the platform-specific fetch and the extraction
// orchestrator. Fetch failures are terminal; extraction failures (including
// missing transcripts) degrade to an empty location list.
func (s *PipelineService) fetchAndExtract(ctx context.Context, platform domain.Platform, link string) ([]domain.Location, *string, error) {
	switch platform {
	case domain.PlatformYouTube:
		yt, err := s.Fetcher.FetchYouTube(ctx, link)
		if err != nil {
			return nil, nil, errors.New("Failed to fetch YouTube data")
		}
		author := &yt.Channel.Title
		locations, err := s.Extract.FromYouTube(ctx, yt)
		if err != nil {
			log.Warn().Err(err).Str("link", link).Msg("extraction degraded to empty result")
			return []domain.Location{}, author, nil
		}
		return locations, author, nil

	case domain.PlatformInstagram:
		ig, err := s.Fetcher.FetchInstagram(ctx, link)
		if err != nil {
			return nil, nil, errors.New("Failed to fetch Instagram data")
		}
		locations, err := s.Extract.FromInstagram(ctx, ig)
		if err != nil {
			log.Warn().Err(err).Str("link", link).Msg("extraction degraded to empty result")
			return []domain.Location{}, nil, nil
		}
		return locations, nil, nil

	default:
		// Submit rejects unknown platforms; reaching this is a programming error.
		return nil, nil, ErrUnsupportedPlatform
	}
}

// updateUserData is the composite user write: get-or-create, record the
// link, append the valid-coordinate locations. Each step is best effort;
// the global link record remains the source of truth for repair.
func (s *PipelineService) updateUserData(ctx context.Context, phoneNo, name, link string, locations []domain.Location) {
	lg := log.With().Str("phone", phoneNo).Str("link", link).Logger()

	if _, err := s.Store.GetUser(ctx, phoneNo); err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			lg.Error().Err(err).Msg("user lookup failed")
			return
		}
		if cerr := s.Store.CreateUser(ctx, name, phoneNo); cerr != nil && !errors.Is(cerr, repo.ErrDuplicate) {
			lg.Error().Err(cerr).Msg("user create failed")
			return
		}
	}

	if err := s.Store.AddLinkToUser(ctx, phoneNo, link); err != nil {
		lg.Error().Err(err).Msg("user link append failed")
	}

	valid := make([]domain.Location, 0, len(locations))
	for _, loc := range locations {
		if loc.HasGeo() {
			valid = append(valid, loc)
		}
	}
	if len(valid) == 0 {
		return
	}
	if err := s.Store.AddLocationsToUser(ctx, phoneNo, valid, link); err != nil {
		lg.Error().Err(err).Msg("user locations append failed")
	}
}

func (s *PipelineService) complete(ctx context.Context, jobID string, locations []domain.Location, author *string, cacheHit bool) {
	pipelineRuns.WithLabelValues("success").Inc()
	if err := s.Jobs.CompleteJob(ctx, jobID, locations, author, cacheHit); err != nil {
		log.Error().Err(err).Str("job_id", jobID).Msg("job status write failed")
	}
}

// Status returns the job record for the given id.
func (s *PipelineService) Status(ctx context.Context, jobID string) (*domain.Job, error) {
	job, err := s.Jobs.GetJob(ctx, jobID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrJobNotFound
	}
	return job, err
}
