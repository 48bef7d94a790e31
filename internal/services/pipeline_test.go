package services

import (
	"context"
	"errors"
	"testing"

	"github.com/headstart/go-poi-backend/internal/clients"
	"github.com/headstart/go-poi-backend/internal/domain"
	"github.com/headstart/go-poi-backend/internal/repo"
)

// syncRunner executes submitted work inline so tests observe the full run
// synchronously.
type syncRunner struct{ submitted int }

func (r *syncRunner) Submit(job func()) {
	r.submitted++
	job()
}

type memStore struct {
	global map[string]*domain.GlobalLink
	users  map[string]*domain.User

	increments    int
	saveErr       error
	getGlobalErr  error
	createUserErr error

	addedLinks     []string
	addedLocations []domain.Location
}

func newMemStore() *memStore {
	return &memStore{
		global: map[string]*domain.GlobalLink{},
		users:  map[string]*domain.User{},
	}
}

func (m *memStore) GetGlobalLink(_ context.Context, link string) (*domain.GlobalLink, error) {
	if m.getGlobalErr != nil {
		return nil, m.getGlobalErr
	}
	if g, ok := m.global[link]; ok {
		return g, nil
	}
	return nil, repo.ErrNotFound
}

func (m *memStore) SaveGlobalLink(_ context.Context, link string, author *string, locations []domain.Location) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	if _, ok := m.global[link]; ok {
		return repo.ErrDuplicate
	}
	m.global[link] = &domain.GlobalLink{Link: link, Author: author, Locations: locations, ProcessedCount: 1}
	return nil
}

func (m *memStore) IncrementProcessedCount(_ context.Context, link string) error {
	m.increments++
	if g, ok := m.global[link]; ok {
		g.ProcessedCount++
	}
	return nil
}

func (m *memStore) GetUser(_ context.Context, phoneNo string) (*domain.User, error) {
	if u, ok := m.users[phoneNo]; ok {
		return u, nil
	}
	return nil, repo.ErrNotFound
}

func (m *memStore) CreateUser(_ context.Context, name, phoneNo string) error {
	if m.createUserErr != nil {
		return m.createUserErr
	}
	if _, ok := m.users[phoneNo]; ok {
		return repo.ErrDuplicate
	}
	m.users[phoneNo] = &domain.User{Name: name, PhoneNo: phoneNo}
	return nil
}

func (m *memStore) AddLinkToUser(_ context.Context, phoneNo, link string) error {
	m.addedLinks = append(m.addedLinks, link)
	return nil
}

func (m *memStore) AddLocationsToUser(_ context.Context, phoneNo string, locations []domain.Location, sourceLink string) error {
	m.addedLocations = append(m.addedLocations, locations...)
	return nil
}

type memDedup struct {
	seen    map[string]bool
	markErr error
}

func (m *memDedup) MarkProcessed(_ context.Context, key, phoneNo, text string) error {
	if m.markErr != nil {
		return m.markErr
	}
	if m.seen == nil {
		m.seen = map[string]bool{}
	}
	if m.seen[key] {
		return repo.ErrDuplicate
	}
	m.seen[key] = true
	return nil
}

type memJobs struct {
	jobs map[string]*domain.Job
}

func (m *memJobs) CreateJob(_ context.Context, id, link, phoneNo string) error {
	if m.jobs == nil {
		m.jobs = map[string]*domain.Job{}
	}
	m.jobs[id] = &domain.Job{ID: id, Link: link, PhoneNo: phoneNo, Status: domain.JobRunning}
	return nil
}

func (m *memJobs) CompleteJob(_ context.Context, id string, locations []domain.Location, author *string, cacheHit bool) error {
	j := m.jobs[id]
	j.Status = domain.JobDone
	j.Locations = locations
	j.Author = author
	j.CacheHit = cacheHit
	return nil
}

func (m *memJobs) FailJob(_ context.Context, id, reason string) error {
	j := m.jobs[id]
	j.Status = domain.JobFailed
	j.Error = reason
	return nil
}

func (m *memJobs) GetJob(_ context.Context, id string) (*domain.Job, error) {
	if j, ok := m.jobs[id]; ok {
		return j, nil
	}
	return nil, repo.ErrNotFound
}

func (m *memJobs) only(t *testing.T) *domain.Job {
	t.Helper()
	if len(m.jobs) != 1 {
		t.Fatalf("got %d job records; want 1", len(m.jobs))
	}
	for _, j := range m.jobs {
		return j
	}
	return nil
}

type fakeFetcher struct {
	yt    *clients.YouTubeContent
	ig    *clients.InstagramContent
	ytErr error
	igErr error
	calls int
}

func (f *fakeFetcher) FetchYouTube(_ context.Context, url string) (*clients.YouTubeContent, error) {
	f.calls++
	return f.yt, f.ytErr
}

func (f *fakeFetcher) FetchInstagram(_ context.Context, url string) (*clients.InstagramContent, error) {
	f.calls++
	return f.ig, f.igErr
}

type fakePipelineExtractor struct {
	locations []domain.Location
	err       error
}

func (f *fakePipelineExtractor) FromYouTube(_ context.Context, _ *clients.YouTubeContent) ([]domain.Location, error) {
	return f.locations, f.err
}

func (f *fakePipelineExtractor) FromInstagram(_ context.Context, _ *clients.InstagramContent) ([]domain.Location, error) {
	return f.locations, f.err
}

func ytMessage() InboundMessage {
	return InboundMessage{
		Text:              "https://youtube.com/watch?v=abc",
		WaID:              "4915112345678",
		SenderName:        "Ada",
		WhatsAppMessageID: "wamid.1",
	}
}

func geoLoc(name string) domain.Location {
	return domain.Location{
		POIName:     name,
		Category:    domain.CategoryEats,
		GeoLocation: []float64{2.35, 48.85},
		PhotosLinks: []domain.PhotoLink{},
	}
}

func sentinelLoc(name string) domain.Location {
	return domain.Location{
		POIName:     name,
		Category:    domain.CategoryHiddenGems,
		GeoLocation: []float64{0, 0},
		PhotosLinks: []domain.PhotoLink{},
	}
}

func newPipeline(store *memStore, dedup *memDedup, jobs *memJobs, fetch *fakeFetcher, ext *fakePipelineExtractor) *PipelineService {
	return &PipelineService{
		Store:   store,
		Dedup:   dedup,
		Jobs:    jobs,
		Fetcher: fetch,
		Extract: ext,
		Pool:    &syncRunner{},
	}
}

func TestSubmitUnsupportedPlatformWritesNothing(t *testing.T) {
	store, dedup, jobs := newMemStore(), &memDedup{}, &memJobs{}
	svc := newPipeline(store, dedup, jobs, &fakeFetcher{}, &fakePipelineExtractor{})

	msg := ytMessage()
	msg.Text = "https://tiktok.com/@someone/video/1"
	if _, err := svc.Submit(context.Background(), msg); !errors.Is(err, ErrUnsupportedPlatform) {
		t.Fatalf("err = %v; want ErrUnsupportedPlatform", err)
	}
	if len(dedup.seen) != 0 {
		t.Fatal("unsupported URL must not reserve a dedup key")
	}
	if len(jobs.jobs) != 0 {
		t.Fatal("unsupported URL must not create a job record")
	}
}

func TestSubmitDuplicateMessage(t *testing.T) {
	store, dedup, jobs := newMemStore(), &memDedup{}, &memJobs{}
	fetch := &fakeFetcher{yt: &clients.YouTubeContent{Channel: clients.Channel{Title: "Chan"}}}
	svc := newPipeline(store, dedup, jobs, fetch, &fakePipelineExtractor{locations: []domain.Location{}})

	if _, err := svc.Submit(context.Background(), ytMessage()); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := svc.Submit(context.Background(), ytMessage()); !errors.Is(err, ErrDuplicateMessage) {
		t.Fatalf("second submit err = %v; want ErrDuplicateMessage", err)
	}
	if len(jobs.jobs) != 1 {
		t.Fatalf("got %d job records after redelivery; want 1", len(jobs.jobs))
	}
	if fetch.calls != 1 {
		t.Fatalf("fetcher called %d times; redelivery must not refetch", fetch.calls)
	}
}

func TestRunCacheHitSkipsFetch(t *testing.T) {
	store, dedup, jobs := newMemStore(), &memDedup{}, &memJobs{}
	author := "Chan"
	cachedLocs := []domain.Location{geoLoc("Cached Cafe"), sentinelLoc("Vague Spot")}
	store.global["https://youtube.com/watch?v=abc"] = &domain.GlobalLink{
		Link:           "https://youtube.com/watch?v=abc",
		Author:         &author,
		Locations:      cachedLocs,
		ProcessedCount: 1,
	}
	fetch := &fakeFetcher{}
	svc := newPipeline(store, dedup, jobs, fetch, &fakePipelineExtractor{})

	sub, err := svc.Submit(context.Background(), ytMessage())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if fetch.calls != 0 {
		t.Fatal("cache hit must not call the fetcher")
	}
	if store.increments != 1 {
		t.Fatalf("processed_count increments = %d; want 1", store.increments)
	}

	job := jobs.only(t)
	if job.ID != sub.JobID {
		t.Fatalf("job id = %q; want %q", job.ID, sub.JobID)
	}
	if job.Status != domain.JobDone || !job.CacheHit {
		t.Fatalf("job = %+v; want done with cache_hit=true", job)
	}
	if len(job.Locations) != 2 {
		t.Fatalf("job carries %d locations; want the full cached set", len(job.Locations))
	}

	// The user still accumulates from a cache hit, with the sentinel
	// location filtered out.
	if len(store.addedLinks) != 1 {
		t.Fatalf("user links appended = %v; want the submitted link", store.addedLinks)
	}
	if len(store.addedLocations) != 1 || store.addedLocations[0].POIName != "Cached Cafe" {
		t.Fatalf("user locations = %v; want only the geo-valid one", store.addedLocations)
	}
}

func TestRunMissFetchesAndCaches(t *testing.T) {
	store, dedup, jobs := newMemStore(), &memDedup{}, &memJobs{}
	fetch := &fakeFetcher{yt: &clients.YouTubeContent{Channel: clients.Channel{Title: "Travel With Sam"}}}
	ext := &fakePipelineExtractor{locations: []domain.Location{geoLoc("New Bistro")}}
	svc := newPipeline(store, dedup, jobs, fetch, ext)

	if _, err := svc.Submit(context.Background(), ytMessage()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	g, ok := store.global["https://youtube.com/watch?v=abc"]
	if !ok {
		t.Fatal("miss must persist a global link record")
	}
	if g.Author == nil || *g.Author != "Travel With Sam" {
		t.Fatalf("author = %v; want the channel title", g.Author)
	}
	if len(g.Locations) != 1 {
		t.Fatalf("cached %d locations; want 1", len(g.Locations))
	}

	job := jobs.only(t)
	if job.Status != domain.JobDone || job.CacheHit {
		t.Fatalf("job = %+v; want done with cache_hit=false", job)
	}
	if u, ok := store.users["4915112345678"]; !ok || u.Name != "Ada" {
		t.Fatal("first contact must create the user record")
	}
}

func TestRunFetchFailureFailsJob(t *testing.T) {
	store, dedup, jobs := newMemStore(), &memDedup{}, &memJobs{}
	fetch := &fakeFetcher{ytErr: errors.New("502 from provider")}
	svc := newPipeline(store, dedup, jobs, fetch, &fakePipelineExtractor{})

	if _, err := svc.Submit(context.Background(), ytMessage()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	job := jobs.only(t)
	if job.Status != domain.JobFailed {
		t.Fatalf("job status = %q; want failed", job.Status)
	}
	if job.Error != "Failed to fetch YouTube data" {
		t.Fatalf("job error = %q; want the stable fetch message", job.Error)
	}
	if len(store.global) != 0 {
		t.Fatal("fetch failure must not cache the link")
	}
	if len(store.addedLinks) != 0 {
		t.Fatal("fetch failure must not touch the user record")
	}
}

func TestRunExtractionFailureDegradesToEmpty(t *testing.T) {
	store, dedup, jobs := newMemStore(), &memDedup{}, &memJobs{}
	fetch := &fakeFetcher{yt: &clients.YouTubeContent{Channel: clients.Channel{Title: "Chan"}}}
	ext := &fakePipelineExtractor{err: ErrNoTranscript}
	svc := newPipeline(store, dedup, jobs, fetch, ext)

	if _, err := svc.Submit(context.Background(), ytMessage()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	job := jobs.only(t)
	if job.Status != domain.JobDone {
		t.Fatalf("job status = %q; missing transcript must still complete", job.Status)
	}
	if len(job.Locations) != 0 {
		t.Fatalf("job locations = %v; want empty", job.Locations)
	}

	// The empty result is cached so the link is never reprocessed.
	g, ok := store.global["https://youtube.com/watch?v=abc"]
	if !ok {
		t.Fatal("empty extraction result must still be cached")
	}
	if len(g.Locations) != 0 {
		t.Fatalf("cached locations = %v; want empty", g.Locations)
	}
	if len(store.addedLocations) != 0 {
		t.Fatal("no locations should reach the user record")
	}
	if len(store.addedLinks) != 1 {
		t.Fatal("the link itself still joins the user's link list")
	}
}

func TestRunConcurrentSaveTolerated(t *testing.T) {
	store, dedup, jobs := newMemStore(), &memDedup{}, &memJobs{}
	store.saveErr = repo.ErrDuplicate
	fetch := &fakeFetcher{yt: &clients.YouTubeContent{Channel: clients.Channel{Title: "Chan"}}}
	ext := &fakePipelineExtractor{locations: []domain.Location{geoLoc("Raced Cafe")}}
	svc := newPipeline(store, dedup, jobs, fetch, ext)

	if _, err := svc.Submit(context.Background(), ytMessage()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	job := jobs.only(t)
	if job.Status != domain.JobDone {
		t.Fatalf("job status = %q; a lost save race must not fail the run", job.Status)
	}
	if len(store.addedLocations) != 1 {
		t.Fatal("user update must proceed after a lost save race")
	}
}

func TestRunUserCreateRaceTolerated(t *testing.T) {
	store, dedup, jobs := newMemStore(), &memDedup{}, &memJobs{}
	store.createUserErr = repo.ErrDuplicate
	fetch := &fakeFetcher{yt: &clients.YouTubeContent{Channel: clients.Channel{Title: "Chan"}}}
	ext := &fakePipelineExtractor{locations: []domain.Location{geoLoc("Bistro")}}
	svc := newPipeline(store, dedup, jobs, fetch, ext)

	if _, err := svc.Submit(context.Background(), ytMessage()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(store.addedLinks) != 1 || len(store.addedLocations) != 1 {
		t.Fatal("a lost create race must not stop link and location appends")
	}
}

func TestStatus(t *testing.T) {
	jobs := &memJobs{}
	svc := &PipelineService{Jobs: jobs}

	if _, err := svc.Status(context.Background(), "missing"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("err = %v; want ErrJobNotFound", err)
	}

	_ = jobs.CreateJob(context.Background(), "j-1", "https://youtube.com/x", "491")
	job, err := svc.Status(context.Background(), "j-1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if job.ID != "j-1" || job.Status != domain.JobRunning {
		t.Fatalf("job = %+v; want running j-1", job)
	}
}
