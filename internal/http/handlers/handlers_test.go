package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/headstart/go-poi-backend/internal/domain"
	"github.com/headstart/go-poi-backend/internal/services"
)

func init() { gin.SetMode(gin.TestMode) }

//
// Stubs
//

type stubPipeline struct {
	sub     *services.Submission
	subErr  error
	job     *domain.Job
	jobErr  error
	gotMsg  services.InboundMessage
	samples int
}

func (s *stubPipeline) Submit(_ context.Context, msg services.InboundMessage) (*services.Submission, error) {
	s.samples++
	s.gotMsg = msg
	return s.sub, s.subErr
}

func (s *stubPipeline) Status(_ context.Context, jobID string) (*domain.Job, error) {
	return s.job, s.jobErr
}

type stubUsers struct {
	user   *domain.User
	cities []string
	page   *services.POIPage
	links  []domain.UserLink
	err    error
}

func (s *stubUsers) Login(_ context.Context, name, phoneNo string) (*domain.User, error) {
	return s.user, s.err
}

func (s *stubUsers) Cities(_ context.Context, phoneNo string) ([]string, error) {
	return s.cities, s.err
}

func (s *stubUsers) POIs(_ context.Context, phoneNo, city, page, pageSize string) (*services.POIPage, error) {
	return s.page, s.err
}

func (s *stubUsers) Links(_ context.Context, phoneNo string) ([]domain.UserLink, error) {
	return s.links, s.err
}

type stubCatalog struct {
	report *services.BackfillReport
	err    error
}

func (s *stubCatalog) Backfill(_ context.Context, phoneNo string) (*services.BackfillReport, error) {
	return s.report, s.err
}

func newRouter(h *Handlers) *gin.Engine {
	r := gin.New()
	r.POST("/process-message", h.ProcessMessage)
	r.GET("/status/:job_id", h.JobStatus)
	r.POST("/login", h.Login)
	r.GET("/users/:phoneNo/cities", h.Cities)
	r.GET("/users/:phoneNo/pois", h.POIs)
	r.GET("/users/:phoneNo/links", h.Links)
	r.POST("/users/:phoneNo/catalog-backfill", h.CatalogBackfill)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) ProcessMessageResponse {
	t.Helper()
	var resp ProcessMessageResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, w.Body.String())
	}
	return resp
}

//
// ProcessMessage
//

func TestProcessMessageAccepted(t *testing.T) {
	pl := &stubPipeline{sub: &services.Submission{JobID: "job-1", Platform: domain.PlatformYouTube}}
	r := newRouter(New(pl, &stubUsers{}, &stubCatalog{}))

	w := doJSON(t, r, http.MethodPost, "/process-message", gin.H{
		"message":             "https://youtube.com/watch?v=abc",
		"name":                "Ada",
		"phoneNo":             "491",
		"whatsapp_message_id": "wamid.1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", w.Code)
	}
	resp := decodeEnvelope(t, w)
	if !resp.Success || resp.JobID != "job-1" {
		t.Fatalf("envelope = %+v; want success with job id", resp)
	}
	if resp.Link != "https://youtube.com/watch?v=abc" || resp.PhoneNo != "491" {
		t.Fatalf("envelope echo = %+v; want link and phone echoed", resp)
	}
	if pl.gotMsg.WhatsAppMessageID != "wamid.1" {
		t.Fatalf("msg = %+v; wamid must reach the coordinator", pl.gotMsg)
	}
}

func TestProcessMessageUnsupportedPlatformStill200(t *testing.T) {
	pl := &stubPipeline{subErr: services.ErrUnsupportedPlatform}
	r := newRouter(New(pl, &stubUsers{}, &stubCatalog{}))

	w := doJSON(t, r, http.MethodPost, "/process-message", gin.H{
		"message": "https://tiktok.com/v/1", "name": "Ada", "phoneNo": "491",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; webhook must answer 200 for business failures", w.Code)
	}
	resp := decodeEnvelope(t, w)
	if resp.Success || resp.Error == "" {
		t.Fatalf("envelope = %+v; want failure with message", resp)
	}
	if resp.JobID != "" {
		t.Fatalf("envelope = %+v; unsupported URL must not carry a job id", resp)
	}
}

func TestProcessMessageDuplicateAcknowledged(t *testing.T) {
	pl := &stubPipeline{subErr: services.ErrDuplicateMessage}
	r := newRouter(New(pl, &stubUsers{}, &stubCatalog{}))

	w := doJSON(t, r, http.MethodPost, "/process-message", gin.H{
		"message": "https://youtube.com/watch?v=abc", "name": "Ada", "phoneNo": "491",
	})
	resp := decodeEnvelope(t, w)
	if w.Code != http.StatusOK || !resp.Success {
		t.Fatalf("status=%d envelope=%+v; redelivery must be acknowledged as success", w.Code, resp)
	}
	if resp.Error != services.ErrDuplicateMessage.Error() {
		t.Fatalf("error = %q; want %q", resp.Error, services.ErrDuplicateMessage.Error())
	}
	if resp.JobID != "" {
		t.Fatalf("envelope = %+v; redelivery must not carry a job id", resp)
	}
}

func TestProcessMessageMalformedPayload(t *testing.T) {
	r := newRouter(New(&stubPipeline{}, &stubUsers{}, &stubCatalog{}))

	for name, body := range map[string]gin.H{
		"missing message": {"name": "Ada", "phoneNo": "491"},
		"missing phone":   {"message": "https://youtube.com/x", "name": "Ada"},
		"blank message":   {"message": "   ", "name": "Ada", "phoneNo": "491"},
	} {
		t.Run(name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/process-message", body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d; want 400 for malformed payload", w.Code)
			}
		})
	}
}

//
// JobStatus
//

func TestJobStatus(t *testing.T) {
	jobID := "123e4567-e89b-12d3-a456-426614174000"
	pl := &stubPipeline{job: &domain.Job{ID: jobID, Status: domain.JobDone, CacheHit: true}}
	r := newRouter(New(pl, &stubUsers{}, &stubCatalog{}))

	w := doJSON(t, r, http.MethodGet, "/status/"+jobID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", w.Code)
	}
	var job domain.Job
	if err := json.Unmarshal(w.Body.Bytes(), &job); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if job.Status != domain.JobDone || !job.CacheHit {
		t.Fatalf("job = %+v; want the stored record", job)
	}
}

func TestJobStatusErrors(t *testing.T) {
	jobID := "123e4567-e89b-12d3-a456-426614174000"

	t.Run("not a uuid", func(t *testing.T) {
		r := newRouter(New(&stubPipeline{}, &stubUsers{}, &stubCatalog{}))
		w := doJSON(t, r, http.MethodGet, "/status/not-a-uuid", nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d; want 400", w.Code)
		}
	})
	t.Run("unknown job", func(t *testing.T) {
		r := newRouter(New(&stubPipeline{jobErr: services.ErrJobNotFound}, &stubUsers{}, &stubCatalog{}))
		w := doJSON(t, r, http.MethodGet, "/status/"+jobID, nil)
		if w.Code != http.StatusNotFound {
			t.Fatalf("status = %d; want 404", w.Code)
		}
	})
	t.Run("store error", func(t *testing.T) {
		r := newRouter(New(&stubPipeline{jobErr: errors.New("mongo down")}, &stubUsers{}, &stubCatalog{}))
		w := doJSON(t, r, http.MethodGet, "/status/"+jobID, nil)
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d; want 500", w.Code)
		}
	})
}

//
// User endpoints
//

func TestLogin(t *testing.T) {
	users := &stubUsers{user: &domain.User{Name: "Ada", PhoneNo: "491"}}
	r := newRouter(New(&stubPipeline{}, users, &stubCatalog{}))

	w := doJSON(t, r, http.MethodPost, "/login", gin.H{"name": "Ada", "phoneNo": "491"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", w.Code)
	}
	var u domain.User
	if err := json.Unmarshal(w.Body.Bytes(), &u); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if u.PhoneNo != "491" {
		t.Fatalf("user = %+v; want the record", u)
	}
}

func TestLoginMissingFields(t *testing.T) {
	r := newRouter(New(&stubPipeline{}, &stubUsers{}, &stubCatalog{}))
	w := doJSON(t, r, http.MethodPost, "/login", gin.H{"name": "Ada"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d; want 400", w.Code)
	}
}

func TestCities(t *testing.T) {
	users := &stubUsers{cities: []string{"Barcelona", "Paris"}}
	r := newRouter(New(&stubPipeline{}, users, &stubCatalog{}))

	w := doJSON(t, r, http.MethodGet, "/users/491/cities", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", w.Code)
	}
	var resp CitiesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Cities) != 2 || resp.Cities[0] != "Barcelona" {
		t.Fatalf("cities = %v", resp.Cities)
	}
}

func TestUserEndpointsUnknownUser(t *testing.T) {
	users := &stubUsers{err: services.ErrUserNotFound}
	r := newRouter(New(&stubPipeline{}, users, &stubCatalog{err: services.ErrUserNotFound}))

	for _, path := range []string{
		"/users/000/cities",
		"/users/000/pois",
		"/users/000/links",
	} {
		w := doJSON(t, r, http.MethodGet, path, nil)
		if w.Code != http.StatusNotFound {
			t.Fatalf("GET %s status = %d; want 404", path, w.Code)
		}
		var er ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if er.Code != ErrCodeNotFound {
			t.Fatalf("code = %q; want %q", er.Code, ErrCodeNotFound)
		}
	}

	w := doJSON(t, r, http.MethodPost, "/users/000/catalog-backfill", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("backfill status = %d; want 404", w.Code)
	}
}

func TestPOIsPassesQueryThrough(t *testing.T) {
	users := &stubUsers{page: &services.POIPage{
		Locations: []domain.UserLocation{},
		Page:      2,
		PageSize:  5,
		Total:     12,
	}}
	r := newRouter(New(&stubPipeline{}, users, &stubCatalog{}))

	w := doJSON(t, r, http.MethodGet, "/users/491/pois?city=Paris&page=2&page_size=5", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", w.Code)
	}
	var page services.POIPage
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Total != 12 || page.Page != 2 {
		t.Fatalf("page = %+v", page)
	}
	if page.Locations == nil {
		t.Fatal("locations must marshal as [], not null")
	}
}

func TestCatalogBackfill(t *testing.T) {
	cat := &stubCatalog{report: &services.BackfillReport{Scanned: 3, Matched: 2}}
	r := newRouter(New(&stubPipeline{}, &stubUsers{}, cat))

	w := doJSON(t, r, http.MethodPost, "/users/491/catalog-backfill", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", w.Code)
	}
	var report services.BackfillReport
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Matched != 2 {
		t.Fatalf("report = %+v", report)
	}
}
