package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"server/internal/dispatch"
	"server/internal/domain"
	"server/internal/infra"
)

type stubDispatcher struct {
	job *domain.GenerationJob
	err error
	got dispatch.Request
}

func (s *stubDispatcher) Dispatch(ctx context.Context, req dispatch.Request) (*domain.GenerationJob, error) {
	s.got = req
	if s.err != nil {
		return nil, s.err
	}
	return s.job, nil
}

type stubJobs struct {
	domain.JobRepository
	jobs map[uuid.UUID]*domain.GenerationJob
}

func (s *stubJobs) GetByID(ctx context.Context, id uuid.UUID) (*domain.GenerationJob, error) {
	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return job, nil
}

func (s *stubJobs) ListByOwner(ctx context.Context, ownerID string, limit int) ([]domain.GenerationJob, error) {
	var out []domain.GenerationJob
	for _, job := range s.jobs {
		if job.OwnerID == ownerID {
			out = append(out, *job)
		}
	}
	return out, nil
}

func newTestApp(dispatcher GenerationDispatcher, jobs domain.JobRepository) *App {
	return NewApp(&infra.Config{}, zerolog.Nop(), jobs, dispatcher)
}

func TestGenerationsCreate(t *testing.T) {
	taskID := "T1"
	acceptedJob := &domain.GenerationJob{
		ID:             uuid.New(),
		OwnerID:        "owner-1",
		Status:         domain.JobStatusProcessing,
		ExternalTaskID: &taskID,
	}

	testCases := []struct {
		name       string
		owner      string
		body       string
		dispatcher *stubDispatcher
		wantStatus int
	}{{
		name:       "accepted",
		owner:      "owner-1",
		body:       `{"project_id":"p1","source_url":"http://example.com/s.png","prompt":{"kind":"preset","preset":"anime"}}`,
		dispatcher: &stubDispatcher{job: acceptedJob},
		wantStatus: http.StatusAccepted,
	}, {
		name:       "missing owner",
		owner:      "",
		body:       `{}`,
		dispatcher: &stubDispatcher{job: acceptedJob},
		wantStatus: http.StatusUnauthorized,
	}, {
		name:       "malformed body",
		owner:      "owner-1",
		body:       `{not json`,
		dispatcher: &stubDispatcher{job: acceptedJob},
		wantStatus: http.StatusBadRequest,
	}, {
		name:       "invalid prompt",
		owner:      "owner-1",
		body:       `{"project_id":"p1","source_url":"http://example.com/s.png","prompt":{"kind":"preset","preset":"nope"}}`,
		dispatcher: &stubDispatcher{err: domain.ErrInvalidPrompt},
		wantStatus: http.StatusUnprocessableEntity,
	}, {
		name:       "missing source",
		owner:      "owner-1",
		body:       `{"project_id":"p1","prompt":{"kind":"preset","preset":"anime"}}`,
		dispatcher: &stubDispatcher{err: dispatch.ErrMissingSource},
		wantStatus: http.StatusUnprocessableEntity,
	}, {
		name:       "insufficient credits",
		owner:      "owner-1",
		body:       `{"project_id":"p1","source_url":"http://example.com/s.png","prompt":{"kind":"preset","preset":"anime"}}`,
		dispatcher: &stubDispatcher{err: domain.ErrInsufficientCredits},
		wantStatus: http.StatusForbidden,
	}, {
		name:       "provider failure",
		owner:      "owner-1",
		body:       `{"project_id":"p1","source_url":"http://example.com/s.png","prompt":{"kind":"preset","preset":"anime"}}`,
		dispatcher: &stubDispatcher{err: domain.ErrProviderFailure},
		wantStatus: http.StatusBadGateway,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(tc.dispatcher, &stubJobs{})
			req := httptest.NewRequest(http.MethodPost, "/v1/generations", bytes.NewReader([]byte(tc.body)))
			if tc.owner != "" {
				req.Header.Set("X-Owner-ID", tc.owner)
			}
			rr := httptest.NewRecorder()

			app.GenerationsCreate(rr, req)

			if rr.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d; body=%s", rr.Code, tc.wantStatus, rr.Body.String())
			}
			if tc.wantStatus == http.StatusAccepted {
				var resp map[string]string
				if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
					t.Fatalf("decode response: %v", err)
				}
				if resp["job_id"] != acceptedJob.ID.String() {
					t.Fatalf("job_id = %q", resp["job_id"])
				}
				if resp["status"] != "processing" {
					t.Fatalf("status = %q", resp["status"])
				}
				if tc.dispatcher.got.OwnerID != "owner-1" {
					t.Fatalf("dispatcher owner = %q", tc.dispatcher.got.OwnerID)
				}
			}
		})
	}
}

func TestGenerationsGet(t *testing.T) {
	resultURL := "http://cdn.local/static/generated/owner-1/out.jpg"
	job := &domain.GenerationJob{
		ID:        uuid.New(),
		OwnerID:   "owner-1",
		ProjectID: "p1",
		Status:    domain.JobStatusSuccess,
		ResultURL: &resultURL,
		CreatedAt: time.Now().Add(-time.Minute),
		UpdatedAt: time.Now(),
	}
	jobs := &stubJobs{jobs: map[uuid.UUID]*domain.GenerationJob{job.ID: job}}
	app := newTestApp(&stubDispatcher{}, jobs)

	do := func(owner, jobID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/generations/"+jobID, nil)
		if owner != "" {
			req.Header.Set("X-Owner-ID", owner)
		}
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("job_id", jobID)
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
		rr := httptest.NewRecorder()
		app.GenerationsGet(rr, req)
		return rr
	}

	rr := do("owner-1", job.ID.String())
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body=%s", rr.Code, rr.Body.String())
	}
	var view jobView
	if err := json.NewDecoder(rr.Body).Decode(&view); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if view.Status != "success" || view.ResultURL == nil || *view.ResultURL != resultURL {
		t.Fatalf("view = %+v", view)
	}

	if rr := do("owner-2", job.ID.String()); rr.Code != http.StatusNotFound {
		t.Fatalf("foreign owner status = %d, want 404", rr.Code)
	}
	if rr := do("owner-1", uuid.NewString()); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown job status = %d, want 404", rr.Code)
	}
	if rr := do("owner-1", "not-a-uuid"); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d, want 400", rr.Code)
	}
}

func TestGenerationsList(t *testing.T) {
	job := &domain.GenerationJob{ID: uuid.New(), OwnerID: "owner-1", Status: domain.JobStatusProcessing}
	other := &domain.GenerationJob{ID: uuid.New(), OwnerID: "owner-2", Status: domain.JobStatusFailed}
	jobs := &stubJobs{jobs: map[uuid.UUID]*domain.GenerationJob{job.ID: job, other.ID: other}}
	app := newTestApp(&stubDispatcher{}, jobs)

	req := httptest.NewRequest(http.MethodGet, "/v1/generations", nil)
	req.Header.Set("X-Owner-ID", "owner-1")
	rr := httptest.NewRecorder()
	app.GenerationsList(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp struct {
		Items []jobView `json:"items"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].ID != job.ID.String() {
		t.Fatalf("items = %+v", resp.Items)
	}
}
