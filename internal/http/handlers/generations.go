package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"server/internal/dispatch"
	"server/internal/domain"
)

const listLimit = 50

type generateRequest struct {
	ProjectID string            `json:"project_id"`
	SourceURL string            `json:"source_url"`
	Size      string            `json:"size"`
	Prompt    domain.PromptSpec `json:"prompt"`
}

type jobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type jobView struct {
	ID                string    `json:"id"`
	ProjectID         string    `json:"project_id"`
	Status            string    `json:"status"`
	SourceURL         string    `json:"source_url"`
	ResultURL         *string   `json:"result_url,omitempty"`
	ExternalResultURL *string   `json:"external_result_url,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func viewOf(job *domain.GenerationJob) jobView {
	return jobView{
		ID:                job.ID.String(),
		ProjectID:         job.ProjectID,
		Status:            job.Status.String(),
		SourceURL:         job.SourceAssetURL,
		ResultURL:         job.ResultURL,
		ExternalResultURL: job.ExternalResultURL,
		CreatedAt:         job.CreatedAt,
		UpdatedAt:         job.UpdatedAt,
	}
}

// GenerationsCreate submits a new generation job. The response is
// returned as soon as the external service accepts the task; clients
// poll GenerationsGet until the status turns terminal.
func (a *App) GenerationsCreate(w http.ResponseWriter, r *http.Request) {
	ownerID := a.currentOwnerID(r)
	if ownerID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing owner context")
		return
	}
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	job, err := a.Dispatcher.Dispatch(r.Context(), dispatch.Request{
		OwnerID:        ownerID,
		ProjectID:      req.ProjectID,
		SourceAssetURL: req.SourceURL,
		Size:           req.Size,
		Prompt:         req.Prompt,
	})
	switch {
	case err == nil:
		a.json(w, http.StatusAccepted, jobResponse{JobID: job.ID.String(), Status: job.Status.String()})
	case errors.Is(err, dispatch.ErrMissingSource), errors.Is(err, domain.ErrInvalidPrompt):
		a.error(w, http.StatusUnprocessableEntity, "invalid_request", err.Error())
	case errors.Is(err, domain.ErrInsufficientCredits):
		a.error(w, http.StatusForbidden, "insufficient_credits", "not enough credits")
	case errors.Is(err, domain.ErrProviderFailure):
		a.error(w, http.StatusBadGateway, "provider_failure", "generation service rejected the request")
	default:
		a.Logger.Error().Err(err).Msg("generations: dispatch")
		a.error(w, http.StatusInternalServerError, "internal", "failed to submit job")
	}
}

// GenerationsGet returns the job's persisted state. Scheduler-side
// failures surface only through the status field.
func (a *App) GenerationsGet(w http.ResponseWriter, r *http.Request) {
	ownerID := a.currentOwnerID(r)
	if ownerID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing owner context")
		return
	}
	jobID, err := uuid.Parse(chi.URLParam(r, "job_id"))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid job id")
		return
	}
	job, err := a.Jobs.GetByID(r.Context(), jobID)
	if err != nil || job.OwnerID != ownerID {
		a.error(w, http.StatusNotFound, "not_found", "job not found")
		return
	}
	a.json(w, http.StatusOK, viewOf(job))
}

// GenerationsList returns the owner's recent jobs, newest first.
func (a *App) GenerationsList(w http.ResponseWriter, r *http.Request) {
	ownerID := a.currentOwnerID(r)
	if ownerID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing owner context")
		return
	}
	jobs, err := a.Jobs.ListByOwner(r.Context(), ownerID, listLimit)
	if err != nil {
		a.Logger.Error().Err(err).Msg("generations: list")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list jobs")
		return
	}
	items := make([]jobView, 0, len(jobs))
	for i := range jobs {
		items = append(items, viewOf(&jobs[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}
