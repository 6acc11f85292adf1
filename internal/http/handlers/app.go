package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"server/internal/dispatch"
	"server/internal/domain"
	"server/internal/infra"
)

// GenerationDispatcher is the slice of the dispatcher the API needs.
type GenerationDispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) (*domain.GenerationJob, error)
}

// App carries handler dependencies.
type App struct {
	Config     *infra.Config
	Logger     zerolog.Logger
	Jobs       domain.JobRepository
	Dispatcher GenerationDispatcher
}

func NewApp(cfg *infra.Config, logger zerolog.Logger, jobs domain.JobRepository, dispatcher GenerationDispatcher) *App {
	return &App{Config: cfg, Logger: logger, Jobs: jobs, Dispatcher: dispatcher}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]string{"error": errCode, "message": message})
}

// currentOwnerID resolves the authenticated owner. Authentication lives
// in front of this service; it forwards the identity in a header.
func (a *App) currentOwnerID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Owner-ID"))
}

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}
