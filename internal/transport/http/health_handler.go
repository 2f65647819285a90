package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"bedpulse/internal/infrastructure"
)

// HealthHandler serves liveness and version endpoints.
type HealthHandler struct {
	logger  *slog.Logger
	started time.Time
}

// NewHealthHandler creates the health handler.
func NewHealthHandler(logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		logger:  logger.With(slog.String("component", "health_handler")),
		started: time.Now(),
	}
}

// Routes returns the health routes.
func (h *HealthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.GetHealth)
	r.Get("/version", h.GetVersion)

	return r
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
}

// GetHealth handles GET /api/health.
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, HealthResponse{
		Status:  "healthy",
		Uptime:  time.Since(h.started).Round(time.Second).String(),
		Version: infrastructure.ServiceVersion,
	})
}

// VersionResponse reports the build identity.
type VersionResponse struct {
	Service string `json:"service"`
	Version string `json:"version"`
}

// GetVersion handles GET /api/health/version.
func (h *HealthHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, VersionResponse{
		Service: infrastructure.ServiceName,
		Version: infrastructure.ServiceVersion,
	})
}
