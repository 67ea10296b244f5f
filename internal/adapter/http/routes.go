package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	cfotel "github.com/Strob0t/tbd/internal/adapter/otel"
	"github.com/Strob0t/tbd/internal/adapter/ws"
	"github.com/Strob0t/tbd/internal/config"
	"github.com/Strob0t/tbd/internal/middleware"
	"github.com/Strob0t/tbd/internal/port/messagequeue"
)

const idempotencyTTL = 24 * time.Hour

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Tasks
		r.Get("/tasks/active", h.ListActiveTasks)
		r.Post("/tasks/active", h.ScheduleTask)
		r.Post("/tasks/active/{title}/done", h.MarkDone)
		r.Get("/tasks/pooled", h.ListPooledTasks)
		r.Post("/tasks/pooled", h.PoolTask)

		r.Post("/activate", h.Activate)
		r.Get("/log", h.ListEntries)

		// Snapshot
		r.Post("/snapshot/save", h.SaveSnapshot)
		r.Post("/snapshot/load", h.LoadSnapshot)
	})
}

// NewRouter builds the complete HTTP handler: middleware, health, the
// websocket stream, and the API. hub may be nil.
func NewRouter(cfg *config.Config, h *Handlers, hub *ws.Hub) http.Handler {
	r := chi.NewRouter()

	r.Use(cfotel.HTTPMiddleware(cfg.OTEL.ServiceName))
	r.Use(CORS(cfg.Server.CORSOrigin))
	r.Use(middleware.RequestID)
	r.Use(Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(SecurityHeaders)

	r.Get("/health", healthHandler(cfg, h.Queue, hub))
	if hub != nil {
		r.Get("/ws", hub.HandleWS)
	}

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(30 * time.Second))
		if h.Cache != nil {
			r.Use(middleware.Idempotency(h.Cache, idempotencyTTL))
		}
		MountRoutes(r, h)
	})
	return r
}

// healthHandler reports liveness, the configured storage backend and, when
// entries are published, the NATS connection. A lost NATS connection only
// degrades the status since publishing is best effort.
func healthHandler(cfg *config.Config, queue messagequeue.Queue, hub *ws.Hub) http.HandlerFunc {
	type healthStatus struct {
		Status      string `json:"status"`
		Backend     string `json:"backend"`
		Location    string `json:"location"`
		NATS        string `json:"nats,omitempty"`
		Connections int    `json:"ws_connections"`
	}

	return func(w http.ResponseWriter, _ *http.Request) {
		s := healthStatus{
			Status:   "ok",
			Backend:  cfg.Storage.Backend,
			Location: cfg.Storage.Location,
		}
		if queue != nil {
			s.NATS = "connected"
			if !queue.IsConnected() {
				s.NATS = "disconnected"
				s.Status = "degraded"
			}
		}
		if hub != nil {
			s.Connections = hub.ConnectionCount()
		}
		writeJSON(w, http.StatusOK, s)
	}
}
