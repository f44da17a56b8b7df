package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/floodview/internal/annotation"
	"github.com/couchcryptid/floodview/internal/domain"
	"github.com/couchcryptid/floodview/internal/view"
)

const maxBodyBytes = 1 << 20

// Viewer is the view controller as seen by the API.
type Viewer interface {
	view.Commands
	State() view.ViewState
	Catalog() (domain.AOICatalog, error)
	SetLayerVisible(name string, visible bool) error
}

// Annotations is the annotation flow as seen by the API.
type Annotations interface {
	Login(ctx context.Context, email, password string) error
	Logout(ctx context.Context) error
	Status(ctx context.Context) (domain.Session, error)
	RefreshOverlay(ctx context.Context)
	Overlay() annotation.Overlay
	BeginDraft(p orb.Polygon) (domain.Draft, error)
	Cancel(id uuid.UUID) error
	Save(ctx context.Context, id uuid.UUID, waste bool) (domain.Annotation, error)
}

// Forecaster serves flood forecasts.
type Forecaster interface {
	FloodForecast(ctx context.Context, lat, lon float64, disableFiltering bool) (json.RawMessage, error)
}

// Tracker records analytics events.
type Tracker interface {
	Track(event string, props map[string]any)
}

// Handlers are the collaborators behind the /api routes. Tracker may be nil.
type Handlers struct {
	View        Viewer
	Annotations Annotations
	Forecast    Forecaster
	Tracker     Tracker
}

// Server exposes health, readiness, metrics and the viewer API.
type Server struct {
	httpServer *http.Server
	h          Handlers
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and
// /api routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, h Handlers, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		h:      h,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/catalog", s.handleCatalog)
	mux.HandleFunc("GET /api/view", s.handleView)
	mux.HandleFunc("POST /api/view/selection", s.handleSelection)
	mux.HandleFunc("POST /api/view/slider", s.handleSlider)
	mux.HandleFunc("POST /api/view/layers", s.handleLayerVisibility)

	mux.HandleFunc("POST /api/session/login", s.handleLogin)
	mux.HandleFunc("POST /api/session/logout", s.handleLogout)
	mux.HandleFunc("GET /api/session", s.handleSession)

	mux.HandleFunc("GET /api/annotations", s.handleOverlay)
	mux.HandleFunc("POST /api/annotations/drafts", s.handleBeginDraft)
	mux.HandleFunc("POST /api/annotations/drafts/{id}/save", s.handleSaveDraft)
	mux.HandleFunc("DELETE /api/annotations/drafts/{id}", s.handleCancelDraft)

	mux.HandleFunc("GET /api/forecast", s.handleForecast)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) track(event string, props map[string]any) {
	if s.h.Tracker != nil {
		s.h.Tracker.Track(event, props)
	}
}

// decodeBody reads a JSON request body into v, answering 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client went away
}

// geometryBody is a GeoJSON geometry wrapper.
type geometryBody struct {
	Geometry *geojson.Geometry `json:"geometry"`
}
