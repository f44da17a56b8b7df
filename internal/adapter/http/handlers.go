package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/couchcryptid/floodview/internal/annotation"
	"github.com/couchcryptid/floodview/internal/domain"
	"github.com/couchcryptid/floodview/internal/view"
)

// statusFor maps domain errors to HTTP statuses. Anything unrecognised is
// an upstream failure and answered with fallback.
func statusFor(err error, fallback int) int {
	switch {
	case errors.Is(err, view.ErrNotLoaded):
		return http.StatusServiceUnavailable
	case errors.Is(err, view.ErrUnknownSelection),
		errors.Is(err, view.ErrIndexOutOfRange),
		errors.Is(err, view.ErrUnknownLayer),
		errors.Is(err, domain.ErrInvalidPolygon):
		return http.StatusBadRequest
	case errors.Is(err, annotation.ErrDraftNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrLoginFailed),
		errors.Is(err, annotation.ErrNotLoggedIn):
		return http.StatusUnauthorized
	case errors.Is(err, annotation.ErrNoImage),
		errors.Is(err, annotation.ErrDraftSaving):
		return http.StatusConflict
	default:
		return fallback
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, fallback int) {
	status := statusFor(err, fallback)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

// --- view ---

type catalogDate struct {
	Date  string `json:"date"`
	Label string `json:"label"`
}

type catalogAOI struct {
	Name   string         `json:"name"`
	Dates  []catalogDate  `json:"dates"`
	Extent *domain.Extent `json:"extent,omitempty"`
}

type catalogModel struct {
	Name string       `json:"name"`
	AOIs []catalogAOI `json:"aois"`
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	cat, err := s.h.View.Catalog()
	if err != nil {
		s.writeError(w, r, err, http.StatusInternalServerError)
		return
	}

	models := make([]catalogModel, 0, len(cat))
	for _, model := range cat.Models() {
		m := catalogModel{Name: model}
		for _, aoi := range cat.AOIs(model) {
			dates, _ := cat.Dates(model, aoi)
			a := catalogAOI{Name: aoi, Dates: make([]catalogDate, 0, len(dates))}
			if e, ok := domain.ExtentFor(aoi); ok {
				a.Extent = &e
			}
			for _, d := range dates {
				a.Dates = append(a.Dates, catalogDate{Date: d, Label: domain.FormatDateLabel(d)})
			}
			m.AOIs = append(m.AOIs, a)
		}
		models = append(models, m)
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": models})
}

func (s *Server) handleView(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.h.View.State())
}

func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AOI   string `json:"aoi"`
		Model string `json:"model"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if err := s.h.View.OnSelectionChanged(body.AOI, body.Model); err != nil {
		s.writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	s.h.Annotations.RefreshOverlay(r.Context())
	s.track("aoi_selected", map[string]any{"aoi": body.AOI, "model": body.Model})
	writeJSON(w, http.StatusOK, s.h.View.State())
}

func (s *Server) handleSlider(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Index *int `json:"index"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Index == nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "index is required"})
		return
	}
	if err := s.h.View.OnSliderMoved(*body.Index); err != nil {
		s.writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	s.h.Annotations.RefreshOverlay(r.Context())
	writeJSON(w, http.StatusOK, s.h.View.State())
}

func (s *Server) handleLayerVisibility(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name    string `json:"name"`
		Visible bool   `json:"visible"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if err := s.h.View.SetLayerVisible(body.Name, body.Visible); err != nil {
		s.writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, s.h.View.State())
}

// --- session ---

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if err := s.h.Annotations.Login(r.Context(), body.Email, body.Password); err != nil {
		s.writeError(w, r, err, http.StatusBadGateway)
		return
	}
	s.handleSession(w, r)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.h.Annotations.Logout(r.Context()); err != nil {
		s.writeError(w, r, err, http.StatusBadGateway)
		return
	}
	s.handleSession(w, r)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.h.Annotations.Status(r.Context())
	if err != nil {
		s.writeError(w, r, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// --- annotations ---

func (s *Server) handleOverlay(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.h.Annotations.Overlay())
}

func (s *Server) handleBeginDraft(w http.ResponseWriter, r *http.Request) {
	var body geometryBody
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Geometry == nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "geometry is required"})
		return
	}
	p, ok := body.Geometry.Geometry().(orb.Polygon)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "geometry must be a Polygon"})
		return
	}

	d, err := s.h.Annotations.BeginDraft(p)
	if err != nil {
		s.writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, annotation.DraftState{
		ID:       d.ID,
		Anchor:   d.Anchor,
		Geometry: body.Geometry,
	})
}

func (s *Server) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := draftID(w, r)
	if !ok {
		return
	}
	var body struct {
		Waste bool `json:"waste"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	a, err := s.h.Annotations.Save(r.Context(), id, body.Waste)
	if err != nil {
		s.writeError(w, r, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":                 a.ID,
		"satellite_image_id": a.SatelliteImageID,
		"user_id":            a.UserID,
		"geom":               a.WKT(),
		"waste":              a.Waste,
	})
}

func (s *Server) handleCancelDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := draftID(w, r)
	if !ok {
		return
	}
	if err := s.h.Annotations.Cancel(id); err != nil {
		s.writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func draftID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid draft id"})
		return uuid.UUID{}, false
	}
	return id, true
}

// --- forecast ---

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
	if errLat != nil || errLon != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "lat and lon must be numbers"})
		return
	}
	disable := false
	if v := q.Get("disable_filtering"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "disable_filtering must be a boolean"})
			return
		}
		disable = b
	}

	raw, err := s.h.Forecast.FloodForecast(r.Context(), lat, lon, disable)
	if err != nil {
		s.writeError(w, r, err, http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}
