package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/floodview/internal/adapter/http"
	"github.com/couchcryptid/floodview/internal/annotation"
	"github.com/couchcryptid/floodview/internal/domain"
	"github.com/couchcryptid/floodview/internal/observability"
	"github.com/couchcryptid/floodview/internal/view"
)

// --- mocks ---

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockAnnotations struct {
	loginErr  error
	saveErr   error
	session   domain.Session
	refreshes int
	drafts    map[uuid.UUID]domain.Draft
}

func (m *mockAnnotations) Login(_ context.Context, _, password string) error {
	if m.loginErr != nil {
		return m.loginErr
	}
	if password != "secret" {
		return fmt.Errorf("%w: Invalid credentials", domain.ErrLoginFailed)
	}
	m.session = domain.Session{LoggedIn: true, UserID: 7}
	return nil
}

func (m *mockAnnotations) Logout(context.Context) error {
	m.session = domain.Session{}
	return nil
}

func (m *mockAnnotations) Status(context.Context) (domain.Session, error) {
	return m.session, nil
}

func (m *mockAnnotations) RefreshOverlay(context.Context) { m.refreshes++ }

func (m *mockAnnotations) Overlay() annotation.Overlay {
	return annotation.Overlay{Visible: m.session.LoggedIn}
}

func (m *mockAnnotations) BeginDraft(p orb.Polygon) (domain.Draft, error) {
	d, err := domain.NewDraft(p)
	if err != nil {
		return d, err
	}
	m.drafts[d.ID] = d
	return d, nil
}

func (m *mockAnnotations) Cancel(id uuid.UUID) error {
	if _, ok := m.drafts[id]; !ok {
		return annotation.ErrDraftNotFound
	}
	delete(m.drafts, id)
	return nil
}

func (m *mockAnnotations) Save(_ context.Context, id uuid.UUID, waste bool) (domain.Annotation, error) {
	if m.saveErr != nil {
		return domain.Annotation{}, m.saveErr
	}
	d, ok := m.drafts[id]
	if !ok {
		return domain.Annotation{}, annotation.ErrDraftNotFound
	}
	delete(m.drafts, id)
	return domain.Annotation{ID: 1, SatelliteImageID: 42, UserID: 7, Geometry: d.Geometry, Waste: waste}, nil
}

type mockForecast struct {
	err error
}

func (m *mockForecast) FloodForecast(_ context.Context, lat, lon float64, disable bool) (json.RawMessage, error) {
	if m.err != nil {
		return nil, m.err
	}
	return json.RawMessage(fmt.Sprintf(`{"lat":%g,"lon":%g,"filtered":%t}`, lat, lon, !disable)), nil
}

type recordingTracker struct {
	events []string
}

func (r *recordingTracker) Track(event string, _ map[string]any) {
	r.events = append(r.events, event)
}

// --- helpers ---

const (
	catalogImages = `{"Raho": {"2021-07-09": {"src": "Raho/raho.tif", "min": 0, "max": 3000}}}`
	catalogAOIs   = `{"modelA": {
		"Raho": {
			"2021-07-09": ["c1", "h1", "l1", "m1"],
			"2021-08-01": ["c2", "h2", "l2", "m2"]
		},
		"Drina": {"2019-06-01": ["c3", "h3", "l3", "m3"]}
	}}`
)

type testEnv struct {
	srv         *httpadapter.Server
	ctrl        *view.Controller
	annotations *mockAnnotations
	forecast    *mockForecast
	tracker     *recordingTracker
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEnv(t *testing.T, loaded bool) *testEnv {
	t.Helper()
	ctrl := view.New(view.NewScene(), view.BaseMaps("", ""), discardLogger(), observability.NewMetricsForTesting())
	if loaded {
		images, err := domain.DecodeImageCatalog(strings.NewReader(catalogImages))
		require.NoError(t, err)
		aois, err := domain.DecodeAOICatalog(strings.NewReader(catalogAOIs))
		require.NoError(t, err)
		ctrl.Load(domain.Catalogs{
			Images: images.WithBaseURL("https://data.example.com/"),
			AOIs:   aois.WithBaseURL("https://data.example.com/"),
		})
		require.NoError(t, ctrl.SetAOI("Raho", "modelA"))
	}

	env := &testEnv{
		ctrl:        ctrl,
		annotations: &mockAnnotations{drafts: map[uuid.UUID]domain.Draft{}},
		forecast:    &mockForecast{},
		tracker:     &recordingTracker{},
	}
	env.srv = httpadapter.NewServer(":0", &mockReadiness{}, httpadapter.Handlers{
		View:        ctrl,
		Annotations: env.annotations,
		Forecast:    env.forecast,
		Tracker:     env.tracker,
	}, discardLogger())
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

const squareGeoJSON = `{"geometry": {"type": "Polygon", "coordinates": [[[0,0],[4,0],[4,4],[0,4],[0,0]]]}}`

// --- health ---

func TestHealthzReturns200(t *testing.T) {
	env := newEnv(t, false)
	rec := env.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyz(t *testing.T) {
	ctrl := view.New(view.NewScene(), nil, discardLogger(), observability.NewMetricsForTesting())
	h := httpadapter.Handlers{View: ctrl, Annotations: &mockAnnotations{}, Forecast: &mockForecast{}}

	ready := httpadapter.NewServer(":0", &mockReadiness{}, h, discardLogger())
	rec := httptest.NewRecorder()
	ready.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	notReady := httpadapter.NewServer(":0", &mockReadiness{err: errors.New("catalogs have not been loaded yet")}, h, discardLogger())
	rec = httptest.NewRecorder()
	notReady.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newEnv(t, false)
	rec := env.do(t, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

// --- view ---

func TestCatalog(t *testing.T) {
	env := newEnv(t, true)
	rec := env.do(t, http.MethodGet, "/api/catalog", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Models []struct {
			Name string `json:"name"`
			AOIs []struct {
				Name   string         `json:"name"`
				Extent *domain.Extent `json:"extent"`
				Dates  []struct {
					Date  string `json:"date"`
					Label string `json:"label"`
				} `json:"dates"`
			} `json:"aois"`
		} `json:"models"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	require.Len(t, body.Models, 1)
	require.Len(t, body.Models[0].AOIs, 2)
	raho := body.Models[0].AOIs[1]
	assert.Equal(t, "Raho", raho.Name)
	require.NotNil(t, raho.Extent)
	require.Len(t, raho.Dates, 2)
	assert.Equal(t, "2021-07-09", raho.Dates[0].Date)
	assert.Equal(t, "09/07/2021", raho.Dates[0].Label)
}

func TestCatalog_NotLoaded(t *testing.T) {
	env := newEnv(t, false)
	rec := env.do(t, http.MethodGet, "/api/catalog", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestView(t *testing.T) {
	env := newEnv(t, true)
	rec := env.do(t, http.MethodGet, "/api/view", "")
	require.Equal(t, http.StatusOK, rec.Code)

	st := decode[view.ViewState](t, rec)
	assert.True(t, st.Loaded)
	assert.Equal(t, "Raho", st.Selection.AOI)
	assert.Equal(t, 1, st.Slider.Max)
	require.Len(t, st.Vectors, 4)
	assert.Equal(t, "https://data.example.com/h1", st.Vectors[1].URL)
	assert.Len(t, st.BaseLayers, 2)
}

func TestSelection(t *testing.T) {
	env := newEnv(t, true)
	require.NoError(t, env.ctrl.SetDateIndex(1))

	rec := env.do(t, http.MethodPost, "/api/view/selection", `{"aoi": "Drina", "model": "modelA"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	st := decode[view.ViewState](t, rec)
	assert.Equal(t, view.Selection{Model: "modelA", AOI: "Drina", Index: 0}, st.Selection)
	assert.Equal(t, 1, env.annotations.refreshes)
	assert.Equal(t, []string{"aoi_selected"}, env.tracker.events)
}

func TestSelection_Unknown(t *testing.T) {
	env := newEnv(t, true)
	rec := env.do(t, http.MethodPost, "/api/view/selection", `{"aoi": "Atlantis", "model": "modelA"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, env.annotations.refreshes)
}

func TestSelection_InvalidBody(t *testing.T) {
	env := newEnv(t, true)
	rec := env.do(t, http.MethodPost, "/api/view/selection", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSlider(t *testing.T) {
	env := newEnv(t, true)

	rec := env.do(t, http.MethodPost, "/api/view/slider", `{"index": 1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[view.ViewState](t, rec)
	assert.Equal(t, 1, st.Slider.Value)
	assert.Equal(t, "2021-08-01", st.Date)
	assert.Equal(t, 1, env.annotations.refreshes)
}

func TestSlider_OutOfRange(t *testing.T) {
	env := newEnv(t, true)

	rec := env.do(t, http.MethodPost, "/api/view/slider", `{"index": 2}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/view/slider", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, 0, env.ctrl.State().Slider.Value)
}

func TestSlider_NotLoaded(t *testing.T) {
	env := newEnv(t, false)
	rec := env.do(t, http.MethodPost, "/api/view/slider", `{"index": 0}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLayerVisibility(t *testing.T) {
	env := newEnv(t, true)

	rec := env.do(t, http.MethodPost, "/api/view/layers", `{"name": "classified", "visible": true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[view.ViewState](t, rec).Vectors[0].Visible)

	rec = env.do(t, http.MethodPost, "/api/view/layers", `{"name": "rivers", "visible": true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- session ---

func TestLoginLogout(t *testing.T) {
	env := newEnv(t, true)

	rec := env.do(t, http.MethodPost, "/api/session/login", `{"email": "user@example.com", "password": "secret"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.Session{LoggedIn: true, UserID: 7}, decode[domain.Session](t, rec))

	rec = env.do(t, http.MethodGet, "/api/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"logged_in": true, "user_id": 7}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/session/logout", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[domain.Session](t, rec).LoggedIn)
}

func TestLogin_Rejected(t *testing.T) {
	env := newEnv(t, true)
	rec := env.do(t, http.MethodPost, "/api/session/login", `{"email": "user@example.com", "password": "nope"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid credentials")
}

func TestLogin_BackendDown(t *testing.T) {
	env := newEnv(t, true)
	env.annotations.loginErr = errors.New("connection refused")
	rec := env.do(t, http.MethodPost, "/api/session/login", `{"email": "a", "password": "secret"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

// --- annotations ---

func TestDraftLifecycle(t *testing.T) {
	env := newEnv(t, true)

	rec := env.do(t, http.MethodPost, "/api/annotations/drafts", squareGeoJSON)
	require.Equal(t, http.StatusCreated, rec.Code)
	draft := decode[struct {
		ID     uuid.UUID `json:"id"`
		Anchor []float64 `json:"anchor"`
	}](t, rec)
	assert.InDelta(t, 2.0, draft.Anchor[0], 1e-9)

	rec = env.do(t, http.MethodPost, "/api/annotations/drafts/"+draft.ID.String()+"/save", `{"waste": true}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	saved := decode[map[string]any](t, rec)
	assert.Equal(t, "POLYGON((0 0,4 0,4 4,0 4,0 0))", saved["geom"])
	assert.Equal(t, true, saved["waste"])

	rec = env.do(t, http.MethodPost, "/api/annotations/drafts/"+draft.ID.String()+"/save", `{"waste": true}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDraftCancel(t *testing.T) {
	env := newEnv(t, true)

	rec := env.do(t, http.MethodPost, "/api/annotations/drafts", squareGeoJSON)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[struct {
		ID uuid.UUID `json:"id"`
	}](t, rec).ID

	rec = env.do(t, http.MethodDelete, "/api/annotations/drafts/"+id.String(), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/annotations/drafts/"+id.String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/annotations/drafts/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBeginDraft_Invalid(t *testing.T) {
	env := newEnv(t, true)

	rec := env.do(t, http.MethodPost, "/api/annotations/drafts", `{"geometry": {"type": "Point", "coordinates": [1, 2]}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/annotations/drafts", `{"geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,1]]]}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/annotations/drafts", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSaveDraft_ErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{annotation.ErrNotLoggedIn, http.StatusUnauthorized},
		{annotation.ErrNoImage, http.StatusConflict},
		{annotation.ErrDraftSaving, http.StatusConflict},
		{errors.New("create annotation: status 500"), http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			env := newEnv(t, true)
			env.annotations.saveErr = tc.err
			rec := env.do(t, http.MethodPost, "/api/annotations/drafts/"+uuid.NewString()+"/save", `{"waste": false}`)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestOverlay(t *testing.T) {
	env := newEnv(t, true)
	rec := env.do(t, http.MethodGet, "/api/annotations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[annotation.Overlay](t, rec).Visible)
}

// --- forecast ---

func TestForecast(t *testing.T) {
	env := newEnv(t, true)

	rec := env.do(t, http.MethodGet, "/api/forecast?lat=48.25&lon=24.2&disable_filtering=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"lat": 48.25, "lon": 24.2, "filtered": false}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/forecast?lat=48.25&lon=24.2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"lat": 48.25, "lon": 24.2, "filtered": true}`, rec.Body.String())
}

func TestForecast_BadQuery(t *testing.T) {
	env := newEnv(t, true)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/forecast?lat=x&lon=1", "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/forecast?lat=1&lon=1&disable_filtering=maybe", "").Code)
}

func TestForecast_BackendError(t *testing.T) {
	env := newEnv(t, true)
	env.forecast.err = errors.New("status 503")
	rec := env.do(t, http.MethodGet, "/api/forecast?lat=1&lon=1", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	env := newEnv(t, true)
	rec := env.do(t, http.MethodGet, "/api/view/slider", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
