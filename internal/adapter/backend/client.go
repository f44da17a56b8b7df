// Package backend is the client of the annotation backend: session login,
// satellite image lookup, annotation storage and the flood forecast.
//
// The backend identifies the user by a session cookie, so a Client keeps a
// cookie jar and represents a single viewer session.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"time"

	"github.com/paulmach/orb/geojson"
	"golang.org/x/net/publicsuffix"

	"github.com/couchcryptid/floodview/internal/domain"
	"github.com/couchcryptid/floodview/internal/observability"
)

// Backend response messages signalling success.
const (
	loggedInMessage  = "Logged in successfully"
	loggedOutMessage = "Logged out successfully"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Endpoint string
	Code     int
	Body     []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend %s: status %d: %s", e.Endpoint, e.Code, e.Body)
}

// annotationRequest is the body of a create-annotation request. Geom is WKT.
type annotationRequest struct {
	SatelliteImageID int64  `json:"satellite_image_id"`
	UserID           int64  `json:"user_id"`
	Geom             string `json:"geom"`
	Waste            bool   `json:"waste"`
}

// Client talks to the backend API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a backend client with its own session cookie jar.
// baseURL must end with a slash.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) (*Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
		metrics: metrics,
		logger:  logger,
	}, nil
}

// Login starts a session. Rejected credentials yield domain.ErrLoginFailed
// with the backend's reason.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var resp struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	err := c.do(ctx, "login", http.MethodPost, "login",
		map[string]string{"email": email, "password": password}, &resp)

	var se *StatusError
	if errors.As(err, &se) {
		// Rejections come back as 4xx with an error message in the body.
		_ = json.Unmarshal(se.Body, &resp)
		if resp.Error != "" {
			return fmt.Errorf("%w: %s", domain.ErrLoginFailed, resp.Error)
		}
		return fmt.Errorf("%w: %w", domain.ErrLoginFailed, err)
	}
	if err != nil {
		return err
	}
	if resp.Message != loggedInMessage {
		return fmt.Errorf("%w: %s", domain.ErrLoginFailed, resp.Error)
	}
	return nil
}

// Logout ends the session.
func (c *Client) Logout(ctx context.Context) error {
	var resp struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, "logout", http.MethodPost, "logout", nil, &resp); err != nil {
		return err
	}
	if resp.Message != loggedOutMessage {
		return fmt.Errorf("logout: unexpected response %q", resp.Message)
	}
	return nil
}

// CheckLogin reports whether the session is logged in and as whom.
func (c *Client) CheckLogin(ctx context.Context) (domain.Session, error) {
	var status domain.Session
	err := c.do(ctx, "check_login", http.MethodGet, "check-login", nil, &status)
	return status, err
}

// SatelliteImageID resolves a satellite image file name to its backend id.
func (c *Client) SatelliteImageID(ctx context.Context, filename string) (int64, error) {
	var resp struct {
		SatelliteImageID int64 `json:"satellite_image_id"`
	}
	err := c.do(ctx, "satellite_image_id", http.MethodPost, "get-satellite-image-id",
		map[string]string{"filename": filename}, &resp)
	return resp.SatelliteImageID, err
}

// AnnotationsFor returns the current user's annotations on a satellite
// image. The backend answers with a list whose items are GeoJSON features or
// feature collections; both are flattened into one feature list.
func (c *Client) AnnotationsFor(ctx context.Context, satelliteImageID int64) ([]*geojson.Feature, error) {
	var items []json.RawMessage
	err := c.do(ctx, "annotations_for", http.MethodPost,
		"get-annotations-for-current-user-and-current-satellite-image",
		map[string]int64{"satellite_image_id": satelliteImageID}, &items)
	if err != nil {
		return nil, err
	}

	features := make([]*geojson.Feature, 0, len(items))
	for i, raw := range items {
		var probe struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil {
			return nil, fmt.Errorf("annotation %d: %w", i, err)
		}
		if probe.Type == "FeatureCollection" {
			fc, err := geojson.UnmarshalFeatureCollection(raw)
			if err != nil {
				return nil, fmt.Errorf("annotation %d: %w", i, err)
			}
			features = append(features, fc.Features...)
			continue
		}
		f, err := geojson.UnmarshalFeature(raw)
		if err != nil {
			return nil, fmt.Errorf("annotation %d: %w", i, err)
		}
		features = append(features, f)
	}
	return features, nil
}

// CreateAnnotation stores an annotation and returns its id, or 0 when the
// backend does not report one.
func (c *Client) CreateAnnotation(ctx context.Context, a domain.Annotation) (int64, error) {
	body := annotationRequest{
		SatelliteImageID: a.SatelliteImageID,
		UserID:           a.UserID,
		Geom:             a.WKT(),
		Waste:            a.Waste,
	}
	var resp struct {
		ID int64 `json:"id"`
	}
	err := c.do(ctx, "create_annotation", http.MethodPost, "annotations", body, &resp)
	return resp.ID, err
}

// FloodForecast returns the backend's flood forecast for a location as
// opaque JSON.
func (c *Client) FloodForecast(ctx context.Context, lat, lon float64, disableFiltering bool) (json.RawMessage, error) {
	q := url.Values{
		"lat":               {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":               {strconv.FormatFloat(lon, 'f', -1, 64)},
		"disable_filtering": {strconv.FormatBool(disableFiltering)},
	}
	var raw json.RawMessage
	err := c.do(ctx, "flood_forecast", http.MethodGet, "flood-forecast?"+q.Encode(), nil, &raw)
	return raw, err
}

// do sends a JSON request and decodes a JSON response into out. endpoint
// labels the metrics.
func (c *Client) do(ctx context.Context, endpoint, method, path string, body, out any) error {
	start := time.Now()
	err := c.roundTrip(ctx, endpoint, method, path, body, out)
	c.metrics.BackendDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	outcome := "success"
	if err != nil {
		outcome = "error"
		c.logger.Debug("backend request failed", "endpoint", endpoint, "error", err)
	}
	c.metrics.BackendRequests.WithLabelValues(endpoint, outcome).Inc()
	return err
}

func (c *Client) roundTrip(ctx context.Context, endpoint, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", endpoint, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend %s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Endpoint: endpoint, Code: resp.StatusCode, Body: b}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}
