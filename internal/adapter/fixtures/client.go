// Package fixtures fetches the two static catalogs the viewer is driven by:
// the satellite image catalog and the prediction layer catalog.
package fixtures

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/floodview/internal/domain"
	"github.com/couchcryptid/floodview/internal/observability"
)

// Fixture file names, relative to the data base URL.
const (
	ImagesFile = "satellite_images.json"
	AOIsFile   = "geojson_files.json"
)

// Client loads catalogs over HTTP from a base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a fixture client. baseURL must end with a slash.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		metrics:    metrics,
		logger:     logger,
	}
}

// FetchCatalogs fetches the image catalog, then the AOI catalog, and returns
// both with every reference prefixed by the base URL.
func (c *Client) FetchCatalogs(ctx context.Context) (domain.Catalogs, error) {
	var images domain.ImageCatalog
	err := c.fetch(ctx, ImagesFile, "images", func(r io.Reader) (err error) {
		images, err = domain.DecodeImageCatalog(r)
		return err
	})
	if err != nil {
		return domain.Catalogs{}, err
	}

	var aois domain.AOICatalog
	err = c.fetch(ctx, AOIsFile, "aois", func(r io.Reader) (err error) {
		aois, err = domain.DecodeAOICatalog(r)
		return err
	})
	if err != nil {
		return domain.Catalogs{}, err
	}

	c.logger.Info("catalogs fetched", "models", len(aois), "image_aois", len(images))
	return domain.Catalogs{
		Images: images.WithBaseURL(c.baseURL),
		AOIs:   aois.WithBaseURL(c.baseURL),
	}, nil
}

// FetchRaw returns the undecoded contents of a fixture file.
func (c *Client) FetchRaw(ctx context.Context, file string) ([]byte, error) {
	var data []byte
	err := c.fetch(ctx, file, catalogLabel(file), func(r io.Reader) (err error) {
		data, err = io.ReadAll(r)
		return err
	})
	return data, err
}

func catalogLabel(file string) string {
	switch file {
	case ImagesFile:
		return "images"
	case AOIsFile:
		return "aois"
	default:
		return "other"
	}
}

func (c *Client) fetch(ctx context.Context, file, catalog string, decode func(io.Reader) error) error {
	err := c.doRequest(ctx, c.baseURL+file, decode)
	if err != nil {
		c.metrics.CatalogLoads.WithLabelValues(catalog, "error").Inc()
		return fmt.Errorf("fetch %s: %w", file, err)
	}
	c.metrics.CatalogLoads.WithLabelValues(catalog, "success").Inc()
	return nil
}

func (c *Client) doRequest(ctx context.Context, u string, decode func(io.Reader) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}
	return decode(resp.Body)
}

// LoadDir reads both catalogs from a local directory. References are left
// relative.
func LoadDir(dir string) (domain.Catalogs, error) {
	images, err := loadFile(filepath.Join(dir, ImagesFile), domain.DecodeImageCatalog)
	if err != nil {
		return domain.Catalogs{}, err
	}
	aois, err := loadFile(filepath.Join(dir, AOIsFile), domain.DecodeAOICatalog)
	if err != nil {
		return domain.Catalogs{}, err
	}
	return domain.Catalogs{Images: images, AOIs: aois}, nil
}

func loadFile[T any](path string, decode func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, err
	}
	defer f.Close()

	v, err := decode(f)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return v, nil
}
