// Package pipeline runs the startup load: fetch both catalogs, hand them to
// the view controller and select the initial model and AOI.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/floodview/internal/domain"
	"github.com/couchcryptid/floodview/internal/observability"
)

// CatalogFetcher retrieves both catalogs with base URLs applied.
type CatalogFetcher interface {
	FetchCatalogs(ctx context.Context) (domain.Catalogs, error)
}

// Viewer is the part of the view controller the loader drives.
type Viewer interface {
	Load(catalogs domain.Catalogs)
	SetAOI(aoi, model string) error
}

// Defaults is the configured initial selection. Empty fields fall back to
// the first entry of the catalog.
type Defaults struct {
	Model string
	AOI   string
}

// Pipeline orchestrates the fetch-load-select startup sequence.
type Pipeline struct {
	fetcher  CatalogFetcher
	viewer   Viewer
	defaults Defaults
	logger   *slog.Logger
	metrics  *observability.Metrics
	onReady  func(ctx context.Context)
	ready    atomic.Bool
}

// New creates a Pipeline with the given stages and observability.
func New(f CatalogFetcher, v Viewer, defaults Defaults, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		fetcher:  f,
		viewer:   v,
		defaults: defaults,
		logger:   logger,
		metrics:  metrics,
	}
}

// OnReady registers fn to run once after the initial view is shown.
func (p *Pipeline) OnReady(fn func(ctx context.Context)) {
	p.onReady = fn
}

// Ready reports whether the initial view has been shown.
func (p *Pipeline) Ready() bool {
	return p.ready.Load()
}

// CheckReadiness returns nil once the catalogs are loaded and the initial
// view is shown, or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("catalogs have not been loaded yet")
	}
	return nil
}

// Run fetches the catalogs, retrying until success or until the context is
// cancelled, then initialises the view. It returns nil on cancellation.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("catalog load started")

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	var catalogs domain.Catalogs
	for {
		var err error
		catalogs, err = p.fetcher.FetchCatalogs(ctx)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			p.logger.Info("catalog load stopping", "reason", ctx.Err())
			return nil
		}
		p.logger.Error("fetch catalogs failed", "error", err, "retry_in", backoff)
		if !retry.SleepWithContext(ctx, backoff) {
			return nil
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}

	p.viewer.Load(catalogs)
	if err := p.selectInitial(catalogs.AOIs); err != nil {
		return err
	}

	p.metrics.CatalogsLoaded.Set(1)
	p.ready.Store(true)
	p.logger.Info("catalogs loaded", "models", len(catalogs.AOIs))

	if p.onReady != nil {
		p.onReady(ctx)
	}
	return nil
}

// selectInitial shows the configured model and AOI. An unknown AOI falls back
// to the first AOI of the configured model; an unknown model falls back to
// the first catalog entry.
func (p *Pipeline) selectInitial(cat domain.AOICatalog) error {
	model, aoi := p.defaults.Model, p.defaults.AOI
	if model != "" {
		aois := cat.AOIs(model)
		if aoi != "" {
			err := p.viewer.SetAOI(aoi, model)
			if err == nil {
				return nil
			}
			p.logger.Warn("configured default AOI unavailable",
				"model", model, "aoi", aoi, "error", err)
		}
		if len(aois) > 0 {
			return p.viewer.SetAOI(aois[0], model)
		}
		p.logger.Warn("configured default model unavailable, using first catalog entry", "model", model)
	}

	for _, model := range cat.Models() {
		if aois := cat.AOIs(model); len(aois) > 0 {
			return p.viewer.SetAOI(aois[0], model)
		}
	}
	return errors.New("catalog has no areas of interest")
}
