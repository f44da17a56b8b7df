// Package view keeps a map's data layers, visible date and slider position
// consistent with the user's selection of model, AOI and date.
//
// The controller owns one raster layer and four vector layers for the whole
// session. A selection change never recreates them: it swaps their sources,
// wraps them in a fresh "Data layers" group and replaces the previous group
// on the map, so exactly one data group is attached at any time.
//
// All operations are serialised by the controller's mutex. Each refresh bumps
// a generation counter that asynchronous consumers compare against to drop
// results computed for a view that is no longer displayed.
package view

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/couchcryptid/floodview/internal/domain"
	"github.com/couchcryptid/floodview/internal/observability"
)

// DataGroupTitle is the title of the swapped data layer group.
const DataGroupTitle = "Data layers"

var (
	// ErrNotLoaded is returned before the catalogs are loaded.
	ErrNotLoaded = errors.New("catalogs not loaded")
	// ErrUnknownSelection is returned for a model/AOI pair absent from the catalog.
	ErrUnknownSelection = errors.New("unknown model or aoi")
	// ErrIndexOutOfRange is returned for a slider index outside [0, numDates-1].
	ErrIndexOutOfRange = errors.New("date index out of range")
	// ErrUnknownLayer is returned when toggling a layer that does not exist.
	ErrUnknownLayer = errors.New("unknown layer")
)

// Commands is the dispatch surface a UI binds its events to.
type Commands interface {
	OnSelectionChanged(aoi, model string) error
	OnSliderMoved(index int) error
}

// Selection is the current model, AOI and slider index.
type Selection struct {
	Model string `json:"model"`
	AOI   string `json:"aoi"`
	Index int    `json:"index"`
}

// Controller is the AOI view controller.
type Controller struct {
	mu      sync.Mutex
	m       Map
	logger  *slog.Logger
	metrics *observability.Metrics

	catalogs *domain.Catalogs

	base    *LayerGroup
	raster  *RasterLayer
	vectors [domain.LayerKindCount]*VectorLayer
	sources [domain.LayerKindCount]*VectorSource
	group   *LayerGroup

	sel        Selection
	dates      []string
	fitted     *domain.Extent
	generation uint64
}

var _ Commands = (*Controller)(nil)

// New creates a controller drawing on m. The base map group is attached
// immediately and never swapped.
func New(m Map, base *LayerGroup, logger *slog.Logger, metrics *observability.Metrics) *Controller {
	c := &Controller{
		m:       m,
		logger:  logger,
		metrics: metrics,
		base:    base,
		raster:  &RasterLayer{Title: domain.RasterTitle},
	}
	for _, k := range domain.LayerKinds {
		c.vectors[k] = newVectorLayer(k)
		c.sources[k] = &VectorSource{}
	}
	if base != nil {
		m.AddLayer(base)
	}
	return c
}

// Load installs the catalogs. URLs must already carry the data base URL.
func (c *Controller) Load(catalogs domain.Catalogs) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.catalogs = &catalogs
}

// Loaded reports whether catalogs have been installed.
func (c *Controller) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.catalogs != nil
}

// OnSelectionChanged implements Commands. Changing either the AOI or the
// model starts again from the first date.
func (c *Controller) OnSelectionChanged(aoi, model string) error {
	return c.SetAOI(aoi, model)
}

// OnSliderMoved implements Commands.
func (c *Controller) OnSliderMoved(index int) error {
	return c.SetDateIndex(index)
}

// SetAOI selects a model and AOI, resets the slider to the first date,
// refreshes the layers and frames the view on the AOI.
func (c *Controller) SetAOI(aoi, model string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.catalogs == nil {
		return ErrNotLoaded
	}
	dates, ok := c.catalogs.AOIs.Dates(model, aoi)
	if !ok || len(dates) == 0 {
		return fmt.Errorf("%w: %s/%s", ErrUnknownSelection, model, aoi)
	}

	c.sel = Selection{Model: model, AOI: aoi, Index: 0}
	c.dates = dates
	c.refreshLocked()

	if extent, ok := domain.ExtentFor(aoi); ok {
		c.m.Fit(extent)
		c.fitted = &extent
	}

	c.metrics.SelectionChanges.Inc()
	c.logger.Info("aoi selected", "model", model, "aoi", aoi, "dates", len(dates))
	return nil
}

// SetDateIndex moves the slider to the index-th date of the current
// selection and refreshes the layers.
func (c *Controller) SetDateIndex(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.catalogs == nil || len(c.dates) == 0 {
		return ErrNotLoaded
	}
	if index < 0 || index > len(c.dates)-1 {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrIndexOutOfRange, index, len(c.dates)-1)
	}

	c.sel.Index = index
	c.refreshLocked()
	c.logger.Debug("date selected", "date", c.dates[index], "index", index)
	return nil
}

// RefreshLayers re-renders the layers for the current selection.
func (c *Controller) RefreshLayers() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.catalogs == nil || len(c.dates) == 0 {
		return ErrNotLoaded
	}
	c.refreshLocked()
	return nil
}

func (c *Controller) refreshLocked() {
	date := c.dates[c.sel.Index]
	refs, _ := c.catalogs.AOIs.Refs(c.sel.Model, c.sel.AOI, date)

	// Detach first so no feature of the previous selection survives the swap.
	for _, s := range c.sources {
		s.Clear()
	}
	if c.group != nil {
		c.m.RemoveLayer(c.group)
	}

	if img, ok := c.catalogs.Images.Lookup(c.sel.AOI, date); ok {
		c.raster.SetSource(newRasterSource(img))
	} else {
		c.raster.SetSource(nil)
		c.metrics.RasterSourcesMissing.Inc()
		c.logger.Warn("no satellite image for date", "aoi", c.sel.AOI, "date", date)
	}

	layers := make([]Layer, 0, 1+domain.LayerKindCount)
	layers = append(layers, c.raster)
	for _, k := range domain.LayerKinds {
		s := c.sources[k]
		s.SetURL(refs.Ref(k))
		s.Refresh()
		c.vectors[k].SetSource(s)
		layers = append(layers, c.vectors[k])
	}

	c.group = &LayerGroup{Title: DataGroupTitle, Layers: layers}
	c.m.AddLayer(c.group)

	c.generation++
	c.metrics.ViewRefreshes.Inc()
}

// SetLayerVisible switches a data layer on or off. name is a layer kind
// ("heatmap_high", ...) or "satellite_image".
func (c *Controller) SetLayerVisible(name string, visible bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if name == rasterLayerName {
		c.raster.Visible = visible
		return nil
	}
	for _, l := range c.vectors {
		if l.Kind.String() == name {
			l.Visible = visible
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownLayer, name)
}

// Generation identifies the currently displayed view. It changes on every
// refresh.
func (c *Controller) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// CurrentImage returns the satellite image source of the displayed view and
// the view's generation. ok is false when no image is shown.
func (c *Controller) CurrentImage() (src string, generation uint64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.raster.Source()
	if s == nil {
		return "", c.generation, false
	}
	return s.URL, c.generation, true
}

// Catalog returns the loaded AOI catalog.
func (c *Controller) Catalog() (domain.AOICatalog, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.catalogs == nil {
		return nil, ErrNotLoaded
	}
	return c.catalogs.AOIs, nil
}
