package view

import "github.com/couchcryptid/floodview/internal/domain"

// Layer is anything that can be bundled in a LayerGroup.
type Layer interface {
	LayerTitle() string
}

// LayerGroup is a named bundle of layers added to and removed from a map as
// a unit.
type LayerGroup struct {
	Title  string
	Layers []Layer
}

// LayerTitle implements Layer.
func (g *LayerGroup) LayerTitle() string { return g.Title }

// RasterSource is the GeoTIFF source of the satellite image layer.
type RasterSource struct {
	URL    string  `json:"url"`
	Bands  [3]int  `json:"bands"`
	NoData float64 `json:"nodata"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

func newRasterSource(img domain.SatelliteImage) *RasterSource {
	return &RasterSource{
		URL:    img.Src,
		Bands:  domain.RasterBands,
		NoData: domain.RasterNoData,
		Min:    img.Min,
		Max:    img.Max,
	}
}

// RasterLayer renders the satellite image of the selected date.
type RasterLayer struct {
	Title   string
	Visible bool
	source  *RasterSource
}

// LayerTitle implements Layer.
func (l *RasterLayer) LayerTitle() string { return l.Title }

// SetSource replaces the layer's source; nil leaves the layer empty.
func (l *RasterLayer) SetSource(s *RasterSource) { l.source = s }

// Source returns the current source, or nil.
func (l *RasterLayer) Source() *RasterSource { return l.source }

// VectorSource loads GeoJSON features from a URL. The same source instance is
// reused across selections; only its URL changes.
type VectorSource struct {
	url      string
	revision int
	cleared  bool
}

// SetURL points the source at a new GeoJSON document.
func (s *VectorSource) SetURL(u string) { s.url = u }

// URL returns the document the source loads from.
func (s *VectorSource) URL() string { return s.url }

// Clear drops the loaded features.
func (s *VectorSource) Clear() { s.cleared = true }

// Refresh reloads the features from the current URL.
func (s *VectorSource) Refresh() {
	s.cleared = false
	s.revision++
}

// Revision counts reloads; renderers refetch when it changes.
func (s *VectorSource) Revision() int { return s.revision }

// Cleared reports whether the features were dropped and not reloaded since.
func (s *VectorSource) Cleared() bool { return s.cleared }

// VectorLayer renders one prediction layer.
type VectorLayer struct {
	Kind    domain.LayerKind
	Visible bool
	source  *VectorSource
}

func newVectorLayer(kind domain.LayerKind) *VectorLayer {
	return &VectorLayer{Kind: kind, Visible: kind.VisibleByDefault()}
}

// LayerTitle implements Layer.
func (l *VectorLayer) LayerTitle() string { return l.Kind.Title() }

// SetSource attaches a source to the layer.
func (l *VectorLayer) SetSource(s *VectorSource) { l.source = s }

// Source returns the attached source, or nil.
func (l *VectorLayer) Source() *VectorSource { return l.source }
