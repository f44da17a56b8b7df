package domain

import (
	"github.com/paulmach/orb"
)

// LayerKind identifies one of the four vector layers. The numeric value is
// the position of the layer's reference in the catalog.
type LayerKind int

const (
	Classified LayerKind = iota
	HeatmapHigh
	HeatmapLow
	HeatmapMedium
)

// LayerKindCount is the number of vector layers per date.
const LayerKindCount = 4

// LayerKinds lists the kinds in catalog order.
var LayerKinds = [LayerKindCount]LayerKind{Classified, HeatmapHigh, HeatmapLow, HeatmapMedium}

func (k LayerKind) String() string {
	switch k {
	case Classified:
		return "classified"
	case HeatmapHigh:
		return "heatmap_high"
	case HeatmapLow:
		return "heatmap_low"
	case HeatmapMedium:
		return "heatmap_medium"
	default:
		return "unknown"
	}
}

// Title is the human-readable layer name shown in the layer switcher.
func (k LayerKind) Title() string {
	switch k {
	case Classified:
		return "Classified"
	case HeatmapHigh:
		return "Heatmap High"
	case HeatmapLow:
		return "Heatmap Low"
	case HeatmapMedium:
		return "Heatmap Medium"
	default:
		return ""
	}
}

// VisibleByDefault reports whether the layer starts switched on. Only the
// high-risk heatmap does.
func (k LayerKind) VisibleByDefault() bool {
	return k == HeatmapHigh
}

// Style describes how polygons of a layer are drawn.
type Style struct {
	Stroke      string  `json:"stroke"`
	StrokeWidth float64 `json:"stroke_width"`
	Fill        string  `json:"fill"`
}

var kindStyles = map[LayerKind]Style{
	Classified:    {Stroke: "rgb(255, 128, 0)", StrokeWidth: 3, Fill: "rgba(255, 128, 0, 0.5)"},
	HeatmapHigh:   {Stroke: "red", StrokeWidth: 3, Fill: "rgba(255, 0, 0, 0.5)"},
	HeatmapMedium: {Stroke: "rgb(255, 255, 0)", StrokeWidth: 3, Fill: "rgba(255, 255, 0, 0.5)"},
	HeatmapLow:    {Stroke: "green", StrokeWidth: 3, Fill: "rgba(0, 255, 0, 0.5)"},
}

// StyleOf returns the style of a layer kind.
func StyleOf(k LayerKind) (Style, bool) {
	s, ok := kindStyles[k]
	return s, ok
}

// StyleFor returns the style for a feature geometry on a layer. Only
// MultiPolygon features are styled.
func StyleFor(k LayerKind, g orb.Geometry) (Style, bool) {
	if _, ok := g.(orb.MultiPolygon); !ok {
		return Style{}, false
	}
	return StyleOf(k)
}

// Raster render parameters shared by every satellite image.
var (
	RasterBands  = [3]int{3, 2, 1}
	RasterNoData = 0.0
)

// RasterTitle is the layer-switcher name of the satellite image layer.
const RasterTitle = "Satellite image"
