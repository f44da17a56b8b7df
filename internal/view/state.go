package view

import (
	"github.com/couchcryptid/floodview/internal/domain"
)

const rasterLayerName = "satellite_image"

// Slider describes the date slider's bounds and position.
type Slider struct {
	Min   int `json:"min"`
	Max   int `json:"max"`
	Value int `json:"value"`
}

// RasterState is the satellite image layer as displayed.
type RasterState struct {
	Name    string        `json:"name"`
	Title   string        `json:"title"`
	Visible bool          `json:"visible"`
	Source  *RasterSource `json:"source"`
}

// VectorState is one prediction layer as displayed.
type VectorState struct {
	Name     string       `json:"name"`
	Title    string       `json:"title"`
	Visible  bool         `json:"visible"`
	URL      string       `json:"url"`
	Revision int          `json:"revision"`
	Style    domain.Style `json:"style"`
}

// ViewState is an immutable snapshot of everything the map shows.
type ViewState struct {
	Loaded     bool           `json:"loaded"`
	Selection  Selection      `json:"selection"`
	Slider     Slider         `json:"slider"`
	Date       string         `json:"date,omitempty"`
	DateLabel  string         `json:"date_label,omitempty"`
	BaseLayers []BaseLayer    `json:"base_layers"`
	Raster     *RasterState   `json:"raster,omitempty"`
	Vectors    []VectorState  `json:"vectors,omitempty"`
	Extent     *domain.Extent `json:"extent,omitempty"`
	Generation uint64         `json:"generation"`
}

// State returns a snapshot of the view.
func (c *Controller) State() ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := ViewState{
		Loaded:     c.catalogs != nil,
		Selection:  c.sel,
		Generation: c.generation,
	}
	if c.base != nil {
		for _, l := range c.base.Layers {
			if b, ok := l.(*BaseLayer); ok {
				st.BaseLayers = append(st.BaseLayers, *b)
			}
		}
	}
	if c.fitted != nil {
		e := *c.fitted
		st.Extent = &e
	}
	if len(c.dates) == 0 {
		return st
	}

	st.Slider = Slider{Min: 0, Max: len(c.dates) - 1, Value: c.sel.Index}
	st.Date = c.dates[c.sel.Index]
	st.DateLabel = domain.FormatDateLabel(st.Date)

	st.Raster = &RasterState{
		Name:    rasterLayerName,
		Title:   c.raster.Title,
		Visible: c.raster.Visible,
	}
	if s := c.raster.Source(); s != nil {
		cp := *s
		st.Raster.Source = &cp
	}

	for _, l := range c.vectors {
		style, _ := domain.StyleOf(l.Kind)
		vs := VectorState{
			Name:    l.Kind.String(),
			Title:   l.LayerTitle(),
			Visible: l.Visible,
			Style:   style,
		}
		if s := l.Source(); s != nil {
			vs.URL = s.URL()
			vs.Revision = s.Revision()
		}
		st.Vectors = append(st.Vectors, vs)
	}
	return st
}
