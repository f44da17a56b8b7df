package view

// Base layer providers.
const (
	ProviderNone = "none"
	ProviderOSM  = "osm"
	ProviderBing = "bing"
	ProviderWMS  = "wms"
)

// BaseLayer is a background map. Exactly one base layer is shown at a time.
type BaseLayer struct {
	Title    string `json:"title"`
	Provider string `json:"provider"`
	Imagery  string `json:"imagery,omitempty"` // Bing imagery set
	URL      string `json:"url,omitempty"`
	Key      string `json:"-"`
}

// LayerTitle implements Layer.
func (b *BaseLayer) LayerTitle() string { return b.Title }

// BaseMaps builds the "Base maps" group. Bing layers need a key and the WMS
// layer a URL; either is omitted when unset.
func BaseMaps(bingKey, wmsURL string) *LayerGroup {
	layers := []Layer{
		&BaseLayer{Title: "None", Provider: ProviderNone},
		&BaseLayer{Title: "OpenStreetMap", Provider: ProviderOSM},
	}
	if bingKey != "" {
		layers = append(layers,
			&BaseLayer{Title: "Bing Roads", Provider: ProviderBing, Imagery: "Road", Key: bingKey},
			&BaseLayer{Title: "Bing Aerial", Provider: ProviderBing, Imagery: "Aerial", Key: bingKey},
			&BaseLayer{Title: "Bing Hybrid", Provider: ProviderBing, Imagery: "AerialWithLabels", Key: bingKey},
		)
	}
	if wmsURL != "" {
		layers = append(layers, &BaseLayer{Title: "WMS", Provider: ProviderWMS, URL: wmsURL})
	}
	return &LayerGroup{Title: "Base maps", Layers: layers}
}
