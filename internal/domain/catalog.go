package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
)

// ErrMalformedCatalog is returned when a catalog fixture does not have the
// expected shape.
var ErrMalformedCatalog = errors.New("malformed catalog")

// SatelliteImage parametrises the raster render of one AOI on one date.
type SatelliteImage struct {
	Src string  `json:"src"`
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ImageCatalog maps AOI → date → satellite image.
type ImageCatalog map[string]map[string]SatelliteImage

// Lookup returns the image for (aoi, date). Partial fixtures are common, so
// a miss is not an error.
func (c ImageCatalog) Lookup(aoi, date string) (SatelliteImage, bool) {
	byDate, ok := c[aoi]
	if !ok {
		return SatelliteImage{}, false
	}
	img, ok := byDate[date]
	return img, ok
}

// WithBaseURL returns a copy of the catalog with every src prefixed by base.
func (c ImageCatalog) WithBaseURL(base string) ImageCatalog {
	out := make(ImageCatalog, len(c))
	for aoi, byDate := range c {
		dates := make(map[string]SatelliteImage, len(byDate))
		for date, img := range byDate {
			img.Src = base + img.Src
			dates[date] = img
		}
		out[aoi] = dates
	}
	return out
}

// LayerRefs holds the four data-source references of one date, indexed by
// LayerKind.
type LayerRefs [LayerKindCount]string

// UnmarshalJSON rejects arrays that do not hold exactly one reference per
// layer kind.
func (r *LayerRefs) UnmarshalJSON(data []byte) error {
	var refs []string
	if err := json.Unmarshal(data, &refs); err != nil {
		return err
	}
	if len(refs) != LayerKindCount {
		return fmt.Errorf("%w: expected %d layer references, got %d", ErrMalformedCatalog, LayerKindCount, len(refs))
	}
	copy(r[:], refs)
	return nil
}

// Ref returns the reference feeding the given layer kind.
func (r LayerRefs) Ref(kind LayerKind) string {
	return r[kind]
}

// AOICatalog maps model → AOI → date → layer references.
type AOICatalog map[string]map[string]map[string]LayerRefs

// Models returns the model names in sorted order.
func (c AOICatalog) Models() []string {
	return sortedKeys(c)
}

// AOIs returns the AOIs available for a model in sorted order.
func (c AOICatalog) AOIs(model string) []string {
	return sortedKeys(c[model])
}

// Dates returns the ascending date keys of (model, aoi). The second return
// value is false when the pair is not in the catalog.
func (c AOICatalog) Dates(model, aoi string) ([]string, bool) {
	byAOI, ok := c[model]
	if !ok {
		return nil, false
	}
	byDate, ok := byAOI[aoi]
	if !ok {
		return nil, false
	}
	return sortedKeys(byDate), true
}

// Refs returns the layer references of (model, aoi, date).
func (c AOICatalog) Refs(model, aoi, date string) (LayerRefs, bool) {
	refs, ok := c[model][aoi][date]
	return refs, ok
}

// WithBaseURL returns a copy of the catalog with every reference prefixed
// by base.
func (c AOICatalog) WithBaseURL(base string) AOICatalog {
	out := make(AOICatalog, len(c))
	for model, byAOI := range c {
		aois := make(map[string]map[string]LayerRefs, len(byAOI))
		for aoi, byDate := range byAOI {
			dates := make(map[string]LayerRefs, len(byDate))
			for date, refs := range byDate {
				for i := range refs {
					refs[i] = base + refs[i]
				}
				dates[date] = refs
			}
			aois[aoi] = dates
		}
		out[model] = aois
	}
	return out
}

// Catalogs bundles both fixtures once they are loaded and prefixed.
type Catalogs struct {
	Images ImageCatalog
	AOIs   AOICatalog
}

// DecodeImageCatalog parses satellite_images.json.
func DecodeImageCatalog(r io.Reader) (ImageCatalog, error) {
	var c ImageCatalog
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("decode image catalog: %w", err)
	}
	return c, nil
}

// DecodeAOICatalog parses geojson_files.json. Every date must carry exactly
// four layer references and every (model, AOI) at least one date.
func DecodeAOICatalog(r io.Reader) (AOICatalog, error) {
	var c AOICatalog
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("decode aoi catalog: %w", err)
	}
	if len(c) == 0 {
		return nil, fmt.Errorf("%w: no models", ErrMalformedCatalog)
	}
	for model, byAOI := range c {
		for aoi, byDate := range byAOI {
			if len(byDate) == 0 {
				return nil, fmt.Errorf("%w: %s/%s has no dates", ErrMalformedCatalog, model, aoi)
			}
		}
	}
	return c, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
