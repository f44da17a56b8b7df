// Package domain models the flood-map viewer: catalogs of dated imagery and
// prediction layers per area of interest, the styling of those layers, and
// user annotations drawn on top of them.
//
// # Catalogs
//
// Two static JSON fixtures describe what can be displayed. Both are fetched
// once at startup from the data host and never change afterwards, except that
// every relative path is prefixed with the data base URL.
//
// satellite_images.json, keyed AOI → date:
//
//	{"Raho": {"2021-07-09": {"src": "raho/2021-07-09.tif", "min": 0, "max": 3000}}}
//
// geojson_files.json, keyed model → AOI → date, with exactly four references
// per date in a fixed order:
//
//	{"modelA": {"Raho": {"2021-07-09": [classified, heatmap_high, heatmap_low, heatmap_medium]}}}
//
// Dates are ISO 8601 calendar dates ("2006-01-02"). The date keys of one
// (model, AOI) pair are ordered ascending; a slider index is an ordinal into
// that ordering.
//
// # Layers
//
// The four references of a date feed four vector layers, identified by
// [LayerKind]. Each kind has a fixed [Style]; only MultiPolygon features are
// styled, anything else is left unstyled (and therefore invisible).
//
// The satellite image of a date feeds one raster layer rendered from bands
// 3, 2, 1 with nodata 0, stretched between the catalog's min and max.
//
// # Areas of interest
//
// Each AOI has a predefined extent in Web Mercator (EPSG:3857) used to frame
// the view when the AOI is selected. See [ExtentFor].
//
// # Annotations
//
// A user draws a polygon over the current satellite image and classifies it
// (waste or not). The polygon is sent to the backend as WKT together with the
// satellite image id and the user id. See [Annotation].
package domain
