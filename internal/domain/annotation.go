package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/planar"
)

// ErrInvalidPolygon is returned for drawn geometry that cannot be persisted.
var ErrInvalidPolygon = errors.New("invalid polygon")

// Annotation is a classified polygon drawn over a satellite image.
type Annotation struct {
	ID               int64
	SatelliteImageID int64
	UserID           int64
	Geometry         orb.Polygon
	Waste            bool
	CreatedAt        time.Time
}

// WKT encodes the annotation geometry the way the backend stores it.
func (a Annotation) WKT() string {
	return wkt.MarshalString(a.Geometry)
}

// Draft is a drawn polygon waiting for the user to save or cancel it.
type Draft struct {
	ID        uuid.UUID
	Geometry  orb.Polygon
	Anchor    orb.Point // where the save/cancel popup is shown
	CreatedAt time.Time
}

// NewDraft validates a drawn polygon and wraps it in a draft.
func NewDraft(p orb.Polygon) (Draft, error) {
	if err := ValidatePolygon(p); err != nil {
		return Draft{}, err
	}
	anchor, _ := planar.CentroidArea(p)
	return Draft{
		ID:        uuid.New(),
		Geometry:  p,
		Anchor:    anchor,
		CreatedAt: clock.Now(),
	}, nil
}

// ValidatePolygon requires a closed outer ring of at least four points.
func ValidatePolygon(p orb.Polygon) error {
	if len(p) == 0 {
		return fmt.Errorf("%w: no rings", ErrInvalidPolygon)
	}
	for i, ring := range p {
		if len(ring) < 4 {
			return fmt.Errorf("%w: ring %d has %d points", ErrInvalidPolygon, i, len(ring))
		}
		if !ring.Closed() {
			return fmt.Errorf("%w: ring %d is not closed", ErrInvalidPolygon, i)
		}
	}
	return nil
}

// ImageFilename returns the last path segment of a raster source URL, which
// is how the backend identifies satellite images.
func ImageFilename(src string) string {
	return src[strings.LastIndex(src, "/")+1:]
}
