package view

import (
	"slices"

	"github.com/couchcryptid/floodview/internal/domain"
)

// Map is the rendering surface the controller drives. Implementations wrap a
// concrete mapping toolkit; Scene is the in-memory one.
type Map interface {
	AddLayer(g *LayerGroup)
	RemoveLayer(g *LayerGroup)
	Fit(e domain.Extent)
}

// Scene records the layer groups attached to it and the last fitted extent.
// It is not safe for concurrent use; the controller serialises access.
type Scene struct {
	groups []*LayerGroup
	extent *domain.Extent
}

// NewScene returns an empty scene.
func NewScene() *Scene {
	return &Scene{}
}

// AddLayer appends a group on top of the others.
func (s *Scene) AddLayer(g *LayerGroup) {
	s.groups = append(s.groups, g)
}

// RemoveLayer detaches a group. Removing a group that is not attached is a
// no-op.
func (s *Scene) RemoveLayer(g *LayerGroup) {
	s.groups = slices.DeleteFunc(s.groups, func(x *LayerGroup) bool { return x == g })
}

// Fit frames the view on an extent.
func (s *Scene) Fit(e domain.Extent) {
	s.extent = &e
}

// Groups returns the attached groups, bottom first.
func (s *Scene) Groups() []*LayerGroup {
	return slices.Clone(s.groups)
}

// Extent returns the last fitted extent, if any.
func (s *Scene) Extent() (domain.Extent, bool) {
	if s.extent == nil {
		return domain.Extent{}, false
	}
	return *s.extent, true
}
