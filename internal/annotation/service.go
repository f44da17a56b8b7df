// Package annotation runs the annotation flow on top of the view: session
// login, drawing drafts over the current satellite image, saving them to the
// backend and showing the user's existing annotations as an overlay.
package annotation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/floodview/internal/domain"
	"github.com/couchcryptid/floodview/internal/observability"
)

var (
	// ErrDraftNotFound is returned for an unknown or already settled draft.
	ErrDraftNotFound = errors.New("draft not found")
	// ErrNotLoggedIn is returned when saving without a session.
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrNoImage is returned when saving while no satellite image is shown.
	ErrNoImage = errors.New("no satellite image displayed")
	// ErrDraftSaving is returned for a draft whose save is still in flight.
	ErrDraftSaving = errors.New("draft is being saved")
)

// Backend is the annotation backend.
type Backend interface {
	Login(ctx context.Context, email, password string) error
	Logout(ctx context.Context) error
	CheckLogin(ctx context.Context) (domain.Session, error)
	AnnotationsFor(ctx context.Context, satelliteImageID int64) ([]*geojson.Feature, error)
	CreateAnnotation(ctx context.Context, a domain.Annotation) (int64, error)
}

// ImageResolver maps satellite image file names to backend ids.
type ImageResolver interface {
	SatelliteImageID(ctx context.Context, filename string) (int64, error)
}

// View exposes the displayed satellite image and the view generation.
type View interface {
	CurrentImage() (src string, generation uint64, ok bool)
	Generation() uint64
}

// Publisher announces saved annotations.
type Publisher interface {
	PublishAnnotation(ctx context.Context, a domain.Annotation) error
}

// Tracker records analytics events.
type Tracker interface {
	Track(event string, props map[string]any)
}

// Overlay is the annotation layer as displayed. It is only visible while
// logged in.
type Overlay struct {
	Visible    bool                       `json:"visible"`
	Generation uint64                     `json:"generation"`
	Features   *geojson.FeatureCollection `json:"features"`
	Drafts     []DraftState               `json:"drafts"`
}

// DraftState is a pending draft as displayed.
type DraftState struct {
	ID       uuid.UUID         `json:"id"`
	Anchor   orb.Point         `json:"anchor"`
	Geometry *geojson.Geometry `json:"geometry"`
}

// Service coordinates the annotation flow.
type Service struct {
	backend   Backend
	images    ImageResolver
	view      View
	publisher Publisher
	tracker   Tracker
	logger    *slog.Logger
	metrics   *observability.Metrics

	mu       sync.Mutex
	drafts   map[uuid.UUID]domain.Draft
	saving   map[uuid.UUID]bool
	order    []uuid.UUID
	visible  bool
	features []*geojson.Feature
	shownGen uint64
	// epoch advances on every login and logout. Overlay loads started in an
	// earlier epoch are discarded.
	epoch uint64
}

// NewService creates a Service. publisher and tracker may be nil.
func NewService(b Backend, images ImageResolver, v View, publisher Publisher, tracker Tracker, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		backend:   b,
		images:    images,
		view:      v,
		publisher: publisher,
		tracker:   tracker,
		logger:    logger,
		metrics:   metrics,
		drafts:    make(map[uuid.UUID]domain.Draft),
		saving:    make(map[uuid.UUID]bool),
	}
}

// Login starts a session and refreshes the overlay. A rejected login is
// returned to the caller.
func (s *Service) Login(ctx context.Context, email, password string) error {
	if err := s.backend.Login(ctx, email, password); err != nil {
		return err
	}
	s.bumpEpoch()
	s.logger.Info("logged in")
	s.track("login", nil)
	s.RefreshOverlay(ctx)
	return nil
}

// Logout ends the session and hides the overlay.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.backend.Logout(ctx); err != nil {
		return err
	}
	s.bumpEpoch()
	s.logger.Info("logged out")
	s.track("logout", nil)
	s.RefreshOverlay(ctx)
	return nil
}

// Status reports the backend session.
func (s *Service) Status(ctx context.Context) (domain.Session, error) {
	return s.backend.CheckLogin(ctx)
}

// BeginDraft registers a drawn polygon awaiting save or cancel.
func (s *Service) BeginDraft(p orb.Polygon) (domain.Draft, error) {
	d, err := domain.NewDraft(p)
	if err != nil {
		return domain.Draft{}, err
	}

	s.mu.Lock()
	s.drafts[d.ID] = d
	s.order = append(s.order, d.ID)
	s.mu.Unlock()

	s.logger.Debug("draft started", "draft_id", d.ID)
	return d, nil
}

// Cancel discards a draft.
func (s *Service) Cancel(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.drafts[id]; !ok {
		return fmt.Errorf("%w: %s", ErrDraftNotFound, id)
	}
	if s.saving[id] {
		return fmt.Errorf("%w: %s", ErrDraftSaving, id)
	}
	s.removeDraftLocked(id)
	return nil
}

// Save persists a draft as an annotation of the displayed satellite image.
// The draft is claimed for the duration of the save and kept when saving
// fails so it can be retried.
func (s *Service) Save(ctx context.Context, id uuid.UUID, waste bool) (domain.Annotation, error) {
	d, epoch, err := s.claimDraft(id)
	if err != nil {
		return domain.Annotation{}, err
	}
	defer s.releaseDraft(id)

	src, gen, ok := s.view.CurrentImage()
	if !ok {
		return domain.Annotation{}, ErrNoImage
	}
	imageID, err := s.images.SatelliteImageID(ctx, domain.ImageFilename(src))
	if err != nil {
		return domain.Annotation{}, fmt.Errorf("resolve satellite image: %w", err)
	}
	session, err := s.backend.CheckLogin(ctx)
	if err != nil {
		return domain.Annotation{}, fmt.Errorf("check login: %w", err)
	}
	if !session.LoggedIn {
		return domain.Annotation{}, ErrNotLoggedIn
	}

	a := domain.Annotation{
		SatelliteImageID: imageID,
		UserID:           session.UserID,
		Geometry:         d.Geometry,
		Waste:            waste,
		CreatedAt:        domain.Now(),
	}
	a.ID, err = s.backend.CreateAnnotation(ctx, a)
	if err != nil {
		return domain.Annotation{}, fmt.Errorf("create annotation: %w", err)
	}
	s.metrics.AnnotationsSaved.Inc()
	s.logger.Info("annotation saved", "annotation_id", a.ID, "satellite_image_id", imageID, "waste", waste)

	s.mu.Lock()
	s.removeDraftLocked(id)
	// The overlay only takes the annotation while it still shows the image it
	// was drawn on; otherwise the next refresh loads it from the backend.
	if s.visible && s.shownGen == gen && s.epoch == epoch && s.view.Generation() == gen {
		s.features = append(s.features, annotationFeature(a))
	} else {
		s.logger.Debug("saved annotation left to next overlay refresh", "annotation_id", a.ID, "generation", gen)
	}
	s.mu.Unlock()

	s.publish(ctx, a)
	s.track("annotation_saved", map[string]any{"satellite_image_id": imageID, "waste": waste})
	return a, nil
}

func (s *Service) claimDraft(id uuid.UUID) (domain.Draft, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.drafts[id]
	if !ok {
		return domain.Draft{}, 0, fmt.Errorf("%w: %s", ErrDraftNotFound, id)
	}
	if s.saving[id] {
		return domain.Draft{}, 0, fmt.Errorf("%w: %s", ErrDraftSaving, id)
	}
	s.saving[id] = true
	return d, s.epoch, nil
}

func (s *Service) releaseDraft(id uuid.UUID) {
	s.mu.Lock()
	delete(s.saving, id)
	s.mu.Unlock()
}

func (s *Service) bumpEpoch() {
	s.mu.Lock()
	s.epoch++
	s.mu.Unlock()
}

// RefreshOverlay reloads the user's annotations for the displayed image.
// When logged out or on any failure the overlay is hidden. Results that
// arrive after the view has moved on, or after a login or logout, are
// discarded.
func (s *Service) RefreshOverlay(ctx context.Context) {
	s.mu.Lock()
	epoch := s.epoch
	s.mu.Unlock()
	src, gen, hasImage := s.view.CurrentImage()

	visible, features := s.loadOverlay(ctx, src, hasImage)

	s.mu.Lock()
	defer s.mu.Unlock()
	if current := s.view.Generation(); current != gen || s.epoch != epoch {
		s.metrics.StaleOverlayDiscards.Inc()
		s.logger.Debug("stale overlay discarded", "generation", gen, "current", current,
			"epoch", epoch, "current_epoch", s.epoch)
		return
	}
	s.visible = visible
	s.features = features
	s.shownGen = gen
}

func (s *Service) loadOverlay(ctx context.Context, src string, hasImage bool) (bool, []*geojson.Feature) {
	session, err := s.backend.CheckLogin(ctx)
	if err != nil {
		s.logger.Warn("check login failed, hiding annotations", "error", err)
		return false, nil
	}
	if !session.LoggedIn {
		return false, nil
	}
	if !hasImage {
		return true, nil
	}

	imageID, err := s.images.SatelliteImageID(ctx, domain.ImageFilename(src))
	if err != nil {
		s.logger.Warn("resolve satellite image failed, hiding annotations", "error", err)
		return false, nil
	}
	features, err := s.backend.AnnotationsFor(ctx, imageID)
	if err != nil {
		s.logger.Warn("load annotations failed, hiding annotations", "error", err)
		return false, nil
	}
	return true, features
}

// Overlay returns a snapshot of the annotation layer.
func (s *Service) Overlay() Overlay {
	s.mu.Lock()
	defer s.mu.Unlock()

	fc := geojson.NewFeatureCollection()
	if s.visible {
		fc.Features = append(fc.Features, s.features...)
	}
	o := Overlay{
		Visible:    s.visible,
		Generation: s.shownGen,
		Features:   fc,
		Drafts:     make([]DraftState, 0, len(s.order)),
	}
	for _, id := range s.order {
		d := s.drafts[id]
		o.Drafts = append(o.Drafts, DraftState{
			ID:       d.ID,
			Anchor:   d.Anchor,
			Geometry: geojson.NewGeometry(d.Geometry),
		})
	}
	return o
}

func (s *Service) removeDraftLocked(id uuid.UUID) {
	delete(s.drafts, id)
	for i, x := range s.order {
		if x == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *Service) publish(ctx context.Context, a domain.Annotation) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishAnnotation(ctx, a); err != nil {
		s.metrics.AnnotationsPublished.WithLabelValues("error").Inc()
		s.logger.Warn("publish annotation failed", "annotation_id", a.ID, "error", err)
		return
	}
	s.metrics.AnnotationsPublished.WithLabelValues("success").Inc()
}

func (s *Service) track(event string, props map[string]any) {
	if s.tracker != nil {
		s.tracker.Track(event, props)
	}
}

func annotationFeature(a domain.Annotation) *geojson.Feature {
	f := geojson.NewFeature(a.Geometry)
	f.ID = a.ID
	f.Properties["waste"] = a.Waste
	f.Properties["satellite_image_id"] = a.SatelliteImageID
	return f
}
