package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/floodview/internal/config"
	"github.com/couchcryptid/floodview/internal/domain"
)

// Writer publishes saved annotations to a Kafka topic so downstream
// consumers (training-set export, review queues) see them without polling
// the backend. It implements annotation.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured annotation topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaAnnotationTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishAnnotation serializes and publishes one saved annotation. Messages
// are keyed by satellite image so all annotations of an image stay ordered
// within a partition.
func (w *Writer) PublishAnnotation(ctx context.Context, a domain.Annotation) error {
	msg, err := serializeToMessage(a)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish annotation: %w", err)
	}
	w.logger.Debug("annotation published", "annotation_id", a.ID, "satellite_image_id", a.SatelliteImageID)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// AnnotationEvent is the JSON payload of a saved-annotation message.
type AnnotationEvent struct {
	ID               int64     `json:"id"`
	SatelliteImageID int64     `json:"satellite_image_id"`
	UserID           int64     `json:"user_id"`
	Geom             string    `json:"geom"`
	Waste            bool      `json:"waste"`
	CreatedAt        time.Time `json:"created_at"`
}

// serializeToMessage marshals an Annotation into a Kafka message.
func serializeToMessage(a domain.Annotation) (kafkago.Message, error) {
	data, err := json.Marshal(AnnotationEvent{
		ID:               a.ID,
		SatelliteImageID: a.SatelliteImageID,
		UserID:           a.UserID,
		Geom:             a.WKT(),
		Waste:            a.Waste,
		CreatedAt:        a.CreatedAt,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize annotation: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(strconv.FormatInt(a.SatelliteImageID, 10)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte("annotation_saved")},
			{Key: "created_at", Value: []byte(a.CreatedAt.Format(time.RFC3339))},
		},
	}, nil
}
