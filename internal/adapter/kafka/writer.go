package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/riskradar/internal/config"
	"github.com/couchcryptid/riskradar/internal/domain"
)

// Writer publishes forecast records to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured forecast topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaForecastTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes and writes all records in a single WriteMessages call.
// Records are keyed by site and hazard so each series lands on one partition.
func (w *Writer) Publish(ctx context.Context, records []domain.ForecastRecord) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish forecasts: %w", err)
	}
	w.logger.Debug("forecasts published", "topic", w.writer.Topic, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

func messageKey(r domain.ForecastRecord) string {
	return r.Site.Name + "|" + string(r.Hazard)
}

// serializeToMessage marshals a ForecastRecord into a Kafka message.
func serializeToMessage(r domain.ForecastRecord) (kafkago.Message, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize forecast record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(messageKey(r)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "hazard", Value: []byte(r.Hazard)},
			{Key: "classification", Value: []byte(r.Classification)},
			{Key: "generated_at", Value: []byte(r.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
