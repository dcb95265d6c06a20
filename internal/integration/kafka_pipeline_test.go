//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/riskradar/internal/adapter/kafka"
	"github.com/couchcryptid/riskradar/internal/config"
	"github.com/couchcryptid/riskradar/internal/domain"
	"github.com/couchcryptid/riskradar/internal/forecast"
	"github.com/couchcryptid/riskradar/internal/observability"
	"github.com/couchcryptid/riskradar/internal/pipeline"
	"github.com/couchcryptid/riskradar/internal/risk"
)

const testForecastTopic = "test-forecasts"

var testSites = []domain.Site{
	{Name: "Los Angeles", Lat: 34.0522, Lon: -118.2437},
	{Name: "Tokyo", Lat: 35.6762, Lon: 139.6503},
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node broker and returns its bootstrap address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("riskradar-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate kafka container: %v", err)
		}
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

type receivedRecord struct {
	Record  domain.ForecastRecord
	Key     string
	Headers map[string]string
}

func readRecord(ctx context.Context, t *testing.T, consumer *kafkago.Reader) receivedRecord {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read forecast topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var rec domain.ForecastRecord
	require.NoError(t, json.Unmarshal(msg.Value, &rec))
	return receivedRecord{Record: rec, Key: string(msg.Key), Headers: headers}
}

func newConsumer(t *testing.T, broker string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testForecastTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

// TestKafkaWriter_Publish verifies keys, headers, and payloads survive a
// round trip through a real broker.
func TestKafkaWriter_Publish(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testForecastTopic)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaForecastTopic: testForecastTopic}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	generated := time.Date(2025, 8, 1, 6, 0, 0, 0, time.UTC)
	rec := domain.ForecastRecord{
		Site:           testSites[0],
		Hazard:         domain.HazardFire,
		Probability:    0.42,
		Classification: domain.Classify(0.42, 0.3),
		Threshold:      0.3,
		ModelVersion:   "6f1c2a9e-3b7d-4c1e-9a52-0d8e4b7f1a23",
		GeneratedAt:    generated,
	}
	require.NoError(t, writer.Publish(ctx, []domain.ForecastRecord{rec}))

	got := readRecord(ctx, t, newConsumer(t, broker))
	assert.Equal(t, "Los Angeles|fire", got.Key)
	assert.Equal(t, "fire", got.Headers["hazard"])
	assert.Equal(t, string(domain.ClassHigh), got.Headers["classification"])
	assert.Equal(t, generated.Format(time.RFC3339), got.Headers["generated_at"])
	assert.Equal(t, rec.Probability, got.Record.Probability)
	assert.Equal(t, rec.ModelVersion, got.Record.ModelVersion)
	assert.True(t, generated.Equal(got.Record.GeneratedAt))
}

type fixedForecaster struct{}

func (fixedForecaster) Forecast(_ context.Context, sites []domain.Site, at time.Time) (*forecast.Result, error) {
	res := &forecast.Result{GeneratedAt: at, Aborted: map[domain.HazardType]string{}}
	for _, s := range sites {
		fire, quake := 0.5, 0.05
		res.Sites = append(res.Sites, forecast.SiteForecast{
			Site:     s,
			Fire:     forecast.HazardForecast{Available: true, Probability: fire, Raw: fire, Classification: domain.Classify(fire, 0.3)},
			Quake:    forecast.HazardForecast{Available: true, Probability: quake, Raw: quake, Classification: domain.Classify(quake, 0.4)},
			Combined: risk.NoisyOR(fire, quake),
		})
		res.Records = append(res.Records,
			domain.ForecastRecord{Site: s, Hazard: domain.HazardFire, Probability: fire, Classification: domain.Classify(fire, 0.3), GeneratedAt: at},
			domain.ForecastRecord{Site: s, Hazard: domain.HazardQuake, Probability: quake, Classification: domain.Classify(quake, 0.4), GeneratedAt: at},
		)
	}
	return res, nil
}

// TestPipelinePublishesForecasts runs one forecast cycle with the Kafka
// publisher and checks every site and hazard lands on the topic.
func TestPipelinePublishesForecasts(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testForecastTopic)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaForecastTopic: testForecastTopic}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	p := pipeline.New(fixedForecaster{}, risk.NewAppState(nil), pipeline.Options{
		Sites:      testSites,
		Publisher:  writer,
		ExportPath: filepath.Join(t.TempDir(), "forecast.json"),
	}, discardLogger(), observability.NewMetricsForTesting())

	ex, err := p.RunOnce(ctx)
	require.NoError(t, err)
	require.Len(t, ex.Sites, len(testSites))

	consumer := newConsumer(t, broker)
	keys := map[string]receivedRecord{}
	for range len(testSites) * len(domain.HazardTypes) {
		r := readRecord(ctx, t, consumer)
		keys[r.Key] = r
	}
	require.Len(t, keys, 4)
	assert.Equal(t, string(domain.ClassHigh), keys["Tokyo|fire"].Headers["classification"])
	assert.Equal(t, string(domain.ClassLow), keys["Tokyo|quake"].Headers["classification"])
	assert.InDelta(t, 0.05, keys["Los Angeles|quake"].Record.Probability, 1e-12)
}
