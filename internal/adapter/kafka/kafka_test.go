package kafka

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/riskradar/internal/config"
	"github.com/couchcryptid/riskradar/internal/domain"
)

func testRecord() domain.ForecastRecord {
	return domain.ForecastRecord{
		Site:           domain.Site{Name: "Tokyo", Lat: 35.68, Lon: 139.69},
		Hazard:         domain.HazardQuake,
		Probability:    0.42,
		Classification: domain.ClassHigh,
		Threshold:      0.4,
		ModelVersion:   "v-1",
		GeneratedAt:    time.Date(2025, 8, 1, 6, 0, 0, 0, time.UTC),
	}
}

func TestSerializeToMessage(t *testing.T) {
	rec := testRecord()

	msg, err := serializeToMessage(rec)
	require.NoError(t, err)

	assert.Equal(t, []byte("Tokyo|quake"), msg.Key)
	assert.Contains(t, string(msg.Value), `"classification":"HIGH"`)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "hazard", msg.Headers[0].Key)
	assert.Equal(t, []byte("quake"), msg.Headers[0].Value)
	assert.Equal(t, "classification", msg.Headers[1].Key)
	assert.Equal(t, []byte("HIGH"), msg.Headers[1].Value)
	assert.Equal(t, "generated_at", msg.Headers[2].Key)
	assert.Equal(t, []byte("2025-08-01T06:00:00Z"), msg.Headers[2].Value)

	var back domain.ForecastRecord
	require.NoError(t, json.Unmarshal(msg.Value, &back))
	assert.Equal(t, rec, back)
}

func TestMessageKey_DistinctPerHazard(t *testing.T) {
	fire := testRecord()
	fire.Hazard = domain.HazardFire
	assert.NotEqual(t, messageKey(fire), messageKey(testRecord()))
}

func TestWriter_PublishEmptyIsNoop(t *testing.T) {
	w := NewWriter(&config.Config{KafkaBrokers: []string{"127.0.0.1:1"}, KafkaForecastTopic: "hazard-forecasts"},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer func() { _ = w.Close() }()

	require.NoError(t, w.Publish(context.Background(), nil))
}
