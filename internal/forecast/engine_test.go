package forecast

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/riskradar/internal/domain"
	"github.com/couchcryptid/riskradar/internal/features"
	"github.com/couchcryptid/riskradar/internal/model"
	"github.com/couchcryptid/riskradar/internal/observability"
	"github.com/couchcryptid/riskradar/internal/risk"
)

func newTestEngine(t *testing.T, src FeatureSource, opts Options) *Engine {
	t.Helper()
	e, err := NewEngine(bothArtifacts(t), src, opts, testLogger(), observability.NewMetricsForTesting())
	require.NoError(t, err)
	return e
}

func TestNewEngine_MissingModel(t *testing.T) {
	_, err := NewEngine(
		[]*model.Artifact{trainedArtifact(t, domain.HazardFire)},
		&stubFeatures{}, DefaultOptions(), testLogger(), observability.NewMetricsForTesting(),
	)
	require.ErrorIs(t, err, domain.ErrModelArtifactMissing)
}

func TestNewEngine_InvalidArtifact(t *testing.T) {
	fire := trainedArtifact(t, domain.HazardFire)
	fire.FeatureNames = slices.Clone(fire.FeatureNames[1:])
	_, err := NewEngine(
		[]*model.Artifact{fire, trainedArtifact(t, domain.HazardQuake)},
		&stubFeatures{}, DefaultOptions(), testLogger(), observability.NewMetricsForTesting(),
	)
	require.ErrorIs(t, err, domain.ErrFeatureSchemaMismatch)
}

func TestEngine_Forecast(t *testing.T) {
	src := &stubFeatures{signal: map[string]float64{"Sacramento": 9.5, "Reno": 0.5}}
	e := newTestEngine(t, src, DefaultOptions())

	res, err := e.Forecast(context.Background(), []domain.Site{sacramento, reno}, forecastTime)
	require.NoError(t, err)

	require.Len(t, res.Records, 4)
	assert.Empty(t, res.Aborted)
	assert.Equal(t, forecastTime, res.GeneratedAt)

	hot, cold := res.Sites[0], res.Sites[1]
	assert.Equal(t, "Sacramento", hot.Site.Name)
	assert.Greater(t, hot.Fire.Probability, 0.8)
	assert.Equal(t, domain.ClassHigh, hot.Fire.Classification)
	assert.Equal(t, domain.ClassHigh, hot.Quake.Classification)
	assert.Less(t, cold.Fire.Probability, 0.2)
	assert.Equal(t, domain.ClassLow, cold.Fire.Classification)

	for _, s := range res.Sites {
		assert.InDelta(t, risk.NoisyOR(s.Fire.Probability, s.Quake.Probability), s.Combined, 1e-12)
	}
	for _, r := range res.Records {
		assert.Equal(t, forecastTime, r.GeneratedAt)
		assert.Equal(t, string(r.Hazard)+"-test", r.ModelVersion)
		assert.GreaterOrEqual(t, r.Probability, 0.0)
		assert.LessOrEqual(t, r.Probability, 1.0)
	}
}

func TestEngine_Forecast_IsDeterministic(t *testing.T) {
	src := &stubFeatures{signal: map[string]float64{"Sacramento": 6, "Reno": 4, "Boise": 5.2}}
	e := newTestEngine(t, src, Options{Workers: 3})
	sites := []domain.Site{sacramento, reno, boise}

	first, err := e.Forecast(context.Background(), sites, forecastTime)
	require.NoError(t, err)
	second, err := e.Forecast(context.Background(), sites, forecastTime)
	require.NoError(t, err)
	assert.Equal(t, first.Sites, second.Sites)
}

func TestEngine_Forecast_DataUnavailableSkipsSite(t *testing.T) {
	src := &stubFeatures{
		signal:      map[string]float64{"Sacramento": 9, "Reno": 9},
		unavailable: map[string]bool{"Reno": true},
	}
	e := newTestEngine(t, src, DefaultOptions())

	res, err := e.Forecast(context.Background(), []domain.Site{sacramento, reno}, forecastTime)
	require.NoError(t, err)

	assert.Len(t, res.Records, 2)
	assert.False(t, res.Sites[1].Fire.Available)
	assert.False(t, res.Sites[1].Quake.Available)
	assert.Zero(t, res.Sites[1].Combined)

	preds := res.Predictions()
	require.Len(t, preds, 1)
	assert.Equal(t, "Sacramento", preds[0].Site.Name)
}

func TestEngine_Forecast_SchemaMismatchAbortsHazard(t *testing.T) {
	quakeNames := features.Schema(domain.DefaultParams(domain.HazardQuake))
	reversed := slices.Clone(quakeNames)
	slices.Reverse(reversed)

	src := &stubFeatures{
		signal: map[string]float64{"Sacramento": 9},
		names:  map[domain.HazardType][]string{domain.HazardQuake: reversed},
	}
	e := newTestEngine(t, src, DefaultOptions())

	res, err := e.Forecast(context.Background(), []domain.Site{sacramento}, forecastTime)
	require.NoError(t, err)

	require.Contains(t, res.Aborted, domain.HazardQuake)
	assert.NotContains(t, res.Aborted, domain.HazardFire)
	require.Len(t, res.Records, 1)
	assert.Equal(t, domain.HazardFire, res.Records[0].Hazard)
	assert.False(t, res.Sites[0].Quake.Available)
}

func TestEngine_Forecast_InvalidSite(t *testing.T) {
	e := newTestEngine(t, &stubFeatures{}, DefaultOptions())
	_, err := e.Forecast(context.Background(), []domain.Site{{Name: "Nowhere", Lat: 120, Lon: 0}}, forecastTime)
	require.ErrorIs(t, err, domain.ErrInvalidCoordinate)
}

func TestEngine_Forecast_WeatherAdjustment(t *testing.T) {
	src := &stubFeatures{
		signal:    map[string]float64{"Sacramento": 9},
		overrides: map[string]float64{"temp_mean": -3, "humidity_mean": 85},
	}
	e := newTestEngine(t, src, Options{WeatherAdjustment: true, Workers: 1})

	res, err := e.Forecast(context.Background(), []domain.Site{sacramento}, forecastTime)
	require.NoError(t, err)

	fire := res.Sites[0].Fire
	assert.InDelta(t, 0.01, fire.Adjustment, 1e-12)
	assert.InDelta(t, fire.Raw*0.01, fire.Probability, 1e-12)
	assert.Equal(t, domain.ClassLow, fire.Classification)

	quake := res.Sites[0].Quake
	assert.Zero(t, quake.Adjustment, "quake forecasts are never adjusted")
	assert.Equal(t, quake.Raw, quake.Probability)
}

func TestClassify_ThresholdIsInclusive(t *testing.T) {
	a := trainedArtifact(t, domain.HazardQuake)
	src := &stubFeatures{signal: map[string]float64{"Reno": 5.1}}
	v, err := src.Build(context.Background(), reno, forecastTime, a.Params)
	require.NoError(t, err)

	p, err := a.Predict(v)
	require.NoError(t, err)

	a.Threshold = p
	assert.Equal(t, domain.ClassHigh, a.Classify(p))

	a.Threshold = p + 1e-9
	assert.Equal(t, domain.ClassLow, a.Classify(p))
}
