package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/riskradar/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DBPath      string
	ArtifactDir string
	SitesFile   string
	RoutesFile  string
	ExportFile  string

	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration
	ForecastInterval time.Duration

	DatasetWorkers int
	MinPositives   int
	Seed           uint64
	ForestTrees    int
	ForestMaxDepth int

	FireClassWeight   float64
	QuakeClassWeight  float64
	FireThreshold     float64
	QuakeThreshold    float64
	FireTargetRecall  float64
	QuakeTargetRecall float64

	FireWeatherAdjustment bool

	// Open-Meteo weather configuration.
	WeatherEnabled   bool
	WeatherTimeout   time.Duration
	WeatherCacheSize int

	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaForecastTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}
	forecastInterval, err := parseDuration("FORECAST_INTERVAL", "1h")
	if err != nil {
		return nil, err
	}
	weatherTimeout, err := parseDuration("WEATHER_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DBPath:      sharedcfg.EnvOrDefault("RISKRADAR_DB", "riskradar.db"),
		ArtifactDir: sharedcfg.EnvOrDefault("ARTIFACT_DIR", "models"),
		SitesFile:   sharedcfg.EnvOrDefault("SITES_FILE", "sites.yaml"),
		RoutesFile:  os.Getenv("ROUTES_FILE"),
		ExportFile:  sharedcfg.EnvOrDefault("EXPORT_FILE", "forecast.json"),

		HTTPAddr:         sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:         sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:        sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:  shutdownTimeout,
		ForecastInterval: forecastInterval,

		FireWeatherAdjustment: os.Getenv("FIRE_WEATHER_ADJUSTMENT") == "true",

		WeatherEnabled: sharedcfg.EnvOrDefault("WEATHER_ENABLED", "true") == "true",
		WeatherTimeout: weatherTimeout,

		KafkaEnabled:       os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaForecastTopic: sharedcfg.EnvOrDefault("KAFKA_FORECAST_TOPIC", "hazard-forecasts"),
	}

	ints := []struct {
		key string
		def int
		dst *int
	}{
		{"DATASET_WORKERS", 8, &cfg.DatasetWorkers},
		{"MIN_POSITIVE_SAMPLES", 20, &cfg.MinPositives},
		{"FOREST_TREES", 200, &cfg.ForestTrees},
		{"FOREST_MAX_DEPTH", 15, &cfg.ForestMaxDepth},
		{"WEATHER_CACHE_SIZE", 1000, &cfg.WeatherCacheSize},
	}
	for _, f := range ints {
		if *f.dst, err = parsePositiveInt(f.key, f.def); err != nil {
			return nil, err
		}
	}

	seed, err := strconv.ParseUint(sharedcfg.EnvOrDefault("RANDOM_SEED", "42"), 10, 64)
	if err != nil {
		return nil, errors.New("invalid RANDOM_SEED")
	}
	cfg.Seed = seed

	floats := []struct {
		key string
		def float64
		dst *float64
		ok  func(float64) bool
	}{
		{"FIRE_CLASS_WEIGHT", 10, &cfg.FireClassWeight, positive},
		{"QUAKE_CLASS_WEIGHT", 15, &cfg.QuakeClassWeight, positive},
		{"FIRE_THRESHOLD", 0.3, &cfg.FireThreshold, probability},
		{"QUAKE_THRESHOLD", 0.4, &cfg.QuakeThreshold, probability},
		{"FIRE_TARGET_RECALL", 0, &cfg.FireTargetRecall, recall},
		{"QUAKE_TARGET_RECALL", 0, &cfg.QuakeTargetRecall, recall},
	}
	for _, f := range floats {
		if *f.dst, err = parseFloat(f.key, f.def, f.ok); err != nil {
			return nil, err
		}
	}

	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}
	if cfg.KafkaEnabled && cfg.KafkaForecastTopic == "" {
		return nil, errors.New("KAFKA_FORECAST_TOPIC is required when KAFKA_ENABLED is true")
	}

	return cfg, nil
}

// Params returns the hazard parameters with the configured class weight,
// threshold and target recall applied over the defaults.
func (c *Config) Params(h domain.HazardType) domain.HazardParams {
	p := domain.DefaultParams(h)
	switch h {
	case domain.HazardFire:
		p.ClassWeight, p.Threshold, p.TargetRecall = c.FireClassWeight, c.FireThreshold, c.FireTargetRecall
	case domain.HazardQuake:
		p.ClassWeight, p.Threshold, p.TargetRecall = c.QuakeClassWeight, c.QuakeThreshold, c.QuakeTargetRecall
	}
	return p
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func parseFloat(key string, def float64, ok func(float64) bool) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || !ok(f) {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return f, nil
}

func positive(f float64) bool    { return f > 0 }
func probability(f float64) bool { return f > 0 && f < 1 }

// recall of 0 disables recall-targeted threshold selection.
func recall(f float64) bool { return f >= 0 && f <= 1 }
