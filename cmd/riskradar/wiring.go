package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/couchcryptid/riskradar/internal/adapter/openmeteo"
	"github.com/couchcryptid/riskradar/internal/config"
	"github.com/couchcryptid/riskradar/internal/dataset"
	"github.com/couchcryptid/riskradar/internal/domain"
	"github.com/couchcryptid/riskradar/internal/features"
	"github.com/couchcryptid/riskradar/internal/forecast"
	"github.com/couchcryptid/riskradar/internal/model"
	"github.com/couchcryptid/riskradar/internal/risk"
	"github.com/couchcryptid/riskradar/internal/store"
)

func openStore(ctx context.Context) (*store.SQLiteStore, error) {
	st, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// upstreamWeather returns the cached Open-Meteo client, or nil when weather
// fetching is disabled.
func upstreamWeather() domain.WeatherSource {
	if !cfg.WeatherEnabled {
		logger.Info("open-meteo weather disabled, using stored weather only")
		return nil
	}
	client := openmeteo.NewClient(cfg.WeatherTimeout, metrics, logger)
	logger.Info("open-meteo weather enabled", "cache_size", cfg.WeatherCacheSize, "timeout", cfg.WeatherTimeout)
	return openmeteo.NewCachedWeather(client, cfg.WeatherCacheSize, metrics)
}

func featureBuilder(st *store.SQLiteStore) *features.Builder {
	return features.NewBuilder(st, store.NewArchivedWeather(st, upstreamWeather()))
}

func datasetOptions() dataset.Options {
	opts := dataset.DefaultOptions()
	opts.Workers = cfg.DatasetWorkers
	opts.Seed = cfg.Seed
	opts.MinPositives = cfg.MinPositives
	return opts
}

func trainerOptions() model.TrainerOptions {
	fp := model.DefaultForestParams()
	fp.Trees = cfg.ForestTrees
	fp.MaxDepth = cfg.ForestMaxDepth
	fp.Seed = cfg.Seed
	return model.TrainerOptions{Forest: fp, MinPositives: cfg.MinPositives}
}

func loadSites() ([]domain.Site, error) {
	return config.LoadSites(cfg.SitesFile)
}

func loadRoutes() ([]risk.Route, error) {
	if cfg.RoutesFile == "" {
		return nil, nil
	}
	f, err := os.Open(cfg.RoutesFile)
	if err != nil {
		return nil, fmt.Errorf("open routes file: %w", err)
	}
	defer f.Close()
	return risk.ReadRoutesCSV(f)
}

func loadArtifacts() ([]*model.Artifact, error) {
	ms := model.NewStore(cfg.ArtifactDir)
	out := make([]*model.Artifact, 0, len(domain.HazardTypes))
	for _, h := range domain.HazardTypes {
		a, err := ms.Load(h)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func newEngine(st *store.SQLiteStore, artifacts []*model.Artifact) (*forecast.Engine, error) {
	opts := forecast.DefaultOptions()
	opts.WeatherAdjustment = cfg.FireWeatherAdjustment
	opts.Workers = cfg.DatasetWorkers
	return forecast.NewEngine(artifacts, featureBuilder(st), opts, logger, metrics)
}

// parseHazards accepts "all" or a comma-separated list of hazard names.
func parseHazards(s string) ([]domain.HazardType, error) {
	if strings.EqualFold(strings.TrimSpace(s), "all") {
		return domain.HazardTypes, nil
	}
	var out []domain.HazardType
	seen := map[domain.HazardType]bool{}
	for _, part := range strings.Split(s, ",") {
		h, err := domain.ParseHazardType(part)
		if err != nil {
			return nil, err
		}
		if !seen[h] {
			seen[h] = true
			out = append(out, h)
		}
	}
	return out, nil
}
