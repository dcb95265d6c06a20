package main

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	kafkaadapter "github.com/couchcryptid/riskradar/internal/adapter/kafka"
	"github.com/couchcryptid/riskradar/internal/domain"
	"github.com/couchcryptid/riskradar/internal/pipeline"
	"github.com/couchcryptid/riskradar/internal/risk"
	"github.com/couchcryptid/riskradar/internal/store"
)

var (
	forecastAt  string
	forecastCSV string
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Run one forecast for every site and write the JSON export",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if forecastAt != "" {
			at, err := time.Parse(time.RFC3339, forecastAt)
			if err != nil {
				return fmt.Errorf("--at: %w", err)
			}
			domain.SetClock(clockwork.NewFakeClockAt(at))
			defer domain.SetClock(nil)
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		p, _, closeFn, err := newForecastPipeline(st, forecastCSV)
		if err != nil {
			return err
		}
		defer closeFn()

		ex, err := p.RunOnce(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "forecast for %d sites at %s -> %s\n",
			ex.Metadata.SiteCount, ex.Metadata.GeneratedAt.Format(time.RFC3339), cfg.ExportFile)
		return nil
	},
}

// newForecastPipeline wires the engine, optional Kafka publisher and route
// state. The returned func closes the publisher.
func newForecastPipeline(st *store.SQLiteStore, csvPath string) (*pipeline.Pipeline, *risk.AppState, func(), error) {
	sites, err := loadSites()
	if err != nil {
		return nil, nil, nil, err
	}
	routes, err := loadRoutes()
	if err != nil {
		return nil, nil, nil, err
	}
	artifacts, err := loadArtifacts()
	if err != nil {
		return nil, nil, nil, err
	}
	engine, err := newEngine(st, artifacts)
	if err != nil {
		return nil, nil, nil, err
	}

	opts := pipeline.Options{
		Sites:      sites,
		Models:     artifacts,
		History:    st,
		ExportPath: cfg.ExportFile,
		CSVPath:    csvPath,
		Interval:   cfg.ForecastInterval,
	}
	closeFn := func() {}
	if cfg.KafkaEnabled {
		w := kafkaadapter.NewWriter(cfg, logger)
		opts.Publisher = w
		closeFn = func() {
			if err := w.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaForecastTopic, "brokers", cfg.KafkaBrokers)
	}

	state := risk.NewAppState(routes)
	return pipeline.New(engine, state, opts, logger, metrics), state, closeFn, nil
}

func init() {
	forecastCmd.Flags().StringVar(&forecastAt, "at", "", "reference time (RFC3339), default now")
	forecastCmd.Flags().StringVar(&forecastCSV, "csv", "", "also write a per-site CSV table to this path")
	rootCmd.AddCommand(forecastCmd)
}
