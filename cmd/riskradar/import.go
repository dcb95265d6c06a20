package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/riskradar/internal/domain"
	"github.com/couchcryptid/riskradar/internal/store"
)

var (
	importFIRMS   []string
	importUSGS    []string
	importWeather bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import FIRMS and USGS CSV exports into the event store",
	Long: "Loads NASA FIRMS active-fire and USGS earthquake CSV exports into the SQLite event store. " +
		"With --weather, also backfills daily weather for every site over the fire training range.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if len(importFIRMS) == 0 && len(importUSGS) == 0 && !importWeather {
			return fmt.Errorf("nothing to import: pass --firms, --usgs, or --weather")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		for _, path := range importFIRMS {
			if err := importFile(ctx, st, path, store.ReadFIRMSCSV); err != nil {
				return err
			}
		}
		for _, path := range importUSGS {
			if err := importFile(ctx, st, path, store.ReadUSGSCSV); err != nil {
				return err
			}
		}
		if importWeather {
			if err := backfillWeather(ctx, st); err != nil {
				return err
			}
		}

		summary, err := st.Summary(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, s := range summary {
			fmt.Fprintf(out, "%-6s %8d events  %s .. %s\n", s.Hazard, s.Count,
				s.First.Format(time.DateOnly), s.Last.Format(time.DateOnly))
		}
		return nil
	},
}

func importFile(ctx context.Context, st *store.SQLiteStore, path string, parse func(io.Reader) ([]domain.HazardEvent, error)) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	events, err := parse(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	n, err := st.InsertEvents(ctx, events)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	logger.Info("imported events", "file", path, "rows", len(events), "inserted", n, "duplicates", len(events)-n)
	return nil
}

// backfillWeather stores weather for the fire training range plus the
// lookback before it, so dataset builds do not hit the upstream API per cell.
func backfillWeather(ctx context.Context, st *store.SQLiteStore) error {
	upstream := upstreamWeather()
	if upstream == nil {
		return fmt.Errorf("weather backfill needs WEATHER_ENABLED=true")
	}
	sites, err := loadSites()
	if err != nil {
		return err
	}

	p := cfg.Params(domain.HazardFire)
	from := p.Start.AddDate(0, 0, -p.WeatherLookbackDays)
	to := p.End
	if now := domain.Now(); now.Before(to) {
		to = now
	}
	for _, s := range sites {
		days, err := upstream.DailyWeather(ctx, s.Point(), from, to)
		if err != nil {
			return fmt.Errorf("weather for %s: %w", s.Name, err)
		}
		if err := st.InsertWeather(ctx, s.Point(), days); err != nil {
			return err
		}
		logger.Info("stored weather", "site", s.Name, "days", len(days))
	}
	return nil
}

func init() {
	importCmd.Flags().StringSliceVar(&importFIRMS, "firms", nil, "FIRMS active-fire CSV export (repeatable)")
	importCmd.Flags().StringSliceVar(&importUSGS, "usgs", nil, "USGS earthquake catalog CSV (repeatable)")
	importCmd.Flags().BoolVar(&importWeather, "weather", false, "backfill daily weather for all sites from Open-Meteo")
	rootCmd.AddCommand(importCmd)
}
