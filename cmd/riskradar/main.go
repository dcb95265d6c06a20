// Command riskradar imports hazard events, trains the fire and quake
// classifiers, and serves 72-hour site and route risk forecasts.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/riskradar/internal/config"
	"github.com/couchcryptid/riskradar/internal/observability"
)

var (
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
)

var rootCmd = &cobra.Command{
	Use:   "riskradar",
	Short: "72-hour fire and earthquake risk forecasting",
	Long: "Imports satellite fire detections and seismic catalogs, trains per-hazard classifiers, " +
		"and forecasts site, route, and location-profile risk.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
		logger = observability.NewLogger(cfg)
		metrics = observability.NewMetrics()
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
