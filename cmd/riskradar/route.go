package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/riskradar/internal/forecast"
	"github.com/couchcryptid/riskradar/internal/risk"
)

var (
	routeExport  string
	routeID      string
	routeProfile []string
)

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Aggregate forecast risk along routes or across a set of sites",
	Long: "Reads the latest forecast export and evaluates every route in ROUTES_FILE, a single route " +
		"with --id, or an ad-hoc location profile with --profile.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := routeExport
		if path == "" {
			path = cfg.ExportFile
		}
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open export: %w", err)
		}
		defer f.Close()
		ex, err := forecast.ReadExport(f)
		if err != nil {
			return err
		}

		routes, err := loadRoutes()
		if err != nil {
			return err
		}
		state := risk.NewAppState(routes)
		state.SetPredictions(ex.SitePredictions(), ex.Metadata.GeneratedAt)

		out := cmd.OutOrStdout()
		if len(routeProfile) > 0 {
			e, _ := state.Snapshot()
			return writeIndented(out, e.Profile(routeProfile))
		}
		if routeID != "" {
			res, err := state.EvaluateRoute(routeID)
			if err != nil {
				return err
			}
			return writeIndented(out, res)
		}

		if len(routes) == 0 {
			return fmt.Errorf("no routes loaded: set ROUTES_FILE or pass --profile")
		}
		results := make([]risk.RouteResult, 0, len(routes))
		for _, r := range state.Routes() {
			res, err := state.EvaluateRoute(r.ID)
			if err != nil {
				return err
			}
			results = append(results, res)
		}
		return writeIndented(out, results)
	},
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	routeCmd.Flags().StringVar(&routeExport, "export", "", "forecast export to read (default EXPORT_FILE)")
	routeCmd.Flags().StringVar(&routeID, "id", "", "evaluate a single route by ID")
	routeCmd.Flags().StringSliceVar(&routeProfile, "profile", nil, "site names to aggregate as a location profile")
	routeCmd.MarkFlagsMutuallyExclusive("id", "profile")
	rootCmd.AddCommand(routeCmd)
}
