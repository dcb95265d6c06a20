package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/riskradar/internal/mockdata"
)

var (
	genmockFrom string
	genmockTo   string
	genmockSeed uint64
)

var genmockCmd = &cobra.Command{
	Use:   "genmock",
	Short: "Fill the store with seeded synthetic events and weather",
	Long:  "Generates fire detections, earthquakes, and daily weather around every site for demos and smoke tests.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		from, err := time.Parse(time.DateOnly, genmockFrom)
		if err != nil {
			return fmt.Errorf("--from: %w", err)
		}
		to, err := time.Parse(time.DateOnly, genmockTo)
		if err != nil {
			return fmt.Errorf("--to: %w", err)
		}
		sites, err := loadSites()
		if err != nil {
			return err
		}

		data, err := mockdata.Generate(sites, mockdata.Options{From: from, To: to, Seed: genmockSeed})
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := st.InsertEvents(ctx, data.Events)
		if err != nil {
			return err
		}
		for _, s := range sites {
			if err := st.InsertWeather(ctx, s.Point(), data.Weather[s.Name]); err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "generated %d events (%d new) and %d days of weather for %d sites\n",
			len(data.Events), n, len(data.Weather[sites[0].Name]), len(sites))
		return nil
	},
}

func init() {
	genmockCmd.Flags().StringVar(&genmockFrom, "from", "2023-11-01", "first day (YYYY-MM-DD)")
	genmockCmd.Flags().StringVar(&genmockTo, "to", "2025-11-01", "end day, exclusive (YYYY-MM-DD)")
	genmockCmd.Flags().Uint64Var(&genmockSeed, "seed", 42, "random seed")
	rootCmd.AddCommand(genmockCmd)
}
