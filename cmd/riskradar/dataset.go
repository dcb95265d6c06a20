package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/riskradar/internal/dataset"
)

var (
	datasetHazards string
	datasetOutDir  string
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Build labeled training tables and write them as CSV",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		hazards, err := parseHazards(datasetHazards)
		if err != nil {
			return err
		}
		sites, err := loadSites()
		if err != nil {
			return err
		}
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := os.MkdirAll(datasetOutDir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		builder := dataset.NewBuilder(featureBuilder(st), datasetOptions(), logger, metrics)
		for _, h := range hazards {
			ds, err := builder.Build(ctx, sites, cfg.Params(h))
			if err != nil {
				return err
			}
			path := filepath.Join(datasetOutDir, string(h)+"_dataset.csv")
			if err := writeDatasetCSV(path, ds); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d samples (%d positive, %d dropped) -> %s\n",
				h, ds.Report.Samples, ds.Report.Positives, ds.Report.Dropped, path)
		}
		return nil
	},
}

func writeDatasetCSV(path string, ds *dataset.Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := dataset.WriteCSV(f, ds); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func init() {
	datasetCmd.Flags().StringVar(&datasetHazards, "hazard", "all", "hazards to build: all, fire, quake")
	datasetCmd.Flags().StringVar(&datasetOutDir, "out", "data", "output directory for <hazard>_dataset.csv")
	rootCmd.AddCommand(datasetCmd)
}
