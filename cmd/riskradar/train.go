package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/riskradar/internal/dataset"
	"github.com/couchcryptid/riskradar/internal/domain"
	"github.com/couchcryptid/riskradar/internal/model"
	"github.com/couchcryptid/riskradar/internal/pipeline"
)

var trainHazards string

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Build datasets, train the classifiers, and save versioned artifacts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		hazards, err := parseHazards(trainHazards)
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

		params := make([]domain.HazardParams, len(hazards))
		for i, h := range hazards {
			params[i] = cfg.Params(h)
		}

		tr := pipeline.NewTraining(
			dataset.NewBuilder(featureBuilder(st), datasetOptions(), logger, metrics),
			model.NewTrainer(trainerOptions(), logger, metrics),
			model.NewStore(cfg.ArtifactDir),
			logger,
		)
		artifacts, err := tr.Run(ctx, sites, params)
		if err != nil {
			return err
		}
		for _, a := range artifacts {
			printArtifact(cmd.OutOrStdout(), a)
		}
		return nil
	},
}

func printArtifact(w io.Writer, a *model.Artifact) {
	m := a.Metrics
	fmt.Fprintf(w, "%s model %s (threshold %.2f)\n", a.Hazard, a.Version, a.Threshold)
	fmt.Fprintf(w, "  precision %.3f  recall %.3f  f1 %.3f  pr_auc %.3f\n", m.Precision, m.Recall, m.F1, m.PRAUC)
	fmt.Fprintf(w, "  accuracy %.3f  baseline %.3f  train %d (%d pos)  test %d (%d pos)\n",
		m.Accuracy, m.BaselineAccuracy, m.TrainSamples, m.TrainPositives, m.TestSamples, m.TestPositives)
	for _, warning := range m.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warning)
	}
}

func init() {
	trainCmd.Flags().StringVar(&trainHazards, "hazard", "all", "hazards to train: all, fire, quake")
	rootCmd.AddCommand(trainCmd)
}
