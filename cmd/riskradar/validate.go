package main

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/riskradar/internal/config"
	"github.com/couchcryptid/riskradar/internal/domain"
	"github.com/couchcryptid/riskradar/internal/features"
	"github.com/couchcryptid/riskradar/internal/model"
	"github.com/couchcryptid/riskradar/internal/risk"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name     string
	errors   []string
	warnings []string
	notes    []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) warnf(format string, args ...any) {
	p.warnings = append(p.warnings, fmt.Sprintf(format, args...))
}

func (p *phase) notef(format string, args ...any) {
	p.notes = append(p.notes, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check model artifacts, sites, and routes for consistency",
	Long: "Verifies that stored artifacts match the current hazard parameters and feature schema, " +
		"and that every route waypoint resolves to a forecast site.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		sitesPhase := &phase{name: "sites"}
		sites, err := loadSites()
		if err != nil {
			sitesPhase.errorf("%v", err)
		}

		phases := []*phase{
			sitesPhase,
			validateModels(model.NewStore(cfg.ArtifactDir), cfg),
		}
		if routes, err := loadRoutes(); err != nil {
			p := &phase{name: "routes"}
			p.errorf("%v", err)
			phases = append(phases, p)
		} else if len(routes) > 0 {
			phases = append(phases, validateRoutes(sites, routes))
		}

		if !report(cmd.OutOrStdout(), phases) {
			return fmt.Errorf("validation failed")
		}
		return nil
	},
}

// validateModels checks each hazard's latest artifact against the
// parameters the forecast engine would use today.
func validateModels(ms *model.Store, c *config.Config) *phase {
	p := &phase{name: "models"}
	for _, h := range domain.HazardTypes {
		versions, err := ms.Versions(h)
		if err != nil {
			p.errorf("%s: %v", h, err)
			continue
		}
		a, err := ms.Load(h)
		if err != nil {
			if len(versions) > 0 {
				p.errorf("%s: %v (%d stored versions, latest pointer unusable)", h, err, len(versions))
			} else {
				p.errorf("%s: %v", h, err)
			}
			continue
		}
		p.notef("%s: %d stored version(s), latest %s", h, len(versions), a.Version)
		if err := a.Validate(); err != nil {
			p.errorf("%s %s: %v", h, a.Version, err)
			continue
		}
		params := c.Params(h)
		if !a.Params.SameFeatureSemantics(params) {
			p.errorf("%s %s: trained with different feature parameters than configured", h, a.Version)
		}
		if want := features.Schema(params); !slices.Equal(a.FeatureNames, want) {
			p.errorf("%s %s: %v: artifact has %d features, schema has %d",
				h, a.Version, domain.ErrFeatureSchemaMismatch, len(a.FeatureNames), len(want))
		}
		if a.Threshold != params.Threshold && params.TargetRecall == 0 {
			p.warnf("%s %s: artifact threshold %.2f differs from configured %.2f", h, a.Version, a.Threshold, params.Threshold)
		}
		if a.Metrics.LowConfidence {
			p.warnf("%s %s: low-confidence model: %v", h, a.Version, a.Metrics.Warnings)
		}
	}
	return p
}

// validateRoutes checks that every waypoint resolves to a site by name or
// within the fallback radius.
func validateRoutes(sites []domain.Site, routes []risk.Route) *phase {
	p := &phase{name: "routes"}
	preds := make([]risk.SitePrediction, len(sites))
	for i, s := range sites {
		preds[i] = risk.SitePrediction{Site: s}
	}
	e := risk.NewEvaluator(preds, risk.DefaultFallbackRadiusKM)
	for _, r := range routes {
		if len(r.Waypoints) < 2 {
			p.warnf("route %s has %d waypoint(s)", r.ID, len(r.Waypoints))
		}
		for _, w := range r.Waypoints {
			if _, _, ok := e.Resolve(w); !ok {
				p.errorf("route %s waypoint %d (%s): no site within %.0f km", r.ID, w.Order, w.Name, risk.DefaultFallbackRadiusKM)
			}
		}
	}
	return p
}

func report(w io.Writer, phases []*phase) bool {
	ok := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = "FAIL"
			ok = false
		}
		fmt.Fprintf(w, "[%s] %s\n", status, p.name)
		for _, e := range p.errors {
			fmt.Fprintf(w, "  error: %s\n", e)
		}
		for _, warning := range p.warnings {
			fmt.Fprintf(w, "  warning: %s\n", warning)
		}
		for _, n := range p.notes {
			fmt.Fprintf(w, "  %s\n", n)
		}
	}
	return ok
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
