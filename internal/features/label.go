package features

import (
	"context"
	"fmt"
	"time"

	"github.com/couchcryptid/riskradar/internal/domain"
)

// Label reports whether a qualifying event occurred within p.LabelRadiusKM of
// the site in the lookahead window (ref, ref+horizon]. An event exactly at ref
// is excluded; an event exactly at ref+horizon or exactly at the radius is included.
func Label(ctx context.Context, events domain.EventStore, site domain.Site, ref time.Time, p domain.HazardParams) (int, error) {
	end := ref.Add(p.Horizon())
	found, err := events.Events(ctx, domain.EventQuery{
		Hazard:   p.Hazard,
		Center:   site.Point(),
		RadiusKM: p.LabelRadiusKM,
		From:     ref,
		To:       end,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %s events for %s at %s: %w", domain.ErrDataUnavailable, p.Hazard, site.Name, ref.Format(time.RFC3339), err)
	}

	for _, e := range found {
		if !e.Time.After(ref) || e.Time.After(end) {
			continue
		}
		if e.Intensity() < p.MinIntensity {
			continue
		}
		if !domain.WithinRadius(site.Point(), e.Point(), p.LabelRadiusKM) {
			continue
		}
		return 1, nil
	}
	return 0, nil
}
