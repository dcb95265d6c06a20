package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/couchcryptid/riskradar/internal/domain"
)

// WriteCSV writes both partitions as one table with a trailing "partition" column.
func WriteCSV(w io.Writer, ds *Dataset) error {
	cw := csv.NewWriter(w)

	header := append([]string{"site", "latitude_site", "longitude_site", "reference"}, ds.FeatureNames...)
	header = append(header, "label", "partition")
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, part := range []struct {
		name    string
		samples []domain.Sample
	}{
		{"train", ds.Train},
		{"test", ds.Test},
	} {
		for _, s := range part.samples {
			if len(s.Features) != len(ds.FeatureNames) {
				return fmt.Errorf("%w: sample for %s has %d features, schema has %d",
					domain.ErrFeatureSchemaMismatch, s.Site.Name, len(s.Features), len(ds.FeatureNames))
			}
			row := make([]string, 0, len(header))
			row = append(row,
				s.Site.Name,
				formatFloat(s.Site.Lat),
				formatFloat(s.Site.Lon),
				s.Reference.UTC().Format(time.RFC3339),
			)
			for _, f := range s.Features {
				row = append(row, formatFloat(f))
			}
			row = append(row, strconv.Itoa(s.Label), part.name)
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("write row: %w", err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
