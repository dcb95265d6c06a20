package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/riskradar/internal/domain"
)

// csvTable indexes a CSV header so rows can be read by column name.
type csvTable struct {
	r    *csv.Reader
	cols map[string]int
	line int
}

func newCSVTable(r io.Reader, required ...string) (*csvTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	t := &csvTable{r: cr, cols: make(map[string]int, len(header)), line: 1}
	for i, h := range header {
		t.cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range required {
		if _, ok := t.cols[c]; !ok {
			return nil, fmt.Errorf("missing column %q", c)
		}
	}
	return t, nil
}

// next returns the next row, or nil at EOF.
func (t *csvTable) next() ([]string, error) {
	rec, err := t.r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	t.line++
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", t.line, err)
	}
	return rec, nil
}

func (t *csvTable) has(col string) bool {
	_, ok := t.cols[col]
	return ok
}

func (t *csvTable) str(rec []string, col string) string {
	i, ok := t.cols[col]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func (t *csvTable) float(rec []string, col string) (float64, error) {
	v := t.str(rec, col)
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("line %d: %s %q: %w", t.line, col, v, err)
	}
	return f, nil
}

// ReadFIRMSCSV parses a NASA FIRMS active-fire CSV export. acq_time is
// HHMM in UTC. VIIRS exports name brightness bright_ti4, MODIS exports
// name it brightness.
func ReadFIRMSCSV(r io.Reader) ([]domain.HazardEvent, error) {
	t, err := newCSVTable(r, "latitude", "longitude", "acq_date", "frp")
	if err != nil {
		return nil, fmt.Errorf("firms csv: %w", err)
	}
	brightCol := "brightness"
	if !t.has(brightCol) {
		brightCol = "bright_ti4"
	}

	var out []domain.HazardEvent
	for {
		rec, err := t.next()
		if err != nil {
			return nil, fmt.Errorf("firms csv: %w", err)
		}
		if rec == nil {
			return out, nil
		}

		e := domain.HazardEvent{Hazard: domain.HazardFire}
		if e.Lat, err = t.float(rec, "latitude"); err != nil {
			return nil, fmt.Errorf("firms csv: %w", err)
		}
		if e.Lon, err = t.float(rec, "longitude"); err != nil {
			return nil, fmt.Errorf("firms csv: %w", err)
		}
		if e.RadiativePower, err = t.float(rec, "frp"); err != nil {
			return nil, fmt.Errorf("firms csv: %w", err)
		}
		if t.has(brightCol) {
			if e.Brightness, err = t.float(rec, brightCol); err != nil {
				return nil, fmt.Errorf("firms csv: %w", err)
			}
		}
		if e.Time, err = firmsTime(t.str(rec, "acq_date"), t.str(rec, "acq_time")); err != nil {
			return nil, fmt.Errorf("firms csv: line %d: %w", t.line, err)
		}
		if err := e.Point().Validate(); err != nil {
			return nil, fmt.Errorf("firms csv: line %d: %w", t.line, err)
		}
		out = append(out, e)
	}
}

func firmsTime(date, hhmm string) (time.Time, error) {
	day, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("acq_date %q: %w", date, err)
	}
	if hhmm == "" {
		return day, nil
	}
	n, err := strconv.Atoi(hhmm)
	if err != nil || n < 0 || n >= 2400 || n%100 >= 60 {
		return time.Time{}, fmt.Errorf("acq_time %q: invalid", hhmm)
	}
	return day.Add(time.Duration(n/100)*time.Hour + time.Duration(n%100)*time.Minute), nil
}

// ReadUSGSCSV parses a USGS earthquake catalog CSV (the fdsnws format=csv
// layout). Depth and place are optional.
func ReadUSGSCSV(r io.Reader) ([]domain.HazardEvent, error) {
	t, err := newCSVTable(r, "time", "latitude", "longitude", "mag")
	if err != nil {
		return nil, fmt.Errorf("usgs csv: %w", err)
	}

	var out []domain.HazardEvent
	for {
		rec, err := t.next()
		if err != nil {
			return nil, fmt.Errorf("usgs csv: %w", err)
		}
		if rec == nil {
			return out, nil
		}
		if t.str(rec, "mag") == "" {
			continue
		}

		e := domain.HazardEvent{Hazard: domain.HazardQuake, Place: t.str(rec, "place")}
		if e.Lat, err = t.float(rec, "latitude"); err != nil {
			return nil, fmt.Errorf("usgs csv: %w", err)
		}
		if e.Lon, err = t.float(rec, "longitude"); err != nil {
			return nil, fmt.Errorf("usgs csv: %w", err)
		}
		if e.Magnitude, err = t.float(rec, "mag"); err != nil {
			return nil, fmt.Errorf("usgs csv: %w", err)
		}
		if t.str(rec, "depth") != "" {
			d, err := t.float(rec, "depth")
			if err != nil {
				return nil, fmt.Errorf("usgs csv: %w", err)
			}
			e.Depth = &d
		}
		if e.Time, err = time.Parse(time.RFC3339Nano, t.str(rec, "time")); err != nil {
			return nil, fmt.Errorf("usgs csv: line %d: time: %w", t.line, err)
		}
		e.Time = e.Time.UTC()
		if err := e.Point().Validate(); err != nil {
			return nil, fmt.Errorf("usgs csv: line %d: %w", t.line, err)
		}
		out = append(out, e)
	}
}
