// Package store persists hazard events and daily weather in SQLite and
// serves them back as the event store and weather source the feature
// builder reads from.
package store

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/couchcryptid/riskradar/internal/domain"
)

// kmPerDegree is the length of one degree of latitude on the mean-radius sphere.
const kmPerDegree = math.Pi * domain.EarthRadiusKM / 180

// SQLiteStore implements domain.EventStore and domain.WeatherSource using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Event times are unix milliseconds. Weather locations are rounded to four
// decimals so lookups by site coordinates are exact.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS events (
	hazard          TEXT    NOT NULL,
	lat             REAL    NOT NULL,
	lon             REAL    NOT NULL,
	ts              INTEGER NOT NULL,
	brightness      REAL    NOT NULL DEFAULT 0,
	radiative_power REAL    NOT NULL DEFAULT 0,
	magnitude       REAL    NOT NULL DEFAULT 0,
	depth           REAL,
	place           TEXT    NOT NULL DEFAULT '',
	UNIQUE (hazard, lat, lon, ts)
);

CREATE TABLE IF NOT EXISTS daily_weather (
	lat           REAL NOT NULL,
	lon           REAL NOT NULL,
	day           TEXT NOT NULL,
	temp_mean     REAL NOT NULL,
	temp_max      REAL NOT NULL,
	temp_min      REAL NOT NULL,
	humidity_mean REAL NOT NULL,
	humidity_min  REAL NOT NULL,
	wind_max      REAL NOT NULL,
	precipitation REAL NOT NULL,
	PRIMARY KEY (lat, lon, day)
);

CREATE INDEX IF NOT EXISTS idx_events_hazard_ts ON events(hazard, ts);
CREATE INDEX IF NOT EXISTS idx_events_hazard_lat ON events(hazard, lat);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

// InsertEvents stores events, skipping exact duplicates. It returns the
// number of new rows.
func (s *SQLiteStore) InsertEvents(ctx context.Context, events []domain.HazardEvent) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin insert events")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO events
		(hazard, lat, lon, ts, brightness, radiative_power, magnitude, depth, place)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert events")
	}
	defer stmt.Close()

	inserted := 0
	for _, e := range events {
		if err := e.Point().Validate(); err != nil {
			return 0, eris.Wrapf(err, "sqlite: event at %s", e.Time.Format(time.RFC3339))
		}
		var depth sql.NullFloat64
		if e.Depth != nil {
			depth = sql.NullFloat64{Float64: *e.Depth, Valid: true}
		}
		res, err := stmt.ExecContext(ctx, string(e.Hazard), e.Lat, e.Lon, e.Time.UnixMilli(),
			e.Brightness, e.RadiativePower, e.Magnitude, depth, e.Place)
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: insert event")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, eris.Wrap(err, "rows affected")
		}
		inserted += int(n)
	}
	return inserted, eris.Wrap(tx.Commit(), "sqlite: commit events")
}

// Events returns events of q.Hazard within q.RadiusKM of q.Center whose
// time falls in [q.From, q.To], ordered by time. A bounding box narrows the
// scan and the great-circle distance decides membership.
func (s *SQLiteStore) Events(ctx context.Context, q domain.EventQuery) ([]domain.HazardEvent, error) {
	if err := q.Center.Validate(); err != nil {
		return nil, err
	}
	box := boundingBox(q.Center, q.RadiusKM)

	query := `SELECT hazard, lat, lon, ts, brightness, radiative_power, magnitude, depth, place
		FROM events WHERE hazard = ? AND ts >= ? AND ts <= ? AND lat >= ? AND lat <= ?`
	args := []any{string(q.Hazard), q.From.UnixMilli(), q.To.UnixMilli(), box.minLat, box.maxLat}
	if box.lonBounded {
		query += ` AND lon >= ? AND lon <= ?`
		args = append(args, box.minLon, box.maxLon)
	}
	query += ` ORDER BY ts`

	events, err := s.queryEvents(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query %s events", q.Hazard)
	}
	out := events[:0]
	for _, e := range events {
		if domain.WithinRadius(q.Center, e.Point(), q.RadiusKM) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Recent returns up to limit events of hazard h in [from, to], newest first.
func (s *SQLiteStore) Recent(ctx context.Context, h domain.HazardType, from, to time.Time, limit int) ([]domain.HazardEvent, error) {
	events, err := s.queryEvents(ctx, `SELECT hazard, lat, lon, ts, brightness, radiative_power, magnitude, depth, place
		FROM events WHERE hazard = ? AND ts >= ? AND ts <= ? ORDER BY ts DESC LIMIT ?`,
		string(h), from.UnixMilli(), to.UnixMilli(), limit)
	return events, eris.Wrapf(err, "sqlite: recent %s events", h)
}

// EventSummary describes the stored events of one hazard type.
type EventSummary struct {
	Hazard domain.HazardType
	Count  int
	First  time.Time
	Last   time.Time
}

// Summary reports per-hazard event counts and time ranges.
func (s *SQLiteStore) Summary(ctx context.Context) ([]EventSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT hazard, COUNT(*), MIN(ts), MAX(ts) FROM events GROUP BY hazard ORDER BY hazard`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: summarize events")
	}
	defer rows.Close()

	var out []EventSummary
	for rows.Next() {
		var (
			sum         EventSummary
			hazard      string
			first, last int64
		)
		if err := rows.Scan(&hazard, &sum.Count, &first, &last); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan summary")
		}
		sum.Hazard = domain.HazardType(hazard)
		sum.First, sum.Last = time.UnixMilli(first).UTC(), time.UnixMilli(last).UTC()
		out = append(out, sum)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: summarize iterate")
}

// InsertWeather upserts daily weather for a location.
func (s *SQLiteStore) InsertWeather(ctx context.Context, p domain.Point, days []domain.DailyWeather) error {
	if err := p.Validate(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin insert weather")
	}
	defer tx.Rollback() //nolint:errcheck

	lat, lon := roundCoord(p.Lat), roundCoord(p.Lon)
	for _, d := range days {
		_, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO daily_weather
			(lat, lon, day, temp_mean, temp_max, temp_min, humidity_mean, humidity_min, wind_max, precipitation)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			lat, lon, d.Date.UTC().Format(time.DateOnly),
			d.TempMean, d.TempMax, d.TempMin, d.HumidityMean, d.HumidityMin, d.WindMax, d.Precipitation)
		if err != nil {
			return eris.Wrap(err, "sqlite: insert weather")
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit weather")
}

// DailyWeather returns stored days for p in [from, to] by calendar date, ascending.
func (s *SQLiteStore) DailyWeather(ctx context.Context, p domain.Point, from, to time.Time) ([]domain.DailyWeather, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT day, temp_mean, temp_max, temp_min, humidity_mean, humidity_min, wind_max, precipitation
		FROM daily_weather WHERE lat = ? AND lon = ? AND day >= ? AND day <= ? ORDER BY day`,
		roundCoord(p.Lat), roundCoord(p.Lon), from.UTC().Format(time.DateOnly), to.UTC().Format(time.DateOnly))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query weather")
	}
	defer rows.Close()

	var out []domain.DailyWeather
	for rows.Next() {
		var (
			d   domain.DailyWeather
			day string
		)
		if err := rows.Scan(&day, &d.TempMean, &d.TempMax, &d.TempMin, &d.HumidityMean, &d.HumidityMin, &d.WindMax, &d.Precipitation); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan weather")
		}
		if d.Date, err = time.Parse(time.DateOnly, day); err != nil {
			return nil, eris.Wrapf(err, "sqlite: parse day %q", day)
		}
		out = append(out, d)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: weather iterate")
}

func (s *SQLiteStore) queryEvents(ctx context.Context, query string, args ...any) ([]domain.HazardEvent, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.HazardEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanEvent(row scannable) (domain.HazardEvent, error) {
	var (
		e      domain.HazardEvent
		hazard string
		ts     int64
		depth  sql.NullFloat64
	)
	err := row.Scan(&hazard, &e.Lat, &e.Lon, &ts, &e.Brightness, &e.RadiativePower, &e.Magnitude, &depth, &e.Place)
	if errors.Is(err, sql.ErrNoRows) {
		return e, eris.New("event not found")
	}
	if err != nil {
		return e, eris.Wrap(err, "sqlite: scan event")
	}
	e.Hazard = domain.HazardType(hazard)
	e.Time = time.UnixMilli(ts).UTC()
	if depth.Valid {
		e.Depth = &depth.Float64
	}
	return e, nil
}

type box struct {
	minLat, maxLat float64
	minLon, maxLon float64
	lonBounded     bool
}

// boundingBox returns a lat/lon rectangle containing every point within
// radiusKM of c, padded slightly so boundary points survive rounding. The
// longitude bound is dropped near the poles and when the box would cross the
// antimeridian.
func boundingBox(c domain.Point, radiusKM float64) box {
	dLat := radiusKM/kmPerDegree*1.001 + 1e-9
	b := box{minLat: c.Lat - dLat, maxLat: c.Lat + dLat}
	if b.minLat <= -90 || b.maxLat >= 90 {
		return b
	}
	cos := math.Cos(math.Max(math.Abs(b.minLat), math.Abs(b.maxLat)) * math.Pi / 180)
	dLon := dLat / cos
	if c.Lon-dLon < -180 || c.Lon+dLon > 180 {
		return b
	}
	b.minLon, b.maxLon, b.lonBounded = c.Lon-dLon, c.Lon+dLon, true
	return b
}

func roundCoord(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
