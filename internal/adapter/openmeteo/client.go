package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/riskradar/internal/domain"
	"github.com/couchcryptid/riskradar/internal/observability"
)

// ArchiveURL is the Open-Meteo historical weather endpoint.
const ArchiveURL = "https://archive-api.open-meteo.com/v1/archive"

var dailyFields = []string{
	"temperature_2m_mean",
	"temperature_2m_max",
	"temperature_2m_min",
	"relative_humidity_2m_mean",
	"relative_humidity_2m_min",
	"windspeed_10m_max",
	"precipitation_sum",
}

// Client implements domain.WeatherSource using the Open-Meteo archive API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an Open-Meteo archive client.
func NewClient(timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: ArchiveURL,
		metrics: metrics,
		logger:  logger,
	}
}

// DailyWeather returns one record per day in [from, to] (dates in UTC).
// Days the archive reports with missing values are left out.
func (c *Client) DailyWeather(ctx context.Context, p domain.Point, from, to time.Time) ([]domain.DailyWeather, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	params := url.Values{
		"latitude":   {strconv.FormatFloat(p.Lat, 'f', 4, 64)},
		"longitude":  {strconv.FormatFloat(p.Lon, 'f', 4, 64)},
		"start_date": {from.UTC().Format(time.DateOnly)},
		"end_date":   {to.UTC().Format(time.DateOnly)},
		"daily":      {strings.Join(dailyFields, ",")},
		"timezone":   {"UTC"},
	}

	start := time.Now()
	days, err := c.doRequest(ctx, c.baseURL+"?"+params.Encode())
	c.metrics.WeatherAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.WeatherRequests.WithLabelValues("error").Inc()
		return nil, err
	}
	if len(days) == 0 {
		c.metrics.WeatherRequests.WithLabelValues("empty").Inc()
		return nil, nil
	}
	c.metrics.WeatherRequests.WithLabelValues("success").Inc()
	return days, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]domain.DailyWeather, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("open-meteo API error: status %d: %s", resp.StatusCode, body)
	}

	var omResp response
	if err := json.NewDecoder(resp.Body).Decode(&omResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return c.convert(omResp.Daily)
}

func (c *Client) convert(d daily) ([]domain.DailyWeather, error) {
	out := make([]domain.DailyWeather, 0, len(d.Time))
	for i, day := range d.Time {
		date, err := time.Parse(time.DateOnly, day)
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", day, err)
		}
		values, ok := d.row(i)
		if !ok {
			c.logger.Debug("weather day incomplete, skipping", "date", day)
			continue
		}
		out = append(out, domain.DailyWeather{
			Date:          date,
			TempMean:      values[0],
			TempMax:       values[1],
			TempMin:       values[2],
			HumidityMean:  values[3],
			HumidityMin:   values[4],
			WindMax:       values[5],
			Precipitation: values[6],
		})
	}
	return out, nil
}

// Open-Meteo API response types.

type response struct {
	Daily daily `json:"daily"`
}

// daily holds parallel arrays indexed by day. Values are null when the
// archive has no observation.
type daily struct {
	Time          []string   `json:"time"`
	TempMean      []*float64 `json:"temperature_2m_mean"`
	TempMax       []*float64 `json:"temperature_2m_max"`
	TempMin       []*float64 `json:"temperature_2m_min"`
	HumidityMean  []*float64 `json:"relative_humidity_2m_mean"`
	HumidityMin   []*float64 `json:"relative_humidity_2m_min"`
	WindMax       []*float64 `json:"windspeed_10m_max"`
	Precipitation []*float64 `json:"precipitation_sum"`
}

func (d daily) row(i int) ([7]float64, bool) {
	var out [7]float64
	cols := [7][]*float64{d.TempMean, d.TempMax, d.TempMin, d.HumidityMean, d.HumidityMin, d.WindMax, d.Precipitation}
	for j, col := range cols {
		if i >= len(col) || col[i] == nil {
			return out, false
		}
		out[j] = *col[i]
	}
	return out, true
}
