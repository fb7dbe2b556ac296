package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // response timezones are resolved by name

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-stats/internal/weather"
)

// openMeteoTimeLayout is the local-time format of hourly.time entries.
const openMeteoTimeLayout = "2006-01-02T15:04"

// OpenMeteoProvider implements the weather.Provider interface for Open-Meteo.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(client *http.Client) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: "https://api.open-meteo.com/v1/forecast",
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: defaultBackoff,
		},
		circuit: newBreaker("openmeteo"),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

type openMeteoPayload struct {
	Timezone         string                     `json:"timezone"`
	UTCOffsetSeconds int                        `json:"utc_offset_seconds"`
	HourlyUnits      map[string]string          `json:"hourly_units"`
	Hourly           map[string]json.RawMessage `json:"hourly"`
}

func (p *OpenMeteoProvider) FetchHourly(ctx context.Context, q weather.Query) (weather.HourlyReport, error) {
	if !q.Location.HasCoordinates() {
		return weather.HourlyReport{}, fmt.Errorf("openmeteo requires latitude and longitude")
	}
	if len(q.Variables) == 0 {
		return weather.HourlyReport{}, fmt.Errorf("%w: no hourly variables requested", errUnsupported)
	}

	var payload openMeteoPayload
	if err := getJSON(ctx, p.httpCfg, p.circuit, p.requestURL(q), &payload); err != nil {
		return weather.HourlyReport{}, err
	}

	tz := resolveZone(payload.Timezone, payload.UTCOffsetSeconds)

	var rawTimes []string
	if err := json.Unmarshal(payload.Hourly["time"], &rawTimes); err != nil {
		return weather.HourlyReport{}, fmt.Errorf("%w: hourly.time: %v", errMalformedReply, err)
	}
	times := make([]time.Time, len(rawTimes))
	for i, raw := range rawTimes {
		ts, err := time.ParseInLocation(openMeteoTimeLayout, raw, tz)
		if err != nil {
			return weather.HourlyReport{}, fmt.Errorf("%w: hourly.time[%d]: %v", errMalformedReply, i, err)
		}
		times[i] = ts
	}

	report := weather.HourlyReport{
		Provider:  p.name,
		Location:  q.Location,
		Timezone:  tz.String(),
		FetchedAt: time.Now().UTC(),
		Series:    make(map[weather.Variable]weather.HourlySeries, len(q.Variables)),
	}

	for _, v := range q.Variables {
		raw, ok := payload.Hourly[string(v)]
		if !ok {
			continue
		}
		var values []*float64
		if err := json.Unmarshal(raw, &values); err != nil {
			return weather.HourlyReport{}, fmt.Errorf("%w: hourly.%s: %v", errMalformedReply, v, err)
		}
		if len(values) != len(times) {
			return weather.HourlyReport{}, fmt.Errorf("%w: hourly.%s has %d values for %d timestamps",
				errMalformedReply, v, len(values), len(times))
		}

		readings := make([]weather.Reading, len(values))
		for i := range values {
			readings[i] = weather.Reading{Time: times[i], Value: values[i]}
		}
		report.Series[v] = weather.HourlySeries{
			Variable: v,
			Unit:     payload.HourlyUnits[string(v)],
			Readings: readings,
		}
	}

	return report, nil
}

func (p *OpenMeteoProvider) requestURL(q weather.Query) string {
	names := make([]string, len(q.Variables))
	for i, v := range q.Variables {
		names[i] = string(v)
	}

	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(*q.Location.Lat, 'f', 4, 64))
	values.Set("longitude", strconv.FormatFloat(*q.Location.Lon, 'f', 4, 64))
	values.Set("hourly", strings.Join(names, ","))
	values.Set("past_days", strconv.Itoa(q.PastDays))
	values.Set("forecast_days", strconv.Itoa(q.Forecast()))
	if q.Timezone != "" {
		values.Set("timezone", q.Timezone)
	}
	return p.baseURL + "?" + values.Encode()
}

// resolveZone loads the named zone, falling back to the fixed offset the
// response reports.
func resolveZone(name string, offsetSeconds int) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	if offsetSeconds == 0 {
		return time.UTC
	}
	return time.FixedZone(name, offsetSeconds)
}
