package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-stats/internal/weather"
)

// WeatherAPIProvider implements the weather.Provider interface for WeatherAPI.com.
// Only forecast hours are available; queries with past days are rejected.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewWeatherAPIProvider(client *http.Client, apiKey string) *WeatherAPIProvider {
	return &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: "https://api.weatherapi.com/v1/forecast.json",
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: defaultBackoff,
		},
		circuit: newBreaker("weatherapi"),
	}
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

type weatherAPIHour struct {
	TimeEpoch  int64   `json:"time_epoch"`
	TempC      float64 `json:"temp_c"`
	Humidity   float64 `json:"humidity"`
	WindKph    float64 `json:"wind_kph"`
	PressureMb float64 `json:"pressure_mb"`
	PrecipMm   float64 `json:"precip_mm"`
	SnowCm     float64 `json:"snow_cm"`
	Cloud      float64 `json:"cloud"`
}

// weatherAPIFields maps variables onto hourly fields, with the unit Open-Meteo
// would report for them. Rain alone is not reported, only total precipitation.
var weatherAPIFields = map[weather.Variable]struct {
	unit  string
	value func(h weatherAPIHour) float64
}{
	weather.Temperature2m:      {"°C", func(h weatherAPIHour) float64 { return h.TempC }},
	weather.RelativeHumidity2m: {"%", func(h weatherAPIHour) float64 { return h.Humidity }},
	weather.Precipitation:      {"mm", func(h weatherAPIHour) float64 { return h.PrecipMm }},
	weather.Snowfall:           {"cm", func(h weatherAPIHour) float64 { return h.SnowCm }},
	weather.WindSpeed10m:       {"km/h", func(h weatherAPIHour) float64 { return h.WindKph }},
	weather.CloudCover:         {"%", func(h weatherAPIHour) float64 { return h.Cloud }},
	weather.SurfacePressure:    {"hPa", func(h weatherAPIHour) float64 { return h.PressureMb }},
}

func (p *WeatherAPIProvider) FetchHourly(ctx context.Context, q weather.Query) (weather.HourlyReport, error) {
	if p.apiKey == "" {
		return weather.HourlyReport{}, fmt.Errorf("weatherapi: %w", errMissingAPIKey)
	}
	if q.PastDays > 0 {
		return weather.HourlyReport{}, fmt.Errorf("weatherapi: %w: past days", errUnsupported)
	}

	var payload struct {
		Location struct {
			TzID string `json:"tz_id"`
		} `json:"location"`
		Forecast struct {
			ForecastDay []struct {
				Hour []weatherAPIHour `json:"hour"`
			} `json:"forecastday"`
		} `json:"forecast"`
	}
	if err := getJSON(ctx, p.httpCfg, p.circuit, p.requestURL(q), &payload); err != nil {
		return weather.HourlyReport{}, err
	}

	tz := resolveZone(payload.Location.TzID, 0)

	var hours []weatherAPIHour
	for _, day := range payload.Forecast.ForecastDay {
		hours = append(hours, day.Hour...)
	}

	report := weather.HourlyReport{
		Provider:  p.name,
		Location:  q.Location,
		Timezone:  tz.String(),
		FetchedAt: time.Now().UTC(),
		Series:    make(map[weather.Variable]weather.HourlySeries, len(q.Variables)),
	}

	for _, v := range q.Variables {
		field, ok := weatherAPIFields[v]
		if !ok {
			continue
		}
		readings := make([]weather.Reading, len(hours))
		for i, h := range hours {
			value := field.value(h)
			readings[i] = weather.Reading{
				Time:  time.Unix(h.TimeEpoch, 0).In(tz),
				Value: &value,
			}
		}
		report.Series[v] = weather.HourlySeries{Variable: v, Unit: field.unit, Readings: readings}
	}

	return report, nil
}

func (p *WeatherAPIProvider) requestURL(q weather.Query) string {
	values := url.Values{}
	values.Set("key", p.apiKey)
	// WeatherAPI uses "q" for location; it accepts "city,country" or "lat,lon".
	if q.Location.HasCoordinates() {
		values.Set("q", fmt.Sprintf("%f,%f", *q.Location.Lat, *q.Location.Lon))
	} else {
		loc := q.Location.Name
		if q.Location.Country != "" {
			loc = fmt.Sprintf("%s,%s", q.Location.Name, q.Location.Country)
		}
		values.Set("q", loc)
	}
	values.Set("days", strconv.Itoa(max(1, min(q.Forecast(), 14))))
	values.Set("aqi", "no")
	values.Set("alerts", "no")
	return p.baseURL + "?" + values.Encode()
}
