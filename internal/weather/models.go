package weather

import (
	"fmt"
	"strings"
	"time"

	"github.com/i474232898/weather-stats/internal/statistics"
)

// Variable is the name of an hourly weather variable, using Open-Meteo naming.
type Variable string

const (
	Temperature2m      Variable = "temperature_2m"
	RelativeHumidity2m Variable = "relative_humidity_2m"
	Precipitation      Variable = "precipitation"
	Rain               Variable = "rain"
	Snowfall           Variable = "snowfall"
	WindSpeed10m       Variable = "wind_speed_10m"
	CloudCover         Variable = "cloud_cover"
	SurfacePressure    Variable = "surface_pressure"
)

var knownVariables = map[Variable]struct{}{
	Temperature2m:      {},
	RelativeHumidity2m: {},
	Precipitation:      {},
	Rain:               {},
	Snowfall:           {},
	WindSpeed10m:       {},
	CloudCover:         {},
	SurfacePressure:    {},
}

// ParseVariable validates a variable name.
func ParseVariable(s string) (Variable, error) {
	v := Variable(strings.TrimSpace(s))
	if _, ok := knownVariables[v]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownVariable, s)
	}
	return v, nil
}

// ParseVariables validates a list of variable names, dropping duplicates.
func ParseVariables(names []string) ([]Variable, error) {
	seen := make(map[Variable]bool, len(names))
	out := make([]Variable, 0, len(names))
	for _, n := range names {
		v, err := ParseVariable(n)
		if err != nil {
			return nil, err
		}
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out, nil
}

// Location represents a logical place for which we track weather.
// Either coordinates or a city name must be provided.
type Location struct {
	Name    string   `json:"name,omitempty"`
	Country string   `json:"country,omitempty"`
	Lat     *float64 `json:"latitude,omitempty"`
	Lon     *float64 `json:"longitude,omitempty"`
}

// NewCoordinates builds a Location from a name and a coordinate pair.
func NewCoordinates(name string, lat, lon float64) Location {
	return Location{Name: name, Lat: &lat, Lon: &lon}
}

// HasCoordinates reports whether both latitude and longitude are set.
func (l Location) HasCoordinates() bool {
	return l.Lat != nil && l.Lon != nil
}

// Key returns a canonical string key for indexing this location in stores.
func (l Location) Key() string {
	if l.HasCoordinates() {
		return fmt.Sprintf("%.4f,%.4f", *l.Lat, *l.Lon)
	}
	return strings.ToLower(l.Name + ":" + l.Country)
}

func (l Location) String() string {
	if l.Name != "" {
		return l.Name
	}
	return l.Key()
}

// Query describes one hourly fetch.
type Query struct {
	Location     Location
	Variables    []Variable
	PastDays     int
	ForecastDays *int
	Timezone     string
}

// Forecast returns the number of forecast days to request. Without an
// explicit value one day is requested when no past days are, so the window
// is never empty.
func (q Query) Forecast() int {
	if q.ForecastDays != nil {
		return *q.ForecastDays
	}
	if q.PastDays == 0 {
		return 1
	}
	return 0
}

// Reading is one hourly observation. Value is nil where the provider has no data.
type Reading struct {
	Time  time.Time `json:"time"`
	Value *float64  `json:"value"`
}

// HourlySeries is a single named variable paired positionally with its timestamps.
type HourlySeries struct {
	Variable Variable  `json:"variable"`
	Unit     string    `json:"unit,omitempty"`
	Readings []Reading `json:"readings"`
}

// Values returns the non-null values in order. The result is never nil, so an
// all-null series is reported as empty rather than absent.
func (s HourlySeries) Values() []float64 {
	out := make([]float64, 0, len(s.Readings))
	for _, r := range s.Readings {
		if r.Value != nil {
			out = append(out, *r.Value)
		}
	}
	return out
}

// Last returns a copy of the series limited to its trailing n readings.
// n <= 0 keeps everything.
func (s HourlySeries) Last(n int) HourlySeries {
	out := s
	if n > 0 && len(s.Readings) > n {
		out.Readings = s.Readings[len(s.Readings)-n:]
	}
	return out
}

// Span returns the first and last timestamps of the series.
func (s HourlySeries) Span() (from, to time.Time) {
	if len(s.Readings) == 0 {
		return time.Time{}, time.Time{}
	}
	return s.Readings[0].Time, s.Readings[len(s.Readings)-1].Time
}

// HourlyReport is the normalized result of one provider fetch.
type HourlyReport struct {
	Provider  string                    `json:"provider"`
	Location  Location                  `json:"location"`
	Timezone  string                    `json:"timezone"`
	FetchedAt time.Time                 `json:"fetchedAt"`
	Series    map[Variable]HourlySeries `json:"series"`
}

// SeriesFor returns the series for v, or ErrVariableMissing.
func (r HourlyReport) SeriesFor(v Variable) (HourlySeries, error) {
	s, ok := r.Series[v]
	if !ok {
		return HourlySeries{}, fmt.Errorf("%w: %s from %s", ErrVariableMissing, v, r.Provider)
	}
	return s, nil
}

// StatisticsReport is a computed summary for one variable at one location.
type StatisticsReport struct {
	ID         string             `json:"id"`
	Location   Location           `json:"location"`
	Variable   Variable           `json:"variable"`
	Unit       string             `json:"unit,omitempty"`
	Provider   string             `json:"provider"`
	From       time.Time          `json:"from"`
	To         time.Time          `json:"to"`
	Summary    statistics.Summary `json:"summary"`
	ComputedAt time.Time          `json:"computedAt"` // always UTC
}
