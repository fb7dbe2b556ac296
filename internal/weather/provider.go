package weather

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUnknownVariable = errors.New("unknown weather variable")
	ErrVariableMissing = errors.New("variable not present in provider response")
	ErrNoProviders     = errors.New("no weather providers configured")
	ErrUnknownView     = errors.New("unknown view")
	ErrNoLocation      = errors.New("location needs coordinates or a city name")
)

// Provider abstracts an hourly weather data source (e.g. Open-Meteo, WeatherAPI).
type Provider interface {
	Name() string
	FetchHourly(ctx context.Context, q Query) (HourlyReport, error)
}

// Geocoder resolves a named location to coordinates.
type Geocoder interface {
	Resolve(ctx context.Context, loc Location) (Location, error)
}

// Store is the contract the report stores must satisfy.
type Store interface {
	Save(ctx context.Context, report StatisticsReport) error
	Latest(ctx context.Context, loc Location, v Variable) (StatisticsReport, error)
	Range(ctx context.Context, loc Location, v Variable, from, to time.Time) ([]StatisticsReport, error)
}

// Recorder receives operational measurements from the Service.
type Recorder interface {
	ObserveFetch(provider string, took time.Duration, err error)
	ObserveStatistics(v Variable, err error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveFetch(string, time.Duration, error) {}
func (nopRecorder) ObserveStatistics(Variable, error)         {}
