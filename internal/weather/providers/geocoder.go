package providers

import (
	"context"
	"fmt"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-stats/internal/weather"
)

// geocodeFunc matches geocoder.Geocoding; swapped in tests.
type geocodeFunc func(geocoder.Address) (geocoder.Location, error)

// GoogleGeocoder resolves city names through the Google Geocoding API.
// Results are cached per location key for the life of the process.
type GoogleGeocoder struct {
	geocode geocodeFunc

	mu    sync.RWMutex
	cache map[string]weather.Location
}

// NewGoogleGeocoder configures the geocoder package with apiKey.
func NewGoogleGeocoder(apiKey string) (*GoogleGeocoder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("geocoder: %w", errMissingAPIKey)
	}
	geocoder.ApiKey = apiKey
	return newGoogleGeocoder(geocoder.Geocoding), nil
}

func newGoogleGeocoder(fn geocodeFunc) *GoogleGeocoder {
	return &GoogleGeocoder{
		geocode: fn,
		cache:   make(map[string]weather.Location),
	}
}

// Resolve returns loc with coordinates filled in.
func (g *GoogleGeocoder) Resolve(ctx context.Context, loc weather.Location) (weather.Location, error) {
	if loc.HasCoordinates() {
		return loc, nil
	}
	if err := ctx.Err(); err != nil {
		return weather.Location{}, err
	}

	key := loc.Key()
	g.mu.RLock()
	cached, ok := g.cache[key]
	g.mu.RUnlock()
	if ok {
		return cached, nil
	}

	res, err := g.geocode(geocoder.Address{City: loc.Name, Country: loc.Country})
	if err != nil {
		return weather.Location{}, err
	}

	resolved := loc
	resolved.Lat = &res.Latitude
	resolved.Lon = &res.Longitude

	g.mu.Lock()
	g.cache[key] = resolved
	g.mu.Unlock()
	return resolved, nil
}
