package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // TIMEZONE is validated by name

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/i474232898/weather-stats/internal/common"
	"github.com/i474232898/weather-stats/internal/weather"
)

type AppConfig struct {
	Port        string        `validate:"required,numeric"`
	HTTPTimeout time.Duration `validate:"gt=0"`

	WeatherAPIKey  string
	GeocoderAPIKey string

	// FetchInterval controls how often tracked locations are refreshed.
	FetchInterval time.Duration `validate:"gte=1m"`

	// Locations and variables the scheduler keeps statistics for.
	Locations       []weather.Location
	Variables       []weather.Variable `validate:"min=1"`
	DefaultPastDays int                `validate:"gte=0,lte=92"`
	Timezone        string             `validate:"required,timezone"`

	// Report store.
	StoreBackend    string        `validate:"oneof=memory redis"`
	RedisURL        string        `validate:"required_if=StoreBackend redis"`
	StoreMaxHistory int           // max number of reports per location and variable (0 = unlimited)
	StoreMaxAge     time.Duration // max age of reports (0 = unlimited)

	LogLevel  logrus.Level
	LogFormat string `validate:"oneof=text json"`
}

var validate = validator.New()

// Load reads configuration from environment with sensible defaults.
// A .env file in the working directory is loaded first when present.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		logrus.WithError(err).Debug("no .env file loaded")
	}
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.WeatherAPIKey = os.Getenv("WEATHERAPI_API_KEY")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	// Scheduler interval: default 15 minutes.
	if cfg.FetchInterval, err = getenvDuration("FETCH_INTERVAL", "15m"); err != nil {
		return nil, err
	}

	if cfg.Locations, err = parseLocations(getenvDefault("TRACKED_LOCATIONS", "Tampere:61.4991:23.7871,Berlin:52.52:13.41")); err != nil {
		return nil, err
	}
	if cfg.Variables, err = weather.ParseVariables(common.SplitList(getenvDefault("TRACKED_VARIABLES", "temperature_2m,rain,wind_speed_10m"))); err != nil {
		return nil, fmt.Errorf("invalid TRACKED_VARIABLES: %w", err)
	}
	if cfg.DefaultPastDays, err = getenvInt("DEFAULT_PAST_DAYS", 7); err != nil {
		return nil, err
	}
	cfg.Timezone = getenvDefault("TIMEZONE", "Europe/Helsinki")

	cfg.StoreBackend = getenvDefault("STORE_BACKEND", "memory")
	cfg.RedisURL = os.Getenv("REDIS_URL")
	// Roughly 24h at 15-minute intervals.
	if cfg.StoreMaxHistory, err = getenvInt("STORE_MAX_HISTORY", 96); err != nil {
		return nil, err
	}
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", "24h"); err != nil {
		return nil, err
	}

	if cfg.LogLevel, err = logrus.ParseLevel(getenvDefault("LOG_LEVEL", "info")); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	cfg.LogFormat = getenvDefault("LOG_FORMAT", "text")

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// parseLocations reads "Name:lat:lon" entries, or bare city names to be geocoded.
func parseLocations(s string) ([]weather.Location, error) {
	var locs []weather.Location
	for _, item := range common.SplitList(s) {
		parts := strings.Split(item, ":")
		switch len(parts) {
		case 1:
			locs = append(locs, weather.Location{Name: parts[0]})
		case 3:
			lat, err := strconv.ParseFloat(parts[1], 64)
			if err != nil || lat < -90 || lat > 90 {
				return nil, fmt.Errorf("invalid latitude in TRACKED_LOCATIONS entry %q", item)
			}
			lon, err := strconv.ParseFloat(parts[2], 64)
			if err != nil || lon < -180 || lon > 180 {
				return nil, fmt.Errorf("invalid longitude in TRACKED_LOCATIONS entry %q", item)
			}
			locs = append(locs, weather.NewCoordinates(parts[0], lat, lon))
		default:
			return nil, fmt.Errorf("TRACKED_LOCATIONS entry %q must be Name or Name:lat:lon", item)
		}
	}
	return locs, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
