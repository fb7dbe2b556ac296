package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	httpapi "github.com/i474232898/weather-stats/internal/api/http"
	"github.com/i474232898/weather-stats/internal/config"
	"github.com/i474232898/weather-stats/internal/metrics"
	"github.com/i474232898/weather-stats/internal/scheduler"
	"github.com/i474232898/weather-stats/internal/store"
	"github.com/i474232898/weather-stats/internal/weather"
	"github.com/i474232898/weather-stats/internal/weather/providers"
)

const serviceName = "weather-stats"

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}

	logrus.SetLevel(cfg.LogLevel)
	if cfg.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	log := logrus.WithField("service", serviceName)

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reports, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to open report store")
	}
	defer closeStore()

	// Providers are tried in order; Open-Meteo needs no key.
	provs := []weather.Provider{providers.NewOpenMeteoProvider(httpClient)}
	if cfg.WeatherAPIKey != "" {
		provs = append(provs, providers.NewWeatherAPIProvider(httpClient, cfg.WeatherAPIKey))
	}

	m := metrics.New()
	opts := []weather.Option{
		weather.WithRecorder(m),
		weather.WithTimezone(cfg.Timezone),
		weather.WithLogger(logrus.WithField("component", "weather")),
	}
	if cfg.GeocoderAPIKey != "" {
		g, err := providers.NewGoogleGeocoder(cfg.GeocoderAPIKey)
		if err != nil {
			log.WithError(err).Fatal("failed to create geocoder")
		}
		opts = append(opts, weather.WithGeocoder(g))
	} else {
		log.Info("GEOCODER_API_KEY not set; only locations with coordinates are served")
	}

	// Core service orchestrating providers, statistics and store.
	service := weather.NewService(reports, provs, opts...)

	// Scheduler that periodically refreshes tracked locations.
	sched := scheduler.New(scheduler.Job{
		Locations: cfg.Locations,
		Variables: cfg.Variables,
		PastDays:  cfg.DefaultPastDays,
		Interval:  cfg.FetchInterval,
	}, service)
	if err := sched.Start(); err != nil {
		log.WithError(err).Fatal("failed to start scheduler")
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          2 * cfg.HTTPTimeout,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.New(logger.Config{
		Format: "${time} | ${locals:requestid} | ${status} | ${latency} | ${method} | ${path}\n",
	}))
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": serviceName,
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	// API routes.
	httpapi.RegisterRoutes(app, service)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.WithError(err).Error("fiber server stopped")
		}
	}()
	log.WithField("port", cfg.Port).Info("listening")

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.WithError(err).Error("error during shutdown")
	}
}

// openStore returns the configured report store and a function releasing it.
func openStore(ctx context.Context, cfg *config.AppConfig) (weather.Store, func(), error) {
	if cfg.StoreBackend == "redis" {
		rs, err := store.NewRedisStore(ctx, cfg.RedisURL, cfg.StoreMaxHistory, cfg.StoreMaxAge)
		if err != nil {
			return nil, nil, err
		}
		return rs, func() {
			if err := rs.Close(); err != nil {
				logrus.WithError(err).Warn("closing redis store")
			}
		}, nil
	}
	return store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge), func() {}, nil
}
