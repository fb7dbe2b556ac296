package weather

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Service orchestrates fetching from providers, computing statistics and
// persisting reports.
type Service struct {
	store           Store
	providers       []Provider
	geocoder        Geocoder
	recorder        Recorder
	defaultTimezone string
	log             *logrus.Entry
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithGeocoder resolves locations without coordinates before fetching.
func WithGeocoder(g Geocoder) Option {
	return func(s *Service) { s.geocoder = g }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithTimezone sets the timezone used when a query has none.
func WithTimezone(tz string) Option {
	return func(s *Service) { s.defaultTimezone = tz }
}

// WithLogger sets the logger.
func WithLogger(l *logrus.Entry) Option {
	return func(s *Service) { s.log = l }
}

// NewService creates a new Service. Providers are tried in order.
func NewService(store Store, providers []Provider, opts ...Option) *Service {
	s := &Service{
		store:           store,
		providers:       providers,
		recorder:        nopRecorder{},
		defaultTimezone: "UTC",
		log:             logrus.WithField("component", "weather"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch resolves the query location and returns the first successful
// provider report.
func (s *Service) Fetch(ctx context.Context, q Query) (HourlyReport, error) {
	if len(s.providers) == 0 {
		return HourlyReport{}, ErrNoProviders
	}

	loc, err := s.resolve(ctx, q.Location)
	if err != nil {
		return HourlyReport{}, err
	}
	q.Location = loc
	if q.Timezone == "" {
		q.Timezone = s.defaultTimezone
	}

	var errs []error
	for _, p := range s.providers {
		start := time.Now()
		report, err := p.FetchHourly(ctx, q)
		s.recorder.ObserveFetch(p.Name(), time.Since(start), err)
		if err != nil {
			// Log and continue; the next provider may still answer.
			s.log.WithFields(logrus.Fields{
				"provider": p.Name(),
				"location": loc.String(),
			}).WithError(err).Warn("provider fetch failed")
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		report.Location = loc
		return report, nil
	}

	return HourlyReport{}, fmt.Errorf("all providers failed for %s: %w", loc, errors.Join(errs...))
}

// Readings fetches the hourly series for a single variable.
func (s *Service) Readings(ctx context.Context, q Query, v Variable) (HourlySeries, error) {
	q.Variables = []Variable{v}
	report, err := s.Fetch(ctx, q)
	if err != nil {
		return HourlySeries{}, err
	}
	return report.SeriesFor(v)
}

// Statistics fetches the series for v, computes its summary and stores the
// resulting report. Engine failures are logged and returned; callers skip
// display instead of rendering undefined values.
func (s *Service) Statistics(ctx context.Context, q Query, v Variable) (StatisticsReport, error) {
	q.Variables = []Variable{v}
	report, err := s.Fetch(ctx, q)
	if err != nil {
		return StatisticsReport{}, err
	}
	series, err := report.SeriesFor(v)
	if err != nil {
		return StatisticsReport{}, err
	}
	return s.summarizeAndSave(ctx, report, series)
}

// RefreshAndStore fetches all variables for loc in one request and stores a
// report per variable. Variables that cannot be summarized are skipped.
func (s *Service) RefreshAndStore(ctx context.Context, loc Location, vars []Variable, pastDays int) error {
	report, err := s.Fetch(ctx, Query{Location: loc, Variables: vars, PastDays: pastDays})
	if err != nil {
		return err
	}

	var stored int
	for _, v := range vars {
		series, err := report.SeriesFor(v)
		if err != nil {
			s.log.WithField("variable", v).WithError(err).Warn("variable missing from report")
			continue
		}
		if _, err := s.summarizeAndSave(ctx, report, series); err != nil {
			continue
		}
		stored++
	}

	s.log.WithFields(logrus.Fields{
		"location":  report.Location.String(),
		"provider":  report.Provider,
		"variables": len(vars),
		"stored":    stored,
	}).Debug("refreshed statistics")
	return nil
}

// Latest returns the most recent stored report.
func (s *Service) Latest(ctx context.Context, loc Location, v Variable) (StatisticsReport, error) {
	loc, err := s.resolve(ctx, loc)
	if err != nil {
		return StatisticsReport{}, err
	}
	return s.store.Latest(ctx, loc, v)
}

// History returns stored reports computed between from and to (inclusive).
func (s *Service) History(ctx context.Context, loc Location, v Variable, from, to time.Time) ([]StatisticsReport, error) {
	loc, err := s.resolve(ctx, loc)
	if err != nil {
		return nil, err
	}
	return s.store.Range(ctx, loc, v, from, to)
}

func (s *Service) summarizeAndSave(ctx context.Context, report HourlyReport, series HourlySeries) (StatisticsReport, error) {
	stats, err := BuildReport(report, series)
	s.recorder.ObserveStatistics(series.Variable, err)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"location": report.Location.String(),
			"variable": series.Variable,
		}).WithError(err).Warn("failed to calculate statistics")
		return StatisticsReport{}, fmt.Errorf("statistics for %s: %w", series.Variable, err)
	}

	if err := s.store.Save(ctx, stats); err != nil {
		// The report is still valid for the caller.
		s.log.WithField("variable", series.Variable).WithError(err).Error("failed to store statistics report")
	}
	return stats, nil
}

func (s *Service) resolve(ctx context.Context, loc Location) (Location, error) {
	if loc.HasCoordinates() {
		return loc, nil
	}
	if loc.Name == "" {
		return Location{}, ErrNoLocation
	}
	if s.geocoder == nil {
		return Location{}, fmt.Errorf("%w: no geocoder configured for %q", ErrNoLocation, loc.Name)
	}
	resolved, err := s.geocoder.Resolve(ctx, loc)
	if err != nil {
		return Location{}, fmt.Errorf("geocode %q: %w", loc.Name, err)
	}
	return resolved, nil
}
