package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/i474232898/weather-stats/internal/weather"
)

var (
	// ErrNotFound is returned when no report is available for a location and variable.
	ErrNotFound = errors.New("no statistics report for location")
)

// reportKey indexes reports by location and variable.
func reportKey(loc weather.Location, v weather.Variable) string {
	return loc.Key() + "|" + string(v)
}

// reportHistory holds a time-ordered list of reports for one key.
type reportHistory struct {
	reports []weather.StatisticsReport
}

// MemoryStore is a concurrency-safe in-memory implementation of weather.Store.
type MemoryStore struct {
	mu sync.RWMutex

	// key: location|variable, value: history
	data map[string]*reportHistory

	// retention configuration
	maxHistory int           // max number of reports per key
	maxAge     time.Duration // optional max age for reports

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]*reportHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// Save appends a report and enforces retention.
func (s *MemoryStore) Save(_ context.Context, report weather.StatisticsReport) error {
	key := reportKey(report.Location, report.Variable)

	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[key]
	if !ok {
		history = &reportHistory{}
		s.data[key] = history
	}

	history.reports = append(history.reports, report)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(history.reports) > s.maxHistory {
		over := len(history.reports) - s.maxHistory
		history.reports = history.reports[over:]
	}

	// Enforce retention by age.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for ; i < len(history.reports); i++ {
			if !history.reports[i].ComputedAt.Before(cutoff) {
				break
			}
		}
		history.reports = history.reports[i:]
	}
	return nil
}

// Latest returns the most recent report. Reports older than maxAge are
// skipped even when no Save has pruned them yet.
func (s *MemoryStore) Latest(_ context.Context, loc weather.Location, v weather.Variable) (weather.StatisticsReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[reportKey(loc, v)]
	if !ok {
		return weather.StatisticsReport{}, ErrNotFound
	}
	reports := s.unexpired(history.reports)
	if len(reports) == 0 {
		return weather.StatisticsReport{}, ErrNotFound
	}
	return reports[len(reports)-1], nil
}

// Range returns all unexpired reports computed between from and to (inclusive).
func (s *MemoryStore) Range(_ context.Context, loc weather.Location, v weather.Variable, from, to time.Time) ([]weather.StatisticsReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[reportKey(loc, v)]
	if !ok {
		return nil, ErrNotFound
	}

	result := filterRange(s.unexpired(history.reports), from, to)
	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}

// unexpired applies the age cutoff at read time, matching RedisStore.load.
func (s *MemoryStore) unexpired(reports []weather.StatisticsReport) []weather.StatisticsReport {
	if s.maxAge <= 0 {
		return reports
	}
	cutoff := s.now().Add(-s.maxAge)
	out := make([]weather.StatisticsReport, 0, len(reports))
	for _, r := range reports {
		if !r.ComputedAt.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out
}

func filterRange(reports []weather.StatisticsReport, from, to time.Time) []weather.StatisticsReport {
	var result []weather.StatisticsReport
	for _, r := range reports {
		if !r.ComputedAt.Before(from) && !r.ComputedAt.After(to) {
			result = append(result, r)
		}
	}
	return result
}
