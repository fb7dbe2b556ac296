package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/i474232898/weather-stats/internal/statistics"
	"github.com/i474232898/weather-stats/internal/weather"
)

var berlin = weather.NewCoordinates("Berlin", 52.52, 13.41)

func report(v weather.Variable, at time.Time, mean float64) weather.StatisticsReport {
	return weather.StatisticsReport{
		ID:         at.Format(time.RFC3339),
		Location:   berlin,
		Variable:   v,
		Summary:    statistics.Summary{Mean: mean, Count: 1},
		ComputedAt: at,
	}
}

func TestMemoryStoreLatestAndRange(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0, 0)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := range 3 {
		assert.NilError(t, s.Save(ctx, report(weather.Rain, base.Add(time.Duration(i)*time.Hour), float64(i))))
	}
	assert.NilError(t, s.Save(ctx, report(weather.WindSpeed10m, base, 42)))

	latest, err := s.Latest(ctx, berlin, weather.Rain)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(latest.Summary.Mean, 2.0))

	got, err := s.Range(ctx, berlin, weather.Rain, base.Add(time.Hour), base.Add(2*time.Hour))
	assert.NilError(t, err)
	assert.Assert(t, is.Len(got, 2))
	assert.Check(t, is.Equal(got[0].Summary.Mean, 1.0))

	_, err = s.Range(ctx, berlin, weather.Rain, base.Add(5*time.Hour), base.Add(6*time.Hour))
	assert.Check(t, errors.Is(err, ErrNotFound))

	_, err = s.Latest(ctx, berlin, weather.Temperature2m)
	assert.Check(t, errors.Is(err, ErrNotFound))
}

func TestMemoryStoreRetentionByCount(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2, 0)
	base := time.Now().UTC()

	for i := range 4 {
		assert.NilError(t, s.Save(ctx, report(weather.Rain, base.Add(time.Duration(i)*time.Minute), float64(i))))
	}

	got, err := s.Range(ctx, berlin, weather.Rain, base, base.Add(time.Hour))
	assert.NilError(t, err)
	assert.Assert(t, is.Len(got, 2))
	assert.Check(t, is.Equal(got[0].Summary.Mean, 2.0))
}

func TestMemoryStoreRetentionByAge(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore(0, 24*time.Hour)
	s.now = func() time.Time { return now }

	assert.NilError(t, s.Save(ctx, report(weather.Rain, now.Add(-48*time.Hour), 1)))
	assert.NilError(t, s.Save(ctx, report(weather.Rain, now.Add(-time.Hour), 2)))

	got, err := s.Range(ctx, berlin, weather.Rain, time.Time{}, now)
	assert.NilError(t, err)
	assert.Assert(t, is.Len(got, 1))
	assert.Check(t, is.Equal(got[0].Summary.Mean, 2.0))
}

func TestMemoryStoreDropsExpiredOnlyHistory(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore(0, time.Hour)
	s.now = func() time.Time { return now }

	assert.NilError(t, s.Save(ctx, report(weather.Rain, now.Add(-2*time.Hour), 1)))

	_, err := s.Latest(ctx, berlin, weather.Rain)
	assert.Check(t, errors.Is(err, ErrNotFound))
}

func TestMemoryStoreExpiresWithoutNewSaves(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore(0, time.Hour)
	s.now = func() time.Time { return now }

	assert.NilError(t, s.Save(ctx, report(weather.Rain, now.Add(-30*time.Minute), 1)))
	assert.NilError(t, s.Save(ctx, report(weather.Rain, now, 2)))

	// The clock moves on while nothing is saved, e.g. during a provider outage.
	now = now.Add(45 * time.Minute)

	latest, err := s.Latest(ctx, berlin, weather.Rain)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(latest.Summary.Mean, 2.0))
	got, err := s.Range(ctx, berlin, weather.Rain, time.Time{}, now)
	assert.NilError(t, err)
	assert.Check(t, is.Len(got, 1))

	now = now.Add(3 * time.Hour)

	_, err = s.Latest(ctx, berlin, weather.Rain)
	assert.Check(t, errors.Is(err, ErrNotFound))
	_, err = s.Range(ctx, berlin, weather.Rain, time.Time{}, now)
	assert.Check(t, errors.Is(err, ErrNotFound))
}

func TestReportCodecKeepsSummary(t *testing.T) {
	in := report(weather.Rain, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 0.35)
	in.Summary.StandardDeviation = 0.125

	data, err := encodeReport(in)
	assert.NilError(t, err)
	out, err := decodeReport(data)
	assert.NilError(t, err)

	assert.Check(t, is.Equal(out.Summary, in.Summary))
	assert.Check(t, out.ComputedAt.Equal(in.ComputedAt))
	assert.Check(t, is.Equal(out.Location.Key(), berlin.Key()))
}
