package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/i474232898/weather-stats/internal/statistics"
	"github.com/i474232898/weather-stats/internal/weather"
)

func TestObserveStatistics(t *testing.T) {
	m := New()

	m.ObserveStatistics(weather.Rain, nil)
	m.ObserveStatistics(weather.Rain, nil)
	m.ObserveStatistics(weather.Rain, statistics.ErrEmptyInput)

	assert.Check(t, is.Equal(testutil.ToFloat64(m.computations.WithLabelValues("rain", "ok")), 2.0))
	assert.Check(t, is.Equal(testutil.ToFloat64(m.computations.WithLabelValues("rain", "empty")), 1.0))
}

func TestObserveFetchCountsErrors(t *testing.T) {
	m := New()

	m.ObserveFetch("openmeteo", 20*time.Millisecond, nil)
	m.ObserveFetch("openmeteo", time.Second, errors.New("boom"))

	assert.Check(t, is.Equal(testutil.ToFloat64(m.fetchErrors.WithLabelValues("openmeteo")), 1.0))
	assert.Check(t, is.Equal(testutil.CollectAndCount(m.fetchDuration), 1))
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveStatistics(weather.WindSpeed10m, nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	assert.NilError(t, err)
	assert.Check(t, is.Contains(string(body), `weather_stats_computations_total{result="ok",variable="wind_speed_10m"} 1`))
}
