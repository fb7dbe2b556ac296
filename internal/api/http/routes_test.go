package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/i474232898/weather-stats/internal/render"
	"github.com/i474232898/weather-stats/internal/statistics"
	"github.com/i474232898/weather-stats/internal/store"
	"github.com/i474232898/weather-stats/internal/weather"
)

type stubProvider struct {
	err    error
	values []float64
}

func (p stubProvider) Name() string { return "stub" }

func (p stubProvider) FetchHourly(_ context.Context, q weather.Query) (weather.HourlyReport, error) {
	if p.err != nil {
		return weather.HourlyReport{}, p.err
	}
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	report := weather.HourlyReport{
		Provider: p.Name(),
		Location: q.Location,
		Timezone: "UTC",
		Series:   map[weather.Variable]weather.HourlySeries{},
	}
	for _, v := range q.Variables {
		s := weather.HourlySeries{Variable: v, Unit: "mm"}
		for i, value := range p.values {
			s.Readings = append(s.Readings, weather.Reading{Time: base.Add(time.Duration(i) * time.Hour), Value: &value})
		}
		report.Series[v] = s
	}
	return report, nil
}

func newTestApp(p weather.Provider) *fiber.App {
	app := fiber.New(fiber.Config{
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ErrorHandler: ErrorHandler,
	})
	svc := weather.NewService(store.NewMemoryStore(10, time.Hour), []weather.Provider{p})
	RegisterRoutes(app, svc)
	return app
}

func do(t *testing.T, app *fiber.App, req *http.Request) (int, string) {
	t.Helper()
	resp, err := app.Test(req)
	assert.NilError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	assert.NilError(t, err)
	return resp.StatusCode, string(body)
}

func get(t *testing.T, app *fiber.App, target string) (int, string) {
	t.Helper()
	return do(t, app, httptest.NewRequest(http.MethodGet, target, nil))
}

func post(t *testing.T, app *fiber.App, target, body string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return do(t, app, req)
}

func TestPostStatistics(t *testing.T) {
	app := newTestApp(stubProvider{})

	status, body := post(t, app, "/api/v1/statistics", `{"values":[2,4,4,4,5,5,7,9]}`)
	assert.Assert(t, is.Equal(status, http.StatusOK), body)

	var s statistics.Summary
	assert.NilError(t, json.Unmarshal([]byte(body), &s))
	assert.Check(t, is.Equal(s.Mean, 5.0))
	assert.Check(t, is.Equal(s.Median, 4.5))
	assert.Check(t, is.Equal(s.Mode, 4.0))
	assert.Check(t, is.Equal(s.StandardDeviation, 2.0))
	assert.Check(t, is.Equal(s.Count, 8))
}

func TestPostStatisticsRejectsBadInput(t *testing.T) {
	app := newTestApp(stubProvider{})

	cases := map[string]struct {
		body string
		want int
	}{
		"null values":    {`{"values":null}`, http.StatusBadRequest},
		"missing values": {`{}`, http.StatusBadRequest},
		"empty values":   {`{"values":[]}`, http.StatusUnprocessableEntity},
		"not json":       {`values=1,2`, http.StatusBadRequest},
		"non numeric":    {`{"values":[1,"two"]}`, http.StatusBadRequest},
		"range overflow": {`{"values":[1e308,-1e308]}`, http.StatusUnprocessableEntity},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			status, body := post(t, app, "/api/v1/statistics", tc.body)
			assert.Check(t, is.Equal(status, tc.want))

			var resp struct {
				Error   bool   `json:"error"`
				Message string `json:"message"`
			}
			assert.NilError(t, json.Unmarshal([]byte(body), &resp), body)
			assert.Check(t, resp.Error)
			assert.Check(t, resp.Message != "")
		})
	}
}

func TestPostStatisticsHugeValues(t *testing.T) {
	app := newTestApp(stubProvider{})

	status, body := post(t, app, "/api/v1/statistics", `{"values":[1e308,1e308,5e307]}`)
	assert.Assert(t, is.Equal(status, http.StatusOK), body)

	var s statistics.Summary
	assert.NilError(t, json.Unmarshal([]byte(body), &s))
	assert.Check(t, s.Mean > 8e307 && s.Mean < 1e308, "mean %v", s.Mean)
	assert.Check(t, s.StandardDeviation > 0)
}

func TestGetStatisticsStoresReport(t *testing.T) {
	app := newTestApp(stubProvider{values: []float64{1, 2, 2, 3}})

	status, body := get(t, app, "/api/v1/statistics?lat=52.52&lon=13.41&variable=rain&past_days=1")
	assert.Assert(t, is.Equal(status, http.StatusOK), body)

	var report weather.StatisticsReport
	assert.NilError(t, json.Unmarshal([]byte(body), &report))
	assert.Check(t, is.Equal(report.Variable, weather.Rain))
	assert.Check(t, is.Equal(report.Summary.Mode, 2.0))
	assert.Check(t, is.Equal(report.Provider, "stub"))

	status, body = get(t, app, "/api/v1/statistics/latest?lat=52.52&lon=13.41&variable=rain")
	assert.Assert(t, is.Equal(status, http.StatusOK), body)
	var latest weather.StatisticsReport
	assert.NilError(t, json.Unmarshal([]byte(body), &latest))
	assert.Check(t, is.Equal(latest.ID, report.ID))

	status, body = get(t, app, "/api/v1/statistics/history?lat=52.52&lon=13.41&variable=rain&from=0&to="+
		time.Now().Add(time.Hour).UTC().Format(time.RFC3339))
	assert.Assert(t, is.Equal(status, http.StatusOK), body)
	var history struct {
		Reports []weather.StatisticsReport `json:"reports"`
	}
	assert.NilError(t, json.Unmarshal([]byte(body), &history))
	assert.Assert(t, is.Len(history.Reports, 1))
	assert.Check(t, is.Equal(history.Reports[0].ID, report.ID))
}

func TestGetStatisticsText(t *testing.T) {
	app := newTestApp(stubProvider{values: []float64{1, 2, 3, 4, 5}})

	status, body := get(t, app, "/api/v1/statistics?lat=52.52&lon=13.41&variable=rain&format=text")
	assert.Assert(t, is.Equal(status, http.StatusOK), body)
	assert.Check(t, is.Contains(body, "Mean: 3.00\n"))
	assert.Check(t, is.Contains(body, "Standard Deviation: 1.41\n"))
}

func TestQueryValidation(t *testing.T) {
	app := newTestApp(stubProvider{values: []float64{1}})

	cases := map[string]string{
		"no location":       "/api/v1/statistics?variable=rain",
		"no variable":       "/api/v1/statistics?lat=52.52&lon=13.41",
		"unknown variable":  "/api/v1/statistics?lat=52.52&lon=13.41&variable=humidity",
		"lat without lon":   "/api/v1/statistics?lat=52.52&variable=rain",
		"latitude range":    "/api/v1/statistics?lat=95&lon=13.41&variable=rain",
		"past days range":   "/api/v1/statistics?lat=52.52&lon=13.41&variable=rain&past_days=93",
		"past days type":    "/api/v1/statistics?lat=52.52&lon=13.41&variable=rain&past_days=week",
		"bad timezone":      "/api/v1/statistics?lat=52.52&lon=13.41&variable=rain&timezone=Mars/Olympus",
		"bad format":        "/api/v1/readings?lat=52.52&lon=13.41&variable=rain&format=xml",
		"chart hours":       "/api/v1/chart?lat=52.52&lon=13.41&variable=rain&hours=400",
		"history no range":  "/api/v1/statistics/history?lat=52.52&lon=13.41&variable=rain",
		"history reversed":  "/api/v1/statistics/history?lat=52.52&lon=13.41&variable=rain&from=200&to=100",
		"city no geocoder":  "/api/v1/statistics?city=Paris&country=FR&variable=rain",
		"view not a number": "/api/v1/views/first",
	}
	for name, target := range cases {
		t.Run(name, func(t *testing.T) {
			status, body := get(t, app, target)
			assert.Check(t, is.Equal(status, http.StatusBadRequest), body)
		})
	}
}

func TestErrorStatuses(t *testing.T) {
	app := newTestApp(stubProvider{err: errors.New("boom")})

	status, _ := get(t, app, "/api/v1/statistics?lat=52.52&lon=13.41&variable=rain")
	assert.Check(t, is.Equal(status, http.StatusBadGateway))

	status, _ = get(t, app, "/api/v1/statistics/latest?lat=1&lon=2&variable=rain")
	assert.Check(t, is.Equal(status, http.StatusNotFound))

	status, body := get(t, app, "/api/v1/views/9")
	assert.Check(t, is.Equal(status, http.StatusNotFound))
	assert.Check(t, is.Equal(body, `{"error":true,"message":"unknown view: 9"}`))
}

func TestReadingsAndChart(t *testing.T) {
	app := newTestApp(stubProvider{values: []float64{0.5, 1, 1.5}})

	status, body := get(t, app, "/api/v1/readings?lat=52.52&lon=13.41&variable=rain&format=text&hours=2")
	assert.Assert(t, is.Equal(status, http.StatusOK), body)
	assert.Check(t, is.Equal(body, "rain Readings\n2024-03-01 01:00 - 1 mm\n2024-03-01 02:00 - 1.5 mm\n"))

	status, body = get(t, app, "/api/v1/chart?lat=52.52&lon=13.41&variable=rain&hours=2")
	assert.Assert(t, is.Equal(status, http.StatusOK), body)
	var chart render.ChartData
	assert.NilError(t, json.Unmarshal([]byte(body), &chart))
	assert.Check(t, is.DeepEqual(chart.Labels, []string{"2024-03-01 01:00", "2024-03-01 02:00"}))
	assert.Assert(t, is.Len(chart.Data, 2))
	assert.Check(t, is.Equal(*chart.Data[1], 1.5))
}

func TestViews(t *testing.T) {
	app := newTestApp(stubProvider{values: []float64{2, 2, 3, 4}})

	status, body := get(t, app, "/api/v1/views/2?days=1")
	assert.Assert(t, is.Equal(status, http.StatusOK), body)

	var chartView struct {
		Kind       weather.ViewKind          `json:"kind"`
		Chart      render.ChartData          `json:"chart"`
		Statistics *weather.StatisticsReport `json:"statistics"`
	}
	assert.NilError(t, json.Unmarshal([]byte(body), &chartView))
	assert.Check(t, is.Equal(chartView.Kind, weather.ViewChart))
	assert.Check(t, is.Equal(chartView.Chart.Label, "rain"))
	assert.Assert(t, chartView.Statistics != nil)
	assert.Check(t, is.Equal(chartView.Statistics.Summary.Mean, 2.75))

	status, body = get(t, app, "/api/v1/views/1?variables=temperature_2m,snowfall")
	assert.Assert(t, is.Equal(status, http.StatusOK), body)
	var readingsView struct {
		Kind     weather.ViewKind       `json:"kind"`
		Readings []weather.HourlySeries `json:"readings"`
	}
	assert.NilError(t, json.Unmarshal([]byte(body), &readingsView))
	assert.Check(t, is.Equal(readingsView.Kind, weather.ViewReadings))
	assert.Assert(t, is.Len(readingsView.Readings, 2))
	assert.Check(t, is.Equal(readingsView.Readings[1].Variable, weather.Snowfall))

	status, body = get(t, app, "/api/v1/views/2?format=text")
	assert.Assert(t, is.Equal(status, http.StatusOK), body)
	assert.Check(t, is.Contains(body, "Mean: 2.75\n"))
}
