package httpapi

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/i474232898/weather-stats/internal/common"
	"github.com/i474232898/weather-stats/internal/render"
	"github.com/i474232898/weather-stats/internal/statistics"
	"github.com/i474232898/weather-stats/internal/store"
	"github.com/i474232898/weather-stats/internal/weather"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service) {
	v1 := app.Group("/api/v1")

	v1.Post("/statistics", func(c *fiber.Ctx) error {
		var req struct {
			Values []float64 `json:"values"`
		}
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "body must be {\"values\": [numbers]}")
		}

		summary, err := statistics.Calculate(req.Values)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(summary)
	})

	v1.Get("/statistics", func(c *fiber.Ctx) error {
		var q seriesQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		report, err := service.Statistics(c.UserContext(), q.query(), q.variable)
		if err != nil {
			return toHTTPError(err)
		}

		if q.Format == "text" {
			var buf bytes.Buffer
			title := fmt.Sprintf("Statistics: %s at %s", report.Variable, report.Location)
			if err := render.WriteStatistics(&buf, title, report.Summary); err != nil {
				return err
			}
			return c.SendString(buf.String())
		}
		return c.JSON(report)
	})

	v1.Get("/statistics/latest", func(c *fiber.Ctx) error {
		var q seriesQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		report, err := service.Latest(c.UserContext(), q.Location.toLocation(), q.variable)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(report)
	})

	v1.Get("/statistics/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		loc := req.Series.Location.toLocation()
		reports, err := service.History(c.UserContext(), loc, req.Series.variable, req.From, req.To)
		if err != nil {
			return toHTTPError(err)
		}

		return c.JSON(fiber.Map{
			"location": loc,
			"variable": req.Series.variable,
			"from":     req.From,
			"to":       req.To,
			"reports":  reports,
		})
	})

	v1.Get("/readings", func(c *fiber.Ctx) error {
		var q seriesQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		series, err := service.Readings(c.UserContext(), q.query(), q.variable)
		if err != nil {
			return toHTTPError(err)
		}
		series = series.Last(q.Hours)

		if q.Format == "text" {
			var buf bytes.Buffer
			if err := render.WriteReadings(&buf, series, nil); err != nil {
				return err
			}
			return c.SendString(buf.String())
		}
		return c.JSON(series)
	})

	v1.Get("/chart", func(c *fiber.Ctx) error {
		var q seriesQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		series, err := service.Readings(c.UserContext(), q.query(), q.variable)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(render.Chart(series, q.Hours, nil))
	})

	v1.Get("/views/:view", func(c *fiber.Ctx) error {
		var q viewQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		res, err := service.View(c.UserContext(), q.View, q.PastDays, q.variables)
		if err != nil {
			return toHTTPError(err)
		}

		if q.Format == "text" {
			var buf bytes.Buffer
			for _, s := range res.Series {
				if err := render.WriteReadings(&buf, s, nil); err != nil {
					return err
				}
			}
			if res.Statistics != nil {
				if err := render.WriteStatistics(&buf, "", res.Statistics.Summary); err != nil {
					return err
				}
			}
			return c.SendString(buf.String())
		}

		out := fiber.Map{
			"view":       res.View,
			"kind":       res.Kind,
			"location":   res.Location,
			"timezone":   res.Timezone,
			"statistics": res.Statistics,
		}
		if res.Kind == weather.ViewChart {
			out["chart"] = render.Chart(res.Series[0], render.DefaultChartHours, nil)
		} else {
			out["readings"] = res.Series
		}
		return c.JSON(out)
	})
}

// ErrorHandler is the app-wide Fiber error handler. Every failure is
// answered with {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	if code >= fiber.StatusInternalServerError {
		logrus.WithFields(logrus.Fields{
			"component": "http",
			"path":      c.Path(),
			"requestID": c.Locals("requestid"),
		}).WithError(err).Error("request failed")
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// toHTTPError maps domain errors onto status codes; anything unknown is
// treated as an upstream failure.
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "no statistics stored for requested location")
	case errors.Is(err, weather.ErrUnknownView):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, statistics.ErrNilInput),
		errors.Is(err, weather.ErrUnknownVariable),
		errors.Is(err, weather.ErrNoLocation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, statistics.ErrEmptyInput),
		errors.Is(err, statistics.ErrNonFinite),
		errors.Is(err, statistics.ErrOverflow):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, weather.ErrNoProviders):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	default:
		return fiber.NewError(fiber.StatusBadGateway, "failed to fetch weather data")
	}
}

// locationQuery holds query parameters for identifying a location:
// coordinates, or a city name to geocode.
type locationQuery struct {
	City    string   `validate:"required_without=Lat"`
	Country string   `validate:"omitempty,max=64"`
	Lat     *float64 `validate:"required_without=City,required_with=Lon,omitempty,latitude"`
	Lon     *float64 `validate:"required_with=Lat,omitempty,longitude"`
}

func (l locationQuery) toLocation() weather.Location {
	return weather.Location{
		Name:    l.City,
		Country: l.Country,
		Lat:     l.Lat,
		Lon:     l.Lon,
	}
}

func parseLocationQuery(c *fiber.Ctx) (locationQuery, error) {
	var q locationQuery

	q.City = c.Query("city")
	q.Country = c.Query("country")

	var err error
	if q.Lat, err = queryFloat(c, "lat"); err != nil {
		return q, err
	}
	if q.Lon, err = queryFloat(c, "lon"); err != nil {
		return q, err
	}
	return q, nil
}

// seriesQuery holds query parameters shared by the series endpoints.
type seriesQuery struct {
	Location     locationQuery
	Variable     string `validate:"required"`
	PastDays     int    `validate:"gte=0,lte=92"`
	ForecastDays *int   `validate:"omitempty,gte=0,lte=16"`
	Timezone     string `validate:"omitempty,timezone"`
	Hours        int    `validate:"gte=0,lte=384"`
	Format       string `validate:"omitempty,oneof=json text"`

	variable weather.Variable
}

func (q *seriesQuery) bind(c *fiber.Ctx) error {
	loc, err := parseLocationQuery(c)
	if err != nil {
		return err
	}
	q.Location = loc
	q.Variable = c.Query("variable")
	q.Timezone = c.Query("timezone")
	q.Format = c.Query("format")

	if q.PastDays, err = queryInt(c, "past_days", 0); err != nil {
		return err
	}
	if q.Hours, err = queryInt(c, "hours", 0); err != nil {
		return err
	}
	if c.Query("forecast_days") != "" {
		days, err := queryInt(c, "forecast_days", 0)
		if err != nil {
			return err
		}
		q.ForecastDays = &days
	}

	if err := validate.Struct(q); err != nil {
		return err
	}
	q.variable, err = weather.ParseVariable(q.Variable)
	return err
}

func (q seriesQuery) query() weather.Query {
	return weather.Query{
		Location:     q.Location.toLocation(),
		Variables:    []weather.Variable{q.variable},
		PastDays:     q.PastDays,
		ForecastDays: q.ForecastDays,
		Timezone:     q.Timezone,
	}
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	Series seriesQuery
	From   time.Time `validate:"required"`
	To     time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	if err := h.Series.bind(c); err != nil {
		return err
	}

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return validate.Struct(h)
}

// viewQuery holds parameters for the dashboard views.
type viewQuery struct {
	View     int    `validate:"min=1"`
	PastDays int    `validate:"gte=0,lte=92"`
	Format   string `validate:"omitempty,oneof=json text"`

	variables []weather.Variable
}

func (q *viewQuery) bind(c *fiber.Ctx) error {
	var err error
	if q.View, err = c.ParamsInt("view"); err != nil {
		return errors.New("view must be a number")
	}
	if q.PastDays, err = queryInt(c, "days", 0); err != nil {
		return err
	}
	q.Format = c.Query("format")
	if err := validate.Struct(q); err != nil {
		return err
	}
	q.variables, err = weather.ParseVariables(common.SplitList(c.Query("variables")))
	return err
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}

func queryInt(c *fiber.Ctx, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return n, nil
}

func queryFloat(c *fiber.Ctx, key string) (*float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number", key)
	}
	return &f, nil
}
