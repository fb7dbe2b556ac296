// Package render turns series and statistics into display output. Every
// function writes to the target it is given.
package render

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/i474232898/weather-stats/internal/statistics"
	"github.com/i474232898/weather-stats/internal/weather"
)

// DefaultChartHours is the trailing window shown in charts.
const DefaultChartHours = 48

const readingLayout = "2006-01-02 15:04"

// WriteStatistics writes the summary with every value to two decimals.
func WriteStatistics(w io.Writer, title string, s statistics.Summary) error {
	if title == "" {
		title = "Statistics"
	}
	rows := []struct {
		label string
		value float64
	}{
		{"Mean", s.Mean},
		{"Median", s.Median},
		{"Mode", s.Mode},
		{"Range", s.Range},
		{"Standard Deviation", s.StandardDeviation},
		{"Min", s.Min},
		{"Max", s.Max},
	}

	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(w, "%s: %.2f\n", r.label, r.value); err != nil {
			return err
		}
	}
	return nil
}

// WriteReadings writes one "timestamp - value" line per reading, with
// timestamps shown in tz. Missing values are written as "-".
func WriteReadings(w io.Writer, s weather.HourlySeries, tz *time.Location) error {
	if _, err := fmt.Fprintf(w, "%s Readings\n", s.Variable); err != nil {
		return err
	}
	for _, r := range s.Readings {
		value := "-"
		if r.Value != nil {
			value = strconv.FormatFloat(*r.Value, 'f', -1, 64)
			if s.Unit != "" {
				value += " " + s.Unit
			}
		}
		if _, err := fmt.Fprintf(w, "%s - %s\n", inZone(r.Time, tz).Format(readingLayout), value); err != nil {
			return err
		}
	}
	return nil
}

// ChartData is a line chart dataset: labels on the x axis, one value (or
// null gap) per label.
type ChartData struct {
	Label  string     `json:"label"`
	Unit   string     `json:"unit,omitempty"`
	Labels []string   `json:"labels"`
	Data   []*float64 `json:"data"`
}

// Chart builds a dataset from the trailing hours of s. hours <= 0 uses
// DefaultChartHours.
func Chart(s weather.HourlySeries, hours int, tz *time.Location) ChartData {
	if hours <= 0 {
		hours = DefaultChartHours
	}
	window := s.Last(hours)

	out := ChartData{
		Label:  string(s.Variable),
		Unit:   s.Unit,
		Labels: make([]string, len(window.Readings)),
		Data:   make([]*float64, len(window.Readings)),
	}
	for i, r := range window.Readings {
		out.Labels[i] = inZone(r.Time, tz).Format(readingLayout)
		out.Data[i] = r.Value
	}
	return out
}

// inZone converts t to tz. A nil tz keeps the zone the provider reported.
func inZone(t time.Time, tz *time.Location) time.Time {
	if tz == nil {
		return t
	}
	return t.In(tz)
}
