package weather

import (
	"context"
	"fmt"
)

// ViewKind tells the display layer how to present a view.
type ViewKind string

const (
	ViewReadings ViewKind = "readings"
	ViewChart    ViewKind = "chart"
)

// View is one of the fixed dashboard panels.
type View struct {
	ID        int
	Kind      ViewKind
	Location  Location
	Variables []Variable
}

// Views are the dashboard panels: free variable selection for Tampere, and
// rain and wind charts for Berlin.
var Views = map[int]View{
	1: {ID: 1, Kind: ViewReadings, Location: NewCoordinates("Tampere", 61.4991, 23.7871), Variables: []Variable{Temperature2m}},
	2: {ID: 2, Kind: ViewChart, Location: NewCoordinates("Berlin", 52.52, 13.41), Variables: []Variable{Rain}},
	3: {ID: 3, Kind: ViewChart, Location: NewCoordinates("Berlin", 52.52, 13.41), Variables: []Variable{WindSpeed10m}},
}

// ViewResult is the data behind a rendered view. Statistics is nil when the
// series could not be summarized.
type ViewResult struct {
	View       int               `json:"view"`
	Kind       ViewKind          `json:"kind"`
	Location   Location          `json:"location"`
	Timezone   string            `json:"timezone"`
	Series     []HourlySeries    `json:"series"`
	Statistics *StatisticsReport `json:"statistics,omitempty"`
}

// View fetches the data for a dashboard view. Selected variables only apply
// to the readings view.
func (s *Service) View(ctx context.Context, id, pastDays int, selected []Variable) (ViewResult, error) {
	view, ok := Views[id]
	if !ok {
		return ViewResult{}, fmt.Errorf("%w: %d", ErrUnknownView, id)
	}

	vars := view.Variables
	if view.Kind == ViewReadings && len(selected) > 0 {
		vars = selected
	}

	report, err := s.Fetch(ctx, Query{Location: view.Location, Variables: vars, PastDays: pastDays})
	if err != nil {
		return ViewResult{}, err
	}

	res := ViewResult{
		View:     id,
		Kind:     view.Kind,
		Location: report.Location,
		Timezone: report.Timezone,
		Series:   make([]HourlySeries, 0, len(vars)),
	}
	for _, v := range vars {
		series, err := report.SeriesFor(v)
		if err != nil {
			return ViewResult{}, err
		}
		res.Series = append(res.Series, series)
	}

	if view.Kind == ViewChart {
		// Failure is already logged; the statistics panel stays empty.
		if stats, err := s.summarizeAndSave(ctx, report, res.Series[0]); err == nil {
			res.Statistics = &stats
		}
	}
	return res, nil
}
