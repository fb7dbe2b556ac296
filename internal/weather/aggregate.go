package weather

import (
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/weather-stats/internal/statistics"
)

// SummarizeSeries runs the statistics engine over the non-null values of s.
// A series whose readings are all null fails with statistics.ErrEmptyInput.
func SummarizeSeries(s HourlySeries) (statistics.Summary, error) {
	return statistics.Calculate(s.Values())
}

// BuildReport summarizes one series of an hourly report.
func BuildReport(r HourlyReport, s HourlySeries) (StatisticsReport, error) {
	summary, err := SummarizeSeries(s)
	if err != nil {
		return StatisticsReport{}, err
	}

	from, to := s.Span()
	return StatisticsReport{
		ID:         uuid.NewString(),
		Location:   r.Location,
		Variable:   s.Variable,
		Unit:       s.Unit,
		Provider:   r.Provider,
		From:       from,
		To:         to,
		Summary:    summary,
		ComputedAt: time.Now().UTC(),
	}, nil
}
