// Package statistics computes descriptive statistics over a fully
// materialized numeric series.
//
// Every function is pure: the input slice is never modified and no state is
// kept between calls, so the functions are safe for concurrent use.
package statistics

import (
	"errors"
	"math"
	"slices"

	mstats "github.com/montanaflynn/stats"
)

var (
	// ErrNilInput is returned when the series is absent (a nil slice).
	ErrNilInput = errors.New("statistics: input series is nil")

	// ErrEmptyInput is returned when the series is present but has no elements.
	ErrEmptyInput = errors.New("statistics: input series is empty")

	// ErrNonFinite is returned when the series contains NaN or an infinity.
	ErrNonFinite = errors.New("statistics: input series contains non-finite values")

	// ErrOverflow is returned when a result is not representable as a finite
	// float64, e.g. the range of a series spanning -1e308 to 1e308.
	ErrOverflow = errors.New("statistics: result overflows float64")
)

// Summary is the set of descriptive statistics for one series.
type Summary struct {
	Mean              float64 `json:"mean"`
	Median            float64 `json:"median"`
	Mode              float64 `json:"mode"`
	Range             float64 `json:"range"`
	StandardDeviation float64 `json:"standardDeviation"`
	Min               float64 `json:"min"`
	Max               float64 `json:"max"`
	Count             int     `json:"count"`
}

// Calculate computes every field of Summary over validated input. Every
// field of a returned Summary is finite.
func Calculate(xs []float64) (Summary, error) {
	if err := validate(xs); err != nil {
		return Summary{}, err
	}

	lo, hi, err := extrema(xs)
	if err != nil {
		return Summary{}, err
	}
	rng, err := span(lo, hi)
	if err != nil {
		return Summary{}, err
	}
	median, err := medianOf(xs)
	if err != nil {
		return Summary{}, err
	}
	mean, err := meanOf(xs, lo, hi)
	if err != nil {
		return Summary{}, err
	}

	return Summary{
		Mean:              mean,
		Median:            median,
		Mode:              modeOf(xs),
		Range:             rng,
		StandardDeviation: populationStdDev(xs, mean, lo, hi),
		Min:               lo,
		Max:               hi,
		Count:             len(xs),
	}, nil
}

// Mean returns the arithmetic mean of xs.
func Mean(xs []float64) (float64, error) {
	if err := validate(xs); err != nil {
		return 0, err
	}
	lo, hi, err := extrema(xs)
	if err != nil {
		return 0, err
	}
	return meanOf(xs, lo, hi)
}

// Median returns the middle value of xs once sorted, or the average of the
// two middle values for an even length.
func Median(xs []float64) (float64, error) {
	if err := validate(xs); err != nil {
		return 0, err
	}
	return medianOf(xs)
}

// Mode returns the most frequent value of xs. When several values share the
// highest count the smallest of them is returned.
func Mode(xs []float64) (float64, error) {
	if err := validate(xs); err != nil {
		return 0, err
	}
	return modeOf(xs), nil
}

// Range returns Max(xs) - Min(xs), or ErrOverflow when that difference is
// not a finite float64.
func Range(xs []float64) (float64, error) {
	if err := validate(xs); err != nil {
		return 0, err
	}
	lo, hi, err := extrema(xs)
	if err != nil {
		return 0, err
	}
	return span(lo, hi)
}

// StandardDeviation returns the population standard deviation of xs
// (divisor N, not N-1).
func StandardDeviation(xs []float64) (float64, error) {
	if err := validate(xs); err != nil {
		return 0, err
	}
	lo, hi, err := extrema(xs)
	if err != nil {
		return 0, err
	}
	mean, err := meanOf(xs, lo, hi)
	if err != nil {
		return 0, err
	}
	return populationStdDev(xs, mean, lo, hi), nil
}

// Min returns the smallest value of xs.
func Min(xs []float64) (float64, error) {
	if err := validate(xs); err != nil {
		return 0, err
	}
	return mstats.Min(xs)
}

// Max returns the largest value of xs.
func Max(xs []float64) (float64, error) {
	if err := validate(xs); err != nil {
		return 0, err
	}
	return mstats.Max(xs)
}

func validate(xs []float64) error {
	if xs == nil {
		return ErrNilInput
	}
	if len(xs) == 0 {
		return ErrEmptyInput
	}
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return ErrNonFinite
		}
	}
	return nil
}

func extrema(xs []float64) (lo, hi float64, err error) {
	if lo, err = mstats.Min(xs); err != nil {
		return 0, 0, err
	}
	if hi, err = mstats.Max(xs); err != nil {
		return 0, 0, err
	}
	return lo, hi, nil
}

func span(lo, hi float64) (float64, error) {
	rng := hi - lo
	if math.IsInf(rng, 0) {
		return 0, ErrOverflow
	}
	return rng, nil
}

// medianOf falls back to halving before adding when the two middle values of
// an even-length series overflow on addition.
func medianOf(xs []float64) (float64, error) {
	median, err := mstats.Median(xs)
	if err != nil || !math.IsInf(median, 0) {
		return median, err
	}
	sorted := slices.Clone(xs)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	return sorted[mid-1]/2 + sorted[mid]/2, nil
}

// meanOf sums directly and falls back to summing x/max|x| when the direct
// sum overflows. The result is clamped into [lo, hi] since rounding can
// step outside it, e.g. for a series of identical values.
func meanOf(xs []float64, lo, hi float64) (float64, error) {
	sum, err := mstats.Sum(xs)
	if err != nil {
		return 0, err
	}
	n := float64(len(xs))
	mean := sum / n

	if math.IsInf(sum, 0) {
		scale := math.Max(math.Abs(lo), math.Abs(hi))
		var scaled float64
		for _, x := range xs {
			scaled += x / scale
		}
		mean = scaled / n * scale
	}
	return math.Min(math.Max(mean, lo), hi), nil
}

// populationStdDev is zero only when every value is equal. Squares that
// overflow or underflow switch to the scaled computation, and a positive
// deviation too small for float64 is reported as the smallest subnormal.
func populationStdDev(xs []float64, mean, lo, hi float64) float64 {
	if lo == hi {
		return 0
	}

	var sq float64
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	sd := math.Sqrt(sq / float64(len(xs)))

	if math.IsInf(sd, 0) || sd == 0 {
		sd = scaledStdDev(xs, lo, hi)
	}
	// Population deviation never exceeds half the range.
	sd = math.Min(sd, hi/2-lo/2)
	return math.Max(sd, math.SmallestNonzeroFloat64)
}

// scaledStdDev works on x/max|x|, which lies in [-1, 1], so neither the
// deviations nor their squares leave the float64 range. The result is at
// most max|x|.
func scaledStdDev(xs []float64, lo, hi float64) float64 {
	scale := math.Max(math.Abs(lo), math.Abs(hi))
	n := float64(len(xs))

	ys := make([]float64, len(xs))
	var mean float64
	for i, x := range xs {
		ys[i] = x / scale
		mean += ys[i]
	}
	mean /= n

	var sq float64
	for _, y := range ys {
		d := y - mean
		sq += d * d
	}
	return math.Sqrt(sq/n) * scale
}

// modeOf scans a sorted copy run by run; only a strictly longer run replaces
// the current best, so ties resolve to the smallest value.
func modeOf(xs []float64) float64 {
	sorted := slices.Clone(xs)
	slices.Sort(sorted)

	best, bestCount := sorted[0], 0
	for i := 0; i < len(sorted); {
		j := i
		for j < len(sorted) && sorted[j] == sorted[i] {
			j++
		}
		if n := j - i; n > bestCount {
			best, bestCount = sorted[i], n
		}
		i = j
	}
	return best
}
