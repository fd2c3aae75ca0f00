// Package agg has the pure aggregation logic for sensor readings: completeness gates,
// descriptive statistics, trend fitting and threshold checks. Nothing in here touches
// storage, logging or the clock.
package agg

import "math"

// Summary is the descriptive statistics of a sample.
type Summary struct {
	Count  int
	Mean   float64
	Min    float64
	Max    float64
	StdDev float64 // sample standard deviation (n-1); 0 when Count <= 1
	Range  float64
}

// Summarize computes count, mean, extrema, sample std-dev and range of values.
// An empty sample yields the zero Summary.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	s := Summary{Count: len(values), Min: values[0], Max: values[0]}
	var sum float64
	for _, v := range values {
		sum += v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Mean = sum / float64(len(values))
	s.StdDev = SampleStdDev(values, s.Mean)
	s.Range = s.Max - s.Min
	return s
}

// SummarizeNested computes statistics for a higher resolution from lower-resolution rows.
// Mean and std-dev come from the sub-unit averages; extrema come from the sub-unit
// minimums and maximums so that spikes inside a sub-unit are not lost.
func SummarizeNested(avgs, mins, maxs []float64) Summary {
	s := Summarize(avgs)
	if s.Count == 0 {
		return s
	}
	s.Min = mins[0]
	for _, v := range mins {
		s.Min = math.Min(s.Min, v)
	}
	s.Max = maxs[0]
	for _, v := range maxs {
		s.Max = math.Max(s.Max, v)
	}
	s.Range = s.Max - s.Min
	return s
}

// SampleStdDev is the Bessel-corrected standard deviation around mean.
func SampleStdDev(values []float64, mean float64) float64 {
	n := len(values)
	if n <= 1 {
		return 0
	}
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// TrendSlope fits y = a + b*x by ordinary least squares with x = 0..n-1 and returns b.
// The second result is false when fewer than two points exist.
func TrendSlope(values []float64) (float64, bool) {
	n := len(values)
	if n < 2 {
		return 0, false
	}
	var sumX, sumY, sumXY, sumX2 float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}
	fn := float64(n)
	den := fn*sumX2 - sumX*sumX
	if den == 0 {
		return 0, true
	}
	return (fn*sumXY - sumX*sumY) / den, true
}

// Round rounds v half away from zero to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Persisted precision for each statistic.
const (
	ValuePlaces  = 2 // avg, min, max, range, peak/valley
	StdDevPlaces = 4
	TrendPlaces  = 4
)
