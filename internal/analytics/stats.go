package analytics

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// summary holds the descriptive statistics of a grade sample.
type summary struct {
	Count  int
	Mean   float64
	Median float64
	Min    float64
	Max    float64
	Std    float64 // sample standard deviation, 0 when Count <= 1
}

func summarize(grades []float64) summary {
	n := len(grades)
	if n == 0 {
		return summary{}
	}

	sorted := append([]float64(nil), grades...)
	sort.Float64s(sorted)

	s := summary{
		Count:  n,
		Mean:   stat.Mean(grades, nil),
		Median: median(sorted),
		Min:    floats.Min(sorted),
		Max:    floats.Max(sorted),
	}
	s.Std, _ = sampleStd(grades)
	return s
}

// median averages the two middle values of an even sample.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return stat.Mean(sorted[n/2-1:n/2+1], nil)
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// sampleStd returns the n-1 standard deviation. ok is false for fewer than
// two values, in which case the result is 0.
func sampleStd(xs []float64) (float64, bool) {
	if len(xs) < 2 {
		return 0, false
	}
	return stat.StdDev(xs, nil), true
}

func float64p(f float64) *float64 {
	return &f
}
