package util

import (
	"math"
	"slices"
)

// ----------------------------------------------------------------------------
// Summary statistics
// ----------------------------------------------------------------------------

// Stats summarizes a sample of values. It is used for the shard balance of
// the engines and for the per-rank phase durations of a reshape run.
type Stats struct {
	StdDeviation float64 `json:"std_deviation"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Mean         float64 `json:"mean"`
	// MinMaxRatio is Min/Max, or 1 when Max is not positive
	MinMaxRatio float64 `json:"min_max_ratio"`
}

// NewStats computes the summary of values (population standard deviation).
// An empty sample gives the zero Stats.
func NewStats(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}

	s := Stats{Min: values[0], Max: values[0], MinMaxRatio: 1}
	var sum float64
	for _, v := range values {
		sum += v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Mean = sum / float64(len(values))

	var sq float64
	for _, v := range values {
		sq += (v - s.Mean) * (v - s.Mean)
	}
	s.StdDeviation = math.Sqrt(sq / float64(len(values)))

	if s.Max > 0 {
		s.MinMaxRatio = s.Min / s.Max
	}
	return s
}

// DistributionStats rates how evenly values are spread over buckets
type DistributionStats struct {
	Stats
	// Quality is 1 for a perfectly even spread and approaches 0 as the
	// coefficient of variation grows and the smallest bucket empties
	Quality float64 `json:"quality"`
}

// NewDistributionStats computes the balance of the bucket sizes
func NewDistributionStats(sizes []float64) DistributionStats {
	stats := NewStats(sizes)

	var cv float64
	if stats.Mean > 0 {
		cv = stats.StdDeviation / stats.Mean
	}

	return DistributionStats{
		Stats:   stats,
		Quality: (1.0-math.Min(1.0, cv))*0.5 + stats.MinMaxRatio*0.5,
	}
}

// ----------------------------------------------------------------------------
// Percentiles
// ----------------------------------------------------------------------------

// Percentile returns the p-th percentile (0..100) of values using the
// nearest-rank method. values is not modified. An empty sample gives 0.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	p = math.Max(0, math.Min(100, p))
	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}
