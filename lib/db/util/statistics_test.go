package util

import (
	"math"
	"testing"
)

func TestNewStats(t *testing.T) {
	s := NewStats([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if s.Min != 2 || s.Max != 9 || s.Mean != 5 || s.StdDeviation != 2 {
		t.Errorf("NewStats = %+v", s)
	}
	if math.Abs(s.MinMaxRatio-2.0/9.0) > 1e-12 {
		t.Errorf("MinMaxRatio = %v", s.MinMaxRatio)
	}
	if (NewStats(nil) != Stats{}) {
		t.Errorf("empty sample gave %+v", NewStats(nil))
	}
	if r := NewStats([]float64{0, 0}).MinMaxRatio; r != 1 {
		t.Errorf("MinMaxRatio of zeros = %v", r)
	}
}

func TestDistributionStats(t *testing.T) {
	if q := NewDistributionStats([]float64{10, 10, 10}).Quality; q != 1 {
		t.Errorf("even spread quality = %v", q)
	}
	if q := NewDistributionStats([]float64{0, 0, 30}).Quality; q >= 0.5 {
		t.Errorf("skewed spread quality = %v", q)
	}
}

func TestPercentile(t *testing.T) {
	values := []float64{15, 20, 35, 40, 50}
	tests := []struct {
		p, want float64
	}{
		{0, 15}, {30, 20}, {40, 20}, {50, 35}, {100, 50}, {150, 50},
	}
	for _, tt := range tests {
		if got := Percentile(values, tt.p); got != tt.want {
			t.Errorf("Percentile(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
	if values[0] != 15 || values[4] != 50 {
		t.Errorf("Percentile modified its input")
	}
	if Percentile(nil, 50) != 0 {
		t.Errorf("empty sample should give 0")
	}
}
