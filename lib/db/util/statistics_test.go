package util

import (
	"math"
	"sync"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestNewStats(t *testing.T) {
	s := NewStats([]float64{2, 4, 4, 4, 5, 5, 7, 9})

	if !almostEqual(s.Mean, 5) {
		t.Errorf("Expected mean 5, got %f", s.Mean)
	}
	if !almostEqual(s.StdDeviation, 2) {
		t.Errorf("Expected std deviation 2, got %f", s.StdDeviation)
	}
	if s.Min != 2 || s.Max != 9 {
		t.Errorf("Expected min 2 and max 9, got %f and %f", s.Min, s.Max)
	}
	if !almostEqual(s.MinMaxRatio, 2.0/9.0) {
		t.Errorf("Expected min/max ratio %f, got %f", 2.0/9.0, s.MinMaxRatio)
	}

	if empty := NewStats(nil); empty != (Stats{}) {
		t.Errorf("Expected zero stats for no values, got %+v", empty)
	}
}

func TestDistributionQuality(t *testing.T) {
	even := NewDistributionStats([]float64{10, 10, 10, 10})
	if !almostEqual(even.DistributionQuality, 1) {
		t.Errorf("Expected quality 1 for an even distribution, got %f", even.DistributionQuality)
	}

	skewed := NewDistributionStats([]float64{0, 0, 0, 40})
	if skewed.DistributionQuality >= even.DistributionQuality {
		t.Errorf("Skewed distribution should rate worse: %f >= %f",
			skewed.DistributionQuality, even.DistributionQuality)
	}
}

func TestSizeHistogram(t *testing.T) {
	h := NewSizeHistogram()

	if h.MedianEstimate() != 0 || h.AverageSize() != 0 {
		t.Errorf("Empty histogram should report zero sizes")
	}

	for i := 0; i < 90; i++ {
		h.AddSample(10) // first bucket
	}
	for i := 0; i < 10; i++ {
		h.AddSample(2000) // (1024, 4096]
	}

	if h.Count() != 100 {
		t.Errorf("Expected 100 samples, got %d", h.Count())
	}
	if got := h.AverageSize(); got != (90*10+10*2000)/100 {
		t.Errorf("Unexpected average %d", got)
	}
	if got := h.MedianEstimate(); got != 8 {
		t.Errorf("Expected median estimate 8, got %d", got)
	}
	if got := h.PercentileEstimate(95); got != (1024+4096)/2 {
		t.Errorf("Expected p95 estimate %d, got %d", (1024+4096)/2, got)
	}
	if got := h.PercentileEstimate(101); got != 0 {
		t.Errorf("Out of range percentile should return 0, got %d", got)
	}

	h.AddSample(1 << 33)
	if got := h.PercentileEstimate(100); got != 4294967296*2 {
		t.Errorf("Expected overflow bucket estimate, got %d", got)
	}
}

func TestSizeHistogramConcurrent(t *testing.T) {
	h := NewSizeHistogram()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				h.AddSample(i)
			}
		}()
	}
	wg.Wait()

	if h.Count() != 8000 {
		t.Errorf("Expected 8000 samples, got %d", h.Count())
	}
}
