package measurement

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// EntrySummary aggregates the measurements of one image.
// The height statistics are nil when nothing was measured.
type EntrySummary struct {
	PredictedSeedlings int      `json:"predicted_seedlings"`
	MeanHeightCM       *float64 `json:"mean_height_cm"`
	StdDevCM           *float64 `json:"std_dev_cm,omitempty"`
	MedianCM           *float64 `json:"median_cm,omitempty"`
}

// Summarize computes the per-entry statistics, each rounded to 2 decimals.
// The standard deviation needs at least two measurements.
func Summarize(records []Record) EntrySummary {
	s := EntrySummary{PredictedSeedlings: len(records)}
	if len(records) == 0 {
		return s
	}

	heights := make([]float64, len(records))
	for i, r := range records {
		heights[i] = r.HeightCM
	}
	sort.Float64s(heights)

	mean := Round2(stat.Mean(heights, nil))
	median := Round2(stat.Quantile(0.5, stat.Empirical, heights, nil))
	s.MeanHeightCM = &mean
	s.MedianCM = &median

	if len(heights) > 1 {
		if sd := stat.StdDev(heights, nil); !math.IsNaN(sd) {
			sd = Round2(sd)
			s.StdDevCM = &sd
		}
	}
	return s
}

// Optimum is the entry whose mean height is closest to the target height.
type Optimum struct {
	EntryID      string        `json:"entry_id"`
	MeanHeightCM float64       `json:"mean_height_cm"`
	Elapsed      time.Duration `json:"elapsed_ns"`
	Duration     string        `json:"duration"`
}

// FindOptimum picks, among entries with a mean height, the one closest to
// targetCM. Elapsed is measured from the earliest timestamp in results,
// whatever their order. Earlier entries win ties. Returns nil when no entry
// has a mean height.
func FindOptimum(results []EntryResult, targetCM float64) *Optimum {
	if len(results) == 0 {
		return nil
	}
	first := earliest(results)

	var best *Optimum
	bestDiff := math.Inf(1)
	for _, r := range results {
		if r.Summary.MeanHeightCM == nil {
			continue
		}
		mean := *r.Summary.MeanHeightCM
		if d := math.Abs(mean - targetCM); d < bestDiff {
			bestDiff = d
			elapsed := time.Duration(0)
			if !first.IsZero() && !r.Timestamp.IsZero() {
				elapsed = r.Timestamp.Sub(first)
			}
			best = &Optimum{
				EntryID:      r.ID,
				MeanHeightCM: mean,
				Elapsed:      elapsed,
				Duration:     FormatDuration(elapsed),
			}
		}
	}
	return best
}

// earliest returns the smallest non-zero timestamp, or the zero time.
func earliest(results []EntryResult) time.Time {
	var t time.Time
	for _, r := range results {
		if r.Timestamp.IsZero() {
			continue
		}
		if t.IsZero() || r.Timestamp.Before(t) {
			t = r.Timestamp
		}
	}
	return t
}

// FormatDuration renders d as "N days, H hours".
func FormatDuration(d time.Duration) string {
	days := int(d / (24 * time.Hour))
	hours := int((d % (24 * time.Hour)) / time.Hour)
	return fmt.Sprintf("%d days, %d hours", days, hours)
}
