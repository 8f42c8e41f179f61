package measurement

import (
	"testing"
	"time"
)

func records(heights ...float64) []Record {
	out := make([]Record, len(heights))
	for i, h := range heights {
		out[i] = Record{HeightCM: h}
	}
	return out
}

func TestSummarize(t *testing.T) {
	s := Summarize(records(4, 2, 3))

	if s.PredictedSeedlings != 3 {
		t.Errorf("PredictedSeedlings: got %d, want 3", s.PredictedSeedlings)
	}
	if s.MeanHeightCM == nil || *s.MeanHeightCM != 3 {
		t.Errorf("MeanHeightCM: got %v, want 3", s.MeanHeightCM)
	}
	if s.MedianCM == nil || *s.MedianCM != 3 {
		t.Errorf("MedianCM: got %v, want 3", s.MedianCM)
	}
	if s.StdDevCM == nil || *s.StdDevCM != 1 {
		t.Errorf("StdDevCM: got %v, want 1", s.StdDevCM)
	}
}

func TestSummarize_MeanRounded(t *testing.T) {
	s := Summarize(records(1, 1, 2))
	if s.MeanHeightCM == nil || *s.MeanHeightCM != 1.33 {
		t.Errorf("MeanHeightCM: got %v, want 1.33", s.MeanHeightCM)
	}
}

func TestSummarize_Single(t *testing.T) {
	s := Summarize(records(2.5))
	if s.MeanHeightCM == nil || *s.MeanHeightCM != 2.5 {
		t.Errorf("MeanHeightCM: got %v, want 2.5", s.MeanHeightCM)
	}
	if s.StdDevCM != nil {
		t.Errorf("StdDevCM should be nil for one measurement, got %v", *s.StdDevCM)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	if s.PredictedSeedlings != 0 {
		t.Errorf("PredictedSeedlings: got %d, want 0", s.PredictedSeedlings)
	}
	if s.MeanHeightCM != nil || s.MedianCM != nil || s.StdDevCM != nil {
		t.Error("statistics must be nil when nothing was measured")
	}
}

func TestFindOptimum(t *testing.T) {
	day0 := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	mean := func(v float64) EntrySummary { return EntrySummary{PredictedSeedlings: 1, MeanHeightCM: &v} }

	results := []EntryResult{
		{ID: "a", Timestamp: day0, Summary: mean(0.8)},
		{ID: "b", Timestamp: day0.Add(50 * time.Hour), Summary: mean(2.1)},
		{ID: "c", Timestamp: day0.Add(74 * time.Hour), Summary: mean(1.95)},
		{ID: "d", Timestamp: day0.Add(98 * time.Hour), Summary: EntrySummary{}},
	}

	opt := FindOptimum(results, 2.0)
	if opt == nil {
		t.Fatal("FindOptimum returned nil")
	}
	if opt.EntryID != "c" {
		t.Errorf("EntryID: got %s, want c", opt.EntryID)
	}
	if opt.Elapsed != 74*time.Hour {
		t.Errorf("Elapsed: got %v, want 74h", opt.Elapsed)
	}
	if opt.Duration != "3 days, 2 hours" {
		t.Errorf("Duration: got %q", opt.Duration)
	}
}

func TestFindOptimum_NoMeasurements(t *testing.T) {
	if opt := FindOptimum([]EntryResult{{ID: "a"}, {ID: "b"}}, 2.0); opt != nil {
		t.Errorf("got %+v, want nil", opt)
	}
	if opt := FindOptimum(nil, 2.0); opt != nil {
		t.Errorf("got %+v for no entries, want nil", opt)
	}
}

func TestFindOptimum_NoTimestamps(t *testing.T) {
	v := 2.0
	opt := FindOptimum([]EntryResult{{ID: "x", Summary: EntrySummary{MeanHeightCM: &v}}}, 2.0)
	if opt == nil || opt.Elapsed != 0 || opt.Duration != "0 days, 0 hours" {
		t.Errorf("got %+v", opt)
	}
}

func TestFindOptimum_ElapsedFromEarliest(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	a, b, c := 1.0, 2.0, 3.0

	tests := []struct {
		name    string
		results []EntryResult
		target  float64
		wantID  string
		wantDur string
	}{
		{
			"later entry listed first",
			[]EntryResult{
				{ID: "late", Timestamp: t0.Add(48 * time.Hour), Summary: EntrySummary{MeanHeightCM: &c}},
				{ID: "early", Timestamp: t0, Summary: EntrySummary{MeanHeightCM: &a}},
			},
			3.0, "late", "2 days, 0 hours",
		},
		{
			"earliest entry without a timestamp is ignored",
			[]EntryResult{
				{ID: "blank", Summary: EntrySummary{MeanHeightCM: &a}},
				{ID: "mid", Timestamp: t0.Add(5 * time.Hour), Summary: EntrySummary{MeanHeightCM: &b}},
				{ID: "start", Timestamp: t0},
			},
			2.0, "mid", "0 days, 5 hours",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt := FindOptimum(tt.results, tt.target)
			if opt == nil {
				t.Fatal("no optimum")
			}
			if opt.EntryID != tt.wantID {
				t.Errorf("EntryID: got %q, want %q", opt.EntryID, tt.wantID)
			}
			if opt.Elapsed < 0 {
				t.Errorf("negative elapsed %v", opt.Elapsed)
			}
			if opt.Duration != tt.wantDur {
				t.Errorf("Duration: got %q, want %q", opt.Duration, tt.wantDur)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0 days, 0 hours"},
		{5 * time.Hour, "0 days, 5 hours"},
		{50*time.Hour + 59*time.Minute, "2 days, 2 hours"},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v): got %q, want %q", tt.d, got, tt.want)
		}
	}
}
