package collector

import (
	"testing"
	"time"
)

func TestPeriodStart(t *testing.T) {
	end := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		period string
		want   time.Time
	}{
		{"ytd", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"5d", time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)},
		{"1mo", time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)},
		{"1y", time.Date(2023, 6, 15, 12, 0, 0, 0, time.UTC)},
		{"max", time.Unix(0, 0).UTC()},
	}

	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			got, err := PeriodStart(tt.period, end)
			if err != nil {
				t.Fatalf("PeriodStart(%q) error = %v", tt.period, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("PeriodStart(%q) = %v, want %v", tt.period, got, tt.want)
			}
		})
	}

	if _, err := PeriodStart("3w", end); err == nil {
		t.Error("expected error for unsupported period")
	}
}

func TestResolve(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	from := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	start, end, err := Resolve(Query{Start: from, End: to, Period: "1y"}, now)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !start.Equal(from) || !end.Equal(to) {
		t.Errorf("explicit range should win: got %v..%v", start, end)
	}

	start, end, err = Resolve(Query{Period: "1mo"}, now)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !end.Equal(now) || !start.Equal(now.AddDate(0, -1, 0)) {
		t.Errorf("period range = %v..%v", start, end)
	}

	if _, _, err := Resolve(Query{Start: to, End: from}, now); err == nil {
		t.Error("expected error for inverted dates")
	}
}
