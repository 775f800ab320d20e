package collector

import (
	"fmt"
	"time"
)

// Resolve turns the query into explicit [start, end] bounds relative to now.
func Resolve(q Query, now time.Time) (time.Time, time.Time, error) {
	end := q.End
	if end.IsZero() {
		end = now
	}
	if !q.Start.IsZero() {
		if q.Start.After(end) {
			return time.Time{}, time.Time{}, fmt.Errorf("start %s is after end %s",
				q.Start.Format("2006-01-02"), end.Format("2006-01-02"))
		}
		return q.Start, end, nil
	}

	start, err := PeriodStart(q.Period, end)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// PeriodStart returns the first instant covered by a named look-back period.
func PeriodStart(period string, end time.Time) (time.Time, error) {
	switch period {
	case "1d":
		return end.AddDate(0, 0, -1), nil
	case "5d":
		return end.AddDate(0, 0, -5), nil
	case "1mo":
		return end.AddDate(0, -1, 0), nil
	case "3mo":
		return end.AddDate(0, -3, 0), nil
	case "6mo":
		return end.AddDate(0, -6, 0), nil
	case "1y":
		return end.AddDate(-1, 0, 0), nil
	case "2y":
		return end.AddDate(-2, 0, 0), nil
	case "5y":
		return end.AddDate(-5, 0, 0), nil
	case "10y":
		return end.AddDate(-10, 0, 0), nil
	case "", "ytd":
		return time.Date(end.Year(), time.January, 1, 0, 0, 0, 0, end.Location()), nil
	case "max":
		return time.Unix(0, 0).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported period: %s", period)
	}
}
