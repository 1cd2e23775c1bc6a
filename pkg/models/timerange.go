package models

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Date is a calendar date in plant-local time, independent of any
// instant. The zero value is invalid.
type Date struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Day   int        `json:"day"`
}

// DateOf truncates an instant to a calendar date in the given zone.
func DateOf(t time.Time, loc *time.Location) Date {
	y, m, d := t.In(loc).Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Time returns the start of the day in the given zone.
func (d Date) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// AddDays returns the date shifted by n calendar days.
func (d Date) AddDays(n int) Date {
	t := d.Time(time.UTC).AddDate(0, 0, n)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// Before reports whether d is earlier than other.
func (d Date) Before(other Date) bool {
	return d.Time(time.UTC).Before(other.Time(time.UTC))
}

// After reports whether d is later than other.
func (d Date) After(other Date) bool {
	return other.Before(d)
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// MarshalJSON encodes the date as a YYYY-MM-DD string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON decodes a YYYY-MM-DD string.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// TimeRange is an inclusive calendar date range with a canonical
// description used in result envelopes and citations.
type TimeRange struct {
	Start       Date   `json:"start"`
	End         Date   `json:"end"`
	Description string `json:"description"`
}

var (
	lastNDaysRe     = regexp.MustCompile(`^last\s+(\d+)\s+days?$`)
	explicitRangeRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})\s+to\s+(\d{4}-\d{2}-\d{2})$`)
)

// ParseTimeRange resolves a human time-range description against now
// in the given zone. Recognized forms: "today", "yesterday",
// "this week" (Monday through today), "last N days", and explicit
// "YYYY-MM-DD to YYYY-MM-DD". Anything else degrades to yesterday
// with a warning. Parsing is idempotent on canonical descriptions.
func ParseTimeRange(s string, now time.Time, loc *time.Location) TimeRange {
	today := DateOf(now, loc)
	normalized := strings.ToLower(strings.TrimSpace(s))

	switch normalized {
	case "", "yesterday":
		y := today.AddDays(-1)
		return TimeRange{Start: y, End: y, Description: "yesterday"}
	case "today":
		return TimeRange{Start: today, End: today, Description: "today"}
	case "this week":
		// Monday through today. Go's Weekday has Sunday=0.
		weekday := int(now.In(loc).Weekday())
		daysSinceMonday := (weekday + 6) % 7
		return TimeRange{
			Start:       today.AddDays(-daysSinceMonday),
			End:         today,
			Description: "this week",
		}
	}

	if m := lastNDaysRe.FindStringSubmatch(normalized); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n >= 1 {
			return TimeRange{
				Start:       today.AddDays(-(n - 1)),
				End:         today,
				Description: fmt.Sprintf("last %d days", n),
			}
		}
	}

	if m := explicitRangeRe.FindStringSubmatch(normalized); m != nil {
		start, errS := ParseDate(m[1])
		end, errE := ParseDate(m[2])
		if errS == nil && errE == nil && !end.Before(start) {
			return TimeRange{
				Start:       start,
				End:         end,
				Description: start.String() + " to " + end.String(),
			}
		}
	}

	slog.Warn("Unrecognized time range, defaulting to yesterday", "input", s)
	y := today.AddDays(-1)
	return TimeRange{Start: y, End: y, Description: "yesterday"}
}

// Days returns the number of calendar days covered, inclusive.
func (r TimeRange) Days() int {
	return int(r.End.Time(time.UTC).Sub(r.Start.Time(time.UTC)).Hours()/24) + 1
}

// Previous returns the equal-length range immediately preceding this
// one, used for trend comparisons.
func (r TimeRange) Previous() TimeRange {
	days := r.Days()
	end := r.Start.AddDays(-1)
	start := end.AddDays(-(days - 1))
	return TimeRange{
		Start:       start,
		End:         end,
		Description: start.String() + " to " + end.String(),
	}
}
