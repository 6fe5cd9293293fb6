package utils

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/julianstephens/timeblock/internal/errors"
)

// RecurrenceKind is the tag of a habit recurrence rule.
type RecurrenceKind string

const (
	RecurrenceDaily       RecurrenceKind = "daily"
	RecurrenceWeekly      RecurrenceKind = "weekly"
	RecurrenceBiWeekly    RecurrenceKind = "bi-weekly"
	RecurrenceMonthly     RecurrenceKind = "monthly"
	RecurrenceBiMonthly   RecurrenceKind = "bi-monthly"
	RecurrenceSemiAnnual  RecurrenceKind = "every 6 months"
	RecurrenceYearly      RecurrenceKind = "yearly"
	RecurrenceEveryXDays  RecurrenceKind = "every x days"
	recurrenceTagEveryday                = "everyday"
	recurrenceTagNone                    = "none"
)

var everyNDaysPattern = regexp.MustCompile(`(?i)^\s*every\s+(-?\d+)\s+days?\s*$`)

// Recurrence is a parsed rule. IntervalDays is only meaningful for
// RecurrenceEveryXDays; a non-positive value makes the rule never due.
// Weekdays restricts a daily rule, and turns a weekly or bi-weekly rule into
// one occurrence on each listed weekday of the week.
type Recurrence struct {
	Kind         RecurrenceKind
	IntervalDays int
	Weekdays     []time.Weekday
}

// RecurrenceHistory is what IsDue needs to know about past occurrences.
// All fields are day keys and may be empty.
type RecurrenceHistory struct {
	AnchorDayKey         string
	LastCompletedDayKey  string
	LastOccurrenceDayKey string
}

// ParseRecurrence turns a stored tag and its recurrence-day list into a rule.
// An "every x days" tag with no usable interval parses successfully into a
// rule that is never due; only unknown tags are errors.
func ParseRecurrence(tag string, days []any) (Recurrence, error) {
	normalized := strings.ToLower(strings.TrimSpace(tag))
	switch normalized {
	case "", recurrenceTagNone, recurrenceTagEveryday, string(RecurrenceDaily):
		return Recurrence{Kind: RecurrenceDaily, Weekdays: weekdaysFrom(days)}, nil
	case string(RecurrenceWeekly), string(RecurrenceBiWeekly):
		return Recurrence{Kind: RecurrenceKind(normalized), Weekdays: weekdaysFrom(days)}, nil
	case string(RecurrenceMonthly), string(RecurrenceBiMonthly), string(RecurrenceSemiAnnual), string(RecurrenceYearly):
		return Recurrence{Kind: RecurrenceKind(normalized)}, nil
	case string(RecurrenceEveryXDays):
		n, _ := ResolveEveryXDaysInterval(normalized, days)
		return Recurrence{Kind: RecurrenceEveryXDays, IntervalDays: n}, nil
	}
	if everyNDaysPattern.MatchString(normalized) {
		n, _ := ResolveEveryXDaysInterval(normalized, days)
		return Recurrence{Kind: RecurrenceEveryXDays, IntervalDays: n}, nil
	}
	return Recurrence{}, apperrors.Validation("parse recurrence", "unknown recurrence %q", tag)
}

// PerDay reports whether occurrences are tracked day by day (daily rules and
// weekly rules with a weekday set) rather than as one rolling cycle.
func (r Recurrence) PerDay() bool {
	switch r.Kind {
	case RecurrenceDaily:
		return true
	case RecurrenceWeekly, RecurrenceBiWeekly:
		return len(r.Weekdays) > 0
	}
	return false
}

// String renders the rule back into its stored tag.
func (r Recurrence) String() string {
	if r.Kind == RecurrenceEveryXDays {
		return FormatInterval(r.IntervalDays)
	}
	return string(r.Kind)
}

// next returns the first day an occurrence is due after one on base.
func (r Recurrence) next(base time.Time) time.Time {
	switch r.Kind {
	case RecurrenceWeekly:
		return base.AddDate(0, 0, 7)
	case RecurrenceBiWeekly:
		return base.AddDate(0, 0, 14)
	case RecurrenceMonthly:
		return addMonthsClamped(base, 1)
	case RecurrenceBiMonthly:
		return addMonthsClamped(base, 2)
	case RecurrenceSemiAnnual:
		return addMonthsClamped(base, 6)
	case RecurrenceYearly:
		return addMonthsClamped(base, 12)
	case RecurrenceEveryXDays:
		return base.AddDate(0, 0, r.IntervalDays)
	default:
		return base.AddDate(0, 0, 1)
	}
}

// IsDue reports whether an occurrence of r falls on dayKey. Malformed input
// and interval rules without a positive interval are never due.
func IsDue(r Recurrence, dayKey string, history RecurrenceHistory) bool {
	day, err := ParseDayKey(dayKey)
	if err != nil {
		return false
	}

	if r.PerDay() {
		if len(r.Weekdays) > 0 && !containsWeekday(r.Weekdays, day.Weekday()) {
			return false
		}
		if r.Kind != RecurrenceDaily && history.AnchorDayKey != "" {
			anchor, err := ParseDayKey(history.AnchorDayKey)
			if err == nil && day.Before(anchor) {
				return false
			}
			if err == nil && r.Kind == RecurrenceBiWeekly && weeksBetween(anchor, day)%2 != 0 {
				return false
			}
		}
		return history.LastOccurrenceDayKey != dayKey && history.LastCompletedDayKey != dayKey
	}

	if r.Kind == RecurrenceEveryXDays && r.IntervalDays <= 0 {
		return false
	}

	// Completions and occurrences (missed included) both advance the cycle.
	base := history.LastCompletedDayKey
	if CompareDayKeys(history.LastOccurrenceDayKey, base) > 0 {
		base = history.LastOccurrenceDayKey
	}
	if base == "" {
		if history.AnchorDayKey == "" {
			return true
		}
		anchor, err := ParseDayKey(history.AnchorDayKey)
		if err != nil {
			return true
		}
		return !day.Before(anchor)
	}

	last, err := ParseDayKey(base)
	if err != nil {
		return false
	}
	return !day.Before(r.next(last))
}

// ParseInterval extracts N from "every N days". Non-positive N is rejected.
func ParseInterval(text string) (int, bool) {
	m := everyNDaysPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// FormatInterval is the inverse of ParseInterval.
func FormatInterval(n int) string {
	if n == 1 {
		return "every 1 day"
	}
	return fmt.Sprintf("every %d days", n)
}

// CoerceInterval converts a stored recurrence-day value into an interval,
// rounding to the nearest integer before checking it is positive.
func CoerceInterval(v any) (int, bool) {
	var f float64
	switch x := v.(type) {
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case float32:
		f = float64(x)
	case float64:
		f = x
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	rounded := math.Round(f)
	if rounded <= 0 || rounded > math.MaxInt32 {
		return 0, false
	}
	return int(rounded), true
}

// ResolveEveryXDaysInterval picks the interval of an "every x days" habit. The
// first coercible entry of the recurrence-day list wins over the text.
func ResolveEveryXDaysInterval(text string, days []any) (int, bool) {
	for _, d := range days {
		if n, ok := CoerceInterval(d); ok {
			return n, true
		}
	}
	return ParseInterval(text)
}

func weekdaysFrom(days []any) []time.Weekday {
	var out []time.Weekday
	seen := make(map[time.Weekday]bool)
	for _, d := range days {
		n, ok := coerceWeekday(d)
		if !ok {
			continue
		}
		wd := time.Weekday(((n % 7) + 7) % 7)
		if !seen[wd] {
			seen[wd] = true
			out = append(out, wd)
		}
	}
	return out
}

func coerceWeekday(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, false
		}
		return int(math.Round(x)), true
	case json.Number:
		n, err := x.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		return n, err == nil
	default:
		return 0, false
	}
}

// weeksBetween counts Monday-started calendar weeks from a to b.
func weeksBetween(a, b time.Time) int {
	monday := func(t time.Time) time.Time {
		y, m, d := t.Date()
		return time.Date(y, m, d-(int(t.Weekday())+6)%7, 0, 0, 0, 0, time.UTC)
	}
	days := int(monday(b).Sub(monday(a)).Hours() / 24)
	return floorDiv(days, 7)
}

func containsWeekday(days []time.Weekday, wd time.Weekday) bool {
	for _, d := range days {
		if d == wd {
			return true
		}
	}
	return false
}

// addMonthsClamped adds n months, clamping to the end of the target month
// (Jan 31 + 1 month is Feb 28/29, not Mar 3).
func addMonthsClamped(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, t.Location())
}
