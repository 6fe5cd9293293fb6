package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/julianstephens/timeblock/internal/constants"
	apperrors "github.com/julianstephens/timeblock/internal/errors"
)

// LocalDateTime is a wall-clock reading in some time zone.
type LocalDateTime struct {
	Year   int
	Month  time.Month
	Day    int
	Hour   int
	Minute int
}

// LocalParts is an instant broken down in a user's zone. DayKey is the logical
// day the instant belongs to, which starts at constants.DayStartHour.
type LocalParts struct {
	Year   int
	Month  time.Month
	Day    int
	Hour   int
	Minute int
	DayKey string
}

// LoadLocation loads an IANA zone. Unlike time.LoadLocation, an empty name is
// an error: callers that accept an absent zone use ResolveLocation instead.
func LoadLocation(timezone string) (*time.Location, error) {
	name := strings.TrimSpace(timezone)
	if name == "" {
		return nil, fmt.Errorf("%w: empty zone name", apperrors.ErrInvalidTimeZone)
	}
	if name == "Local" {
		return nil, fmt.Errorf("%w: %q is not an IANA zone", apperrors.ErrInvalidTimeZone, name)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", apperrors.ErrInvalidTimeZone, name, err)
	}
	return loc, nil
}

// ResolveLocation returns UTC when no zone was supplied and otherwise loads the
// supplied name strictly.
func ResolveLocation(timezone string, supplied bool) (*time.Location, error) {
	if !supplied {
		return time.UTC, nil
	}
	return LoadLocation(timezone)
}

// FixedZoneFromOffset builds a zone for a client that only reported its UTC offset.
func FixedZoneFromOffset(offsetMinutes int) *time.Location {
	sign := "+"
	abs := offsetMinutes
	if abs < 0 {
		sign = "-"
		abs = -abs
	}
	return time.FixedZone(fmt.Sprintf("UTC%s%02d:%02d", sign, abs/60, abs%60), offsetMinutes*60)
}

// ValidateTimezone checks if the timezone name is valid.
func ValidateTimezone(timezone string) bool {
	_, err := LoadLocation(timezone)
	return err == nil
}

// LocalToUTC converts a wall-clock reading in the named zone to a UTC instant.
func LocalToUTC(local LocalDateTime, timezone string) (time.Time, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return time.Time{}, err
	}
	return LocalToUTCIn(local, loc)
}

// LocalToUTCIn is LocalToUTC for an already loaded zone. The offset is looked
// up by time.Date for this exact reading, so DST transitions are honored.
func LocalToUTCIn(local LocalDateTime, loc *time.Location) (time.Time, error) {
	if local.Month < time.January || local.Month > time.December {
		return time.Time{}, apperrors.Validation("local to utc", "month %d out of range", local.Month)
	}
	if local.Day < 1 || local.Day > daysIn(local.Year, local.Month) {
		return time.Time{}, apperrors.Validation("local to utc", "day %d out of range for %04d-%02d", local.Day, local.Year, local.Month)
	}
	if local.Hour < 0 || local.Hour > 23 || local.Minute < 0 || local.Minute > 59 {
		return time.Time{}, apperrors.Validation("local to utc", "time %02d:%02d out of range", local.Hour, local.Minute)
	}
	return time.Date(local.Year, local.Month, local.Day, local.Hour, local.Minute, 0, 0, loc).UTC(), nil
}

// UTCToLocalParts breaks an instant down in the named zone.
func UTCToLocalParts(t time.Time, timezone string) (LocalParts, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return LocalParts{}, err
	}
	return LocalPartsIn(t, loc), nil
}

// LocalPartsIn is UTCToLocalParts for an already loaded zone.
func LocalPartsIn(t time.Time, loc *time.Location) LocalParts {
	local := t.In(loc)
	return LocalParts{
		Year:   local.Year(),
		Month:  local.Month(),
		Day:    local.Day(),
		Hour:   local.Hour(),
		Minute: local.Minute(),
		DayKey: DayKey(t, loc),
	}
}

// DayKey returns the logical day of t in loc. Readings before DayStartHour
// belong to the previous calendar date.
func DayKey(t time.Time, loc *time.Location) string {
	local := t.In(loc)
	y, m, d := local.Date()
	if local.Hour() < constants.DayStartHour {
		d--
	}
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC).Format(constants.DateFormat)
}

// ParseDayKey strictly parses a YYYY-MM-DD key into UTC midnight of that date.
func ParseDayKey(dayKey string) (time.Time, error) {
	if len(dayKey) != len(constants.DateFormat) {
		return time.Time{}, apperrors.Validation("parse day key", "day key %q must be in YYYY-MM-DD format", dayKey)
	}
	t, err := time.Parse(constants.DateFormat, dayKey)
	if err != nil {
		return time.Time{}, apperrors.Validation("parse day key", "invalid day key %q", dayKey)
	}
	return t, nil
}

// AddDays shifts a day key by n calendar days.
func AddDays(dayKey string, n int) (string, error) {
	t, err := ParseDayKey(dayKey)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, n).Format(constants.DateFormat), nil
}

// CompareDayKeys orders two valid day keys; the fixed-width format makes this lexical.
func CompareDayKeys(a, b string) int {
	return strings.Compare(a, b)
}

// LogicalDayBounds returns the UTC instants at which the logical day starts and
// the next one starts. The span is not always 24h across DST changes.
func LogicalDayBounds(dayKey string, loc *time.Location) (time.Time, time.Time, error) {
	start, err := AtLocalMinute(dayKey, constants.DayStartHour*60, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := AtLocalMinute(dayKey, constants.MinutesPerDay+constants.DayStartHour*60, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// AtLocalMinute returns the instant that is minuteOfDay wall-clock minutes after
// local midnight of dayKey's calendar date. Values of 1440 or more roll into the
// following dates; negative values roll back.
func AtLocalMinute(dayKey string, minuteOfDay int, loc *time.Location) (time.Time, error) {
	date, err := ParseDayKey(dayKey)
	if err != nil {
		return time.Time{}, err
	}
	dayOffset := floorDiv(minuteOfDay, constants.MinutesPerDay)
	minute := minuteOfDay - dayOffset*constants.MinutesPerDay
	date = date.AddDate(0, 0, dayOffset)
	return LocalToUTCIn(LocalDateTime{
		Year:   date.Year(),
		Month:  date.Month(),
		Day:    date.Day(),
		Hour:   minute / 60,
		Minute: minute % 60,
	}, loc)
}

// ParseClock parses "HH:MM" (or the "HH:MM:SS" form Postgres time columns
// return) into minutes after midnight.
func ParseClock(value string) (int, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, apperrors.Validation("parse clock", "time %q must be in HH:MM format", value)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 24 {
		return 0, apperrors.Validation("parse clock", "invalid hour in %q", value)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, apperrors.Validation("parse clock", "invalid minute in %q", value)
	}
	if h == 24 && m != 0 {
		return 0, apperrors.Validation("parse clock", "time %q is past midnight", value)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes after midnight as HH:MM.
func FormatClock(minutes int) string {
	minutes = ((minutes % constants.MinutesPerDay) + constants.MinutesPerDay) % constants.MinutesPerDay
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// FormatTimestamp renders t in the persisted ISO-8601 layout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(constants.TimestampFormat)
}

// ParseTimestamp accepts the persisted layout and any RFC 3339 value.
func ParseTimestamp(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
