package utils

import (
	"errors"
	"testing"
	"time"

	apperrors "github.com/julianstephens/timeblock/internal/errors"
)

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := LoadLocation(name)
	if err != nil {
		t.Fatalf("LoadLocation(%q) error = %v", name, err)
	}
	return loc
}

func TestLoadLocation(t *testing.T) {
	tests := []struct {
		name     string
		timezone string
		wantErr  bool
	}{
		{name: "empty string is rejected", timezone: "", wantErr: true},
		{name: "blank string is rejected", timezone: "   ", wantErr: true},
		{name: "Local is rejected", timezone: "Local", wantErr: true},
		{name: "valid timezone UTC", timezone: "UTC"},
		{name: "valid timezone America/New_York", timezone: "America/New_York"},
		{name: "valid timezone Asia/Tokyo", timezone: "Asia/Tokyo"},
		{name: "surrounding whitespace is trimmed", timezone: " Europe/London "},
		{name: "invalid timezone", timezone: "Invalid/Timezone", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := LoadLocation(tt.timezone)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadLocation() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, apperrors.ErrInvalidTimeZone) {
					t.Errorf("error %v does not wrap ErrInvalidTimeZone", err)
				}
				if apperrors.KindOf(err) != apperrors.KindValidation {
					t.Errorf("KindOf() = %v, want validation", apperrors.KindOf(err))
				}
				return
			}
			if loc == nil {
				t.Errorf("LoadLocation() returned nil location without error")
			}
		})
	}
}

func TestResolveLocation(t *testing.T) {
	loc, err := ResolveLocation("", false)
	if err != nil || loc != time.UTC {
		t.Errorf("missing zone: got %v, %v; want UTC", loc, err)
	}
	if _, err := ResolveLocation("", true); err == nil {
		t.Error("supplied empty zone should fail")
	}
	if _, err := ResolveLocation("Mars/Olympus", true); err == nil {
		t.Error("supplied malformed zone should fail")
	}
	loc, err = ResolveLocation("Asia/Tokyo", true)
	if err != nil || loc.String() != "Asia/Tokyo" {
		t.Errorf("got %v, %v; want Asia/Tokyo", loc, err)
	}
}

func TestFixedZoneFromOffset(t *testing.T) {
	loc := FixedZoneFromOffset(-300)
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC).In(loc)
	name, offset := ts.Zone()
	if name != "UTC-05:00" || offset != -5*3600 {
		t.Errorf("Zone() = %s, %d; want UTC-05:00, -18000", name, offset)
	}
	if name, _ := time.Now().In(FixedZoneFromOffset(330)).Zone(); name != "UTC+05:30" {
		t.Errorf("Zone() = %s, want UTC+05:30", name)
	}
}

func TestLocalToUTC(t *testing.T) {
	tests := []struct {
		name    string
		local   LocalDateTime
		tz      string
		want    time.Time
		wantErr bool
	}{
		{
			name:  "standard time",
			local: LocalDateTime{Year: 2024, Month: time.March, Day: 9, Hour: 9},
			tz:    "America/New_York",
			want:  time.Date(2024, 3, 9, 14, 0, 0, 0, time.UTC),
		},
		{
			name:  "daylight time on the transition day",
			local: LocalDateTime{Year: 2024, Month: time.March, Day: 10, Hour: 9},
			tz:    "America/New_York",
			want:  time.Date(2024, 3, 10, 13, 0, 0, 0, time.UTC),
		},
		{
			name:  "fall back day afternoon",
			local: LocalDateTime{Year: 2024, Month: time.November, Day: 3, Hour: 15, Minute: 30},
			tz:    "America/New_York",
			want:  time.Date(2024, 11, 3, 20, 30, 0, 0, time.UTC),
		},
		{
			name:  "UTC",
			local: LocalDateTime{Year: 2024, Month: time.February, Day: 29, Hour: 23, Minute: 59},
			tz:    "UTC",
			want:  time.Date(2024, 2, 29, 23, 59, 0, 0, time.UTC),
		},
		{
			name:    "invalid day",
			local:   LocalDateTime{Year: 2023, Month: time.February, Day: 29},
			tz:      "UTC",
			wantErr: true,
		},
		{
			name:    "invalid hour",
			local:   LocalDateTime{Year: 2023, Month: time.January, Day: 1, Hour: 24},
			tz:      "UTC",
			wantErr: true,
		},
		{
			name:    "empty zone",
			local:   LocalDateTime{Year: 2023, Month: time.January, Day: 1},
			tz:      "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LocalToUTC(tt.local, tt.tz)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LocalToUTC() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("LocalToUTC() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUTCToLocalParts(t *testing.T) {
	parts, err := UTCToLocalParts(time.Date(2024, 3, 10, 6, 30, 0, 0, time.UTC), "America/New_York")
	if err != nil {
		t.Fatalf("UTCToLocalParts() error = %v", err)
	}
	want := LocalParts{Year: 2024, Month: time.March, Day: 10, Hour: 1, Minute: 30, DayKey: "2024-03-09"}
	if parts != want {
		t.Errorf("UTCToLocalParts() = %+v, want %+v", parts, want)
	}

	if _, err := UTCToLocalParts(time.Now(), "Not/AZone"); err == nil {
		t.Error("expected error for invalid zone")
	}
}

func TestDayKey(t *testing.T) {
	ny := mustLoad(t, "America/New_York")
	tests := []struct {
		name string
		t    time.Time
		loc  *time.Location
		want string
	}{
		{name: "1am belongs to previous day", t: time.Date(2024, 3, 10, 6, 30, 0, 0, time.UTC), loc: ny, want: "2024-03-09"},
		{name: "after day start", t: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC), loc: ny, want: "2024-03-10"},
		{name: "exactly day start", t: time.Date(2024, 1, 2, 4, 0, 0, 0, time.UTC), loc: time.UTC, want: "2024-01-02"},
		{name: "crosses month in leap year", t: time.Date(2024, 3, 1, 2, 0, 0, 0, time.UTC), loc: time.UTC, want: "2024-02-29"},
		{name: "crosses year", t: time.Date(2025, 1, 1, 3, 59, 0, 0, time.UTC), loc: time.UTC, want: "2024-12-31"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DayKey(tt.t, tt.loc); got != tt.want {
				t.Errorf("DayKey() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseDayKey(t *testing.T) {
	valid := []string{"2024-01-01", "2024-02-29"}
	invalid := []string{"", "2024-1-01", "2023-02-29", "2024/01/01", "2024-01-01T00:00"}
	for _, v := range valid {
		if _, err := ParseDayKey(v); err != nil {
			t.Errorf("ParseDayKey(%q) error = %v", v, err)
		}
	}
	for _, v := range invalid {
		_, err := ParseDayKey(v)
		if err == nil {
			t.Errorf("ParseDayKey(%q) expected error", v)
			continue
		}
		if apperrors.KindOf(err) != apperrors.KindValidation {
			t.Errorf("ParseDayKey(%q) kind = %v", v, apperrors.KindOf(err))
		}
	}
}

func TestAddDays(t *testing.T) {
	got, err := AddDays("2024-02-28", 2)
	if err != nil || got != "2024-03-01" {
		t.Errorf("AddDays() = %s, %v; want 2024-03-01", got, err)
	}
	got, err = AddDays("2024-01-01", -1)
	if err != nil || got != "2023-12-31" {
		t.Errorf("AddDays() = %s, %v; want 2023-12-31", got, err)
	}
}

func TestLogicalDayBounds(t *testing.T) {
	ny := mustLoad(t, "America/New_York")

	start, end, err := LogicalDayBounds("2024-03-09", ny)
	if err != nil {
		t.Fatalf("LogicalDayBounds() error = %v", err)
	}
	if !start.Equal(time.Date(2024, 3, 9, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v", start)
	}
	if !end.Equal(time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("end = %v", end)
	}
	if end.Sub(start) != 23*time.Hour {
		t.Errorf("spring-forward logical day lasted %v, want 23h", end.Sub(start))
	}

	start, end, err = LogicalDayBounds("2024-06-01", time.UTC)
	if err != nil {
		t.Fatalf("LogicalDayBounds() error = %v", err)
	}
	if end.Sub(start) != 24*time.Hour || start.Hour() != 4 {
		t.Errorf("bounds = %v - %v", start, end)
	}
}

func TestAtLocalMinute(t *testing.T) {
	got, err := AtLocalMinute("2024-01-31", 1440+60, time.UTC)
	if err != nil {
		t.Fatalf("AtLocalMinute() error = %v", err)
	}
	if want := time.Date(2024, 2, 1, 1, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("AtLocalMinute() = %v, want %v", got, want)
	}
	got, err = AtLocalMinute("2024-01-01", -60, time.UTC)
	if err != nil {
		t.Fatalf("AtLocalMinute() error = %v", err)
	}
	if want := time.Date(2023, 12, 31, 23, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("AtLocalMinute() = %v, want %v", got, want)
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "00:00", want: 0},
		{in: "09:30", want: 570},
		{in: "9:05", want: 545},
		{in: "22:00:00", want: 1320},
		{in: "24:00", want: 1440},
		{in: "24:30", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "noon", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseClock() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseClock() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFormatClock(t *testing.T) {
	if got := FormatClock(570); got != "09:30" {
		t.Errorf("FormatClock(570) = %s", got)
	}
	if got := FormatClock(1440 + 60); got != "01:00" {
		t.Errorf("FormatClock(1500) = %s", got)
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	ts := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	s := FormatTimestamp(ts)
	if s != "2024-05-06T07:08:09Z" {
		t.Errorf("FormatTimestamp() = %s", s)
	}
	back, err := ParseTimestamp(s)
	if err != nil || !back.Equal(ts) {
		t.Errorf("ParseTimestamp() = %v, %v", back, err)
	}
}
