package record

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Sentinels for unknown date components. They are maximal so that an
// unknown component sorts after every known one, and are never treated as
// calendar values.
const (
	UnknownYear  = 9999
	UnknownMonth = 99
	UnknownDay   = 99
)

// PartialDate represents a date whose components may each be unknown.
type PartialDate struct {
	Year  int `json:"year"`
	Month int `json:"month"` // 1-12, UnknownMonth if unknown
	Day   int `json:"day"`   // 1-31, UnknownDay if unknown
}

// UnknownDate returns a date with every component at its sentinel.
func UnknownDate() PartialDate {
	return PartialDate{Year: UnknownYear, Month: UnknownMonth, Day: UnknownDay}
}

// HasYear reports whether the year is known.
func (d PartialDate) HasYear() bool {
	return d.Year != UnknownYear && d.Year > 0
}

// HasMonth reports whether the month is known.
func (d PartialDate) HasMonth() bool {
	return d.Month >= 1 && d.Month <= 12
}

// HasDay reports whether the day is known.
func (d PartialDate) HasDay() bool {
	return d.Day >= 1 && d.Day <= 31
}

// IsUnknown reports whether no component is known.
func (d PartialDate) IsUnknown() bool {
	return !d.HasYear() && !d.HasMonth() && !d.HasDay()
}

// Normalized replaces zero or out-of-range components with their sentinels.
func (d PartialDate) Normalized() PartialDate {
	if !d.HasYear() {
		d.Year = UnknownYear
	}
	if !d.HasMonth() {
		d.Month = UnknownMonth
	}
	if !d.HasDay() {
		d.Day = UnknownDay
	}
	return d
}

// Compare orders dates component by component. Sentinels are maximal, so a
// fully unknown date sorts after every date with a known component.
func (d PartialDate) Compare(other PartialDate) int {
	a, b := d.Normalized(), other.Normalized()
	switch {
	case a.Year != b.Year:
		return cmpInt(a.Year, b.Year)
	case a.Month != b.Month:
		return cmpInt(a.Month, b.Month)
	default:
		return cmpInt(a.Day, b.Day)
	}
}

// Before reports whether d sorts strictly before other.
func (d PartialDate) Before(other PartialDate) bool {
	return d.Compare(other) < 0
}

// Time converts the date to a calendar date for range comparisons. Unknown
// month and day count as 1; ok is false when the year is unknown.
func (d PartialDate) Time() (t time.Time, ok bool) {
	if !d.HasYear() {
		return time.Time{}, false
	}
	month, day := d.Month, d.Day
	if !d.HasMonth() {
		month = 1
	}
	if !d.HasDay() {
		day = 1
	}
	return time.Date(d.Year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
}

// String formats the date as YEAR:MM:DD with sentinels for unknown parts.
func (d PartialDate) String() string {
	d = d.Normalized()
	return fmt.Sprintf("%d:%02d:%02d", d.Year, d.Month, d.Day)
}

// ParsePartialDate parses the YEAR:MM:DD form produced by String. Month may
// also be a month name. Missing or malformed components become sentinels.
func ParsePartialDate(s string) PartialDate {
	d := UnknownDate()
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) >= 1 {
		if y, err := strconv.Atoi(parts[0]); err == nil && y > 0 && y != UnknownYear {
			d.Year = y
		}
	}
	if len(parts) >= 2 {
		if m, ok := ParseMonth(parts[1]); ok {
			d.Month = m
		}
	}
	if len(parts) >= 3 {
		if day, err := strconv.Atoi(parts[2]); err == nil && day >= 1 && day <= 31 {
			d.Day = day
		}
	}
	return d
}

var monthNames = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

// ParseMonth recognizes numeric months and English month names or their
// three-letter abbreviations.
func ParseMonth(token string) (int, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(token); err == nil {
		if n >= 1 && n <= 12 {
			return n, true
		}
		return 0, false
	}
	if len(token) < 3 {
		return 0, false
	}
	m, ok := monthNames[strings.ToLower(token[:3])]
	return m, ok
}

// MonthOrdinal normalizes a month token to 1-12. Unrecognized, empty and
// sentinel tokens normalize to 1 so the record stays inside later date
// range filters instead of being excluded for a missing month.
func MonthOrdinal(token string) int {
	if m, ok := ParseMonth(token); ok {
		return m
	}
	return 1
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
