package report

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// DecodeDuration reads a duration cell. Numeric cells are spreadsheet day
// fractions (0.5 == 12h); text cells must be H:MM:SS or MM:SS. Anything else
// decodes to zero.
func DecodeDuration(raw string, numeric bool) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if strings.Contains(raw, ":") {
		return decodeClock(raw)
	}
	if !numeric {
		return 0
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0
	}
	return int(math.Round(f * 86400))
}

func decodeClock(raw string) int {
	parts := strings.Split(raw, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0
	}
	var hours, minutes int
	var seconds float64
	var err error
	if len(parts) == 3 {
		if hours, err = strconv.Atoi(strings.TrimSpace(parts[0])); err != nil {
			return 0
		}
		parts = parts[1:]
	}
	if minutes, err = strconv.Atoi(strings.TrimSpace(parts[0])); err != nil {
		return 0
	}
	if seconds, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64); err != nil {
		return 0
	}
	if hours < 0 || minutes < 0 || seconds < 0 {
		return 0
	}
	return hours*3600 + minutes*60 + int(math.Round(seconds))
}

var (
	usDatePrefix  = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})`)
	isoDatePrefix = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})`)
)

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"Mon 1/2/2006 3:04 PM",
}

// ParseDate reads a serial date number or an MM/DD/YYYY or YYYY-MM-DD prefix
// and returns midnight of that day in loc.
func ParseDate(raw string, date1904 bool, loc *time.Location) (time.Time, bool) {
	t, ok := parseSerialOrPrefix(raw, date1904, loc)
	if !ok {
		return time.Time{}, false
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), true
}

// ParseTimestamp reads a call start time: serial date-time numbers, common
// textual date-time layouts, or at least a date prefix (midnight).
func ParseTimestamp(raw string, date1904 bool, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	return parseSerialOrPrefix(raw, date1904, loc)
}

func parseSerialOrPrefix(raw string, date1904 bool, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		if f <= 0 || math.IsInf(f, 0) || math.IsNaN(f) {
			return time.Time{}, false
		}
		t, err := excelize.ExcelDateToTime(f, date1904)
		if err != nil {
			return time.Time{}, false
		}
		// serials carry wall-clock time with no zone
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), true
	}

	if m := usDatePrefix.FindStringSubmatch(raw); m != nil {
		return civilDate(m[3], m[1], m[2], loc)
	}
	if m := isoDatePrefix.FindStringSubmatch(raw); m != nil {
		return civilDate(m[1], m[2], m[3], loc)
	}
	return time.Time{}, false
}

func civilDate(year, month, day string, loc *time.Location) (time.Time, bool) {
	y, _ := strconv.Atoi(year)
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, loc)
	// reject 02/31 and friends instead of letting time.Date roll over
	if t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

// parseCount reads "12", "12.0" or "1,204"; anything else is zero.
func parseCount(raw string) int {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if raw == "" {
		return 0
	}
	if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && f >= 0 && !math.IsInf(f, 0) {
		return int(math.Round(f))
	}
	return 0
}
