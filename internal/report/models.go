package report

import (
	"fmt"
	"strings"
	"time"
)

type Kind string

const (
	KindCalls   Kind = "calls"
	KindUsers   Kind = "users"
	KindUnknown Kind = "unknown"
)

// Report is the parsed content of one workbook. Only one of Calls/Users is populated.
type Report struct {
	Kind Kind
	// Date is the report day at midnight in the parser's location.
	Date time.Time
	// DateFromFilters is false when Date fell back to the processing date.
	DateFromFilters bool
	Sheets          []string

	Calls []CallRow
	Users []UserRow
}

// CallRow is one row of a Calls sheet with every header variant already resolved.
type CallRow struct {
	Line int

	ExternalID string
	Direction  string
	FromNumber string
	FromName   string
	ToNumber   string
	ToName     string
	Result     string

	// StartedAt is nil when the start cell is blank or unreadable.
	StartedAt       *time.Time
	DurationSeconds int

	// Raw maps original header text to cell text.
	Raw map[string]string
}

// UserRow is one row of a Users summary sheet.
type UserRow struct {
	Line int

	Name              string
	InboundCalls      int
	OutboundCalls     int
	TotalCalls        int
	HandleTimeSeconds int
}

// FormatError is a per-file failure. Unsupported marks files that were never
// opened (wrong extension, too large) as opposed to files that failed to parse.
type FormatError struct {
	Reason      string
	Unsupported bool
}

func (e *FormatError) Error() string { return "report: " + e.Reason }

func unreadable(format string, args ...any) *FormatError {
	return &FormatError{Reason: fmt.Sprintf(format, args...)}
}

func sheetList(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}
