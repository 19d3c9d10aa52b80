package calls

import "time"

// CallEvent is one real phone call taken from a provider call report.
//
// Invariants:
// - (Provider, ExternalCallID) is globally unique; a second row with the same pair is skipped, never overwritten.
// - Rows are never deleted. Only the resolution ids may be back-filled later.
// - AgencyID is required on every row.
type CallEvent struct {
	ID             string    `json:"id" db:"id"`
	AgencyID       string    `json:"agency_id" db:"agency_id"`
	Provider       string    `json:"provider" db:"provider"`
	ExternalCallID string    `json:"external_call_id" db:"external_call_id"`
	Direction      Direction `json:"direction" db:"direction"`

	// FromNumber and ToNumber hold NormalizePhone output; empty when unrecoverable.
	FromNumber string `json:"from_number,omitempty" db:"from_number"`
	ToNumber   string `json:"to_number,omitempty" db:"to_number"`

	DurationSeconds int `json:"duration_seconds" db:"duration_seconds"`

	// StartedAt is nil when the report did not carry a usable start time.
	StartedAt *time.Time `json:"started_at,omitempty" db:"started_at"`

	Result string `json:"result,omitempty" db:"result"`

	// InternalPartyName is the raw extension/display name of the agency-side party.
	InternalPartyName string `json:"internal_party_name,omitempty" db:"internal_party_name"`

	EmployeeID  *string `json:"employee_id,omitempty" db:"employee_id"`
	HouseholdID *string `json:"household_id,omitempty" db:"household_id"`
	ContactID   *string `json:"contact_id,omitempty" db:"contact_id"`

	// RawRow is the source row as JSON, kept for audit.
	RawRow string `json:"raw_row,omitempty" db:"raw_row"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
	DirectionInternal Direction = "internal"
)

// ParseDirection maps a report cell to a Direction. ok is false for anything unrecognized.
func ParseDirection(raw string) (Direction, bool) {
	switch normalizeToken(raw) {
	case "inbound", "incoming", "in":
		return DirectionInbound, true
	case "outbound", "outgoing", "out":
		return DirectionOutbound, true
	case "internal":
		return DirectionInternal, true
	default:
		return "", false
	}
}

// ContactActivity mirrors a matched CallEvent onto the contact's activity timeline.
// It is a display convenience; CallEvent stays the source of truth.
type ContactActivity struct {
	ID          string    `json:"id" db:"id"`
	AgencyID    string    `json:"agency_id" db:"agency_id"`
	ContactID   string    `json:"contact_id" db:"contact_id"`
	CallEventID string    `json:"call_event_id,omitempty" db:"call_event_id"`
	EmployeeID  *string   `json:"employee_id,omitempty" db:"employee_id"`
	Type        string    `json:"type" db:"type"`
	Subject     string    `json:"subject" db:"subject"`
	Body        string    `json:"body,omitempty" db:"body"`
	OccurredAt  time.Time `json:"occurred_at" db:"occurred_at"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

const ActivityTypeCall = "call"

// DailyCallMetric is the per-employee aggregate for one calendar date.
// (AgencyID, EmployeeID, MetricDate) is unique; an upsert replaces every value.
type DailyCallMetric struct {
	AgencyID        string    `json:"agency_id" db:"agency_id"`
	EmployeeID      string    `json:"employee_id" db:"employee_id"`
	MetricDate      time.Time `json:"metric_date" db:"metric_date"`
	InboundCalls    int       `json:"inbound_calls" db:"inbound_calls"`
	OutboundCalls   int       `json:"outbound_calls" db:"outbound_calls"`
	TotalCalls      int       `json:"total_calls" db:"total_calls"`
	TalkTimeSeconds int       `json:"talk_time_seconds" db:"talk_time_seconds"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}
