package reporting

import (
	"time"

	"callsync/internal/calls"
)

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// CallsSummaryRequest requests aggregated call activity for one agency.
// Range is half-open: [From, To).
type CallsSummaryRequest struct {
	AgencyID string    `json:"agency_id"`
	Range    TimeRange `json:"range"`
}

type CallsSummary struct {
	AgencyID string `json:"agency_id"`

	TotalCalls    int `json:"total_calls"`
	InboundCalls  int `json:"inbound_calls"`
	OutboundCalls int `json:"outbound_calls"`

	EmployeeMatched  int `json:"employee_matched"`
	HouseholdMatched int `json:"household_matched"`
	ContactMatched   int `json:"contact_matched"`
	// Unmatched counts calls that resolved to neither a household nor a contact.
	Unmatched int `json:"unmatched"`

	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`
}

// DailyMetricsRequest selects DailyCallMetric rows for an inclusive date range.
type DailyMetricsRequest struct {
	AgencyID   string    `json:"agency_id"`
	Range      TimeRange `json:"range"`
	EmployeeID string    `json:"employee_id,omitempty"`
}

type DailyMetricsReport struct {
	AgencyID string                  `json:"agency_id"`
	Rows     []calls.DailyCallMetric `json:"rows"`

	InboundCalls    int `json:"inbound_calls"`
	OutboundCalls   int `json:"outbound_calls"`
	TotalCalls      int `json:"total_calls"`
	TalkTimeSeconds int `json:"talk_time_seconds"`
}
