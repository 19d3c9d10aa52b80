package audit

import "time"

// IngestionLog is one webhook delivery attempt.
//
// Invariants:
// - Rows are append-only; they are never updated or deleted.
// - AgencyID is nil when the recipient could not be routed to an agency.
// - MessageID is the provider message id used to short-circuit redeliveries.
//
// Storage (Postgres): table ingestion_logs, indexed on message_id.
type IngestionLog struct {
	ID       string  `json:"id" db:"id"`
	AgencyID *string `json:"agency_id" db:"agency_id"`

	Sender    string `json:"sender" db:"sender"`
	Recipient string `json:"recipient" db:"recipient"`
	Subject   string `json:"subject,omitempty" db:"subject"`
	MessageID string `json:"message_id,omitempty" db:"message_id"`

	Status         Status `json:"status" db:"status"`
	FilesProcessed int    `json:"files_processed" db:"files_processed"`

	// Results holds the per-file outcomes as a JSON array.
	Results string `json:"results,omitempty" db:"results"`
	// Error is a short reason for rejected or failed deliveries.
	Error string `json:"error,omitempty" db:"error"`
	// Retryable marks a failure caused by our own dependencies (database,
	// reference data). Such entries never mark the message id as processed.
	Retryable bool `json:"retryable,omitempty" db:"retryable"`

	DurationMS int64     `json:"duration_ms" db:"duration_ms"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

type Status string

const (
	StatusSuccess   Status = "success"
	StatusPartial   Status = "partial"
	StatusFailed    Status = "failed"
	StatusRejected  Status = "rejected"
	StatusDuplicate Status = "duplicate"
)

func (s Status) Valid() bool {
	switch s {
	case StatusSuccess, StatusPartial, StatusFailed, StatusRejected, StatusDuplicate:
		return true
	}
	return false
}

// processedStatuses are the outcomes that mean a message id was already handled.
// Rejected attempts do not count so a forged delivery cannot shadow the real one.
var processedStatuses = []Status{StatusSuccess, StatusPartial, StatusFailed}

// Filter narrows an operator listing. Zero values mean "any".
type Filter struct {
	AgencyID string
	Status   Status
	Limit    int
}
