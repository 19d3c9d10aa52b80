package calls

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresStore persists call events, contact activity mirrors and daily metrics.
//
// It relies on these constraints (see migrations):
// - UNIQUE (provider, external_call_id) on call_events
// - UNIQUE (agency_id, employee_id, metric_date) on daily_call_metrics
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

func (s *PostgresStore) ExistsByExternalID(ctx context.Context, provider, externalCallID string) (bool, error) {
	const q = `
SELECT EXISTS (
  SELECT 1 FROM call_events WHERE provider = $1 AND external_call_id = $2
)
`
	var exists bool
	if err := s.db.QueryRowContext(ctx, q, provider, externalCallID).Scan(&exists); err != nil {
		return false, fmt.Errorf("call event lookup: %w", err)
	}
	return exists, nil
}

// InsertEvent writes e and reports false when another writer already holds the
// (provider, external_call_id) pair.
func (s *PostgresStore) InsertEvent(ctx context.Context, e CallEvent) (bool, error) {
	const q = `
INSERT INTO call_events (
  id, agency_id, provider, external_call_id, direction, from_number, to_number,
  duration_seconds, started_at, result, internal_party_name,
  employee_id, household_id, contact_id, raw_row, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16
)
ON CONFLICT (provider, external_call_id) DO NOTHING
`
	res, err := s.db.ExecContext(ctx, q,
		e.ID,
		e.AgencyID,
		e.Provider,
		e.ExternalCallID,
		string(e.Direction),
		nullString(e.FromNumber),
		nullString(e.ToNumber),
		e.DurationSeconds,
		e.StartedAt,
		nullString(e.Result),
		nullString(e.InternalPartyName),
		e.EmployeeID,
		e.HouseholdID,
		e.ContactID,
		nullString(e.RawRow),
		e.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert call event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert call event: %w", err)
	}
	return n > 0, nil
}

func (s *PostgresStore) InsertActivity(ctx context.Context, a ContactActivity) error {
	const q = `
INSERT INTO contact_activities (
  id, agency_id, contact_id, call_event_id, employee_id, type, subject, body, occurred_at, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
)
`
	_, err := s.db.ExecContext(ctx, q,
		a.ID,
		a.AgencyID,
		a.ContactID,
		nullString(a.CallEventID),
		a.EmployeeID,
		a.Type,
		a.Subject,
		nullString(a.Body),
		a.OccurredAt,
		a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert contact activity: %w", err)
	}
	return nil
}

// UpsertDailyMetric replaces every aggregate for the (agency, employee, date) key.
func (s *PostgresStore) UpsertDailyMetric(ctx context.Context, m DailyCallMetric) error {
	const q = `
INSERT INTO daily_call_metrics (
  agency_id, employee_id, metric_date, inbound_calls, outbound_calls, total_calls, talk_time_seconds, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8
)
ON CONFLICT (agency_id, employee_id, metric_date)
DO UPDATE SET inbound_calls = EXCLUDED.inbound_calls,
              outbound_calls = EXCLUDED.outbound_calls,
              total_calls = EXCLUDED.total_calls,
              talk_time_seconds = EXCLUDED.talk_time_seconds,
              updated_at = EXCLUDED.updated_at
`
	_, err := s.db.ExecContext(ctx, q,
		m.AgencyID,
		m.EmployeeID,
		m.MetricDate.Format(time.DateOnly),
		m.InboundCalls,
		m.OutboundCalls,
		m.TotalCalls,
		m.TalkTimeSeconds,
		m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert daily metric: %w", err)
	}
	return nil
}

// ListEvents returns events whose start time (or insert time when unknown) falls in [from, to).
func (s *PostgresStore) ListEvents(ctx context.Context, agencyID string, from, to time.Time) ([]CallEvent, error) {
	const q = `
SELECT id, agency_id, provider, external_call_id, direction,
       COALESCE(from_number,''), COALESCE(to_number,''), duration_seconds, started_at,
       COALESCE(result,''), COALESCE(internal_party_name,''),
       employee_id, household_id, contact_id, created_at
FROM call_events
WHERE agency_id = $1
  AND COALESCE(started_at, created_at) >= $2
  AND COALESCE(started_at, created_at) < $3
ORDER BY COALESCE(started_at, created_at)
`
	rows, err := s.db.QueryContext(ctx, q, agencyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list call events: %w", err)
	}
	defer rows.Close()

	var out []CallEvent
	for rows.Next() {
		var (
			e                            CallEvent
			dir                          string
			startedAt                    sql.NullTime
			employee, household, contact sql.NullString
		)
		if err := rows.Scan(
			&e.ID, &e.AgencyID, &e.Provider, &e.ExternalCallID, &dir,
			&e.FromNumber, &e.ToNumber, &e.DurationSeconds, &startedAt,
			&e.Result, &e.InternalPartyName,
			&employee, &household, &contact, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan call event: %w", err)
		}
		e.Direction = Direction(dir)
		if startedAt.Valid {
			t := startedAt.Time
			e.StartedAt = &t
		}
		e.EmployeeID = ptrFromNull(employee)
		e.HouseholdID = ptrFromNull(household)
		e.ContactID = ptrFromNull(contact)
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListDailyMetrics returns metrics for dates in [from, to].
func (s *PostgresStore) ListDailyMetrics(ctx context.Context, agencyID string, from, to time.Time) ([]DailyCallMetric, error) {
	const q = `
SELECT agency_id, employee_id, metric_date, inbound_calls, outbound_calls, total_calls, talk_time_seconds, updated_at
FROM daily_call_metrics
WHERE agency_id = $1 AND metric_date >= $2 AND metric_date <= $3
ORDER BY metric_date, employee_id
`
	rows, err := s.db.QueryContext(ctx, q, agencyID, from.Format(time.DateOnly), to.Format(time.DateOnly))
	if err != nil {
		return nil, fmt.Errorf("list daily metrics: %w", err)
	}
	defer rows.Close()

	var out []DailyCallMetric
	for rows.Next() {
		var m DailyCallMetric
		if err := rows.Scan(
			&m.AgencyID, &m.EmployeeID, &m.MetricDate, &m.InboundCalls,
			&m.OutboundCalls, &m.TotalCalls, &m.TalkTimeSeconds, &m.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan daily metric: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func ptrFromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
