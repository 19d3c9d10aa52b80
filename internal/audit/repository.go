package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, l IngestionLog) error {
	const q = `
INSERT INTO ingestion_logs (
  id, agency_id, sender, recipient, subject, message_id,
  status, files_processed, results, error, retryable, duration_ms, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9::jsonb,$10,$11,$12,$13
)
`
	results := l.Results
	if results == "" {
		results = "[]"
	}
	_, err := r.db.ExecContext(ctx, q,
		l.ID,
		l.AgencyID,
		l.Sender,
		l.Recipient,
		l.Subject,
		sql.NullString{String: l.MessageID, Valid: l.MessageID != ""},
		string(l.Status),
		l.FilesProcessed,
		results,
		sql.NullString{String: l.Error, Valid: l.Error != ""},
		l.Retryable,
		l.DurationMS,
		l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ingestion log: %w", err)
	}
	return nil
}

func (r *PostgresRepo) HasMessage(ctx context.Context, messageID string, statuses []Status) (bool, error) {
	const q = `
SELECT EXISTS (
  SELECT 1 FROM ingestion_logs
  WHERE message_id = $1 AND status = ANY($2) AND NOT retryable
)
`
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	var exists bool
	if err := r.db.QueryRowContext(ctx, q, messageID, pq.Array(names)).Scan(&exists); err != nil {
		return false, fmt.Errorf("ingestion log lookup: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepo) List(ctx context.Context, f Filter) ([]IngestionLog, error) {
	var (
		where []string
		args  []any
	)
	if f.AgencyID != "" {
		args = append(args, f.AgencyID)
		where = append(where, fmt.Sprintf("agency_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	q := `
SELECT id, agency_id, sender, recipient, COALESCE(subject, ''), COALESCE(message_id, ''),
       status, files_processed, results::text, COALESCE(error, ''), retryable, duration_ms, created_at
FROM ingestion_logs`
	if len(where) > 0 {
		q += "\nWHERE " + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit)
	q += fmt.Sprintf("\nORDER BY created_at DESC\nLIMIT $%d", len(args))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list ingestion logs: %w", err)
	}
	defer rows.Close()

	var out []IngestionLog
	for rows.Next() {
		var (
			l        IngestionLog
			agencyID sql.NullString
			status   string
		)
		if err := rows.Scan(&l.ID, &agencyID, &l.Sender, &l.Recipient, &l.Subject, &l.MessageID,
			&status, &l.FilesProcessed, &l.Results, &l.Error, &l.Retryable, &l.DurationMS, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ingestion log: %w", err)
		}
		if agencyID.Valid {
			l.AgencyID = &agencyID.String
		}
		l.Status = Status(status)
		out = append(out, l)
	}
	return out, rows.Err()
}
