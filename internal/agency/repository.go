package agency

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type PostgresDirectory struct {
	db *sql.DB
}

func NewPostgresDirectory(db *sql.DB) *PostgresDirectory { return &PostgresDirectory{db: db} }

func (d *PostgresDirectory) ByIngestKey(ctx context.Context, key string) (Agency, error) {
	const q = `
SELECT id, name, call_ingest_key
FROM agencies
WHERE call_ingest_key = $1
`
	var a Agency
	err := d.db.QueryRowContext(ctx, q, key).Scan(&a.ID, &a.Name, &a.IngestKey)
	if errors.Is(err, sql.ErrNoRows) {
		return Agency{}, ErrNotFound
	}
	if err != nil {
		return Agency{}, fmt.Errorf("agency lookup: %w", err)
	}
	return a, nil
}
