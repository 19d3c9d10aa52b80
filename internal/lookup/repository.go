package lookup

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// PostgresSource reads reference rows for one agency.
type PostgresSource struct {
	db *sql.DB
}

func NewPostgresSource(db *sql.DB) *PostgresSource { return &PostgresSource{db: db} }

func (s *PostgresSource) Employees(ctx context.Context, agencyID string) ([]Employee, error) {
	const q = `
SELECT id, display_name
FROM employees
WHERE agency_id = $1
ORDER BY created_at, id
`
	rows, err := s.db.QueryContext(ctx, q, agencyID)
	if err != nil {
		return nil, fmt.Errorf("query employees: %w", err)
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.ID, &e.DisplayName); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresSource) Households(ctx context.Context, agencyID string) ([]Household, error) {
	const q = `
SELECT id, phone
FROM households
WHERE agency_id = $1 AND phone IS NOT NULL AND phone <> ''
ORDER BY created_at, id
`
	rows, err := s.db.QueryContext(ctx, q, agencyID)
	if err != nil {
		return nil, fmt.Errorf("query households: %w", err)
	}
	defer rows.Close()

	var out []Household
	for rows.Next() {
		var h Household
		if err := rows.Scan(&h.ID, &h.Phone); err != nil {
			return nil, fmt.Errorf("scan household: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *PostgresSource) Contacts(ctx context.Context, agencyID string) ([]Contact, error) {
	const q = `
SELECT id, phones
FROM contacts
WHERE agency_id = $1 AND cardinality(phones) > 0
ORDER BY created_at, id
`
	rows, err := s.db.QueryContext(ctx, q, agencyID)
	if err != nil {
		return nil, fmt.Errorf("query contacts: %w", err)
	}
	defer rows.Close()

	var out []Contact
	for rows.Next() {
		var (
			c      Contact
			phones pq.StringArray
		)
		if err := rows.Scan(&c.ID, &phones); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		c.Phones = []string(phones)
		out = append(out, c)
	}
	return out, rows.Err()
}
