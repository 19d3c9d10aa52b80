package lookup

import "context"

type Employee struct {
	ID          string `db:"id"`
	DisplayName string `db:"display_name"`
}

type Household struct {
	ID    string `db:"id"`
	Phone string `db:"phone"`
}

type Contact struct {
	ID     string   `db:"id"`
	Phones []string `db:"phones"`
}

// Source loads the agency-scoped reference collections an Index is built from.
// Implementations must be safe for concurrent use; Builder calls all three at once.
type Source interface {
	Employees(ctx context.Context, agencyID string) ([]Employee, error)
	Households(ctx context.Context, agencyID string) ([]Household, error)
	Contacts(ctx context.Context, agencyID string) ([]Contact, error)
}
