package lookup

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

var ErrSourceNotConfigured = errors.New("lookup: source not configured")

// Builder reloads an agency's reference data on every call; nothing is cached.
type Builder struct {
	src Source
}

func NewBuilder(src Source) *Builder { return &Builder{src: src} }

// Build issues the three collection loads concurrently and assembles an Index.
func (b *Builder) Build(ctx context.Context, agencyID string) (*Index, error) {
	if b == nil || b.src == nil {
		return nil, ErrSourceNotConfigured
	}

	var (
		employees  []Employee
		households []Household
		contacts   []Contact
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if employees, err = b.src.Employees(gctx, agencyID); err != nil {
			return fmt.Errorf("load employees: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if households, err = b.src.Households(gctx, agencyID); err != nil {
			return fmt.Errorf("load households: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if contacts, err = b.src.Contacts(gctx, agencyID); err != nil {
			return fmt.Errorf("load contacts: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return NewIndex(employees, households, contacts), nil
}
