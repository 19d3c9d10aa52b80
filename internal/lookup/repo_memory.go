package lookup

import (
	"context"
	"sync"
)

// MemorySource serves fixed reference rows keyed by agency.
type MemorySource struct {
	mu         sync.RWMutex
	employees  map[string][]Employee
	households map[string][]Household
	contacts   map[string][]Contact

	// loads counts Employees calls, one per Build.
	loads int

	FailContacts error
}

func NewMemorySource() *MemorySource {
	return &MemorySource{
		employees:  map[string][]Employee{},
		households: map[string][]Household{},
		contacts:   map[string][]Contact{},
	}
}

func (s *MemorySource) AddEmployee(agencyID string, e Employee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees[agencyID] = append(s.employees[agencyID], e)
}

func (s *MemorySource) AddHousehold(agencyID string, h Household) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.households[agencyID] = append(s.households[agencyID], h)
}

func (s *MemorySource) AddContact(agencyID string, c Contact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts[agencyID] = append(s.contacts[agencyID], c)
}

func (s *MemorySource) Employees(ctx context.Context, agencyID string) ([]Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	return append([]Employee(nil), s.employees[agencyID]...), nil
}

func (s *MemorySource) Households(ctx context.Context, agencyID string) ([]Household, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Household(nil), s.households[agencyID]...), nil
}

func (s *MemorySource) Contacts(ctx context.Context, agencyID string) ([]Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailContacts != nil {
		return nil, s.FailContacts
	}
	return append([]Contact(nil), s.contacts[agencyID]...), nil
}

// Loads reports how many times the employee collection was read.
func (s *MemorySource) Loads() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loads
}
