package lookup

import (
	"sort"
	"strings"

	"callsync/internal/calls"
)

// Index is a read-only, request-scoped snapshot of an agency's reference data.
type Index struct {
	employees map[string]string
	// names holds employee keys ordered longest first, then alphabetically,
	// so containment matching is deterministic and prefers the most specific name.
	names      []string
	households map[string]string
	contacts   map[string]string
}

// NewIndex builds an Index. When two records share a key the first one wins.
func NewIndex(employees []Employee, households []Household, contacts []Contact) *Index {
	ix := &Index{
		employees:  make(map[string]string, len(employees)),
		households: make(map[string]string, len(households)),
		contacts:   make(map[string]string, len(contacts)),
	}
	for _, e := range employees {
		key := normalizeName(e.DisplayName)
		if key == "" {
			continue
		}
		if _, ok := ix.employees[key]; !ok {
			ix.employees[key] = e.ID
			ix.names = append(ix.names, key)
		}
	}
	sort.Slice(ix.names, func(i, j int) bool {
		if len(ix.names[i]) != len(ix.names[j]) {
			return len(ix.names[i]) > len(ix.names[j])
		}
		return ix.names[i] < ix.names[j]
	})

	for _, h := range households {
		putPhone(ix.households, h.Phone, h.ID)
	}
	for _, c := range contacts {
		for _, p := range c.Phones {
			putPhone(ix.contacts, p, c.ID)
		}
	}
	return ix
}

// Employee resolves a display name: exact case-insensitive match first, then
// containment in either direction.
//
// Containment can produce false positives ("Al" inside "Alice"); it is kept
// because provider extension names are routinely truncated or decorated.
func (ix *Index) Employee(name string) (string, bool) {
	if ix == nil {
		return "", false
	}
	key := normalizeName(name)
	if key == "" {
		return "", false
	}
	if id, ok := ix.employees[key]; ok {
		return id, true
	}
	for _, candidate := range ix.names {
		if strings.Contains(key, candidate) || strings.Contains(candidate, key) {
			return ix.employees[candidate], true
		}
	}
	return "", false
}

func (ix *Index) Household(phone string) (string, bool) {
	if ix == nil {
		return "", false
	}
	return lookupPhone(ix.households, phone)
}

func (ix *Index) Contact(phone string) (string, bool) {
	if ix == nil {
		return "", false
	}
	return lookupPhone(ix.contacts, phone)
}

// Sizes returns the entry counts of the employee, household and contact maps.
func (ix *Index) Sizes() (employees, households, contacts int) {
	if ix == nil {
		return 0, 0, 0
	}
	return len(ix.employees), len(ix.households), len(ix.contacts)
}

func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func putPhone(m map[string]string, raw, id string) {
	key := calls.NormalizePhone(raw)
	if key == "" {
		return
	}
	if _, ok := m[key]; !ok {
		m[key] = id
	}
}

func lookupPhone(m map[string]string, raw string) (string, bool) {
	key := calls.NormalizePhone(raw)
	if key == "" {
		return "", false
	}
	id, ok := m[key]
	return id, ok
}
