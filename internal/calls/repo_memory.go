package calls

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory store for tests and local development.
// It enforces the same uniqueness rules as the Postgres schema.
type MemoryStore struct {
	mu sync.Mutex

	events     []CallEvent
	activities []ContactActivity
	metrics    map[metricKey]DailyCallMetric

	// Fail hooks let tests inject persistence errors.
	FailInsertEvent    func(e CallEvent) error
	FailInsertActivity func(a ContactActivity) error
	FailUpsertMetric   func(m DailyCallMetric) error
}

type metricKey struct {
	agencyID   string
	employeeID string
	date       string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{metrics: map[metricKey]DailyCallMetric{}}
}

func (s *MemoryStore) ExistsByExternalID(ctx context.Context, provider, externalCallID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexOf(provider, externalCallID) >= 0, nil
}

func (s *MemoryStore) InsertEvent(ctx context.Context, e CallEvent) (bool, error) {
	if s.FailInsertEvent != nil {
		if err := s.FailInsertEvent(e); err != nil {
			return false, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(e.Provider, e.ExternalCallID) >= 0 {
		return false, nil
	}
	s.events = append(s.events, e)
	return true, nil
}

func (s *MemoryStore) InsertActivity(ctx context.Context, a ContactActivity) error {
	if s.FailInsertActivity != nil {
		if err := s.FailInsertActivity(a); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities = append(s.activities, a)
	return nil
}

func (s *MemoryStore) UpsertDailyMetric(ctx context.Context, m DailyCallMetric) error {
	if s.FailUpsertMetric != nil {
		if err := s.FailUpsertMetric(m); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics[metricKey{m.AgencyID, m.EmployeeID, m.MetricDate.Format(time.DateOnly)}] = m
	return nil
}

func (s *MemoryStore) ListEvents(ctx context.Context, agencyID string, from, to time.Time) ([]CallEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CallEvent, 0)
	for _, e := range s.events {
		if e.AgencyID != agencyID {
			continue
		}
		at := e.CreatedAt
		if e.StartedAt != nil {
			at = *e.StartedAt
		}
		if at.Before(from) || !at.Before(to) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *MemoryStore) ListDailyMetrics(ctx context.Context, agencyID string, from, to time.Time) ([]DailyCallMetric, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lo, hi := from.Format(time.DateOnly), to.Format(time.DateOnly)
	out := make([]DailyCallMetric, 0)
	for k, m := range s.metrics {
		if k.agencyID != agencyID || k.date < lo || k.date > hi {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].MetricDate.Equal(out[j].MetricDate) {
			return out[i].MetricDate.Before(out[j].MetricDate)
		}
		return out[i].EmployeeID < out[j].EmployeeID
	})
	return out, nil
}

// Events returns a copy of every stored event.
func (s *MemoryStore) Events() []CallEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CallEvent, len(s.events))
	copy(out, s.events)
	return out
}

// Activities returns a copy of every stored activity mirror.
func (s *MemoryStore) Activities() []ContactActivity {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ContactActivity, len(s.activities))
	copy(out, s.activities)
	return out
}

// Metric returns the stored metric for the key, if any.
func (s *MemoryStore) Metric(agencyID, employeeID string, date time.Time) (DailyCallMetric, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.metrics[metricKey{agencyID, employeeID, date.Format(time.DateOnly)}]
	return m, ok
}

func (s *MemoryStore) indexOf(provider, externalCallID string) int {
	for i, e := range s.events {
		if e.Provider == provider && e.ExternalCallID == externalCallID {
			return i
		}
	}
	return -1
}
