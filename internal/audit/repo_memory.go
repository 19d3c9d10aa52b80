package audit

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory append-only repository for tests and local runs.
type MemoryRepo struct {
	mu   sync.Mutex
	logs []IngestionLog
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(ctx context.Context, l IngestionLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, l)
	return nil
}

func (r *MemoryRepo) HasMessage(ctx context.Context, messageID string, statuses []Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.logs {
		if l.MessageID != messageID || l.Retryable {
			continue
		}
		for _, s := range statuses {
			if l.Status == s {
				return true, nil
			}
		}
	}
	return false, nil
}

func (r *MemoryRepo) List(ctx context.Context, f Filter) ([]IngestionLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []IngestionLog
	for i := len(r.logs) - 1; i >= 0 && len(out) < f.Limit; i-- {
		l := r.logs[i]
		if f.Status != "" && l.Status != f.Status {
			continue
		}
		if f.AgencyID != "" && (l.AgencyID == nil || *l.AgencyID != f.AgencyID) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (r *MemoryRepo) Logs() []IngestionLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]IngestionLog, len(r.logs))
	copy(out, r.logs)
	return out
}
