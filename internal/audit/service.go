package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for ingestion logs.
// It is append-only; there is no Update or Delete.
type Repository interface {
	Append(ctx context.Context, l IngestionLog) error
	HasMessage(ctx context.Context, messageID string, statuses []Status) (bool, error)
	List(ctx context.Context, f Filter) ([]IngestionLog, error)
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

var (
	ErrInvalidLog        = errors.New("audit: invalid ingestion log")
	ErrInvalidFilter     = errors.New("audit: invalid filter")
	errRepoNotConfigured = errors.New("audit: repository not configured")
)

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// Record appends l, filling ID and CreatedAt when unset.
func (s *Service) Record(ctx context.Context, l IngestionLog) (IngestionLog, error) {
	if s.repo == nil {
		return IngestionLog{}, errRepoNotConfigured
	}
	if !l.Status.Valid() {
		return IngestionLog{}, ErrInvalidLog
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = s.clock().UTC()
	}
	if err := s.repo.Append(ctx, l); err != nil {
		return IngestionLog{}, err
	}
	return l, nil
}

// SeenMessage reports whether a delivery with messageID was already processed.
// An empty id is never considered seen.
func (s *Service) SeenMessage(ctx context.Context, messageID string) (bool, error) {
	if messageID == "" {
		return false, nil
	}
	if s.repo == nil {
		return false, errRepoNotConfigured
	}
	return s.repo.HasMessage(ctx, messageID, processedStatuses)
}

// List returns recent logs, newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]IngestionLog, error) {
	if s.repo == nil {
		return nil, errRepoNotConfigured
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, ErrInvalidFilter
	}
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	return s.repo.List(ctx, f)
}
