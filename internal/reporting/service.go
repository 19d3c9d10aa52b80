package reporting

import (
	"context"
	"errors"
	"time"

	"callsync/internal/calls"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// maxRange bounds a single reporting query.
const maxRange = 366 * 24 * time.Hour

// Repository abstracts data access for reporting.
// Implementations must filter by agency.
type Repository interface {
	ListEvents(ctx context.Context, agencyID string, from, to time.Time) ([]calls.CallEvent, error)
	ListDailyMetrics(ctx context.Context, agencyID string, from, to time.Time) ([]calls.DailyCallMetric, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

func validRange(r TimeRange) bool {
	if r.From.IsZero() || r.To.IsZero() || r.To.Before(r.From) {
		return false
	}
	return r.To.Sub(r.From) <= maxRange
}

func (s *Service) CallsSummary(ctx context.Context, req CallsSummaryRequest) (CallsSummary, error) {
	if req.AgencyID == "" || !validRange(req.Range) || !req.Range.To.After(req.Range.From) {
		return CallsSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return CallsSummary{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.ListEvents(ctx, req.AgencyID, req.Range.From, req.Range.To)
	if err != nil {
		return CallsSummary{}, err
	}

	out := CallsSummary{AgencyID: req.AgencyID}
	for _, e := range rows {
		out.TotalCalls++
		out.TotalDurationSeconds += e.DurationSeconds
		switch e.Direction {
		case calls.DirectionInbound:
			out.InboundCalls++
		case calls.DirectionOutbound:
			out.OutboundCalls++
		}
		if e.EmployeeID != nil {
			out.EmployeeMatched++
		}
		if e.HouseholdID != nil {
			out.HouseholdMatched++
		}
		if e.ContactID != nil {
			out.ContactMatched++
		}
		if e.HouseholdID == nil && e.ContactID == nil {
			out.Unmatched++
		}
	}
	if out.TotalCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / out.TotalCalls
	}
	return out, nil
}

func (s *Service) DailyMetrics(ctx context.Context, req DailyMetricsRequest) (DailyMetricsReport, error) {
	if req.AgencyID == "" || !validRange(req.Range) {
		return DailyMetricsReport{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return DailyMetricsReport{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.ListDailyMetrics(ctx, req.AgencyID, req.Range.From, req.Range.To)
	if err != nil {
		return DailyMetricsReport{}, err
	}

	out := DailyMetricsReport{AgencyID: req.AgencyID, Rows: make([]calls.DailyCallMetric, 0, len(rows))}
	for _, m := range rows {
		if req.EmployeeID != "" && m.EmployeeID != req.EmployeeID {
			continue
		}
		out.Rows = append(out.Rows, m)
		out.InboundCalls += m.InboundCalls
		out.OutboundCalls += m.OutboundCalls
		out.TotalCalls += m.TotalCalls
		out.TalkTimeSeconds += m.TalkTimeSeconds
	}
	return out, nil
}
