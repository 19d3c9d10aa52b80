package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"callsync/internal/calls"
	"callsync/internal/lookup"
	"callsync/internal/metrics"
	"callsync/internal/report"
	"callsync/pkg/logger"

	"github.com/google/uuid"
)

// CallStore is the persistence the call row processor needs.
type CallStore interface {
	ExistsByExternalID(ctx context.Context, provider, externalCallID string) (bool, error)
	InsertEvent(ctx context.Context, e calls.CallEvent) (bool, error)
	InsertActivity(ctx context.Context, a calls.ContactActivity) error
}

// CallProcessor turns Calls sheet rows into CallEvents.
// Rows are handled one at a time; a failing row never aborts the batch.
type CallProcessor struct {
	store    CallStore
	provider string
	clock    func() time.Time
}

func NewCallProcessor(store CallStore, provider string) *CallProcessor {
	return &CallProcessor{store: store, provider: provider, clock: time.Now}
}

func (p *CallProcessor) Process(ctx context.Context, agencyID string, ix *lookup.Index, rows []report.CallRow) CallStats {
	log := logger.From(ctx)
	var (
		stats     CallStats
		ignored   int
		employees = map[string]struct{}{}
		prospects = map[string]struct{}{}
	)

	for _, row := range rows {
		dir, ok := calls.ParseDirection(row.Direction)
		if !ok {
			ignored++
			continue
		}
		if dir == calls.DirectionInternal {
			stats.SkippedInternal++
			continue
		}
		if row.ExternalID == "" {
			ignored++
			continue
		}

		internalName, externalPhone := row.ToName, row.FromNumber
		if dir == calls.DirectionOutbound {
			internalName, externalPhone = row.FromName, row.ToNumber
		}
		employeeID := matchOpt(ix.Employee(internalName))
		householdID := matchOpt(ix.Household(externalPhone))
		contactID := matchOpt(ix.Contact(externalPhone))

		exists, err := p.store.ExistsByExternalID(ctx, p.provider, row.ExternalID)
		if err != nil {
			stats.RowErrors++
			log.Warn("call row dedup lookup failed", "row", row.Line, "external_call_id", row.ExternalID, "err", err)
			continue
		}
		if exists {
			stats.SkippedDuplicate++
			continue
		}

		now := p.clock().UTC()
		ev := calls.CallEvent{
			ID:                uuid.NewString(),
			AgencyID:          agencyID,
			Provider:          p.provider,
			ExternalCallID:    row.ExternalID,
			Direction:         dir,
			FromNumber:        calls.NormalizePhone(row.FromNumber),
			ToNumber:          calls.NormalizePhone(row.ToNumber),
			DurationSeconds:   row.DurationSeconds,
			StartedAt:         row.StartedAt,
			Result:            row.Result,
			InternalPartyName: internalName,
			EmployeeID:        employeeID,
			HouseholdID:       householdID,
			ContactID:         contactID,
			RawRow:            rawJSON(row.Raw),
			CreatedAt:         now,
		}
		inserted, err := p.store.InsertEvent(ctx, ev)
		if err != nil {
			stats.RowErrors++
			log.Warn("call row insert failed", "row", row.Line, "external_call_id", row.ExternalID, "err", err)
			continue
		}
		if !inserted {
			// another delivery won the (provider, external_call_id) race
			stats.SkippedDuplicate++
			continue
		}
		stats.Processed++

		if employeeID != nil {
			employees[*employeeID] = struct{}{}
		}
		if householdID != nil {
			prospects["household:"+*householdID] = struct{}{}
		}
		if contactID != nil {
			prospects["contact:"+*contactID] = struct{}{}
			if err := p.store.InsertActivity(ctx, activityFor(ev, now)); err != nil {
				log.Warn("contact activity insert failed", "row", row.Line, "external_call_id", row.ExternalID, "err", err)
			} else {
				stats.ActivitiesInserted++
			}
		}
	}

	stats.EmployeesMatched = len(employees)
	stats.ProspectsMatched = len(prospects)

	metrics.AddRows(metrics.CallRowsTotal, "processed", stats.Processed)
	metrics.AddRows(metrics.CallRowsTotal, "duplicate", stats.SkippedDuplicate)
	metrics.AddRows(metrics.CallRowsTotal, "internal", stats.SkippedInternal)
	metrics.AddRows(metrics.CallRowsTotal, "ignored", ignored)
	metrics.AddRows(metrics.CallRowsTotal, "error", stats.RowErrors)
	return stats
}

func activityFor(ev calls.CallEvent, now time.Time) calls.ContactActivity {
	occurred := now
	if ev.StartedAt != nil {
		occurred = *ev.StartedAt
	}
	subject := "Inbound call"
	if ev.Direction == calls.DirectionOutbound {
		subject = "Outbound call"
	}
	body := fmt.Sprintf("Duration %s", time.Duration(ev.DurationSeconds)*time.Second)
	if ev.Result != "" {
		body += ", result: " + ev.Result
	}
	if ev.InternalPartyName != "" {
		body += ", agent: " + ev.InternalPartyName
	}
	return calls.ContactActivity{
		ID:          uuid.NewString(),
		AgencyID:    ev.AgencyID,
		ContactID:   *ev.ContactID,
		CallEventID: ev.ID,
		EmployeeID:  ev.EmployeeID,
		Type:        calls.ActivityTypeCall,
		Subject:     subject,
		Body:        body,
		OccurredAt:  occurred,
		CreatedAt:   now,
	}
}

func matchOpt(id string, ok bool) *string {
	if !ok {
		return nil
	}
	return &id
}

func rawJSON(raw map[string]string) string {
	if len(raw) == 0 {
		return ""
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return ""
	}
	return string(b)
}
