package ingest

import (
	"context"
	"time"

	"callsync/internal/calls"
	"callsync/internal/lookup"
	"callsync/internal/metrics"
	"callsync/internal/report"
	"callsync/pkg/logger"
)

type MetricStore interface {
	UpsertDailyMetric(ctx context.Context, m calls.DailyCallMetric) error
}

// MetricsAggregator writes one DailyCallMetric per matched Users sheet row.
// A later report for the same day replaces earlier values for that employee.
type MetricsAggregator struct {
	store MetricStore
	clock func() time.Time
}

func NewMetricsAggregator(store MetricStore) *MetricsAggregator {
	return &MetricsAggregator{store: store, clock: time.Now}
}

func (a *MetricsAggregator) Aggregate(ctx context.Context, agencyID string, ix *lookup.Index, day time.Time, rows []report.UserRow) MetricStats {
	log := logger.From(ctx)
	var stats MetricStats
	metricDate := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)

	for _, row := range rows {
		employeeID, ok := ix.Employee(row.Name)
		if !ok {
			stats.SkippedUnmatched++
			log.Debug("summary row has no matching employee", "row", row.Line, "name", row.Name)
			continue
		}
		m := calls.DailyCallMetric{
			AgencyID:        agencyID,
			EmployeeID:      employeeID,
			MetricDate:      metricDate,
			InboundCalls:    row.InboundCalls,
			OutboundCalls:   row.OutboundCalls,
			TotalCalls:      row.TotalCalls,
			TalkTimeSeconds: row.HandleTimeSeconds,
			UpdatedAt:       a.clock().UTC(),
		}
		if err := a.store.UpsertDailyMetric(ctx, m); err != nil {
			stats.Errors++
			log.Warn("daily metric upsert failed", "row", row.Line, "employee_id", employeeID, "err", err)
			continue
		}
		stats.Upserted++
	}

	metrics.AddRows(metrics.MetricRowsTotal, "upserted", stats.Upserted)
	metrics.AddRows(metrics.MetricRowsTotal, "unmatched", stats.SkippedUnmatched)
	metrics.AddRows(metrics.MetricRowsTotal, "error", stats.Errors)
	return stats
}
