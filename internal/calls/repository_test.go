package calls

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db), mock
}

func TestPostgresStore_InsertEventReportsConflict(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()
	e := CallEvent{ID: "e1", AgencyID: "a1", Provider: "ringcentral", ExternalCallID: "X1", Direction: DirectionInbound, CreatedAt: time.Now()}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO call_events")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO call_events")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err := s.InsertEvent(ctx, e)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = s.InsertEvent(ctx, e)
	require.NoError(t, err)
	assert.False(t, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ExistsByExternalID(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("ringcentral", "X1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := s.ExistsByExternalID(context.Background(), "ringcentral", "X1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPostgresStore_UpsertDailyMetricUsesDateKey(t *testing.T) {
	s, mock := newMockStore(t)
	day := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (agency_id, employee_id, metric_date)")).
		WithArgs("a1", "emp1", "2025-03-04", 3, 4, 7, 600, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.UpsertDailyMetric(context.Background(), DailyCallMetric{
		AgencyID: "a1", EmployeeID: "emp1", MetricDate: day,
		InboundCalls: 3, OutboundCalls: 4, TotalCalls: 7, TalkTimeSeconds: 600, UpdatedAt: time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_WrapsErrors(t *testing.T) {
	s, mock := newMockStore(t)
	boom := errors.New("boom")
	mock.ExpectExec("INSERT INTO contact_activities").WillReturnError(boom)

	err := s.InsertActivity(context.Background(), ContactActivity{ID: "x", AgencyID: "a", ContactID: "c", Type: ActivityTypeCall})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestMemoryStore_UniquePair(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	e := CallEvent{AgencyID: "a", Provider: "p", ExternalCallID: "1"}

	ok, _ := s.InsertEvent(ctx, e)
	assert.True(t, ok)
	ok, _ = s.InsertEvent(ctx, e)
	assert.False(t, ok)
	assert.Len(t, s.Events(), 1)
}

func TestMemoryStore_UpsertReplaces(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	day := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.UpsertDailyMetric(ctx, DailyCallMetric{AgencyID: "a", EmployeeID: "e", MetricDate: day, TotalCalls: 5}))
	require.NoError(t, s.UpsertDailyMetric(ctx, DailyCallMetric{AgencyID: "a", EmployeeID: "e", MetricDate: day, TotalCalls: 2}))

	m, ok := s.Metric("a", "e", day)
	require.True(t, ok)
	assert.Equal(t, 2, m.TotalCalls)
}

func TestPostgresStore_ListEventsScansNullableColumns(t *testing.T) {
	s, mock := newMockStore(t)
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)
	started := from.Add(26 * time.Hour)

	mock.ExpectQuery("FROM call_events").
		WithArgs("a1", from, to).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "agency_id", "provider", "external_call_id", "direction",
			"from_number", "to_number", "duration_seconds", "started_at",
			"result", "internal_party_name", "employee_id", "household_id", "contact_id", "created_at",
		}).
			AddRow("e1", "a1", "ringcentral", "X1", "inbound", "5551234567", "", 60, started, "Connected", "Jane", "emp1", nil, "ct1", started).
			AddRow("e2", "a1", "ringcentral", "X2", "outbound", "", "", 0, nil, "", "", nil, nil, nil, started))

	out, err := s.ListEvents(context.Background(), "a1", from, to)
	require.NoError(t, err)
	require.Len(t, out, 2)

	require.NotNil(t, out[0].EmployeeID)
	assert.Equal(t, "emp1", *out[0].EmployeeID)
	assert.Nil(t, out[0].HouseholdID)
	require.NotNil(t, out[0].ContactID)
	assert.Equal(t, "ct1", *out[0].ContactID)
	require.NotNil(t, out[0].StartedAt)
	assert.Equal(t, DirectionInbound, out[0].Direction)

	assert.Nil(t, out[1].StartedAt)
	assert.Nil(t, out[1].EmployeeID)
	require.NoError(t, mock.ExpectationsWereMet())
}
