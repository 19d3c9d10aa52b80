package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"callsync/internal/agency"
	"callsync/internal/audit"
	"callsync/internal/auth"
	"callsync/internal/calls"
	"callsync/internal/ingest"
	"callsync/internal/report"
	"callsync/internal/reporting"
	"callsync/internal/storage"
	"callsync/internal/webhook"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const agencyA = "3f1c2a9e-8b7d-4c6e-9a5f-0123456789ab"

type fakeIngestor struct {
	manualRes ingest.FileResult
	manualErr error
	gotAgency string
	gotPath   string

	delivery   webhook.Delivery
	deliveries int
}

func (f *fakeIngestor) ProcessManual(ctx context.Context, agencyID, storagePath string) (ingest.FileResult, error) {
	f.gotAgency, f.gotPath = agencyID, storagePath
	return f.manualRes, f.manualErr
}

func (f *fakeIngestor) ProcessDelivery(ctx context.Context, d webhook.Delivery) ingest.DeliveryResult {
	f.delivery = d
	f.deliveries++
	return ingest.DeliveryResult{Status: audit.StatusRejected, Results: []ingest.FileResult{}, Error: "signature verification failed"}
}

func withIdentity(agencyID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), "u1", agencyID, role))
		c.Next()
	}
}

func do(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func manualRouter(h Handlers, agencyID, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/v1/ingest/call-reports", withIdentity(agencyID, role), h.ManualIngest)
	return r
}

func manualBody(tenant, path string) *http.Request {
	body := fmt.Sprintf(`{"tenant_id":%q,"storage_path":%q}`, tenant, path)
	req := httptest.NewRequest(http.MethodPost, "/v1/ingest/call-reports", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestManualIngest_Success(t *testing.T) {
	f := &fakeIngestor{manualRes: ingest.FileResult{Filename: "r.xlsx", Status: ingest.FileSuccess, Calls: &ingest.CallStats{Processed: 3}}}
	r := manualRouter(Handlers{Ingest: f}, agencyA, "owner")

	w := do(r, manualBody(agencyA, "agency/r.xlsx"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got ingest.FileResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, ingest.FileSuccess, got.Status)
	assert.Equal(t, 3, got.Calls.Processed)
	assert.Equal(t, agencyA, f.gotAgency)
	assert.Equal(t, "agency/r.xlsx", f.gotPath)
}

func TestManualIngest_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"malformed id", agency.ErrMalformedID, http.StatusBadRequest},
		{"bad path", storage.ErrInvalidPath, http.StatusBadRequest},
		{"format", &report.FormatError{Reason: "no recognizable sheet"}, http.StatusBadRequest},
		{"missing file", fmt.Errorf("load: %w", storage.ErrNotFound), http.StatusNotFound},
		{"unexpected", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := manualRouter(Handlers{Ingest: &fakeIngestor{manualErr: tc.err}}, "", "super_admin")
			w := do(r, manualBody(agencyA, "r.xlsx"))
			assert.Equal(t, tc.want, w.Code, w.Body.String())
		})
	}
}

func TestManualIngest_RejectsMissingFieldsAndForeignAgency(t *testing.T) {
	f := &fakeIngestor{}

	w := do(manualRouter(Handlers{Ingest: f}, agencyA, "owner"), manualBody("", "r.xlsx"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/ingest/call-reports", strings.NewReader("{"))
	w = do(manualRouter(Handlers{Ingest: f}, agencyA, "owner"), req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(manualRouter(Handlers{Ingest: f}, "other-agency", "owner"), manualBody(agencyA, "r.xlsx"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, f.gotAgency, "ingestion must not run for a foreign agency")
}

func webhookRequest(t *testing.T, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/webhooks/email", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestInboundEmail_AlwaysAcknowledges(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := &fakeIngestor{}
	r := gin.New()
	r.POST("/webhooks/email", Handlers{Ingest: f, MaxBodyBytes: 1 << 20}.InboundEmail)

	w := do(r, webhookRequest(t, map[string]string{
		"timestamp":  "1700000000",
		"token":      "tok",
		"signature":  "bad",
		"recipient":  "calls-k9x2@in.example.com",
		"Message-Id": "<m1@provider>",
	}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, f.deliveries)
	assert.Equal(t, "<m1@provider>", f.delivery.MessageID)

	var got ingest.DeliveryResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, audit.StatusRejected, got.Status)
	assert.NotNil(t, got.Results)
}

func TestInboundEmail_MalformedBodyIs400(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := &fakeIngestor{}
	r := gin.New()
	r.POST("/webhooks/email", Handlers{Ingest: f}.InboundEmail)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/email", strings.NewReader("not multipart"))
	req.Header.Set("Content-Type", "text/plain")
	w := do(r, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, f.deliveries)
}

func TestListIngestionLogs_ScopesOwnerToOwnAgency(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := audit.NewMemoryRepo()
	svc := audit.NewService(repo)
	ctx := context.Background()
	a, b := agencyA, "other"
	_, _ = svc.Record(ctx, audit.IngestionLog{AgencyID: &a, MessageID: "m1", Status: audit.StatusSuccess})
	_, _ = svc.Record(ctx, audit.IngestionLog{AgencyID: &b, MessageID: "m2", Status: audit.StatusFailed})
	_, _ = svc.Record(ctx, audit.IngestionLog{MessageID: "m3", Status: audit.StatusRejected})

	list := func(agencyID, role, query string) (int, []audit.IngestionLog) {
		r := gin.New()
		r.GET("/logs", withIdentity(agencyID, role), Handlers{Logs: svc}.ListIngestionLogs)
		w := do(r, httptest.NewRequest(http.MethodGet, "/logs"+query, nil))
		var body struct {
			Logs []audit.IngestionLog `json:"logs"`
		}
		_ = json.Unmarshal(w.Body.Bytes(), &body)
		return w.Code, body.Logs
	}

	code, logs := list(agencyA, "owner", "?agency_id=other")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, logs, 1)
	assert.Equal(t, "m1", logs[0].MessageID)

	code, logs = list("", "super_admin", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, logs, 3)

	code, logs = list("", "super_admin", "?status=rejected")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, logs, 1)
	assert.Equal(t, "m3", logs[0].MessageID)

	code, _ = list("", "super_admin", "?status=bogus")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = list("", "super_admin", "?limit=x")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestReports_SummaryAndDailyMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := calls.NewMemoryStore()
	ctx := context.Background()
	at := time.Date(2025, 3, 4, 23, 30, 0, 0, time.UTC)
	emp := "e1"
	_, _ = store.InsertEvent(ctx, calls.CallEvent{AgencyID: agencyA, Provider: "rc", ExternalCallID: "X1", Direction: calls.DirectionInbound, DurationSeconds: 40, StartedAt: &at, EmployeeID: &emp})
	_ = store.UpsertDailyMetric(ctx, calls.DailyCallMetric{AgencyID: agencyA, EmployeeID: "e1", MetricDate: time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), TotalCalls: 4})

	h := Handlers{Reports: reporting.NewService(store)}
	r := gin.New()
	g := r.Group("/", withIdentity(agencyA, "manager"))
	g.GET("/summary", h.CallsSummary)
	g.GET("/daily", h.DailyMetrics)

	w := do(r, httptest.NewRequest(http.MethodGet, "/summary?from=2025-03-04&to=2025-03-04", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var sum reporting.CallsSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sum))
	assert.Equal(t, 1, sum.TotalCalls, "the end date is inclusive")
	assert.Equal(t, 1, sum.EmployeeMatched)

	w = do(r, httptest.NewRequest(http.MethodGet, "/daily?from=2025-03-01&to=2025-03-31", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var daily reporting.DailyMetricsReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &daily))
	assert.Equal(t, 4, daily.TotalCalls)

	w = do(r, httptest.NewRequest(http.MethodGet, "/summary?from=2025-03-04", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, httptest.NewRequest(http.MethodGet, "/summary?from=2025-03-05&to=2025-03-01", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, httptest.NewRequest(http.MethodGet, "/daily?from=2025-03-01&to=2025-03-31&agency_id=other", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestInboundEmail_OversizedAttachmentCountIs400(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := &fakeIngestor{}
	r := gin.New()
	r.POST("/webhooks/email", Handlers{Ingest: f}.InboundEmail)

	w := do(r, webhookRequest(t, map[string]string{"attachment-count": "9223372036854775807"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, f.deliveries)
}
