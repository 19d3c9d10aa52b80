package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"callsync/internal/agency"
	"callsync/internal/audit"
	"callsync/internal/auth"
	"callsync/internal/ingest"
	"callsync/internal/rbac"
	"callsync/internal/report"
	"callsync/internal/reporting"
	"callsync/internal/storage"
	"callsync/internal/webhook"
	"callsync/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Ingestor interface {
	ProcessManual(ctx context.Context, agencyID, storagePath string) (ingest.FileResult, error)
	ProcessDelivery(ctx context.Context, d webhook.Delivery) ingest.DeliveryResult
}

type LogLister interface {
	List(ctx context.Context, f audit.Filter) ([]audit.IngestionLog, error)
}

type Reporter interface {
	CallsSummary(ctx context.Context, req reporting.CallsSummaryRequest) (reporting.CallsSummary, error)
	DailyMetrics(ctx context.Context, req reporting.DailyMetricsRequest) (reporting.DailyMetricsReport, error)
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Ingest  Ingestor
	Logs    LogLister
	Reports Reporter

	// MaxBodyBytes caps a webhook request body; multipart parts beyond
	// MaxMemoryBytes spill to temp files.
	MaxBodyBytes   int64
	MaxMemoryBytes int64
}

const defaultMaxMemoryBytes = 32 << 20

func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- Ingestion ---

// InboundEmail accepts one provider email delivery. Business outcomes always
// answer 200 so the provider does not retry; only an unreadable body is a 400.
func (h Handlers) InboundEmail(c *gin.Context) {
	if h.Ingest == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "ingestion not configured"})
		return
	}
	if h.MaxBodyBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxBodyBytes)
	}
	mem := h.MaxMemoryBytes
	if mem <= 0 {
		mem = defaultMaxMemoryBytes
	}

	d, err := webhook.ParseDelivery(c.Request, mem)
	if err != nil {
		logger.FromGin(c).Warn("webhook body rejected", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "malformed multipart body"})
		return
	}
	if c.Request.MultipartForm != nil {
		defer c.Request.MultipartForm.RemoveAll()
	}

	c.JSON(http.StatusOK, h.Ingest.ProcessDelivery(c.Request.Context(), d))
}

type manualIngestRequest struct {
	TenantID    string `json:"tenant_id"`
	StoragePath string `json:"storage_path"`
}

// ManualIngest processes one stored report for an agency.
// RBAC: caller's agency must equal tenant_id unless super_admin.
func (h Handlers) ManualIngest(c *gin.Context) {
	if h.Ingest == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "ingestion not configured"})
		return
	}
	var req manualIngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	req.TenantID = strings.TrimSpace(req.TenantID)
	if req.TenantID == "" || strings.TrimSpace(req.StoragePath) == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "tenant_id and storage_path required"})
		return
	}

	role, _ := auth.Role(c.Request.Context())
	callerAgency, _ := auth.AgencyID(c.Request.Context())
	if !rbac.CanActFor(role, callerAgency, req.TenantID) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	res, err := h.Ingest.ProcessManual(c.Request.Context(), req.TenantID, req.StoragePath)
	var formatErr *report.FormatError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, res)
	case errors.Is(err, agency.ErrMalformedID):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "tenant_id must be a uuid"})
	case errors.Is(err, storage.ErrInvalidPath):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid storage_path"})
	case errors.Is(err, storage.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "file not found"})
	case errors.As(err, &formatErr):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": formatErr.Error(), "result": res})
	default:
		logger.FromGin(c).Error("manual ingestion failed", "tenant_id", req.TenantID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "ingestion failed"})
	}
}

// --- Audit ---

// ListIngestionLogs returns recent deliveries. Owners only see their own
// agency; super_admin may pass agency_id or omit it.
func (h Handlers) ListIngestionLogs(c *gin.Context) {
	if h.Logs == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "audit not configured"})
		return
	}
	f := audit.Filter{Status: audit.Status(c.Query("status"))}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		f.Limit = n
	}

	role, _ := auth.Role(c.Request.Context())
	if rbac.IsSuperAdmin(role) {
		f.AgencyID = c.Query("agency_id")
	} else {
		aid, err := auth.AgencyID(c.Request.Context())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "agency_id required"})
			return
		}
		f.AgencyID = aid
	}

	logs, err := h.Logs.List(c.Request.Context(), f)
	if errors.Is(err, audit.ErrInvalidFilter) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}
	if err != nil {
		logger.FromGin(c).Error("ingestion log listing failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "listing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

// --- Reporting ---

func (h Handlers) CallsSummary(c *gin.Context) {
	if h.Reports == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	agencyID, ok := reportAgency(c)
	if !ok {
		return
	}
	from, to, ok := dateRange(c)
	if !ok {
		return
	}

	// dates are inclusive on the wire; events are filtered on [from, to)
	out, err := h.Reports.CallsSummary(c.Request.Context(), reporting.CallsSummaryRequest{
		AgencyID: agencyID,
		Range:    reporting.TimeRange{From: from, To: to.AddDate(0, 0, 1)},
	})
	if !reportError(c, err) {
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) DailyMetrics(c *gin.Context) {
	if h.Reports == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	agencyID, ok := reportAgency(c)
	if !ok {
		return
	}
	from, to, ok := dateRange(c)
	if !ok {
		return
	}

	out, err := h.Reports.DailyMetrics(c.Request.Context(), reporting.DailyMetricsRequest{
		AgencyID:   agencyID,
		Range:      reporting.TimeRange{From: from, To: to},
		EmployeeID: c.Query("employee_id"),
	})
	if !reportError(c, err) {
		return
	}
	c.JSON(http.StatusOK, out)
}

// reportAgency picks the caller's agency, or the agency_id query value for super_admin.
func reportAgency(c *gin.Context) (string, bool) {
	role, _ := auth.Role(c.Request.Context())
	caller, _ := auth.AgencyID(c.Request.Context())
	target := c.Query("agency_id")
	if target == "" {
		target = caller
	}
	if target == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "agency_id required"})
		return "", false
	}
	if !rbac.CanActFor(role, caller, target) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return "", false
	}
	return target, true
}

// dateRange reads from/to as YYYY-MM-DD (UTC, both inclusive).
func dateRange(c *gin.Context) (time.Time, time.Time, bool) {
	from, err1 := time.Parse(time.DateOnly, c.Query("from"))
	to, err2 := time.Parse(time.DateOnly, c.Query("to"))
	if err1 != nil || err2 != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from and to must be YYYY-MM-DD"})
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func reportError(c *gin.Context, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, reporting.ErrInvalidRequest):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid date range"})
	default:
		logger.FromGin(c).Error("report query failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "report failed"})
	}
	return false
}
