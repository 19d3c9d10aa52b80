package main

import (
	"database/sql"
	"net/http"
	"time"

	"callsync/internal/httpapi"
	"callsync/internal/metrics"
	"callsync/internal/rbac"
	"callsync/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW gin.HandlerFunc, db *sql.DB) {
	// public
	r.GET("/healthz", httpapi.Healthz)
	r.GET("/readyz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), db, 2*time.Second); err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	// Provider email webhook. Authenticated by HMAC signature, not bearer token.
	r.POST("/webhooks/email/call-reports", h.InboundEmail)

	v1 := r.Group("/v1")
	v1.Use(authMW)
	{
		ingest := v1.Group("/ingest")
		ingest.Use(rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleManager))
		{
			ingest.POST("/call-reports", h.ManualIngest)
		}

		reports := v1.Group("/reports")
		reports.Use(rbac.RequireAgency())
		{
			reports.GET("/calls/summary", h.CallsSummary)
			reports.GET("/daily-metrics", h.DailyMetrics)
		}

		// Only owner/super_admin can access admin endpoints.
		admin := v1.Group("/admin")
		admin.Use(rbac.RequireAgency())
		admin.Use(rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleSuperAdmin))
		{
			admin.GET("/ingestion-logs", h.ListIngestionLogs)
		}
	}
}
