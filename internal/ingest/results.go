package ingest

import "callsync/internal/audit"

// CallStats summarizes one pass over a Calls sheet.
type CallStats struct {
	Processed          int `json:"processed"`
	SkippedDuplicate   int `json:"skipped_duplicate"`
	SkippedInternal    int `json:"skipped_internal"`
	EmployeesMatched   int `json:"employees_matched"`
	ProspectsMatched   int `json:"prospects_matched"`
	ActivitiesInserted int `json:"activities_inserted"`
	RowErrors          int `json:"row_errors"`
}

// MetricStats summarizes one pass over a Users summary sheet.
type MetricStats struct {
	Upserted         int `json:"upserted"`
	SkippedUnmatched int `json:"skipped_unmatched"`
	Errors           int `json:"errors"`
}

type FileStatus string

const (
	FileSuccess FileStatus = "success"
	FileFailed  FileStatus = "failed"
	FileSkipped FileStatus = "skipped"
)

// FileResult is the outcome of one report file.
type FileResult struct {
	Filename   string       `json:"filename"`
	Status     FileStatus   `json:"status"`
	ReportType string       `json:"report_type,omitempty"`
	ReportDate string       `json:"report_date,omitempty"`
	Calls      *CallStats   `json:"calls,omitempty"`
	Metrics    *MetricStats `json:"metrics,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// DeliveryResult is the webhook response body.
type DeliveryResult struct {
	Status         audit.Status `json:"status"`
	FilesProcessed int          `json:"files_processed"`
	Results        []FileResult `json:"results"`
	Error          string       `json:"error,omitempty"`
}

// deliveryStatus folds per-file outcomes into success, partial or failed.
func deliveryStatus(results []FileResult) (audit.Status, int) {
	ok := 0
	for _, r := range results {
		if r.Status == FileSuccess {
			ok++
		}
	}
	switch {
	case len(results) > 0 && ok == len(results):
		return audit.StatusSuccess, ok
	case ok > 0:
		return audit.StatusPartial, ok
	default:
		return audit.StatusFailed, ok
	}
}
