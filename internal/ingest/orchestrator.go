package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"callsync/internal/agency"
	"callsync/internal/audit"
	"callsync/internal/lookup"
	"callsync/internal/metrics"
	"callsync/internal/report"
	"callsync/internal/storage"
	"callsync/internal/webhook"
	"callsync/pkg/logger"
)

type SignatureVerifier interface {
	Verify(ctx context.Context, timestamp, token, signature string) error
}

type RecipientResolver interface {
	ResolveRecipient(ctx context.Context, recipient string) (agency.Agency, error)
}

type IndexBuilder interface {
	Build(ctx context.Context, agencyID string) (*lookup.Index, error)
}

type ReportParser interface {
	Parse(data []byte) (report.Report, error)
}

type DeliveryLog interface {
	Record(ctx context.Context, l audit.IngestionLog) (audit.IngestionLog, error)
	SeenMessage(ctx context.Context, messageID string) (bool, error)
}

type FileStore interface {
	Get(ctx context.Context, p string) ([]byte, error)
}

// Deps wires an Orchestrator. Files is only needed by the manual route;
// Verifier, Resolver and Log only by the webhook route.
type Deps struct {
	Verifier     SignatureVerifier
	Resolver     RecipientResolver
	Indexes      IndexBuilder
	Parser       ReportParser
	Calls        *CallProcessor
	Metrics      *MetricsAggregator
	Log          DeliveryLog
	Files        FileStore
	MaxFileBytes int64
}

// Orchestrator runs manual uploads and webhook deliveries through the same
// parse, match and persist pipeline.
type Orchestrator struct {
	d     Deps
	clock func() time.Time
}

func NewOrchestrator(d Deps) *Orchestrator {
	if d.MaxFileBytes <= 0 {
		d.MaxFileBytes = report.DefaultMaxFileBytes
	}
	return &Orchestrator{d: d, clock: time.Now}
}

// ProcessManual ingests one stored report for agencyID.
//
// Errors: agency.ErrMalformedID and storage.ErrInvalidPath for bad input,
// storage.ErrNotFound for a missing file, *report.FormatError for files that
// cannot be read as a report. Anything else is unexpected.
func (o *Orchestrator) ProcessManual(ctx context.Context, agencyID, storagePath string) (FileResult, error) {
	if err := agency.ValidateID(agencyID); err != nil {
		return FileResult{}, err
	}
	clean, err := storage.CleanPath(storagePath)
	if err != nil {
		return FileResult{}, err
	}
	if o.d.Files == nil {
		return FileResult{}, errors.New("ingest: file store not configured")
	}
	name := path.Base(clean)
	if err := report.CheckFile(name, 0, o.d.MaxFileBytes); err != nil {
		return FileResult{Filename: name, Status: FileSkipped, Error: err.Error()}, err
	}

	data, err := o.d.Files.Get(ctx, clean)
	if errors.Is(err, storage.ErrTooLarge) {
		err = &report.FormatError{Reason: "file exceeds size limit", Unsupported: true}
		return FileResult{Filename: name, Status: FileSkipped, Error: err.Error()}, err
	}
	if err != nil {
		return FileResult{}, err
	}
	if err := report.CheckFile(name, int64(len(data)), o.d.MaxFileBytes); err != nil {
		return FileResult{Filename: name, Status: FileSkipped, Error: err.Error()}, err
	}

	ix, err := o.d.Indexes.Build(ctx, agencyID)
	if err != nil {
		return FileResult{}, fmt.Errorf("build lookup index: %w", err)
	}
	return o.processFile(ctx, agencyID, ix, name, data)
}

// ProcessDelivery handles one inbound email. It never returns an error: every
// outcome, including rejection, is reported in the result and the ingestion log.
func (o *Orchestrator) ProcessDelivery(ctx context.Context, d webhook.Delivery) DeliveryResult {
	start := o.clock()
	log := logger.From(ctx).With("message_id", d.MessageID, "recipient", d.Recipient)
	ctx = logger.With(ctx, log)
	entry := audit.IngestionLog{
		Sender:    d.Sender,
		Recipient: d.Recipient,
		Subject:   d.Subject,
		MessageID: d.MessageID,
	}

	if o.d.Verifier == nil || o.d.Resolver == nil {
		log.Error("webhook route not configured")
		return o.finish(ctx, start, entry, DeliveryResult{Status: audit.StatusRejected, Error: "webhook route not configured"})
	}
	if err := o.d.Verifier.Verify(ctx, d.Timestamp, d.Token, d.Signature); err != nil {
		log.Warn("delivery rejected", "reason", "signature", "err", err)
		return o.finish(ctx, start, entry, DeliveryResult{Status: audit.StatusRejected, Error: "signature verification failed"})
	}

	ag, err := o.d.Resolver.ResolveRecipient(ctx, d.Recipient)
	switch {
	case errors.Is(err, agency.ErrUnroutable), errors.Is(err, agency.ErrNotFound):
		log.Warn("delivery rejected", "reason", "routing", "err", err)
		return o.finish(ctx, start, entry, DeliveryResult{Status: audit.StatusRejected, Error: "recipient does not map to an agency"})
	case err != nil:
		log.Error("agency lookup failed", "err", err)
		entry.Retryable = true
		return o.finish(ctx, start, entry, DeliveryResult{Status: audit.StatusFailed, Error: "agency lookup failed"})
	}
	entry.AgencyID = &ag.ID
	log = log.With("agency_id", ag.ID)
	ctx = logger.With(ctx, log)

	seen := false
	if o.d.Log != nil {
		if seen, err = o.d.Log.SeenMessage(ctx, d.MessageID); err != nil {
			// row-level dedup still protects call events
			log.Warn("message dedup lookup failed", "err", err)
		}
	}
	if seen {
		log.Info("duplicate delivery ignored")
		return o.finish(ctx, start, entry, DeliveryResult{Status: audit.StatusDuplicate})
	}

	if len(d.Attachments) == 0 {
		return o.finish(ctx, start, entry, DeliveryResult{Status: audit.StatusFailed, Error: "no attachments"})
	}

	var (
		ix        *lookup.Index
		indexErr  error
		transient bool
		results   = make([]FileResult, 0, len(d.Attachments))
	)
	for _, a := range d.Attachments {
		name := a.Filename
		if name == "" {
			name = fmt.Sprintf("attachment-%d", a.Index)
		}
		if a.Open == nil {
			results = append(results, o.skipped(name, "attachment part missing"))
			continue
		}
		if err := report.CheckFile(name, a.Size, o.d.MaxFileBytes); err != nil {
			results = append(results, o.skipped(name, err.Error()))
			continue
		}
		data, err := readAttachment(a, o.d.MaxFileBytes)
		if errors.Is(err, storage.ErrTooLarge) {
			results = append(results, o.skipped(name, "file exceeds size limit"))
			continue
		}
		if err != nil {
			results = append(results, FileResult{Filename: name, Status: FileFailed, Error: "attachment unreadable"})
			transient = true
			log.Warn("attachment read failed", "filename", name, "err", err)
			continue
		}

		if ix == nil && indexErr == nil {
			ix, indexErr = o.d.Indexes.Build(ctx, ag.ID)
			if indexErr != nil {
				log.Error("lookup index build failed", "err", indexErr)
			}
		}
		if indexErr != nil {
			results = append(results, FileResult{Filename: name, Status: FileFailed, Error: "reference data unavailable"})
			transient = true
			continue
		}

		res, _ := o.processFile(ctx, ag.ID, ix, name, data)
		results = append(results, res)
	}

	status, ok := deliveryStatus(results)
	// a redelivery may succeed once our own dependencies recover
	entry.Retryable = transient && status == audit.StatusFailed
	return o.finish(ctx, start, entry, DeliveryResult{Status: status, FilesProcessed: ok, Results: results})
}

// processFile parses one workbook and persists its rows. The returned error is
// the parse failure, already reflected in the FileResult.
func (o *Orchestrator) processFile(ctx context.Context, agencyID string, ix *lookup.Index, name string, data []byte) (FileResult, error) {
	start := o.clock()
	log := logger.From(ctx).With("filename", name)
	res := FileResult{Filename: name}

	rep, err := o.d.Parser.Parse(data)
	res.ReportType = string(rep.Kind)
	if err != nil {
		res.Status = FileFailed
		res.Error = err.Error()
		metrics.FilesTotal.WithLabelValues(res.ReportType, string(res.Status)).Inc()
		log.Warn("report file rejected", "err", err)
		return res, err
	}
	res.ReportDate = rep.Date.Format(time.DateOnly)

	switch rep.Kind {
	case report.KindCalls:
		stats := o.d.Calls.Process(ctx, agencyID, ix, rep.Calls)
		res.Calls = &stats
	case report.KindUsers:
		stats := o.d.Metrics.Aggregate(ctx, agencyID, ix, rep.Date, rep.Users)
		res.Metrics = &stats
	}
	res.Status = FileSuccess

	metrics.FilesTotal.WithLabelValues(res.ReportType, string(res.Status)).Inc()
	metrics.FileDurationSeconds.Observe(o.clock().Sub(start).Seconds())
	log.Info("report file processed", "report_type", res.ReportType, "report_date", res.ReportDate,
		"date_from_filters", rep.DateFromFilters, "calls", res.Calls, "metrics", res.Metrics)
	return res, nil
}

func (o *Orchestrator) skipped(name, reason string) FileResult {
	metrics.FilesTotal.WithLabelValues(string(report.KindUnknown), string(FileSkipped)).Inc()
	return FileResult{Filename: name, Status: FileSkipped, Error: reason}
}

// finish records the delivery in the ingestion log and returns the response body.
func (o *Orchestrator) finish(ctx context.Context, start time.Time, entry audit.IngestionLog, res DeliveryResult) DeliveryResult {
	if res.Results == nil {
		res.Results = []FileResult{}
	}
	entry.Status = res.Status
	entry.FilesProcessed = res.FilesProcessed
	entry.Error = res.Error
	entry.DurationMS = o.clock().Sub(start).Milliseconds()
	if b, err := json.Marshal(res.Results); err == nil {
		entry.Results = string(b)
	}

	log := logger.From(ctx)
	if o.d.Log != nil {
		if _, err := o.d.Log.Record(ctx, entry); err != nil {
			log.Error("ingestion log write failed", "err", err)
		}
	}
	metrics.DeliveriesTotal.WithLabelValues(string(res.Status)).Inc()
	log.Info("delivery handled", "status", res.Status, "files", len(res.Results),
		"files_processed", res.FilesProcessed, "duration_ms", entry.DurationMS)
	return res
}

func readAttachment(a webhook.Attachment, maxBytes int64) ([]byte, error) {
	rc, err := a.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, storage.ErrTooLarge
	}
	return data, nil
}
