package ingest

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"callsync/internal/agency"
	"callsync/internal/audit"
	"callsync/internal/calls"
	"callsync/internal/lookup"
	"callsync/internal/report"
	"callsync/internal/storage"
	"callsync/internal/webhook"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const (
	testAgencyID   = "3f1c2a9e-8b7d-4c6e-9a5f-0123456789ab"
	testIngestKey  = "k9x2"
	testSigningKey = "signing-secret"
	testRecipient  = "calls-k9x2@in.example.com"
)

var callsHeader = []any{"Call Id", "Call Direction", "From Number", "From Name", "To Number", "To Name", "Call Start Time", "Call Length", "Call Result"}

// xlsx writes sheets in order; the first sheet replaces the default one.
func xlsx(t *testing.T, sheets ...sheet) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, s := range sheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", s.name))
		} else {
			_, err := f.NewSheet(s.name)
			require.NoError(t, err)
		}
		for r, row := range s.rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			vals := row
			require.NoError(t, f.SetSheetRow(s.name, cell, &vals))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

type sheet struct {
	name string
	rows [][]any
}

func callsReport(t *testing.T, rows ...[]any) []byte {
	return xlsx(t,
		sheet{name: "Calls", rows: append([][]any{callsHeader}, rows...)},
		sheet{name: "Filters", rows: [][]any{{"From Time", "03/04/2025"}}},
	)
}

func usersReport(t *testing.T, rows ...[]any) []byte {
	header := []any{"User Name", "Inbound Calls", "Outbound Calls", "Total Calls", "Total Handle Time"}
	return xlsx(t,
		sheet{name: "Users", rows: append([][]any{header}, rows...)},
		sheet{name: "Filters", rows: [][]any{{"From Time", "2025-03-04"}}},
	)
}

type harness struct {
	calls  *calls.MemoryStore
	source *lookup.MemorySource
	logs   *audit.MemoryRepo
	files  string
	orch   *Orchestrator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		calls:  calls.NewMemoryStore(),
		source: lookup.NewMemorySource(),
		logs:   audit.NewMemoryRepo(),
		files:  t.TempDir(),
	}
	h.source.AddEmployee(testAgencyID, lookup.Employee{ID: "emp-jane", DisplayName: "Jane Smith"})
	h.source.AddEmployee(testAgencyID, lookup.Employee{ID: "emp-bob", DisplayName: "Bob Jones"})
	h.source.AddHousehold(testAgencyID, lookup.Household{ID: "hh-1", Phone: "(555) 123-4567"})
	h.source.AddContact(testAgencyID, lookup.Contact{ID: "ct-1", Phones: []string{"+1 555 123 4567"}})

	resolver, err := agency.NewResolver(agency.NewMemoryDirectory(agency.Agency{ID: testAgencyID, Name: "Acme", IngestKey: testIngestKey}), "calls")
	require.NoError(t, err)

	h.orch = NewOrchestrator(Deps{
		Verifier: webhook.NewVerifier(testSigningKey, webhook.DefaultReplayWindow, nil),
		Resolver: resolver,
		Indexes:  lookup.NewBuilder(h.source),
		Parser:   report.NewParser(time.UTC),
		Calls:    NewCallProcessor(h.calls, "ringcentral"),
		Metrics:  NewMetricsAggregator(h.calls),
		Log:      audit.NewService(h.logs),
		Files:    storage.NewLocalStore(h.files, 0),
	})
	return h
}

func (h *harness) putFile(t *testing.T, rel string, data []byte) {
	t.Helper()
	full := filepath.Join(h.files, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, data, 0o644))
}

func attachment(i int, name string, data []byte) webhook.Attachment {
	return webhook.Attachment{
		Index:    i,
		Filename: name,
		Size:     int64(len(data)),
		Open:     func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

func signedDelivery(messageID string, atts ...webhook.Attachment) webhook.Delivery {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	token := "tok-" + messageID
	return webhook.Delivery{
		Timestamp:   ts,
		Token:       token,
		Signature:   webhook.Sign([]byte(testSigningKey), ts, token),
		Sender:      "reports@provider.example",
		Recipient:   testRecipient,
		Subject:     "Call log report",
		MessageID:   messageID,
		Attachments: atts,
	}
}

func buildIndex(t *testing.T, h *harness) *lookup.Index {
	t.Helper()
	ix, err := lookup.NewBuilder(h.source).Build(context.Background(), testAgencyID)
	require.NoError(t, err)
	return ix
}
