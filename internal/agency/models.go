package agency

import "context"

// Agency is a tenant. All ingested data is partitioned by its ID.
type Agency struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`

	// IngestKey is the <key> part of the routing address prefix-<key>@domain.
	IngestKey string `json:"-" db:"call_ingest_key"`
}

// Directory looks up agencies by their call ingestion key.
type Directory interface {
	ByIngestKey(ctx context.Context, key string) (Agency, error)
}
