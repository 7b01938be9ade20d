package domain

import "time"

// HealthStatus reflects the outcome of the most recent poll of a source.
type HealthStatus string

const (
	SourceActive HealthStatus = "active"
	SourceError  HealthStatus = "error"
)

// Source is a per-tenant feed definition. The ingestion engine updates
// HealthStatus and LastPolledAt after every poll attempt; sources are never
// deleted by the pipeline.
type Source struct {
	ID           int64
	TenantID     int64
	URL          string
	Name         string
	PollCadence  time.Duration
	HealthStatus HealthStatus
	LastPolledAt *time.Time
	IsActive     bool
	CreatedAt    time.Time
}

// FeedItem is one parsed entry from a feed, already normalized by the fetcher.
type FeedItem struct {
	GUID        string
	Link        string
	Title       string
	Body        string
	Author      string
	Categories  []string
	PublishedAt *time.Time
}

// IdentityKey derives the dedup key: guid when present, else the canonical
// link. Empty means the item cannot be deduplicated and must be skipped.
func (i FeedItem) IdentityKey() string {
	if i.GUID != "" {
		return i.GUID
	}
	return i.Link
}

// IngestResult summarizes one ingestion attempt for a source.
type IngestResult struct {
	SourceID   int64
	Fetched    int
	New        int
	Duplicates int
	Skipped    int
	Errors     int
	Published  int
	Duration   time.Duration
}

// TenantIngestResult aggregates per-source outcomes for a whole tenant.
type TenantIngestResult struct {
	TenantID  int64
	Succeeded int
	Failed    int
	NewItems  int
}
