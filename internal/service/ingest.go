package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"content_pipeline/internal/domain"
	"content_pipeline/internal/events"
)

// IngestService polls a feed source and turns unseen items into
// pending-review content. Repeated polls of an unchanged feed are idempotent:
// the tenant-wide identity key, backed by a unique constraint at the storage
// boundary, guarantees no duplicates even under concurrent ingestion of the
// same source.
type IngestService struct {
	sources SourceStore
	content ContentStore
	fetcher FeedFetcher
	events  EventPublisher
	logger  *slog.Logger
}

func NewIngestService(
	sources SourceStore,
	content ContentStore,
	fetcher FeedFetcher,
	eventPublisher EventPublisher,
	logger *slog.Logger,
) *IngestService {
	return &IngestService{
		sources: sources,
		content: content,
		fetcher: fetcher,
		events:  eventPublisher,
		logger:  logger.With("service", "ingest"),
	}
}

// Ingest fetches one source and creates content items for unseen feed
// entries. A fetch or parse failure marks the source unhealthy and returns
// the error; per-item problems are tallied, never raised.
func (s *IngestService) Ingest(ctx context.Context, sourceID int64) (*domain.IngestResult, error) {
	startTime := time.Now()

	source, err := s.sources.GetByID(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("load source %d: %w", sourceID, err)
	}

	logger := s.logger.With("source_id", source.ID, "url", source.URL)
	logger.Info("starting ingest", "tenant_id", source.TenantID)

	items, err := s.fetcher.Fetch(ctx, source.URL)
	if err != nil {
		// The whole attempt is void: record the health transition and
		// surface the fetch error.
		if herr := s.sources.UpdateHealth(ctx, source.ID, domain.SourceError, time.Now()); herr != nil {
			logger.Error("failed to record source error state", "error", herr)
		}
		return nil, fmt.Errorf("fetch source %d: %w", source.ID, err)
	}

	result := &domain.IngestResult{
		SourceID: source.ID,
		Fetched:  len(items),
	}

	for i := range items {
		s.ingestItem(ctx, source, &items[i], result)
	}

	if err := s.sources.UpdateHealth(ctx, source.ID, domain.SourceActive, time.Now()); err != nil {
		return result, fmt.Errorf("update source health: %w", err)
	}

	result.Duration = time.Since(startTime)

	logger.Info("ingest completed",
		"fetched", result.Fetched,
		"new", result.New,
		"duplicates", result.Duplicates,
		"skipped", result.Skipped,
		"errors", result.Errors,
		"published", result.Published,
		"duration", result.Duration,
	)

	return result, nil
}

func (s *IngestService) ingestItem(ctx context.Context, source *domain.Source, item *domain.FeedItem, result *domain.IngestResult) {
	identityKey := item.IdentityKey()
	if identityKey == "" {
		s.logger.Warn("skipping feed item with no guid or link",
			"source_id", source.ID,
			"title", item.Title,
		)
		result.Skipped++
		return
	}

	exists, err := s.content.ExistsByIdentity(ctx, source.TenantID, identityKey)
	if err != nil {
		s.logger.Error("dedup lookup failed", "identity_key", identityKey, "error", err)
		result.Errors++
		return
	}
	if exists {
		result.Duplicates++
		return
	}

	contentItem := newContentFromFeed(source, item, identityKey)

	if _, err := s.content.Insert(ctx, contentItem); err != nil {
		if errors.Is(err, domain.ErrDuplicateItem) {
			// Another ingest of the same feed won the race. The
			// constraint is the source of truth; this is not an error.
			result.Duplicates++
			return
		}
		s.logger.Error("insert content item failed", "identity_key", identityKey, "error", err)
		result.Errors++
		return
	}

	result.New++

	if s.events != nil {
		if err := s.events.PublishContent(ctx, contentItem, events.ActionIngested); err != nil {
			s.logger.Error("publish ingest event failed", "content_id", contentItem.ID, "error", err)
			result.Errors++
		} else {
			result.Published++
		}
	}
}

// IngestAll polls every active source of a tenant. A failing source never
// blocks its siblings.
func (s *IngestService) IngestAll(ctx context.Context, tenantID int64) (*domain.TenantIngestResult, error) {
	sources, err := s.sources.ListActiveByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list sources for tenant %d: %w", tenantID, err)
	}

	result := &domain.TenantIngestResult{TenantID: tenantID}
	for _, src := range sources {
		ingestResult, err := s.Ingest(ctx, src.ID)
		if err != nil {
			s.logger.Error("source ingest failed", "source_id", src.ID, "error", err)
			result.Failed++
			continue
		}
		result.Succeeded++
		result.NewItems += ingestResult.New
	}

	s.logger.Info("tenant ingest completed",
		"tenant_id", tenantID,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"new_items", result.NewItems,
	)

	return result, nil
}

func newContentFromFeed(source *domain.Source, item *domain.FeedItem, identityKey string) *domain.ContentItem {
	title := item.Title
	if title == "" {
		title = "Untitled"
	}

	publishedAt := time.Now()
	if item.PublishedAt != nil {
		publishedAt = *item.PublishedAt
	}

	contentItem := &domain.ContentItem{
		TenantID:    source.TenantID,
		SourceID:    &source.ID,
		Title:       title,
		Body:        item.Body,
		Origin:      domain.OriginFeedImport,
		IdentityKey: &identityKey,
		Categories:  item.Categories,
		Status:      domain.ContentPendingReview,
		PublishedAt: &publishedAt,
	}
	if item.Link != "" {
		link := item.Link
		contentItem.SourceURL = &link
	}
	if item.Author != "" {
		author := item.Author
		contentItem.Author = &author
	}
	return contentItem
}
