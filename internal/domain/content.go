package domain

import "time"

// Origin describes how a ContentItem entered the store.
type Origin string

const (
	OriginManual     Origin = "manual"
	OriginFeedImport Origin = "feed_import"
	OriginGenerated  Origin = "ai_generated"
)

// ContentStatus is the editorial status of a ContentItem.
type ContentStatus string

const (
	ContentDraft         ContentStatus = "draft"
	ContentPendingReview ContentStatus = "pending_review"
	ContentPublished     ContentStatus = "published"
	ContentScheduled     ContentStatus = "scheduled"
)

// ContentItem is a single piece of content owned by a tenant. IdentityKey is
// the dedup key for feed-imported items: derived from the feed item's guid,
// falling back to its canonical link. It is unique per tenant and NULL for
// content that did not come from a feed.
type ContentItem struct {
	ID          int64
	TenantID    int64
	SourceID    *int64
	PlanID      *int64
	Title       string
	Body        string
	Origin      Origin
	IdentityKey *string
	SourceURL   *string
	Author      *string
	Categories  []string
	Keywords    []string
	Summary     *string
	Status      ContentStatus
	PublishedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ContentPlan describes what a generated draft should cover.
type ContentPlan struct {
	ID          int64
	TenantID    int64
	Topic       string
	Keywords    []string
	Audience    string
	ContentType string
	CreatedAt   time.Time
}
