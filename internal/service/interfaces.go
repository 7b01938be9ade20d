package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"content_pipeline/internal/domain"
)

type SourceStore interface {
	GetByID(ctx context.Context, id int64) (*domain.Source, error)
	ListActiveByTenant(ctx context.Context, tenantID int64) ([]domain.Source, error)
	UpdateHealth(ctx context.Context, id int64, status domain.HealthStatus, polledAt time.Time) error
}

type ContentStore interface {
	Insert(ctx context.Context, item *domain.ContentItem) (int64, error)
	ExistsByIdentity(ctx context.Context, tenantID int64, identityKey string) (bool, error)
	GetByID(ctx context.Context, id int64) (*domain.ContentItem, error)
	MarkPublished(ctx context.Context, id int64, publishedAt time.Time) error
}

type PlanStore interface {
	GetByID(ctx context.Context, id int64) (*domain.ContentPlan, error)
}

type TaskStore interface {
	Create(ctx context.Context, task *domain.DistributionTask) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.DistributionTask, error)
	Update(ctx context.Context, task *domain.DistributionTask) error
}

type FeedFetcher interface {
	Fetch(ctx context.Context, url string) ([]domain.FeedItem, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, text, lengthHint string) (string, error)
}

type KeywordExtractor interface {
	Extract(ctx context.Context, text string, limit int) ([]string, error)
}

type Publisher interface {
	Publish(ctx context.Context, item *domain.ContentItem, platform string) (string, error)
}

type SocialPoster interface {
	Post(ctx context.Context, item *domain.ContentItem, platform string) (string, error)
}

type MailSender interface {
	Send(ctx context.Context, subject, htmlBody, recipient string) error
}

type EventPublisher interface {
	PublishContent(ctx context.Context, item *domain.ContentItem, action string) error
	PublishDistribution(ctx context.Context, item *domain.ContentItem, task *domain.DistributionTask) error
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
