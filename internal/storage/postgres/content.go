package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"content_pipeline/internal/domain"
)

// uniqueViolation is the postgres error code raised when the unique index on
// (tenant_id, identity_key) rejects a write.
const uniqueViolation = "23505"

type ContentStore struct {
	db *sqlx.DB
}

func NewContentStore(db *sqlx.DB) *ContentStore {
	return &ContentStore{db: db}
}

// Insert creates a content item. A unique-index violation on the tenant's
// identity namespace is reported as domain.ErrDuplicateItem so callers can
// treat the race between concurrent ingests as benign.
func (s *ContentStore) Insert(ctx context.Context, item *domain.ContentItem) (int64, error) {
	query := `
		INSERT INTO content_items (
			tenant_id, source_id, plan_id, title, body, origin, identity_key,
			source_url, author, categories, keywords, summary, status, published_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
		RETURNING id`

	exec := GetExecutor(ctx, s.db)

	var id int64
	err := exec.QueryRowxContext(ctx, query,
		item.TenantID,
		item.SourceID,
		item.PlanID,
		item.Title,
		item.Body,
		item.Origin,
		item.IdentityKey,
		item.SourceURL,
		item.Author,
		pq.Array(item.Categories),
		pq.Array(item.Keywords),
		item.Summary,
		item.Status,
		item.PublishedAt,
	).Scan(&id)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return 0, domain.ErrDuplicateItem
	}
	if err != nil {
		return 0, err
	}

	item.ID = id
	return id, nil
}

// ExistsByIdentity reports whether the tenant already holds an item with the
// given identity key. Dedup scope is tenant-wide: two sources referencing the
// same canonical link still collapse to one item.
func (s *ContentStore) ExistsByIdentity(ctx context.Context, tenantID int64, identityKey string) (bool, error) {
	exec := GetExecutor(ctx, s.db)

	var exists bool
	err := exec.QueryRowxContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM content_items WHERE tenant_id = $1 AND identity_key = $2)",
		tenantID, identityKey,
	).Scan(&exists)
	return exists, err
}

func (s *ContentStore) GetByID(ctx context.Context, id int64) (*domain.ContentItem, error) {
	query := `
		SELECT id, tenant_id, source_id, plan_id, title, body, origin,
		       identity_key, source_url, author, categories, keywords,
		       summary, status, published_at, created_at, updated_at
		FROM content_items
		WHERE id = $1`

	exec := GetExecutor(ctx, s.db)

	var item domain.ContentItem
	var categories, keywords pq.StringArray
	err := exec.QueryRowxContext(ctx, query, id).Scan(
		&item.ID,
		&item.TenantID,
		&item.SourceID,
		&item.PlanID,
		&item.Title,
		&item.Body,
		&item.Origin,
		&item.IdentityKey,
		&item.SourceURL,
		&item.Author,
		&categories,
		&keywords,
		&item.Summary,
		&item.Status,
		&item.PublishedAt,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrContentNotFound
	}
	if err != nil {
		return nil, err
	}

	item.Categories = categories
	item.Keywords = keywords
	return &item, nil
}

// MarkPublished moves an item to published. Published items are immutable
// except for status, so only status and published_at are touched.
func (s *ContentStore) MarkPublished(ctx context.Context, id int64, publishedAt time.Time) error {
	exec := GetExecutor(ctx, s.db)

	res, err := exec.ExecContext(ctx,
		"UPDATE content_items SET status = $1, published_at = $2, updated_at = NOW() WHERE id = $3",
		domain.ContentPublished, publishedAt, id,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrContentNotFound
	}
	return nil
}
