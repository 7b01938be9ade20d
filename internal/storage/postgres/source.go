package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"content_pipeline/internal/domain"
)

type SourceStore struct {
	db *sqlx.DB
}

func NewSourceStore(db *sqlx.DB) *SourceStore {
	return &SourceStore{db: db}
}

type sourceRow struct {
	ID             int64        `db:"id"`
	TenantID       int64        `db:"tenant_id"`
	URL            string       `db:"url"`
	Name           string       `db:"name"`
	PollCadenceSec int64        `db:"poll_cadence_seconds"`
	HealthStatus   string       `db:"health_status"`
	LastPolledAt   sql.NullTime `db:"last_polled_at"`
	IsActive       bool         `db:"is_active"`
	CreatedAt      time.Time    `db:"created_at"`
}

func (r sourceRow) toDomain() *domain.Source {
	src := &domain.Source{
		ID:           r.ID,
		TenantID:     r.TenantID,
		URL:          r.URL,
		Name:         r.Name,
		PollCadence:  time.Duration(r.PollCadenceSec) * time.Second,
		HealthStatus: domain.HealthStatus(r.HealthStatus),
		IsActive:     r.IsActive,
		CreatedAt:    r.CreatedAt,
	}
	if r.LastPolledAt.Valid {
		t := r.LastPolledAt.Time
		src.LastPolledAt = &t
	}
	return src
}

const sourceColumns = `id, tenant_id, url, name, poll_cadence_seconds, health_status, last_polled_at, is_active, created_at`

func (s *SourceStore) Create(ctx context.Context, src *domain.Source) (int64, error) {
	query := `
		INSERT INTO sources (tenant_id, url, name, poll_cadence_seconds, health_status, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	exec := GetExecutor(ctx, s.db)

	var id int64
	err := exec.QueryRowxContext(ctx, query,
		src.TenantID,
		src.URL,
		src.Name,
		int64(src.PollCadence/time.Second),
		src.HealthStatus,
		src.IsActive,
	).Scan(&id)
	if err != nil {
		return 0, err
	}

	src.ID = id
	return id, nil
}

func (s *SourceStore) GetByID(ctx context.Context, id int64) (*domain.Source, error) {
	var row sourceRow
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &row,
		"SELECT "+sourceColumns+" FROM sources WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, domain.ErrSourceNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (s *SourceStore) ListActiveByTenant(ctx context.Context, tenantID int64) ([]domain.Source, error) {
	var rows []sourceRow
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &rows,
		"SELECT "+sourceColumns+" FROM sources WHERE tenant_id = $1 AND is_active ORDER BY id", tenantID)
	if err != nil {
		return nil, err
	}

	sources := make([]domain.Source, 0, len(rows))
	for _, r := range rows {
		sources = append(sources, *r.toDomain())
	}
	return sources, nil
}

// ListDue returns active sources whose poll cadence has elapsed since their
// last poll. Never-polled sources are always due.
func (s *SourceStore) ListDue(ctx context.Context, now time.Time) ([]domain.Source, error) {
	query := `
		SELECT ` + sourceColumns + `
		FROM sources
		WHERE is_active
		  AND (last_polled_at IS NULL
		       OR last_polled_at + poll_cadence_seconds * INTERVAL '1 second' <= $1)
		ORDER BY id`

	var rows []sourceRow
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &rows, query, now)
	if err != nil {
		return nil, err
	}

	sources := make([]domain.Source, 0, len(rows))
	for _, r := range rows {
		sources = append(sources, *r.toDomain())
	}
	return sources, nil
}

// UpdateHealth records the outcome of a poll attempt.
func (s *SourceStore) UpdateHealth(ctx context.Context, id int64, status domain.HealthStatus, polledAt time.Time) error {
	exec := GetExecutor(ctx, s.db)

	res, err := exec.ExecContext(ctx,
		"UPDATE sources SET health_status = $1, last_polled_at = $2 WHERE id = $3",
		status, polledAt, id,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrSourceNotFound
	}
	return nil
}
