package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"content_pipeline/internal/domain"
)

type PlanStore struct {
	db *sqlx.DB
}

func NewPlanStore(db *sqlx.DB) *PlanStore {
	return &PlanStore{db: db}
}

func (s *PlanStore) Create(ctx context.Context, plan *domain.ContentPlan) (int64, error) {
	query := `
		INSERT INTO content_plans (tenant_id, topic, keywords, audience, content_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	exec := GetExecutor(ctx, s.db)

	err := exec.QueryRowxContext(ctx, query,
		plan.TenantID,
		plan.Topic,
		pq.Array(plan.Keywords),
		plan.Audience,
		plan.ContentType,
	).Scan(&plan.ID, &plan.CreatedAt)
	if err != nil {
		return 0, err
	}
	return plan.ID, nil
}

func (s *PlanStore) GetByID(ctx context.Context, id int64) (*domain.ContentPlan, error) {
	query := `
		SELECT id, tenant_id, topic, keywords, audience, content_type, created_at
		FROM content_plans
		WHERE id = $1`

	exec := GetExecutor(ctx, s.db)

	var plan domain.ContentPlan
	var keywords pq.StringArray
	err := exec.QueryRowxContext(ctx, query, id).Scan(
		&plan.ID,
		&plan.TenantID,
		&plan.Topic,
		&keywords,
		&plan.Audience,
		&plan.ContentType,
		&plan.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}

	plan.Keywords = keywords
	return &plan, nil
}
