package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"content_pipeline/internal/domain"
)

type TaskStore struct {
	db *sqlx.DB
}

func NewTaskStore(db *sqlx.DB) *TaskStore {
	return &TaskStore{db: db}
}

type taskRow struct {
	ID                int64          `db:"id"`
	ContentItemID     int64          `db:"content_item_id"`
	Channel           string         `db:"channel"`
	Target            string         `db:"target"`
	Status            string         `db:"status"`
	ScheduledFor      sql.NullTime   `db:"scheduled_for"`
	AttemptedAt       sql.NullTime   `db:"attempted_at"`
	ExternalReference sql.NullString `db:"external_reference"`
	LastError         sql.NullString `db:"last_error"`
	Total             int            `db:"total"`
	Succeeded         int            `db:"succeeded"`
	Failed            int            `db:"failed"`
	CreatedAt         time.Time      `db:"created_at"`
}

func (r taskRow) toDomain() *domain.DistributionTask {
	task := &domain.DistributionTask{
		ID:            r.ID,
		ContentItemID: r.ContentItemID,
		Channel:       domain.Channel(r.Channel),
		Target:        r.Target,
		Status:        domain.TaskStatus(r.Status),
		Total:         r.Total,
		Succeeded:     r.Succeeded,
		Failed:        r.Failed,
		CreatedAt:     r.CreatedAt,
	}
	if r.ScheduledFor.Valid {
		t := r.ScheduledFor.Time
		task.ScheduledFor = &t
	}
	if r.AttemptedAt.Valid {
		t := r.AttemptedAt.Time
		task.AttemptedAt = &t
	}
	if r.ExternalReference.Valid {
		v := r.ExternalReference.String
		task.ExternalReference = &v
	}
	if r.LastError.Valid {
		v := r.LastError.String
		task.LastError = &v
	}
	return task
}

const taskColumns = `id, content_item_id, channel, target, status, scheduled_for, attempted_at, external_reference, last_error, total, succeeded, failed, created_at`

func (s *TaskStore) Create(ctx context.Context, task *domain.DistributionTask) (int64, error) {
	query := `
		INSERT INTO distribution_tasks (
			content_item_id, channel, target, status, scheduled_for
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	exec := GetExecutor(ctx, s.db)

	err := exec.QueryRowxContext(ctx, query,
		task.ContentItemID,
		task.Channel,
		task.Target,
		task.Status,
		task.ScheduledFor,
	).Scan(&task.ID, &task.CreatedAt)
	if err != nil {
		return 0, err
	}
	return task.ID, nil
}

func (s *TaskStore) GetByID(ctx context.Context, id int64) (*domain.DistributionTask, error) {
	var row taskRow
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &row,
		"SELECT "+taskColumns+" FROM distribution_tasks WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, domain.ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

// Update writes the mutable outcome fields of a task.
func (s *TaskStore) Update(ctx context.Context, task *domain.DistributionTask) error {
	query := `
		UPDATE distribution_tasks
		SET status = $1, attempted_at = $2, external_reference = $3,
		    last_error = $4, total = $5, succeeded = $6, failed = $7
		WHERE id = $8`

	exec := GetExecutor(ctx, s.db)

	res, err := exec.ExecContext(ctx, query,
		task.Status,
		task.AttemptedAt,
		task.ExternalReference,
		task.LastError,
		task.Total,
		task.Succeeded,
		task.Failed,
		task.ID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

// ListDueScheduled returns scheduled tasks whose send time has passed.
func (s *TaskStore) ListDueScheduled(ctx context.Context, now time.Time) ([]domain.DistributionTask, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM distribution_tasks
		WHERE status = $1 AND scheduled_for <= $2
		ORDER BY scheduled_for`

	var rows []taskRow
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &rows, query, domain.TaskScheduled, now)
	if err != nil {
		return nil, err
	}

	tasks := make([]domain.DistributionTask, 0, len(rows))
	for _, r := range rows {
		tasks = append(tasks, *r.toDomain())
	}
	return tasks, nil
}
