package repository

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jmoiron/sqlx"

	"github.com/gurkanbulca/streamline/internal/models"
)

const tableTaskEvents = "task_events"

var taskEventColumns = []string{
	"id", "task_id", "actor", "event_type", "from_status", "to_status", "created_at",
}

// TaskEventRepository stores the append-only audit trail of task transitions.
type TaskEventRepository struct {
	db      *sqlx.DB
	dialect string
}

func NewTaskEventRepository(db *sqlx.DB, dialect string) *TaskEventRepository {
	return &TaskEventRepository{
		db:      db,
		dialect: dialect,
	}
}

func (r *TaskEventRepository) Append(ctx context.Context, e *models.TaskEvent) error {
	query, args := entsql.Dialect(r.dialect).
		Insert(tableTaskEvents).
		Columns(taskEventColumns...).
		Values(e.ID, e.TaskID, e.Actor, e.EventType, e.FromStatus, e.ToStatus, e.CreatedAt.UTC()).
		Query()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert task event: %w", err)
	}
	return nil
}

// ListByTask returns a task's events in the order they happened.
func (r *TaskEventRepository) ListByTask(ctx context.Context, taskID string) ([]*models.TaskEvent, error) {
	b := entsql.Dialect(r.dialect)
	selector := b.Select(taskEventColumns...).From(b.Table(tableTaskEvents))
	selector.Where(entsql.EQ("task_id", taskID)).
		OrderBy(entsql.Asc(selector.C("created_at")))
	query, args := selector.Query()

	events := []*models.TaskEvent{}
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("query task events: %w", err)
	}
	return events, nil
}
