package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jmoiron/sqlx"

	"github.com/gurkanbulca/streamline/internal/models"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrStatusConflict    = errors.New("task status changed concurrently")
	ErrInvalidTransition = errors.New("invalid status transition")
)

const tableTasks = "tasks"

var taskColumns = []string{
	"id", "title", "description", "assignee", "assigner", "deadline",
	"proof_type", "status", "submission_proof_url", "submission_notes",
	"submitted_at", "manager_feedback", "reviewed_at", "created_at", "updated_at",
}

type TaskRepository struct {
	db      *sqlx.DB
	dialect string
}

func NewTaskRepository(db *sqlx.DB, dialect string) *TaskRepository {
	return &TaskRepository{
		db:      db,
		dialect: dialect,
	}
}

func (r *TaskRepository) builder() *entsql.DialectBuilder {
	return entsql.Dialect(r.dialect)
}

func (r *TaskRepository) Create(ctx context.Context, t *models.Task) error {
	query, args := r.builder().
		Insert(tableTasks).
		Columns(taskColumns...).
		Values(
			t.ID, t.Title, t.Description, t.Assignee, t.Assigner, t.Deadline.UTC(),
			string(t.ProofType), string(t.Status), t.SubmissionProofURL, t.SubmissionNotes,
			t.SubmittedAt, t.ManagerFeedback, t.ReviewedAt, t.CreatedAt.UTC(), t.UpdatedAt.UTC(),
		).
		Query()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	return r.getByID(ctx, r.db, id)
}

func (r *TaskRepository) getByID(ctx context.Context, q sqlx.QueryerContext, id string) (*models.Task, error) {
	query, args := r.builder().
		Select(taskColumns...).
		From(r.builder().Table(tableTasks)).
		Where(entsql.EQ("id", id)).
		Query()

	var t models.Task
	if err := sqlx.GetContext(ctx, q, &t, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return &t, nil
}

// ListByAssignee returns the tasks assigned to a user, newest first.
func (r *TaskRepository) ListByAssignee(ctx context.Context, assignee string) ([]*models.Task, error) {
	return r.listBy(ctx, "assignee", assignee)
}

// ListByAssigner returns the tasks created by a manager, newest first.
func (r *TaskRepository) ListByAssigner(ctx context.Context, assigner string) ([]*models.Task, error) {
	return r.listBy(ctx, "assigner", assigner)
}

func (r *TaskRepository) listBy(ctx context.Context, column, value string) ([]*models.Task, error) {
	selector := r.builder().
		Select(taskColumns...).
		From(r.builder().Table(tableTasks))
	selector.Where(entsql.EQ(column, value)).
		OrderBy(entsql.Desc(selector.C("created_at")))
	query, args := selector.Query()

	tasks := []*models.Task{}
	if err := r.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("query tasks by %s: %w", column, err)
	}
	return tasks, nil
}

// TransitionInput describes a conditional status change. The update only
// applies while the stored status still equals From.
type TransitionInput struct {
	From models.TaskStatus
	To   models.TaskStatus
	At   time.Time

	// Submission fields, written on pending -> submitted.
	ProofURL string
	Notes    string

	// Review field, written on submitted -> approved/rejected.
	Feedback string
}

// Transition applies a compare-and-swap status update keyed on the expected
// current status. Zero affected rows means the task is gone or was moved by
// another writer; the two cases are told apart with a follow-up read.
//
// The update and the read of the updated row share one transaction, so an
// error return always means the change did not commit.
func (r *TaskRepository) Transition(ctx context.Context, id string, in TransitionInput) (_ *models.Task, err error) {
	if !models.CanTransition(in.From, in.To) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, in.From, in.To)
	}

	at := in.At.UTC()
	update := r.builder().
		Update(tableTasks).
		Set("status", string(in.To)).
		Set("updated_at", at)

	switch in.To {
	case models.TaskStatusSubmitted:
		update = update.
			Set("submission_proof_url", in.ProofURL).
			Set("submission_notes", in.Notes).
			Set("submitted_at", at)
	case models.TaskStatusApproved, models.TaskStatusRejected:
		update = update.
			Set("manager_feedback", in.Feedback).
			Set("reviewed_at", at)
	}

	query, args := update.
		Where(entsql.And(
			entsql.EQ("id", id),
			entsql.EQ("status", string(in.From)),
		)).
		Query()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("update task %s: begin: %w", id, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update task %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update task %s: rows affected: %w", id, err)
	}

	current, err := r.getByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		err = fmt.Errorf("%w: task %s is %s, expected %s", ErrStatusConflict, id, current.Status, in.From)
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("update task %s: commit: %w", id, err)
	}
	return current, nil
}
