// internal/service/task_service.go
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gurkanbulca/streamline/internal/models"
	"github.com/gurkanbulca/streamline/internal/repository"
	"github.com/gurkanbulca/streamline/pkg/auth"
)

// TaskStore is the persistence the lifecycle engine needs.
type TaskStore interface {
	Create(ctx context.Context, t *models.Task) error
	GetByID(ctx context.Context, id string) (*models.Task, error)
	ListByAssignee(ctx context.Context, assignee string) ([]*models.Task, error)
	ListByAssigner(ctx context.Context, assigner string) ([]*models.Task, error)
	Transition(ctx context.Context, id string, in repository.TransitionInput) (*models.Task, error)
}

// CreateTaskInput is the validated body of a create request.
type CreateTaskInput struct {
	Title       string
	Description string
	Assignee    string
	Deadline    time.Time
	ProofType   models.ProofType
}

// SubmitProofInput carries the proof for a submission. Attachment may be nil
// for proof types that do not need one.
type SubmitProofInput struct {
	Attachment *Attachment
	Notes      string
}

// ReviewInput carries a manager's decision. Decision must be "approved" or
// "rejected".
type ReviewInput struct {
	Decision string
	Feedback string
}

// TaskService drives the task lifecycle: creation, proof submission and
// review. Every status change goes through a conditional update keyed on the
// expected current status.
type TaskService struct {
	tasks      TaskStore
	proofs     *ProofReceiver
	events     *EventLogger
	validation *ValidationConfig
	now        func() time.Time
	logger     *slog.Logger
}

func NewTaskService(
	tasks TaskStore,
	proofs *ProofReceiver,
	events *EventLogger,
	validation *ValidationConfig,
	logger *slog.Logger,
) *TaskService {
	if validation == nil {
		validation = DefaultValidationConfig()
	}
	return &TaskService{
		tasks:      tasks,
		proofs:     proofs,
		events:     events,
		validation: validation,
		now:        time.Now,
		logger:     logger.With(slog.String("component", "task_service")),
	}
}

// WithClock overrides the time source.
func (s *TaskService) WithClock(now func() time.Time) *TaskService {
	s.now = now
	return s
}

// Create creates a pending task assigned by the calling manager.
func (s *TaskService) Create(ctx context.Context, caller *auth.Identity, in CreateTaskInput) (*models.Task, error) {
	const op = "create task"

	if err := requireRole(op, caller, auth.RoleManager); err != nil {
		return nil, s.fail(op, err)
	}
	if err := s.validation.validateCreate(&in); err != nil {
		return nil, s.fail(op, err)
	}

	proofType := in.ProofType
	if proofType == "" {
		proofType = models.DefaultProofType
	}

	now := s.now().UTC()
	task := &models.Task{
		ID:          uuid.New().String(),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Assignee:    strings.TrimSpace(in.Assignee),
		Assigner:    caller.UserID,
		Deadline:    in.Deadline.UTC(),
		ProofType:   proofType,
		Status:      models.TaskStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, s.fail(op, storageError(op, err))
	}

	taskTransitionsTotal.WithLabelValues("", string(models.TaskStatusPending)).Inc()
	s.logger.Info("task created",
		slog.String("task_id", task.ID),
		slog.String("assigner", task.Assigner),
		slog.String("assignee", task.Assignee),
	)
	if s.events != nil {
		s.events.LogCreated(context.WithoutCancel(ctx), task, caller.UserID)
	}
	return task, nil
}

// ListAssignedTo returns the caller's own tasks, newest first.
func (s *TaskService) ListAssignedTo(ctx context.Context, caller *auth.Identity) ([]*models.Task, error) {
	const op = "list assigned tasks"

	if err := requireRole(op, caller); err != nil {
		return nil, s.fail(op, err)
	}
	tasks, err := s.tasks.ListByAssignee(ctx, caller.UserID)
	if err != nil {
		return nil, s.fail(op, storageError(op, err))
	}
	return tasks, nil
}

// ListAssignedBy returns the tasks the calling manager created, newest first.
func (s *TaskService) ListAssignedBy(ctx context.Context, caller *auth.Identity) ([]*models.Task, error) {
	const op = "list created tasks"

	if err := requireRole(op, caller, auth.RoleManager); err != nil {
		return nil, s.fail(op, err)
	}
	tasks, err := s.tasks.ListByAssigner(ctx, caller.UserID)
	if err != nil {
		return nil, s.fail(op, storageError(op, err))
	}
	return tasks, nil
}

// Get returns a task visible to its assignee or assigner.
func (s *TaskService) Get(ctx context.Context, caller *auth.Identity, taskID string) (*models.Task, error) {
	const op = "get task"

	if err := requireRole(op, caller); err != nil {
		return nil, s.fail(op, err)
	}
	task, err := s.load(ctx, op, taskID)
	if err != nil {
		return nil, s.fail(op, err)
	}
	if caller.UserID != task.Assignee && caller.UserID != task.Assigner {
		return nil, s.fail(op, authorizationError(op, "Not authorized to view this task"))
	}
	return task, nil
}

// ListEvents returns the audit trail of a task visible to the caller.
func (s *TaskService) ListEvents(ctx context.Context, caller *auth.Identity, taskID string) ([]*models.TaskEvent, error) {
	const op = "list task events"

	if _, err := s.Get(ctx, caller, taskID); err != nil {
		return nil, err
	}
	if s.events == nil {
		return []*models.TaskEvent{}, nil
	}
	events, err := s.events.List(ctx, taskID)
	if err != nil {
		return nil, s.fail(op, storageError(op, err))
	}
	return events, nil
}

// SubmitProof moves a pending task to submitted. Only the assignee may
// submit. The attachment is stored before the conditional update and
// deleted again if the update does not commit.
func (s *TaskService) SubmitProof(ctx context.Context, caller *auth.Identity, taskID string, in SubmitProofInput) (*models.Task, error) {
	const op = "submit proof"

	if err := requireRole(op, caller, auth.RoleTeamMember); err != nil {
		return nil, s.fail(op, err)
	}

	task, err := s.load(ctx, op, taskID)
	if err != nil && KindOf(err) != KindNotFound {
		return nil, s.fail(op, err)
	}

	// A missing attachment is reported before the task lookup result. Unknown
	// tasks are judged by the default proof type.
	proofType := models.DefaultProofType
	if task != nil {
		proofType = task.ProofType
	}
	if in.Attachment == nil && proofType.RequiresAttachment() {
		return nil, s.fail(op, validationError(op, "Proof image is required"))
	}
	if err != nil {
		return nil, s.fail(op, err)
	}

	if task.Assignee != caller.UserID {
		return nil, s.fail(op, authorizationError(op, "Not authorized to submit this task"))
	}
	if in.Attachment != nil {
		if err := s.proofs.Validate(in.Attachment); err != nil {
			return nil, s.fail(op, err)
		}
	}
	if err := s.validation.validateNotes(op, in.Notes); err != nil {
		return nil, s.fail(op, err)
	}

	if task.Status != models.TaskStatusPending {
		return nil, s.fail(op, conflictError(op, "Task is not pending", nil))
	}

	var ref string
	if in.Attachment != nil {
		ref, err = s.proofs.Store(ctx, caller.UserID, in.Attachment)
		if err != nil {
			return nil, s.fail(op, err)
		}
	}

	// The stored file is owned by this call until the update commits, so the
	// commit and its compensation must not be cut short by the caller.
	commitCtx := context.WithoutCancel(ctx)

	updated, err := s.tasks.Transition(commitCtx, taskID, repository.TransitionInput{
		From:     models.TaskStatusPending,
		To:       models.TaskStatusSubmitted,
		At:       s.now(),
		ProofURL: ref,
		Notes:    in.Notes,
	})
	if err != nil {
		if ref != "" {
			s.proofs.Discard(commitCtx, ref)
		}
		return nil, s.fail(op, transitionError(op, err))
	}

	taskTransitionsTotal.WithLabelValues(string(models.TaskStatusPending), string(models.TaskStatusSubmitted)).Inc()
	s.logger.Info("proof submitted",
		slog.String("task_id", taskID),
		slog.String("user_id", caller.UserID),
		slog.String("proof_url", ref),
	)
	if s.events != nil {
		s.events.LogTransition(commitCtx, taskID, caller.UserID, models.TaskStatusPending, models.TaskStatusSubmitted)
	}
	return updated, nil
}

// Review approves or rejects a submitted task. Only the assigner may review.
func (s *TaskService) Review(ctx context.Context, caller *auth.Identity, taskID string, in ReviewInput) (*models.Task, error) {
	const op = "review task"

	if err := requireRole(op, caller, auth.RoleManager); err != nil {
		return nil, s.fail(op, err)
	}
	decision, err := s.validation.validateReview(&in)
	if err != nil {
		return nil, s.fail(op, err)
	}

	task, err := s.load(ctx, op, taskID)
	if err != nil {
		return nil, s.fail(op, err)
	}
	if task.Assigner != caller.UserID {
		return nil, s.fail(op, authorizationError(op, "Not authorized to review this task"))
	}
	if task.Status != models.TaskStatusSubmitted {
		return nil, s.fail(op, conflictError(op, "Task is not submitted", nil))
	}

	updated, err := s.tasks.Transition(ctx, taskID, repository.TransitionInput{
		From:     models.TaskStatusSubmitted,
		To:       decision,
		At:       s.now(),
		Feedback: in.Feedback,
	})
	if err != nil {
		return nil, s.fail(op, transitionError(op, err))
	}

	taskTransitionsTotal.WithLabelValues(string(models.TaskStatusSubmitted), string(decision)).Inc()
	s.logger.Info("task reviewed",
		slog.String("task_id", taskID),
		slog.String("user_id", caller.UserID),
		slog.String("decision", string(decision)),
	)
	if s.events != nil {
		s.events.LogTransition(context.WithoutCancel(ctx), taskID, caller.UserID, models.TaskStatusSubmitted, decision)
	}
	return updated, nil
}

func (s *TaskService) load(ctx context.Context, op, taskID string) (*models.Task, error) {
	if _, err := uuid.Parse(taskID); err != nil {
		return nil, notFoundError(op, "Task not found")
	}
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundError(op, "Task not found")
		}
		return nil, storageError(op, err)
	}
	return task, nil
}

// fail records and logs a failed operation and returns err unchanged.
func (s *TaskService) fail(op string, err error) error {
	return recordFailure(s.logger, op, err)
}

func recordFailure(logger *slog.Logger, op string, err error) error {
	kind := KindOf(err)
	taskErrorsTotal.WithLabelValues(op, kind.String()).Inc()

	if kind == KindStorage {
		logger.Error("operation failed", slog.String("op", op), slog.String("error", err.Error()))
	} else {
		logger.Debug("operation rejected",
			slog.String("op", op),
			slog.String("kind", kind.String()),
			slog.String("error", err.Error()),
		)
	}
	return err
}

func transitionError(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return notFoundError(op, "Task not found")
	case errors.Is(err, repository.ErrStatusConflict), errors.Is(err, repository.ErrInvalidTransition):
		return conflictError(op, "Task status changed, please reload", err)
	default:
		return storageError(op, err)
	}
}

// requireRole checks that a caller is present and, when roles are given,
// holds one of them.
func requireRole(op string, caller *auth.Identity, roles ...auth.Role) error {
	if caller == nil || caller.UserID == "" {
		return NewError(KindUnauthenticated, op, "Authentication required", nil)
	}
	if len(roles) == 0 {
		return nil
	}
	for _, r := range roles {
		if caller.Role == r {
			return nil
		}
	}
	return authorizationError(op, "Insufficient permissions")
}
