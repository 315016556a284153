// internal/service/event_logger.go
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gurkanbulca/streamline/internal/models"
)

// EventStore persists the task audit trail.
type EventStore interface {
	Append(ctx context.Context, e *models.TaskEvent) error
	ListByTask(ctx context.Context, taskID string) ([]*models.TaskEvent, error)
}

// EventLogger records task transitions after they have committed. Recording
// is best effort: the transition already happened, so a failed append is
// logged and swallowed.
type EventLogger struct {
	store  EventStore
	now    func() time.Time
	logger *slog.Logger
}

// NewEventLogger creates a new event logger
func NewEventLogger(store EventStore, logger *slog.Logger) *EventLogger {
	return &EventLogger{
		store:  store,
		now:    time.Now,
		logger: logger.With(slog.String("component", "event_logger")),
	}
}

// LogCreated records the creation of a task.
func (l *EventLogger) LogCreated(ctx context.Context, task *models.Task, actor string) {
	l.LogTransition(ctx, task.ID, actor, "", models.TaskStatusPending)
}

// LogTransition records a committed status change.
func (l *EventLogger) LogTransition(ctx context.Context, taskID, actor string, from, to models.TaskStatus) {
	event := &models.TaskEvent{
		ID:         uuid.New().String(),
		TaskID:     taskID,
		Actor:      actor,
		EventType:  models.EventTypeForStatus(to),
		FromStatus: string(from),
		ToStatus:   string(to),
		CreatedAt:  l.now().UTC(),
	}

	if err := l.store.Append(ctx, event); err != nil {
		l.logger.Warn("failed to record task event",
			slog.String("task_id", taskID),
			slog.String("event_type", event.EventType),
			slog.String("error", err.Error()),
		)
	}
}

// List returns a task's events oldest first.
func (l *EventLogger) List(ctx context.Context, taskID string) ([]*models.TaskEvent, error) {
	return l.store.ListByTask(ctx, taskID)
}
