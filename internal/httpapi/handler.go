// Package httpapi exposes the task lifecycle over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gurkanbulca/streamline/internal/models"
	"github.com/gurkanbulca/streamline/internal/service"
	"github.com/gurkanbulca/streamline/pkg/auth"
)

// TaskService is the subset of service.TaskService the handlers call.
type TaskService interface {
	Create(ctx context.Context, caller *auth.Identity, in service.CreateTaskInput) (*models.Task, error)
	ListAssignedTo(ctx context.Context, caller *auth.Identity) ([]*models.Task, error)
	ListAssignedBy(ctx context.Context, caller *auth.Identity) ([]*models.Task, error)
	Get(ctx context.Context, caller *auth.Identity, taskID string) (*models.Task, error)
	ListEvents(ctx context.Context, caller *auth.Identity, taskID string) ([]*models.TaskEvent, error)
	SubmitProof(ctx context.Context, caller *auth.Identity, taskID string, in service.SubmitProofInput) (*models.Task, error)
	Review(ctx context.Context, caller *auth.Identity, taskID string, in service.ReviewInput) (*models.Task, error)
}

// Handler holds the HTTP handlers for the task API.
type Handler struct {
	tasks         TaskService
	maxProofBytes int64
	logger        *slog.Logger
}

func NewHandler(tasks TaskService, maxProofBytes int64, logger *slog.Logger) *Handler {
	if maxProofBytes <= 0 {
		maxProofBytes = service.DefaultMaxProofBytes
	}
	return &Handler{
		tasks:         tasks,
		maxProofBytes: maxProofBytes,
		logger:        logger.With(slog.String("component", "http_handler")),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// caller returns the identity placed in the context by the auth middleware.
// A missing identity is passed on as nil and rejected by the service.
func caller(r *http.Request) *auth.Identity {
	id, _ := auth.IdentityFromContext(r.Context())
	return id
}
