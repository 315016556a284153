package grpcapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/gurkanbulca/streamline/internal/models"
	"github.com/gurkanbulca/streamline/internal/service"
	"github.com/gurkanbulca/streamline/pkg/auth"
)

// TaskService is the part of service.TaskService exposed over gRPC.
type TaskService interface {
	Create(ctx context.Context, caller *auth.Identity, in service.CreateTaskInput) (*models.Task, error)
	ListAssignedTo(ctx context.Context, caller *auth.Identity) ([]*models.Task, error)
	ListAssignedBy(ctx context.Context, caller *auth.Identity) ([]*models.Task, error)
	Get(ctx context.Context, caller *auth.Identity, taskID string) (*models.Task, error)
	ListEvents(ctx context.Context, caller *auth.Identity, taskID string) ([]*models.TaskEvent, error)
	SubmitProof(ctx context.Context, caller *auth.Identity, taskID string, in service.SubmitProofInput) (*models.Task, error)
	Review(ctx context.Context, caller *auth.Identity, taskID string, in service.ReviewInput) (*models.Task, error)
}

// TaskServer implements TaskServiceServer on top of the lifecycle engine.
type TaskServer struct {
	tasks  TaskService
	logger *slog.Logger
}

func NewTaskServer(tasks TaskService, logger *slog.Logger) *TaskServer {
	return &TaskServer{
		tasks:  tasks,
		logger: logger.With(slog.String("component", "grpc_task_server")),
	}
}

var _ TaskServiceServer = (*TaskServer)(nil)

func (s *TaskServer) CreateTask(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	deadline, err := models.ParseDeadline(stringField(req, "deadline"))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "Deadline must be a valid date")
	}

	task, err := s.tasks.Create(ctx, callerFrom(ctx), service.CreateTaskInput{
		Title:       stringField(req, "title"),
		Description: stringField(req, "description"),
		Assignee:    stringField(req, "assignedTo"),
		Deadline:    deadline,
		ProofType:   models.ProofType(strings.TrimSpace(stringField(req, "proofType"))),
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]interface{}{"task": taskValue(task)})
}

func (s *TaskServer) ListAssignedToMe(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	tasks, err := s.tasks.ListAssignedTo(ctx, callerFrom(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]interface{}{"tasks": taskValues(tasks)})
}

func (s *TaskServer) ListAssignedByMe(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	tasks, err := s.tasks.ListAssignedBy(ctx, callerFrom(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]interface{}{"tasks": taskValues(tasks)})
}

func (s *TaskServer) GetTask(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	task, err := s.tasks.Get(ctx, callerFrom(ctx), stringField(req, "id"))
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]interface{}{"task": taskValue(task)})
}

func (s *TaskServer) ListTaskEvents(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	events, err := s.tasks.ListEvents(ctx, callerFrom(ctx), stringField(req, "id"))
	if err != nil {
		return nil, toStatus(err)
	}
	list := make([]interface{}, 0, len(events))
	for _, e := range events {
		list = append(list, map[string]interface{}{
			"id":         e.ID,
			"eventType":  e.EventType,
			"actor":      e.Actor,
			"fromStatus": e.FromStatus,
			"toStatus":   e.ToStatus,
			"createdAt":  formatTime(e.CreatedAt),
		})
	}
	return newStruct(map[string]interface{}{"events": list})
}

// SubmitProof expects {id, notes, attachment: {filename, contentType, data}}
// where data is the base64 encoded file.
func (s *TaskServer) SubmitProof(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in := service.SubmitProofInput{Notes: stringField(req, "notes")}

	if att := req.GetFields()["attachment"].GetStructValue(); att != nil {
		data, err := base64.StdEncoding.DecodeString(stringField(att, "data"))
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, "attachment.data must be base64 encoded")
		}
		in.Attachment = &service.Attachment{
			Filename:    stringField(att, "filename"),
			ContentType: stringField(att, "contentType"),
			Size:        int64(len(data)),
			Content:     bytes.NewReader(data),
		}
	}

	task, err := s.tasks.SubmitProof(ctx, callerFrom(ctx), stringField(req, "id"), in)
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]interface{}{
		"message":  "Proof submitted successfully!",
		"imageUrl": task.SubmissionProofURL.String,
		"task":     taskValue(task),
	})
}

func (s *TaskServer) ReviewTask(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	task, err := s.tasks.Review(ctx, callerFrom(ctx), stringField(req, "id"), service.ReviewInput{
		Decision: stringField(req, "status"),
		Feedback: stringField(req, "managerFeedback"),
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]interface{}{
		"message": fmt.Sprintf("Task %s successfully.", task.Status),
		"task":    taskValue(task),
	})
}

func callerFrom(ctx context.Context) *auth.Identity {
	id, _ := auth.IdentityFromContext(ctx)
	return id
}

func stringField(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func newStruct(m map[string]interface{}) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func taskValue(t *models.Task) map[string]interface{} {
	v := map[string]interface{}{
		"id":          t.ID,
		"title":       t.Title,
		"description": t.Description,
		"assignedTo":  t.Assignee,
		"assignedBy":  t.Assigner,
		"status":      string(t.Status),
		"deadline":    formatTime(t.Deadline),
		"proofType":   string(t.ProofType),
		"createdAt":   formatTime(t.CreatedAt),
		"lastUpdated": formatTime(t.UpdatedAt),
	}
	if t.SubmissionProofURL.Valid {
		v["submissionProofUrl"] = t.SubmissionProofURL.String
	}
	if t.SubmissionNotes.Valid {
		v["submissionNotes"] = t.SubmissionNotes.String
	}
	if t.SubmittedAt.Valid {
		v["submittedAt"] = formatTime(t.SubmittedAt.Time)
	}
	if t.ManagerFeedback.Valid {
		v["managerFeedback"] = t.ManagerFeedback.String
	}
	if t.ReviewedAt.Valid {
		v["reviewedAt"] = formatTime(t.ReviewedAt.Time)
	}
	return v
}

func taskValues(tasks []*models.Task) []interface{} {
	out := make([]interface{}, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskValue(t))
	}
	return out
}

// toStatus maps service error kinds onto gRPC codes.
func toStatus(err error) error {
	var code codes.Code
	switch service.KindOf(err) {
	case service.KindValidation:
		code = codes.InvalidArgument
	case service.KindUnauthenticated:
		code = codes.Unauthenticated
	case service.KindAuthorization:
		code = codes.PermissionDenied
	case service.KindNotFound:
		code = codes.NotFound
	case service.KindConflict:
		code = codes.FailedPrecondition
	default:
		code = codes.Internal
	}
	return status.Error(code, service.MessageOf(err))
}
