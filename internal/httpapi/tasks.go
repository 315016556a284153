package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/gurkanbulca/streamline/internal/httpapi/apierrors"
	"github.com/gurkanbulca/streamline/internal/models"
	"github.com/gurkanbulca/streamline/internal/service"
)

const (
	maxJSONBody = 1 << 20
	// multipart overhead allowed on top of the proof ceiling
	multipartSlack = 1 << 20

	proofFileField  = "proofImage"
	proofNotesField = "submissionNotes"
)

// CreateTask handles POST /api/tasks.
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	deadline, err := models.ParseDeadline(req.Deadline)
	if err != nil {
		apierrors.ValidationError(w, "Deadline must be a valid date")
		return
	}

	task, err := h.tasks.Create(r.Context(), caller(r), service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Assignee:    req.AssignedTo,
		Deadline:    deadline,
		ProofType:   models.ProofType(strings.TrimSpace(req.ProofType)),
	})
	if err != nil {
		apierrors.FromService(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTaskResponse(task))
}

// ListAssignedToMe handles GET /api/tasks/assigned-to-me.
func (h *Handler) ListAssignedToMe(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.ListAssignedTo(r.Context(), caller(r))
	if err != nil {
		apierrors.FromService(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponses(tasks))
}

// ListAssignedByMe handles GET /api/tasks/assigned-by-me.
func (h *Handler) ListAssignedByMe(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.ListAssignedBy(r.Context(), caller(r))
	if err != nil {
		apierrors.FromService(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponses(tasks))
}

func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.tasks.Get(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		apierrors.FromService(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(task))
}

func (h *Handler) ListTaskEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.tasks.ListEvents(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		apierrors.FromService(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskEventResponses(events))
}

// SubmitProof handles POST /api/tasks/{id}/submit-proof. The body is a
// multipart form with an optional proofImage file and submissionNotes field.
// A non-multipart body is treated as a submission without attachment.
func (h *Handler) SubmitProof(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxProofBytes+multipartSlack)

	in := service.SubmitProofInput{}
	err := r.ParseMultipartForm(h.maxProofBytes)
	switch {
	case err == nil:
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	case errors.Is(err, http.ErrNotMultipart):
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apierrors.ValidationError(w, service.TooLargeMessage(h.maxProofBytes))
			return
		}
		apierrors.ValidationError(w, "Malformed multipart body")
		return
	}

	if r.MultipartForm != nil {
		in.Notes = r.FormValue(proofNotesField)

		file, header, err := r.FormFile(proofFileField)
		switch {
		case err == nil:
			defer file.Close()
			in.Attachment = &service.Attachment{
				Filename:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Size:        header.Size,
				Content:     file,
			}
		case errors.Is(err, http.ErrMissingFile):
		default:
			apierrors.ValidationError(w, "Malformed proof upload")
			return
		}
	}

	task, err := h.tasks.SubmitProof(r.Context(), caller(r), chi.URLParam(r, "id"), in)
	if err != nil {
		apierrors.FromService(w, err)
		return
	}
	writeJSON(w, http.StatusOK, submitProofResponse{
		Message:  "Proof submitted successfully!",
		ImageURL: task.SubmissionProofURL.String,
		Task:     toTaskResponse(task),
	})
}

// ReviewTask handles PUT /api/tasks/{id}/review.
func (h *Handler) ReviewTask(w http.ResponseWriter, r *http.Request) {
	var req reviewTaskRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	task, err := h.tasks.Review(r.Context(), caller(r), chi.URLParam(r, "id"), service.ReviewInput{
		Decision: req.Status,
		Feedback: req.ManagerFeedback,
	})
	if err != nil {
		apierrors.FromService(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reviewTaskResponse{
		Message: fmt.Sprintf("Task %s successfully.", task.Status),
		Task:    toTaskResponse(task),
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, logger *slog.Logger) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.Debug("invalid request body", slog.String("error", err.Error()))
		apierrors.ValidationError(w, "Invalid JSON body")
		return false
	}
	return true
}
