package httpapi

import (
	"time"

	"github.com/gurkanbulca/streamline/internal/models"
)

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	AssignedTo  string `json:"assignedTo"`
	Deadline    string `json:"deadline"`
	ProofType   string `json:"proofType"`
}

type reviewTaskRequest struct {
	Status          string `json:"status"`
	ManagerFeedback string `json:"managerFeedback"`
}

type taskResponse struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	AssignedTo         string     `json:"assignedTo"`
	AssignedBy         string     `json:"assignedBy"`
	Status             string     `json:"status"`
	Deadline           time.Time  `json:"deadline"`
	ProofType          string     `json:"proofType"`
	SubmissionProofURL string     `json:"submissionProofUrl,omitempty"`
	SubmissionNotes    string     `json:"submissionNotes,omitempty"`
	SubmittedAt        *time.Time `json:"submittedAt,omitempty"`
	ManagerFeedback    string     `json:"managerFeedback,omitempty"`
	ReviewedAt         *time.Time `json:"reviewedAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	LastUpdated        time.Time  `json:"lastUpdated"`
}

type submitProofResponse struct {
	Message  string        `json:"message"`
	ImageURL string        `json:"imageUrl,omitempty"`
	Task     *taskResponse `json:"task"`
}

type reviewTaskResponse struct {
	Message string        `json:"message"`
	Task    *taskResponse `json:"task"`
}

type taskEventResponse struct {
	ID         string    `json:"id"`
	EventType  string    `json:"eventType"`
	Actor      string    `json:"actor"`
	FromStatus string    `json:"fromStatus,omitempty"`
	ToStatus   string    `json:"toStatus"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toTaskResponse(t *models.Task) *taskResponse {
	resp := &taskResponse{
		ID:                 t.ID,
		Title:              t.Title,
		Description:        t.Description,
		AssignedTo:         t.Assignee,
		AssignedBy:         t.Assigner,
		Status:             string(t.Status),
		Deadline:           t.Deadline,
		ProofType:          string(t.ProofType),
		SubmissionProofURL: t.SubmissionProofURL.String,
		SubmissionNotes:    t.SubmissionNotes.String,
		ManagerFeedback:    t.ManagerFeedback.String,
		CreatedAt:          t.CreatedAt,
		LastUpdated:        t.UpdatedAt,
	}
	if t.SubmittedAt.Valid {
		ts := t.SubmittedAt.Time
		resp.SubmittedAt = &ts
	}
	if t.ReviewedAt.Valid {
		ts := t.ReviewedAt.Time
		resp.ReviewedAt = &ts
	}
	return resp
}

func toTaskResponses(tasks []*models.Task) []*taskResponse {
	out := make([]*taskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskResponse(t))
	}
	return out
}

func toTaskEventResponses(events []*models.TaskEvent) []*taskEventResponse {
	out := make([]*taskEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, &taskEventResponse{
			ID:         e.ID,
			EventType:  e.EventType,
			Actor:      e.Actor,
			FromStatus: e.FromStatus,
			ToStatus:   e.ToStatus,
			CreatedAt:  e.CreatedAt,
		})
	}
	return out
}
