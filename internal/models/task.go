package models

import (
	"database/sql"
	"fmt"
	"regexp"
	"time"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

// Task status constants
const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusSubmitted TaskStatus = "submitted"
	TaskStatusApproved  TaskStatus = "approved"
	TaskStatusRejected  TaskStatus = "rejected"
)

// validTransitions maps the current status to the statuses it may move to.
// Approved and rejected are terminal.
var validTransitions = map[TaskStatus]map[TaskStatus]bool{
	TaskStatusPending:   {TaskStatusSubmitted: true},
	TaskStatusSubmitted: {TaskStatusApproved: true, TaskStatusRejected: true},
	TaskStatusApproved:  {},
	TaskStatusRejected:  {},
}

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	_, ok := validTransitions[s]
	return ok
}

// Terminal reports whether no transition leaves s.
func (s TaskStatus) Terminal() bool {
	return s.Valid() && len(validTransitions[s]) == 0
}

// CanTransition reports whether a task may move from one status to another.
func CanTransition(from, to TaskStatus) bool {
	next, ok := validTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// ParseTaskStatus converts a string into a TaskStatus.
func ParseTaskStatus(s string) (TaskStatus, error) {
	status := TaskStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("unknown task status: %q", s)
	}
	return status, nil
}

// ParseReviewDecision accepts only the two statuses a review may produce.
func ParseReviewDecision(s string) (TaskStatus, error) {
	switch TaskStatus(s) {
	case TaskStatusApproved, TaskStatusRejected:
		return TaskStatus(s), nil
	default:
		return "", fmt.Errorf("invalid review decision %q: must be %q or %q", s, TaskStatusApproved, TaskStatusRejected)
	}
}

// ProofType describes what a team member must hand in to complete a task.
// Only ProofTypeImage has defined handling; other values are stored as given
// and do not require an attachment.
type ProofType string

const (
	ProofTypeImage ProofType = "image"

	DefaultProofType = ProofTypeImage
)

var proofTypePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,31}$`)

// Valid reports whether p is a well-formed proof type identifier.
func (p ProofType) Valid() bool {
	return proofTypePattern.MatchString(string(p))
}

// RequiresAttachment reports whether a submission must carry a file.
func (p ProofType) RequiresAttachment() bool {
	return p == ProofTypeImage
}

type Task struct {
	ID                 string         `db:"id"`
	Title              string         `db:"title"`
	Description        string         `db:"description"`
	Assignee           string         `db:"assignee"`
	Assigner           string         `db:"assigner"`
	Deadline           time.Time      `db:"deadline"`
	ProofType          ProofType      `db:"proof_type"`
	Status             TaskStatus     `db:"status"`
	SubmissionProofURL sql.NullString `db:"submission_proof_url"`
	SubmissionNotes    sql.NullString `db:"submission_notes"`
	SubmittedAt        sql.NullTime   `db:"submitted_at"`
	ManagerFeedback    sql.NullString `db:"manager_feedback"`
	ReviewedAt         sql.NullTime   `db:"reviewed_at"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

// Submitted reports whether proof fields have been written.
func (t *Task) Submitted() bool {
	return t.SubmittedAt.Valid
}

// Reviewed reports whether review fields have been written.
func (t *Task) Reviewed() bool {
	return t.ReviewedAt.Valid
}

// Task event types
const (
	EventTypeTaskCreated    = "task_created"
	EventTypeProofSubmitted = "proof_submitted"
	EventTypeTaskApproved   = "task_approved"
	EventTypeTaskRejected   = "task_rejected"
)

// EventTypeForStatus returns the event recorded when a task enters status.
func EventTypeForStatus(status TaskStatus) string {
	switch status {
	case TaskStatusPending:
		return EventTypeTaskCreated
	case TaskStatusSubmitted:
		return EventTypeProofSubmitted
	case TaskStatusApproved:
		return EventTypeTaskApproved
	case TaskStatusRejected:
		return EventTypeTaskRejected
	default:
		return ""
	}
}

// TaskEvent is one entry of a task's audit trail.
type TaskEvent struct {
	ID         string    `db:"id"`
	TaskID     string    `db:"task_id"`
	Actor      string    `db:"actor"`
	EventType  string    `db:"event_type"`
	FromStatus string    `db:"from_status"`
	ToStatus   string    `db:"to_status"`
	CreatedAt  time.Time `db:"created_at"`
}
