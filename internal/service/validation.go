// internal/service/validation.go
package service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gurkanbulca/streamline/internal/models"
)

// ValidationConfig holds validation configuration
type ValidationConfig struct {
	MaxTitleLength       int
	MaxDescriptionLength int
	MaxNotesLength       int
	MaxFeedbackLength    int
	MaxUserIDLength      int
}

// DefaultValidationConfig returns default validation configuration
func DefaultValidationConfig() *ValidationConfig {
	return &ValidationConfig{
		MaxTitleLength:       200,
		MaxDescriptionLength: 5000,
		MaxNotesLength:       2000,
		MaxFeedbackLength:    2000,
		MaxUserIDLength:      128,
	}
}

func (v *ValidationConfig) validateCreate(in *CreateTaskInput) error {
	var errs []string

	// Title validation
	if strings.TrimSpace(in.Title) == "" {
		errs = append(errs, "title is required")
	} else if utf8.RuneCountInString(in.Title) > v.MaxTitleLength {
		errs = append(errs, fmt.Sprintf("title too long (max %d characters)", v.MaxTitleLength))
	}

	if utf8.RuneCountInString(in.Description) > v.MaxDescriptionLength {
		errs = append(errs, fmt.Sprintf("description too long (max %d characters)", v.MaxDescriptionLength))
	}

	if strings.TrimSpace(in.Assignee) == "" {
		errs = append(errs, "assignee is required")
	} else if len(in.Assignee) > v.MaxUserIDLength {
		errs = append(errs, fmt.Sprintf("assignee too long (max %d characters)", v.MaxUserIDLength))
	}

	if in.Deadline.IsZero() {
		errs = append(errs, "deadline is required")
	}

	if in.ProofType != "" && !in.ProofType.Valid() {
		errs = append(errs, fmt.Sprintf("invalid proof type %q", in.ProofType))
	}

	if len(errs) > 0 {
		return validationError("create task", strings.Join(errs, "; "))
	}
	return nil
}

func (v *ValidationConfig) validateNotes(op, notes string) error {
	if utf8.RuneCountInString(notes) > v.MaxNotesLength {
		return validationError(op, fmt.Sprintf("submission notes too long (max %d characters)", v.MaxNotesLength))
	}
	return nil
}

func (v *ValidationConfig) validateReview(in *ReviewInput) (models.TaskStatus, error) {
	const op = "review task"

	decision, err := models.ParseReviewDecision(in.Decision)
	if err != nil {
		return "", validationError(op, fmt.Sprintf("Status must be %q or %q", models.TaskStatusApproved, models.TaskStatusRejected))
	}
	if utf8.RuneCountInString(in.Feedback) > v.MaxFeedbackLength {
		return "", validationError(op, fmt.Sprintf("manager feedback too long (max %d characters)", v.MaxFeedbackLength))
	}
	return decision, nil
}
