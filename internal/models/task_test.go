package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	all := []TaskStatus{TaskStatusPending, TaskStatusSubmitted, TaskStatusApproved, TaskStatusRejected}

	allowed := map[[2]TaskStatus]bool{
		{TaskStatusPending, TaskStatusSubmitted}:  true,
		{TaskStatusSubmitted, TaskStatusApproved}: true,
		{TaskStatusSubmitted, TaskStatusRejected}: true,
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]TaskStatus{from, to}]
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestCanTransition_NeverBackToPending(t *testing.T) {
	for _, from := range []TaskStatus{TaskStatusSubmitted, TaskStatusApproved, TaskStatusRejected} {
		assert.False(t, CanTransition(from, TaskStatusPending), "%s -> pending", from)
	}
	assert.False(t, CanTransition(TaskStatusPending, TaskStatusApproved))
	assert.False(t, CanTransition(TaskStatusPending, TaskStatusRejected))
}

func TestCanTransition_UnknownStatus(t *testing.T) {
	assert.False(t, CanTransition("in_progress", TaskStatusSubmitted))
	assert.False(t, CanTransition(TaskStatusPending, "done"))
}

func TestTaskStatus_Terminal(t *testing.T) {
	assert.False(t, TaskStatusPending.Terminal())
	assert.False(t, TaskStatusSubmitted.Terminal())
	assert.True(t, TaskStatusApproved.Terminal())
	assert.True(t, TaskStatusRejected.Terminal())
	assert.False(t, TaskStatus("bogus").Terminal())
}

func TestParseTaskStatus(t *testing.T) {
	s, err := ParseTaskStatus("submitted")
	require.NoError(t, err)
	assert.Equal(t, TaskStatusSubmitted, s)

	_, err = ParseTaskStatus("completed")
	assert.Error(t, err)
}

func TestParseReviewDecision(t *testing.T) {
	tests := []struct {
		in      string
		want    TaskStatus
		wantErr bool
	}{
		{"approved", TaskStatusApproved, false},
		{"rejected", TaskStatusRejected, false},
		{"pending", "", true},
		{"submitted", "", true},
		{"APPROVED", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseReviewDecision(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProofType(t *testing.T) {
	assert.True(t, ProofTypeImage.Valid())
	assert.True(t, ProofTypeImage.RequiresAttachment())

	assert.True(t, ProofType("text_note").Valid())
	assert.False(t, ProofType("text_note").RequiresAttachment())

	assert.False(t, ProofType("").Valid())
	assert.False(t, ProofType("Image").Valid())
	assert.False(t, ProofType("has space").Valid())
	assert.False(t, ProofType("1image").Valid())
}

func TestEventTypeForStatus(t *testing.T) {
	assert.Equal(t, EventTypeTaskCreated, EventTypeForStatus(TaskStatusPending))
	assert.Equal(t, EventTypeProofSubmitted, EventTypeForStatus(TaskStatusSubmitted))
	assert.Equal(t, EventTypeTaskApproved, EventTypeForStatus(TaskStatusApproved))
	assert.Equal(t, EventTypeTaskRejected, EventTypeForStatus(TaskStatusRejected))
	assert.Empty(t, EventTypeForStatus("unknown"))
}
