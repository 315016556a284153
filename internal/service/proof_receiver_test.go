package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTooLargeMessage(t *testing.T) {
	tests := []struct {
		maxBytes int64
		want     string
	}{
		{DefaultMaxProofBytes, "File too large. Max 5MB allowed."},
		{1 << 20, "File too large. Max 1MB allowed."},
		{1024, "File too large. Max 1024 bytes allowed."},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TooLargeMessage(tt.maxBytes))
	}
}

func TestProofReceiver_MaxBytesDefaults(t *testing.T) {
	assert.Equal(t, DefaultMaxProofBytes, NewProofReceiver(nil, 0, testLogger()).MaxBytes())
	assert.Equal(t, int64(2048), NewProofReceiver(nil, 2048, testLogger()).MaxBytes())
}
