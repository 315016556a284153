// internal/service/proof_receiver.go
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"strings"

	"github.com/gurkanbulca/streamline/internal/storage/attachment"
)

// DefaultMaxProofBytes is the upload ceiling for proof attachments.
const DefaultMaxProofBytes int64 = 5 << 20

// AttachmentStore persists proof files.
type AttachmentStore interface {
	Put(ctx context.Context, namespace, filename string, r io.Reader, limit int64) (*attachment.Object, error)
	Delete(ctx context.Context, ref string) error
}

// Attachment is an uploaded proof file as received from a transport.
type Attachment struct {
	Filename    string
	ContentType string
	// Size is the declared length, or -1 when unknown.
	Size    int64
	Content io.Reader
}

// ProofReceiver checks and stores proof attachments and removes them again
// when the task update they belong to does not commit.
type ProofReceiver struct {
	store    AttachmentStore
	maxBytes int64
	logger   *slog.Logger
}

func NewProofReceiver(store AttachmentStore, maxBytes int64, logger *slog.Logger) *ProofReceiver {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxProofBytes
	}
	return &ProofReceiver{
		store:    store,
		maxBytes: maxBytes,
		logger:   logger.With(slog.String("component", "proof_receiver")),
	}
}

// MaxBytes returns the effective upload ceiling.
func (p *ProofReceiver) MaxBytes() int64 {
	return p.maxBytes
}

// Validate checks the declared MIME type and size.
func (p *ProofReceiver) Validate(a *Attachment) error {
	const op = "validate proof"

	mediaType, _, err := mime.ParseMediaType(a.ContentType)
	if err != nil || !strings.HasPrefix(strings.ToLower(mediaType), "image/") {
		return validationError(op, "Only image files are allowed")
	}
	if a.Size > p.maxBytes {
		return validationError(op, TooLargeMessage(p.maxBytes))
	}
	return nil
}

// Store writes the attachment under the submitter's namespace and returns
// its public reference.
func (p *ProofReceiver) Store(ctx context.Context, submitter string, a *Attachment) (string, error) {
	const op = "store proof"

	obj, err := p.store.Put(ctx, submitter, a.Filename, a.Content, p.maxBytes)
	if err != nil {
		if errors.Is(err, attachment.ErrTooLarge) {
			return "", validationError(op, TooLargeMessage(p.maxBytes))
		}
		if errors.Is(err, attachment.ErrInvalidNamespace) {
			return "", validationError(op, "Submitter identity cannot own attachments")
		}
		return "", storageError(op, err)
	}

	proofBytes.Observe(float64(obj.Size))
	p.logger.Debug("proof stored",
		slog.String("ref", obj.Ref),
		slog.Int64("size", obj.Size),
		slog.String("sha256", obj.Checksum),
	)
	return obj.Ref, nil
}

// Discard deletes a stored attachment as compensation for a failed commit.
// Failures are logged and counted, never returned.
func (p *ProofReceiver) Discard(ctx context.Context, ref string) {
	if err := p.store.Delete(ctx, ref); err != nil {
		compensationsTotal.WithLabelValues("failed").Inc()
		p.logger.Error("failed to discard orphaned proof",
			slog.String("ref", ref),
			slog.String("error", err.Error()),
		)
		return
	}
	compensationsTotal.WithLabelValues("deleted").Inc()
	p.logger.Info("discarded orphaned proof", slog.String("ref", ref))
}

// TooLargeMessage is the caller-facing rejection for a proof above maxBytes.
func TooLargeMessage(maxBytes int64) string {
	if maxBytes%(1<<20) == 0 {
		return fmt.Sprintf("File too large. Max %dMB allowed.", maxBytes>>20)
	}
	return fmt.Sprintf("File too large. Max %d bytes allowed.", maxBytes)
}
