// internal/service/test_helpers_test.go
package service

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/gurkanbulca/streamline/internal/database"
	"github.com/gurkanbulca/streamline/internal/models"
	"github.com/gurkanbulca/streamline/internal/repository"
	"github.com/gurkanbulca/streamline/internal/storage/attachment"
	"github.com/gurkanbulca/streamline/pkg/auth"
)

var (
	managerM1 = &auth.Identity{UserID: "M1", Role: auth.RoleManager}
	managerM2 = &auth.Identity{UserID: "M2", Role: auth.RoleManager}
	memberU2  = &auth.Identity{UserID: "U2", Role: auth.RoleTeamMember}
	memberU3  = &auth.Identity{UserID: "U3", Role: auth.RoleTeamMember}
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingTaskStore wraps a TaskStore and counts writes. beforeTransition
// runs right before each conditional update.
type countingTaskStore struct {
	TaskStore
	creates          atomic.Int32
	transitions      atomic.Int32
	beforeTransition func()
	transitionErr    error
}

func (c *countingTaskStore) Create(ctx context.Context, t *models.Task) error {
	c.creates.Add(1)
	return c.TaskStore.Create(ctx, t)
}

func (c *countingTaskStore) Transition(ctx context.Context, id string, in repository.TransitionInput) (*models.Task, error) {
	c.transitions.Add(1)
	if c.beforeTransition != nil {
		c.beforeTransition()
	}
	if c.transitionErr != nil {
		return nil, c.transitionErr
	}
	return c.TaskStore.Transition(ctx, id, in)
}

// countingAttachmentStore wraps an AttachmentStore. afterPut runs once a
// file has been stored.
type countingAttachmentStore struct {
	AttachmentStore
	puts      atomic.Int32
	deletes   atomic.Int32
	afterPut  func()
	deleteErr error
}

func (c *countingAttachmentStore) Put(ctx context.Context, namespace, filename string, r io.Reader, limit int64) (*attachment.Object, error) {
	c.puts.Add(1)
	obj, err := c.AttachmentStore.Put(ctx, namespace, filename, r, limit)
	if err == nil && c.afterPut != nil {
		c.afterPut()
	}
	return obj, err
}

func (c *countingAttachmentStore) Delete(ctx context.Context, ref string) error {
	c.deletes.Add(1)
	if c.deleteErr != nil {
		return c.deleteErr
	}
	return c.AttachmentStore.Delete(ctx, ref)
}

type testEnv struct {
	svc         *TaskService
	db          *sqlx.DB
	repo        *repository.TaskRepository
	tasks       *countingTaskStore
	files       *countingAttachmentStore
	store       *attachment.Store
	proofs      *ProofReceiver
	validations *ValidationConfig
}

func setupTestService(t *testing.T) *testEnv {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_fk=1"
	db, err := database.Open(database.Config{Driver: "sqlite3", DSN: dsn}, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))

	store, err := attachment.New(filepath.Join(t.TempDir(), "uploads"), attachment.WithNamePrefix("proofImage"))
	require.NoError(t, err)

	repo := repository.NewTaskRepository(db, "sqlite3")
	tasks := &countingTaskStore{TaskStore: repo}
	files := &countingAttachmentStore{AttachmentStore: store}
	proofs := NewProofReceiver(files, DefaultMaxProofBytes, testLogger())
	events := NewEventLogger(repository.NewTaskEventRepository(db, "sqlite3"), testLogger())
	validations := DefaultValidationConfig()

	svc := NewTaskService(tasks, proofs, events, validations, testLogger()).
		WithClock(func() time.Time { return testNow })

	return &testEnv{
		svc:         svc,
		db:          db,
		repo:        repo,
		tasks:       tasks,
		files:       files,
		store:       store,
		proofs:      proofs,
		validations: validations,
	}
}

// createTask creates a pending task assigned by M1 to U2.
func (e *testEnv) createTask(t *testing.T, proofType models.ProofType) *models.Task {
	t.Helper()
	task, err := e.svc.Create(context.Background(), managerM1, CreateTaskInput{
		Title:     "Daily Report",
		Assignee:  "U2",
		Deadline:  testNow.Add(24 * time.Hour),
		ProofType: proofType,
	})
	require.NoError(t, err)
	return task
}

// submittedTask returns a task U2 has already submitted proof for.
func (e *testEnv) submittedTask(t *testing.T) *models.Task {
	t.Helper()
	task := e.createTask(t, models.ProofTypeImage)
	_, err := e.svc.SubmitProof(context.Background(), memberU2, task.ID, SubmitProofInput{
		Attachment: jpegAttachment(1024),
		Notes:      "done",
	})
	require.NoError(t, err)
	return task
}

// storedFiles counts files below the attachment root.
func (e *testEnv) storedFiles(t *testing.T) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(e.store.Dir(), func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	require.NoError(t, err)
	return n
}

func jpegAttachment(size int) *Attachment {
	data := bytes.Repeat([]byte{0xFF}, size)
	return &Attachment{
		Filename:    "proof.jpg",
		ContentType: "image/jpeg",
		Size:        int64(size),
		Content:     bytes.NewReader(data),
	}
}
