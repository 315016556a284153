package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurkanbulca/streamline/internal/database"
	"github.com/gurkanbulca/streamline/internal/repository"
	"github.com/gurkanbulca/streamline/internal/service"
	"github.com/gurkanbulca/streamline/internal/storage/attachment"
	"github.com/gurkanbulca/streamline/pkg/auth"
)

type testAPI struct {
	handler http.Handler
	tokens  *auth.TokenManager
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestAPI(t *testing.T, maxProofBytes int64) *testAPI {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_fk=1"
	db, err := database.Open(database.Config{Driver: "sqlite3", DSN: dsn}, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))

	store, err := attachment.New(filepath.Join(t.TempDir(), "uploads"), attachment.WithNamePrefix("proofImage"))
	require.NoError(t, err)

	svc := service.NewTaskService(
		repository.NewTaskRepository(db, "sqlite3"),
		service.NewProofReceiver(store, maxProofBytes, testLogger()),
		service.NewEventLogger(repository.NewTaskEventRepository(db, "sqlite3"), testLogger()),
		service.DefaultValidationConfig(),
		testLogger(),
	)

	tokens := auth.NewTokenManager("http-test-secret", time.Hour, "streamline")
	router := NewRouter(RouterConfig{
		Tasks:        NewHandler(svc, maxProofBytes, testLogger()),
		Users:        NewUserHandler(service.NewUserService(repository.NewUserRepository(db, "sqlite3"), testLogger()), testLogger()),
		Health:       NewHealthHandler(db),
		Verifier:     tokens,
		Logger:       testLogger(),
		UploadDir:    store.Dir(),
		UploadPrefix: store.PublicPrefix(),
	})

	return &testAPI{handler: router, tokens: tokens}
}

func (a *testAPI) token(t *testing.T, userID string, role auth.Role) string {
	t.Helper()
	token, _, err := a.tokens.GenerateAccessToken(userID, role)
	require.NoError(t, err)
	return token
}

func (a *testAPI) do(t *testing.T, req *http.Request, userID string, role auth.Role) *httptest.ResponseRecorder {
	t.Helper()
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+a.token(t, userID, role))
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// proofRequest builds a multipart submission. An empty contentType omits the
// file part.
func proofRequest(t *testing.T, taskID, contentType string, data []byte, notes string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if contentType != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="proofImage"; filename="proof.jpg"`)
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.WriteField("submissionNotes", notes))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/tasks/"+taskID+"/submit-proof", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (a *testAPI) createTask(t *testing.T, proofType string) *taskResponse {
	t.Helper()
	rec := a.do(t, jsonRequest(t, http.MethodPost, "/api/tasks", map[string]string{
		"title":      "Daily Report",
		"assignedTo": "U2",
		"deadline":   "2030-01-15T17:00",
		"proofType":  proofType,
	}), "M1", auth.RoleManager)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[*taskResponse](t, rec)
}

func TestTaskAPI_Lifecycle(t *testing.T) {
	api := setupTestAPI(t, service.DefaultMaxProofBytes)

	created := api.createTask(t, "")
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, "image", created.ProofType)
	assert.Equal(t, "M1", created.AssignedBy)
	assert.Equal(t, time.Date(2030, 1, 15, 17, 0, 0, 0, time.UTC), created.Deadline)

	rec := api.do(t, httptest.NewRequest(http.MethodGet, "/api/tasks/assigned-to-me", nil), "U2", auth.RoleTeamMember)
	require.Equal(t, http.StatusOK, rec.Code)
	mine := decode[[]*taskResponse](t, rec)
	require.Len(t, mine, 1)
	assert.Equal(t, created.ID, mine[0].ID)

	image := bytes.Repeat([]byte{0xAB}, 2048)
	rec = api.do(t, proofRequest(t, created.ID, "image/jpeg", image, "all done"), "U2", auth.RoleTeamMember)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	submitted := decode[submitProofResponse](t, rec)
	assert.Equal(t, "Proof submitted successfully!", submitted.Message)
	assert.True(t, strings.HasPrefix(submitted.ImageURL, "/uploads/U2/proofImage-"), submitted.ImageURL)
	assert.True(t, strings.HasSuffix(submitted.ImageURL, ".jpg"), submitted.ImageURL)
	assert.Equal(t, "submitted", submitted.Task.Status)
	assert.Equal(t, "all done", submitted.Task.SubmissionNotes)
	assert.NotNil(t, submitted.Task.SubmittedAt)

	rec = api.do(t, httptest.NewRequest(http.MethodGet, submitted.ImageURL, nil), "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, image, rec.Body.Bytes())

	rec = api.do(t, jsonRequest(t, http.MethodPut, "/api/tasks/"+created.ID+"/review", map[string]string{
		"status":          "approved",
		"managerFeedback": "Great job",
	}), "M1", auth.RoleManager)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	reviewed := decode[reviewTaskResponse](t, rec)
	assert.Equal(t, "Task approved successfully.", reviewed.Message)
	assert.Equal(t, "approved", reviewed.Task.Status)
	assert.Equal(t, "Great job", reviewed.Task.ManagerFeedback)
	assert.NotNil(t, reviewed.Task.ReviewedAt)

	rec = api.do(t, httptest.NewRequest(http.MethodGet, "/api/tasks/assigned-by-me", nil), "M1", auth.RoleManager)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]*taskResponse](t, rec), 1)

	rec = api.do(t, httptest.NewRequest(http.MethodGet, "/api/tasks/"+created.ID+"/events", nil), "U2", auth.RoleTeamMember)
	require.Equal(t, http.StatusOK, rec.Code)
	events := decode[[]*taskEventResponse](t, rec)
	require.Len(t, events, 3)
	assert.Equal(t, "task_created", events[0].EventType)
	assert.Equal(t, "proof_submitted", events[1].EventType)
	assert.Equal(t, "task_approved", events[2].EventType)
}

func TestTaskAPI_Errors(t *testing.T) {
	api := setupTestAPI(t, service.DefaultMaxProofBytes)
	task := api.createTask(t, "image")

	tests := []struct {
		name       string
		req        func() *http.Request
		userID     string
		role       auth.Role
		wantStatus int
		wantCode   string
	}{
		{
			name:       "no token",
			req:        func() *http.Request { return httptest.NewRequest(http.MethodGet, "/api/tasks/assigned-to-me", nil) },
			wantStatus: http.StatusUnauthorized,
			wantCode:   "UNAUTHORIZED",
		},
		{
			name: "team member creates",
			req: func() *http.Request {
				return jsonRequest(t, http.MethodPost, "/api/tasks", map[string]string{"title": "x", "assignedTo": "U3", "deadline": "2030-01-01"})
			},
			userID:     "U2",
			role:       auth.RoleTeamMember,
			wantStatus: http.StatusForbidden,
			wantCode:   "FORBIDDEN",
		},
		{
			name: "malformed json",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader("{"))
			},
			userID:     "M1",
			role:       auth.RoleManager,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name: "bad deadline",
			req: func() *http.Request {
				return jsonRequest(t, http.MethodPost, "/api/tasks", map[string]string{"title": "x", "assignedTo": "U2", "deadline": "tomorrow"})
			},
			userID:     "M1",
			role:       auth.RoleManager,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name: "missing title",
			req: func() *http.Request {
				return jsonRequest(t, http.MethodPost, "/api/tasks", map[string]string{"assignedTo": "U2", "deadline": "2030-01-01"})
			},
			userID:     "M1",
			role:       auth.RoleManager,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "unknown task",
			req:        func() *http.Request { return httptest.NewRequest(http.MethodGet, "/api/tasks/"+uuid.NewString(), nil) },
			userID:     "M1",
			role:       auth.RoleManager,
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name:       "stranger reads task",
			req:        func() *http.Request { return httptest.NewRequest(http.MethodGet, "/api/tasks/"+task.ID, nil) },
			userID:     "U3",
			role:       auth.RoleTeamMember,
			wantStatus: http.StatusForbidden,
			wantCode:   "FORBIDDEN",
		},
		{
			name:       "non-assignee submits",
			req:        func() *http.Request { return proofRequest(t, task.ID, "image/jpeg", []byte{1, 2, 3}, "") },
			userID:     "U3",
			role:       auth.RoleTeamMember,
			wantStatus: http.StatusForbidden,
			wantCode:   "FORBIDDEN",
		},
		{
			name:       "missing image",
			req:        func() *http.Request { return proofRequest(t, task.ID, "", nil, "no file") },
			userID:     "U2",
			role:       auth.RoleTeamMember,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "not an image",
			req:        func() *http.Request { return proofRequest(t, task.ID, "application/pdf", []byte("%PDF"), "") },
			userID:     "U2",
			role:       auth.RoleTeamMember,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name: "review before submission",
			req: func() *http.Request {
				return jsonRequest(t, http.MethodPut, "/api/tasks/"+task.ID+"/review", map[string]string{"status": "approved"})
			},
			userID:     "M1",
			role:       auth.RoleManager,
			wantStatus: http.StatusConflict,
			wantCode:   "CONFLICT",
		},
		{
			name: "invalid decision",
			req: func() *http.Request {
				return jsonRequest(t, http.MethodPut, "/api/tasks/"+task.ID+"/review", map[string]string{"status": "maybe"})
			},
			userID:     "M1",
			role:       auth.RoleManager,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name: "other manager reviews",
			req: func() *http.Request {
				return jsonRequest(t, http.MethodPut, "/api/tasks/"+task.ID+"/review", map[string]string{"status": "approved"})
			},
			userID:     "M2",
			role:       auth.RoleManager,
			wantStatus: http.StatusForbidden,
			wantCode:   "FORBIDDEN",
		},
		{
			name:       "unknown route",
			req:        func() *http.Request { return httptest.NewRequest(http.MethodGet, "/api/nothing", nil) },
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(t, tt.req(), tt.userID, tt.role)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantCode, decode[errorEnvelope](t, rec).Error.Code)
		})
	}
}

func TestTaskAPI_SubmitTwiceConflicts(t *testing.T) {
	api := setupTestAPI(t, service.DefaultMaxProofBytes)
	task := api.createTask(t, "image")

	rec := api.do(t, proofRequest(t, task.ID, "image/png", []byte{1}, ""), "U2", auth.RoleTeamMember)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(t, proofRequest(t, task.ID, "image/png", []byte{2}, ""), "U2", auth.RoleTeamMember)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestTaskAPI_SubmitWithoutAttachment(t *testing.T) {
	api := setupTestAPI(t, service.DefaultMaxProofBytes)
	task := api.createTask(t, "checklist")

	req := httptest.NewRequest(http.MethodPost, "/api/tasks/"+task.ID+"/submit-proof", nil)
	rec := api.do(t, req, "U2", auth.RoleTeamMember)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[submitProofResponse](t, rec)
	assert.Empty(t, resp.ImageURL)
	assert.Equal(t, "submitted", resp.Task.Status)
}

func TestTaskAPI_ProofTooLarge(t *testing.T) {
	const limit = 1024

	tests := []struct {
		name string
		size int
	}{
		{"declared size over limit", limit + 1},
		{"body over transport ceiling", limit + 2<<20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := setupTestAPI(t, limit)
			task := api.createTask(t, "image")

			rec := api.do(t, proofRequest(t, task.ID, "image/jpeg", make([]byte, tt.size), ""), "U2", auth.RoleTeamMember)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			env := decode[errorEnvelope](t, rec)
			assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
			assert.Equal(t, fmt.Sprintf("File too large. Max %d bytes allowed.", limit), env.Error.Message)
		})
	}
}

func TestRouter_PublicEndpoints(t *testing.T) {
	api := setupTestAPI(t, service.DefaultMaxProofBytes)

	tests := []struct {
		path       string
		wantStatus int
	}{
		{"/health/live", http.StatusOK},
		{"/health/ready", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/uploads/", http.StatusNotFound},
		{"/uploads/U2/missing.jpg", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := api.do(t, httptest.NewRequest(http.MethodGet, tt.path, nil), "", "")
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
