package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gurkanbulca/streamline/internal/httpapi/apierrors"
	"github.com/gurkanbulca/streamline/internal/models"
	"github.com/gurkanbulca/streamline/internal/service"
	"github.com/gurkanbulca/streamline/pkg/auth"
)

// UserService is the subset of service.UserService the handlers call.
type UserService interface {
	Profile(ctx context.Context, caller *auth.Identity) (*models.User, error)
	UpdateProfile(ctx context.Context, caller *auth.Identity, in service.UpdateProfileInput) (*models.User, error)
	ListTeamMembers(ctx context.Context, caller *auth.Identity) ([]*models.User, error)
}

// UserHandler serves the user directory.
type UserHandler struct {
	users  UserService
	logger *slog.Logger
}

func NewUserHandler(users UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		logger: logger.With(slog.String("component", "http_user_handler")),
	}
}

type updateProfileRequest struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

type userResponse struct {
	UID         string    `json:"uid"`
	Name        string    `json:"name"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
	LastLoginAt time.Time `json:"lastLogin"`
}

type updateProfileResponse struct {
	Message string        `json:"message"`
	User    *userResponse `json:"user"`
}

func toUserResponse(u *models.User) *userResponse {
	return &userResponse{
		UID:         u.ID,
		Name:        u.Name,
		Role:        u.Role,
		CreatedAt:   u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}

// Me handles GET /api/users/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Profile(r.Context(), caller(r))
	if err != nil {
		apierrors.FromService(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// UpdateProfile handles POST /api/users/profile.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	u, err := h.users.UpdateProfile(r.Context(), caller(r), service.UpdateProfileInput{
		Name: req.Name,
		Role: req.Role,
	})
	if err != nil {
		apierrors.FromService(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updateProfileResponse{
		Message: "User profile created/updated successfully.",
		User:    toUserResponse(u),
	})
}

// ListTeamMembers handles GET /api/users/team-members.
func (h *UserHandler) ListTeamMembers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListTeamMembers(r.Context(), caller(r))
	if err != nil {
		apierrors.FromService(w, err)
		return
	}
	out := make([]*userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	writeJSON(w, http.StatusOK, out)
}
