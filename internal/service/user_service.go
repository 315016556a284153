package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gurkanbulca/streamline/internal/models"
	"github.com/gurkanbulca/streamline/internal/repository"
	"github.com/gurkanbulca/streamline/pkg/auth"
)

const maxProfileNameLength = 100

// UserStore is the persistence the user directory needs.
type UserStore interface {
	Upsert(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	ListByRole(ctx context.Context, role string) ([]*models.User, error)
}

// UpdateProfileInput is the body of a profile update. Role is optional and,
// when given, must match the caller's verified role.
type UpdateProfileInput struct {
	Name string
	Role string
}

// UserService keeps a directory of display names for verified identities so
// managers can pick assignees.
type UserService struct {
	users  UserStore
	now    func() time.Time
	logger *slog.Logger
}

func NewUserService(users UserStore, logger *slog.Logger) *UserService {
	return &UserService{
		users:  users,
		now:    time.Now,
		logger: logger.With(slog.String("component", "user_service")),
	}
}

// WithClock overrides the time source.
func (s *UserService) WithClock(now func() time.Time) *UserService {
	s.now = now
	return s
}

// Profile returns the caller's directory entry.
func (s *UserService) Profile(ctx context.Context, caller *auth.Identity) (*models.User, error) {
	const op = "get profile"

	if err := requireRole(op, caller); err != nil {
		return nil, recordFailure(s.logger, op, err)
	}
	u, err := s.users.GetByID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, recordFailure(s.logger, op, notFoundError(op, "User profile not found."))
		}
		return nil, recordFailure(s.logger, op, storageError(op, err))
	}
	return u, nil
}

// UpdateProfile creates or updates the caller's directory entry and records
// the login time.
func (s *UserService) UpdateProfile(ctx context.Context, caller *auth.Identity, in UpdateProfileInput) (*models.User, error) {
	const op = "update profile"

	if err := requireRole(op, caller); err != nil {
		return nil, recordFailure(s.logger, op, err)
	}

	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		return nil, recordFailure(s.logger, op, validationError(op, "Name is required."))
	case utf8.RuneCountInString(name) > maxProfileNameLength:
		return nil, recordFailure(s.logger, op, validationError(op, fmt.Sprintf("Name too long (max %d characters).", maxProfileNameLength)))
	}
	if in.Role != "" {
		role := auth.Role(in.Role)
		if !role.Valid() {
			return nil, recordFailure(s.logger, op, validationError(op, "Invalid role provided."))
		}
		if role != caller.Role {
			return nil, recordFailure(s.logger, op, authorizationError(op, "Role is assigned by the identity provider."))
		}
	}

	now := s.now().UTC()
	err := s.users.Upsert(ctx, &models.User{
		ID:          caller.UserID,
		Name:        name,
		Role:        string(caller.Role),
		CreatedAt:   now,
		LastLoginAt: now,
	})
	if err != nil {
		return nil, recordFailure(s.logger, op, storageError(op, err))
	}

	u, err := s.users.GetByID(ctx, caller.UserID)
	if err != nil {
		return nil, recordFailure(s.logger, op, storageError(op, err))
	}
	s.logger.Info("profile updated",
		slog.String("user_id", u.ID),
		slog.String("role", u.Role),
	)
	return u, nil
}

// ListTeamMembers returns every team member in the directory, by name.
func (s *UserService) ListTeamMembers(ctx context.Context, caller *auth.Identity) ([]*models.User, error) {
	const op = "list team members"

	if err := requireRole(op, caller, auth.RoleManager); err != nil {
		return nil, recordFailure(s.logger, op, err)
	}
	users, err := s.users.ListByRole(ctx, string(auth.RoleTeamMember))
	if err != nil {
		return nil, recordFailure(s.logger, op, storageError(op, err))
	}
	return users, nil
}
