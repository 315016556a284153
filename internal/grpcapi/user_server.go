package grpcapi

import (
	"context"
	"log/slog"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/gurkanbulca/streamline/internal/models"
	"github.com/gurkanbulca/streamline/internal/service"
	"github.com/gurkanbulca/streamline/pkg/auth"
)

// UserService is the part of service.UserService exposed over gRPC.
type UserService interface {
	Profile(ctx context.Context, caller *auth.Identity) (*models.User, error)
	UpdateProfile(ctx context.Context, caller *auth.Identity, in service.UpdateProfileInput) (*models.User, error)
	ListTeamMembers(ctx context.Context, caller *auth.Identity) ([]*models.User, error)
}

// UserServer implements UserServiceServer.
type UserServer struct {
	users  UserService
	logger *slog.Logger
}

func NewUserServer(users UserService, logger *slog.Logger) *UserServer {
	return &UserServer{
		users:  users,
		logger: logger.With(slog.String("component", "grpc_user_server")),
	}
}

var _ UserServiceServer = (*UserServer)(nil)

func (s *UserServer) GetProfile(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	u, err := s.users.Profile(ctx, callerFrom(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]interface{}{"user": userValue(u)})
}

func (s *UserServer) UpdateProfile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	u, err := s.users.UpdateProfile(ctx, callerFrom(ctx), service.UpdateProfileInput{
		Name: stringField(req, "name"),
		Role: stringField(req, "role"),
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]interface{}{
		"message": "User profile created/updated successfully.",
		"user":    userValue(u),
	})
}

func (s *UserServer) ListTeamMembers(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	users, err := s.users.ListTeamMembers(ctx, callerFrom(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	out := make([]interface{}, 0, len(users))
	for _, u := range users {
		out = append(out, userValue(u))
	}
	return newStruct(map[string]interface{}{"users": out})
}

func userValue(u *models.User) map[string]interface{} {
	return map[string]interface{}{
		"uid":       u.ID,
		"name":      u.Name,
		"role":      u.Role,
		"createdAt": formatTime(u.CreatedAt),
		"lastLogin": formatTime(u.LastLoginAt),
	}
}
