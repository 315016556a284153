package grpcapi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/gurkanbulca/streamline/pkg/auth"
)

func TestUserServer_Directory(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	manager := env.client(t, "M1", auth.RoleManager)
	member := env.client(t, "U2", auth.RoleTeamMember)

	_, err := member.GetProfile(ctx)
	assert.Equal(t, codes.NotFound, status.Code(err))

	updated, err := member.UpdateProfile(ctx, "Ayse", "")
	require.NoError(t, err)
	assert.Equal(t, "User profile created/updated successfully.", field(updated, "message"))
	assert.Equal(t, "team_member", field(updated, "user", "role"))

	profile, err := member.GetProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ayse", field(profile, "user", "name"))

	_, err = manager.UpdateProfile(ctx, "Burak", "manager")
	require.NoError(t, err)

	members, err := manager.ListTeamMembers(ctx)
	require.NoError(t, err)
	list, _ := field(members, "users").([]interface{})
	require.Len(t, list, 1)
	assert.Equal(t, "U2", list[0].(map[string]interface{})["uid"])
}

func TestUserServer_ErrorCodes(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	member := env.client(t, "U2", auth.RoleTeamMember)

	tests := []struct {
		name     string
		call     func() error
		wantCode codes.Code
	}{
		{
			name: "team member lists team",
			call: func() error {
				_, err := member.ListTeamMembers(ctx)
				return err
			},
			wantCode: codes.PermissionDenied,
		},
		{
			name: "blank name",
			call: func() error {
				_, err := member.UpdateProfile(ctx, " ", "")
				return err
			},
			wantCode: codes.InvalidArgument,
		},
		{
			name: "claims manager role",
			call: func() error {
				_, err := member.UpdateProfile(ctx, "Ayse", "manager")
				return err
			},
			wantCode: codes.PermissionDenied,
		},
		{
			name: "no token",
			call: func() error {
				_, err := NewClient(env.conn, "").GetProfile(ctx)
				return err
			},
			wantCode: codes.Unauthenticated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, status.Code(err), err.Error())
		})
	}
}

func TestUserServer_Health(t *testing.T) {
	env := setupTestServer(t)

	resp, err := grpc_health_v1.NewHealthClient(env.conn).Check(context.Background(), &grpc_health_v1.HealthCheckRequest{
		Service: UserServiceName,
	})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.GetStatus())
}
