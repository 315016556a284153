package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_GenerateAndVerify(t *testing.T) {
	tm := NewTokenManager("test-secret", 15*time.Minute, "streamline")

	token, expiresIn, err := tm.GenerateAccessToken("user-1", RoleManager)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, int64(900), expiresIn)

	claims, err := tm.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "manager", claims.Role)
	assert.Equal(t, "streamline", claims.Issuer)

	id, err := tm.VerifyToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, &Identity{UserID: "user-1", Role: RoleManager}, id)
}

func TestTokenManager_VerifyToken_Rejects(t *testing.T) {
	tm := NewTokenManager("test-secret", 15*time.Minute, "streamline")

	expired := NewTokenManager("test-secret", -time.Minute, "streamline")
	expiredToken, _, err := expired.GenerateAccessToken("user-1", RoleManager)
	require.NoError(t, err)

	otherSecret := NewTokenManager("other-secret", time.Minute, "streamline")
	forgedToken, _, err := otherSecret.GenerateAccessToken("user-1", RoleManager)
	require.NoError(t, err)

	otherIssuer := NewTokenManager("test-secret", time.Minute, "elsewhere")
	foreignToken, _, err := otherIssuer.GenerateAccessToken("user-1", RoleManager)
	require.NoError(t, err)

	unknownRole, _, err := tm.GenerateAccessToken("user-1", Role("admin"))
	require.NoError(t, err)

	noSubject, _, err := tm.GenerateAccessToken("", RoleTeamMember)
	require.NoError(t, err)

	wrongType := jwt.NewWithClaims(jwt.SigningMethodHS256, CustomClaims{
		UserID: "user-1",
		Role:   "manager",
		Type:   "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "streamline",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	wrongTypeToken, err := wrongType.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-jwt"},
		{"empty", ""},
		{"expired", expiredToken},
		{"wrong secret", forgedToken},
		{"wrong issuer", foreignToken},
		{"unknown role", unknownRole},
		{"no subject", noSubject},
		{"refresh token", wrongTypeToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tm.VerifyToken(context.Background(), tt.token)
			assert.ErrorIs(t, err, ErrUnauthenticated)
		})
	}
}

func TestTokenManager_ValidateAccessToken_Expired(t *testing.T) {
	tm := NewTokenManager("test-secret", -time.Minute, "")
	token, _, err := tm.GenerateAccessToken("user-1", RoleTeamMember)
	require.NoError(t, err)

	_, err = tm.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)

	// Leeway covers small clock skew.
	_, err = NewTokenManager("test-secret", time.Hour, "").WithLeeway(2 * time.Minute).ValidateAccessToken(token)
	assert.NoError(t, err)
}

func TestExtractTokenFromHeader(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc.def", "abc.def", false},
		{"bearer abc", "abc", false},
		{"Bearer ", "", true},
		{"Basic abc", "", true},
		{"abc", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, err := ExtractTokenFromHeader(tt.header)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnauthenticated)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIdentityContext(t *testing.T) {
	_, ok := IdentityFromContext(context.Background())
	assert.False(t, ok)

	ctx := ContextWithIdentity(context.Background(), &Identity{UserID: "u", Role: RoleTeamMember})
	id, ok := IdentityFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "u", id.UserID)
	assert.Equal(t, RoleTeamMember, id.Role)
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleManager.Valid())
	assert.True(t, RoleTeamMember.Valid())
	assert.False(t, Role("admin").Valid())
	assert.False(t, Role("").Valid())
}
