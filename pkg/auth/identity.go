package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnauthenticated is returned for missing, malformed, expired or otherwise
// unusable tokens.
var ErrUnauthenticated = errors.New("unauthenticated")

// Role of an authenticated caller
type Role string

const (
	RoleManager    Role = "manager"
	RoleTeamMember Role = "team_member"
)

func (r Role) Valid() bool {
	return r == RoleManager || r == RoleTeamMember
}

// Identity is the verified caller of a request.
type Identity struct {
	UserID string
	Role   Role
}

// Verifier turns a bearer token into an Identity.
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (*Identity, error)
}

func newIdentity(userID, role string) (*Identity, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: token has no subject", ErrUnauthenticated)
	}
	r := Role(role)
	if !r.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrUnauthenticated, role)
	}
	return &Identity{UserID: userID, Role: r}, nil
}

type identityKey struct{}

// ContextWithIdentity stores the caller identity in ctx.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the caller stored by ContextWithIdentity.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}

// ExtractTokenFromHeader extracts the token from the Authorization header
func ExtractTokenFromHeader(authHeader string) (string, error) {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", fmt.Errorf("%w: invalid authorization header format", ErrUnauthenticated)
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", fmt.Errorf("%w: empty bearer token", ErrUnauthenticated)
	}
	return token, nil
}
