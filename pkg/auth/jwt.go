// pkg/auth/jwt.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrInvalidClaims = errors.New("invalid token claims")
)

const tokenTypeAccess = "access"

// TokenManager issues and verifies HS256 access tokens signed with a shared
// secret.
type TokenManager struct {
	accessSecret   []byte
	accessDuration time.Duration
	issuer         string
	leeway         time.Duration
}

// NewTokenManager creates a new token manager
func NewTokenManager(accessSecret string, accessDuration time.Duration, issuer string) *TokenManager {
	return &TokenManager{
		accessSecret:   []byte(accessSecret),
		accessDuration: accessDuration,
		issuer:         issuer,
	}
}

// WithLeeway allows for clock skew when checking exp and nbf.
func (tm *TokenManager) WithLeeway(d time.Duration) *TokenManager {
	tm.leeway = d
	return tm
}

// CustomClaims represents the custom JWT claims
type CustomClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

// GenerateAccessToken signs a token for the given user and role and returns
// it together with its lifetime in seconds.
func (tm *TokenManager) GenerateAccessToken(userID string, role Role) (string, int64, error) {
	now := time.Now()

	claims := CustomClaims{
		UserID: userID,
		Role:   string(role),
		Type:   tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    tm.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.accessDuration)),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.accessSecret)
	if err != nil {
		return "", 0, fmt.Errorf("sign token: %w", err)
	}

	return tokenString, int64(tm.accessDuration.Seconds()), nil
}

// ValidateAccessToken validates an access token and returns the claims
func (tm *TokenManager) ValidateAccessToken(tokenString string) (*CustomClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(tm.leeway),
	}
	if tm.issuer != "" {
		opts = append(opts, jwt.WithIssuer(tm.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return tm.accessSecret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok {
		return nil, ErrInvalidClaims
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	// Verify token type
	if claims.Type != tokenTypeAccess {
		return nil, fmt.Errorf("invalid token type: expected %s, got %s", tokenTypeAccess, claims.Type)
	}

	return claims, nil
}

// VerifyToken implements Verifier.
func (tm *TokenManager) VerifyToken(_ context.Context, token string) (*Identity, error) {
	claims, err := tm.ValidateAccessToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	return newIdentity(userID, claims.Role)
}
