package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// JWKSVerifier verifies RS256 tokens issued by an external identity provider
// against its published key set.
type JWKSVerifier struct {
	jwks   keyfunc.Keyfunc
	issuer string
	leeway time.Duration
	logger *slog.Logger
}

type jwksClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// NewJWKSVerifier creates a verifier that refreshes keys from jwksURL in the
// background. Startup does not fail if the provider is still unreachable.
func NewJWKSVerifier(
	jwksURL string,
	issuer string,
	refreshInterval time.Duration,
	leeway time.Duration,
	logger *slog.Logger,
) (*JWKSVerifier, error) {
	storage, err := jwkset.NewStorageFromHTTP(jwksURL, jwkset.HTTPClientStorageOptions{
		Client:                    &http.Client{Timeout: 10 * time.Second},
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           refreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Error("failed to refresh JWKS",
				slog.String("error", err.Error()),
				slog.String("url", jwksURL),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create JWKS storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{
		Storage: storage,
	})
	if err != nil {
		return nil, fmt.Errorf("create keyfunc: %w", err)
	}

	return NewJWKSVerifierWithKeyfunc(k, issuer, leeway, logger), nil
}

// NewJWKSVerifierWithKeyfunc creates a verifier around an existing keyfunc.
func NewJWKSVerifierWithKeyfunc(kf keyfunc.Keyfunc, issuer string, leeway time.Duration, logger *slog.Logger) *JWKSVerifier {
	return &JWKSVerifier{
		jwks:   kf,
		issuer: issuer,
		leeway: leeway,
		logger: logger.With(slog.String("component", "jwks_verifier")),
	}
}

// VerifyToken implements Verifier.
func (v *JWKSVerifier) VerifyToken(ctx context.Context, token string) (*Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &jwksClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, v.jwks.KeyfuncCtx(ctx), opts...)
	if err != nil {
		v.logger.Debug("token verification failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, ErrInvalidToken)
	}

	return newIdentity(claims.Subject, claims.Role)
}
