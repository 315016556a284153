// internal/middleware/auth.go
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/gurkanbulca/streamline/internal/httpapi/apierrors"
	"github.com/gurkanbulca/streamline/pkg/auth"
)

// AuthInterceptor provides authentication middleware for gRPC
type AuthInterceptor struct {
	verifier      auth.Verifier
	publicMethods map[string]bool
	logger        *slog.Logger
}

// NewAuthInterceptor creates a new auth interceptor
func NewAuthInterceptor(verifier auth.Verifier, logger *slog.Logger) *AuthInterceptor {
	// Define which methods don't require authentication
	publicMethods := map[string]bool{
		"/grpc.health.v1.Health/Check": true,
		"/grpc.health.v1.Health/Watch": true,
	}

	return &AuthInterceptor{
		verifier:      verifier,
		publicMethods: publicMethods,
		logger:        logger.With(slog.String("component", "grpc_auth")),
	}
}

// isPublic reports whether method skips authentication. Reflection is
// always public so tooling can discover the API.
func (a *AuthInterceptor) isPublic(method string) bool {
	return a.publicMethods[method] || strings.HasPrefix(method, "/grpc.reflection.")
}

// Unary returns a unary server interceptor for authentication
func (a *AuthInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if a.isPublic(info.FullMethod) {
			return handler(ctx, req)
		}

		newCtx, err := a.authenticate(ctx)
		if err != nil {
			return nil, err
		}

		return handler(newCtx, req)
	}
}

// Stream returns a stream server interceptor for authentication
func (a *AuthInterceptor) Stream() grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		stream grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if a.isPublic(info.FullMethod) {
			return handler(srv, stream)
		}

		newCtx, err := a.authenticate(stream.Context())
		if err != nil {
			return err
		}

		return handler(srv, &wrappedServerStream{
			ServerStream: stream,
			ctx:          newCtx,
		})
	}
}

// authenticate extracts and verifies the bearer token from metadata
func (a *AuthInterceptor) authenticate(ctx context.Context) (context.Context, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing metadata")
	}

	authHeaders := md.Get("authorization")
	if len(authHeaders) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing authorization header")
	}

	token, err := auth.ExtractTokenFromHeader(authHeaders[0])
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "invalid authorization header format")
	}

	id, err := a.verifier.VerifyToken(ctx, token)
	if err != nil {
		a.logger.Debug("token rejected", slog.String("error", err.Error()))
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	return auth.ContextWithIdentity(ctx, id), nil
}

// HTTPAuth verifies bearer tokens on HTTP requests.
type HTTPAuth struct {
	verifier auth.Verifier
	logger   *slog.Logger
}

func NewHTTPAuth(verifier auth.Verifier, logger *slog.Logger) *HTTPAuth {
	return &HTTPAuth{
		verifier: verifier,
		logger:   logger.With(slog.String("component", "http_auth")),
	}
}

// Middleware rejects requests without a valid bearer token and stores the
// caller identity in the request context.
func (a *HTTPAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				apierrors.Unauthorized(w, "Missing Authorization header")
				return
			}

			token, err := auth.ExtractTokenFromHeader(header)
			if err != nil {
				apierrors.Unauthorized(w, "Invalid Authorization header: expected Bearer <token>")
				return
			}

			id, err := a.verifier.VerifyToken(r.Context(), token)
			if err != nil {
				a.logger.Debug("token rejected",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				if errors.Is(err, auth.ErrUnauthenticated) {
					apierrors.Unauthorized(w, "Invalid or expired token")
					return
				}
				apierrors.InternalError(w, "Token verification failed")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.ContextWithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole returns middleware admitting only callers with one of roles.
// Must run after HTTPAuth.Middleware.
func RequireRole(roles ...auth.Role) func(http.Handler) http.Handler {
	roleMap := make(map[auth.Role]bool, len(roles))
	for _, role := range roles {
		roleMap[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				apierrors.Unauthorized(w, "User not authenticated")
				return
			}
			if !roleMap[id.Role] {
				apierrors.Forbidden(w, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
