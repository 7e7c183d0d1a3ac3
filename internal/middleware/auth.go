package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Varun5711/placeshare/internal/auth"
	"github.com/Varun5711/placeshare/internal/logger"
	"github.com/Varun5711/placeshare/internal/response"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the caller proven by a bearer token.
type Identity struct {
	UserID string
	Email  string
}

type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	tokens TokenValidator
	log    *logger.Logger
}

func NewAuthMiddleware(tokens TokenValidator, log *logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		tokens: tokens,
		log:    log,
	}
}

// Authenticate resolves a raw bearer token to an Identity.
func (m *AuthMiddleware) Authenticate(token string) (Identity, error) {
	if token == "" {
		return Identity{}, status.Error(codes.Unauthenticated, "Authentication failed.")
	}

	claims, err := m.tokens.ValidateToken(token)
	if err != nil {
		m.log.Debug("Rejected token: %v", err)
		return Identity{}, status.Error(codes.Unauthenticated, "Authentication failed.")
	}

	return Identity{UserID: claims.UserID, Email: claims.Email}, nil
}

func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := m.Authenticate(bearerToken(r.Header.Get("Authorization")))
		if err != nil {
			response.Error(w, m.log, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// AuthorizeOwner fails with PermissionDenied unless identity owns the resource.
func AuthorizeOwner(identity Identity, ownerID string) error {
	if identity.UserID == "" || identity.UserID != ownerID {
		return status.Error(codes.PermissionDenied, "You are not allowed to modify this place.")
	}
	return nil
}

func GetIdentity(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func bearerToken(header string) string {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
