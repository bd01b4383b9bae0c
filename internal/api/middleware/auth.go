package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/familyhub/subscription-api/internal/api/response"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity holds the authenticated caller resolved from a bearer token.
type Identity struct {
	TokenID string
	UserID  string
}

// AuthStore is the subset of the connection pool the auth middleware needs.
type AuthStore interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Auth returns a middleware that validates the Authorization bearer token
// against the auth_tokens table.
func Auth(db AuthStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				response.WriteError(w, http.StatusUnauthorized, "User must be authenticated")
				return
			}

			hash := sha256.Sum256([]byte(token))
			tokenHash := hex.EncodeToString(hash[:])

			var identity Identity
			err := db.QueryRow(r.Context(),
				`SELECT id, user_id FROM auth_tokens WHERE token_hash = $1 AND revoked_at IS NULL`, tokenHash,
			).Scan(&identity.TokenID, &identity.UserID)
			if err != nil {
				response.WriteError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, &identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentity returns the authenticated identity, or nil outside the auth
// middleware.
func GetIdentity(ctx context.Context) *Identity {
	identity, _ := ctx.Value(identityKey).(*Identity)
	return identity
}

// WithIdentity injects an identity into the context. Used by handler tests.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}
