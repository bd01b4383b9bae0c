package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/familyhub/subscription-api/internal/platform"
)

// AuthToken identifies an issued caller token. The raw secret is returned
// once at creation and only its hash is stored.
type AuthToken struct {
	ID        string
	UserID    string
	Name      string
	CreatedAt time.Time
}

type AuthTokenService struct {
	db DB
}

func NewAuthTokenService(db DB) *AuthTokenService {
	return &AuthTokenService{db: db}
}

// Create issues a new bearer token for a user and returns the raw secret.
func (s *AuthTokenService) Create(ctx context.Context, userID, name string) (*AuthToken, string, error) {
	raw := platform.NewToken("fh_")
	hash := sha256.Sum256([]byte(raw))

	token := &AuthToken{
		ID:        platform.NewID(),
		UserID:    userID,
		Name:      name,
		CreatedAt: time.Now(),
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO auth_tokens (id, user_id, name, token_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		token.ID, token.UserID, token.Name, hex.EncodeToString(hash[:]), token.CreatedAt,
	)
	if err != nil {
		return nil, "", fmt.Errorf("insert auth token: %w", err)
	}

	return token, raw, nil
}

// Revoke marks a token as revoked; revoked tokens no longer authenticate.
func (s *AuthTokenService) Revoke(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE auth_tokens SET revoked_at = now() WHERE id = $1 AND revoked_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("revoke auth token %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return NotFound("auth token %s not found or already revoked", id)
	}
	return nil
}
