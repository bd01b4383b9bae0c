package core

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAuthTokenCreate_ReturnsRawSecretOnce(t *testing.T) {
	db := &mockDB{}
	svc := NewAuthTokenService(db)
	ctx := context.Background()

	var insertArgs []any
	db.On("Exec", ctx, sqlContains("INSERT INTO auth_tokens"), mock.Anything).
		Run(func(args mock.Arguments) { insertArgs = args.Get(2).([]any) }).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil).Once()

	token, raw, err := svc.Create(ctx, "u1", "mobile-dev")
	require.NoError(t, err)
	assert.Equal(t, "u1", token.UserID)
	assert.Equal(t, "mobile-dev", token.Name)
	assert.Regexp(t, `^fh_[a-z0-9]{40}$`, raw)

	// Only the hash is persisted, never the raw secret.
	require.Len(t, insertArgs, 5)
	assert.NotContains(t, insertArgs, raw)
	assert.Regexp(t, `^[0-9a-f]{64}$`, insertArgs[3])
}

func TestAuthTokenCreate_DBError(t *testing.T) {
	db := &mockDB{}
	svc := NewAuthTokenService(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("unique violation")).Once()

	_, _, err := svc.Create(ctx, "u1", "mobile-dev")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert auth token")
}

func TestAuthTokenRevoke_NotFound(t *testing.T) {
	db := &mockDB{}
	svc := NewAuthTokenService(db)
	ctx := context.Background()

	db.On("Exec", ctx, sqlContains("UPDATE auth_tokens"), mock.Anything).
		Return(pgconn.NewCommandTag("UPDATE 0"), nil).Once()

	err := svc.Revoke(ctx, "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestAuthTokenRevoke_Success(t *testing.T) {
	db := &mockDB{}
	svc := NewAuthTokenService(db)
	ctx := context.Background()

	db.On("Exec", ctx, sqlContains("UPDATE auth_tokens"), mock.Anything).
		Return(pgconn.NewCommandTag("UPDATE 1"), nil).Once()

	require.NoError(t, svc.Revoke(ctx, "tok-id"))
}
