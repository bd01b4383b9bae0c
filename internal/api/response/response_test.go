package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/familyhub/subscription-api/internal/core"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]string{"id": "abc"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "abc", body["id"])
}

func TestWriteServiceError_StatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    int
		wantMsg string
	}{
		{"invalid argument", core.InvalidArgument("bad input"), http.StatusBadRequest, "bad input"},
		{"unauthenticated", core.Unauthenticated("User must be authenticated"), http.StatusUnauthorized, "User must be authenticated"},
		{"permission denied", core.PermissionDenied("not yours"), http.StatusForbidden, "not yours"},
		{"not found", core.NotFound("user not found"), http.StatusNotFound, "user not found"},
		{"unavailable", core.Unavailable("db down", errors.New("dial tcp")), http.StatusServiceUnavailable, "db down"},
		{"internal", core.Internal("boom", errors.New("oops")), http.StatusInternalServerError, "boom"},
		{"untyped", errors.New("plain"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteServiceError(rec, tt.err)

			assert.Equal(t, tt.want, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantMsg, body["error"])
		})
	}
}

func TestWriteServiceError_WrappedCauseNotExposed(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteServiceError(rec, core.Unavailable("profile update failed", errors.New("dial tcp 10.0.0.5:5432: connection refused")))

	assert.NotContains(t, rec.Body.String(), "connection refused")
	assert.NotContains(t, rec.Body.String(), "dial tcp")
}
