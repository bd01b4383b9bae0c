package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/familyhub/subscription-api/internal/core"
)

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// WriteServiceError maps a service-layer error to its HTTP status and
// message. Wrapped causes stay in the logs and never reach the caller.
func WriteServiceError(w http.ResponseWriter, err error) {
	var se *core.Error
	if errors.As(err, &se) {
		WriteError(w, statusFor(se.Code), se.Message)
		return
	}
	WriteError(w, http.StatusInternalServerError, "internal server error")
}

func statusFor(code core.Code) int {
	switch code {
	case core.CodeInvalidArgument:
		return http.StatusBadRequest
	case core.CodeUnauthenticated:
		return http.StatusUnauthorized
	case core.CodePermissionDenied:
		return http.StatusForbidden
	case core.CodeNotFound:
		return http.StatusNotFound
	case core.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
