package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// AuditLogger is an async audit log writer.
type AuditLogger struct {
	db     auditDB
	logger zerolog.Logger
	ch     chan auditEntry
	done   chan struct{}
}

type auditDB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type auditEntry struct {
	TokenID     *string
	UserID      *string
	Method      string
	Path        string
	StatusCode  int
	RequestBody json.RawMessage
}

func NewAuditLogger(db auditDB, logger zerolog.Logger) *AuditLogger {
	al := &AuditLogger{
		db:     db,
		logger: logger,
		ch:     make(chan auditEntry, 1024),
		done:   make(chan struct{}),
	}
	go al.drain()
	return al
}

func (al *AuditLogger) drain() {
	defer close(al.done)
	for entry := range al.ch {
		_, err := al.db.Exec(
			// async writer, detached from the request context
			context.Background(),
			`INSERT INTO audit_logs (token_id, user_id, method, path, status_code, request_body, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, now())`,
			entry.TokenID, entry.UserID, entry.Method, entry.Path, entry.StatusCode, entry.RequestBody,
		)
		if err != nil {
			al.logger.Error().Err(err).Msg("failed to write audit log")
		}
	}
}

// Close drains remaining entries and stops the writer.
func (al *AuditLogger) Close() {
	close(al.ch)
	<-al.done
}

// Middleware returns a chi middleware that logs mutating API requests.
func (al *AuditLogger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only audit mutating operations.
		if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodDelete {
			next.ServeHTTP(w, r)
			return
		}

		// Read and re-buffer the request body.
		var bodyBytes []byte
		if r.Body != nil {
			bodyBytes, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		}

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		var tokenID, userID *string
		if identity := GetIdentity(r.Context()); identity != nil {
			tokenID = &identity.TokenID
			userID = &identity.UserID
		}

		var sanitizedBody json.RawMessage
		if len(bodyBytes) > 0 && json.Valid(bodyBytes) {
			sanitizedBody = sanitizeBody(bodyBytes)
		}

		select {
		case al.ch <- auditEntry{
			TokenID:     tokenID,
			UserID:      userID,
			Method:      r.Method,
			Path:        r.URL.Path,
			StatusCode:  sw.status,
			RequestBody: sanitizedBody,
		}:
		default:
			al.logger.Warn().Msg("audit log buffer full, dropping entry")
		}
	})
}

// sensitiveFields must never reach the audit log. Receipts and purchase
// tokens are proofs of purchase and as sensitive as credentials.
var sensitiveFields = map[string]bool{
	"receiptData": true, "purchaseToken": true,
	"password": true, "secret": true, "token": true,
}

func sanitizeBody(body []byte) json.RawMessage {
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return body
	}
	for k := range data {
		if sensitiveFields[k] || strings.HasSuffix(strings.ToLower(k), "token") {
			data[k] = "[REDACTED]"
		}
	}
	sanitized, _ := json.Marshal(data)
	return sanitized
}
