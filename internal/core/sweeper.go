package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/familyhub/subscription-api/internal/model"
)

// maxBatchOps bounds the number of updates committed per batch during a full
// sweep, mirroring the document store's atomic batch limit.
const maxBatchOps = 500

// SweeperService transitions active subscriptions past their expiry to the
// expired state. Expiration is a pure clock comparison against previously
// validated data; the sweeper never re-validates against the upstream store.
type SweeperService struct {
	db     DB
	tables []string
	logger zerolog.Logger
}

func NewSweeperService(db DB, tables []string, logger zerolog.Logger) *SweeperService {
	return &SweeperService{db: db, tables: tables, logger: logger}
}

// SweepOne checks a single user's subscription and expires it when due. A
// missing profile is logged and ignored. Re-running with the same clock is a
// no-op.
func (s *SweeperService) SweepOne(ctx context.Context, userID string, now time.Time) error {
	var profile *model.UserProfile
	var table string
	for _, t := range s.tables {
		query := fmt.Sprintf(
			`SELECT id, subscription_status, subscription_expires_at FROM %s WHERE id = $1`, t)

		var p model.UserProfile
		err := s.db.QueryRow(ctx, query, userID).Scan(&p.UserID, &p.Status, &p.ExpiresAt)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return Unavailable(fmt.Sprintf("load profile %s from %s", userID, t), err)
		}
		profile, table = &p, t
		break
	}

	if profile == nil {
		s.logger.Warn().Str("user_id", userID).Msg("user profile not found, skipping expiration check")
		return nil
	}

	if profile.Status == nil || *profile.Status != model.StatusActive || profile.ExpiresAt == nil {
		return nil
	}
	if !profile.ExpiresAt.Before(now) {
		return nil
	}

	query := fmt.Sprintf(
		`UPDATE %s SET subscription_status = $1, subscription_updated_at = now()
		 WHERE id = $2 AND subscription_status = $3`, table)
	if _, err := s.db.Exec(ctx, query, model.StatusExpired, userID, model.StatusActive); err != nil {
		return Unavailable(fmt.Sprintf("expire subscription for %s", userID), err)
	}

	s.logger.Info().Str("user_id", userID).Time("expired_at", *profile.ExpiresAt).
		Msg("subscription marked as expired")
	return nil
}

// SweepAll scans every profile location for active subscriptions with an
// expiry and transitions those past now. Updates are grouped into batches of
// at most maxBatchOps; a failed update is logged and does not abort the
// sweep. Returns the number of subscriptions transitioned.
func (s *SweeperService) SweepAll(ctx context.Context, now time.Time) (int, error) {
	expired := 0
	for _, table := range s.tables {
		n, err := s.sweepTable(ctx, table, now)
		if err != nil {
			return expired, err
		}
		expired += n
	}

	s.logger.Info().Int("expired", expired).Msg("completed subscription expiration sweep")
	return expired, nil
}

func (s *SweeperService) sweepTable(ctx context.Context, table string, now time.Time) (int, error) {
	query := fmt.Sprintf(
		`SELECT id, subscription_expires_at FROM %s
		 WHERE subscription_status = $1 AND subscription_expires_at IS NOT NULL`, table)

	rows, err := s.db.Query(ctx, query, model.StatusActive)
	if err != nil {
		return 0, Unavailable(fmt.Sprintf("query active subscriptions in %s", table), err)
	}

	var due []string
	for rows.Next() {
		var id string
		var expiresAt time.Time
		if err := rows.Scan(&id, &expiresAt); err != nil {
			rows.Close()
			return 0, Unavailable("scan active subscription row", err)
		}
		if expiresAt.Before(now) {
			due = append(due, id)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, Unavailable(fmt.Sprintf("iterate active subscriptions in %s", table), err)
	}
	rows.Close()

	s.logger.Info().Str("table", table).Int("due", len(due)).
		Msg("checked active subscriptions")

	update := fmt.Sprintf(
		`UPDATE %s SET subscription_status = $1, subscription_updated_at = now()
		 WHERE id = $2 AND subscription_status = $3`, table)

	expired := 0
	batch := &pgx.Batch{}
	for _, id := range due {
		batch.Queue(update, model.StatusExpired, id, model.StatusActive)
		if batch.Len() >= maxBatchOps {
			expired += s.commitBatch(ctx, batch)
			batch = &pgx.Batch{}
		}
	}
	if batch.Len() > 0 {
		expired += s.commitBatch(ctx, batch)
	}

	return expired, nil
}

// commitBatch sends one batch and counts the updates that succeeded. A
// failure for one record must not abort the rest of the sweep, so per-update
// errors are logged and skipped.
func (s *SweeperService) commitBatch(ctx context.Context, batch *pgx.Batch) int {
	br := s.db.SendBatch(ctx, batch)
	defer br.Close()

	ok := 0
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			s.logger.Error().Err(err).Msg("failed to expire subscription in batch")
			continue
		}
		ok++
	}
	return ok
}
