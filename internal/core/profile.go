package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/familyhub/subscription-api/internal/model"
	"github.com/familyhub/subscription-api/internal/platform"
)

// profileColumns is the subscription projection selected from every profile
// location.
const profileColumns = `id, subscription_tier, subscription_status, subscription_expires_at,
	subscription_purchase_date, subscription_platform, premium_hub_types,
	subscription_purchase_token, subscription_updated_at`

// ProfileService persists validated subscription records to the user profile
// and appends immutable history entries.
//
// User profiles may live in one of several tables, a compatibility shim left
// over from a schema migration. Locations are tried in order; only a
// not-found outcome moves on to the next location, any other failure
// propagates immediately.
type ProfileService struct {
	db     DB
	tables []string
	logger zerolog.Logger
}

func NewProfileService(db DB, tables []string, logger zerolog.Logger) *ProfileService {
	return &ProfileService{db: db, tables: tables, logger: logger}
}

// ApplySubscription writes the record to the user's profile, falling back
// across profile locations, then appends one history entry. The history
// append only happens after a successful profile write.
func (s *ProfileService) ApplySubscription(ctx context.Context, userID string, rec *model.SubscriptionRecord) error {
	var written string
	for _, table := range s.tables {
		query := fmt.Sprintf(
			`UPDATE %s SET
				subscription_tier = $1,
				subscription_status = $2,
				subscription_expires_at = $3,
				subscription_purchase_date = $4,
				subscription_platform = $5,
				premium_hub_types = $6,
				subscription_purchase_token = $7,
				subscription_updated_at = now()
			 WHERE id = $8`, table)

		tag, err := s.db.Exec(ctx, query,
			rec.Tier, rec.Status, rec.ExpiresAt, rec.PurchaseDate,
			rec.Platform, rec.HubTypes, rec.PurchaseToken, userID,
		)
		if err != nil {
			return Unavailable(fmt.Sprintf("update profile %s in %s", userID, table), err)
		}
		if tag.RowsAffected() == 0 {
			s.logger.Debug().Str("user_id", userID).Str("table", table).
				Msg("profile not found, trying next location")
			continue
		}

		written = table
		break
	}

	if written == "" {
		return NotFound("user profile %s not found in any profile location", userID)
	}

	if err := s.appendHistory(ctx, userID, rec); err != nil {
		return err
	}

	s.logger.Info().Str("user_id", userID).Str("table", written).
		Str("status", rec.Status).Msg("subscription updated")
	return nil
}

// appendHistory inserts one immutable copy of the applied record with a
// server-assigned timestamp.
func (s *ProfileService) appendHistory(ctx context.Context, userID string, rec *model.SubscriptionRecord) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO subscription_history
			(id, user_id, subscription_tier, subscription_status, subscription_expires_at,
			 subscription_purchase_date, subscription_platform, premium_hub_types,
			 subscription_purchase_token, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())`,
		platform.NewID(), userID, rec.Tier, rec.Status, rec.ExpiresAt,
		rec.PurchaseDate, rec.Platform, rec.HubTypes, rec.PurchaseToken,
	)
	if err != nil {
		return Unavailable(fmt.Sprintf("append subscription history for %s", userID), err)
	}
	return nil
}

// GetProfile loads the subscription projection of a user profile, trying
// each profile location in order. The table the profile was found in is
// returned alongside it.
func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*model.UserProfile, string, error) {
	for _, table := range s.tables {
		query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, profileColumns, table)

		var p model.UserProfile
		err := s.db.QueryRow(ctx, query, userID).Scan(
			&p.UserID, &p.Tier, &p.Status, &p.ExpiresAt, &p.PurchaseDate,
			&p.Platform, &p.HubTypes, &p.PurchaseToken, &p.UpdatedAt,
		)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, "", Unavailable(fmt.Sprintf("get profile %s from %s", userID, table), err)
		}
		return &p, table, nil
	}

	return nil, "", NotFound("user profile %s not found in any profile location", userID)
}

// History returns the user's subscription history, newest first.
func (s *ProfileService) History(ctx context.Context, userID string, limit int) ([]model.HistoryEntry, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, subscription_tier, subscription_status, subscription_expires_at,
			subscription_purchase_date, subscription_platform, premium_hub_types,
			subscription_purchase_token, updated_at
		 FROM subscription_history
		 WHERE user_id = $1
		 ORDER BY updated_at DESC
		 LIMIT $2`, userID, limit)
	if err != nil {
		return nil, Unavailable(fmt.Sprintf("list subscription history for %s", userID), err)
	}
	defer rows.Close()

	var entries []model.HistoryEntry
	for rows.Next() {
		var e model.HistoryEntry
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.Record.Tier, &e.Record.Status, &e.Record.ExpiresAt,
			&e.Record.PurchaseDate, &e.Record.Platform, &e.Record.HubTypes,
			&e.Record.PurchaseToken, &e.UpdatedAt,
		); err != nil {
			return nil, Unavailable("scan subscription history entry", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, Unavailable("iterate subscription history", err)
	}
	return entries, nil
}
