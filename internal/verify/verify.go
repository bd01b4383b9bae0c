package verify

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/familyhub/subscription-api/internal/model"
)

// GooglePlayVerifier validates a Google Play purchase token against the
// androidpublisher API and returns the resulting subscription state.
type GooglePlayVerifier interface {
	Verify(ctx context.Context, purchaseToken, productID string) model.ValidationResult
}

// AppStoreVerifier validates a base64 App Store receipt against Apple's
// verifyReceipt endpoints.
type AppStoreVerifier interface {
	Verify(ctx context.Context, receiptData, productID string) model.ValidationResult
}

const (
	yearlyDuration  = 365 * 24 * time.Hour
	monthlyDuration = 30 * 24 * time.Hour
)

// durationFor maps a product identifier to its billing period. Product IDs
// carry the period in their name, e.g. premium_yearly.
func durationFor(productID string) time.Duration {
	if strings.Contains(productID, "yearly") {
		return yearlyDuration
	}
	return monthlyDuration
}

func failure(msg string) model.ValidationResult {
	return model.ValidationResult{Valid: false, Error: msg}
}

func success(rec *model.SubscriptionRecord) model.ValidationResult {
	return model.ValidationResult{Valid: true, Record: rec}
}

func activeRecord(platform, purchaseToken string, purchaseDate, expiresAt time.Time) *model.SubscriptionRecord {
	return &model.SubscriptionRecord{
		Tier:          model.TierPremium,
		Status:        model.StatusActive,
		ExpiresAt:     &expiresAt,
		PurchaseDate:  purchaseDate,
		Platform:      platform,
		HubTypes:      model.HubTypesForTier(model.TierPremium),
		PurchaseToken: purchaseToken,
	}
}

// nonExpiringRecord is an active entitlement with no expiry. The sweeper
// never transitions these.
func nonExpiringRecord(platform, purchaseToken string, purchaseDate time.Time) *model.SubscriptionRecord {
	return &model.SubscriptionRecord{
		Tier:          model.TierPremium,
		Status:        model.StatusActive,
		PurchaseDate:  purchaseDate,
		Platform:      platform,
		HubTypes:      model.HubTypesForTier(model.TierPremium),
		PurchaseToken: purchaseToken,
	}
}

// parseMillis parses a store timestamp given as epoch milliseconds in a
// JSON string field.
func parseMillis(s string) (time.Time, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}
