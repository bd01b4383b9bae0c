package model

import "time"

// Subscription status constants.
const (
	StatusActive  = "active"
	StatusExpired = "expired"
)

// Subscription platform constants.
const (
	PlatformGoogle = "google"
	PlatformApple  = "apple"
)

// Subscription tier constants.
const (
	TierPremium = "premium"
)

// HubTypesByTier maps a subscription tier to the hub types it unlocks.
// Validation code must resolve entitlements through this map so that new
// tiers do not require touching the verifiers.
var HubTypesByTier = map[string][]string{
	TierPremium: {"extended_family", "homeschooling", "coparenting"},
}

// HubTypesForTier returns a copy of the entitled hub types for a tier.
func HubTypesForTier(tier string) []string {
	types := HubTypesByTier[tier]
	out := make([]string, len(types))
	copy(out, types)
	return out
}

// SubscriptionRecord is the canonical, platform-agnostic result of a
// successful receipt validation. It is projected onto the user profile and
// copied verbatim into the append-only subscription history.
type SubscriptionRecord struct {
	Tier          string     `json:"subscriptionTier"`
	Status        string     `json:"subscriptionStatus"`
	ExpiresAt     *time.Time `json:"subscriptionExpiresAt"`
	PurchaseDate  time.Time  `json:"subscriptionPurchaseDate"`
	Platform      string     `json:"subscriptionPlatform"`
	HubTypes      []string   `json:"premiumHubTypes"`
	PurchaseToken string     `json:"subscriptionPurchaseToken"`
}

// ValidationResult is the transient outcome of a receipt validation. An
// upstream rejection is an expected business outcome carried in Error, not a
// service failure. Never persisted.
type ValidationResult struct {
	Valid  bool                `json:"valid"`
	Record *SubscriptionRecord `json:"subscriptionData,omitempty"`
	Error  string              `json:"error,omitempty"`
}

// UserProfile is the subscription projection of a user profile row, together
// with the table it was found in (the profile may live in either of the
// legacy-compatible locations).
type UserProfile struct {
	UserID        string
	Tier          *string
	Status        *string
	ExpiresAt     *time.Time
	PurchaseDate  *time.Time
	Platform      *string
	HubTypes      []string
	PurchaseToken *string
	UpdatedAt     *time.Time
}

// HistoryEntry is one immutable subscription-history row.
type HistoryEntry struct {
	ID        string
	UserID    string
	Record    SubscriptionRecord
	UpdatedAt time.Time
}
