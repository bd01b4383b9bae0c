package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	mw "github.com/familyhub/subscription-api/internal/api/middleware"
	"github.com/familyhub/subscription-api/internal/api/request"
	"github.com/familyhub/subscription-api/internal/api/response"
	"github.com/familyhub/subscription-api/internal/metrics"
	"github.com/familyhub/subscription-api/internal/model"
	"github.com/familyhub/subscription-api/internal/verify"
)

const historyLimit = 50

// ProfileStore is the profile surface the subscription handler needs.
type ProfileStore interface {
	ApplySubscription(ctx context.Context, userID string, rec *model.SubscriptionRecord) error
	GetProfile(ctx context.Context, userID string) (*model.UserProfile, string, error)
	History(ctx context.Context, userID string, limit int) ([]model.HistoryEntry, error)
}

// Sweeper runs on-demand expiration checks.
type Sweeper interface {
	SweepOne(ctx context.Context, userID string, now time.Time) error
}

// Subscription handles receipt validation and subscription state endpoints.
type Subscription struct {
	google   verify.GooglePlayVerifier
	apple    verify.AppStoreVerifier
	profiles ProfileStore
	sweeper  Sweeper
}

func NewSubscription(google verify.GooglePlayVerifier, apple verify.AppStoreVerifier, profiles ProfileStore, sweeper Sweeper) *Subscription {
	return &Subscription{google: google, apple: apple, profiles: profiles, sweeper: sweeper}
}

// ValidateGooglePlay validates a Google Play purchase token and, when the
// purchase is valid, writes the subscription onto the user's profile before
// responding.
func (h *Subscription) ValidateGooglePlay(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req request.ValidateGooglePlayReceipt
	if err := request.Decode(r, &req); err != nil {
		response.WriteServiceError(w, err)
		return
	}
	if req.UserID != identity.UserID {
		response.WriteError(w, http.StatusForbidden, "User ID does not match authenticated user")
		return
	}

	result := h.google.Verify(r.Context(), req.PurchaseToken, req.ProductID)
	metrics.RecordValidation(model.PlatformGoogle, result.Valid)

	if result.Valid {
		if err := h.profiles.ApplySubscription(r.Context(), req.UserID, result.Record); err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Str("user_id", req.UserID).
				Msg("failed to apply google play subscription")
			response.WriteServiceError(w, err)
			return
		}
	}

	response.WriteJSON(w, http.StatusOK, result)
}

// ValidateAppStore validates a base64 App Store receipt. Mirrors the Google
// Play flow.
func (h *Subscription) ValidateAppStore(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req request.ValidateAppStoreReceipt
	if err := request.Decode(r, &req); err != nil {
		response.WriteServiceError(w, err)
		return
	}
	if req.UserID != identity.UserID {
		response.WriteError(w, http.StatusForbidden, "User ID does not match authenticated user")
		return
	}

	result := h.apple.Verify(r.Context(), req.ReceiptData, req.ProductID)
	metrics.RecordValidation(model.PlatformApple, result.Valid)

	if result.Valid {
		if err := h.profiles.ApplySubscription(r.Context(), req.UserID, result.Record); err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Str("user_id", req.UserID).
				Msg("failed to apply app store subscription")
			response.WriteServiceError(w, err)
			return
		}
	}

	response.WriteJSON(w, http.StatusOK, result)
}

// Check runs an immediate expiration check for the caller's subscription.
func (h *Subscription) Check(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req request.CheckSubscription
	if err := request.Decode(r, &req); err != nil {
		response.WriteServiceError(w, err)
		return
	}
	if req.UserID != identity.UserID {
		response.WriteError(w, http.StatusForbidden, "User can only check their own subscription")
		return
	}

	if err := h.sweeper.SweepOne(r.Context(), req.UserID, time.Now()); err != nil {
		response.WriteServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// subscriptionProfile is the read projection of a profile. The purchase token
// is proof of purchase and never leaves the service.
type subscriptionProfile struct {
	UserID       string     `json:"userId"`
	Tier         *string    `json:"subscriptionTier,omitempty"`
	Status       *string    `json:"subscriptionStatus,omitempty"`
	ExpiresAt    *time.Time `json:"subscriptionExpiresAt,omitempty"`
	PurchaseDate *time.Time `json:"subscriptionPurchaseDate,omitempty"`
	Platform     *string    `json:"subscriptionPlatform,omitempty"`
	HubTypes     []string   `json:"premiumHubTypes,omitempty"`
	UpdatedAt    *time.Time `json:"subscriptionUpdatedAt,omitempty"`
}

// Get returns the caller's current subscription state.
func (h *Subscription) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	userID := chi.URLParam(r, "userID")
	if userID == "" {
		response.WriteError(w, http.StatusBadRequest, "Missing required field: userId")
		return
	}
	if userID != identity.UserID {
		response.WriteError(w, http.StatusForbidden, "User can only check their own subscription")
		return
	}

	profile, _, err := h.profiles.GetProfile(r.Context(), userID)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, subscriptionProfile{
		UserID:       profile.UserID,
		Tier:         profile.Tier,
		Status:       profile.Status,
		ExpiresAt:    profile.ExpiresAt,
		PurchaseDate: profile.PurchaseDate,
		Platform:     profile.Platform,
		HubTypes:     profile.HubTypes,
		UpdatedAt:    profile.UpdatedAt,
	})
}

type historyItem struct {
	ID string `json:"id"`
	model.SubscriptionRecord
	UpdatedAt time.Time `json:"updatedAt"`
}

// History returns the caller's subscription change history, newest first.
func (h *Subscription) History(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	userID := chi.URLParam(r, "userID")
	if userID == "" {
		response.WriteError(w, http.StatusBadRequest, "Missing required field: userId")
		return
	}
	if userID != identity.UserID {
		response.WriteError(w, http.StatusForbidden, "User can only check their own subscription")
		return
	}

	entries, err := h.profiles.History(r.Context(), userID, historyLimit)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}

	items := make([]historyItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, historyItem{ID: e.ID, SubscriptionRecord: e.Record, UpdatedAt: e.UpdatedAt})
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"history": items})
}

func requireIdentity(w http.ResponseWriter, r *http.Request) (*mw.Identity, bool) {
	identity := mw.GetIdentity(r.Context())
	if identity == nil {
		response.WriteError(w, http.StatusUnauthorized, "User must be authenticated")
		return nil, false
	}
	return identity, true
}
