package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi/v5"

	mw "github.com/familyhub/subscription-api/internal/api/middleware"
	"github.com/familyhub/subscription-api/internal/model"
)

// newRequest creates a new HTTP request with an optional JSON body.
func newRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	r := httptest.NewRequest(method, target, &buf)
	r.Header.Set("Content-Type", "application/json")
	return r
}

// withChiURLParam adds a chi URL parameter to the request context.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// asUser injects an authenticated identity into the request context.
func asUser(r *http.Request, userID string) *http.Request {
	return r.WithContext(mw.WithIdentity(r.Context(), &mw.Identity{TokenID: "test-token", UserID: userID}))
}

// decodeBody parses a JSON response body into a map.
func decodeBody(rec *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	json.Unmarshal(rec.Body.Bytes(), &body)
	return body
}

// ---------- fakes ----------

type verifyCall struct {
	credential string
	productID  string
}

type fakeVerifier struct {
	result model.ValidationResult
	calls  []verifyCall
}

func (f *fakeVerifier) Verify(_ context.Context, credential, productID string) model.ValidationResult {
	f.calls = append(f.calls, verifyCall{credential: credential, productID: productID})
	return f.result
}

type appliedCall struct {
	userID string
	record *model.SubscriptionRecord
}

type fakeProfiles struct {
	applyErr error
	applied  []appliedCall

	profile *model.UserProfile
	getErr  error

	history    []model.HistoryEntry
	historyErr error
}

func (f *fakeProfiles) ApplySubscription(_ context.Context, userID string, rec *model.SubscriptionRecord) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	f.applied = append(f.applied, appliedCall{userID: userID, record: rec})
	return nil
}

func (f *fakeProfiles) GetProfile(_ context.Context, userID string) (*model.UserProfile, string, error) {
	if f.getErr != nil {
		return nil, "", f.getErr
	}
	return f.profile, "users", nil
}

func (f *fakeProfiles) History(_ context.Context, userID string, limit int) ([]model.HistoryEntry, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.history, nil
}

type fakeSweeper struct {
	err   error
	swept []string
}

func (f *fakeSweeper) SweepOne(_ context.Context, userID string, _ time.Time) error {
	if f.err != nil {
		return f.err
	}
	f.swept = append(f.swept, userID)
	return nil
}

func validRecord() *model.SubscriptionRecord {
	expires := time.Now().Add(365 * 24 * time.Hour).Truncate(time.Second)
	return &model.SubscriptionRecord{
		Tier:          model.TierPremium,
		Status:        model.StatusActive,
		ExpiresAt:     &expires,
		PurchaseDate:  expires.Add(-365 * 24 * time.Hour),
		Platform:      model.PlatformGoogle,
		HubTypes:      model.HubTypesForTier(model.TierPremium),
		PurchaseToken: "tok1",
	}
}
