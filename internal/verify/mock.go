package verify

import (
	"time"

	"github.com/familyhub/subscription-api/internal/model"
)

// MockVerifier produces deterministic approvals without calling any store
// API. It backs local development when store credentials are absent and
// the development fallback when a live call fails unexpectedly.
type MockVerifier struct {
	now func() time.Time
}

func NewMockVerifier() *MockVerifier {
	return &MockVerifier{now: time.Now}
}

// Result approves the purchase with an expiry one billing period from now.
func (m *MockVerifier) Result(platform, productID, purchaseToken string) model.ValidationResult {
	now := m.now()
	expiresAt := now.Add(durationFor(productID))
	return success(activeRecord(platform, purchaseToken, now, expiresAt))
}
