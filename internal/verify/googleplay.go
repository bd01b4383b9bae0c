package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/jwt"

	"github.com/familyhub/subscription-api/internal/config"
	"github.com/familyhub/subscription-api/internal/model"
)

const (
	androidPublisherBaseURL = "https://androidpublisher.googleapis.com"
	androidPublisherScope   = "https://www.googleapis.com/auth/androidpublisher"
	googleTokenURL          = "https://oauth2.googleapis.com/token"

	// paymentStateReceived is the androidpublisher payment state of a
	// settled, active subscription purchase.
	paymentStateReceived = 1
)

// GooglePlayClient verifies purchase tokens with the androidpublisher v3
// subscriptions API, authenticating as a service account. Without
// credentials every purchase is approved by the mock verifier, which keeps
// local development working against emulated stores.
type GooglePlayClient struct {
	httpClient  *http.Client
	tokenSource oauth2.TokenSource
	baseURL     string
	packageName string
	devFallback bool
	mock        *MockVerifier
	logger      zerolog.Logger
}

func NewGooglePlayClient(cfg *config.Config, logger zerolog.Logger) *GooglePlayClient {
	c := &GooglePlayClient{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		baseURL:     androidPublisherBaseURL,
		packageName: cfg.GooglePlayPackageName,
		devFallback: cfg.IsDevelopment(),
		mock:        NewMockVerifier(),
		logger:      logger,
	}

	if cfg.GooglePlayServiceAccountEmail != "" && cfg.GooglePlayPrivateKey != "" {
		conf := &jwt.Config{
			Email:      cfg.GooglePlayServiceAccountEmail,
			PrivateKey: []byte(cfg.GooglePlayPrivateKey),
			Scopes:     []string{androidPublisherScope},
			TokenURL:   googleTokenURL,
		}
		c.tokenSource = conf.TokenSource(context.Background())
	}

	return c
}

// subscriptionPurchase is the subset of the androidpublisher
// SubscriptionPurchase resource the verifier reads. The API serializes
// timestamps as millisecond strings.
type subscriptionPurchase struct {
	StartTimeMillis  string `json:"startTimeMillis"`
	ExpiryTimeMillis string `json:"expiryTimeMillis"`
	PaymentState     *int   `json:"paymentState"`
	AutoRenewing     bool   `json:"autoRenewing"`
}

func (c *GooglePlayClient) Verify(ctx context.Context, purchaseToken, productID string) model.ValidationResult {
	if c.tokenSource == nil {
		c.logger.Warn().Str("product_id", productID).
			Msg("google play credentials not configured, using mock validation")
		return c.mock.Result(model.PlatformGoogle, productID, purchaseToken)
	}

	purchase, err := c.fetchPurchase(ctx, purchaseToken, productID)
	if err != nil {
		c.logger.Error().Err(err).Str("product_id", productID).Msg("google play verification failed")
		if c.devFallback {
			return c.mock.Result(model.PlatformGoogle, productID, purchaseToken)
		}
		return failure("Failed to validate purchase with Google Play")
	}

	if purchase.PaymentState == nil || *purchase.PaymentState != paymentStateReceived {
		state := -1
		if purchase.PaymentState != nil {
			state = *purchase.PaymentState
		}
		return failure(fmt.Sprintf("Purchase not active. Payment state: %d", state))
	}

	// Lifetime and promotional entitlements carry no expiry.
	if purchase.ExpiryTimeMillis == "" {
		return success(nonExpiringRecord(model.PlatformGoogle, purchaseToken, time.Now()))
	}

	expiresAt, err := parseMillis(purchase.ExpiryTimeMillis)
	if err != nil {
		return failure(fmt.Sprintf("Invalid expiry time in purchase: %q", purchase.ExpiryTimeMillis))
	}

	purchaseDate := expiresAt.Add(-durationFor(productID))
	return success(activeRecord(model.PlatformGoogle, purchaseToken, purchaseDate, expiresAt))
}

func (c *GooglePlayClient) fetchPurchase(ctx context.Context, purchaseToken, productID string) (*subscriptionPurchase, error) {
	token, err := c.tokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("service account token: %w", err)
	}

	reqURL := fmt.Sprintf("%s/androidpublisher/v3/applications/%s/purchases/subscriptions/%s/tokens/%s",
		c.baseURL,
		url.PathEscape(c.packageName),
		url.PathEscape(productID),
		url.PathEscape(purchaseToken),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("purchase request: %w", err)
	}
	token.SetAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get subscription purchase: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("get subscription purchase: status %d: %s", resp.StatusCode, string(body))
	}

	var purchase subscriptionPurchase
	if err := json.NewDecoder(resp.Body).Decode(&purchase); err != nil {
		return nil, fmt.Errorf("decode subscription purchase: %w", err)
	}
	return &purchase, nil
}
