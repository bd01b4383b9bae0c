package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/familyhub/subscription-api/internal/config"
	"github.com/familyhub/subscription-api/internal/model"
)

const (
	appStoreProductionURL = "https://buy.itunes.apple.com/verifyReceipt"
	appStoreSandboxURL    = "https://sandbox.itunes.apple.com/verifyReceipt"

	// statusSandboxReceipt means a sandbox receipt was sent to the
	// production endpoint and must be retried against sandbox.
	statusSandboxReceipt = 21007
)

// AppStoreClient verifies base64 receipts with Apple's verifyReceipt
// endpoints. Receipts always go to production first; sandbox is tried once
// when production reports a sandbox receipt, so TestFlight builds keep
// working against the same deployment. Without a shared secret every
// receipt is approved by the mock verifier, which keeps local development
// working against emulated stores.
type AppStoreClient struct {
	httpClient    *http.Client
	productionURL string
	sandboxURL    string
	sharedSecret  string
	devFallback   bool
	mock          *MockVerifier
	logger        zerolog.Logger
}

func NewAppStoreClient(cfg *config.Config, logger zerolog.Logger) *AppStoreClient {
	return &AppStoreClient{
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		productionURL: appStoreProductionURL,
		sandboxURL:    appStoreSandboxURL,
		sharedSecret:  cfg.AppStoreSharedSecret,
		devFallback:   cfg.IsDevelopment(),
		mock:          NewMockVerifier(),
		logger:        logger,
	}
}

type verifyReceiptResponse struct {
	Status  int `json:"status"`
	Receipt struct {
		InApp []inAppItem `json:"in_app"`
	} `json:"receipt"`
}

type inAppItem struct {
	ProductID      string `json:"product_id"`
	PurchaseDateMS string `json:"purchase_date_ms"`
	ExpiresDateMS  string `json:"expires_date_ms"`
}

func (c *AppStoreClient) Verify(ctx context.Context, receiptData, productID string) model.ValidationResult {
	if c.sharedSecret == "" {
		c.logger.Warn().Str("product_id", productID).
			Msg("app store shared secret not configured, using mock validation")
		return c.mock.Result(model.PlatformApple, productID, receiptData)
	}

	resp, err := c.verifyReceipt(ctx, receiptData)
	if err != nil {
		c.logger.Error().Err(err).Str("product_id", productID).Msg("app store verification failed")
		if c.devFallback {
			return c.mock.Result(model.PlatformApple, productID, receiptData)
		}
		return failure("Failed to validate receipt with the App Store")
	}

	if resp.Status != 0 {
		return failure(fmt.Sprintf("Receipt validation failed with status: %d", resp.Status))
	}

	item := latestPurchase(resp.Receipt.InApp, productID)
	if item == nil {
		return failure("Product not found in receipt")
	}

	expiresAt, err := parseMillis(item.ExpiresDateMS)
	if err != nil || !expiresAt.After(time.Now()) {
		return failure("Subscription has expired")
	}

	purchaseDate, err := parseMillis(item.PurchaseDateMS)
	if err != nil {
		purchaseDate = expiresAt.Add(-durationFor(productID))
	}

	// The raw receipt is the provenance token; it can be re-posted to
	// verifyReceipt later, a transaction id cannot.
	return success(activeRecord(model.PlatformApple, receiptData, purchaseDate, expiresAt))
}

// verifyReceipt posts the receipt to production, retrying once against
// sandbox when production signals a sandbox receipt.
func (c *AppStoreClient) verifyReceipt(ctx context.Context, receiptData string) (*verifyReceiptResponse, error) {
	resp, err := c.post(ctx, c.productionURL, receiptData)
	if err != nil {
		return nil, err
	}
	if resp.Status == statusSandboxReceipt {
		c.logger.Debug().Msg("sandbox receipt sent to production, retrying against sandbox")
		return c.post(ctx, c.sandboxURL, receiptData)
	}
	return resp, nil
}

func (c *AppStoreClient) post(ctx context.Context, endpoint, receiptData string) (*verifyReceiptResponse, error) {
	payload := map[string]any{
		"receipt-data": receiptData,
	}
	if c.sharedSecret != "" {
		payload["password"] = c.sharedSecret
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal verify receipt: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("verify receipt request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verify receipt: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("verify receipt: status %d", httpResp.StatusCode)
	}

	var out verifyReceiptResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode verify receipt response: %w", err)
	}
	return &out, nil
}

// latestPurchase picks the most recent receipt item for the product. A
// renewed subscription carries one item per billing period.
func latestPurchase(items []inAppItem, productID string) *inAppItem {
	var latest *inAppItem
	var latestMS int64
	for i := range items {
		item := &items[i]
		if item.ProductID != productID {
			continue
		}
		purchased, err := parseMillis(item.PurchaseDateMS)
		if err != nil {
			continue
		}
		if latest == nil || purchased.UnixMilli() > latestMS {
			latest = item
			latestMS = purchased.UnixMilli()
		}
	}
	return latest
}
