package request

// ValidateGooglePlayReceipt is the payload for Google Play purchase validation.
type ValidateGooglePlayReceipt struct {
	PurchaseToken string `json:"purchaseToken" validate:"required"`
	ProductID     string `json:"productId" validate:"required"`
	UserID        string `json:"userId" validate:"required"`
}

// ValidateAppStoreReceipt is the payload for App Store receipt validation.
// ReceiptData carries the base64-encoded receipt from StoreKit.
type ValidateAppStoreReceipt struct {
	ReceiptData string `json:"receiptData" validate:"required"`
	ProductID   string `json:"productId" validate:"required"`
	UserID      string `json:"userId" validate:"required"`
}

// CheckSubscription is the payload for an on-demand expiration check.
type CheckSubscription struct {
	UserID string `json:"userId" validate:"required"`
}
