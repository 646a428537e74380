package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// OrderRequest asks the vendor to open a checkout order.
type OrderRequest struct {
	AmountCents int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

// Order is the vendor's view of an opened checkout.
type Order struct {
	ID          string `json:"id"`
	AmountCents int64  `json:"amount"`
	Currency    string `json:"currency"`
	Receipt     string `json:"receipt"`
	Status      string `json:"status"`
}

// Provider is a checkout vendor. The client completes payment in the vendor's
// modal and posts back order ID, payment ID and a signature.
type Provider interface {
	Name() string
	KeyID() string
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
	VerifyWebhookSignature(body []byte, signature string) bool
}

var ErrProviderUnavailable = errors.New("payment provider unavailable")

// Sign returns hex(HMAC_SHA256(message, secret)).
func Sign(message, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// PaymentSignature is the checkout signature over "order_id|payment_id".
func PaymentSignature(orderID, paymentID, secret string) string {
	return Sign(orderID+"|"+paymentID, secret)
}

func verify(message, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}
	return hmac.Equal([]byte(Sign(message, secret)), []byte(signature))
}

// WebhookEvent is the subset of a vendor webhook the service acts on.
type WebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID       string `json:"id"`
				OrderID  string `json:"order_id"`
				Amount   int64  `json:"amount"`
				Currency string `json:"currency"`
				Status   string `json:"status"`
				Error    string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

const (
	EventPaymentCaptured = "payment.captured"
	EventOrderPaid       = "order.paid"
	EventPaymentFailed   = "payment.failed"
)
