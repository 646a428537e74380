package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// StubSecret signs stub checkouts. Development clients compute the
// signature with it in place of the vendor modal.
const StubSecret = "stub_secret"

// StubProvider opens orders locally for development and tests.
type StubProvider struct{}

func (s *StubProvider) Name() string  { return "stub" }
func (s *StubProvider) KeyID() string { return "stub_key" }

func (s *StubProvider) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	return &Order{
		ID:          fmt.Sprintf("order_stub_%s", strings.ReplaceAll(uuid.NewString(), "-", "")[:14]),
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		Receipt:     req.Receipt,
		Status:      "created",
	}, nil
}

func (s *StubProvider) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return verify(orderID+"|"+paymentID, signature, StubSecret)
}

func (s *StubProvider) VerifyWebhookSignature(body []byte, signature string) bool {
	return verify(string(body), signature, StubSecret)
}

// New picks the vendor from configuration. Without a key secret the stub is used.
func New(provider, baseURL, keyID, keySecret, webhookSecret string) Provider {
	if keySecret == "" || provider == "stub" {
		return &StubProvider{}
	}
	return NewRazorpayProvider(baseURL, keyID, keySecret, webhookSecret)
}
