package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentSignature(t *testing.T) {
	sig := PaymentSignature("order_1", "pay_1", "secret")
	assert.Equal(t, "52115a0d3400de9e86aade1f1b6eba9e8974604f4e267a9e9a16633a4c8dd2cb", sig)

	p := NewRazorpayProvider("", "key", "secret", "whsec")
	assert.True(t, p.VerifyPaymentSignature("order_1", "pay_1", sig))
	assert.False(t, p.VerifyPaymentSignature("order_1", "pay_2", sig))
	assert.False(t, p.VerifyPaymentSignature("order_1", "pay_1", ""))
}

func TestWebhookSignature(t *testing.T) {
	body := []byte(`{"event":"payment.captured"}`)
	p := NewRazorpayProvider("", "key", "secret", "whsec")
	assert.True(t, p.VerifyWebhookSignature(body, Sign(string(body), "whsec")))
	assert.False(t, p.VerifyWebhookSignature(body, Sign(string(body), "secret")))

	noSecret := NewRazorpayProvider("", "key", "secret", "")
	assert.False(t, noSecret.VerifyWebhookSignature(body, Sign(string(body), "")))
}

func TestRazorpayCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)

		var req razorpayOrderReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(49900), req.Amount)

		_ = json.NewEncoder(w).Encode(razorpayOrderResp{
			ID: "order_abc", Amount: req.Amount, Currency: req.Currency, Receipt: req.Receipt, Status: "created",
		})
	}))
	defer srv.Close()

	p := NewRazorpayProvider(srv.URL, "key", "secret", "")
	o, err := p.CreateOrder(context.Background(), OrderRequest{AmountCents: 49900, Currency: "INR", Receipt: "rcpt_1"})
	require.NoError(t, err)
	assert.Equal(t, "order_abc", o.ID)
	assert.Equal(t, "rcpt_1", o.Receipt)
}

func TestRazorpayCreateOrderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"description":"amount too small"}}`))
	}))
	defer srv.Close()

	p := NewRazorpayProvider(srv.URL, "key", "secret", "")
	_, err := p.CreateOrder(context.Background(), OrderRequest{AmountCents: 1, Currency: "INR"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amount too small")
}

func TestNewFallsBackToStub(t *testing.T) {
	_, ok := New("razorpay", "", "key", "", "").(*StubProvider)
	assert.True(t, ok)
	_, ok = New("razorpay", "", "key", "secret", "").(*RazorpayProvider)
	assert.True(t, ok)
}
