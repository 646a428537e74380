package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RazorpayProvider talks to the Razorpay Orders REST API.
type RazorpayProvider struct {
	BaseURL       string
	keyID         string
	keySecret     string
	webhookSecret string
	client        *http.Client
}

func NewRazorpayProvider(baseURL, keyID, keySecret, webhookSecret string) *RazorpayProvider {
	if baseURL == "" {
		baseURL = "https://api.razorpay.com/v1"
	}
	return &RazorpayProvider{
		BaseURL:       baseURL,
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		client:        &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *RazorpayProvider) Name() string  { return "razorpay" }
func (p *RazorpayProvider) KeyID() string { return p.keyID }

type razorpayOrderReq struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type razorpayOrderResp struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
	Error    *struct {
		Description string `json:"description"`
	} `json:"error"`
}

func (p *RazorpayProvider) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	body, _ := json.Marshal(razorpayOrderReq{
		Amount:   req.AmountCents,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Notes:    req.Notes,
	})
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(p.keyID, p.keySecret)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)

	var out razorpayOrderResp
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("razorpay: decode order (%d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || out.ID == "" {
		msg := string(respBody)
		if out.Error != nil {
			msg = out.Error.Description
		}
		return nil, fmt.Errorf("razorpay: create order failed: %d %s", resp.StatusCode, msg)
	}
	return &Order{
		ID:          out.ID,
		AmountCents: out.Amount,
		Currency:    out.Currency,
		Receipt:     out.Receipt,
		Status:      out.Status,
	}, nil
}

func (p *RazorpayProvider) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return verify(orderID+"|"+paymentID, signature, p.keySecret)
}

func (p *RazorpayProvider) VerifyWebhookSignature(body []byte, signature string) bool {
	return verify(string(body), signature, p.webhookSecret)
}
