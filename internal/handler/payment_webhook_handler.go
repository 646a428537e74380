package handler

import (
	"errors"
	"io"
	"net/http"

	"learnhub/internal/service"

	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 1 << 20

type PaymentWebhookHandler struct {
	paymentSvc *service.PaymentService
}

func NewPaymentWebhookHandler(paymentSvc *service.PaymentService) *PaymentWebhookHandler {
	return &PaymentWebhookHandler{paymentSvc: paymentSvc}
}

// Handle verifies the vendor signature over the raw body before any parsing.
// Processed and unknown events are both acknowledged with 200 so the vendor
// stops retrying.
func (h *PaymentWebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		badRequest(c, "invalid body")
		return
	}
	sig := c.GetHeader("X-Razorpay-Signature")
	if sig == "" {
		sig = c.GetHeader("X-Webhook-Signature")
	}
	if err := h.paymentSvc.HandleWebhook(c.Request.Context(), body, sig); err != nil {
		if errors.Is(err, service.ErrInvalidSignature) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature", "message": "invalid signature"})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
