package handler

import (
	"net/http"
	"strconv"

	"learnhub/internal/repository"
	"learnhub/internal/service"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	svc       *service.PaymentService
	auditRepo repository.AuditLogStore
}

func NewPaymentHandler(svc *service.PaymentService, auditRepo repository.AuditLogStore) *PaymentHandler {
	return &PaymentHandler{svc: svc, auditRepo: auditRepo}
}

// CreateOrder opens a vendor order for a paid course.
func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req struct {
		CourseID uint `json:"course_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	order, err := h.svc.CreateOrder(c.Request.Context(), a, req.CourseID)
	if err != nil {
		respondError(c, err)
		return
	}
	auditLog(c, h.auditRepo, a.ID, "payment_order_created", "payment", order.OrderID, map[string]interface{}{"course_id": req.CourseID, "amount": order.Amount})
	c.JSON(http.StatusCreated, order)
}

// VerifyPayment confirms a checkout. Verifying twice returns the same enrollment.
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req struct {
		OrderID   string `json:"order_id" binding:"required"`
		PaymentID string `json:"payment_id" binding:"required"`
		Signature string `json:"signature" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := h.svc.VerifyPayment(c.Request.Context(), a, req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// List handles GET /admin/payments.
func (h *PaymentHandler) List(c *gin.Context) {
	page, limit := parsePagination(c)
	res, err := h.svc.List(c.Request.Context(), c.Query("status"), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": res.Items, "total": res.Total, "page": res.Page, "limit": res.Limit})
}

func formatID(id uint) string { return strconv.FormatUint(uint64(id), 10) }
