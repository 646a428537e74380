package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"learnhub/internal/domain"
	"learnhub/internal/models"
	"learnhub/internal/repository"
	"learnhub/pkg/payment"

	"github.com/google/uuid"
)

type PaymentService struct {
	provider    payment.Provider
	tx          repository.TxRunner
	payments    repository.PaymentStore
	courses     repository.CourseStore
	enrollments repository.EnrollmentStore
	audit       repository.AuditLogStore
	notifier    *NotificationService
	now         func() time.Time
}

func NewPaymentService(provider payment.Provider, tx repository.TxRunner, payments repository.PaymentStore, courses repository.CourseStore, enrollments repository.EnrollmentStore, audit repository.AuditLogStore, notifier *NotificationService) *PaymentService {
	return &PaymentService{
		provider:    provider,
		tx:          tx,
		payments:    payments,
		courses:     courses,
		enrollments: enrollments,
		audit:       audit,
		notifier:    notifier,
		now:         time.Now,
	}
}

// CheckoutOrder is what the client needs to open the vendor checkout.
type CheckoutOrder struct {
	OrderID   string `json:"order_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	KeyID     string `json:"key_id"`
	Receipt   string `json:"receipt"`
	CourseID  uint   `json:"course_id"`
	PaymentID uint   `json:"payment_id"`
	Provider  string `json:"provider"`
}

func (s *PaymentService) CreateOrder(ctx context.Context, actor Actor, courseID uint) (*CheckoutOrder, error) {
	c, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, notFound(err)
	}
	if !c.IsPublished() {
		return nil, ErrNotPublished
	}
	if c.IsFree() {
		return nil, ErrFreeCourse
	}
	e, err := s.enrollments.Get(ctx, actor.ID, courseID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if e != nil && e.IsActiveAt(s.now()) {
		return nil, ErrAlreadyEnrolled
	}

	receipt := "rcpt_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
	order, err := s.provider.CreateOrder(ctx, payment.OrderRequest{
		AmountCents: c.PriceCents,
		Currency:    c.Currency,
		Receipt:     receipt,
		Notes: map[string]string{
			"course_id": strconv.FormatUint(uint64(c.ID), 10),
			"user_id":   strconv.FormatUint(uint64(actor.ID), 10),
		},
	})
	if err != nil {
		slog.ErrorContext(ctx, "create order failed", "course_id", c.ID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	p := &models.Payment{
		UserID:          actor.ID,
		CourseID:        c.ID,
		AmountCents:     c.PriceCents,
		Currency:        c.Currency,
		Provider:        s.provider.Name(),
		Receipt:         receipt,
		ProviderOrderID: order.ID,
		Status:          domain.PaymentPending,
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("store payment: %w", err)
	}
	return &CheckoutOrder{
		OrderID:   order.ID,
		Amount:    p.AmountCents,
		Currency:  p.Currency,
		KeyID:     s.provider.KeyID(),
		Receipt:   receipt,
		CourseID:  c.ID,
		PaymentID: p.ID,
		Provider:  p.Provider,
	}, nil
}

type VerifyResult struct {
	Payment    *models.Payment    `json:"payment"`
	Enrollment *models.Enrollment `json:"enrollment"`
}

// VerifyPayment checks the checkout signature and, in one transaction,
// completes the payment and grants the enrollment. Verifying an already
// completed payment returns the existing enrollment.
func (s *PaymentService) VerifyPayment(ctx context.Context, actor Actor, orderID, paymentID, signature string) (*VerifyResult, error) {
	p, err := s.payments.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, notFound(err)
	}
	if p.UserID != actor.ID {
		return nil, ErrForbidden
	}
	if !s.provider.VerifyPaymentSignature(orderID, paymentID, signature) {
		s.markFailed(ctx, orderID, "signature mismatch")
		s.record(ctx, &p.UserID, "payment_signature_invalid", orderID, nil)
		return nil, ErrInvalidSignature
	}
	res, fresh, err := s.complete(ctx, orderID, paymentID, nil)
	if err != nil {
		return nil, err
	}
	if fresh {
		s.afterCompletion(ctx, res)
	}
	return res, nil
}

// HandleWebhook processes a signed vendor event. Unknown orders are acknowledged.
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !s.provider.VerifyWebhookSignature(body, signature) {
		return ErrInvalidSignature
	}
	var ev payment.WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: malformed webhook", ErrInvalidInput)
	}
	entity := ev.Payload.Payment.Entity
	if entity.OrderID == "" {
		return nil
	}
	switch ev.Event {
	case payment.EventPaymentCaptured, payment.EventOrderPaid:
		charged := func(p *models.Payment) error {
			if entity.Amount != p.AmountCents || !strings.EqualFold(entity.Currency, p.Currency) {
				return fmt.Errorf("%w: got %d %s, want %d %s", ErrAmountMismatch, entity.Amount, entity.Currency, p.AmountCents, p.Currency)
			}
			return nil
		}
		res, fresh, err := s.complete(ctx, entity.OrderID, entity.ID, charged)
		if errors.Is(err, ErrNotFound) {
			slog.WarnContext(ctx, "webhook for unknown order", "order_id", entity.OrderID)
			return nil
		}
		if errors.Is(err, ErrAmountMismatch) {
			slog.WarnContext(ctx, "webhook amount mismatch", "order_id", entity.OrderID, "error", err)
			s.markFailed(ctx, entity.OrderID, "amount mismatch")
			s.record(ctx, nil, "payment_amount_mismatch", entity.OrderID, map[string]interface{}{
				"amount":   entity.Amount,
				"currency": entity.Currency,
			})
			return nil
		}
		if err != nil {
			return err
		}
		if fresh {
			s.afterCompletion(ctx, res)
		}
	case payment.EventPaymentFailed:
		reason := entity.Error
		if reason == "" {
			reason = "declined by provider"
		}
		s.markFailed(ctx, entity.OrderID, reason)
	}
	return nil
}

// complete reports fresh=false when the payment was already completed.
// check, when set, vets the locked payment before it is completed.
func (s *PaymentService) complete(ctx context.Context, orderID, providerPaymentID string, check func(*models.Payment) error) (*VerifyResult, bool, error) {
	var res *VerifyResult
	fresh := false
	err := s.tx.WithTx(ctx, func(st repository.Stores) error {
		p, err := st.Payments().GetByOrderIDForUpdate(ctx, orderID)
		if err != nil {
			return notFound(err)
		}
		if p.Status == domain.PaymentCompleted {
			e, err := st.Enrollments().Get(ctx, p.UserID, p.CourseID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			res = &VerifyResult{Payment: p, Enrollment: e}
			return nil
		}
		if check != nil {
			if err := check(p); err != nil {
				return err
			}
		}
		c, err := s.courses.GetByID(ctx, p.CourseID)
		if err != nil {
			return notFound(err)
		}
		now := s.now()
		pid := providerPaymentID
		p.Status = domain.PaymentCompleted
		p.ProviderPaymentID = &pid
		p.CompletedAt = &now
		p.FailureReason = ""
		if err := st.Payments().Update(ctx, p); err != nil {
			return fmt.Errorf("complete payment: %w", err)
		}
		e, err := grantEnrollment(ctx, st.Enrollments(), p.UserID, c, &p.ID, now)
		if err != nil {
			return err
		}
		res = &VerifyResult{Payment: p, Enrollment: e}
		fresh = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return res, fresh, nil
}

func (s *PaymentService) afterCompletion(ctx context.Context, res *VerifyResult) {
	p := res.Payment
	if err := s.notifier.NotifyPaymentConfirmed(ctx, p.UserID, p); err != nil {
		slog.WarnContext(ctx, "payment notification failed", "payment_id", p.ID, "error", err)
	}
	s.record(ctx, &p.UserID, "payment_completed", p.ProviderOrderID, map[string]interface{}{
		"course_id":    p.CourseID,
		"amount_cents": p.AmountCents,
	})
}

func (s *PaymentService) markFailed(ctx context.Context, orderID, reason string) {
	err := s.tx.WithTx(ctx, func(st repository.Stores) error {
		p, err := st.Payments().GetByOrderIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if p.Status != domain.PaymentPending {
			return nil
		}
		p.Status = domain.PaymentFailed
		p.FailureReason = reason
		return st.Payments().Update(ctx, p)
	})
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		slog.WarnContext(ctx, "could not mark payment failed", "order_id", orderID, "error", err)
	}
}

func (s *PaymentService) record(ctx context.Context, userID *uint, action, orderID string, meta map[string]interface{}) {
	var metaJSON string
	if meta != nil {
		b, _ := json.Marshal(meta)
		metaJSON = string(b)
	}
	err := s.audit.Create(ctx, &models.AuditLog{
		UserID:     userID,
		Action:     action,
		Resource:   "payment",
		ResourceID: orderID,
		Metadata:   metaJSON,
	})
	if err != nil {
		slog.WarnContext(ctx, "audit log write failed", "action", action, "error", err)
	}
}

func (s *PaymentService) MyPayments(ctx context.Context, userID uint) ([]models.Payment, error) {
	return s.payments.ListByUser(ctx, userID)
}

type PaymentPage struct {
	Items []models.Payment `json:"items"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

func (s *PaymentService) List(ctx context.Context, status string, page, limit int) (*PaymentPage, error) {
	page, limit = pageDefaults(page, limit)
	items, total, err := s.payments.List(ctx, strings.ToUpper(status), page, limit)
	if err != nil {
		return nil, err
	}
	return &PaymentPage{Items: items, Total: total, Page: page, Limit: limit}, nil
}
