package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"learnhub/internal/domain"
	"learnhub/internal/models"
	"learnhub/internal/repository"
)

// Notifier is what other services use to tell a user something happened.
type Notifier interface {
	Notify(ctx context.Context, userID uint, notifType, title, body string, data map[string]interface{}) error
}

type NotificationService struct {
	repo   repository.NotificationStore
	users  repository.UserStore
	pusher Pusher
}

// NewNotificationService accepts a nil pusher when push is disabled.
func NewNotificationService(repo repository.NotificationStore, users repository.UserStore, pusher Pusher) *NotificationService {
	return &NotificationService{repo: repo, users: users, pusher: pusher}
}

func (s *NotificationService) Notify(ctx context.Context, userID uint, notifType, title, body string, data map[string]interface{}) error {
	var dataJSON string
	if data != nil {
		b, _ := json.Marshal(data)
		dataJSON = string(b)
	}
	err := s.repo.Create(ctx, &models.Notification{
		UserID: userID,
		Type:   notifType,
		Title:  title,
		Body:   body,
		Data:   dataJSON,
	})
	if err != nil {
		return fmt.Errorf("store notification: %w", err)
	}
	s.push(ctx, userID, notifType, title, body, data)
	return nil
}

func (s *NotificationService) push(ctx context.Context, userID uint, notifType, title, body string, data map[string]interface{}) {
	if s.pusher == nil {
		return
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil || u.FCMToken == "" {
		return
	}
	if err := s.pusher.SendToUser(ctx, u.FCMToken, notifType, title, body, data); err != nil {
		slog.WarnContext(ctx, "push not delivered", "user_id", userID, "type", notifType, "error", err)
	}
}

type NotificationPage struct {
	Items       []models.Notification `json:"items"`
	UnreadCount int64                 `json:"unread_count"`
}

func (s *NotificationService) List(ctx context.Context, userID uint, page, limit int) (*NotificationPage, error) {
	page, limit = pageDefaults(page, limit)
	items, err := s.repo.ListByUserID(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &NotificationPage{Items: items, UnreadCount: unread}, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, id, userID uint) error {
	err := s.repo.MarkRead(ctx, id, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *NotificationService) NotifyEnrolled(ctx context.Context, userID uint, course *models.Course) error {
	return s.Notify(ctx, userID, domain.NotifEnrolled, "Enrolled", "You are now enrolled in "+course.Title,
		map[string]interface{}{"course_id": course.ID})
}

func (s *NotificationService) NotifyPaymentConfirmed(ctx context.Context, userID uint, p *models.Payment) error {
	return s.Notify(ctx, userID, domain.NotifPaymentConfirmed, "Payment confirmed", "Your payment was successful.",
		map[string]interface{}{"course_id": p.CourseID, "amount_cents": p.AmountCents, "order_id": p.ProviderOrderID})
}
