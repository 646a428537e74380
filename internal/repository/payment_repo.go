package repository

import (
	"context"

	"learnhub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.WithContext(ctx).Where("provider_order_id = ?", orderID).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *PaymentRepository) GetByOrderIDForUpdate(ctx context.Context, orderID string) (*models.Payment, error) {
	var p models.Payment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("provider_order_id = ?", orderID).
		First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *PaymentRepository) Update(ctx context.Context, p *models.Payment) error {
	return r.db.WithContext(ctx).Omit("User", "Course").Save(p).Error
}

func (r *PaymentRepository) ListByUser(ctx context.Context, userID uint) ([]models.Payment, error) {
	var list []models.Payment
	err := r.db.WithContext(ctx).Preload("Course").Where("user_id = ?", userID).Order("created_at DESC").Find(&list).Error
	return list, err
}

// List returns payments with optional status filter.
func (r *PaymentRepository) List(ctx context.Context, status string, page, limit int) ([]models.Payment, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Payment{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.Payment
	err := paginate(q.Preload("User").Preload("Course").Order("created_at DESC"), page, limit).Find(&list).Error
	return list, total, err
}
