package repository

import (
	"context"

	"gorm.io/gorm"
)

type txStores struct {
	tx *gorm.DB
}

func (s txStores) Payments() PaymentStore       { return NewPaymentRepository(s.tx) }
func (s txStores) Enrollments() EnrollmentStore { return NewEnrollmentRepository(s.tx) }
func (s txStores) Exams() ExamStore             { return NewExamRepository(s.tx) }
func (s txStores) Forum() ForumStore            { return NewForumRepository(s.tx) }
func (s txStores) Reports() ReportStore         { return NewReportRepository(s.tx) }

type GormTxRunner struct {
	db *gorm.DB
}

func NewTxRunner(db *gorm.DB) *GormTxRunner {
	return &GormTxRunner{db: db}
}

// WithTx commits when fn returns nil and rolls back otherwise.
func (r *GormTxRunner) WithTx(ctx context.Context, fn func(s Stores) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(txStores{tx: tx})
	})
}
