package repository

import (
	"context"

	"learnhub/internal/models"

	"gorm.io/gorm"
)

type ExamRepository struct {
	db *gorm.DB
}

func NewExamRepository(db *gorm.DB) *ExamRepository {
	return &ExamRepository{db: db}
}

func (r *ExamRepository) Create(ctx context.Context, e *models.Exam) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *ExamRepository) GetByID(ctx context.Context, id uint) (*models.Exam, error) {
	var e models.Exam
	if err := r.db.WithContext(ctx).First(&e, id).Error; err != nil {
		return nil, translate(err)
	}
	return &e, nil
}

func (r *ExamRepository) GetWithQuestions(ctx context.Context, id uint) (*models.Exam, error) {
	var e models.Exam
	err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, id ASC") }).
		First(&e, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &e, nil
}

func (r *ExamRepository) ListByCourse(ctx context.Context, courseID uint) ([]models.Exam, error) {
	var list []models.Exam
	err := r.db.WithContext(ctx).Where("course_id = ?", courseID).Order("created_at ASC").Find(&list).Error
	return list, err
}

func (r *ExamRepository) CreateQuestion(ctx context.Context, q *models.ExamQuestion) error {
	return r.db.WithContext(ctx).Create(q).Error
}

func (r *ExamRepository) GetQuestion(ctx context.Context, id uint) (*models.ExamQuestion, error) {
	var q models.ExamQuestion
	if err := r.db.WithContext(ctx).First(&q, id).Error; err != nil {
		return nil, translate(err)
	}
	return &q, nil
}

func (r *ExamRepository) DeleteQuestion(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.ExamQuestion{}, id).Error
}

func (r *ExamRepository) CountAttempts(ctx context.Context, examID, userID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.ExamAttempt{}).
		Where("exam_id = ? AND user_id = ?", examID, userID).
		Count(&n).Error
	return n, err
}

func (r *ExamRepository) CreateAttempt(ctx context.Context, a *models.ExamAttempt) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *ExamRepository) ListAttempts(ctx context.Context, examID, userID uint) ([]models.ExamAttempt, error) {
	var list []models.ExamAttempt
	err := r.db.WithContext(ctx).
		Where("exam_id = ? AND user_id = ?", examID, userID).
		Order("attempt_no ASC").
		Find(&list).Error
	return list, err
}
