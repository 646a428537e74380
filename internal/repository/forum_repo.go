package repository

import (
	"context"

	"learnhub/internal/models"

	"gorm.io/gorm"
)

type ForumRepository struct {
	db *gorm.DB
}

func NewForumRepository(db *gorm.DB) *ForumRepository {
	return &ForumRepository{db: db}
}

func (r *ForumRepository) CreateQuestion(ctx context.Context, q *models.ForumQuestion) error {
	return r.db.WithContext(ctx).Create(q).Error
}

func (r *ForumRepository) GetQuestion(ctx context.Context, id uint) (*models.ForumQuestion, error) {
	var q models.ForumQuestion
	if err := r.db.WithContext(ctx).Preload("User").First(&q, id).Error; err != nil {
		return nil, translate(err)
	}
	return &q, nil
}

func (r *ForumRepository) UpdateQuestion(ctx context.Context, q *models.ForumQuestion) error {
	return r.db.WithContext(ctx).Omit("User").Save(q).Error
}

// ListQuestions returns a course's questions newest first. Deleted rows are
// included so callers can render placeholders.
func (r *ForumRepository) ListQuestions(ctx context.Context, courseID uint, page, limit int) ([]models.ForumQuestion, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.ForumQuestion{}).Where("course_id = ?", courseID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.ForumQuestion
	err := paginate(q.Preload("User").Order("created_at DESC"), page, limit).Find(&list).Error
	return list, total, err
}

func (r *ForumRepository) AdjustAnswerCount(ctx context.Context, questionID uint, delta int) error {
	return r.db.WithContext(ctx).Model(&models.ForumQuestion{}).
		Where("id = ?", questionID).
		UpdateColumn("answer_count", gorm.Expr("GREATEST(answer_count + ?, 0)", delta)).Error
}

func (r *ForumRepository) CreateAnswer(ctx context.Context, a *models.ForumAnswer) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *ForumRepository) GetAnswer(ctx context.Context, id uint) (*models.ForumAnswer, error) {
	var a models.ForumAnswer
	if err := r.db.WithContext(ctx).Preload("User").First(&a, id).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (r *ForumRepository) UpdateAnswer(ctx context.Context, a *models.ForumAnswer) error {
	return r.db.WithContext(ctx).Omit("User").Save(a).Error
}

func (r *ForumRepository) ListAnswers(ctx context.Context, questionID uint) ([]models.ForumAnswer, error) {
	var list []models.ForumAnswer
	err := r.db.WithContext(ctx).Preload("User").
		Where("question_id = ?", questionID).
		Order("created_at ASC, id ASC").
		Find(&list).Error
	return list, err
}

func (r *ForumRepository) CreateReply(ctx context.Context, reply *models.ForumReply) error {
	return r.db.WithContext(ctx).Create(reply).Error
}

func (r *ForumRepository) GetReply(ctx context.Context, id uint) (*models.ForumReply, error) {
	var reply models.ForumReply
	if err := r.db.WithContext(ctx).Preload("User").First(&reply, id).Error; err != nil {
		return nil, translate(err)
	}
	return &reply, nil
}

func (r *ForumRepository) UpdateReply(ctx context.Context, reply *models.ForumReply) error {
	return r.db.WithContext(ctx).Omit("User").Save(reply).Error
}

// ListReplies returns every reply under a question in thread order.
func (r *ForumRepository) ListReplies(ctx context.Context, questionID uint) ([]models.ForumReply, error) {
	var list []models.ForumReply
	err := r.db.WithContext(ctx).Preload("User").
		Where("question_id = ?", questionID).
		Order("answer_id ASC, created_at ASC, id ASC").
		Find(&list).Error
	return list, err
}
