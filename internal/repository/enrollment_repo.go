package repository

import (
	"context"

	"learnhub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EnrollmentRepository struct {
	db *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

func (r *EnrollmentRepository) Get(ctx context.Context, userID, courseID uint) (*models.Enrollment, error) {
	var e models.Enrollment
	err := r.db.WithContext(ctx).Where("user_id = ? AND course_id = ?", userID, courseID).First(&e).Error
	if err != nil {
		return nil, translate(err)
	}
	return &e, nil
}

func (r *EnrollmentRepository) GetForUpdate(ctx context.Context, userID, courseID uint) (*models.Enrollment, error) {
	var e models.Enrollment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&e).Error
	if err != nil {
		return nil, translate(err)
	}
	return &e, nil
}

func (r *EnrollmentRepository) Create(ctx context.Context, e *models.Enrollment) error {
	return translate(r.db.WithContext(ctx).Create(e).Error)
}

func (r *EnrollmentRepository) Update(ctx context.Context, e *models.Enrollment) error {
	return r.db.WithContext(ctx).Omit("Course", "User").Save(e).Error
}

func (r *EnrollmentRepository) ListByUser(ctx context.Context, userID uint) ([]models.Enrollment, error) {
	var list []models.Enrollment
	err := r.db.WithContext(ctx).
		Preload("Course").
		Preload("Course.Instructor").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}

func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseID uint, page, limit int) ([]models.Enrollment, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Enrollment{}).Where("course_id = ?", courseID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.Enrollment
	err := paginate(q.Preload("User").Order("created_at DESC"), page, limit).Find(&list).Error
	return list, total, err
}

// MarkLessonComplete inserts a progress row, ignoring duplicates.
func (r *EnrollmentRepository) MarkLessonComplete(ctx context.Context, p *models.LessonProgress) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(p)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *EnrollmentRepository) CompletedLessonIDs(ctx context.Context, userID, courseID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.LessonProgress{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Pluck("lesson_id", &ids).Error
	return ids, err
}
