package repository

import (
	"context"

	"learnhub/internal/models"

	"gorm.io/gorm"
)

type CourseRepository struct {
	db *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

func (r *CourseRepository) Create(ctx context.Context, c *models.Course) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *CourseRepository) GetByID(ctx context.Context, id uint) (*models.Course, error) {
	var c models.Course
	err := r.db.WithContext(ctx).Preload("Category").Preload("Instructor").First(&c, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *CourseRepository) GetWithLessons(ctx context.Context, id uint) (*models.Course, error) {
	var c models.Course
	err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Instructor").
		Preload("Lessons", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, id ASC") }).
		First(&c, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *CourseRepository) Update(ctx context.Context, c *models.Course) error {
	return r.db.WithContext(ctx).Omit("Category", "Instructor", "Lessons").Save(c).Error
}

func (r *CourseRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Course{}, id).Error
}

// List returns courses with search, category, status and instructor filters.
func (r *CourseRepository) List(ctx context.Context, f CourseFilter) ([]models.Course, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Course{})
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Where("title LIKE ? OR description LIKE ?", like, like)
	}
	if f.CategoryID != 0 {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.InstructorID != 0 {
		q = q.Where("instructor_id = ?", f.InstructorID)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.Course
	err := paginate(q.Preload("Category").Preload("Instructor").Order("created_at DESC"), f.Page, f.Limit).Find(&list).Error
	return list, total, err
}

func (r *CourseRepository) IDsByInstructor(ctx context.Context, instructorID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Course{}).Where("instructor_id = ?", instructorID).Pluck("id", &ids).Error
	return ids, err
}

func (r *CourseRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Unscoped().Model(&models.Course{}).Where("slug = ?", slug).Count(&n).Error
	return n > 0, err
}

func (r *CourseRepository) CreateLesson(ctx context.Context, l *models.Lesson) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *CourseRepository) GetLesson(ctx context.Context, id uint) (*models.Lesson, error) {
	var l models.Lesson
	if err := r.db.WithContext(ctx).First(&l, id).Error; err != nil {
		return nil, translate(err)
	}
	return &l, nil
}

func (r *CourseRepository) UpdateLesson(ctx context.Context, l *models.Lesson) error {
	return r.db.WithContext(ctx).Save(l).Error
}

func (r *CourseRepository) DeleteLesson(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Lesson{}, id).Error
}

func (r *CourseRepository) CountLessons(ctx context.Context, courseID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Lesson{}).Where("course_id = ?", courseID).Count(&n).Error
	return n, err
}

func (r *CourseRepository) MaxLessonPosition(ctx context.Context, courseID uint) (int, error) {
	var res struct{ Max int }
	err := r.db.WithContext(ctx).Model(&models.Lesson{}).
		Select("COALESCE(MAX(position), 0) as max").
		Where("course_id = ?", courseID).
		Scan(&res).Error
	return res.Max, err
}
