package repository

import (
	"context"
	"time"

	"learnhub/internal/domain"
	"learnhub/internal/models"

	"gorm.io/gorm"
)

type DashboardStats struct {
	TotalUsers       int64 `json:"total_users"`
	TotalStudents    int64 `json:"total_students"`
	TotalInstructors int64 `json:"total_instructors"`
	TotalCourses     int64 `json:"total_courses"`
	PublishedCourses int64 `json:"published_courses"`
	TotalEnrollments int64 `json:"total_enrollments"`
	ActiveEnrollment int64 `json:"active_enrollments"`
	TotalRevenue     int64 `json:"total_revenue_cents"`
	CompletedOrders  int64 `json:"completed_payments"`
	PendingReports   int64 `json:"pending_reports"`
	ExamAttempts     int64 `json:"exam_attempts"`
	ForumQuestions   int64 `json:"forum_questions"`
}

type TimeSeriesPoint struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type RevenuePoint struct {
	Date        string `json:"date"`
	AmountCents int64  `json:"amount_cents"`
}

type AdminRepository struct {
	db *gorm.DB
}

func NewAdminRepository(db *gorm.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

func (r *AdminRepository) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	db := r.db.WithContext(ctx)
	var s DashboardStats
	counts := []struct {
		q   *gorm.DB
		dst *int64
	}{
		{db.Model(&models.User{}), &s.TotalUsers},
		{db.Model(&models.User{}).Where("role = ?", domain.RoleStudent), &s.TotalStudents},
		{db.Model(&models.User{}).Where("role = ?", domain.RoleInstructor), &s.TotalInstructors},
		{db.Model(&models.Course{}), &s.TotalCourses},
		{db.Model(&models.Course{}).Where("status = ?", domain.CourseStatusPublished), &s.PublishedCourses},
		{db.Model(&models.Enrollment{}), &s.TotalEnrollments},
		{db.Model(&models.Enrollment{}).Where("status = ? AND (expires_at IS NULL OR expires_at > ?)", domain.EnrollmentActive, time.Now()), &s.ActiveEnrollment},
		{db.Model(&models.Payment{}).Where("status = ?", domain.PaymentCompleted), &s.CompletedOrders},
		{db.Model(&models.ForumReport{}).Where("status = ?", domain.ReportPending), &s.PendingReports},
		{db.Model(&models.ExamAttempt{}), &s.ExamAttempts},
		{db.Model(&models.ForumQuestion{}).Where("is_deleted = ?", false), &s.ForumQuestions},
	}
	for _, c := range counts {
		if err := c.q.Count(c.dst).Error; err != nil {
			return nil, err
		}
	}

	var rev struct{ Total int64 }
	err := db.Model(&models.Payment{}).
		Select("COALESCE(SUM(amount_cents), 0) as total").
		Where("status = ?", domain.PaymentCompleted).
		Scan(&rev).Error
	if err != nil {
		return nil, err
	}
	s.TotalRevenue = rev.Total
	return &s, nil
}

// ListUsers returns users with search, role filter, and pagination.
func (r *AdminRepository) ListUsers(ctx context.Context, search, role string, page, limit int) ([]models.User, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.User{})
	if search != "" {
		q = q.Where("name LIKE ? OR email LIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if role != "" {
		q = q.Where("role = ?", role)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []models.User
	err := paginate(q.Order("created_at DESC"), page, limit).Find(&users).Error
	return users, total, err
}

// UpdateUser updates specific fields on a user.
func (r *AdminRepository) UpdateUser(ctx context.Context, id uint, updates map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UserSignupsByDay returns daily signup counts for the last N days.
func (r *AdminRepository) UserSignupsByDay(ctx context.Context, days int) ([]TimeSeriesPoint, error) {
	return r.countByDay(ctx, &models.User{}, days)
}

// EnrollmentsByDay returns daily enrollment counts for the last N days.
func (r *AdminRepository) EnrollmentsByDay(ctx context.Context, days int) ([]TimeSeriesPoint, error) {
	return r.countByDay(ctx, &models.Enrollment{}, days)
}

func (r *AdminRepository) countByDay(ctx context.Context, model interface{}, days int) ([]TimeSeriesPoint, error) {
	since := time.Now().AddDate(0, 0, -days)
	var points []TimeSeriesPoint
	err := r.db.WithContext(ctx).Model(model).
		Select("DATE(created_at) as date, COUNT(*) as count").
		Where("created_at >= ?", since).
		Group("DATE(created_at)").
		Order("date ASC").
		Scan(&points).Error
	return points, err
}

// RevenueByDay returns daily completed payment revenue for the last N days.
func (r *AdminRepository) RevenueByDay(ctx context.Context, days int) ([]RevenuePoint, error) {
	since := time.Now().AddDate(0, 0, -days)
	var points []RevenuePoint
	err := r.db.WithContext(ctx).Model(&models.Payment{}).
		Select("DATE(completed_at) as date, COALESCE(SUM(amount_cents), 0) as amount_cents").
		Where("status = ? AND completed_at >= ?", domain.PaymentCompleted, since).
		Group("DATE(completed_at)").
		Order("date ASC").
		Scan(&points).Error
	return points, err
}
