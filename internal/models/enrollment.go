package models

import (
	"time"

	"learnhub/internal/domain"
)

type Enrollment struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;uniqueIndex:idx_enrollment_user_course" json:"user_id"`
	CourseID  uint       `gorm:"not null;uniqueIndex:idx_enrollment_user_course;index" json:"course_id"`
	PaymentID *uint      `gorm:"index" json:"payment_id"`
	Status    string     `gorm:"size:20;not null;default:'active';index" json:"status"`
	ExpiresAt *time.Time `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	Course *Course `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	User   *User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (Enrollment) TableName() string { return "enrollments" }

// IsActiveAt reports whether the enrollment grants access at t.
func (e *Enrollment) IsActiveAt(t time.Time) bool {
	if e.Status != domain.EnrollmentActive {
		return false
	}
	return e.ExpiresAt == nil || e.ExpiresAt.After(t)
}

type LessonProgress struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_progress_user_lesson" json:"user_id"`
	LessonID    uint      `gorm:"not null;uniqueIndex:idx_progress_user_lesson" json:"lesson_id"`
	CourseID    uint      `gorm:"not null;index" json:"course_id"`
	CompletedAt time.Time `json:"completed_at"`
}

func (LessonProgress) TableName() string { return "lesson_progress" }
