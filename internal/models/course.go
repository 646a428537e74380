package models

import (
	"time"

	"learnhub/internal/domain"

	"gorm.io/gorm"
)

type Category struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"size:120;not null" json:"name"`
	Slug        string         `gorm:"uniqueIndex;size:140;not null" json:"slug"`
	Description string         `gorm:"type:text" json:"description"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Category) TableName() string { return "categories" }

type Course struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Title        string         `gorm:"size:255;not null" json:"title"`
	Slug         string         `gorm:"uniqueIndex;size:280;not null" json:"slug"`
	Description  string         `gorm:"type:text" json:"description"`
	CategoryID   *uint          `gorm:"index" json:"category_id"`
	InstructorID uint           `gorm:"not null;index" json:"instructor_id"`
	PriceCents   int64          `gorm:"not null;default:0" json:"price_cents"`
	Currency     string         `gorm:"size:3;not null;default:'INR'" json:"currency"`
	AccessDays   int            `gorm:"not null;default:0" json:"access_days"` // 0 = lifetime
	Level        string         `gorm:"size:20" json:"level"`
	Status       string         `gorm:"size:20;not null;default:'draft';index" json:"status"`
	ThumbnailURL string         `gorm:"size:512" json:"thumbnail_url"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	Category   *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Instructor *User     `gorm:"foreignKey:InstructorID" json:"instructor,omitempty"`
	Lessons    []Lesson  `gorm:"foreignKey:CourseID" json:"lessons,omitempty"`
}

func (Course) TableName() string { return "courses" }

func (c *Course) IsFree() bool      { return c.PriceCents <= 0 }
func (c *Course) IsPublished() bool { return c.Status == domain.CourseStatusPublished }

// AccessUntil returns when an enrollment starting at from expires, or nil for lifetime access.
func (c *Course) AccessUntil(from time.Time) *time.Time {
	if c.AccessDays <= 0 {
		return nil
	}
	t := from.AddDate(0, 0, c.AccessDays)
	return &t
}

type Lesson struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	CourseID        uint           `gorm:"not null;index:idx_lesson_course_pos" json:"course_id"`
	Title           string         `gorm:"size:255;not null" json:"title"`
	Content         string         `gorm:"type:longtext" json:"content,omitempty"`
	VideoURL        string         `gorm:"size:512" json:"video_url,omitempty"`
	Position        int            `gorm:"not null;default:0;index:idx_lesson_course_pos" json:"position"`
	DurationSeconds int            `gorm:"not null;default:0" json:"duration_seconds"`
	IsPreview       bool           `gorm:"not null;default:false" json:"is_preview"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Lesson) TableName() string { return "lessons" }

// Redact strips the lesson body for callers without course access.
func (l Lesson) Redact() Lesson {
	l.Content = ""
	l.VideoURL = ""
	return l
}
