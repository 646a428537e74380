package models

import (
	"time"

	"learnhub/internal/domain"

	"gorm.io/gorm"
)

type User struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Name            string         `gorm:"size:120;not null" json:"name"`
	Email           string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash    string         `gorm:"size:255" json:"-"`
	Role            string         `gorm:"size:20;not null;index" json:"role"` // ADMIN | INSTRUCTOR | STUDENT
	AvatarURL       string         `gorm:"size:512" json:"avatar_url"`
	Bio             string         `gorm:"type:text" json:"bio,omitempty"`
	GoogleID        *string        `gorm:"uniqueIndex;size:255" json:"-"` // nil for email signups
	EmailVerifiedAt *time.Time     `json:"email_verified_at"`
	IsActive        bool           `gorm:"not null;default:true" json:"is_active"`
	FCMToken        string         `gorm:"size:512" json:"-"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) IsAdmin() bool      { return u.Role == domain.RoleAdmin }
func (u *User) IsInstructor() bool { return u.Role == domain.RoleInstructor }

// UserSummary is the public projection of a user embedded in forum and course responses.
type UserSummary struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	Role      string `json:"role"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, AvatarURL: u.AvatarURL, Role: u.Role}
}
