package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

type Exam struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CourseID    uint           `gorm:"not null;index" json:"course_id"`
	Title       string         `gorm:"size:255;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	PassPercent int            `gorm:"not null;default:60" json:"pass_percent"`
	MaxAttempts int            `gorm:"not null;default:3" json:"max_attempts"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Questions []ExamQuestion `gorm:"foreignKey:ExamID" json:"questions,omitempty"`
}

func (Exam) TableName() string { return "exams" }

type ExamQuestion struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	ExamID        uint           `gorm:"not null;index" json:"exam_id"`
	Text          string         `gorm:"type:text;not null" json:"text"`
	Options       string         `gorm:"type:text;not null" json:"-"` // JSON array of strings
	CorrectAnswer int            `gorm:"not null" json:"-"`
	Points        int            `gorm:"not null;default:1" json:"points"`
	Position      int            `gorm:"not null;default:0" json:"position"`
	CreatedAt     time.Time      `json:"created_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (ExamQuestion) TableName() string { return "exam_questions" }

// OptionList decodes the stored options; malformed rows yield an empty list.
func (q *ExamQuestion) OptionList() []string {
	var opts []string
	if err := json.Unmarshal([]byte(q.Options), &opts); err != nil {
		return []string{}
	}
	return opts
}

type ExamAttempt struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ExamID       uint      `gorm:"not null;index:idx_attempt_exam_user" json:"exam_id"`
	UserID       uint      `gorm:"not null;index:idx_attempt_exam_user" json:"user_id"`
	AttemptNo    int       `gorm:"not null" json:"attempt_no"`
	Score        int       `gorm:"not null" json:"score"`
	MaxScore     int       `gorm:"not null" json:"max_score"`
	Percent      float64   `gorm:"not null" json:"percent"`
	Passed       bool      `gorm:"not null" json:"passed"`
	CorrectCount int       `gorm:"not null" json:"correct_count"`
	Answers      string    `gorm:"type:text" json:"-"` // JSON map question_id -> option index
	CreatedAt    time.Time `json:"created_at"`
}

func (ExamAttempt) TableName() string { return "exam_attempts" }
