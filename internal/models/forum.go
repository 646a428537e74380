package models

import (
	"time"
)

// SoftDelete carries the moderation audit trail shared by forum posts.
// Rows are flagged, never removed.
type SoftDelete struct {
	IsDeleted    bool       `gorm:"not null;default:false;index" json:"is_deleted"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
	DeletedBy    *uint      `json:"deleted_by,omitempty"`
	DeleteReason string     `gorm:"size:500" json:"delete_reason,omitempty"`
}

func (s *SoftDelete) MarkDeleted(by uint, reason string, at time.Time) {
	s.IsDeleted = true
	s.DeletedAt = &at
	s.DeletedBy = &by
	s.DeleteReason = reason
}

type ForumQuestion struct {
	ID               uint   `gorm:"primaryKey" json:"id"`
	CourseID         uint   `gorm:"not null;index:idx_fq_course_created,priority:1" json:"course_id"`
	UserID           uint   `gorm:"not null;index" json:"user_id"`
	Title            string `gorm:"size:255;not null" json:"title"`
	Body             string `gorm:"type:text;not null" json:"body"`
	IsLocked         bool   `gorm:"not null;default:false" json:"is_locked"`
	IsSolved         bool   `gorm:"not null;default:false" json:"is_solved"`
	AcceptedAnswerID *uint  `json:"accepted_answer_id"`
	AnswerCount      int    `gorm:"not null;default:0" json:"answer_count"`
	SoftDelete       `gorm:"embedded"`
	CreatedAt        time.Time `gorm:"index:idx_fq_course_created,priority:2" json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (ForumQuestion) TableName() string { return "forum_questions" }

type ForumAnswer struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	QuestionID uint   `gorm:"not null;index" json:"question_id"`
	UserID     uint   `gorm:"not null;index" json:"user_id"`
	Body       string `gorm:"type:text;not null" json:"body"`
	SoftDelete `gorm:"embedded"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (ForumAnswer) TableName() string { return "forum_answers" }

// ForumReply is a threaded reply under an answer. ParentID nil means top level.
type ForumReply struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	QuestionID uint   `gorm:"not null;index;index:idx_reply_thread,priority:1" json:"question_id"`
	AnswerID   uint   `gorm:"not null;index;index:idx_reply_thread,priority:2" json:"answer_id"`
	ParentID   *uint  `gorm:"index" json:"parent_id"`
	UserID     uint   `gorm:"not null;index" json:"user_id"`
	ReplyText  string `gorm:"type:text;not null" json:"reply_text"`
	SoftDelete `gorm:"embedded"`
	CreatedAt  time.Time `gorm:"index:idx_reply_thread,priority:3" json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (ForumReply) TableName() string { return "forum_replies" }

type ForumReport struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	TargetType   string     `gorm:"size:20;not null;index:idx_report_dedupe,priority:1" json:"target_type"`
	TargetID     uint       `gorm:"not null;index:idx_report_dedupe,priority:2" json:"target_id"`
	TargetUserID uint       `gorm:"not null;index:idx_report_target_user,priority:1" json:"target_user_id"`
	CourseID     uint       `gorm:"not null;index:idx_report_course,priority:1" json:"course_id"`
	ReporterID   uint       `gorm:"not null;index:idx_report_dedupe,priority:3" json:"reporter_id"`
	Reason       string     `gorm:"size:30;not null;index:idx_report_target_user,priority:2" json:"reason"`
	Note         string     `gorm:"size:1000" json:"note"`
	Status       string     `gorm:"size:20;not null;default:'pending';index:idx_report_target_user,priority:3;index:idx_report_course,priority:2;index:idx_report_dedupe,priority:4" json:"status"`
	ActionBy     *uint      `json:"action_by"`
	ActionNote   string     `gorm:"size:1000" json:"action_note"`
	ActionAt     *time.Time `json:"action_at"`
	CreatedAt    time.Time  `gorm:"index:idx_report_course,priority:3" json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Reporter   *User `gorm:"foreignKey:ReporterID" json:"reporter,omitempty"`
	TargetUser *User `gorm:"foreignKey:TargetUserID" json:"target_user,omitempty"`
}

func (ForumReport) TableName() string { return "forum_reports" }
