package repository

import (
	"context"
	"errors"

	"learnhub/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a unique index.
var ErrDuplicate = errors.New("duplicate key")

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
	CountByRole(ctx context.Context, role string) (int64, error)
}

type CategoryStore interface {
	List(ctx context.Context) ([]models.Category, error)
	GetByID(ctx context.Context, id uint) (*models.Category, error)
	SlugExists(ctx context.Context, slug string, excludeID uint) (bool, error)
	Create(ctx context.Context, c *models.Category) error
	Update(ctx context.Context, c *models.Category) error
	Delete(ctx context.Context, id uint) error
	CountCourses(ctx context.Context, id uint) (int64, error)
}

type CourseFilter struct {
	Search       string
	CategoryID   uint
	Status       string
	InstructorID uint
	Page         int
	Limit        int
}

type CourseStore interface {
	Create(ctx context.Context, c *models.Course) error
	GetByID(ctx context.Context, id uint) (*models.Course, error)
	GetWithLessons(ctx context.Context, id uint) (*models.Course, error)
	Update(ctx context.Context, c *models.Course) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, f CourseFilter) ([]models.Course, int64, error)
	IDsByInstructor(ctx context.Context, instructorID uint) ([]uint, error)
	SlugExists(ctx context.Context, slug string) (bool, error)

	CreateLesson(ctx context.Context, l *models.Lesson) error
	GetLesson(ctx context.Context, id uint) (*models.Lesson, error)
	UpdateLesson(ctx context.Context, l *models.Lesson) error
	DeleteLesson(ctx context.Context, id uint) error
	CountLessons(ctx context.Context, courseID uint) (int64, error)
	MaxLessonPosition(ctx context.Context, courseID uint) (int, error)
}

type EnrollmentStore interface {
	Get(ctx context.Context, userID, courseID uint) (*models.Enrollment, error)
	// GetForUpdate locks the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, userID, courseID uint) (*models.Enrollment, error)
	Create(ctx context.Context, e *models.Enrollment) error
	Update(ctx context.Context, e *models.Enrollment) error
	ListByUser(ctx context.Context, userID uint) ([]models.Enrollment, error)
	ListByCourse(ctx context.Context, courseID uint, page, limit int) ([]models.Enrollment, int64, error)
	MarkLessonComplete(ctx context.Context, p *models.LessonProgress) (created bool, err error)
	CompletedLessonIDs(ctx context.Context, userID, courseID uint) ([]uint, error)
}

type PaymentStore interface {
	Create(ctx context.Context, p *models.Payment) error
	GetByOrderID(ctx context.Context, orderID string) (*models.Payment, error)
	GetByOrderIDForUpdate(ctx context.Context, orderID string) (*models.Payment, error)
	Update(ctx context.Context, p *models.Payment) error
	ListByUser(ctx context.Context, userID uint) ([]models.Payment, error)
	List(ctx context.Context, status string, page, limit int) ([]models.Payment, int64, error)
}

type ExamStore interface {
	Create(ctx context.Context, e *models.Exam) error
	GetByID(ctx context.Context, id uint) (*models.Exam, error)
	GetWithQuestions(ctx context.Context, id uint) (*models.Exam, error)
	ListByCourse(ctx context.Context, courseID uint) ([]models.Exam, error)
	CreateQuestion(ctx context.Context, q *models.ExamQuestion) error
	GetQuestion(ctx context.Context, id uint) (*models.ExamQuestion, error)
	DeleteQuestion(ctx context.Context, id uint) error
	CountAttempts(ctx context.Context, examID, userID uint) (int64, error)
	CreateAttempt(ctx context.Context, a *models.ExamAttempt) error
	ListAttempts(ctx context.Context, examID, userID uint) ([]models.ExamAttempt, error)
}

type ForumStore interface {
	CreateQuestion(ctx context.Context, q *models.ForumQuestion) error
	GetQuestion(ctx context.Context, id uint) (*models.ForumQuestion, error)
	UpdateQuestion(ctx context.Context, q *models.ForumQuestion) error
	ListQuestions(ctx context.Context, courseID uint, page, limit int) ([]models.ForumQuestion, int64, error)
	AdjustAnswerCount(ctx context.Context, questionID uint, delta int) error

	CreateAnswer(ctx context.Context, a *models.ForumAnswer) error
	GetAnswer(ctx context.Context, id uint) (*models.ForumAnswer, error)
	UpdateAnswer(ctx context.Context, a *models.ForumAnswer) error
	ListAnswers(ctx context.Context, questionID uint) ([]models.ForumAnswer, error)

	CreateReply(ctx context.Context, r *models.ForumReply) error
	GetReply(ctx context.Context, id uint) (*models.ForumReply, error)
	UpdateReply(ctx context.Context, r *models.ForumReply) error
	ListReplies(ctx context.Context, questionID uint) ([]models.ForumReply, error)
}

type ReportFilter struct {
	Status       string
	Reason       string
	CourseID     uint
	CourseIDs    []uint
	TargetUserID uint
	Page         int
	Limit        int
}

type ReportStore interface {
	Create(ctx context.Context, r *models.ForumReport) error
	GetByID(ctx context.Context, id uint) (*models.ForumReport, error)
	GetByIDForUpdate(ctx context.Context, id uint) (*models.ForumReport, error)
	Update(ctx context.Context, r *models.ForumReport) error
	ExistsPending(ctx context.Context, targetType string, targetID, reporterID uint) (bool, error)
	List(ctx context.Context, f ReportFilter) ([]models.ForumReport, int64, error)
}

type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUserID(ctx context.Context, userID uint, limit, offset int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID uint) (int64, error)
	MarkRead(ctx context.Context, id, userID uint) error
}

type AuditLogStore interface {
	Create(ctx context.Context, l *models.AuditLog) error
}

// Stores exposes the stores a transactional operation may touch.
type Stores interface {
	Payments() PaymentStore
	Enrollments() EnrollmentStore
	Exams() ExamStore
	Forum() ForumStore
	Reports() ReportStore
}

// TxRunner runs fn inside one database transaction with stores bound to it.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(s Stores) error) error
}
