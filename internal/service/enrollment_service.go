package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"learnhub/internal/domain"
	"learnhub/internal/models"
	"learnhub/internal/repository"
)

type EnrollmentService struct {
	courses     repository.CourseStore
	enrollments repository.EnrollmentStore
	notifier    *NotificationService
	now         func() time.Time
}

func NewEnrollmentService(courses repository.CourseStore, enrollments repository.EnrollmentStore, notifier *NotificationService) *EnrollmentService {
	return &EnrollmentService{courses: courses, enrollments: enrollments, notifier: notifier, now: time.Now}
}

// HasAccess reports whether actor may read course content. Enrollments past
// their expiry are flipped to expired as a side effect.
func (s *EnrollmentService) HasAccess(ctx context.Context, actor Actor, c *models.Course) (bool, *models.Enrollment, error) {
	if actor.CanManage(c) {
		return true, nil, nil
	}
	e, err := s.enrollments.Get(ctx, actor.ID, c.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, err
	}
	s.expireIfDue(ctx, e)
	return e.IsActiveAt(s.now()), e, nil
}

// RequireAccess loads a course and fails with ErrNoAccess unless actor may read it.
func (s *EnrollmentService) RequireAccess(ctx context.Context, actor Actor, courseID uint) (*models.Course, error) {
	c, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, notFound(err)
	}
	ok, _, err := s.HasAccess(ctx, actor, c)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoAccess
	}
	return c, nil
}

func (s *EnrollmentService) expireIfDue(ctx context.Context, e *models.Enrollment) {
	if e.Status != domain.EnrollmentActive || e.ExpiresAt == nil || e.ExpiresAt.After(s.now()) {
		return
	}
	e.Status = domain.EnrollmentExpired
	if err := s.enrollments.Update(ctx, e); err != nil {
		slog.WarnContext(ctx, "could not mark enrollment expired", "enrollment_id", e.ID, "error", err)
	}
}

// EnrollFree enrolls actor in a published free course. An expired enrollment
// is reactivated in place.
func (s *EnrollmentService) EnrollFree(ctx context.Context, actor Actor, courseID uint) (*models.Enrollment, error) {
	c, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, notFound(err)
	}
	if !c.IsPublished() {
		return nil, ErrNotPublished
	}
	if !c.IsFree() {
		return nil, ErrPaidCourse
	}
	e, err := grantEnrollment(ctx, s.enrollments, actor.ID, c, nil, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.notifier.NotifyEnrolled(ctx, actor.ID, c); err != nil {
		slog.WarnContext(ctx, "enrollment notification failed", "user_id", actor.ID, "error", err)
	}
	return e, nil
}

// grantEnrollment creates the enrollment for userID or, when one exists,
// reactivates and extends it. Extension starts from the later of now and the
// current expiry. A free grant on an active enrollment is ErrAlreadyEnrolled.
func grantEnrollment(ctx context.Context, store repository.EnrollmentStore, userID uint, c *models.Course, paymentID *uint, now time.Time) (*models.Enrollment, error) {
	e, err := store.GetForUpdate(ctx, userID, c.ID)
	if errors.Is(err, repository.ErrNotFound) {
		e = &models.Enrollment{
			UserID:    userID,
			CourseID:  c.ID,
			PaymentID: paymentID,
			Status:    domain.EnrollmentActive,
			ExpiresAt: c.AccessUntil(now),
		}
		if err := store.Create(ctx, e); err != nil {
			// A concurrent grant inserted the row between the read and the insert.
			if errors.Is(err, repository.ErrDuplicate) && paymentID == nil {
				return nil, ErrAlreadyEnrolled
			}
			return nil, fmt.Errorf("create enrollment: %w", err)
		}
		return e, nil
	}
	if err != nil {
		return nil, err
	}
	active := e.IsActiveAt(now)
	if active && paymentID == nil {
		return nil, ErrAlreadyEnrolled
	}
	from := now
	if active && e.ExpiresAt != nil && e.ExpiresAt.After(now) {
		from = *e.ExpiresAt
	}
	e.Status = domain.EnrollmentActive
	e.ExpiresAt = c.AccessUntil(from)
	if paymentID != nil {
		e.PaymentID = paymentID
	}
	if err := store.Update(ctx, e); err != nil {
		return nil, fmt.Errorf("extend enrollment: %w", err)
	}
	return e, nil
}

// MyEnrollments lists a user's enrollments with expiry applied.
func (s *EnrollmentService) MyEnrollments(ctx context.Context, userID uint) ([]models.Enrollment, error) {
	list, err := s.enrollments.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range list {
		s.expireIfDue(ctx, &list[i])
	}
	return list, nil
}

type CourseProgress struct {
	CourseID           uint    `json:"course_id"`
	TotalLessons       int     `json:"total_lessons"`
	CompletedLessons   int     `json:"completed_lessons"`
	CompletedLessonIDs []uint  `json:"completed_lesson_ids"`
	Percent            float64 `json:"percent"`
}

func (s *EnrollmentService) Progress(ctx context.Context, actor Actor, courseID uint) (*CourseProgress, error) {
	if _, err := s.RequireAccess(ctx, actor, courseID); err != nil {
		return nil, err
	}
	return s.progress(ctx, actor.ID, courseID)
}

// CompleteLesson records a lesson as done. Repeating it is a no-op.
func (s *EnrollmentService) CompleteLesson(ctx context.Context, actor Actor, courseID, lessonID uint) (*CourseProgress, error) {
	if _, err := s.RequireAccess(ctx, actor, courseID); err != nil {
		return nil, err
	}
	l, err := s.courses.GetLesson(ctx, lessonID)
	if err != nil {
		return nil, notFound(err)
	}
	if l.CourseID != courseID {
		return nil, ErrNotFound
	}
	_, err = s.enrollments.MarkLessonComplete(ctx, &models.LessonProgress{
		UserID:      actor.ID,
		LessonID:    lessonID,
		CourseID:    courseID,
		CompletedAt: s.now(),
	})
	if err != nil {
		return nil, err
	}
	return s.progress(ctx, actor.ID, courseID)
}

func (s *EnrollmentService) progress(ctx context.Context, userID, courseID uint) (*CourseProgress, error) {
	total, err := s.courses.CountLessons(ctx, courseID)
	if err != nil {
		return nil, err
	}
	done, err := s.enrollments.CompletedLessonIDs(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	p := &CourseProgress{
		CourseID:           courseID,
		TotalLessons:       int(total),
		CompletedLessons:   len(done),
		CompletedLessonIDs: done,
	}
	if total > 0 {
		p.Percent = float64(len(done)) * 100 / float64(total)
		if p.Percent > 100 {
			p.Percent = 100
		}
	}
	return p, nil
}
