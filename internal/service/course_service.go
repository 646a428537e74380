package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"learnhub/internal/domain"
	"learnhub/internal/models"
	"learnhub/internal/repository"

	"github.com/google/uuid"
)

type CourseService struct {
	categories  repository.CategoryStore
	courses     repository.CourseStore
	enrollments repository.EnrollmentStore
	access      *EnrollmentService
	currency    string
}

func NewCourseService(categories repository.CategoryStore, courses repository.CourseStore, enrollments repository.EnrollmentStore, access *EnrollmentService, currency string) *CourseService {
	return &CourseService{categories: categories, courses: courses, enrollments: enrollments, access: access, currency: currency}
}

// ---- categories ----

func (s *CourseService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.categories.List(ctx)
}

func (s *CourseService) CreateCategory(ctx context.Context, name, description string) (*models.Category, error) {
	slug := slugify(name)
	if slug == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	taken, err := s.categories.SlugExists(ctx, slug, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrSlugTaken
	}
	c := &models.Category{Name: strings.TrimSpace(name), Slug: slug, Description: description}
	if err := s.categories.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

func (s *CourseService) UpdateCategory(ctx context.Context, id uint, name, description *string) (*models.Category, error) {
	c, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if name != nil {
		slug := slugify(*name)
		if slug == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		taken, err := s.categories.SlugExists(ctx, slug, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrSlugTaken
		}
		c.Name, c.Slug = strings.TrimSpace(*name), slug
	}
	if description != nil {
		c.Description = *description
	}
	if err := s.categories.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CourseService) DeleteCategory(ctx context.Context, id uint) error {
	if _, err := s.categories.GetByID(ctx, id); err != nil {
		return notFound(err)
	}
	n, err := s.categories.CountCourses(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrCategoryInUse
	}
	return s.categories.Delete(ctx, id)
}

// ---- courses ----

type CourseInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	CategoryID  *uint   `json:"category_id"`
	PriceCents  *int64  `json:"price_cents" binding:"omitempty,min=0"`
	Currency    *string `json:"currency" binding:"omitempty,len=3"`
	AccessDays  *int    `json:"access_days" binding:"omitempty,min=0"`
	Level       *string `json:"level" binding:"omitempty,oneof=beginner intermediate advanced"`
}

type CoursePage struct {
	Items []models.Course `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

// ListPublished is the public catalogue.
func (s *CourseService) ListPublished(ctx context.Context, f repository.CourseFilter) (*CoursePage, error) {
	f.Status = domain.CourseStatusPublished
	f.InstructorID = 0
	return s.list(ctx, f)
}

func (s *CourseService) ListForInstructor(ctx context.Context, actor Actor, f repository.CourseFilter) (*CoursePage, error) {
	f.InstructorID = actor.ID
	return s.list(ctx, f)
}

// ListAll is the admin view over every status.
func (s *CourseService) ListAll(ctx context.Context, f repository.CourseFilter) (*CoursePage, error) {
	return s.list(ctx, f)
}

func (s *CourseService) list(ctx context.Context, f repository.CourseFilter) (*CoursePage, error) {
	f.Page, f.Limit = pageDefaults(f.Page, f.Limit)
	items, total, err := s.courses.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return &CoursePage{Items: items, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

// CourseDetail is a course as seen by a particular viewer.
type CourseDetail struct {
	*models.Course
	HasAccess  bool               `json:"has_access"`
	CanManage  bool               `json:"can_manage"`
	Enrollment *models.Enrollment `json:"enrollment,omitempty"`
}

// GetDetail returns a course with lesson bodies hidden unless the lesson is a
// preview or viewer has access. viewer is nil for anonymous callers.
func (s *CourseService) GetDetail(ctx context.Context, id uint, viewer *Actor) (*CourseDetail, error) {
	c, err := s.courses.GetWithLessons(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	d := &CourseDetail{Course: c}
	if viewer != nil {
		d.CanManage = viewer.CanManage(c)
		if d.CanManage {
			d.HasAccess = true
		} else {
			ok, e, err := s.access.HasAccess(ctx, *viewer, c)
			if err != nil {
				return nil, err
			}
			d.HasAccess, d.Enrollment = ok, e
		}
	}
	if !c.IsPublished() && !d.CanManage {
		return nil, ErrNotFound
	}
	if !d.HasAccess {
		for i := range c.Lessons {
			if !c.Lessons[i].IsPreview {
				c.Lessons[i] = c.Lessons[i].Redact()
			}
		}
	}
	return d, nil
}

func (s *CourseService) Create(ctx context.Context, actor Actor, in CourseInput) (*models.Course, error) {
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	c := &models.Course{
		InstructorID: actor.ID,
		Status:       domain.CourseStatusDraft,
		Currency:     s.currency,
	}
	if err := s.apply(ctx, c, in); err != nil {
		return nil, err
	}
	slug, err := s.uniqueSlug(ctx, c.Title)
	if err != nil {
		return nil, err
	}
	c.Slug = slug
	if err := s.courses.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}
	return c, nil
}

func (s *CourseService) Update(ctx context.Context, actor Actor, id uint, in CourseInput) (*models.Course, error) {
	c, err := s.managed(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, c, in); err != nil {
		return nil, err
	}
	if err := s.courses.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CourseService) apply(ctx context.Context, c *models.Course, in CourseInput) error {
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		if t == "" {
			return fmt.Errorf("%w: title is required", ErrInvalidInput)
		}
		c.Title = t
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.CategoryID != nil {
		if *in.CategoryID == 0 {
			c.CategoryID = nil
		} else {
			if _, err := s.categories.GetByID(ctx, *in.CategoryID); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return fmt.Errorf("%w: unknown category", ErrInvalidInput)
				}
				return err
			}
			cid := *in.CategoryID
			c.CategoryID = &cid
			c.Category = nil
		}
	}
	if in.PriceCents != nil {
		if *in.PriceCents < 0 {
			return fmt.Errorf("%w: price cannot be negative", ErrInvalidInput)
		}
		c.PriceCents = *in.PriceCents
	}
	if in.Currency != nil {
		c.Currency = strings.ToUpper(*in.Currency)
	}
	if in.AccessDays != nil {
		if *in.AccessDays < 0 {
			return fmt.Errorf("%w: access days cannot be negative", ErrInvalidInput)
		}
		c.AccessDays = *in.AccessDays
	}
	if in.Level != nil {
		c.Level = *in.Level
	}
	return nil
}

func (s *CourseService) uniqueSlug(ctx context.Context, title string) (string, error) {
	base := slugify(title)
	if base == "" {
		base = "course"
	}
	taken, err := s.courses.SlugExists(ctx, base)
	if err != nil {
		return "", err
	}
	if !taken {
		return base, nil
	}
	return base + "-" + uuid.NewString()[:8], nil
}

func (s *CourseService) Delete(ctx context.Context, actor Actor, id uint) error {
	if _, err := s.managed(ctx, actor, id); err != nil {
		return err
	}
	return s.courses.Delete(ctx, id)
}

// SetStatus moves a course between draft, published and archived. A course
// needs at least one lesson to be published.
func (s *CourseService) SetStatus(ctx context.Context, actor Actor, id uint, status string) (*models.Course, error) {
	c, err := s.managed(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	switch status {
	case domain.CourseStatusDraft, domain.CourseStatusArchived:
	case domain.CourseStatusPublished:
		n, err := s.courses.CountLessons(ctx, id)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, fmt.Errorf("%w: add a lesson before publishing", ErrInvalidStatus)
		}
	default:
		return nil, ErrInvalidStatus
	}
	c.Status = status
	if err := s.courses.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CourseService) SetThumbnail(ctx context.Context, actor Actor, id uint, url string) (*models.Course, string, error) {
	c, err := s.managed(ctx, actor, id)
	if err != nil {
		return nil, "", err
	}
	previous := c.ThumbnailURL
	c.ThumbnailURL = url
	if err := s.courses.Update(ctx, c); err != nil {
		return nil, "", err
	}
	return c, previous, nil
}

// Managed returns the course when actor may manage it.
func (s *CourseService) Managed(ctx context.Context, actor Actor, id uint) (*models.Course, error) {
	return s.managed(ctx, actor, id)
}

func (s *CourseService) managed(ctx context.Context, actor Actor, id uint) (*models.Course, error) {
	c, err := s.courses.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if !actor.CanManage(c) {
		return nil, ErrForbidden
	}
	return c, nil
}

// ---- lessons ----

type LessonInput struct {
	Title           *string `json:"title"`
	Content         *string `json:"content"`
	VideoURL        *string `json:"video_url" binding:"omitempty,url"`
	Position        *int    `json:"position" binding:"omitempty,min=0"`
	DurationSeconds *int    `json:"duration_seconds" binding:"omitempty,min=0"`
	IsPreview       *bool   `json:"is_preview"`
}

func (s *CourseService) AddLesson(ctx context.Context, actor Actor, courseID uint, in LessonInput) (*models.Lesson, error) {
	if _, err := s.managed(ctx, actor, courseID); err != nil {
		return nil, err
	}
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	l := &models.Lesson{CourseID: courseID}
	applyLesson(l, in)
	if in.Position == nil {
		pos, err := s.courses.MaxLessonPosition(ctx, courseID)
		if err != nil {
			return nil, err
		}
		l.Position = pos + 1
	}
	if err := s.courses.CreateLesson(ctx, l); err != nil {
		return nil, fmt.Errorf("create lesson: %w", err)
	}
	return l, nil
}

func (s *CourseService) UpdateLesson(ctx context.Context, actor Actor, lessonID uint, in LessonInput) (*models.Lesson, error) {
	l, err := s.managedLesson(ctx, actor, lessonID)
	if err != nil {
		return nil, err
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	applyLesson(l, in)
	if err := s.courses.UpdateLesson(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *CourseService) DeleteLesson(ctx context.Context, actor Actor, lessonID uint) error {
	if _, err := s.managedLesson(ctx, actor, lessonID); err != nil {
		return err
	}
	return s.courses.DeleteLesson(ctx, lessonID)
}

// ManagedLesson returns the lesson when actor may manage its course.
func (s *CourseService) ManagedLesson(ctx context.Context, actor Actor, lessonID uint) (*models.Lesson, error) {
	return s.managedLesson(ctx, actor, lessonID)
}

func (s *CourseService) managedLesson(ctx context.Context, actor Actor, lessonID uint) (*models.Lesson, error) {
	l, err := s.courses.GetLesson(ctx, lessonID)
	if err != nil {
		return nil, notFound(err)
	}
	if _, err := s.managed(ctx, actor, l.CourseID); err != nil {
		return nil, err
	}
	return l, nil
}

func applyLesson(l *models.Lesson, in LessonInput) {
	if in.Title != nil {
		l.Title = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		l.Content = *in.Content
	}
	if in.VideoURL != nil {
		l.VideoURL = *in.VideoURL
	}
	if in.Position != nil {
		l.Position = *in.Position
	}
	if in.DurationSeconds != nil {
		l.DurationSeconds = *in.DurationSeconds
	}
	if in.IsPreview != nil {
		l.IsPreview = *in.IsPreview
	}
}

type EnrollmentPage struct {
	Items []models.Enrollment `json:"items"`
	Total int64               `json:"total"`
	Page  int                 `json:"page"`
	Limit int                 `json:"limit"`
}

// Students lists the enrollments of a course the actor manages.
func (s *CourseService) Students(ctx context.Context, actor Actor, courseID uint, page, limit int) (*EnrollmentPage, error) {
	if _, err := s.managed(ctx, actor, courseID); err != nil {
		return nil, err
	}
	page, limit = pageDefaults(page, limit)
	items, total, err := s.enrollments.ListByCourse(ctx, courseID, page, limit)
	if err != nil {
		return nil, err
	}
	return &EnrollmentPage{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func notFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
