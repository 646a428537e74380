package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"learnhub/config"
	"learnhub/internal/domain"
	"learnhub/internal/models"
	"learnhub/internal/repository"
	"learnhub/pkg/mailer"
)

// memDB is an in-memory stand-in for the database behind every store.
type memDB struct {
	mu     sync.Mutex
	nextID uint

	users         map[uint]*models.User
	categories    map[uint]*models.Category
	courses       map[uint]*models.Course
	lessons       map[uint]*models.Lesson
	enrollments   map[uint]*models.Enrollment
	progress      []models.LessonProgress
	payments      map[uint]*models.Payment
	exams         map[uint]*models.Exam
	examQuestions map[uint]*models.ExamQuestion
	attempts      []models.ExamAttempt
	questions     map[uint]*models.ForumQuestion
	answers       map[uint]*models.ForumAnswer
	replies       map[uint]*models.ForumReply
	reports       map[uint]*models.ForumReport
	notifications []models.Notification
	audits        []models.AuditLog
}

func newMemDB() *memDB {
	return &memDB{
		users:         map[uint]*models.User{},
		categories:    map[uint]*models.Category{},
		courses:       map[uint]*models.Course{},
		lessons:       map[uint]*models.Lesson{},
		enrollments:   map[uint]*models.Enrollment{},
		payments:      map[uint]*models.Payment{},
		exams:         map[uint]*models.Exam{},
		examQuestions: map[uint]*models.ExamQuestion{},
		questions:     map[uint]*models.ForumQuestion{},
		answers:       map[uint]*models.ForumAnswer{},
		replies:       map[uint]*models.ForumReply{},
		reports:       map[uint]*models.ForumReport{},
	}
}

func (db *memDB) id() uint {
	db.nextID++
	return db.nextID
}

func (db *memDB) userRef(id uint) *models.User {
	if u, ok := db.users[id]; ok {
		cp := *u
		return &cp
	}
	return nil
}

// ---- users ----

type memUsers struct{ db *memDB }

func (s memUsers) Create(_ context.Context, u *models.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u.ID = s.db.id()
	u.CreatedAt = time.Now()
	cp := *u
	s.db.users[u.ID] = &cp
	return nil
}

func (s memUsers) GetByID(_ context.Context, id uint) (*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if u := s.db.userRef(id); u != nil {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (s memUsers) find(match func(*models.User) bool) (*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, u := range s.db.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return s.find(func(u *models.User) bool { return u.Email == email })
}

func (s memUsers) GetByGoogleID(_ context.Context, gid string) (*models.User, error) {
	return s.find(func(u *models.User) bool { return u.GoogleID != nil && *u.GoogleID == gid })
}

func (s memUsers) Update(_ context.Context, u *models.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	cp := *u
	s.db.users[u.ID] = &cp
	return nil
}

func (s memUsers) CountByRole(_ context.Context, role string) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var n int64
	for _, u := range s.db.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

// ---- categories ----

type memCategories struct{ db *memDB }

func (s memCategories) List(_ context.Context) ([]models.Category, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Category
	for _, c := range s.db.categories {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s memCategories) GetByID(_ context.Context, id uint) (*models.Category, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if c, ok := s.db.categories[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (s memCategories) SlugExists(_ context.Context, slug string, excludeID uint) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, c := range s.db.categories {
		if c.Slug == slug && c.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (s memCategories) Create(_ context.Context, c *models.Category) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c.ID = s.db.id()
	cp := *c
	s.db.categories[c.ID] = &cp
	return nil
}

func (s memCategories) Update(_ context.Context, c *models.Category) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	cp := *c
	s.db.categories[c.ID] = &cp
	return nil
}

func (s memCategories) Delete(_ context.Context, id uint) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	delete(s.db.categories, id)
	return nil
}

func (s memCategories) CountCourses(_ context.Context, id uint) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var n int64
	for _, c := range s.db.courses {
		if c.CategoryID != nil && *c.CategoryID == id {
			n++
		}
	}
	return n, nil
}

// ---- courses and lessons ----

type memCourses struct{ db *memDB }

func (s memCourses) Create(_ context.Context, c *models.Course) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c.ID = s.db.id()
	c.CreatedAt = time.Now()
	cp := *c
	cp.Lessons = nil
	s.db.courses[c.ID] = &cp
	return nil
}

func (s memCourses) GetByID(_ context.Context, id uint) (*models.Course, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c, ok := s.db.courses[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	cp.Instructor = s.db.userRef(c.InstructorID)
	return &cp, nil
}

func (s memCourses) GetWithLessons(ctx context.Context, id uint) (*models.Course, error) {
	c, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, l := range s.db.lessons {
		if l.CourseID == id {
			c.Lessons = append(c.Lessons, *l)
		}
	}
	sort.Slice(c.Lessons, func(i, j int) bool { return c.Lessons[i].Position < c.Lessons[j].Position })
	return c, nil
}

func (s memCourses) Update(_ context.Context, c *models.Course) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	cp := *c
	cp.Lessons, cp.Instructor, cp.Category = nil, nil, nil
	s.db.courses[c.ID] = &cp
	return nil
}

func (s memCourses) Delete(_ context.Context, id uint) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	delete(s.db.courses, id)
	return nil
}

func (s memCourses) List(_ context.Context, f repository.CourseFilter) ([]models.Course, int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Course
	for _, c := range s.db.courses {
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if f.InstructorID != 0 && c.InstructorID != f.InstructorID {
			continue
		}
		if f.CategoryID != 0 && (c.CategoryID == nil || *c.CategoryID != f.CategoryID) {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(c.Title), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, int64(len(out)), nil
}

func (s memCourses) IDsByInstructor(_ context.Context, instructorID uint) ([]uint, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var ids []uint
	for _, c := range s.db.courses {
		if c.InstructorID == instructorID {
			ids = append(ids, c.ID)
		}
	}
	return ids, nil
}

func (s memCourses) SlugExists(_ context.Context, slug string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, c := range s.db.courses {
		if c.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (s memCourses) CreateLesson(_ context.Context, l *models.Lesson) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	l.ID = s.db.id()
	cp := *l
	s.db.lessons[l.ID] = &cp
	return nil
}

func (s memCourses) GetLesson(_ context.Context, id uint) (*models.Lesson, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if l, ok := s.db.lessons[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (s memCourses) UpdateLesson(_ context.Context, l *models.Lesson) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	cp := *l
	s.db.lessons[l.ID] = &cp
	return nil
}

func (s memCourses) DeleteLesson(_ context.Context, id uint) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	delete(s.db.lessons, id)
	return nil
}

func (s memCourses) CountLessons(_ context.Context, courseID uint) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var n int64
	for _, l := range s.db.lessons {
		if l.CourseID == courseID {
			n++
		}
	}
	return n, nil
}

func (s memCourses) MaxLessonPosition(_ context.Context, courseID uint) (int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	highest := 0
	for _, l := range s.db.lessons {
		if l.CourseID == courseID && l.Position > highest {
			highest = l.Position
		}
	}
	return highest, nil
}

// ---- enrollments ----

type memEnrollments struct{ db *memDB }

func (s memEnrollments) Get(_ context.Context, userID, courseID uint) (*models.Enrollment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, e := range s.db.enrollments {
		if e.UserID == userID && e.CourseID == courseID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s memEnrollments) GetForUpdate(ctx context.Context, userID, courseID uint) (*models.Enrollment, error) {
	return s.Get(ctx, userID, courseID)
}

func (s memEnrollments) Create(_ context.Context, e *models.Enrollment) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, existing := range s.db.enrollments {
		if existing.UserID == e.UserID && existing.CourseID == e.CourseID {
			return repository.ErrDuplicate
		}
	}
	e.ID = s.db.id()
	e.CreatedAt = time.Now()
	cp := *e
	s.db.enrollments[e.ID] = &cp
	return nil
}

func (s memEnrollments) Update(_ context.Context, e *models.Enrollment) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	cp := *e
	s.db.enrollments[e.ID] = &cp
	return nil
}

func (s memEnrollments) ListByUser(_ context.Context, userID uint) ([]models.Enrollment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Enrollment
	for _, e := range s.db.enrollments {
		if e.UserID == userID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s memEnrollments) ListByCourse(_ context.Context, courseID uint, _, _ int) ([]models.Enrollment, int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Enrollment
	for _, e := range s.db.enrollments {
		if e.CourseID == courseID {
			out = append(out, *e)
		}
	}
	return out, int64(len(out)), nil
}

func (s memEnrollments) MarkLessonComplete(_ context.Context, p *models.LessonProgress) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, existing := range s.db.progress {
		if existing.UserID == p.UserID && existing.LessonID == p.LessonID {
			return false, nil
		}
	}
	p.ID = s.db.id()
	s.db.progress = append(s.db.progress, *p)
	return true, nil
}

func (s memEnrollments) CompletedLessonIDs(_ context.Context, userID, courseID uint) ([]uint, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var ids []uint
	for _, p := range s.db.progress {
		if p.UserID == userID && p.CourseID == courseID {
			ids = append(ids, p.LessonID)
		}
	}
	return ids, nil
}

// ---- payments ----

type memPayments struct{ db *memDB }

func (s memPayments) Create(_ context.Context, p *models.Payment) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p.ID = s.db.id()
	cp := *p
	s.db.payments[p.ID] = &cp
	return nil
}

func (s memPayments) GetByOrderID(_ context.Context, orderID string) (*models.Payment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, p := range s.db.payments {
		if p.ProviderOrderID == orderID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s memPayments) GetByOrderIDForUpdate(ctx context.Context, orderID string) (*models.Payment, error) {
	return s.GetByOrderID(ctx, orderID)
}

func (s memPayments) Update(_ context.Context, p *models.Payment) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	cp := *p
	s.db.payments[p.ID] = &cp
	return nil
}

func (s memPayments) ListByUser(_ context.Context, userID uint) ([]models.Payment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Payment
	for _, p := range s.db.payments {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s memPayments) List(_ context.Context, status string, _, _ int) ([]models.Payment, int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Payment
	for _, p := range s.db.payments {
		if status == "" || p.Status == status {
			out = append(out, *p)
		}
	}
	return out, int64(len(out)), nil
}

// ---- exams ----

type memExams struct{ db *memDB }

func (s memExams) Create(_ context.Context, e *models.Exam) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	e.ID = s.db.id()
	cp := *e
	cp.Questions = nil
	s.db.exams[e.ID] = &cp
	return nil
}

func (s memExams) GetByID(_ context.Context, id uint) (*models.Exam, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if e, ok := s.db.exams[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (s memExams) GetWithQuestions(ctx context.Context, id uint) (*models.Exam, error) {
	e, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, q := range s.db.examQuestions {
		if q.ExamID == id {
			e.Questions = append(e.Questions, *q)
		}
	}
	sort.Slice(e.Questions, func(i, j int) bool { return e.Questions[i].ID < e.Questions[j].ID })
	return e, nil
}

func (s memExams) ListByCourse(_ context.Context, courseID uint) ([]models.Exam, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Exam
	for _, e := range s.db.exams {
		if e.CourseID == courseID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s memExams) CreateQuestion(_ context.Context, q *models.ExamQuestion) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	q.ID = s.db.id()
	cp := *q
	s.db.examQuestions[q.ID] = &cp
	return nil
}

func (s memExams) GetQuestion(_ context.Context, id uint) (*models.ExamQuestion, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if q, ok := s.db.examQuestions[id]; ok {
		cp := *q
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (s memExams) DeleteQuestion(_ context.Context, id uint) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	delete(s.db.examQuestions, id)
	return nil
}

func (s memExams) CountAttempts(_ context.Context, examID, userID uint) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var n int64
	for _, a := range s.db.attempts {
		if a.ExamID == examID && a.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (s memExams) CreateAttempt(_ context.Context, a *models.ExamAttempt) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	a.ID = s.db.id()
	s.db.attempts = append(s.db.attempts, *a)
	return nil
}

func (s memExams) ListAttempts(_ context.Context, examID, userID uint) ([]models.ExamAttempt, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.ExamAttempt
	for _, a := range s.db.attempts {
		if a.ExamID == examID && a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

// ---- forum ----

type memForum struct{ db *memDB }

func (s memForum) CreateQuestion(_ context.Context, q *models.ForumQuestion) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	q.ID = s.db.id()
	q.CreatedAt = time.Now()
	cp := *q
	s.db.questions[q.ID] = &cp
	return nil
}

func (s memForum) GetQuestion(_ context.Context, id uint) (*models.ForumQuestion, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	q, ok := s.db.questions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *q
	cp.User = s.db.userRef(q.UserID)
	return &cp, nil
}

func (s memForum) UpdateQuestion(_ context.Context, q *models.ForumQuestion) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	cp := *q
	cp.User = nil
	s.db.questions[q.ID] = &cp
	return nil
}

func (s memForum) ListQuestions(_ context.Context, courseID uint, _, _ int) ([]models.ForumQuestion, int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.ForumQuestion
	for _, q := range s.db.questions {
		if q.CourseID == courseID {
			cp := *q
			cp.User = s.db.userRef(q.UserID)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, int64(len(out)), nil
}

func (s memForum) AdjustAnswerCount(_ context.Context, questionID uint, delta int) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if q, ok := s.db.questions[questionID]; ok {
		q.AnswerCount += delta
		if q.AnswerCount < 0 {
			q.AnswerCount = 0
		}
	}
	return nil
}

func (s memForum) CreateAnswer(_ context.Context, a *models.ForumAnswer) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	a.ID = s.db.id()
	a.CreatedAt = time.Now()
	cp := *a
	s.db.answers[a.ID] = &cp
	return nil
}

func (s memForum) GetAnswer(_ context.Context, id uint) (*models.ForumAnswer, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	a, ok := s.db.answers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	cp.User = s.db.userRef(a.UserID)
	return &cp, nil
}

func (s memForum) UpdateAnswer(_ context.Context, a *models.ForumAnswer) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	cp := *a
	cp.User = nil
	s.db.answers[a.ID] = &cp
	return nil
}

func (s memForum) ListAnswers(_ context.Context, questionID uint) ([]models.ForumAnswer, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.ForumAnswer
	for _, a := range s.db.answers {
		if a.QuestionID == questionID {
			cp := *a
			cp.User = s.db.userRef(a.UserID)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s memForum) CreateReply(_ context.Context, r *models.ForumReply) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r.ID = s.db.id()
	r.CreatedAt = time.Now()
	cp := *r
	s.db.replies[r.ID] = &cp
	return nil
}

func (s memForum) GetReply(_ context.Context, id uint) (*models.ForumReply, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.replies[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r
	cp.User = s.db.userRef(r.UserID)
	return &cp, nil
}

func (s memForum) UpdateReply(_ context.Context, r *models.ForumReply) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	cp := *r
	cp.User = nil
	s.db.replies[r.ID] = &cp
	return nil
}

func (s memForum) ListReplies(_ context.Context, questionID uint) ([]models.ForumReply, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.ForumReply
	for _, r := range s.db.replies {
		if r.QuestionID == questionID {
			cp := *r
			cp.User = s.db.userRef(r.UserID)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ---- reports ----

type memReports struct{ db *memDB }

func (s memReports) Create(_ context.Context, r *models.ForumReport) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r.ID = s.db.id()
	if r.Status == "" {
		// mirrors the column default
		r.Status = domain.ReportPending
	}
	cp := *r
	s.db.reports[r.ID] = &cp
	return nil
}

func (s memReports) GetByID(_ context.Context, id uint) (*models.ForumReport, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if r, ok := s.db.reports[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (s memReports) GetByIDForUpdate(ctx context.Context, id uint) (*models.ForumReport, error) {
	return s.GetByID(ctx, id)
}

func (s memReports) Update(_ context.Context, r *models.ForumReport) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	cp := *r
	s.db.reports[r.ID] = &cp
	return nil
}

func (s memReports) ExistsPending(_ context.Context, targetType string, targetID, reporterID uint) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, r := range s.db.reports {
		if r.TargetType == targetType && r.TargetID == targetID && r.ReporterID == reporterID && r.Status == domain.ReportPending {
			return true, nil
		}
	}
	return false, nil
}

func (s memReports) List(_ context.Context, f repository.ReportFilter) ([]models.ForumReport, int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.ForumReport
	for _, r := range s.db.reports {
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.Reason != "" && r.Reason != f.Reason {
			continue
		}
		if f.CourseID != 0 && r.CourseID != f.CourseID {
			continue
		}
		if f.CourseIDs != nil && !containsID(f.CourseIDs, r.CourseID) {
			continue
		}
		if f.TargetUserID != 0 && r.TargetUserID != f.TargetUserID {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, int64(len(out)), nil
}

// ---- notifications and audit ----

type memNotifications struct{ db *memDB }

func (s memNotifications) Create(_ context.Context, n *models.Notification) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	n.ID = s.db.id()
	s.db.notifications = append(s.db.notifications, *n)
	return nil
}

func (s memNotifications) ListByUserID(_ context.Context, userID uint, _, _ int) ([]models.Notification, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Notification
	for _, n := range s.db.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s memNotifications) CountUnread(_ context.Context, userID uint) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var c int64
	for _, n := range s.db.notifications {
		if n.UserID == userID && n.ReadAt == nil {
			c++
		}
	}
	return c, nil
}

func (s memNotifications) MarkRead(_ context.Context, id, userID uint) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for i := range s.db.notifications {
		if s.db.notifications[i].ID == id && s.db.notifications[i].UserID == userID {
			now := time.Now()
			s.db.notifications[i].ReadAt = &now
			return nil
		}
	}
	return repository.ErrNotFound
}

type memAudit struct{ db *memDB }

func (s memAudit) Create(_ context.Context, l *models.AuditLog) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	l.ID = s.db.id()
	s.db.audits = append(s.db.audits, *l)
	return nil
}

// ---- transactions ----

type memStores struct{ db *memDB }

func (s memStores) Payments() repository.PaymentStore       { return memPayments{s.db} }
func (s memStores) Enrollments() repository.EnrollmentStore { return memEnrollments{s.db} }
func (s memStores) Exams() repository.ExamStore             { return memExams{s.db} }
func (s memStores) Forum() repository.ForumStore            { return memForum{s.db} }
func (s memStores) Reports() repository.ReportStore         { return memReports{s.db} }

// memTx runs fn directly; there is no rollback.
type memTx struct{ db *memDB }

func (t memTx) WithTx(_ context.Context, fn func(repository.Stores) error) error {
	return fn(memStores{t.db})
}

// ---- auth side stores ----

type memOTPStore struct {
	mu        sync.Mutex
	records   map[string]*OTPRecord
	throttled map[string]bool
	revoked   map[string]bool
}

func newMemOTPStore() *memOTPStore {
	return &memOTPStore{records: map[string]*OTPRecord{}, throttled: map[string]bool{}, revoked: map[string]bool{}}
}

func (m *memOTPStore) Save(_ context.Context, purpose, email, hash string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[purpose+":"+email] = &OTPRecord{CodeHash: hash}
	return nil
}

func (m *memOTPStore) Get(_ context.Context, purpose, email string) (*OTPRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.records[purpose+":"+email]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

func (m *memOTPStore) IncrementAttempts(_ context.Context, purpose, email string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[purpose+":"+email]
	if !ok {
		return 0, nil
	}
	r.Attempts++
	return r.Attempts, nil
}

func (m *memOTPStore) Delete(_ context.Context, purpose, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, purpose+":"+email)
	return nil
}

func (m *memOTPStore) Throttle(_ context.Context, purpose, email string, interval time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if interval <= 0 {
		return true, nil
	}
	key := purpose + ":" + email
	if m.throttled[key] {
		return false, nil
	}
	m.throttled[key] = true
	return true, nil
}

func (m *memOTPStore) Revoke(_ context.Context, id string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.revoked[id] {
		return false, nil
	}
	m.revoked[id] = true
	return true, nil
}

func (m *memOTPStore) IsRevoked(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revoked[id], nil
}

// recordingHub captures broadcasts.
type recordingHub struct {
	mu     sync.Mutex
	events []string
}

func (h *recordingHub) BroadcastToCourse(_ uint, event string, _ interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
}

// ---- fixture ----

type fixture struct {
	db   *memDB
	cfg  *config.Config
	mail *mailer.ConsoleSender
	otp  *memOTPStore
	hub  *recordingHub

	notifications *NotificationService
	enrollments   *EnrollmentService
	courses       *CourseService
	auth          *AuthService
	exams         *ExamService
	forum         *ForumService
	reports       *ReportService
}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			AccessSecret:  "access",
			RefreshSecret: "refresh",
			AccessExpiry:  time.Minute,
			RefreshExpiry: time.Hour,
			Issuer:        "test",
		},
		OTP:  config.OTPConfig{TTL: 10 * time.Minute, MaxAttempts: 5},
		Exam: config.ExamConfig{DefaultMaxAttempts: 3, DefaultPassPercent: 60},
	}
}

func newFixture() *fixture {
	db := newMemDB()
	f := &fixture{db: db, cfg: testConfig(), mail: mailer.NewConsoleSender(), otp: newMemOTPStore(), hub: &recordingHub{}}
	tx := memTx{db}
	f.notifications = NewNotificationService(memNotifications{db}, memUsers{db}, nil)
	f.enrollments = NewEnrollmentService(memCourses{db}, memEnrollments{db}, f.notifications)
	f.courses = NewCourseService(memCategories{db}, memCourses{db}, memEnrollments{db}, f.enrollments, "INR")
	f.auth = NewAuthService(f.cfg, memUsers{db}, f.otp, f.otp, f.mail)
	f.exams = NewExamService(f.cfg.Exam, tx, memExams{db}, memCourses{db}, f.enrollments)
	f.forum = NewForumService(tx, memForum{db}, memCourses{db}, f.enrollments, f.notifications, f.hub)
	f.reports = NewReportService(tx, memReports{db}, memForum{db}, memCourses{db}, f.enrollments, memAudit{db}, f.notifications)
	return f
}

func (f *fixture) user(role, name string) Actor {
	u := &models.User{Name: name, Email: strings.ToLower(name) + "@example.com", Role: role, IsActive: true}
	_ = memUsers{f.db}.Create(context.Background(), u)
	return Actor{ID: u.ID, Role: role}
}

// course creates a published course owned by instructor with one lesson.
func (f *fixture) course(instructor Actor, priceCents int64) *models.Course {
	c := &models.Course{
		Title:        "Go in Practice",
		Slug:         "go-in-practice-" + time.Now().Format("150405.000000000"),
		InstructorID: instructor.ID,
		PriceCents:   priceCents,
		Currency:     "INR",
		Status:       domain.CourseStatusPublished,
	}
	_ = memCourses{f.db}.Create(context.Background(), c)
	_ = memCourses{f.db}.CreateLesson(context.Background(), &models.Lesson{CourseID: c.ID, Title: "Intro", Content: "body", Position: 1})
	return c
}

func (f *fixture) enroll(student Actor, c *models.Course) {
	_ = memEnrollments{f.db}.Create(context.Background(), &models.Enrollment{
		UserID: student.ID, CourseID: c.ID, Status: domain.EnrollmentActive,
	})
}
