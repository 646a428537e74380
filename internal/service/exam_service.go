package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"learnhub/config"
	"learnhub/internal/models"
	"learnhub/internal/repository"
)

type ExamService struct {
	cfg     config.ExamConfig
	tx      repository.TxRunner
	exams   repository.ExamStore
	courses repository.CourseStore
	access  *EnrollmentService
	now     func() time.Time
}

func NewExamService(cfg config.ExamConfig, tx repository.TxRunner, exams repository.ExamStore, courses repository.CourseStore, access *EnrollmentService) *ExamService {
	return &ExamService{cfg: cfg, tx: tx, exams: exams, courses: courses, access: access, now: time.Now}
}

type ExamInput struct {
	Title       string `json:"title" binding:"required,max=255"`
	Description string `json:"description"`
	PassPercent int    `json:"pass_percent" binding:"omitempty,min=1,max=100"`
	MaxAttempts int    `json:"max_attempts" binding:"omitempty,min=1,max=20"`
}

type QuestionInput struct {
	Text          string   `json:"text" binding:"required"`
	Options       []string `json:"options" binding:"required,min=2,max=10,dive,required"`
	CorrectAnswer *int     `json:"correct_answer" binding:"required,min=0"`
	Points        int      `json:"points" binding:"omitempty,min=1"`
	Position      int      `json:"position"`
}

func (s *ExamService) CreateExam(ctx context.Context, actor Actor, courseID uint, in ExamInput) (*models.Exam, error) {
	c, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, notFound(err)
	}
	if !actor.CanManage(c) {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	e := &models.Exam{
		CourseID:    courseID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		PassPercent: in.PassPercent,
		MaxAttempts: in.MaxAttempts,
	}
	if e.PassPercent == 0 {
		e.PassPercent = s.cfg.DefaultPassPercent
	}
	if e.MaxAttempts == 0 {
		e.MaxAttempts = s.cfg.DefaultMaxAttempts
	}
	if err := s.exams.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}
	return e, nil
}

func (s *ExamService) AddQuestion(ctx context.Context, actor Actor, examID uint, in QuestionInput) (*models.ExamQuestion, error) {
	if _, _, err := s.managedExam(ctx, actor, examID); err != nil {
		return nil, err
	}
	if in.CorrectAnswer == nil || *in.CorrectAnswer < 0 || *in.CorrectAnswer >= len(in.Options) {
		return nil, fmt.Errorf("%w: correct_answer must index into options", ErrInvalidInput)
	}
	opts, err := json.Marshal(in.Options)
	if err != nil {
		return nil, err
	}
	q := &models.ExamQuestion{
		ExamID:        examID,
		Text:          in.Text,
		Options:       string(opts),
		CorrectAnswer: *in.CorrectAnswer,
		Points:        in.Points,
		Position:      in.Position,
	}
	if q.Points == 0 {
		q.Points = 1
	}
	if err := s.exams.CreateQuestion(ctx, q); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	return q, nil
}

func (s *ExamService) DeleteQuestion(ctx context.Context, actor Actor, questionID uint) error {
	q, err := s.exams.GetQuestion(ctx, questionID)
	if err != nil {
		return notFound(err)
	}
	if _, _, err := s.managedExam(ctx, actor, q.ExamID); err != nil {
		return err
	}
	return s.exams.DeleteQuestion(ctx, questionID)
}

func (s *ExamService) managedExam(ctx context.Context, actor Actor, examID uint) (*models.Exam, *models.Course, error) {
	e, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, nil, notFound(err)
	}
	c, err := s.courses.GetByID(ctx, e.CourseID)
	if err != nil {
		return nil, nil, notFound(err)
	}
	if !actor.CanManage(c) {
		return nil, nil, ErrForbidden
	}
	return e, c, nil
}

func (s *ExamService) ListForCourse(ctx context.Context, actor Actor, courseID uint) ([]models.Exam, error) {
	if _, err := s.access.RequireAccess(ctx, actor, courseID); err != nil {
		return nil, err
	}
	return s.exams.ListByCourse(ctx, courseID)
}

// ExamQuestionView hides the correct answer from students.
type ExamQuestionView struct {
	ID            uint     `json:"id"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	Points        int      `json:"points"`
	Position      int      `json:"position"`
	CorrectAnswer *int     `json:"correct_answer,omitempty"`
}

type ExamView struct {
	*models.Exam
	Questions    []ExamQuestionView `json:"questions"`
	AttemptsUsed int                `json:"attempts_used"`
	AttemptsLeft int                `json:"attempts_left"`
}

func (s *ExamService) Get(ctx context.Context, actor Actor, examID uint) (*ExamView, error) {
	e, err := s.exams.GetWithQuestions(ctx, examID)
	if err != nil {
		return nil, notFound(err)
	}
	c, err := s.access.RequireAccess(ctx, actor, e.CourseID)
	if err != nil {
		return nil, err
	}
	manage := actor.CanManage(c)
	used, err := s.exams.CountAttempts(ctx, examID, actor.ID)
	if err != nil {
		return nil, err
	}
	v := &ExamView{Exam: e, AttemptsUsed: int(used)}
	if left := e.MaxAttempts - int(used); left > 0 {
		v.AttemptsLeft = left
	}
	v.Questions = make([]ExamQuestionView, 0, len(e.Questions))
	for i := range e.Questions {
		q := &e.Questions[i]
		qv := ExamQuestionView{ID: q.ID, Text: q.Text, Options: q.OptionList(), Points: q.Points, Position: q.Position}
		if manage {
			ans := q.CorrectAnswer
			qv.CorrectAnswer = &ans
		}
		v.Questions = append(v.Questions, qv)
	}
	e.Questions = nil
	return v, nil
}

type QuestionResult struct {
	QuestionID uint `json:"question_id"`
	Selected   *int `json:"selected"`
	Correct    bool `json:"correct"`
}

type SubmitResult struct {
	Attempt      *models.ExamAttempt `json:"attempt"`
	Results      []QuestionResult    `json:"results"`
	AttemptsLeft int                 `json:"attempts_left"`
}

// Submit scores answers against the stored keys. The attempt count is read
// and the attempt written while the caller's enrollment row is locked, so
// concurrent submissions cannot exceed the exam's limit.
func (s *ExamService) Submit(ctx context.Context, actor Actor, examID uint, answers map[uint]int) (*SubmitResult, error) {
	e, err := s.exams.GetWithQuestions(ctx, examID)
	if err != nil {
		return nil, notFound(err)
	}
	if len(e.Questions) == 0 {
		return nil, ErrExamEmpty
	}
	c, err := s.access.RequireAccess(ctx, actor, e.CourseID)
	if err != nil {
		return nil, err
	}
	manage := actor.CanManage(c)

	score, maxScore, results := scoreExam(e.Questions, answers)
	answersJSON, _ := json.Marshal(answers)

	var out *SubmitResult
	err = s.tx.WithTx(ctx, func(st repository.Stores) error {
		if !manage {
			enr, err := st.Enrollments().GetForUpdate(ctx, actor.ID, e.CourseID)
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNoAccess
			}
			if err != nil {
				return err
			}
			if !enr.IsActiveAt(s.now()) {
				return ErrNoAccess
			}
		}
		used, err := st.Exams().CountAttempts(ctx, examID, actor.ID)
		if err != nil {
			return err
		}
		if int(used) >= e.MaxAttempts {
			return ErrAttemptsExhausted
		}
		a := &models.ExamAttempt{
			ExamID:    examID,
			UserID:    actor.ID,
			AttemptNo: int(used) + 1,
			Score:     score,
			MaxScore:  maxScore,
			Answers:   string(answersJSON),
			CreatedAt: s.now(),
		}
		for _, r := range results {
			if r.Correct {
				a.CorrectCount++
			}
		}
		if maxScore > 0 {
			a.Percent = float64(score) * 100 / float64(maxScore)
		}
		a.Passed = a.Percent >= float64(e.PassPercent)
		if err := st.Exams().CreateAttempt(ctx, a); err != nil {
			return fmt.Errorf("store attempt: %w", err)
		}
		out = &SubmitResult{Attempt: a, Results: results, AttemptsLeft: e.MaxAttempts - a.AttemptNo}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// scoreExam awards a question's points when the selected option index equals
// its stored answer. Unanswered and unknown question IDs score nothing.
func scoreExam(questions []models.ExamQuestion, answers map[uint]int) (score, maxScore int, results []QuestionResult) {
	results = make([]QuestionResult, 0, len(questions))
	for _, q := range questions {
		maxScore += q.Points
		r := QuestionResult{QuestionID: q.ID}
		if sel, ok := answers[q.ID]; ok {
			v := sel
			r.Selected = &v
			r.Correct = sel == q.CorrectAnswer
		}
		if r.Correct {
			score += q.Points
		}
		results = append(results, r)
	}
	return score, maxScore, results
}

func (s *ExamService) Attempts(ctx context.Context, actor Actor, examID uint) ([]models.ExamAttempt, error) {
	if _, err := s.exams.GetByID(ctx, examID); err != nil {
		return nil, notFound(err)
	}
	return s.exams.ListAttempts(ctx, examID, actor.ID)
}
