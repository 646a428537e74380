package service

import (
	"context"
	"testing"

	"learnhub/internal/domain"
	"learnhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func seedExam(t *testing.T, f *fixture, inst Actor, c *models.Course) (*models.Exam, []*models.ExamQuestion) {
	t.Helper()
	ctx := context.Background()
	e, err := f.exams.CreateExam(ctx, inst, c.ID, ExamInput{Title: "Midterm"})
	require.NoError(t, err)

	var qs []*models.ExamQuestion
	for i, correct := range []int{0, 2} {
		q, err := f.exams.AddQuestion(ctx, inst, e.ID, QuestionInput{
			Text:          "Q",
			Options:       []string{"a", "b", "c"},
			CorrectAnswer: intPtr(correct),
			Points:        i + 1,
		})
		require.NoError(t, err)
		qs = append(qs, q)
	}
	return e, qs
}

func TestCreateExamAppliesDefaults(t *testing.T) {
	f := newFixture()
	inst := f.user(domain.RoleInstructor, "Ivy")
	c := f.course(inst, 0)

	e, err := f.exams.CreateExam(context.Background(), inst, c.ID, ExamInput{Title: " Final "})
	require.NoError(t, err)
	assert.Equal(t, "Final", e.Title)
	assert.Equal(t, 3, e.MaxAttempts)
	assert.Equal(t, 60, e.PassPercent)
}

func TestCreateExamForbiddenForStudents(t *testing.T) {
	f := newFixture()
	inst := f.user(domain.RoleInstructor, "Ivy")
	student := f.user(domain.RoleStudent, "Sam")
	c := f.course(inst, 0)

	_, err := f.exams.CreateExam(context.Background(), student, c.ID, ExamInput{Title: "x"})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAddQuestionValidatesCorrectIndex(t *testing.T) {
	f := newFixture()
	inst := f.user(domain.RoleInstructor, "Ivy")
	c := f.course(inst, 0)
	e, _ := seedExam(t, f, inst, c)

	_, err := f.exams.AddQuestion(context.Background(), inst, e.ID, QuestionInput{
		Text: "Q", Options: []string{"a", "b"}, CorrectAnswer: intPtr(2),
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestScoreExam(t *testing.T) {
	questions := []models.ExamQuestion{
		{ID: 1, CorrectAnswer: 0, Points: 1},
		{ID: 2, CorrectAnswer: 2, Points: 2},
		{ID: 3, CorrectAnswer: 1, Points: 3},
	}
	score, maxScore, results := scoreExam(questions, map[uint]int{1: 0, 2: 1, 99: 0})
	assert.Equal(t, 1, score)
	assert.Equal(t, 6, maxScore)
	require.Len(t, results, 3)
	assert.True(t, results[0].Correct)
	assert.False(t, results[1].Correct)
	assert.Nil(t, results[2].Selected)
}

func TestGetHidesAnswersFromStudents(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	inst := f.user(domain.RoleInstructor, "Ivy")
	student := f.user(domain.RoleStudent, "Sam")
	c := f.course(inst, 0)
	f.enroll(student, c)
	e, _ := seedExam(t, f, inst, c)

	view, err := f.exams.Get(ctx, student, e.ID)
	require.NoError(t, err)
	require.Len(t, view.Questions, 2)
	for _, q := range view.Questions {
		assert.Nil(t, q.CorrectAnswer)
	}
	assert.Equal(t, 3, view.AttemptsLeft)

	view, err = f.exams.Get(ctx, inst, e.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Questions[0].CorrectAnswer)
}

func TestSubmitScoresAndLimitsAttempts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	inst := f.user(domain.RoleInstructor, "Ivy")
	student := f.user(domain.RoleStudent, "Sam")
	c := f.course(inst, 0)
	f.enroll(student, c)
	e, qs := seedExam(t, f, inst, c)

	res, err := f.exams.Submit(ctx, student, e.ID, map[uint]int{qs[0].ID: 0, qs[1].ID: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Attempt.Score)
	assert.Equal(t, 3, res.Attempt.MaxScore)
	assert.Equal(t, 2, res.Attempt.CorrectCount)
	assert.True(t, res.Attempt.Passed)
	assert.Equal(t, 1, res.Attempt.AttemptNo)
	assert.Equal(t, 2, res.AttemptsLeft)

	res, err = f.exams.Submit(ctx, student, e.ID, map[uint]int{qs[0].ID: 0})
	require.NoError(t, err)
	assert.False(t, res.Attempt.Passed)

	_, err = f.exams.Submit(ctx, student, e.ID, map[uint]int{})
	require.NoError(t, err)

	_, err = f.exams.Submit(ctx, student, e.ID, map[uint]int{qs[0].ID: 0, qs[1].ID: 2})
	assert.ErrorIs(t, err, ErrAttemptsExhausted)

	attempts, err := f.exams.Attempts(ctx, student, e.ID)
	require.NoError(t, err)
	assert.Len(t, attempts, 3)
}

func TestSubmitRequiresEnrollment(t *testing.T) {
	f := newFixture()
	inst := f.user(domain.RoleInstructor, "Ivy")
	student := f.user(domain.RoleStudent, "Sam")
	c := f.course(inst, 0)
	e, qs := seedExam(t, f, inst, c)

	_, err := f.exams.Submit(context.Background(), student, e.ID, map[uint]int{qs[0].ID: 0})
	assert.ErrorIs(t, err, ErrNoAccess)
}

func TestSubmitEmptyExam(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	inst := f.user(domain.RoleInstructor, "Ivy")
	c := f.course(inst, 0)
	e, err := f.exams.CreateExam(ctx, inst, c.ID, ExamInput{Title: "Empty"})
	require.NoError(t, err)

	_, err = f.exams.Submit(ctx, inst, e.ID, nil)
	assert.ErrorIs(t, err, ErrExamEmpty)
}
