package service

import (
	"context"
	"testing"
	"time"

	"learnhub/internal/domain"
	"learnhub/internal/models"
	"learnhub/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrollFree(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	inst := f.user(domain.RoleInstructor, "Ivy")
	student := f.user(domain.RoleStudent, "Sam")
	free := f.course(inst, 0)
	paid := f.course(inst, 9900)

	e, err := f.enrollments.EnrollFree(ctx, student, free.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EnrollmentActive, e.Status)
	assert.Nil(t, e.ExpiresAt)

	_, err = f.enrollments.EnrollFree(ctx, student, free.ID)
	assert.ErrorIs(t, err, ErrAlreadyEnrolled)

	_, err = f.enrollments.EnrollFree(ctx, student, paid.ID)
	assert.ErrorIs(t, err, ErrPaidCourse)

	page, err := f.notifications.List(ctx, student.ID, 1, 20)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, domain.NotifEnrolled, page.Items[0].Type)
	assert.Equal(t, int64(1), page.UnreadCount)
}

// staleEnrollments misses rows on the locking read, as a concurrent grant
// that has not committed yet would.
type staleEnrollments struct{ memEnrollments }

func (staleEnrollments) GetForUpdate(context.Context, uint, uint) (*models.Enrollment, error) {
	return nil, repository.ErrNotFound
}

func TestEnrollFreeLosingRaceIsAlreadyEnrolled(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	inst := f.user(domain.RoleInstructor, "Ivy")
	student := f.user(domain.RoleStudent, "Sam")
	free := f.course(inst, 0)

	_, err := f.enrollments.EnrollFree(ctx, student, free.ID)
	require.NoError(t, err)

	racing := NewEnrollmentService(memCourses{f.db}, staleEnrollments{memEnrollments{f.db}}, f.notifications)
	_, err = racing.EnrollFree(ctx, student, free.ID)
	assert.ErrorIs(t, err, ErrAlreadyEnrolled)
}

func TestEnrollFreeRejectsDraft(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	inst := f.user(domain.RoleInstructor, "Ivy")
	student := f.user(domain.RoleStudent, "Sam")
	c := f.course(inst, 0)
	c.Status = domain.CourseStatusDraft
	require.NoError(t, memCourses{f.db}.Update(ctx, c))

	_, err := f.enrollments.EnrollFree(ctx, student, c.ID)
	assert.ErrorIs(t, err, ErrNotPublished)
}

func TestExpiredEnrollmentFlipsAndReactivates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	inst := f.user(domain.RoleInstructor, "Ivy")
	student := f.user(domain.RoleStudent, "Sam")
	c := f.course(inst, 0)
	c.AccessDays = 10
	require.NoError(t, memCourses{f.db}.Update(ctx, c))

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	f.enrollments.now = func() time.Time { return start }
	_, err := f.enrollments.EnrollFree(ctx, student, c.ID)
	require.NoError(t, err)

	later := start.AddDate(0, 0, 11)
	f.enrollments.now = func() time.Time { return later }
	ok, e, err := f.enrollments.HasAccess(ctx, student, c)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, domain.EnrollmentExpired, e.Status)

	stored, err := memEnrollments{f.db}.Get(ctx, student.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EnrollmentExpired, stored.Status)

	_, err = f.enrollments.RequireAccess(ctx, student, c.ID)
	assert.ErrorIs(t, err, ErrNoAccess)

	e, err = f.enrollments.EnrollFree(ctx, student, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EnrollmentActive, e.Status)
	require.NotNil(t, e.ExpiresAt)
	assert.True(t, e.ExpiresAt.Equal(later.AddDate(0, 0, 10)))
}

func TestManagersAlwaysHaveAccess(t *testing.T) {
	f := newFixture()
	inst := f.user(domain.RoleInstructor, "Ivy")
	admin := f.user(domain.RoleAdmin, "Ada")
	c := f.course(inst, 9900)

	for _, a := range []Actor{inst, admin} {
		ok, _, err := f.enrollments.HasAccess(context.Background(), a, c)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestCompleteLessonIsIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	inst := f.user(domain.RoleInstructor, "Ivy")
	student := f.user(domain.RoleStudent, "Sam")
	c := f.course(inst, 0)
	f.enroll(student, c)
	extra := &models.Lesson{CourseID: c.ID, Title: "More", Position: 2}
	require.NoError(t, memCourses{f.db}.CreateLesson(ctx, extra))

	p, err := f.enrollments.CompleteLesson(ctx, student, c.ID, extra.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, p.TotalLessons)
	assert.Equal(t, 1, p.CompletedLessons)
	assert.InDelta(t, 50.0, p.Percent, 0.001)

	p, err = f.enrollments.CompleteLesson(ctx, student, c.ID, extra.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, p.CompletedLessons)

	other := f.course(inst, 0)
	_, err = f.enrollments.CompleteLesson(ctx, student, other.ID, extra.ID)
	assert.ErrorIs(t, err, ErrNoAccess)
}
