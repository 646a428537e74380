package service

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"learnhub/internal/auth"
	"learnhub/internal/domain"
	"learnhub/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var otpPattern = regexp.MustCompile(`<h2>(\d{6})</h2>`)

// lastCode pulls the code out of the most recent mail sent to email.
func lastCode(t *testing.T, f *fixture, email string) string {
	t.Helper()
	sent := f.mail.Sent()
	for i := len(sent) - 1; i >= 0; i-- {
		if sent[i].To != email {
			continue
		}
		m := otpPattern.FindStringSubmatch(sent[i].HTML)
		require.Len(t, m, 2)
		return m[1]
	}
	t.Fatalf("no mail sent to %s", email)
	return ""
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func TestRegisterSendsVerificationCode(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res, err := f.auth.Register(ctx, "Sam", " Sam@Example.com ", "secret123", "")
	require.NoError(t, err)
	assert.Equal(t, "sam@example.com", res.User.Email)
	assert.Equal(t, domain.RoleStudent, res.User.Role)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)

	code := lastCode(t, f, "sam@example.com")
	u, err := f.auth.VerifyEmail(ctx, "sam@example.com", code)
	require.NoError(t, err)
	assert.NotNil(t, u.EmailVerifiedAt)

	// codes are single use
	_, err = f.auth.VerifyEmail(ctx, "sam@example.com", code)
	assert.ErrorIs(t, err, ErrInvalidOTP)
}

func TestRegisterRejectsAdminRoleAndDuplicates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.auth.Register(ctx, "Eve", "eve@example.com", "secret123", domain.RoleAdmin)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.auth.Register(ctx, "Sam", "sam@example.com", "secret123", domain.RoleInstructor)
	require.NoError(t, err)
	_, err = f.auth.Register(ctx, "Sam", "SAM@example.com", "secret123", "")
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestLogin(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.auth.Register(ctx, "Sam", "sam@example.com", "secret123", "")
	require.NoError(t, err)

	_, err = f.auth.Login(ctx, "sam@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCreds)
	_, err = f.auth.Login(ctx, "nobody@example.com", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCreds)

	res, err := f.auth.Login(ctx, "SAM@example.com", "secret123")
	require.NoError(t, err)

	u := res.User
	u.IsActive = false
	require.NoError(t, memUsers{f.db}.Update(ctx, u))
	_, err = f.auth.Login(ctx, "sam@example.com", "secret123")
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestOTPBurnedAfterMaxAttempts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.auth.Register(ctx, "Sam", "sam@example.com", "secret123", "")
	require.NoError(t, err)
	require.NoError(t, f.auth.SendOTP(ctx, "sam@example.com", domain.OTPPurposeResetPassword))
	code := lastCode(t, f, "sam@example.com")

	for i := 0; i < 5; i++ {
		err := f.auth.ResetPassword(ctx, "sam@example.com", wrongCode(code), "newsecret")
		assert.ErrorIs(t, err, ErrInvalidOTP)
	}
	err = f.auth.ResetPassword(ctx, "sam@example.com", code, "newsecret")
	assert.ErrorIs(t, err, ErrInvalidOTP)

	_, err = f.auth.Login(ctx, "sam@example.com", "secret123")
	assert.NoError(t, err)
}

func TestResetPasswordWithValidCode(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.auth.Register(ctx, "Sam", "sam@example.com", "secret123", "")
	require.NoError(t, err)
	require.NoError(t, f.auth.SendOTP(ctx, "sam@example.com", domain.OTPPurposeResetPassword))

	require.NoError(t, f.auth.ResetPassword(ctx, "sam@example.com", lastCode(t, f, "sam@example.com"), "newsecret"))
	_, err = f.auth.Login(ctx, "sam@example.com", "newsecret")
	assert.NoError(t, err)
}

func TestSendOTPThrottledAndSilentForUnknownEmail(t *testing.T) {
	f := newFixture()
	f.cfg.OTP.ResendInterval = time.Minute
	ctx := context.Background()

	require.NoError(t, f.auth.SendOTP(ctx, "ghost@example.com", domain.OTPPurposeResetPassword))
	assert.Empty(t, f.mail.Sent())

	err := f.auth.SendOTP(ctx, "ghost@example.com", domain.OTPPurposeResetPassword)
	assert.ErrorIs(t, err, ErrOTPThrottled)

	err = f.auth.SendOTP(ctx, "ghost@example.com", "login")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRefreshRotatesToken(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	res, err := f.auth.Register(ctx, "Sam", "sam@example.com", "secret123", "")
	require.NoError(t, err)

	next, err := f.auth.Refresh(ctx, res.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, res.RefreshToken, next.RefreshToken)

	_, err = f.auth.Refresh(ctx, res.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	_, err = f.auth.Refresh(ctx, next.AccessToken)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	require.NoError(t, f.auth.Logout(ctx, next.RefreshToken))
	_, err = f.auth.Refresh(ctx, next.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

// barrierBlocklist holds every IsRevoked caller until n callers have checked.
type barrierBlocklist struct {
	TokenBlocklist
	checked sync.WaitGroup
}

func (b *barrierBlocklist) IsRevoked(ctx context.Context, id string) (bool, error) {
	revoked, err := b.TokenBlocklist.IsRevoked(ctx, id)
	b.checked.Done()
	b.checked.Wait()
	return revoked, err
}

func TestConcurrentRefreshRotatesOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	res, err := f.auth.Register(ctx, "Sam", "sam@example.com", "secret123", "")
	require.NoError(t, err)

	const callers = 2
	blocklist := &barrierBlocklist{TokenBlocklist: f.otp}
	blocklist.checked.Add(callers)
	svc := NewAuthService(f.cfg, memUsers{f.db}, f.otp, blocklist, f.mail)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var ok, revoked int
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Refresh(ctx, res.RefreshToken)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrTokenRevoked):
				revoked++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, revoked)
}

func TestChangePassword(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	res, err := f.auth.Register(ctx, "Sam", "sam@example.com", "secret123", "")
	require.NoError(t, err)

	assert.ErrorIs(t, f.auth.ChangePassword(ctx, res.User.ID, "nope", "other123"), ErrInvalidCreds)
	require.NoError(t, f.auth.ChangePassword(ctx, res.User.ID, "secret123", "other123"))
	_, err = f.auth.Login(ctx, "sam@example.com", "other123")
	assert.NoError(t, err)
}

func TestLoginWithGoogleCreatesThenLinks(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res, created, err := f.auth.LoginWithGoogle(ctx, "g-1", "new@example.com", "", "https://img")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "new", res.User.Name)
	assert.Equal(t, domain.RoleStudent, res.User.Role)

	_, created, err = f.auth.LoginWithGoogle(ctx, "g-1", "new@example.com", "", "")
	require.NoError(t, err)
	assert.False(t, created)

	_, err = f.auth.Register(ctx, "Sam", "sam@example.com", "secret123", "")
	require.NoError(t, err)
	res, created, err = f.auth.LoginWithGoogle(ctx, "g-2", "sam@example.com", "Sam G", "")
	require.NoError(t, err)
	assert.False(t, created)
	require.NotNil(t, res.User.GoogleID)
	assert.Equal(t, "g-2", *res.User.GoogleID)
	assert.NotNil(t, res.User.EmailVerifiedAt)
}

func TestEnsureAdminSeedsOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.cfg.Admin.Email = "root@example.com"
	f.cfg.Admin.Password = "rootpass"
	f.cfg.Admin.Name = "Root"

	require.NoError(t, f.auth.EnsureAdmin(ctx))
	require.NoError(t, f.auth.EnsureAdmin(ctx))

	n, err := memUsers{f.db}.CountByRole(ctx, domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = memUsers{f.db}.GetByEmail(ctx, "root@example.com")
	assert.NotErrorIs(t, err, repository.ErrNotFound)
}
