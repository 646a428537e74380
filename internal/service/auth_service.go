package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"learnhub/config"
	"learnhub/internal/auth"
	"learnhub/internal/domain"
	"learnhub/internal/models"
	"learnhub/internal/repository"
	"learnhub/pkg/mailer"

	"golang.org/x/crypto/bcrypt"
)

// AuthResult is returned by every sign-in path.
type AuthResult struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
}

type AuthService struct {
	cfg     *config.Config
	users   repository.UserStore
	otps    OTPStore
	revoked TokenBlocklist
	mail    mailer.Sender
	now     func() time.Time
}

func NewAuthService(cfg *config.Config, users repository.UserStore, otps OTPStore, revoked TokenBlocklist, mail mailer.Sender) *AuthService {
	return &AuthService{cfg: cfg, users: users, otps: otps, revoked: revoked, mail: mail, now: time.Now}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a student or instructor account and sends an email
// verification code.
func (s *AuthService) Register(ctx context.Context, name, email, password, role string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if role == "" {
		role = domain.RoleStudent
	}
	if role != domain.RoleStudent && role != domain.RoleInstructor {
		return nil, fmt.Errorf("%w: role must be STUDENT or INSTRUCTOR", ErrInvalidInput)
	}
	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return nil, ErrEmailExists
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	if err := s.SendOTP(ctx, email, domain.OTPPurposeVerifyEmail); err != nil {
		slog.WarnContext(ctx, "verification code not sent", "user_id", u.ID, "error", err)
	}
	return s.issue(u)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCreds
		}
		return nil, err
	}
	if u.PasswordHash == "" {
		return nil, ErrInvalidCreds
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCreds
	}
	if !u.IsActive {
		return nil, ErrAccountDisabled
	}
	return s.issue(u)
}

// Refresh rotates a refresh token: the presented one is revoked and a new pair is issued.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	rc, err := auth.ParseRefreshToken(&s.cfg.JWT, refreshToken)
	if err != nil {
		return nil, err
	}
	revoked, err := s.revoked.IsRevoked(ctx, rc.TokenID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	u, err := s.users.GetByID(ctx, rc.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, auth.ErrInvalidToken
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrAccountDisabled
	}
	// The first caller to revoke owns the rotation.
	first, err := s.revoked.Revoke(ctx, rc.TokenID, rc.ExpiresAt.Sub(s.now()))
	if err != nil {
		return nil, fmt.Errorf("revoke refresh token: %w", err)
	}
	if !first {
		return nil, ErrTokenRevoked
	}
	return s.issue(u)
}

// Logout revokes the refresh token. Access tokens expire on their own.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	rc, err := auth.ParseRefreshToken(&s.cfg.JWT, refreshToken)
	if err != nil {
		return nil
	}
	_, err = s.revoked.Revoke(ctx, rc.TokenID, rc.ExpiresAt.Sub(s.now()))
	return err
}

func (s *AuthService) ChangePassword(ctx context.Context, userID uint, currentPassword, newPassword string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return ErrInvalidCreds
	}
	if u.PasswordHash == "" {
		return ErrNoPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrInvalidCreds
	}
	return s.setPassword(ctx, u, newPassword)
}

// SendOTP emails a fresh code for purpose. Unknown emails succeed silently.
func (s *AuthService) SendOTP(ctx context.Context, email, purpose string) error {
	email = normalizeEmail(email)
	if purpose != domain.OTPPurposeVerifyEmail && purpose != domain.OTPPurposeResetPassword {
		return fmt.Errorf("%w: unknown purpose", ErrInvalidInput)
	}
	allowed, err := s.otps.Throttle(ctx, purpose, email, s.cfg.OTP.ResendInterval)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrOTPThrottled
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	if purpose == domain.OTPPurposeVerifyEmail && u.EmailVerifiedAt != nil {
		return nil
	}
	code, err := generateOTP()
	if err != nil {
		return err
	}
	if err := s.otps.Save(ctx, purpose, email, hashOTP(code), s.cfg.OTP.TTL); err != nil {
		return err
	}
	return s.mail.Send(ctx, mailer.OTPMessage(email, code, purpose))
}

// VerifyEmail consumes a verify_email code and marks the address verified.
func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) (*models.User, error) {
	email = normalizeEmail(email)
	if err := s.consumeOTP(ctx, domain.OTPPurposeVerifyEmail, email, code); err != nil {
		return nil, err
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidOTP
	}
	if u.EmailVerifiedAt == nil {
		now := s.now()
		u.EmailVerifiedAt = &now
		if err := s.users.Update(ctx, u); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// ResetPassword consumes a reset_password code and replaces the password.
func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = normalizeEmail(email)
	if err := s.consumeOTP(ctx, domain.OTPPurposeResetPassword, email, code); err != nil {
		return err
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return ErrInvalidOTP
	}
	if u.EmailVerifiedAt == nil {
		now := s.now()
		u.EmailVerifiedAt = &now
	}
	return s.setPassword(ctx, u, newPassword)
}

// consumeOTP checks code against the stored hash. A wrong code counts as an
// attempt; the code is burned once attempts reach the configured maximum.
func (s *AuthService) consumeOTP(ctx context.Context, purpose, email, code string) error {
	rec, err := s.otps.Get(ctx, purpose, email)
	if err != nil {
		return err
	}
	if rec == nil {
		return ErrInvalidOTP
	}
	limit := s.cfg.OTP.MaxAttempts
	if limit <= 0 {
		limit = 5
	}
	if rec.Attempts >= limit {
		_ = s.otps.Delete(ctx, purpose, email)
		return ErrInvalidOTP
	}
	if subtle.ConstantTimeCompare([]byte(rec.CodeHash), []byte(hashOTP(code))) != 1 {
		n, err := s.otps.IncrementAttempts(ctx, purpose, email)
		if err != nil {
			return err
		}
		if n >= limit {
			_ = s.otps.Delete(ctx, purpose, email)
		}
		return ErrInvalidOTP
	}
	return s.otps.Delete(ctx, purpose, email)
}

// LoginWithGoogle finds or creates the user for a Google identity. New
// accounts are students; an existing email account gets the Google ID linked.
func (s *AuthService) LoginWithGoogle(ctx context.Context, googleID, email, name, avatarURL string) (*AuthResult, bool, error) {
	email = normalizeEmail(email)
	u, err := s.users.GetByGoogleID(ctx, googleID)
	if err == nil {
		if !u.IsActive {
			return nil, false, ErrAccountDisabled
		}
		res, err := s.issue(u)
		return res, false, err
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, err
	}
	now := s.now()
	gid := googleID
	existing, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		if !existing.IsActive {
			return nil, false, ErrAccountDisabled
		}
		existing.GoogleID = &gid
		if existing.AvatarURL == "" {
			existing.AvatarURL = avatarURL
		}
		if existing.EmailVerifiedAt == nil {
			existing.EmailVerifiedAt = &now
		}
		if err := s.users.Update(ctx, existing); err != nil {
			return nil, false, err
		}
		res, err := s.issue(existing)
		return res, false, err
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, err
	}
	if name == "" {
		name = strings.Split(email, "@")[0]
	}
	u = &models.User{
		Name:            name,
		Email:           email,
		GoogleID:        &gid,
		Role:            domain.RoleStudent,
		AvatarURL:       avatarURL,
		EmailVerifiedAt: &now,
		IsActive:        true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, false, err
	}
	res, err := s.issue(u)
	return res, true, err
}

func (s *AuthService) Me(ctx context.Context, userID uint) (*models.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return u, err
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID uint, name, bio, avatarURL *string) (*models.User, error) {
	u, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	if name != nil && strings.TrimSpace(*name) != "" {
		u.Name = strings.TrimSpace(*name)
	}
	if bio != nil {
		u.Bio = *bio
	}
	if avatarURL != nil {
		u.AvatarURL = *avatarURL
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AuthService) UpdateFCMToken(ctx context.Context, userID uint, token string) error {
	u, err := s.Me(ctx, userID)
	if err != nil {
		return err
	}
	u.FCMToken = token
	return s.users.Update(ctx, u)
}

// EnsureAdmin creates the configured admin account when no admin exists yet.
func (s *AuthService) EnsureAdmin(ctx context.Context) error {
	seed := s.cfg.Admin
	if seed.Email == "" || seed.Password == "" {
		return nil
	}
	n, err := s.users.CountByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(seed.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	now := s.now()
	u := &models.User{
		Name:            seed.Name,
		Email:           normalizeEmail(seed.Email),
		PasswordHash:    string(hash),
		Role:            domain.RoleAdmin,
		EmailVerifiedAt: &now,
		IsActive:        true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	slog.InfoContext(ctx, "admin account seeded", "email", u.Email)
	return nil
}

func (s *AuthService) setPassword(ctx context.Context, u *models.User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return s.users.Update(ctx, u)
}

func (s *AuthService) issue(u *models.User) (*AuthResult, error) {
	access, err := auth.GenerateAccessToken(&s.cfg.JWT, u.ID, u.Email, u.Role)
	if err != nil {
		return nil, err
	}
	refresh, err := auth.GenerateRefreshToken(&s.cfg.JWT, u.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: u, AccessToken: access, RefreshToken: refresh}, nil
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func hashOTP(code string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(code)))
	return hex.EncodeToString(sum[:])
}
