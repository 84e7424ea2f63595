package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/stockroom-pos/stockroom/internal/shared"
)

// Mailer enqueues outbound mail. Delivery happens on the worker.
type Mailer interface {
	EnqueueSendEmail(ctx context.Context, to, subject, body string) error
}

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	redis    *redis.Client
	mailer   Mailer
	resetTTL time.Duration
	validate *validator.Validate
}

// NewService constructs a new Service.
func NewService(repo Repository, redisClient *redis.Client, mailer Mailer, resetTTL time.Duration) *Service {
	return &Service{repo: repo, redis: redisClient, mailer: mailer, resetTTL: resetTTL, validate: validator.New()}
}

// Authenticate validates email/password credentials and then guarantees
// the profile carries a role before any session is established: a row
// missing its role is patched to staff and read back. A role that still
// cannot be confirmed aborts the sign-in.
func (s *Service) Authenticate(ctx context.Context, req LoginRequest) (*Account, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	acc, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !acc.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(req.Password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return s.ensureRole(ctx, acc)
}

func (s *Service) ensureRole(ctx context.Context, acc *Account) (*Account, error) {
	if acc.Role != nil && *acc.Role != "" {
		return acc, nil
	}
	if err := s.repo.PatchMissingRole(ctx, acc.ID, shared.RoleStaff); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrProfileRepairFailed, err)
	}
	repaired, err := s.repo.FindByID(ctx, acc.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrProfileRepairFailed, err)
	}
	if repaired.Role == nil || *repaired.Role == "" {
		return nil, ErrRoleUnverified
	}
	return repaired, nil
}

// Register creates a self-serve staff account.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Account, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	id, err := s.repo.Register(ctx, req.Email, req.Name, string(hash), shared.RoleStaff)
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

// Profile fetches the caller's own account.
func (s *Service) Profile(ctx context.Context, userID int64) (*Account, error) {
	return s.repo.FindByID(ctx, userID)
}

// RequestPasswordReset issues a one-time redis token and mails it. An
// unknown email gets the same response as a known one.
func (s *Service) RequestPasswordReset(ctx context.Context, req PasswordResetRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	acc, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}
	token := uuid.NewString()
	if err := s.redis.Set(ctx, resetKey(token), strconv.FormatInt(acc.ID, 10), s.resetTTL).Err(); err != nil {
		return err
	}
	if s.mailer != nil {
		body := "Use this token to reset your password: " + token +
			"\nThe token expires in " + s.resetTTL.String() + "."
		if err := s.mailer.EnqueueSendEmail(ctx, acc.Email, "Password reset", body); err != nil {
			return err
		}
	}
	return nil
}

// ConfirmPasswordReset redeems a reset token and stores the new
// password. The token is single use.
func (s *Service) ConfirmPasswordReset(ctx context.Context, req PasswordResetConfirm) error {
	if err := s.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	raw, err := s.redis.GetDel(ctx, resetKey(req.Token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrInvalidToken
		}
		return err
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return ErrInvalidToken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, userID, string(hash))
}

// ChangePassword verifies the current password before storing the new
// one.
func (s *Service) ChangePassword(ctx context.Context, userID int64, req ChangePasswordRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	acc, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(req.Current)); err != nil {
		return shared.ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.New), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, userID, string(hash))
}

// UpdatePhoto stores a new display photo URL for the caller.
func (s *Service) UpdatePhoto(ctx context.Context, userID int64, req UpdatePhotoRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	return s.repo.UpdatePhotoURL(ctx, userID, req.PhotoURL)
}

func resetKey(token string) string {
	return "pwreset:" + token
}
