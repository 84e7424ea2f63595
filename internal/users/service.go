package users

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/stockroom-pos/stockroom/internal/shared"
)

// RepositoryPort defines data access methods for account management.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	Get(ctx context.Context, id int64) (*User, error)
	Insert(ctx context.Context, email, name, passwordHash, role string) (int64, error)
	UpdateRole(ctx context.Context, userID int64, role string) error
	SetActive(ctx context.Context, userID int64, active bool) error
	Delete(ctx context.Context, userID int64) error
	CountAdmins(ctx context.Context) (int64, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles account management business logic.
type Service struct {
	repo     RepositoryPort
	audit    AuditPort
	validate *validator.Validate
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, validate: validator.New()}
}

// ListUsers returns all accounts.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// Get fetches one account.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.repo.Get(ctx, id)
}

// Create provisions a new account.
func (s *Service) Create(ctx context.Context, req CreateUserRequest, actorID int64) (*User, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	id, err := s.repo.Insert(ctx, req.Email, req.Name, string(hash), req.Role)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "user.create", id, map[string]any{"email": req.Email, "role": req.Role})
	return s.repo.Get(ctx, id)
}

// ChangeRole switches an account's role. Demoting the last active
// admin is rejected so the system always keeps one.
func (s *Service) ChangeRole(ctx context.Context, userID int64, req ChangeRoleRequest, actorID int64) (*User, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.Role != shared.RoleAdmin && user.Role != nil && *user.Role == shared.RoleAdmin {
		if err := s.requireAnotherAdmin(ctx); err != nil {
			return nil, err
		}
	}
	if err := s.repo.UpdateRole(ctx, userID, req.Role); err != nil {
		return nil, err
	}
	oldRole := ""
	if user.Role != nil {
		oldRole = *user.Role
	}
	s.recordAudit(ctx, actorID, "user.role_change", userID, map[string]any{"from": oldRole, "to": req.Role})
	return s.repo.Get(ctx, userID)
}

// SetActive toggles an account. Deactivating the last active admin is
// rejected for the same reason as demotion.
func (s *Service) SetActive(ctx context.Context, userID int64, active bool, actorID int64) error {
	if !active {
		user, err := s.repo.Get(ctx, userID)
		if err != nil {
			return err
		}
		if user.Role != nil && *user.Role == shared.RoleAdmin {
			if err := s.requireAnotherAdmin(ctx); err != nil {
				return err
			}
		}
	}
	if err := s.repo.SetActive(ctx, userID, active); err != nil {
		return err
	}
	action := "user.deactivate"
	if active {
		action = "user.activate"
	}
	s.recordAudit(ctx, actorID, action, userID, nil)
	return nil
}

// Delete removes an account permanently.
func (s *Service) Delete(ctx context.Context, userID int64, actorID int64) error {
	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if user.Role != nil && *user.Role == shared.RoleAdmin {
		if err := s.requireAnotherAdmin(ctx); err != nil {
			return err
		}
	}
	if err := s.repo.Delete(ctx, userID); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "user.delete", userID, map[string]any{"email": user.Email})
	return nil
}

func (s *Service) requireAnotherAdmin(ctx context.Context) error {
	n, err := s.repo.CountAdmins(ctx)
	if err != nil {
		return err
	}
	if n <= 1 {
		return ErrLastAdmin
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
}
