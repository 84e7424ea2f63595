package users

import (
	"errors"
	"time"
)

// User represents a managed account. Role is nullable: identities
// created before role storage existed carry no role until the sign-in
// repair path patches one in.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      *string   `json:"role,omitempty"`
	PhotoURL  *string   `json:"photo_url,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateUserRequest provisions a new account with a role.
type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Name     string `json:"name" validate:"required,max=200"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Role     string `json:"role" validate:"required,oneof=admin staff"`
}

// ChangeRoleRequest switches an account between admin and staff.
type ChangeRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin staff"`
}

var (
	// ErrDuplicateEmail indicates the email is already registered.
	ErrDuplicateEmail = errors.New("users: email already registered")
	// ErrLastAdmin rejects demoting or removing the only admin.
	ErrLastAdmin = errors.New("users: cannot remove the last admin")
	// ErrInvalidInput indicates a rejected account form.
	ErrInvalidInput = errors.New("users: invalid input")
)
