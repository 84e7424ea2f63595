package auth

import (
	"errors"
	"time"
)

// Account is an authenticated identity joined with its profile row.
type Account struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Role         *string
	PhotoURL     *string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// LoginRequest carries sign-in credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// RegisterRequest creates a self-serve account. New accounts always
// start as staff; only an admin can promote them afterwards.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Name     string `json:"name" validate:"required,max=200"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

// PasswordResetRequest starts the reset flow for an email.
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// PasswordResetConfirm redeems a reset token.
type PasswordResetConfirm struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

// ChangePasswordRequest updates the caller's own password.
type ChangePasswordRequest struct {
	Current string `json:"current" validate:"required"`
	New     string `json:"new" validate:"required,min=6,max=128"`
}

// UpdatePhotoRequest changes the caller's display photo.
type UpdatePhotoRequest struct {
	PhotoURL string `json:"photo_url" validate:"required,url,max=2048"`
}

var (
	// ErrProfileRepairFailed indicates the users row could not be
	// created or patched during sign-in. Retrying sign-in is safe.
	ErrProfileRepairFailed = errors.New("auth: profile repair failed")
	// ErrRoleUnverified indicates the role was still missing after the
	// repair write. The session is not established.
	ErrRoleUnverified = errors.New("auth: role could not be verified")
	// ErrInvalidToken indicates an expired or unknown reset token.
	ErrInvalidToken = errors.New("auth: invalid or expired token")
	// ErrInvalidInput indicates a rejected auth form.
	ErrInvalidInput = errors.New("auth: invalid input")
)
