package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/stockroom-pos/stockroom/internal/platform/httpx"
	"github.com/stockroom-pos/stockroom/internal/shared"
	"github.com/stockroom-pos/stockroom/internal/users"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	guard          shared.Guard
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, csrf *shared.CSRFManager, guard shared.Guard) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		csrfManager:    csrf,
		guard:          guard,
	}
}

type profileResponse struct {
	ID       int64   `json:"id"`
	Email    string  `json:"email"`
	Name     string  `json:"name"`
	Role     string  `json:"role"`
	PhotoURL *string `json:"photo_url,omitempty"`
}

func toProfile(acc *Account) profileResponse {
	role := ""
	if acc.Role != nil {
		role = *acc.Role
	}
	return profileResponse{ID: acc.ID, Email: acc.Email, Name: acc.Name, Role: role, PhotoURL: acc.PhotoURL}
}

// MountRoutes registers auth routes on the provided router. Credential
// endpoints get a tighter per-IP rate limit than the global one.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		r.Post("/login", h.Login)
		r.Post("/register", h.Register)
		r.Post("/password-reset", h.RequestPasswordReset)
		r.Post("/password-reset/confirm", h.ConfirmPasswordReset)
	})
	r.Post("/logout", h.Logout)
	// Anonymous sessions carry tokens too, so a client can fetch one
	// before it signs in.
	r.Get("/csrf", h.CSRFToken)
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireUser)
		r.Get("/me", h.Me)
		r.Put("/me/password", h.ChangePassword)
		r.Put("/me/photo", h.UpdatePhoto)
	})
}

// Login authenticates credentials and establishes the session. The
// resolved role is written into the session so guards do not re-read it
// per request.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Invalid request body")
		return
	}
	acc, err := h.service.Authenticate(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	sess.SetUser(strconv.FormatInt(acc.ID, 10))
	if acc.Role != nil {
		sess.SetRole(*acc.Role)
	}
	sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Welcome back"})

	expiresAt := time.Now().Add(h.sessionManager.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, acc.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}

	httpx.JSON(w, http.StatusOK, toProfile(acc))
}

// Logout destroys the session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

// Register creates a self-serve staff account.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Invalid request body")
		return
	}
	acc, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toProfile(acc))
}

// Me returns the caller's identity, role and photo.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, _ := shared.CurrentUserID(r)
	acc, err := h.service.Profile(r.Context(), userID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toProfile(acc))
}

// CSRFToken hands the client a token for subsequent mutations.
func (h *Handler) CSRFToken(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	token, err := h.csrfManager.EnsureToken(r.Context(), sess)
	if err != nil {
		h.logger.Error("issue csrf token", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"csrf_token": token})
}

// RequestPasswordReset starts the reset flow. The response does not
// reveal whether the email exists.
func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Invalid request body")
		return
	}
	if err := h.service.RequestPasswordReset(r.Context(), req); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"status": "reset_mail_queued"})
}

// ConfirmPasswordReset redeems a reset token.
func (h *Handler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetConfirm
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Invalid request body")
		return
	}
	if err := h.service.ConfirmPasswordReset(r.Context(), req); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "password_updated"})
}

// ChangePassword updates the caller's own password.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Invalid request body")
		return
	}
	userID, _ := shared.CurrentUserID(r)
	if err := h.service.ChangePassword(r.Context(), userID, req); err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			httpx.Problem(w, http.StatusForbidden, "Password Check Failed", "Your current password did not match. Sign in again if the problem persists.")
			return
		}
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "password_updated"})
}

// UpdatePhoto changes the caller's display photo URL.
func (h *Handler) UpdatePhoto(w http.ResponseWriter, r *http.Request) {
	var req UpdatePhotoRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Invalid request body")
		return
	}
	userID, _ := shared.CurrentUserID(r)
	if err := h.service.UpdatePhoto(r.Context(), userID, req); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "photo_updated"})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrInvalidCredentials):
		httpx.Problem(w, http.StatusUnauthorized, "Sign In Failed", shared.UserSafeMessage(shared.ErrInvalidCredentials))
	case errors.Is(err, ErrRoleUnverified):
		httpx.Problem(w, http.StatusInternalServerError, "Role Unavailable", shared.UserSafeMessage(shared.ErrRoleUnavailable))
	case errors.Is(err, ErrProfileRepairFailed):
		httpx.Problem(w, http.StatusInternalServerError, "Profile Repair Failed", "Your profile could not be prepared. Please try signing in again.")
	case errors.Is(err, ErrInvalidToken):
		httpx.Problem(w, http.StatusBadRequest, "Invalid Token", "The reset token is invalid or has expired")
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "Account not found")
	case errors.Is(err, users.ErrDuplicateEmail):
		httpx.Problem(w, http.StatusConflict, "Duplicate", "Email is already registered")
	case errors.Is(err, ErrInvalidInput):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("auth request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
