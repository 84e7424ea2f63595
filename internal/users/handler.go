package users

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stockroom-pos/stockroom/internal/platform/httpx"
	"github.com/stockroom-pos/stockroom/internal/shared"
)

// Handler wires HTTP endpoints for account management. All routes are
// admin-only.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   shared.Guard
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard shared.Guard) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers user management routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.guard.RequireUser)
	r.Use(h.guard.RequireRole(shared.RoleAdmin))
	r.Get("/", h.List)
	r.Get("/export.csv", h.ExportCSV)
	r.Get("/{id}", h.Show)
	r.Post("/", h.Create)
	r.Put("/{id}/role", h.ChangeRole)
	r.Put("/{id}/activate", h.Activate)
	r.Put("/{id}/deactivate", h.Deactivate)
	r.Delete("/{id}", h.Delete)
}

var userListView = shared.ListView[User]{
	SortKeys: func(user User, column string) (shared.SortKey, bool) {
		switch column {
		case "email":
			return shared.TextKey(user.Email), true
		case "name":
			return shared.TextKey(user.Name), true
		case "role":
			if user.Role == nil {
				return shared.NullKey(shared.SortText), true
			}
			return shared.TextKey(*user.Role), true
		case "created_at":
			return shared.TimeKey(user.CreatedAt), true
		default:
			return shared.SortKey{}, false
		}
	},
	SearchText: func(user User) []string {
		return []string{user.Email, user.Name}
	},
	Timestamp: func(user User) time.Time {
		return user.CreatedAt
	},
}

// List returns the derived view of the accounts collection.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "Failed to load users")
		return
	}
	params := shared.ParseListParams(r.URL.Query())
	page, _, meta := userListView.Apply(accounts, params)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"users":      page,
		"pagination": meta,
	})
}

// Show returns one account.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Invalid user ID")
		return
	}
	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

// Create provisions a new account.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Invalid request body")
		return
	}
	actorID, _ := shared.CurrentUserID(r)
	user, err := h.service.Create(r.Context(), req, actorID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}

// ChangeRole switches an account between admin and staff.
func (h *Handler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Invalid user ID")
		return
	}
	var req ChangeRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Invalid request body")
		return
	}
	actorID, _ := shared.CurrentUserID(r)
	user, err := h.service.ChangeRole(r.Context(), id, req, actorID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

// Activate turns an account back on.
func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

// Deactivate turns an account off without deleting its history.
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Invalid user ID")
		return
	}
	actorID, _ := shared.CurrentUserID(r)
	if err := h.service.SetActive(r.Context(), id, active, actorID); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"is_active": active})
}

// Delete removes an account permanently.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Invalid user ID")
		return
	}
	actorID, _ := shared.CurrentUserID(r)
	if err := h.service.Delete(r.Context(), id, actorID); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "User not found")
	case errors.Is(err, ErrDuplicateEmail):
		httpx.Problem(w, http.StatusConflict, "Duplicate", "Email is already registered")
	case errors.Is(err, ErrLastAdmin):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Last Admin", "At least one active admin account must remain")
	case errors.Is(err, ErrInvalidInput):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("users request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
