package shared

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/stockroom-pos/stockroom/internal/platform/httpx"
)

// RoleSource resolves the stored role for a user identity. The lookup
// is a point read against the users collection.
type RoleSource interface {
	RoleByUserID(ctx context.Context, userID int64) (string, error)
}

// Guard gates route access on the caller's session and role.
//
// Denial semantics are deliberately uniform: a missing session is 401,
// a role mismatch is an inline 403, and a failed or empty role lookup
// is a retryable 500. An unknown role never defaults to either
// permission level.
type Guard struct {
	Roles  RoleSource
	Logger *slog.Logger
}

// RequireUser ensures an authenticated session is present.
func (g Guard) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUserID(r); !ok {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "Sign in to continue")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole ensures the caller holds exactly the required role.
func (g Guard) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := CurrentUserID(r)
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "Sign in to continue")
				return
			}
			current, err := g.resolveRole(r, userID)
			if err != nil {
				if g.Logger != nil {
					g.Logger.Error("resolve role", slog.Int64("user_id", userID), slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Role Unavailable", UserSafeMessage(ErrRoleUnavailable))
				return
			}
			if current != role {
				httpx.Problem(w, http.StatusForbidden, "Access Denied", "You do not have access to this resource")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// resolveRole returns the session-cached role, falling back to a single
// point read when the session predates role storage. The role check is
// never evaluated against an unresolved value.
func (g Guard) resolveRole(r *http.Request, userID int64) (string, error) {
	sess := SessionFromContext(r.Context())
	if sess != nil {
		if role := sess.Role(); role != "" {
			return role, nil
		}
	}
	if g.Roles == nil {
		return "", ErrRoleUnavailable
	}
	role, err := g.Roles.RoleByUserID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrRoleUnavailable
		}
		return "", err
	}
	if role == "" {
		return "", ErrRoleUnavailable
	}
	if sess != nil {
		sess.SetRole(role)
	}
	return role, nil
}

// CurrentUserID extracts the authenticated user ID from the request session.
func CurrentUserID(r *http.Request) (int64, bool) {
	sess := SessionFromContext(r.Context())
	if sess == nil {
		return 0, false
	}
	raw := sess.User()
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// CurrentRole returns the session-cached role, if resolved.
func CurrentRole(r *http.Request) string {
	sess := SessionFromContext(r.Context())
	if sess == nil {
		return ""
	}
	return sess.Role()
}

// IsAdmin reports whether the request carries an admin session.
func IsAdmin(r *http.Request) bool {
	return CurrentRole(r) == RoleAdmin
}
