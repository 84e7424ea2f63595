package shared

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeRoles struct {
	roles map[int64]string
	err   error
	calls int
}

func (f *fakeRoles) RoleByUserID(_ context.Context, userID int64) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	role, ok := f.roles[userID]
	if !ok {
		return "", ErrNotFound
	}
	return role, nil
}

func requestWithSession(sess *Session) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/users", nil)
	if sess == nil {
		return r
	}
	return r.WithContext(ContextWithSession(r.Context(), sess))
}

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireUser(t *testing.T) {
	guard := Guard{}

	t.Run("no session", func(t *testing.T) {
		var called bool
		rec := httptest.NewRecorder()
		guard.RequireUser(okHandler(&called)).ServeHTTP(rec, requestWithSession(nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.False(t, called)
	})

	t.Run("session without identity", func(t *testing.T) {
		var called bool
		rec := httptest.NewRecorder()
		guard.RequireUser(okHandler(&called)).ServeHTTP(rec, requestWithSession(&Session{}))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.False(t, called)
	})

	t.Run("authenticated", func(t *testing.T) {
		var called bool
		sess := &Session{}
		sess.SetUser("7")
		rec := httptest.NewRecorder()
		guard.RequireUser(okHandler(&called)).ServeHTTP(rec, requestWithSession(sess))
		require.Equal(t, http.StatusOK, rec.Code)
		require.True(t, called)
	})
}

func TestRequireRoleUsesSessionCache(t *testing.T) {
	roles := &fakeRoles{roles: map[int64]string{7: RoleAdmin}}
	guard := Guard{Roles: roles}

	sess := &Session{}
	sess.SetUser("7")
	sess.SetRole(RoleAdmin)

	var called bool
	rec := httptest.NewRecorder()
	guard.RequireRole(RoleAdmin)(okHandler(&called)).ServeHTTP(rec, requestWithSession(sess))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, called)
	require.Zero(t, roles.calls)
}

func TestRequireRolePointReadFallback(t *testing.T) {
	roles := &fakeRoles{roles: map[int64]string{7: RoleAdmin}}
	guard := Guard{Roles: roles}

	sess := &Session{}
	sess.SetUser("7")

	var called bool
	rec := httptest.NewRecorder()
	guard.RequireRole(RoleAdmin)(okHandler(&called)).ServeHTTP(rec, requestWithSession(sess))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, called)
	require.Equal(t, 1, roles.calls)
	// The resolved role is cached back onto the session.
	require.Equal(t, RoleAdmin, sess.Role())
}

func TestRequireRoleMismatch(t *testing.T) {
	guard := Guard{}

	sess := &Session{}
	sess.SetUser("7")
	sess.SetRole(RoleStaff)

	var called bool
	rec := httptest.NewRecorder()
	guard.RequireRole(RoleAdmin)(okHandler(&called)).ServeHTTP(rec, requestWithSession(sess))
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.False(t, called)
}

func TestRequireRoleNoSession(t *testing.T) {
	guard := Guard{}

	rec := httptest.NewRecorder()
	var called bool
	guard.RequireRole(RoleAdmin)(okHandler(&called)).ServeHTTP(rec, requestWithSession(nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.False(t, called)
}

func TestRequireRoleFailsClosed(t *testing.T) {
	sess := func() *Session {
		s := &Session{}
		s.SetUser("7")
		return s
	}

	t.Run("lookup error", func(t *testing.T) {
		guard := Guard{Roles: &fakeRoles{err: errors.New("connection refused")}}
		rec := httptest.NewRecorder()
		var called bool
		guard.RequireRole(RoleAdmin)(okHandler(&called)).ServeHTTP(rec, requestWithSession(sess()))
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.False(t, called)
	})

	t.Run("role missing on record", func(t *testing.T) {
		guard := Guard{Roles: &fakeRoles{roles: map[int64]string{7: ""}}}
		rec := httptest.NewRecorder()
		var called bool
		guard.RequireRole(RoleAdmin)(okHandler(&called)).ServeHTTP(rec, requestWithSession(sess()))
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.False(t, called)
	})

	t.Run("no role source", func(t *testing.T) {
		guard := Guard{}
		rec := httptest.NewRecorder()
		var called bool
		guard.RequireRole(RoleAdmin)(okHandler(&called)).ServeHTTP(rec, requestWithSession(sess()))
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.False(t, called)
	})
}
