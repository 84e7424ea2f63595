package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/stockroom-pos/stockroom/internal/auth"
	"github.com/stockroom-pos/stockroom/internal/shared"
)

type stubAuthRepo struct {
	account auth.Account
}

func (s *stubAuthRepo) FindByEmail(_ context.Context, email string) (*auth.Account, error) {
	if email != s.account.Email {
		return nil, shared.ErrNotFound
	}
	acc := s.account
	return &acc, nil
}

func (s *stubAuthRepo) FindByID(_ context.Context, id int64) (*auth.Account, error) {
	if id != s.account.ID {
		return nil, shared.ErrNotFound
	}
	acc := s.account
	return &acc, nil
}

func (s *stubAuthRepo) Register(context.Context, string, string, string, string) (int64, error) {
	return 0, nil
}

func (s *stubAuthRepo) PatchMissingRole(context.Context, int64, string) error { return nil }

func (s *stubAuthRepo) UpdatePassword(context.Context, int64, string) error { return nil }

func (s *stubAuthRepo) UpdatePhotoURL(context.Context, int64, string) error { return nil }

func (s *stubAuthRepo) CreateSession(context.Context, string, int64, time.Time, string, string) error {
	return nil
}

func (s *stubAuthRepo) DeleteSession(context.Context, string) error { return nil }

func authTestRouter(t *testing.T) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := shared.NewSessionManager(client, "stockroom_session", "session-secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrf-secret")

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	role := shared.RoleStaff
	repo := &stubAuthRepo{account: auth.Account{
		ID:           7,
		Email:        "staff@stockroom.local",
		PasswordHash: string(hash),
		Role:         &role,
		IsActive:     true,
	}}
	service := auth.NewService(repo, client, nil, time.Hour)
	handler := auth.NewHandler(logger, service, sessions, csrf, shared.Guard{})

	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         logger,
		SessionManager: sessions,
		CSRFManager:    csrf,
	}) {
		r.Use(mw)
	}
	r.Route("/auth", handler.MountRoutes)
	return r
}

// An anonymous client must be able to fetch a CSRF token and then sign
// in through the full middleware stack.
func TestAnonymousClientCanFetchCSRFTokenAndSignIn(t *testing.T) {
	router := authTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/csrf", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var tokenResp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tokenResp))
	token := tokenResp["csrf_token"]
	require.NotEmpty(t, token)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	body, err := json.Marshal(map[string]string{
		"email":    "staff@stockroom.local",
		"password": "password123",
	})
	require.NoError(t, err)
	login := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	login.Header.Set("Content-Type", "application/json")
	login.Header.Set(shared.CSRFHeader, token)
	for _, c := range cookies {
		login.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, login)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var profile map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	require.Equal(t, "staff@stockroom.local", profile["email"])
}

func TestLoginWithoutCSRFTokenRejected(t *testing.T) {
	router := authTestRouter(t)

	body, err := json.Marshal(map[string]string{
		"email":    "staff@stockroom.local",
		"password": "password123",
	})
	require.NoError(t, err)
	login := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	login.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, login)
	require.Equal(t, http.StatusForbidden, rec.Code)
}
