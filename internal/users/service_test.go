package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/stockroom-pos/stockroom/internal/shared"
)

type fakeRepo struct {
	users  map[int64]User
	hashes map[int64]string
	next   int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: map[int64]User{}, hashes: map[int64]string{}, next: 1}
}

func (f *fakeRepo) addUser(role string, active bool) int64 {
	id := f.next
	f.next++
	f.users[id] = User{ID: id, Email: "user" + string(rune('a'+id)) + "@shop.test", Role: &role, IsActive: active}
	return id
}

func (f *fakeRepo) ListUsers(ctx context.Context) ([]User, error) {
	var out []User
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeRepo) Get(ctx context.Context, id int64) (*User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &u, nil
}

func (f *fakeRepo) Insert(ctx context.Context, email, name, passwordHash, role string) (int64, error) {
	for _, u := range f.users {
		if u.Email == email {
			return 0, ErrDuplicateEmail
		}
	}
	id := f.next
	f.next++
	f.users[id] = User{ID: id, Email: email, Name: name, Role: &role, IsActive: true}
	f.hashes[id] = passwordHash
	return id, nil
}

func (f *fakeRepo) UpdateRole(ctx context.Context, userID int64, role string) error {
	u, ok := f.users[userID]
	if !ok {
		return shared.ErrNotFound
	}
	u.Role = &role
	f.users[userID] = u
	return nil
}

func (f *fakeRepo) SetActive(ctx context.Context, userID int64, active bool) error {
	u, ok := f.users[userID]
	if !ok {
		return shared.ErrNotFound
	}
	u.IsActive = active
	f.users[userID] = u
	return nil
}

func (f *fakeRepo) Delete(ctx context.Context, userID int64) error {
	if _, ok := f.users[userID]; !ok {
		return shared.ErrNotFound
	}
	delete(f.users, userID)
	return nil
}

func (f *fakeRepo) CountAdmins(ctx context.Context) (int64, error) {
	var n int64
	for _, u := range f.users {
		if u.Role != nil && *u.Role == shared.RoleAdmin && u.IsActive {
			n++
		}
	}
	return n, nil
}

func TestCreateHashesPasswordAndAssignsRole(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	user, err := svc.Create(context.Background(), CreateUserRequest{
		Email: "clerk@shop.test", Name: "Clerk", Password: "supersecret", Role: shared.RoleStaff,
	}, 1)
	require.NoError(t, err)
	require.NotNil(t, user.Role)
	require.Equal(t, shared.RoleStaff, *user.Role)
	require.True(t, user.IsActive)

	hash := repo.hashes[user.ID]
	require.NotEqual(t, "supersecret", hash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("supersecret")))
}

func TestCreateRejectsDuplicateEmail(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	_, err := svc.Create(context.Background(), CreateUserRequest{Email: "clerk@shop.test", Name: "Clerk", Password: "supersecret", Role: shared.RoleStaff}, 1)
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreateUserRequest{Email: "clerk@shop.test", Name: "Other", Password: "supersecret", Role: shared.RoleStaff}, 1)
	require.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestCreateRejectsInvalidRole(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)

	_, err := svc.Create(context.Background(), CreateUserRequest{Email: "clerk@shop.test", Name: "Clerk", Password: "supersecret", Role: "owner"}, 1)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestChangeRolePromotesAndDemotes(t *testing.T) {
	repo := newFakeRepo()
	adminID := repo.addUser(shared.RoleAdmin, true)
	staffID := repo.addUser(shared.RoleStaff, true)
	svc := NewService(repo, nil)

	user, err := svc.ChangeRole(context.Background(), staffID, ChangeRoleRequest{Role: shared.RoleAdmin}, adminID)
	require.NoError(t, err)
	require.Equal(t, shared.RoleAdmin, *user.Role)

	user, err = svc.ChangeRole(context.Background(), staffID, ChangeRoleRequest{Role: shared.RoleStaff}, adminID)
	require.NoError(t, err)
	require.Equal(t, shared.RoleStaff, *user.Role)
}

func TestDemotingLastAdminRejected(t *testing.T) {
	repo := newFakeRepo()
	adminID := repo.addUser(shared.RoleAdmin, true)
	repo.addUser(shared.RoleStaff, true)
	svc := NewService(repo, nil)

	_, err := svc.ChangeRole(context.Background(), adminID, ChangeRoleRequest{Role: shared.RoleStaff}, adminID)
	require.ErrorIs(t, err, ErrLastAdmin)
}

func TestDeactivatingLastAdminRejected(t *testing.T) {
	repo := newFakeRepo()
	adminID := repo.addUser(shared.RoleAdmin, true)
	svc := NewService(repo, nil)

	err := svc.SetActive(context.Background(), adminID, false, adminID)
	require.ErrorIs(t, err, ErrLastAdmin)

	otherAdmin := repo.addUser(shared.RoleAdmin, true)
	require.NoError(t, svc.SetActive(context.Background(), otherAdmin, false, adminID))
}

func TestDeletingLastAdminRejected(t *testing.T) {
	repo := newFakeRepo()
	adminID := repo.addUser(shared.RoleAdmin, true)
	staffID := repo.addUser(shared.RoleStaff, true)
	svc := NewService(repo, nil)

	err := svc.Delete(context.Background(), adminID, adminID)
	require.ErrorIs(t, err, ErrLastAdmin)

	require.NoError(t, svc.Delete(context.Background(), staffID, adminID))
	_, err = svc.Get(context.Background(), staffID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
