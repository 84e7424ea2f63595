package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stockroom-pos/stockroom/internal/shared"
)

type fakeRepo struct {
	items  map[int64]Item
	nextID int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{items: make(map[int64]Item), nextID: 1}
}

func (f *fakeRepo) Insert(_ context.Context, item Item) (int64, error) {
	id := f.nextID
	f.nextID++
	item.ID = id
	item.CreatedAt = time.Now()
	item.UpdatedAt = item.CreatedAt
	f.items[id] = item
	return id, nil
}

func (f *fakeRepo) Update(_ context.Context, id int64, updates map[string]any) error {
	item, ok := f.items[id]
	if !ok {
		return shared.ErrNotFound
	}
	for field, value := range updates {
		switch field {
		case "name":
			item.Name = value.(string)
		case "price":
			item.Price = value.(float64)
		case "category":
			item.Category = value.(string)
		}
	}
	item.UpdatedAt = time.Now()
	f.items[id] = item
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id int64) error {
	if _, ok := f.items[id]; !ok {
		return shared.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeRepo) Get(_ context.Context, id int64) (*Item, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &item, nil
}

func (f *fakeRepo) ListAll(_ context.Context) ([]Item, error) {
	out := make([]Item, 0, len(f.items))
	for _, item := range f.items {
		out = append(out, item)
	}
	return out, nil
}

type fakeAudit struct {
	entries []shared.AuditLog
}

func (f *fakeAudit) Record(_ context.Context, log shared.AuditLog) error {
	f.entries = append(f.entries, log)
	return nil
}

func ptr[T any](v T) *T { return &v }

func TestServiceCreate(t *testing.T) {
	repo := newFakeRepo()
	audit := &fakeAudit{}
	svc := NewService(repo, audit)

	item, err := svc.Create(context.Background(), CreateItemRequest{
		Name:     "Rice 5kg",
		Quantity: 40,
		Price:    9.5,
		Category: "staples",
	}, 1)
	require.NoError(t, err)
	require.Equal(t, int64(40), item.Quantity)
	require.Nil(t, item.AvgCost)
	require.Len(t, audit.entries, 1)
	require.Equal(t, "item.create", audit.entries[0].Action)
}

func TestServiceCreateRejectsNegativeQuantity(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)

	_, err := svc.Create(context.Background(), CreateItemRequest{Name: "Rice", Quantity: -1}, 1)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestServiceUpdateAdminEditsPrice(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)
	id, _ := repo.Insert(context.Background(), Item{Name: "Rice", Price: 9.5})

	item, err := svc.Update(context.Background(), id, UpdateItemRequest{Price: ptr(10.0)}, shared.RoleAdmin, 1)
	require.NoError(t, err)
	require.Equal(t, 10.0, item.Price)
}

func TestServiceUpdateStaffAllowList(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)
	id, _ := repo.Insert(context.Background(), Item{Name: "Rice", Price: 9.5})

	item, err := svc.Update(context.Background(), id, UpdateItemRequest{Name: ptr("Rice 10kg"), Category: ptr("bulk")}, shared.RoleStaff, 2)
	require.NoError(t, err)
	require.Equal(t, "Rice 10kg", item.Name)
	require.Equal(t, "bulk", item.Category)

	_, err = svc.Update(context.Background(), id, UpdateItemRequest{Price: ptr(11.0)}, shared.RoleStaff, 2)
	require.ErrorIs(t, err, ErrFieldNotEditable)

	got, _ := repo.Get(context.Background(), id)
	require.Equal(t, 9.5, got.Price)
}

func TestServiceUpdateMissingItem(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)

	_, err := svc.Update(context.Background(), 99, UpdateItemRequest{Name: ptr("x")}, shared.RoleAdmin, 1)
	require.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestServiceDelete(t *testing.T) {
	repo := newFakeRepo()
	audit := &fakeAudit{}
	svc := NewService(repo, audit)
	id, _ := repo.Insert(context.Background(), Item{Name: "Rice"})

	require.NoError(t, svc.Delete(context.Background(), id, 1))
	_, err := repo.Get(context.Background(), id)
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Equal(t, "item.delete", audit.entries[0].Action)

	require.ErrorIs(t, svc.Delete(context.Background(), id, 1), shared.ErrNotFound)
}
