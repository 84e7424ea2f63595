package purchases

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stockroom-pos/stockroom/internal/inventory"
	"github.com/stockroom-pos/stockroom/internal/shared"
)

type fakeRepo struct {
	items     map[int64]inventory.Item
	purchases map[int64]PurchaseRecord
	next      int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{items: map[int64]inventory.Item{}, purchases: map[int64]PurchaseRecord{}, next: 1}
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	itemsCopy := make(map[int64]inventory.Item, len(f.items))
	for k, v := range f.items {
		itemsCopy[k] = v
	}
	purchasesCopy := make(map[int64]PurchaseRecord, len(f.purchases))
	for k, v := range f.purchases {
		purchasesCopy[k] = v
	}
	if err := fn(ctx, (*fakeTx)(f)); err != nil {
		f.items = itemsCopy
		f.purchases = purchasesCopy
		return err
	}
	return nil
}

func (f *fakeRepo) Get(ctx context.Context, id int64) (*PurchaseRecord, error) {
	p, ok := f.purchases[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &p, nil
}

func (f *fakeRepo) ListAll(ctx context.Context) ([]PurchaseRecord, error) {
	var out []PurchaseRecord
	for _, p := range f.purchases {
		out = append(out, p)
	}
	return out, nil
}

type fakeTx fakeRepo

func (t *fakeTx) GetItemForUpdate(ctx context.Context, itemID int64) (inventory.Item, error) {
	item, ok := t.items[itemID]
	if !ok {
		return inventory.Item{}, shared.ErrNotFound
	}
	return item, nil
}

func (t *fakeTx) UpdateItemStock(ctx context.Context, itemID, quantity int64) error {
	item := t.items[itemID]
	item.Quantity = quantity
	t.items[itemID] = item
	return nil
}

func (t *fakeTx) UpdateItemCost(ctx context.Context, itemID, quantity int64, price, avgCost float64) error {
	item := t.items[itemID]
	item.Quantity = quantity
	item.Price = price
	item.AvgCost = &avgCost
	t.items[itemID] = item
	return nil
}

func (t *fakeTx) GetPurchase(ctx context.Context, id int64) (*PurchaseRecord, error) {
	p, ok := t.purchases[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &p, nil
}

func (t *fakeTx) InsertPurchase(ctx context.Context, p PurchaseRecord) (int64, error) {
	id := t.next
	t.next++
	p.ID = id
	t.purchases[id] = p
	return id, nil
}

func (t *fakeTx) UpdatePurchase(ctx context.Context, p PurchaseRecord) error {
	t.purchases[p.ID] = p
	return nil
}

func (t *fakeTx) DeletePurchase(ctx context.Context, id int64) error {
	delete(t.purchases, id)
	return nil
}

func ptr[T any](v T) *T { return &v }

func TestPurchaseBlendsAverageCost(t *testing.T) {
	repo := newFakeRepo()
	avg := 5.0
	repo.items[1] = inventory.Item{ID: 1, Name: "Beans", Quantity: 10, Price: 5, AvgCost: &avg, Category: "food"}
	svc := NewService(repo, nil, nil, nil)

	p, err := svc.Purchase(context.Background(), CreatePurchaseRequest{ItemID: 1, Quantity: 5, Price: 7}, 3, "")
	require.NoError(t, err)

	item := repo.items[1]
	require.EqualValues(t, 15, item.Quantity)
	require.InDelta(t, 7.0, item.Price, 0.001)
	require.NotNil(t, item.AvgCost)
	require.InDelta(t, 85.0/15.0, *item.AvgCost, 0.001)
	require.InDelta(t, 35.0, p.Total, 0.001)
	require.Equal(t, "Beans", p.Name)
}

func TestPurchaseIntoEmptyItemSetsCostToPrice(t *testing.T) {
	repo := newFakeRepo()
	repo.items[1] = inventory.Item{ID: 1, Name: "Beans", Quantity: 0, Price: 5}
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.Purchase(context.Background(), CreatePurchaseRequest{ItemID: 1, Quantity: 4, Price: 6}, 3, "")
	require.NoError(t, err)

	item := repo.items[1]
	require.EqualValues(t, 4, item.Quantity)
	require.NotNil(t, item.AvgCost)
	require.InDelta(t, 6.0, *item.AvgCost, 0.001)
}

func TestPurchaseRejectsInvalidInput(t *testing.T) {
	svc := NewService(newFakeRepo(), nil, nil, nil)

	_, err := svc.Purchase(context.Background(), CreatePurchaseRequest{ItemID: 1, Quantity: 0, Price: 7}, 3, "")
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Purchase(context.Background(), CreatePurchaseRequest{ItemID: 1, Quantity: 2, Price: -1}, 3, "")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateShiftsStockWithoutReblendingCost(t *testing.T) {
	repo := newFakeRepo()
	avg := 5.67
	repo.items[1] = inventory.Item{ID: 1, Quantity: 15, Price: 7, AvgCost: &avg}
	repo.purchases[1] = PurchaseRecord{ID: 1, ItemID: 1, Quantity: 5, Price: 7, Total: 35, CreatedBy: 3}
	svc := NewService(repo, nil, nil, nil)

	updated, err := svc.Update(context.Background(), 1, UpdatePurchaseRequest{Quantity: ptr(int64(8))}, 3, shared.RoleStaff)
	require.NoError(t, err)

	item := repo.items[1]
	require.EqualValues(t, 18, item.Quantity)
	require.InDelta(t, 5.67, *item.AvgCost, 0.001)
	require.InDelta(t, 56.0, updated.Total, 0.001)
}

func TestUpdateRejectsNegativeResult(t *testing.T) {
	repo := newFakeRepo()
	repo.items[1] = inventory.Item{ID: 1, Quantity: 2}
	repo.purchases[1] = PurchaseRecord{ID: 1, ItemID: 1, Quantity: 5, Price: 7, CreatedBy: 3}
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.Update(context.Background(), 1, UpdatePurchaseRequest{Quantity: ptr(int64(1))}, 3, shared.RoleStaff)
	require.ErrorIs(t, err, inventory.ErrNegativeStock)
	require.EqualValues(t, 2, repo.items[1].Quantity)
}

func TestDeleteSubtractsPurchasedQuantity(t *testing.T) {
	repo := newFakeRepo()
	repo.items[1] = inventory.Item{ID: 1, Quantity: 15}
	repo.purchases[1] = PurchaseRecord{ID: 1, ItemID: 1, Quantity: 5, CreatedBy: 3}
	svc := NewService(repo, nil, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), 1, 3, shared.RoleStaff))
	require.EqualValues(t, 10, repo.items[1].Quantity)
	require.Empty(t, repo.purchases)
}

func TestDeleteRejectedWhenStockWouldGoNegative(t *testing.T) {
	repo := newFakeRepo()
	repo.items[1] = inventory.Item{ID: 1, Quantity: 3}
	repo.purchases[1] = PurchaseRecord{ID: 1, ItemID: 1, Quantity: 5, CreatedBy: 3}
	svc := NewService(repo, nil, nil, nil)

	err := svc.Delete(context.Background(), 1, 3, shared.RoleStaff)
	require.ErrorIs(t, err, inventory.ErrNegativeStock)
	require.EqualValues(t, 3, repo.items[1].Quantity)
	require.Len(t, repo.purchases, 1)
}

func TestOwnershipEnforcedForStaff(t *testing.T) {
	repo := newFakeRepo()
	repo.items[1] = inventory.Item{ID: 1, Quantity: 15}
	repo.purchases[1] = PurchaseRecord{ID: 1, ItemID: 1, Quantity: 5, Price: 7, CreatedBy: 3}
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.Update(context.Background(), 1, UpdatePurchaseRequest{Price: ptr(8.0)}, 4, shared.RoleStaff)
	require.ErrorIs(t, err, ErrNotOwner)

	err = svc.Delete(context.Background(), 1, 4, shared.RoleStaff)
	require.ErrorIs(t, err, ErrNotOwner)

	err = svc.Delete(context.Background(), 1, 4, shared.RoleAdmin)
	require.NoError(t, err)
}
