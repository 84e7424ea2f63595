package adjustments

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stockroom-pos/stockroom/internal/inventory"
	"github.com/stockroom-pos/stockroom/internal/shared"
)

type fakeRepo struct {
	items       map[int64]inventory.Item
	adjustments map[int64]AdjustmentRecord
	next        int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{items: map[int64]inventory.Item{}, adjustments: map[int64]AdjustmentRecord{}, next: 1}
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	itemsCopy := make(map[int64]inventory.Item, len(f.items))
	for k, v := range f.items {
		itemsCopy[k] = v
	}
	adjCopy := make(map[int64]AdjustmentRecord, len(f.adjustments))
	for k, v := range f.adjustments {
		adjCopy[k] = v
	}
	if err := fn(ctx, (*fakeTx)(f)); err != nil {
		f.items = itemsCopy
		f.adjustments = adjCopy
		return err
	}
	return nil
}

func (f *fakeRepo) Get(ctx context.Context, id int64) (*AdjustmentRecord, error) {
	adj, ok := f.adjustments[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &adj, nil
}

func (f *fakeRepo) ListAll(ctx context.Context) ([]AdjustmentRecord, error) {
	var out []AdjustmentRecord
	for _, adj := range f.adjustments {
		out = append(out, adj)
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

func (t *fakeTx) GetAdjustment(ctx context.Context, id int64) (*AdjustmentRecord, error) {
	adj, ok := t.adjustments[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &adj, nil
}

func (t *fakeTx) InsertAdjustment(ctx context.Context, adj AdjustmentRecord) (int64, error) {
	id := t.next
	t.next++
	adj.ID = id
	t.adjustments[id] = adj
	return id, nil
}

func (t *fakeTx) UpdateAdjustment(ctx context.Context, adj AdjustmentRecord) error {
	t.adjustments[adj.ID] = adj
	return nil
}

func (t *fakeTx) DeleteAdjustment(ctx context.Context, id int64) error {
	delete(t.adjustments, id)
	return nil
}

type fakeIdempotency struct {
	keys map[string]bool
}

func newFakeIdempotency() *fakeIdempotency {
	return &fakeIdempotency{keys: map[string]bool{}}
}

func (f *fakeIdempotency) CheckAndInsert(ctx context.Context, key, module string) error {
	if f.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	f.keys[key] = true
	return nil
}

func (f *fakeIdempotency) Delete(ctx context.Context, key string) error {
	delete(f.keys, key)
	return nil
}

func ptr[T any](v T) *T { return &v }

func TestAdjustAppliesSignedDelta(t *testing.T) {
	repo := newFakeRepo()
	repo.items[1] = inventory.Item{ID: 1, Name: "Beans", Quantity: 10}
	svc := NewService(repo, nil, nil, nil)

	adj, err := svc.Adjust(context.Background(), CreateAdjustmentRequest{ItemID: 1, Delta: -4, Reason: "damaged"}, 2, "")
	require.NoError(t, err)
	require.EqualValues(t, 6, repo.items[1].Quantity)
	require.EqualValues(t, -4, adj.Delta)
	require.Equal(t, "Beans", adj.Name)

	_, err = svc.Adjust(context.Background(), CreateAdjustmentRequest{ItemID: 1, Delta: 3, Reason: "found in back room"}, 2, "")
	require.NoError(t, err)
	require.EqualValues(t, 9, repo.items[1].Quantity)
}

func TestAdjustRejectsZeroDeltaAndEmptyReason(t *testing.T) {
	repo := newFakeRepo()
	repo.items[1] = inventory.Item{ID: 1, Quantity: 10}
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.Adjust(context.Background(), CreateAdjustmentRequest{ItemID: 1, Delta: 0, Reason: "noop"}, 2, "")
	require.Error(t, err)

	_, err = svc.Adjust(context.Background(), CreateAdjustmentRequest{ItemID: 1, Delta: 1, Reason: ""}, 2, "")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestAdjustRejectsNegativeResult(t *testing.T) {
	repo := newFakeRepo()
	repo.items[1] = inventory.Item{ID: 1, Quantity: 3}
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.Adjust(context.Background(), CreateAdjustmentRequest{ItemID: 1, Delta: -5, Reason: "shrinkage"}, 2, "")
	require.ErrorIs(t, err, inventory.ErrNegativeStock)
	require.EqualValues(t, 3, repo.items[1].Quantity)
	require.Empty(t, repo.adjustments)
}

func TestAdjustHonorsIdempotencyKey(t *testing.T) {
	repo := newFakeRepo()
	repo.items[1] = inventory.Item{ID: 1, Quantity: 10}
	idem := newFakeIdempotency()
	svc := NewService(repo, nil, idem, nil)

	_, err := svc.Adjust(context.Background(), CreateAdjustmentRequest{ItemID: 1, Delta: -4, Reason: "damaged"}, 2, "req-1")
	require.NoError(t, err)
	require.EqualValues(t, 6, repo.items[1].Quantity)

	// Replaying the same submission must not move stock again.
	_, err = svc.Adjust(context.Background(), CreateAdjustmentRequest{ItemID: 1, Delta: -4, Reason: "damaged"}, 2, "req-1")
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	require.EqualValues(t, 6, repo.items[1].Quantity)
	require.Len(t, repo.adjustments, 1)
}

func TestAdjustReleasesKeyWhenTransactionFails(t *testing.T) {
	repo := newFakeRepo()
	repo.items[1] = inventory.Item{ID: 1, Quantity: 3}
	idem := newFakeIdempotency()
	svc := NewService(repo, nil, idem, nil)

	_, err := svc.Adjust(context.Background(), CreateAdjustmentRequest{ItemID: 1, Delta: -5, Reason: "shrinkage"}, 2, "req-2")
	require.ErrorIs(t, err, inventory.ErrNegativeStock)
	require.False(t, idem.keys["adjustments:req-2"])

	_, err = svc.Adjust(context.Background(), CreateAdjustmentRequest{ItemID: 1, Delta: -2, Reason: "shrinkage"}, 2, "req-2")
	require.NoError(t, err)
	require.EqualValues(t, 1, repo.items[1].Quantity)
}

func TestUpdateAppliesDeltaDifference(t *testing.T) {
	repo := newFakeRepo()
	repo.items[1] = inventory.Item{ID: 1, Quantity: 6}
	repo.adjustments[1] = AdjustmentRecord{ID: 1, ItemID: 1, Delta: -4, Reason: "damaged", CreatedBy: 2}
	svc := NewService(repo, nil, nil, nil)

	updated, err := svc.Update(context.Background(), 1, UpdateAdjustmentRequest{Delta: ptr(int64(-2))}, 2, shared.RoleStaff)
	require.NoError(t, err)
	require.EqualValues(t, 8, repo.items[1].Quantity)
	require.EqualValues(t, -2, updated.Delta)
}

func TestUpdateRejectsNegativeResult(t *testing.T) {
	repo := newFakeRepo()
	repo.items[1] = inventory.Item{ID: 1, Quantity: 2}
	repo.adjustments[1] = AdjustmentRecord{ID: 1, ItemID: 1, Delta: 5, Reason: "found", CreatedBy: 2}
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.Update(context.Background(), 1, UpdateAdjustmentRequest{Delta: ptr(int64(1))}, 2, shared.RoleStaff)
	require.ErrorIs(t, err, inventory.ErrNegativeStock)
	require.EqualValues(t, 2, repo.items[1].Quantity)
}

func TestDeleteReversesDelta(t *testing.T) {
	repo := newFakeRepo()
	repo.items[1] = inventory.Item{ID: 1, Quantity: 6}
	repo.adjustments[1] = AdjustmentRecord{ID: 1, ItemID: 1, Delta: -4, CreatedBy: 2}
	svc := NewService(repo, nil, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), 1, 2, shared.RoleStaff))
	require.EqualValues(t, 10, repo.items[1].Quantity)
	require.Empty(t, repo.adjustments)
}

func TestDeleteRejectedWhenReversalGoesNegative(t *testing.T) {
	repo := newFakeRepo()
	repo.items[1] = inventory.Item{ID: 1, Quantity: 2}
	repo.adjustments[1] = AdjustmentRecord{ID: 1, ItemID: 1, Delta: 5, CreatedBy: 2}
	svc := NewService(repo, nil, nil, nil)

	err := svc.Delete(context.Background(), 1, 2, shared.RoleStaff)
	require.ErrorIs(t, err, inventory.ErrNegativeStock)
	require.EqualValues(t, 2, repo.items[1].Quantity)
}

func TestOwnershipEnforcedForStaff(t *testing.T) {
	repo := newFakeRepo()
	repo.items[1] = inventory.Item{ID: 1, Quantity: 6}
	repo.adjustments[1] = AdjustmentRecord{ID: 1, ItemID: 1, Delta: -4, CreatedBy: 2}
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.Update(context.Background(), 1, UpdateAdjustmentRequest{Reason: ptr("recount")}, 3, shared.RoleStaff)
	require.ErrorIs(t, err, ErrNotOwner)

	err = svc.Delete(context.Background(), 1, 3, shared.RoleStaff)
	require.ErrorIs(t, err, ErrNotOwner)
}
