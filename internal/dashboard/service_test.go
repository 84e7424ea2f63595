package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/stockroom-pos/stockroom/internal/inventory"
)

type fakeRepo struct {
	itemCount  int64
	stockValue float64
	revenue    float64
	profit     float64
	spend      float64
	lowStock   []inventory.Item

	computes int
}

func (f *fakeRepo) ItemStats(ctx context.Context) (int64, float64, error) {
	f.computes++
	return f.itemCount, f.stockValue, nil
}

func (f *fakeRepo) SalesTotals(ctx context.Context, from, to time.Time) (float64, float64, error) {
	return f.revenue, f.profit, nil
}

func (f *fakeRepo) PurchaseSpend(ctx context.Context, from, to time.Time) (float64, error) {
	return f.spend, nil
}

func (f *fakeRepo) LowStockItems(ctx context.Context, threshold int64) ([]inventory.Item, error) {
	return f.lowStock, nil
}

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestSummaryComputesAggregates(t *testing.T) {
	repo := &fakeRepo{
		itemCount:  12,
		stockValue: 431.999,
		revenue:    120.5,
		profit:     44.25,
		spend:      80,
		lowStock:   []inventory.Item{{ID: 1, Name: "Beans", Quantity: 2}},
	}
	svc := NewService(repo, testRedis(t), time.Minute, 5)

	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	summary, err := svc.Summary(context.Background(), from, to)
	require.NoError(t, err)
	require.EqualValues(t, 12, summary.ItemCount)
	require.InDelta(t, 432.0, summary.StockValue, 0.001)
	require.InDelta(t, 120.5, summary.Revenue, 0.001)
	require.InDelta(t, 44.25, summary.Profit, 0.001)
	require.InDelta(t, 80.0, summary.Spend, 0.001)
	require.Len(t, summary.LowStock, 1)
}

func TestSummaryServedFromCacheUntilBump(t *testing.T) {
	repo := &fakeRepo{itemCount: 3}
	svc := NewService(repo, testRedis(t), time.Minute, 5)

	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	_, err := svc.Summary(context.Background(), from, to)
	require.NoError(t, err)
	_, err = svc.Summary(context.Background(), from, to)
	require.NoError(t, err)
	require.Equal(t, 1, repo.computes)

	repo.itemCount = 4
	require.NoError(t, svc.Bump(context.Background()))

	summary, err := svc.Summary(context.Background(), from, to)
	require.NoError(t, err)
	require.Equal(t, 2, repo.computes)
	require.EqualValues(t, 4, summary.ItemCount)
}

func TestSummaryWorksWithoutRedis(t *testing.T) {
	repo := &fakeRepo{itemCount: 2}
	svc := NewService(repo, nil, time.Minute, 5)

	_, err := svc.Summary(context.Background(), time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	_, err = svc.Summary(context.Background(), time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	require.Equal(t, 2, repo.computes)
}
