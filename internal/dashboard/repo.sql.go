package dashboard

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockroom-pos/stockroom/internal/inventory"
)

// Repository computes dashboard aggregates from collection scans.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ItemStats returns the item count and total stock value. Items without
// an established average cost contribute zero to the value.
func (r *Repository) ItemStats(ctx context.Context) (count int64, stockValue float64, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(quantity * COALESCE(avg_cost, 0)), 0) FROM inventory_items`,
	).Scan(&count, &stockValue)
	return count, stockValue, err
}

// SalesTotals returns revenue and profit for the inclusive date range.
func (r *Repository) SalesTotals(ctx context.Context, from, to time.Time) (revenue, profit float64, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(total), 0), COALESCE(SUM(profit), 0) FROM sales WHERE sold_at BETWEEN $1 AND $2`,
		from, to,
	).Scan(&revenue, &profit)
	return revenue, profit, err
}

// PurchaseSpend returns the purchase total for the inclusive date range.
func (r *Repository) PurchaseSpend(ctx context.Context, from, to time.Time) (float64, error) {
	var spend float64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(total), 0) FROM purchases WHERE purchased_at BETWEEN $1 AND $2`,
		from, to,
	).Scan(&spend)
	return spend, err
}

// LowStockItems lists items at or below the threshold, lowest first.
func (r *Repository) LowStockItems(ctx context.Context, threshold int64) ([]inventory.Item, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, quantity, price, avg_cost, category, created_at, updated_at
		 FROM inventory_items WHERE quantity <= $1 ORDER BY quantity, name`,
		threshold,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []inventory.Item
	for rows.Next() {
		var item inventory.Item
		if err := rows.Scan(&item.ID, &item.Name, &item.Quantity, &item.Price, &item.AvgCost, &item.Category, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
