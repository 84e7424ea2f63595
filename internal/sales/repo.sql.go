package sales

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockroom-pos/stockroom/internal/inventory"
	"github.com/stockroom-pos/stockroom/internal/shared"
)

// Repository persists sale records in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("sales repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

const saleColumns = `id, item_id, name, quantity, price, total, profit, customer, category, sold_at, created_by, created_at`

func scanSale(row pgx.Row) (*SaleRecord, error) {
	var sale SaleRecord
	err := row.Scan(&sale.ID, &sale.ItemID, &sale.Name, &sale.Quantity, &sale.Price, &sale.Total, &sale.Profit, &sale.Customer, &sale.Category, &sale.SoldAt, &sale.CreatedBy, &sale.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &sale, nil
}

// Get fetches one sale record.
func (r *Repository) Get(ctx context.Context, id int64) (*SaleRecord, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id)
	return scanSale(row)
}

// ListAll returns the full collection.
func (r *Repository) ListAll(ctx context.Context) ([]SaleRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+saleColumns+` FROM sales ORDER BY sold_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []SaleRecord
	for rows.Next() {
		var sale SaleRecord
		if err := rows.Scan(&sale.ID, &sale.ItemID, &sale.Name, &sale.Quantity, &sale.Price, &sale.Total, &sale.Profit, &sale.Customer, &sale.Category, &sale.SoldAt, &sale.CreatedBy, &sale.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, sale)
	}
	return records, rows.Err()
}

func (t *txRepository) GetItemForUpdate(ctx context.Context, itemID int64) (inventory.Item, error) {
	var item inventory.Item
	err := t.tx.QueryRow(ctx,
		`SELECT id, name, quantity, price, avg_cost, category, created_at, updated_at FROM inventory_items WHERE id = $1 FOR UPDATE`,
		itemID,
	).Scan(&item.ID, &item.Name, &item.Quantity, &item.Price, &item.AvgCost, &item.Category, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return inventory.Item{}, shared.ErrNotFound
		}
		return inventory.Item{}, err
	}
	return item, nil
}

func (t *txRepository) UpdateItemStock(ctx context.Context, itemID, quantity int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE inventory_items SET quantity = $2, updated_at = NOW() WHERE id = $1`, itemID, quantity)
	return err
}

func (t *txRepository) GetSale(ctx context.Context, id int64) (*SaleRecord, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1 FOR UPDATE`, id)
	return scanSale(row)
}

func (t *txRepository) InsertSale(ctx context.Context, sale SaleRecord) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO sales (item_id, name, quantity, price, total, profit, customer, category, sold_at, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW()) RETURNING id`,
		sale.ItemID, sale.Name, sale.Quantity, sale.Price, sale.Total, sale.Profit, sale.Customer, sale.Category, sale.SoldAt, sale.CreatedBy,
	).Scan(&id)
	return id, err
}

func (t *txRepository) UpdateSale(ctx context.Context, sale SaleRecord) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE sales SET quantity = $2, price = $3, total = $4, profit = $5, customer = $6, sold_at = $7 WHERE id = $1`,
		sale.ID, sale.Quantity, sale.Price, sale.Total, sale.Profit, sale.Customer, sale.SoldAt,
	)
	return err
}

func (t *txRepository) DeleteSale(ctx context.Context, id int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM sales WHERE id = $1`, id)
	return err
}

var _ RepositoryPort = (*Repository)(nil)
var _ TxRepository = (*txRepository)(nil)
