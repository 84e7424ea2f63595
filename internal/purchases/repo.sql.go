package purchases

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockroom-pos/stockroom/internal/inventory"
	"github.com/stockroom-pos/stockroom/internal/shared"
)

// Repository persists purchase records in PostgreSQL.
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
		return errors.New("purchases repository not initialised")
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

const purchaseColumns = `id, item_id, name, quantity, price, total, supplier, category, purchased_at, created_by, created_at`

func scanPurchase(row pgx.Row) (*PurchaseRecord, error) {
	var p PurchaseRecord
	err := row.Scan(&p.ID, &p.ItemID, &p.Name, &p.Quantity, &p.Price, &p.Total, &p.Supplier, &p.Category, &p.PurchasedAt, &p.CreatedBy, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Get fetches one purchase record.
func (r *Repository) Get(ctx context.Context, id int64) (*PurchaseRecord, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE id = $1`, id)
	return scanPurchase(row)
}

// ListAll returns the full collection.
func (r *Repository) ListAll(ctx context.Context) ([]PurchaseRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+purchaseColumns+` FROM purchases ORDER BY purchased_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []PurchaseRecord
	for rows.Next() {
		var p PurchaseRecord
		if err := rows.Scan(&p.ID, &p.ItemID, &p.Name, &p.Quantity, &p.Price, &p.Total, &p.Supplier, &p.Category, &p.PurchasedAt, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, p)
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

func (t *txRepository) UpdateItemCost(ctx context.Context, itemID, quantity int64, price, avgCost float64) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE inventory_items SET quantity = $2, price = $3, avg_cost = $4, updated_at = NOW() WHERE id = $1`,
		itemID, quantity, price, avgCost,
	)
	return err
}

func (t *txRepository) GetPurchase(ctx context.Context, id int64) (*PurchaseRecord, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE id = $1 FOR UPDATE`, id)
	return scanPurchase(row)
}

func (t *txRepository) InsertPurchase(ctx context.Context, p PurchaseRecord) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO purchases (item_id, name, quantity, price, total, supplier, category, purchased_at, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW()) RETURNING id`,
		p.ItemID, p.Name, p.Quantity, p.Price, p.Total, p.Supplier, p.Category, p.PurchasedAt, p.CreatedBy,
	).Scan(&id)
	return id, err
}

func (t *txRepository) UpdatePurchase(ctx context.Context, p PurchaseRecord) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE purchases SET quantity = $2, price = $3, total = $4, supplier = $5, purchased_at = $6 WHERE id = $1`,
		p.ID, p.Quantity, p.Price, p.Total, p.Supplier, p.PurchasedAt,
	)
	return err
}

func (t *txRepository) DeletePurchase(ctx context.Context, id int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM purchases WHERE id = $1`, id)
	return err
}

var _ RepositoryPort = (*Repository)(nil)
var _ TxRepository = (*txRepository)(nil)
