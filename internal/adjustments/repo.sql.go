package adjustments

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockroom-pos/stockroom/internal/inventory"
	"github.com/stockroom-pos/stockroom/internal/shared"
)

// Repository persists adjustment records in PostgreSQL.
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
		return errors.New("adjustments repository not initialised")
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

const adjustmentColumns = `id, item_id, name, delta, reason, category, date, created_by, created_at`

func scanAdjustment(row pgx.Row) (*AdjustmentRecord, error) {
	var adj AdjustmentRecord
	err := row.Scan(&adj.ID, &adj.ItemID, &adj.Name, &adj.Delta, &adj.Reason, &adj.Category, &adj.Date, &adj.CreatedBy, &adj.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &adj, nil
}

// Get fetches one adjustment record.
func (r *Repository) Get(ctx context.Context, id int64) (*AdjustmentRecord, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+adjustmentColumns+` FROM adjustments WHERE id = $1`, id)
	return scanAdjustment(row)
}

// ListAll returns the full collection.
func (r *Repository) ListAll(ctx context.Context) ([]AdjustmentRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+adjustmentColumns+` FROM adjustments ORDER BY date DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []AdjustmentRecord
	for rows.Next() {
		var adj AdjustmentRecord
		if err := rows.Scan(&adj.ID, &adj.ItemID, &adj.Name, &adj.Delta, &adj.Reason, &adj.Category, &adj.Date, &adj.CreatedBy, &adj.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, adj)
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

func (t *txRepository) GetAdjustment(ctx context.Context, id int64) (*AdjustmentRecord, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+adjustmentColumns+` FROM adjustments WHERE id = $1 FOR UPDATE`, id)
	return scanAdjustment(row)
}

func (t *txRepository) InsertAdjustment(ctx context.Context, adj AdjustmentRecord) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO adjustments (item_id, name, delta, reason, category, date, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW()) RETURNING id`,
		adj.ItemID, adj.Name, adj.Delta, adj.Reason, adj.Category, adj.Date, adj.CreatedBy,
	).Scan(&id)
	return id, err
}

func (t *txRepository) UpdateAdjustment(ctx context.Context, adj AdjustmentRecord) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE adjustments SET delta = $2, reason = $3, date = $4 WHERE id = $1`,
		adj.ID, adj.Delta, adj.Reason, adj.Date,
	)
	return err
}

func (t *txRepository) DeleteAdjustment(ctx context.Context, id int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM adjustments WHERE id = $1`, id)
	return err
}

var _ RepositoryPort = (*Repository)(nil)
var _ TxRepository = (*txRepository)(nil)
