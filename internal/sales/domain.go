package sales

import (
	"errors"
	"time"
)

// SaleRecord captures one completed sale against an inventory item.
// Name and category are snapshots of the item at sale time; profit is
// computed against the item's average cost at the time of sale.
type SaleRecord struct {
	ID        int64     `json:"id"`
	ItemID    int64     `json:"item_id"`
	Name      string    `json:"name"`
	Quantity  int64     `json:"quantity"`
	Price     float64   `json:"price"`
	Total     float64   `json:"total"`
	Profit    float64   `json:"profit"`
	Customer  *string   `json:"customer,omitempty"`
	Category  string    `json:"category"`
	SoldAt    time.Time `json:"sold_at"`
	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateSaleRequest records a sale of an existing item.
type CreateSaleRequest struct {
	ItemID   int64      `json:"item_id" validate:"required,gt=0"`
	Quantity int64      `json:"quantity" validate:"required,gt=0"`
	Price    float64    `json:"price" validate:"required,gt=0"`
	Customer *string    `json:"customer,omitempty" validate:"omitempty,max=200"`
	SoldAt   *time.Time `json:"sold_at,omitempty"`
}

// UpdateSaleRequest edits a recorded sale. Stock shifts by the
// difference between the old and new quantity only.
type UpdateSaleRequest struct {
	Quantity *int64     `json:"quantity,omitempty" validate:"omitempty,gt=0"`
	Price    *float64   `json:"price,omitempty" validate:"omitempty,gt=0"`
	Customer *string    `json:"customer,omitempty" validate:"omitempty,max=200"`
	SoldAt   *time.Time `json:"sold_at,omitempty"`
}

// ErrNotOwner rejects staff mutations of records created by someone else.
var ErrNotOwner = errors.New("sales: record belongs to another user")

// ErrInvalidInput indicates a rejected sale form.
var ErrInvalidInput = errors.New("sales: invalid input")
