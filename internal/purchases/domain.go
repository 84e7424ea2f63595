package purchases

import (
	"errors"
	"time"
)

// PurchaseRecord captures one stock acquisition. Creating one blends
// the unit price into the item's weighted-average cost; edits and
// deletes move quantity only and leave the average cost alone.
type PurchaseRecord struct {
	ID          int64     `json:"id"`
	ItemID      int64     `json:"item_id"`
	Name        string    `json:"name"`
	Quantity    int64     `json:"quantity"`
	Price       float64   `json:"price"`
	Total       float64   `json:"total"`
	Supplier    *string   `json:"supplier,omitempty"`
	Category    string    `json:"category"`
	PurchasedAt time.Time `json:"purchased_at"`
	CreatedBy   int64     `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreatePurchaseRequest restocks an existing item.
type CreatePurchaseRequest struct {
	ItemID      int64      `json:"item_id" validate:"required,gt=0"`
	Quantity    int64      `json:"quantity" validate:"required,gt=0"`
	Price       float64    `json:"price" validate:"gte=0"`
	Supplier    *string    `json:"supplier,omitempty" validate:"omitempty,max=200"`
	PurchasedAt *time.Time `json:"purchased_at,omitempty"`
}

// UpdatePurchaseRequest edits a recorded purchase. Stock shifts by the
// quantity difference; the item's average cost is not recomputed.
type UpdatePurchaseRequest struct {
	Quantity    *int64     `json:"quantity,omitempty" validate:"omitempty,gt=0"`
	Price       *float64   `json:"price,omitempty" validate:"omitempty,gte=0"`
	Supplier    *string    `json:"supplier,omitempty" validate:"omitempty,max=200"`
	PurchasedAt *time.Time `json:"purchased_at,omitempty"`
}

// ErrNotOwner rejects staff mutations of records created by someone else.
var ErrNotOwner = errors.New("purchases: record belongs to another user")

// ErrInvalidInput indicates a rejected purchase form.
var ErrInvalidInput = errors.New("purchases: invalid input")
