package inventory

import (
	"errors"
	"math"
	"time"
)

// Item is one stocked product. Quantity only moves through the sale,
// purchase and adjustment flows after creation; AvgCost is the
// weighted-average acquisition cost and is nil until the first
// purchase establishes it.
type Item struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Quantity  int64     `json:"quantity"`
	Price     float64   `json:"price"`
	AvgCost   *float64  `json:"avg_cost,omitempty"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateItemRequest carries a new item with its initial stock.
type CreateItemRequest struct {
	Name     string  `json:"name" validate:"required,max=200"`
	Quantity int64   `json:"quantity" validate:"gte=0"`
	Price    float64 `json:"price" validate:"gte=0"`
	AvgCost  *float64 `json:"avg_cost,omitempty" validate:"omitempty,gte=0"`
	Category string  `json:"category" validate:"max=100"`
}

// UpdateItemRequest edits descriptive item fields. Quantity is absent
// on purpose: stock moves only through the transaction flows.
type UpdateItemRequest struct {
	Name     *string  `json:"name,omitempty" validate:"omitempty,max=200"`
	Price    *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
	Category *string  `json:"category,omitempty" validate:"omitempty,max=100"`
}

var (
	// ErrInsufficientStock rejects a sale exceeding current stock.
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	// ErrNegativeStock rejects any mutation that would drive quantity negative.
	ErrNegativeStock = errors.New("inventory: negative stock not allowed")
	// ErrInvalidQuantity indicates a zero or out-of-range quantity.
	ErrInvalidQuantity = errors.New("inventory: invalid quantity")
	// ErrInvalidPrice indicates an out-of-range price.
	ErrInvalidPrice = errors.New("inventory: invalid price")
	// ErrFieldNotEditable rejects a staff edit outside the allow-list.
	ErrFieldNotEditable = errors.New("inventory: field not editable by staff")
)

// StaffEditableFields is the allow-list of item fields a staff account
// may update; admins may edit any descriptive field.
var StaffEditableFields = map[string]bool{
	"name":     true,
	"category": true,
}

// NextAverageCost blends a purchase into the weighted-average cost:
// (oldAvg*oldQty + price*qty) / (oldQty + qty). Purchasing into an
// empty item establishes the cost at the purchase price.
func NextAverageCost(avgCost *float64, oldQty int64, price float64, qty int64) float64 {
	if oldQty <= 0 {
		return price
	}
	old := 0.0
	if avgCost != nil {
		old = *avgCost
	}
	total := old*float64(oldQty) + price*float64(qty)
	return total / float64(oldQty+qty)
}

// Profit computes sale profit (price − avgCost) × qty, falling back to
// price × qty when no average cost has been established.
func Profit(price float64, avgCost *float64, qty int64) float64 {
	if avgCost == nil {
		return Round2(price * float64(qty))
	}
	return Round2((price - *avgCost) * float64(qty))
}

// Round2 rounds to two decimals for money display and storage.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
