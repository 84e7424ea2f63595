package adjustments

import (
	"errors"
	"time"
)

// AdjustmentRecord captures one manual stock correction. Delta is a
// signed quantity applied directly to the item's stock.
type AdjustmentRecord struct {
	ID        int64     `json:"id"`
	ItemID    int64     `json:"item_id"`
	Name      string    `json:"name"`
	Delta     int64     `json:"delta"`
	Reason    string    `json:"reason"`
	Category  string    `json:"category"`
	Date      time.Time `json:"date"`
	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateAdjustmentRequest corrects an item's stock by a signed delta.
// The validator's required tag doubles as the non-zero check.
type CreateAdjustmentRequest struct {
	ItemID int64      `json:"item_id" validate:"required,gt=0"`
	Delta  int64      `json:"delta" validate:"required"`
	Reason string     `json:"reason" validate:"required,max=500"`
	Date   *time.Time `json:"date,omitempty"`
}

// UpdateAdjustmentRequest edits a recorded correction. Stock shifts by
// the difference between the old and new delta.
type UpdateAdjustmentRequest struct {
	Delta  *int64     `json:"delta,omitempty"`
	Reason *string    `json:"reason,omitempty" validate:"omitempty,max=500"`
	Date   *time.Time `json:"date,omitempty"`
}

// ErrNotOwner rejects staff mutations of records created by someone else.
var ErrNotOwner = errors.New("adjustments: record belongs to another user")

// ErrInvalidInput indicates a rejected adjustment form.
var ErrInvalidInput = errors.New("adjustments: invalid input")

// ErrZeroDelta rejects a correction that would not move stock.
var ErrZeroDelta = errors.New("adjustments: delta must not be zero")
