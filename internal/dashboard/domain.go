package dashboard

import (
	"time"

	"github.com/stockroom-pos/stockroom/internal/inventory"
)

// Summary is the aggregate snapshot shown on the landing page. Stock
// value is Σ quantity × avgCost over all items; revenue, profit and
// spend cover the requested date range inclusively.
type Summary struct {
	ItemCount  int64            `json:"item_count"`
	StockValue float64          `json:"stock_value"`
	Revenue    float64          `json:"revenue"`
	Profit     float64          `json:"profit"`
	Spend      float64          `json:"spend"`
	LowStock   []inventory.Item `json:"low_stock"`
	From       time.Time        `json:"from"`
	To         time.Time        `json:"to"`
	CachedAt   time.Time        `json:"cached_at"`
}
