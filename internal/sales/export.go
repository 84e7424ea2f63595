package sales

import (
	"encoding/csv"
	"io"
	"net/http"
	"strconv"

	"github.com/stockroom-pos/stockroom/internal/inventory"
	"github.com/stockroom-pos/stockroom/internal/shared"
)

// WriteSalesCSV serialises the filtered sales view to CSV.
func WriteSalesCSV(w io.Writer, records []SaleRecord) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Item", "Category", "Quantity", "Price", "Total", "Profit", "Customer", "Sold At"}); err != nil {
		return err
	}
	for _, sale := range records {
		customer := ""
		if sale.Customer != nil {
			customer = *sale.Customer
		}
		record := []string{
			sale.Name,
			sale.Category,
			strconv.FormatInt(sale.Quantity, 10),
			formatMoney(sale.Price),
			formatMoney(sale.Total),
			formatMoney(sale.Profit),
			customer,
			sale.SoldAt.Format("2006-01-02 15:04"),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ExportCSV downloads the currently filtered view as a CSV file.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ListAll(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	params := shared.ParseListParams(r.URL.Query())
	_, filtered, _ := saleListView.Apply(records, params)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="sales.csv"`)
	if err := WriteSalesCSV(w, filtered); err != nil {
		h.logger.Error("export sales csv", "error", err)
	}
}

func formatMoney(v float64) string {
	return strconv.FormatFloat(inventory.Round2(v), 'f', 2, 64)
}
