package purchases

import (
	"encoding/csv"
	"io"
	"net/http"
	"strconv"

	"github.com/stockroom-pos/stockroom/internal/inventory"
	"github.com/stockroom-pos/stockroom/internal/shared"
)

// WritePurchasesCSV serialises the filtered purchases view to CSV.
func WritePurchasesCSV(w io.Writer, records []PurchaseRecord) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Item", "Category", "Quantity", "Unit Price", "Total", "Supplier", "Purchased At"}); err != nil {
		return err
	}
	for _, p := range records {
		supplier := ""
		if p.Supplier != nil {
			supplier = *p.Supplier
		}
		record := []string{
			p.Name,
			p.Category,
			strconv.FormatInt(p.Quantity, 10),
			formatMoney(p.Price),
			formatMoney(p.Total),
			supplier,
			p.PurchasedAt.Format("2006-01-02 15:04"),
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
	_, filtered, _ := purchaseListView.Apply(records, params)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="purchases.csv"`)
	if err := WritePurchasesCSV(w, filtered); err != nil {
		h.logger.Error("export purchases csv", "error", err)
	}
}

func formatMoney(v float64) string {
	return strconv.FormatFloat(inventory.Round2(v), 'f', 2, 64)
}
