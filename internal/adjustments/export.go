package adjustments

import (
	"encoding/csv"
	"io"
	"net/http"
	"strconv"

	"github.com/stockroom-pos/stockroom/internal/shared"
)

// WriteAdjustmentsCSV serialises the filtered adjustments view to CSV.
func WriteAdjustmentsCSV(w io.Writer, records []AdjustmentRecord) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Item", "Category", "Delta", "Reason", "Date"}); err != nil {
		return err
	}
	for _, adj := range records {
		record := []string{
			adj.Name,
			adj.Category,
			strconv.FormatInt(adj.Delta, 10),
			adj.Reason,
			adj.Date.Format("2006-01-02 15:04"),
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
	_, filtered, _ := adjustmentListView.Apply(records, params)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="adjustments.csv"`)
	if err := WriteAdjustmentsCSV(w, filtered); err != nil {
		h.logger.Error("export adjustments csv", "error", err)
	}
}
