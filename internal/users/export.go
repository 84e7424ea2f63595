package users

import (
	"encoding/csv"
	"io"
	"net/http"

	"github.com/stockroom-pos/stockroom/internal/shared"
)

// WriteUsersCSV serialises the filtered accounts view to CSV.
func WriteUsersCSV(w io.Writer, accounts []User) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Email", "Name", "Role", "Active", "Created At"}); err != nil {
		return err
	}
	for _, user := range accounts {
		role := ""
		if user.Role != nil {
			role = *user.Role
		}
		active := "no"
		if user.IsActive {
			active = "yes"
		}
		record := []string{
			user.Email,
			user.Name,
			role,
			active,
			user.CreatedAt.Format("2006-01-02 15:04"),
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
	accounts, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	params := shared.ParseListParams(r.URL.Query())
	_, filtered, _ := userListView.Apply(accounts, params)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="users.csv"`)
	if err := WriteUsersCSV(w, filtered); err != nil {
		h.logger.Error("export users csv", "error", err)
	}
}
