package inventory

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stockroom-pos/stockroom/internal/platform/httpx"
	"github.com/stockroom-pos/stockroom/internal/shared"
)

// Handler wires HTTP endpoints for the inventory page module.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   shared.Guard
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard shared.Guard) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers inventory routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireUser)
		r.Get("/", h.List)
		r.Get("/export.csv", h.ExportCSV)
		r.Get("/{id}", h.Show)
		r.Put("/{id}", h.Update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRole(shared.RoleAdmin))
		r.Post("/", h.Create)
		r.Delete("/{id}", h.Delete)
	})
}

// itemListView derives the sorted/filtered/paginated table state.
var itemListView = shared.ListView[Item]{
	SortKeys: func(item Item, column string) (shared.SortKey, bool) {
		switch column {
		case "name":
			return shared.TextKey(item.Name), true
		case "category":
			return shared.TextKey(item.Category), true
		case "quantity":
			return shared.NumberKey(float64(item.Quantity)), true
		case "price":
			return shared.NumberKey(item.Price), true
		case "avg_cost":
			if item.AvgCost == nil {
				return shared.NullKey(shared.SortNumeric), true
			}
			return shared.NumberKey(*item.AvgCost), true
		case "created_at":
			return shared.TimeKey(item.CreatedAt), true
		default:
			return shared.SortKey{}, false
		}
	},
	SearchText: func(item Item) []string {
		return []string{item.Name, item.Category}
	},
	Timestamp: func(item Item) time.Time {
		return item.CreatedAt
	},
}

// List returns the derived view of the item collection.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListAll(r.Context())
	if err != nil {
		h.logger.Error("list items", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "Failed to load inventory")
		return
	}
	params := shared.ParseListParams(r.URL.Query())
	page, _, meta := itemListView.Apply(items, params)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items":      page,
		"pagination": meta,
	})
}

// Show returns a single item.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Invalid item ID")
		return
	}
	item, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

// Create adds a new item with initial stock.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Invalid request body")
		return
	}
	actorID, _ := shared.CurrentUserID(r)
	item, err := h.service.Create(r.Context(), req, actorID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

// Update edits descriptive item fields.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Invalid item ID")
		return
	}
	var req UpdateItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Invalid request body")
		return
	}
	actorID, _ := shared.CurrentUserID(r)
	item, err := h.service.Update(r.Context(), id, req, shared.CurrentRole(r), actorID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

// Delete removes an item.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Invalid item ID")
		return
	}
	actorID, _ := shared.CurrentUserID(r)
	if err := h.service.Delete(r.Context(), id, actorID); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "Item not found")
	case errors.Is(err, ErrFieldNotEditable):
		httpx.Problem(w, http.StatusForbidden, "Access Denied", err.Error())
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidPrice):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("inventory request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
