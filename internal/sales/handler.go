package sales

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stockroom-pos/stockroom/internal/inventory"
	"github.com/stockroom-pos/stockroom/internal/platform/httpx"
	"github.com/stockroom-pos/stockroom/internal/shared"
)

// Handler wires HTTP endpoints for the sales page module.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   shared.Guard
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard shared.Guard) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers sales routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.guard.RequireUser)
	r.Get("/", h.List)
	r.Get("/export.csv", h.ExportCSV)
	r.Get("/{id}", h.Show)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

var saleListView = shared.ListView[SaleRecord]{
	SortKeys: func(sale SaleRecord, column string) (shared.SortKey, bool) {
		switch column {
		case "name":
			return shared.TextKey(sale.Name), true
		case "category":
			return shared.TextKey(sale.Category), true
		case "customer":
			if sale.Customer == nil {
				return shared.NullKey(shared.SortText), true
			}
			return shared.TextKey(*sale.Customer), true
		case "quantity":
			return shared.NumberKey(float64(sale.Quantity)), true
		case "price":
			return shared.NumberKey(sale.Price), true
		case "total":
			return shared.NumberKey(sale.Total), true
		case "profit":
			return shared.NumberKey(sale.Profit), true
		case "sold_at":
			return shared.TimeKey(sale.SoldAt), true
		default:
			return shared.SortKey{}, false
		}
	},
	SearchText: func(sale SaleRecord) []string {
		fields := []string{sale.Name, sale.Category}
		if sale.Customer != nil {
			fields = append(fields, *sale.Customer)
		}
		return fields
	},
	Timestamp: func(sale SaleRecord) time.Time {
		return sale.SoldAt
	},
}

// List returns the derived view of the sales collection.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ListAll(r.Context())
	if err != nil {
		h.logger.Error("list sales", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "Failed to load sales")
		return
	}
	params := shared.ParseListParams(r.URL.Query())
	page, _, meta := saleListView.Apply(records, params)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"sales":      page,
		"pagination": meta,
	})
}

// Show returns one sale record.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Invalid sale ID")
		return
	}
	sale, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

// Create records a sale and decrements stock.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSaleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Invalid request body")
		return
	}
	actorID, _ := shared.CurrentUserID(r)
	sale, err := h.service.Sell(r.Context(), req, actorID, r.Header.Get("Idempotency-Key"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sale)
}

// Update edits a sale, shifting stock by the quantity difference.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Invalid sale ID")
		return
	}
	var req UpdateSaleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Invalid request body")
		return
	}
	actorID, _ := shared.CurrentUserID(r)
	sale, err := h.service.Update(r.Context(), id, req, actorID, shared.CurrentRole(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

// Delete removes a sale and restores the sold quantity.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Invalid sale ID")
		return
	}
	actorID, _ := shared.CurrentUserID(r)
	if err := h.service.Delete(r.Context(), id, actorID, shared.CurrentRole(r)); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "Record not found")
	case errors.Is(err, ErrNotOwner):
		httpx.Problem(w, http.StatusForbidden, "Access Denied", "You can only modify records you created")
	case errors.Is(err, inventory.ErrInsufficientStock):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Insufficient Stock", "Requested quantity exceeds current stock")
	case errors.Is(err, inventory.ErrNegativeStock):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Negative Stock", "This change would drive inventory below zero")
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Duplicate", "This sale was already recorded")
	case errors.Is(err, ErrInvalidInput):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("sales request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
