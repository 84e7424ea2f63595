package purchases

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

// Handler wires HTTP endpoints for the purchases page module.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   shared.Guard
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard shared.Guard) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers purchase routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.guard.RequireUser)
	r.Get("/", h.List)
	r.Get("/export.csv", h.ExportCSV)
	r.Get("/{id}", h.Show)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

var purchaseListView = shared.ListView[PurchaseRecord]{
	SortKeys: func(p PurchaseRecord, column string) (shared.SortKey, bool) {
		switch column {
		case "name":
			return shared.TextKey(p.Name), true
		case "category":
			return shared.TextKey(p.Category), true
		case "supplier":
			if p.Supplier == nil {
				return shared.NullKey(shared.SortText), true
			}
			return shared.TextKey(*p.Supplier), true
		case "quantity":
			return shared.NumberKey(float64(p.Quantity)), true
		case "price":
			return shared.NumberKey(p.Price), true
		case "total":
			return shared.NumberKey(p.Total), true
		case "purchased_at":
			return shared.TimeKey(p.PurchasedAt), true
		default:
			return shared.SortKey{}, false
		}
	},
	SearchText: func(p PurchaseRecord) []string {
		fields := []string{p.Name, p.Category}
		if p.Supplier != nil {
			fields = append(fields, *p.Supplier)
		}
		return fields
	},
	Timestamp: func(p PurchaseRecord) time.Time {
		return p.PurchasedAt
	},
}

// List returns the derived view of the purchases collection.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ListAll(r.Context())
	if err != nil {
		h.logger.Error("list purchases", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "Failed to load purchases")
		return
	}
	params := shared.ParseListParams(r.URL.Query())
	page, _, meta := purchaseListView.Apply(records, params)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"purchases":  page,
		"pagination": meta,
	})
}

// Show returns one purchase record.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Invalid purchase ID")
		return
	}
	purchase, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, purchase)
}

// Create records a restock and re-blends the item's average cost.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePurchaseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Invalid request body")
		return
	}
	actorID, _ := shared.CurrentUserID(r)
	purchase, err := h.service.Purchase(r.Context(), req, actorID, r.Header.Get("Idempotency-Key"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, purchase)
}

// Update edits a purchase, shifting stock by the quantity difference.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Invalid purchase ID")
		return
	}
	var req UpdatePurchaseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Invalid request body")
		return
	}
	actorID, _ := shared.CurrentUserID(r)
	purchase, err := h.service.Update(r.Context(), id, req, actorID, shared.CurrentRole(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, purchase)
}

// Delete removes a purchase and subtracts the purchased quantity.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Invalid purchase ID")
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
	case errors.Is(err, inventory.ErrNegativeStock):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Negative Stock", "This change would drive inventory below zero")
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Duplicate", "This purchase was already recorded")
	case errors.Is(err, ErrInvalidInput):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("purchases request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
