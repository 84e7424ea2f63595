package adjustments

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

// Handler wires HTTP endpoints for the adjustments page module.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   shared.Guard
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard shared.Guard) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers adjustment routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.guard.RequireUser)
	r.Get("/", h.List)
	r.Get("/export.csv", h.ExportCSV)
	r.Get("/{id}", h.Show)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

var adjustmentListView = shared.ListView[AdjustmentRecord]{
	SortKeys: func(adj AdjustmentRecord, column string) (shared.SortKey, bool) {
		switch column {
		case "name":
			return shared.TextKey(adj.Name), true
		case "category":
			return shared.TextKey(adj.Category), true
		case "reason":
			return shared.TextKey(adj.Reason), true
		case "delta":
			return shared.NumberKey(float64(adj.Delta)), true
		case "date":
			return shared.TimeKey(adj.Date), true
		default:
			return shared.SortKey{}, false
		}
	},
	SearchText: func(adj AdjustmentRecord) []string {
		return []string{adj.Name, adj.Category, adj.Reason}
	},
	Timestamp: func(adj AdjustmentRecord) time.Time {
		return adj.Date
	},
}

// List returns the derived view of the adjustments collection.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ListAll(r.Context())
	if err != nil {
		h.logger.Error("list adjustments", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "Failed to load adjustments")
		return
	}
	params := shared.ParseListParams(r.URL.Query())
	page, _, meta := adjustmentListView.Apply(records, params)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"adjustments": page,
		"pagination":  meta,
	})
}

// Show returns one adjustment record.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Invalid adjustment ID")
		return
	}
	adj, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, adj)
}

// Create applies a signed stock correction.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAdjustmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Invalid request body")
		return
	}
	actorID, _ := shared.CurrentUserID(r)
	adj, err := h.service.Adjust(r.Context(), req, actorID, r.Header.Get("Idempotency-Key"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, adj)
}

// Update edits a correction, applying only the delta difference.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Invalid adjustment ID")
		return
	}
	var req UpdateAdjustmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Invalid request body")
		return
	}
	actorID, _ := shared.CurrentUserID(r)
	adj, err := h.service.Update(r.Context(), id, req, actorID, shared.CurrentRole(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, adj)
}

// Delete removes a correction and reverses its delta.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Invalid adjustment ID")
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
		httpx.Problem(w, http.StatusConflict, "Duplicate", "This adjustment was already recorded")
	case errors.Is(err, ErrZeroDelta), errors.Is(err, ErrInvalidInput):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("adjustments request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
