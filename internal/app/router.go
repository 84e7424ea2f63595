package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/stockroom-pos/stockroom/internal/adjustments"
	"github.com/stockroom-pos/stockroom/internal/auth"
	"github.com/stockroom-pos/stockroom/internal/dashboard"
	"github.com/stockroom-pos/stockroom/internal/inventory"
	"github.com/stockroom-pos/stockroom/internal/purchases"
	"github.com/stockroom-pos/stockroom/internal/sales"
	"github.com/stockroom-pos/stockroom/internal/shared"
	"github.com/stockroom-pos/stockroom/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager

	AuthHandler        *auth.Handler
	DashboardHandler   *dashboard.Handler
	InventoryHandler   *inventory.Handler
	SalesHandler       *sales.Handler
	PurchasesHandler   *purchases.Handler
	AdjustmentsHandler *adjustments.Handler
	UsersHandler       *users.Handler
}

// NewRouter constructs the chi.Router with Stockroom defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Route("/dashboard", params.DashboardHandler.MountRoutes)
	r.Route("/inventory", params.InventoryHandler.MountRoutes)
	r.Route("/sales", params.SalesHandler.MountRoutes)
	r.Route("/purchases", params.PurchasesHandler.MountRoutes)
	r.Route("/adjustments", params.AdjustmentsHandler.MountRoutes)
	r.Route("/users", params.UsersHandler.MountRoutes)

	return r
}
