package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stockflow-hq/stockflow/internal/inventory"
	"github.com/stockflow-hq/stockflow/internal/masterdata"
	"github.com/stockflow-hq/stockflow/internal/platform/httpx"
	"github.com/stockflow-hq/stockflow/internal/purchases"
	"github.com/stockflow-hq/stockflow/internal/reports"
	"github.com/stockflow-hq/stockflow/internal/sales"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	InventoryHandler  *inventory.Handler
	MasterDataHandler *masterdata.Handler
	SalesHandler      *sales.Handler
	PurchasesHandler  *purchases.Handler
	ReportsHandler    *reports.Handler
}

// NewRouter assembles the HTTP router with middleware and module routes.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{Logger: params.Logger, Config: params.Config}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		if params.MasterDataHandler != nil {
			params.MasterDataHandler.MountRoutes(r)
		}
		if params.InventoryHandler != nil {
			params.InventoryHandler.MountRoutes(r)
		}
		if params.SalesHandler != nil {
			params.SalesHandler.MountRoutes(r)
		}
		if params.PurchasesHandler != nil {
			params.PurchasesHandler.MountRoutes(r)
		}
		if params.ReportsHandler != nil {
			params.ReportsHandler.MountRoutes(r)
		}
	})

	return r
}
