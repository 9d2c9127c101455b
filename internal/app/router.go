package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/gasflow-erp/gasflow/internal/delivery"
	"github.com/gasflow-erp/gasflow/internal/inventory"
	"github.com/gasflow-erp/gasflow/internal/masterdata"
	"github.com/gasflow-erp/gasflow/internal/observability"
	"github.com/gasflow-erp/gasflow/internal/receipts"
	"github.com/gasflow-erp/gasflow/internal/reports"
	"github.com/gasflow-erp/gasflow/internal/shared"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	MasterDataHandler *masterdata.Handler
	InventoryHandler  *inventory.Handler
	ReceiptsHandler   *receipts.Handler
	DeliveryHandler   *delivery.Handler
	ReportsHandler    *reports.Handler
	Metrics           *observability.Metrics
	Idempotency       *shared.IdempotencyStore
}

// NewRouter constructs the chi.Router with gasflow defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.MasterDataHandler != nil {
		r.Route("/masterdata", params.MasterDataHandler.MountRoutes)
	}
	if params.InventoryHandler != nil {
		r.Route("/inventory", params.InventoryHandler.MountRoutes)
	}
	if params.ReceiptsHandler != nil {
		r.Route("/receipts", func(sub chi.Router) {
			sub.Use(Idempotency(params.Idempotency, "receipts", params.Logger))
			params.ReceiptsHandler.MountRoutes(sub)
		})
	}
	if params.DeliveryHandler != nil {
		r.Route("/delivery", func(sub chi.Router) {
			sub.Use(Idempotency(params.Idempotency, "delivery", params.Logger))
			params.DeliveryHandler.MountRoutes(sub)
		})
	}
	if params.ReportsHandler != nil {
		r.Route("/reports", params.ReportsHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
