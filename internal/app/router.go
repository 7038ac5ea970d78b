package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/osgiliath/console/internal/analytics"
	"github.com/osgiliath/console/internal/auth"
	"github.com/osgiliath/console/internal/customers"
	"github.com/osgiliath/console/internal/invoices"
	"github.com/osgiliath/console/internal/observability"
	"github.com/osgiliath/console/internal/payments"
	"github.com/osgiliath/console/internal/platform/httpx"
	"github.com/osgiliath/console/internal/shared"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	SessionManager   *shared.SessionManager
	CSRFManager      *shared.CSRFManager
	AuthHandler      *auth.Handler
	CustomersHandler *customers.Handler
	InvoicesHandler  *invoices.Handler
	PaymentsHandler  *payments.Handler
	AnalyticsHandler *analytics.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the console router.
func NewRouter(params RouterParams) http.Handler {
	mwCfg := MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}

	r := chi.NewRouter()
	r.Use(BaseStack(mwCfg)...)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(MiddlewareStack(mwCfg)...)

		r.Route("/auth", params.AuthHandler.MountRoutes)
		if params.CustomersHandler != nil {
			r.Route("/customers", params.CustomersHandler.MountRoutes)
		}
		if params.InvoicesHandler != nil {
			r.Route("/invoices", func(r chi.Router) {
				params.InvoicesHandler.MountRoutes(r)
				if params.PaymentsHandler != nil {
					r.Route("/{id}/payments", params.PaymentsHandler.MountRoutes)
				}
			})
		}
		if params.AnalyticsHandler != nil {
			r.Group(params.AnalyticsHandler.MountRoutes)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "")
	})
	return r
}
