package analytics

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/osgiliath/console/internal/analytics/chart"
	"github.com/osgiliath/console/internal/apiclient"
	"github.com/osgiliath/console/internal/auth"
	"github.com/osgiliath/console/internal/customers"
	"github.com/osgiliath/console/internal/invoices"
	"github.com/osgiliath/console/internal/platform/httpx"
	"github.com/osgiliath/console/internal/viewmodel"
)

const (
	maxMonths = 120
	maxLimit  = 100
)

// Handler serves the dashboard and reports pages.
type Handler struct {
	logger *slog.Logger
	api    *apiclient.Client
	cache  *Cache
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, api *apiclient.Client, cache *Cache) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, api: api, cache: cache}
}

// MountRoutes registers /dashboard, /reports and /reports/revenue.svg.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(auth.RequireLogin)
	r.Get("/dashboard", h.handleDashboard)
	r.Get("/reports", h.handleReports)
	r.Get("/reports/revenue.svg", h.handleRevenueChart)
}

type windowQuery struct {
	Months int `schema:"months"`
	Limit  int `schema:"limit"`
}

func parseWindow(r *http.Request) windowQuery {
	var q windowQuery
	_ = viewmodel.DecodeQuery(&q, r.URL.Query())
	if q.Months <= 0 {
		q.Months = DefaultMonths
	}
	if q.Months > maxMonths {
		q.Months = maxMonths
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	return q
}

func (h *Handler) service(r *http.Request) *Service {
	return NewService(NewClient(auth.ClientFor(h.api, r)), h.cache)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q := parseWindow(r)
	api := auth.ClientFor(h.api, r)
	vm := NewDashboardViewModel(customers.NewService(api), invoices.NewService(api), NewService(NewClient(api), h.cache))
	if err := vm.Load(r.Context(), q.Months, q.Limit); err != nil {
		h.logger.Warn("dashboard load failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, vm.State())
}

func (h *Handler) handleReports(w http.ResponseWriter, r *http.Request) {
	vm := NewReportsViewModel(h.service(r))
	if err := vm.Load(r.Context(), parseWindow(r).Months); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, vm.State())
}

func (h *Handler) handleRevenueChart(w http.ResponseWriter, r *http.Request) {
	months := parseWindow(r).Months
	revenue, err := h.service(r).RevenueOverTime(r.Context(), months)
	if err != nil {
		httpx.RespondError(w, viewmodel.NewLoadError("revenue chart", "Failed to load analytics data. Please try again.", err))
		return
	}
	points := make([]chart.Point, 0, len(revenue))
	for _, m := range revenue {
		points = append(points, chart.Point{Label: m.Month, Value: m.Revenue})
	}
	if len(points) == 0 {
		points = append(points, chart.Point{Label: "", Value: 0})
	}
	svg, err := chart.Line(points, chart.LineOpts{Title: "Revenue Over Time", ShowDots: true})
	if err != nil {
		h.logger.Error("render revenue chart", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "private, max-age=60")
	_, _ = w.Write([]byte(svg))
}
