package payments

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/osgiliath/console/internal/apiclient"
	"github.com/osgiliath/console/internal/auth"
	"github.com/osgiliath/console/internal/invoices"
	"github.com/osgiliath/console/internal/platform/httpx"
)

// Handler exposes the payment view-model over JSON. It is mounted under
// /invoices/{id}/payments.
type Handler struct {
	logger      *slog.Logger
	api         *apiclient.Client
	invalidator invoices.Invalidator
}

// NewHandler constructs a Handler. invalidator may be nil.
func NewHandler(logger *slog.Logger, api *apiclient.Client, invalidator invoices.Invalidator) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, api: api, invalidator: invalidator}
}

// MountRoutes registers payment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(auth.RequireLogin)
	r.Get("/", h.handleList)
	r.Post("/", h.handleRecord)
}

func (h *Handler) viewModel(r *http.Request) *FormViewModel {
	api := auth.ClientFor(h.api, r)
	return NewFormViewModel(invoices.NewService(api), NewService(api))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	vm := h.viewModel(r)
	if err := vm.Load(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, vm.State())
}

type recordResponse struct {
	Payment *Payment  `json:"payment"`
	State   FormState `json:"state"`
}

func (h *Handler) handleRecord(w http.ResponseWriter, r *http.Request) {
	var c Candidate
	if err := httpx.DecodeJSON(r, &c); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrBadInput, err))
		return
	}
	vm := h.viewModel(r)
	if err := vm.Load(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := vm.Record(r.Context(), c)
	if p != nil {
		h.logger.Info("payment recorded",
			slog.String("invoice", chi.URLParam(r, "id")),
			slog.String("payment", p.ID),
			slog.Float64("amount", p.Amount))
		h.invalidate(r.Context())
	}
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, recordResponse{Payment: p, State: vm.State()})
}

func (h *Handler) invalidate(ctx context.Context) {
	if h.invalidator != nil {
		h.invalidator.Invalidate(ctx)
	}
}
