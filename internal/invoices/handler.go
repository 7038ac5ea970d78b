package invoices

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/osgiliath/console/internal/apiclient"
	"github.com/osgiliath/console/internal/auth"
	"github.com/osgiliath/console/internal/platform/httpx"
)

// Invalidator is told when a mutation may have changed cached aggregates.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context) {}

// Handler exposes the invoice view-models over JSON.
type Handler struct {
	logger      *slog.Logger
	api         *apiclient.Client
	invalidator Invalidator
}

// NewHandler constructs a Handler. invalidator may be nil.
func NewHandler(logger *slog.Logger, api *apiclient.Client, invalidator Invalidator) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if invalidator == nil {
		invalidator = noopInvalidator{}
	}
	return &Handler{logger: logger, api: api, invalidator: invalidator}
}

// MountRoutes registers invoice routes. Nested payment routes are mounted
// by the caller under /{id}/payments.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(auth.RequireLogin)
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleShow)
	r.Put("/{id}", h.handleUpdate)
	r.Delete("/{id}", h.handleDelete)
	r.Post("/{id}/send", h.handleAction(ActionSend))
	r.Post("/{id}/mark-paid", h.handleAction(ActionMarkPaid))
	r.Post("/{id}/cancel", h.handleAction(ActionCancel))
	r.Post("/{id}/line-items", h.handleAddLineItem)
	r.Delete("/{id}/line-items/{itemID}", h.handleRemoveLineItem)
	r.Get("/{id}/pdf", h.handlePDF)
}

func (h *Handler) service(r *http.Request) *Service {
	return NewService(auth.ClientFor(h.api, r))
}

// handleList serves the list for the URL query. An optional action
// (next, prev, sort, clear) is applied after the first fetch so paging
// bounds are known; the response URL is where the page should navigate.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()
	vm := NewListViewModel(h.service(r), nil)
	vm.Restore(query)
	if err := vm.Refresh(ctx); err != nil {
		h.logger.Warn("list invoices", slog.Any("error", err))
		httpx.RespondState(w, err, vm.State())
		return
	}

	var err error
	switch query.Get("action") {
	case "":
	case "next":
		err = vm.NextPage(ctx)
	case "prev":
		err = vm.PrevPage(ctx)
	case "sort":
		err = vm.HandleSort(ctx, query.Get("field"))
	case "clear":
		err = vm.ClearFilters(ctx)
	default:
		httpx.RespondError(w, fmt.Errorf("%w: unknown action %q", httpx.ErrBadInput, query.Get("action")))
		return
	}
	if err != nil {
		httpx.RespondState(w, err, vm.State())
		return
	}
	httpx.JSON(w, http.StatusOK, vm.State())
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var draft Draft
	if err := httpx.DecodeJSON(r, &draft); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrBadInput, err))
		return
	}
	vm := NewFormViewModel(h.service(r))
	inv, err := vm.Create(r.Context(), draft)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("invoice created", slog.String("id", inv.ID), slog.String("number", inv.InvoiceNumber))
	h.invalidator.Invalidate(r.Context())
	httpx.JSON(w, http.StatusCreated, vm.State())
}

// loaded builds a form view-model on the invoice named in the path.
func (h *Handler) loaded(w http.ResponseWriter, r *http.Request) (*FormViewModel, bool) {
	vm := NewFormViewModel(h.service(r))
	if err := vm.Load(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.RespondError(w, err)
		return nil, false
	}
	return vm, true
}

func (h *Handler) handleShow(w http.ResponseWriter, r *http.Request) {
	vm, ok := h.loaded(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, vm.State())
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var header Header
	if err := httpx.DecodeJSON(r, &header); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrBadInput, err))
		return
	}
	vm, ok := h.loaded(w, r)
	if !ok {
		return
	}
	if _, err := vm.Update(r.Context(), chi.URLParam(r, "id"), header); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.invalidator.Invalidate(r.Context())
	httpx.JSON(w, http.StatusOK, vm.State())
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	vm, ok := h.loaded(w, r)
	if !ok {
		return
	}
	if err := vm.Delete(r.Context()); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("invoice deleted", slog.String("id", chi.URLParam(r, "id")))
	h.invalidator.Invalidate(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAction(action Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vm, ok := h.loaded(w, r)
		if !ok {
			return
		}
		var err error
		switch action {
		case ActionSend:
			_, err = vm.Send(r.Context())
		case ActionMarkPaid:
			_, err = vm.MarkPaid(r.Context())
		case ActionCancel:
			_, err = vm.Cancel(r.Context())
		}
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		h.logger.Info("invoice transition", slog.String("id", chi.URLParam(r, "id")), slog.String("action", string(action)))
		h.invalidator.Invalidate(r.Context())
		httpx.JSON(w, http.StatusOK, vm.State())
	}
}

func (h *Handler) handleAddLineItem(w http.ResponseWriter, r *http.Request) {
	var in LineItemInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrBadInput, err))
		return
	}
	vm, ok := h.loaded(w, r)
	if !ok {
		return
	}
	if _, err := vm.AddPersistedLineItem(r.Context(), in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.invalidator.Invalidate(r.Context())
	httpx.JSON(w, http.StatusCreated, vm.State())
}

func (h *Handler) handleRemoveLineItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: line item id", httpx.ErrBadInput))
		return
	}
	vm, ok := h.loaded(w, r)
	if !ok {
		return
	}
	index := -1
	for i, li := range vm.State().LineItems {
		if li.ID != nil && *li.ID == itemID {
			index = i
			break
		}
	}
	if index < 0 {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "Line item not found")
		return
	}
	if err := vm.RemoveDraftLineItem(r.Context(), index); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.invalidator.Invalidate(r.Context())
	httpx.JSON(w, http.StatusOK, vm.State())
}

func (h *Handler) handlePDF(w http.ResponseWriter, r *http.Request) {
	vm, ok := h.loaded(w, r)
	if !ok {
		return
	}
	doc, err := vm.ExportPDF(r.Context())
	if err != nil {
		h.logger.Warn("export invoice pdf", slog.String("id", chi.URLParam(r, "id")), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", doc.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Body)
}
