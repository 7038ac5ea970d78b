package customers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/osgiliath/console/internal/apiclient"
	"github.com/osgiliath/console/internal/auth"
	"github.com/osgiliath/console/internal/platform/httpx"
)

// Handler exposes the customer view-models over JSON.
type Handler struct {
	logger *slog.Logger
	api    *apiclient.Client
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, api *apiclient.Client) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, api: api}
}

// MountRoutes registers customer routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(auth.RequireLogin)
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleShow)
	r.Put("/{id}", h.handleUpdate)
	r.Delete("/{id}", h.handleDelete)
}

func (h *Handler) service(r *http.Request) *Service {
	return NewService(auth.ClientFor(h.api, r))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	vm := NewListViewModel(h.service(r), nil)
	vm.Restore(r.URL.Query())
	if err := vm.Refresh(r.Context()); err != nil {
		h.logger.Warn("list customers", slog.Any("error", err))
		httpx.RespondState(w, err, vm.State())
		return
	}
	httpx.JSON(w, http.StatusOK, vm.State())
}

func (h *Handler) handleShow(w http.ResponseWriter, r *http.Request) {
	vm := NewFormViewModel(h.service(r))
	if err := vm.Load(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.RespondError(w, err)
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
	c, err := vm.Create(r.Context(), draft)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("customer created", slog.String("id", c.ID))
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var draft Draft
	if err := httpx.DecodeJSON(r, &draft); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrBadInput, err))
		return
	}
	vm := NewFormViewModel(h.service(r))
	c, err := vm.Update(r.Context(), chi.URLParam(r, "id"), draft)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	vm := NewListViewModel(h.service(r), nil)
	vm.Restore(r.URL.Query())
	if err := vm.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, vm.State())
}
