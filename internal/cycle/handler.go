package cycle

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/pos-backoffice/internal/platform/httpx"
	"github.com/odyssey-erp/pos-backoffice/internal/shared"
)

type cycleService interface {
	Get(ctx context.Context, id int64) (Cycle, error)
	Active(ctx context.Context, businessID int64) (Cycle, error)
	List(ctx context.Context, businessID int64, page, perPage int) ([]Cycle, shared.Pagination, error)
	Open(ctx context.Context, in OpenInput) (Cycle, error)
	Edit(ctx context.Context, in EditInput) (Cycle, error)
	Close(ctx context.Context, in CloseInput) (Cycle, error)
	Delete(ctx context.Context, in DeleteInput) error
}

// Handler wires HTTP endpoints for economic cycles.
type Handler struct {
	logger    *slog.Logger
	service   cycleService
	validator *validator.Validate
}

// NewHandler constructs a cycle HTTP handler.
func NewHandler(logger *slog.Logger, service cycleService) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers HTTP routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/businesses/{businessID}/cycles", h.list)
	r.Get("/businesses/{businessID}/cycles/active", h.active)
	r.Post("/businesses/{businessID}/cycles", h.open)
	r.Get("/cycles/{id}", h.get)
	r.Patch("/cycles/{id}", h.edit)
	r.Post("/cycles/{id}/close", h.close)
	r.Delete("/cycles/{id}", h.delete)
}

type openRequest struct {
	PriceSystemID int64  `json:"priceSystemId" validate:"required,gt=0"`
	Name          string `json:"name" validate:"max=120"`
	Observations  string `json:"observations" validate:"max=2000"`
}

type editRequest struct {
	PriceSystemID *int64  `json:"priceSystemId" validate:"omitempty,gt=0"`
	Name          *string `json:"name" validate:"omitempty,min=1,max=120"`
	Observations  *string `json:"observations" validate:"omitempty,max=2000"`
}

type closeRequest struct {
	Observations *string `json:"observations" validate:"omitempty,max=2000"`
}

type listResponse struct {
	Cycles     []Cycle           `json:"cycles"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	businessID, err := httpx.IDParam(r, "businessID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	page, perPage := shared.PageFromRequest(r)
	cycles, pagination, err := h.service.List(r.Context(), businessID, page, perPage)
	if err != nil {
		h.fail(w, "list cycles", err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{Cycles: cycles, Pagination: pagination})
}

func (h *Handler) active(w http.ResponseWriter, r *http.Request) {
	businessID, err := httpx.IDParam(r, "businessID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	c, err := h.service.Active(r.Context(), businessID)
	if err != nil {
		h.fail(w, "active cycle", err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) open(w http.ResponseWriter, r *http.Request) {
	businessID, err := httpx.IDParam(r, "businessID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req openRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.service.Open(r.Context(), OpenInput{
		BusinessID:    businessID,
		PriceSystemID: req.PriceSystemID,
		Name:          req.Name,
		Observations:  req.Observations,
		Actor:         shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.fail(w, "open cycle", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	c, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get cycle", err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) edit(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req editRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.service.Edit(r.Context(), EditInput{
		CycleID:       id,
		PriceSystemID: req.PriceSystemID,
		Name:          req.Name,
		Observations:  req.Observations,
		Actor:         shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.fail(w, "edit cycle", err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req closeRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}
	c, err := h.service.Close(r.Context(), CloseInput{
		CycleID:      id,
		Observations: req.Observations,
		Actor:        shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.fail(w, "close cycle", err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), DeleteInput{CycleID: id, Actor: shared.ActorFromContext(r.Context())}); err != nil {
		h.fail(w, "delete cycle", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		httpx.Problem(w, http.StatusBadRequest, http.StatusText(http.StatusBadRequest), err.Error())
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(msg, slog.Any("error", err))
	} else {
		h.logger.Warn(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
