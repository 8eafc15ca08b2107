package settlement

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/pos-backoffice/internal/money"
	"github.com/odyssey-erp/pos-backoffice/internal/platform/httpx"
	"github.com/odyssey-erp/pos-backoffice/internal/shared"
)

// IdempotencyHeader lets clients pin the key of a registration attempt.
const IdempotencyHeader = "Idempotency-Key"

type settlementService interface {
	Preview(ctx context.Context, in PreviewInput) (Result, error)
	Register(ctx context.Context, in RegisterInput) (Registration, error)
}

// Handler exposes settlement endpoints.
type Handler struct {
	logger  *slog.Logger
	service settlementService
}

// NewHandler constructs the settlement HTTP handler.
func NewHandler(logger *slog.Logger, service settlementService) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers settlement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/settlements/preview", h.preview)
	r.Post("/orders/{id}/payments", h.register)
}

type registerRequest struct {
	BusinessID int64           `json:"businessId"`
	Tendered   []money.Payment `json:"tendered"`
}

type previewResponse struct {
	Result
	Accepted   bool          `json:"accepted"`
	Shortfalls []money.Money `json:"shortfalls"`
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	var in PreviewInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Preview(r.Context(), in)
	if err != nil {
		h.fail(w, "preview settlement", err)
		return
	}
	httpx.JSON(w, http.StatusOK, previewResponse{
		Result:     result,
		Accepted:   result.Accepted(),
		Shortfalls: result.Shortfalls(),
	})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	orderID, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	reg, err := h.service.Register(r.Context(), RegisterInput{
		BusinessID:     req.BusinessID,
		OrderID:        orderID,
		Tendered:       req.Tendered,
		IdempotencyKey: strings.TrimSpace(r.Header.Get(IdempotencyHeader)),
		ActorID:        shared.ActorFromContext(r.Context()).ID,
	})
	if err != nil {
		h.fail(w, "register settlement", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, reg)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(msg, slog.Any("error", err))
	} else {
		h.logger.Warn(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
