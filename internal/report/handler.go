package report

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/pos-backoffice/internal/platform/httpx"
)

type reportService interface {
	CycleSummary(ctx context.Context, businessID, cycleID int64) (Summary, error)
	RangeSummary(ctx context.Context, businessID int64, criteria Criteria) (Summary, error)
	AreaSales(ctx context.Context, businessID, cycleID int64, areaIDs []int64) ([]AreaSales, error)
}

// Handler exposes the report endpoints.
type Handler struct {
	logger  *slog.Logger
	service reportService
}

// NewHandler constructs a report handler.
func NewHandler(logger *slog.Logger, service reportService) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/businesses/{businessID}/cycles/{cycleID}/summary", h.cycleSummary)
	r.Get("/businesses/{businessID}/cycles/{cycleID}/areas", h.areaSales)
	r.Get("/businesses/{businessID}/summary", h.rangeSummary)
}

func (h *Handler) cycleSummary(w http.ResponseWriter, r *http.Request) {
	businessID, cycleID, ok := h.cycleParams(w, r)
	if !ok {
		return
	}
	summary, err := h.service.CycleSummary(r.Context(), businessID, cycleID)
	if err != nil {
		h.fail(w, "cycle summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) rangeSummary(w http.ResponseWriter, r *http.Request) {
	businessID, err := httpx.IDParam(r, "businessID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	criteria, err := ParseCriteria(r.URL.Query())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	summary, err := h.service.RangeSummary(r.Context(), businessID, criteria)
	if err != nil {
		h.fail(w, "range summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) areaSales(w http.ResponseWriter, r *http.Request) {
	businessID, cycleID, ok := h.cycleParams(w, r)
	if !ok {
		return
	}
	ids, err := ParseIDs(r.URL.Query().Get("ids"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: ids: %v", ErrInvalidFilter, err))
		return
	}
	sales, err := h.service.AreaSales(r.Context(), businessID, cycleID, ids)
	if err != nil {
		h.fail(w, "area sales", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"areas": sales})
}

func (h *Handler) cycleParams(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	businessID, err := httpx.IDParam(r, "businessID")
	if err != nil {
		httpx.RespondError(w, err)
		return 0, 0, false
	}
	cycleID, err := httpx.IDParam(r, "cycleID")
	if err != nil {
		httpx.RespondError(w, err)
		return 0, 0, false
	}
	return businessID, cycleID, true
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(msg, slog.Any("error", err))
	} else {
		h.logger.Warn(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
