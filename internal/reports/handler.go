package reports

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stockflow-hq/stockflow/internal/platform/httpx"
	"github.com/stockflow-hq/stockflow/internal/shared"
)

// Handler wires the read-only report endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs reports handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/sales", h.salesReport)
		r.Get("/purchases", h.purchasesReport)
		r.Get("/stock", h.stockReport)
	})
}

func parseDate(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, true
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, true
	}
	t, err := time.Parse(time.RFC3339, value)
	return t, err == nil
}

func (h *Handler) dateRange(w http.ResponseWriter, r *http.Request) (from, to time.Time, ok bool) {
	q := r.URL.Query()
	from, ok = parseDate(q.Get("from"))
	if !ok {
		httpx.RespondError(w, shared.FieldError("from", "Must be a YYYY-MM-DD or RFC3339 date."))
		return
	}
	to, ok = parseDate(q.Get("to"))
	if !ok {
		httpx.RespondError(w, shared.FieldError("to", "Must be a YYYY-MM-DD or RFC3339 date."))
		return
	}
	return from, to, true
}

func (h *Handler) salesReport(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.dateRange(w, r)
	if !ok {
		return
	}
	report, err := h.service.Sales(r.Context(), from, to)
	if err != nil {
		h.logger.Error("sales report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) purchasesReport(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.dateRange(w, r)
	if !ok {
		return
	}
	report, err := h.service.Purchases(r.Context(), from, to)
	if err != nil {
		h.logger.Error("purchases report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) stockReport(w http.ResponseWriter, r *http.Request) {
	lowOnly := r.URL.Query().Get("low_stock") == "true"
	report, err := h.service.Stock(r.Context(), lowOnly)
	if err != nil {
		h.logger.Error("stock report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}
