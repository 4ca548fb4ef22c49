package purchases

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/stockflow-hq/stockflow/internal/platform/httpx"
	"github.com/stockflow-hq/stockflow/internal/shared"
)

// Handler wires HTTP endpoints for purchases and suppliers.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs purchases handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: httpx.NewValidator()}
}

// MountRoutes registers purchases routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/purchases", func(r chi.Router) {
		r.Get("/", h.listPurchases)
		r.Post("/", h.createPurchase)
		r.Get("/{id}", h.getPurchase)
		r.Put("/{id}", h.updatePurchase)
		r.Delete("/{id}", h.deletePurchase)
	})
	r.Route("/suppliers", func(r chi.Router) {
		r.Get("/", h.listSuppliers)
		r.Post("/", h.createSupplier)
		r.Get("/{id}", h.getSupplier)
		r.Put("/{id}", h.updateSupplier)
		r.Delete("/{id}", h.deleteSupplier)
	})
}

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
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

type purchasePayload struct {
	ItemID      int64               `json:"item_id" validate:"required,gt=0"`
	SupplierID  *int64              `json:"supplier_id"`
	Quantity    int64               `json:"quantity" validate:"required,gt=0"`
	UnitCost    decimal.NullDecimal `json:"unit_cost"`
	Description string              `json:"description"`
	Date        string              `json:"date"`
}

type purchaseResponse struct {
	ID           int64               `json:"id"`
	Number       string              `json:"number"`
	ItemID       int64               `json:"item_id"`
	ItemName     string              `json:"item_name,omitempty"`
	ItemSKU      string              `json:"item_sku,omitempty"`
	SupplierID   *int64              `json:"supplier_id,omitempty"`
	SupplierName string              `json:"supplier_name,omitempty"`
	Quantity     int64               `json:"quantity"`
	UnitCost     decimal.NullDecimal `json:"unit_cost"`
	TotalCost    decimal.Decimal     `json:"total_cost"`
	Description  string              `json:"description,omitempty"`
	Date         time.Time           `json:"date"`
	CreatedAt    time.Time           `json:"created_at"`
}

func purchaseToResponse(p Purchase) purchaseResponse {
	return purchaseResponse{
		ID:           p.Entry.ID,
		Number:       p.Entry.Number,
		ItemID:       p.Entry.ItemID,
		ItemName:     p.ItemName,
		ItemSKU:      p.ItemSKU,
		SupplierID:   p.Entry.CounterpartyID,
		SupplierName: p.SupplierName,
		Quantity:     p.Entry.Quantity,
		UnitCost:     p.Entry.UnitValue,
		TotalCost:    p.TotalCost,
		Description:  p.Entry.Description,
		Date:         p.Entry.Date,
		CreatedAt:    p.Entry.CreatedAt,
	}
}

func (h *Handler) purchaseInput(w http.ResponseWriter, r *http.Request) (PurchaseInput, bool) {
	var payload purchasePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return PurchaseInput{}, false
	}
	if err := httpx.Validate(h.validator, payload); err != nil {
		httpx.RespondError(w, err)
		return PurchaseInput{}, false
	}
	date, ok := parseDate(payload.Date)
	if !ok {
		httpx.RespondError(w, shared.FieldError("date", "Must be a YYYY-MM-DD or RFC3339 date."))
		return PurchaseInput{}, false
	}
	return PurchaseInput{
		ItemID:      payload.ItemID,
		SupplierID:  payload.SupplierID,
		Quantity:    payload.Quantity,
		UnitCost:    payload.UnitCost,
		Description: payload.Description,
		Date:        date,
	}, true
}

func (h *Handler) createPurchase(w http.ResponseWriter, r *http.Request) {
	input, ok := h.purchaseInput(w, r)
	if !ok {
		return
	}
	purchase, err := h.service.CreatePurchase(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("purchase created",
		slog.String("number", purchase.Entry.Number),
		slog.Int64("item_id", purchase.Entry.ItemID),
		slog.Int64("quantity", purchase.Entry.Quantity))
	httpx.JSON(w, http.StatusCreated, purchaseToResponse(purchase))
}

func (h *Handler) getPurchase(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
		return
	}
	purchase, err := h.service.GetPurchase(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, purchaseToResponse(purchase))
}

func (h *Handler) listPurchases(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, ok := parseDate(q.Get("from"))
	if !ok {
		httpx.RespondError(w, shared.FieldError("from", "Must be a YYYY-MM-DD or RFC3339 date."))
		return
	}
	to, ok := parseDate(q.Get("to"))
	if !ok {
		httpx.RespondError(w, shared.FieldError("to", "Must be a YYYY-MM-DD or RFC3339 date."))
		return
	}
	limit := 0
	if limitStr := q.Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil {
			limit = n
		}
	}
	result, err := h.service.ListPurchases(r.Context(), from, to, limit)
	if err != nil {
		h.logger.Error("list purchases", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]purchaseResponse, 0, len(result))
	for _, purchase := range result {
		out = append(out, purchaseToResponse(purchase))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) updatePurchase(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
		return
	}
	input, ok := h.purchaseInput(w, r)
	if !ok {
		return
	}
	purchase, err := h.service.UpdatePurchase(r.Context(), id, input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, purchaseToResponse(purchase))
}

func (h *Handler) deletePurchase(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
		return
	}
	if err := h.service.DeletePurchase(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type supplierPayload struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type supplierResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func supplierToResponse(s Supplier) supplierResponse {
	return supplierResponse{ID: s.ID, Name: s.Name, Email: s.Email, Phone: s.Phone, Address: s.Address, CreatedAt: s.CreatedAt}
}

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if limitStr := q.Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil {
			limit = n
		}
	}
	suppliers, err := h.service.ListSuppliers(r.Context(), q.Get("search"), limit)
	if err != nil {
		h.logger.Error("list suppliers", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]supplierResponse, 0, len(suppliers))
	for _, s := range suppliers {
		out = append(out, supplierToResponse(s))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) createSupplier(w http.ResponseWriter, r *http.Request) {
	var payload supplierPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := httpx.Validate(h.validator, payload); err != nil {
		httpx.RespondError(w, err)
		return
	}
	supplier, err := h.service.CreateSupplier(r.Context(), SupplierInput{Name: payload.Name, Email: payload.Email, Phone: payload.Phone, Address: payload.Address})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, supplierToResponse(supplier))
}

func (h *Handler) getSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
		return
	}
	supplier, err := h.service.GetSupplier(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, supplierToResponse(supplier))
}

func (h *Handler) updateSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
		return
	}
	var payload supplierPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := httpx.Validate(h.validator, payload); err != nil {
		httpx.RespondError(w, err)
		return
	}
	supplier, err := h.service.UpdateSupplier(r.Context(), id, SupplierInput{Name: payload.Name, Email: payload.Email, Phone: payload.Phone, Address: payload.Address})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, supplierToResponse(supplier))
}

func (h *Handler) deleteSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
		return
	}
	if err := h.service.DeleteSupplier(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
