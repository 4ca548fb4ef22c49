package sales

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

// Handler wires HTTP endpoints for sales and customers.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs sales handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: httpx.NewValidator()}
}

// MountRoutes registers sales routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/sales", func(r chi.Router) {
		r.Get("/", h.listSales)
		r.Post("/", h.createSale)
		r.Get("/{id}", h.getSale)
		r.Put("/{id}", h.updateSale)
		r.Delete("/{id}", h.deleteSale)
	})
	r.Route("/customers", func(r chi.Router) {
		r.Get("/", h.listCustomers)
		r.Post("/", h.createCustomer)
		r.Get("/{id}", h.getCustomer)
		r.Put("/{id}", h.updateCustomer)
		r.Delete("/{id}", h.deleteCustomer)
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

type salePayload struct {
	ItemID      int64           `json:"item_id" validate:"required,gt=0"`
	CustomerID  *int64          `json:"customer_id"`
	Quantity    int64           `json:"quantity" validate:"required,gt=0"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
}

type saleResponse struct {
	ID           int64               `json:"id"`
	Number       string              `json:"number"`
	ItemID       int64               `json:"item_id"`
	ItemName     string              `json:"item_name,omitempty"`
	ItemSKU      string              `json:"item_sku,omitempty"`
	CustomerID   *int64              `json:"customer_id,omitempty"`
	CustomerName string              `json:"customer_name,omitempty"`
	Quantity     int64               `json:"quantity"`
	UnitPrice    decimal.NullDecimal `json:"unit_price"`
	Total        decimal.Decimal     `json:"total"`
	Discount     decimal.Decimal     `json:"discount"`
	Description  string              `json:"description,omitempty"`
	Date         time.Time           `json:"date"`
	CreatedAt    time.Time           `json:"created_at"`
}

func saleToResponse(s Sale) saleResponse {
	return saleResponse{
		ID:           s.Entry.ID,
		Number:       s.Entry.Number,
		ItemID:       s.Entry.ItemID,
		ItemName:     s.ItemName,
		ItemSKU:      s.ItemSKU,
		CustomerID:   s.Entry.CounterpartyID,
		CustomerName: s.CustomerName,
		Quantity:     s.Entry.Quantity,
		UnitPrice:    s.Entry.UnitValue,
		Total:        s.Total,
		Discount:     s.Discount,
		Description:  s.Entry.Description,
		Date:         s.Entry.Date,
		CreatedAt:    s.Entry.CreatedAt,
	}
}

func (h *Handler) saleInput(w http.ResponseWriter, r *http.Request) (SaleInput, bool) {
	var payload salePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return SaleInput{}, false
	}
	if err := httpx.Validate(h.validator, payload); err != nil {
		httpx.RespondError(w, err)
		return SaleInput{}, false
	}
	date, ok := parseDate(payload.Date)
	if !ok {
		httpx.RespondError(w, shared.FieldError("date", "Must be a YYYY-MM-DD or RFC3339 date."))
		return SaleInput{}, false
	}
	return SaleInput{
		ItemID:      payload.ItemID,
		CustomerID:  payload.CustomerID,
		Quantity:    payload.Quantity,
		UnitPrice:   payload.UnitPrice,
		Description: payload.Description,
		Date:        date,
	}, true
}

func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	input, ok := h.saleInput(w, r)
	if !ok {
		return
	}
	sale, err := h.service.CreateSale(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("sale created",
		slog.String("number", sale.Entry.Number),
		slog.Int64("item_id", sale.Entry.ItemID),
		slog.Int64("quantity", sale.Entry.Quantity))
	httpx.JSON(w, http.StatusCreated, saleToResponse(sale))
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
		return
	}
	sale, err := h.service.GetSale(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, saleToResponse(sale))
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
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
	result, err := h.service.ListSales(r.Context(), from, to, limit)
	if err != nil {
		h.logger.Error("list sales", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]saleResponse, 0, len(result))
	for _, sale := range result {
		out = append(out, saleToResponse(sale))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) updateSale(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
		return
	}
	input, ok := h.saleInput(w, r)
	if !ok {
		return
	}
	sale, err := h.service.UpdateSale(r.Context(), id, input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, saleToResponse(sale))
}

func (h *Handler) deleteSale(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
		return
	}
	if err := h.service.DeleteSale(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type customerPayload struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type customerResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func customerToResponse(c Customer) customerResponse {
	return customerResponse{ID: c.ID, Name: c.Name, Email: c.Email, Phone: c.Phone, Address: c.Address, CreatedAt: c.CreatedAt}
}

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if limitStr := q.Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil {
			limit = n
		}
	}
	customers, err := h.service.ListCustomers(r.Context(), q.Get("search"), limit)
	if err != nil {
		h.logger.Error("list customers", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]customerResponse, 0, len(customers))
	for _, c := range customers {
		out = append(out, customerToResponse(c))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var payload customerPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := httpx.Validate(h.validator, payload); err != nil {
		httpx.RespondError(w, err)
		return
	}
	customer, err := h.service.CreateCustomer(r.Context(), CustomerInput{Name: payload.Name, Email: payload.Email, Phone: payload.Phone, Address: payload.Address})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, customerToResponse(customer))
}

func (h *Handler) getCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
		return
	}
	customer, err := h.service.GetCustomer(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, customerToResponse(customer))
}

func (h *Handler) updateCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
		return
	}
	var payload customerPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := httpx.Validate(h.validator, payload); err != nil {
		httpx.RespondError(w, err)
		return
	}
	customer, err := h.service.UpdateCustomer(r.Context(), id, CustomerInput{Name: payload.Name, Email: payload.Email, Phone: payload.Phone, Address: payload.Address})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, customerToResponse(customer))
}

func (h *Handler) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
		return
	}
	if err := h.service.DeleteCustomer(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
