package inventory

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

// maxImportSize caps uploaded CSV files at 5 MiB.
const maxImportSize = 5 << 20

// Handler wires HTTP endpoints for items, adjustments, alerts and imports.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	importer  *Importer
	validator *validator.Validate
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service, importer *Importer) *Handler {
	return &Handler{logger: logger, service: service, importer: importer, validator: httpx.NewValidator()}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/items", func(r chi.Router) {
		r.Get("/", h.listItems)
		r.Post("/", h.createItem)
		r.Get("/import/template", h.importTemplate)
		r.Post("/import", h.importItems)
		r.Get("/{id}", h.getItem)
		r.Put("/{id}", h.updateItem)
		r.Delete("/{id}", h.deleteItem)
	})
	r.Route("/adjustments", func(r chi.Router) {
		r.Get("/", h.listAdjustments)
		r.Post("/", h.createAdjustment)
		r.Get("/{id}", h.getAdjustment)
		r.Put("/{id}", h.updateAdjustment)
		r.Delete("/{id}", h.deleteAdjustment)
	})
	r.Get("/alerts", h.listAlerts)
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

type itemPayload struct {
	Name          string              `json:"name" validate:"required"`
	SKU           string              `json:"sku" validate:"required"`
	UnitID        int64               `json:"unit_id" validate:"required,gt=0"`
	CategoryID    *int64              `json:"category_id"`
	SellingPrice  decimal.NullDecimal `json:"selling_price"`
	PurchasePrice decimal.NullDecimal `json:"purchase_price"`
	OpeningStock  *int64              `json:"opening_stock"`
	ReorderPoint  *int64              `json:"reorder_point"`
	CurrentStock  *int64              `json:"current_stock"`
}

func (p itemPayload) toInput() ItemInput {
	return ItemInput{
		Name:          p.Name,
		SKU:           p.SKU,
		UnitID:        p.UnitID,
		CategoryID:    p.CategoryID,
		SellingPrice:  p.SellingPrice,
		PurchasePrice: p.PurchasePrice,
		OpeningStock:  p.OpeningStock,
		ReorderPoint:  p.ReorderPoint,
		CurrentStock:  p.CurrentStock,
	}
}

type itemResponse struct {
	ID            int64               `json:"id"`
	Name          string              `json:"name"`
	SKU           string              `json:"sku"`
	UnitID        int64               `json:"unit_id"`
	CategoryID    *int64              `json:"category_id,omitempty"`
	SellingPrice  decimal.NullDecimal `json:"selling_price"`
	PurchasePrice decimal.NullDecimal `json:"purchase_price"`
	OpeningStock  *int64              `json:"opening_stock,omitempty"`
	ReorderPoint  *int64              `json:"reorder_point,omitempty"`
	CurrentStock  int64               `json:"current_stock"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func itemToResponse(item Item) itemResponse {
	return itemResponse{
		ID:            item.ID,
		Name:          item.Name,
		SKU:           item.SKU,
		UnitID:        item.UnitID,
		CategoryID:    item.CategoryID,
		SellingPrice:  item.SellingPrice,
		PurchasePrice: item.PurchasePrice,
		OpeningStock:  item.OpeningStock,
		ReorderPoint:  item.ReorderPoint,
		CurrentStock:  item.CurrentStock,
		CreatedAt:     item.CreatedAt,
		UpdatedAt:     item.UpdatedAt,
	}
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ItemFilter{Search: q.Get("search")}
	if categoryStr := q.Get("category_id"); categoryStr != "" {
		if id, err := strconv.ParseInt(categoryStr, 10, 64); err == nil {
			filter.CategoryID = id
		}
	}
	filter.LowStock = q.Get("low_stock") == "true"
	if limitStr := q.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}
	if offsetStr := q.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	items, err := h.service.ListItems(r.Context(), filter)
	if err != nil {
		h.logger.Error("list items", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]itemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, itemToResponse(item))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	var payload itemPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := httpx.Validate(h.validator, payload); err != nil {
		httpx.RespondError(w, err)
		return
	}
	item, err := h.service.CreateItem(r.Context(), payload.toInput())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, itemToResponse(item))
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
		return
	}
	item, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, itemToResponse(item))
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
		return
	}
	var payload itemPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := httpx.Validate(h.validator, payload); err != nil {
		httpx.RespondError(w, err)
		return
	}
	item, err := h.service.UpdateItem(r.Context(), id, payload.toInput())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, itemToResponse(item))
}

func (h *Handler) deleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
		return
	}
	if err := h.service.DeleteItem(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type adjustmentPayload struct {
	ItemID      int64               `json:"item_id" validate:"required,gt=0"`
	Type        string              `json:"type" validate:"required,oneof=INCREASE DECREASE"`
	Quantity    int64               `json:"quantity" validate:"required,gt=0"`
	CostPrice   decimal.NullDecimal `json:"cost_price"`
	Reason      string              `json:"reason"`
	Description string              `json:"description"`
	Date        string              `json:"date"`
}

type adjustmentResponse struct {
	ID          int64               `json:"id"`
	ItemID      int64               `json:"item_id"`
	Type        AdjustmentType      `json:"type"`
	Quantity    int64               `json:"quantity"`
	CostPrice   decimal.NullDecimal `json:"cost_price"`
	Reason      string              `json:"reason"`
	Description string              `json:"description,omitempty"`
	Date        time.Time           `json:"date"`
	NewStock    *int64              `json:"new_stock,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

func adjustmentToResponse(entry Entry, newStock *int64) adjustmentResponse {
	return adjustmentResponse{
		ID:          entry.ID,
		ItemID:      entry.ItemID,
		Type:        entry.AdjustmentType,
		Quantity:    entry.Quantity,
		CostPrice:   entry.UnitValue,
		Reason:      entry.Reason,
		Description: entry.Description,
		Date:        entry.Date,
		NewStock:    newStock,
		CreatedAt:   entry.CreatedAt,
	}
}

func (h *Handler) adjustmentInput(w http.ResponseWriter, r *http.Request) (AdjustmentInput, bool) {
	var payload adjustmentPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return AdjustmentInput{}, false
	}
	if err := httpx.Validate(h.validator, payload); err != nil {
		httpx.RespondError(w, err)
		return AdjustmentInput{}, false
	}
	date, ok := parseDate(payload.Date)
	if !ok {
		httpx.RespondError(w, shared.FieldError("date", "Must be a YYYY-MM-DD or RFC3339 date."))
		return AdjustmentInput{}, false
	}
	return AdjustmentInput{
		ItemID:      payload.ItemID,
		Type:        AdjustmentType(payload.Type),
		Quantity:    payload.Quantity,
		CostPrice:   payload.CostPrice,
		Reason:      payload.Reason,
		Description: payload.Description,
		Date:        date,
	}, true
}

func (h *Handler) createAdjustment(w http.ResponseWriter, r *http.Request) {
	input, ok := h.adjustmentInput(w, r)
	if !ok {
		return
	}
	result, err := h.service.CreateAdjustment(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, adjustmentToResponse(result.Entry, &result.NewStock))
}

func (h *Handler) getAdjustment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
		return
	}
	entry, err := h.service.GetAdjustment(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, adjustmentToResponse(entry, nil))
}

func (h *Handler) listAdjustments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := EntryFilter{Kind: KindAdjustment}
	if itemStr := q.Get("item_id"); itemStr != "" {
		if id, err := strconv.ParseInt(itemStr, 10, 64); err == nil {
			filter.ItemID = id
		}
	}
	if from, ok := parseDate(q.Get("from")); ok {
		filter.From = from
	}
	if to, ok := parseDate(q.Get("to")); ok {
		filter.To = to
	}
	if limitStr := q.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}
	entries, err := h.service.ListAdjustments(r.Context(), filter)
	if err != nil {
		h.logger.Error("list adjustments", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]adjustmentResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, adjustmentToResponse(entry, nil))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) updateAdjustment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
		return
	}
	input, ok := h.adjustmentInput(w, r)
	if !ok {
		return
	}
	result, err := h.service.UpdateAdjustment(r.Context(), id, input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, adjustmentToResponse(result.Entry, &result.NewStock))
}

func (h *Handler) deleteAdjustment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
		return
	}
	if _, err := h.service.DeleteAdjustment(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type alertResponse struct {
	ID              int64     `json:"id"`
	ItemID          int64     `json:"item_id"`
	AlertType       string    `json:"alert_type"`
	Message         string    `json:"message"`
	IsResolved      bool      `json:"is_resolved"`
	NotifiedByEmail bool      `json:"notified_by_email"`
	CreatedAt       time.Time `json:"created_at"`
}

func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	onlyUnresolved := r.URL.Query().Get("unresolved") != "false"
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil {
			limit = n
		}
	}
	alerts, err := h.service.ListAlerts(r.Context(), onlyUnresolved, limit)
	if err != nil {
		h.logger.Error("list alerts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]alertResponse, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, alertResponse{
			ID:              a.ID,
			ItemID:          a.ItemID,
			AlertType:       a.AlertType,
			Message:         a.Message,
			IsResolved:      a.IsResolved,
			NotifiedByEmail: a.NotifiedByEmail,
			CreatedAt:       a.CreatedAt,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) importTemplate(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="items_import_template.csv"`)
	_, _ = w.Write(Template())
}

func (h *Handler) importItems(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "expected multipart form with a file field")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "missing file upload")
		return
	}
	defer file.Close()

	result, err := h.importer.ImportItems(r.Context(), file)
	if err != nil {
		h.logger.Error("import items", slog.String("filename", header.Filename), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("imported items",
		slog.String("filename", header.Filename),
		slog.Int("total", result.TotalRows),
		slog.Int("succeeded", result.SuccessfulImports),
		slog.Int("failed", result.FailedImports))
	httpx.JSON(w, http.StatusOK, result)
}
