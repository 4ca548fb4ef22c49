package masterdata

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/stockflow-hq/stockflow/internal/platform/httpx"
)

// Handler wires HTTP endpoints for units and categories.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs masterdata handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: httpx.NewValidator()}
}

// MountRoutes registers masterdata routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/units", func(r chi.Router) {
		r.Get("/", h.listUnits)
		r.Post("/", h.createUnit)
		r.Get("/{id}", h.getUnit)
		r.Put("/{id}", h.updateUnit)
		r.Delete("/{id}", h.deleteUnit)
	})
	r.Route("/categories", func(r chi.Router) {
		r.Get("/", h.listCategories)
		r.Post("/", h.createCategory)
		r.Get("/{id}", h.getCategory)
		r.Put("/{id}", h.updateCategory)
		r.Delete("/{id}", h.deleteCategory)
	})
}

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

type unitPayload struct {
	Name         string `json:"name" validate:"required"`
	Abbreviation string `json:"abbreviation"`
	Description  string `json:"description"`
}

type unitResponse struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Abbreviation string    `json:"abbreviation,omitempty"`
	Description  string    `json:"description,omitempty"`
	Label        string    `json:"label"`
	CreatedAt    time.Time `json:"created_at"`
}

func unitToResponse(u Unit) unitResponse {
	return unitResponse{ID: u.ID, Name: u.Name, Abbreviation: u.Abbreviation, Description: u.Description, Label: u.Label(), CreatedAt: u.CreatedAt}
}

func (h *Handler) listUnits(w http.ResponseWriter, r *http.Request) {
	units, err := h.service.ListUnits(r.Context())
	if err != nil {
		h.logger.Error("list units", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]unitResponse, 0, len(units))
	for _, u := range units {
		out = append(out, unitToResponse(u))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) createUnit(w http.ResponseWriter, r *http.Request) {
	var payload unitPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := httpx.Validate(h.validator, payload); err != nil {
		httpx.RespondError(w, err)
		return
	}
	unit, err := h.service.CreateUnit(r.Context(), UnitInput{Name: payload.Name, Abbreviation: payload.Abbreviation, Description: payload.Description})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, unitToResponse(unit))
}

func (h *Handler) getUnit(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
		return
	}
	unit, err := h.service.GetUnit(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, unitToResponse(unit))
}

func (h *Handler) updateUnit(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
		return
	}
	var payload unitPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := httpx.Validate(h.validator, payload); err != nil {
		httpx.RespondError(w, err)
		return
	}
	unit, err := h.service.UpdateUnit(r.Context(), id, UnitInput{Name: payload.Name, Abbreviation: payload.Abbreviation, Description: payload.Description})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, unitToResponse(unit))
}

func (h *Handler) deleteUnit(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
		return
	}
	if err := h.service.DeleteUnit(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type categoryPayload struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

type categoryResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func categoryToResponse(c Category) categoryResponse {
	return categoryResponse{ID: c.ID, Name: c.Name, Description: c.Description, CreatedAt: c.CreatedAt}
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		h.logger.Error("list categories", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, categoryToResponse(c))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var payload categoryPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := httpx.Validate(h.validator, payload); err != nil {
		httpx.RespondError(w, err)
		return
	}
	category, err := h.service.CreateCategory(r.Context(), CategoryInput{Name: payload.Name, Description: payload.Description})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, categoryToResponse(category))
}

func (h *Handler) getCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
		return
	}
	category, err := h.service.GetCategory(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, categoryToResponse(category))
}

func (h *Handler) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
		return
	}
	var payload categoryPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := httpx.Validate(h.validator, payload); err != nil {
		httpx.RespondError(w, err)
		return
	}
	category, err := h.service.UpdateCategory(r.Context(), id, CategoryInput{Name: payload.Name, Description: payload.Description})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, categoryToResponse(category))
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
		return
	}
	if err := h.service.DeleteCategory(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
