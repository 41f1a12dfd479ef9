package customer

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/seekweb/pos-api/internal/common"
)

// Handler exposes customer endpoints.
type Handler struct {
	store    Store
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(store Store, validate *validator.Validate) *Handler {
	return &Handler{store: store, validate: validate}
}

// Routes mounts the customer routes on a router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/customers", h.Search)
	r.Get("/customers/{id}", h.Get)
	r.Get("/customers/card/{code}", h.GetByCard)
	r.Post("/customers", h.Create)
	r.Put("/customers/{id}", h.Update)
}

// Search handles GET /customers?q=...&limit=...
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid limit", nil)
			return
		}
		limit = parsed
	}
	customers, err := h.store.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if customers == nil {
		customers = []Customer{}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": customers})
}

// Get handles GET /customers/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid customer id", nil)
		return
	}
	c, err := h.store.FindByID(r.Context(), id)
	if err != nil {
		common.WriteError(w, WrapNotFound(err))
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// GetByCard handles GET /customers/card/{code}.
func (h *Handler) GetByCard(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.FindByCard(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		common.WriteError(w, WrapNotFound(err))
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (Input, bool) {
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid request body", nil)
		return Input{}, false
	}
	if err := h.validate.Struct(in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid customer payload", err.Error())
		return Input{}, false
	}
	return in, true
}

// Create handles POST /customers.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	c, err := h.store.Create(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": c})
}

// Update handles PUT /customers/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid customer id", nil)
		return
	}
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	c, err := h.store.Update(r.Context(), id, in)
	if err != nil {
		common.WriteError(w, WrapNotFound(err))
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}
