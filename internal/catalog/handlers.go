package catalog

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/seekweb/pos-api/internal/common"
)

// Handler exposes catalog endpoints. Lookup and search serve the register,
// the rest is back-office product management.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the catalog routes on a router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/products", h.Search)
	r.Get("/products/lookup/{code}", h.Lookup)
	r.Get("/products/{id}", h.Get)
	r.Post("/products", h.Create)
	r.Put("/products/{id}", h.Update)
	r.Delete("/products/{id}", h.Deactivate)
}

// Lookup handles GET /products/lookup/{code}.
func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Lookup(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": p})
}

// Get handles GET /products/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid product id", nil)
		return
	}
	p, err := h.service.ByID(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": p})
}

// Search handles GET /products?q=...&limit=...
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
	items, err := h.service.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": items})
}

type productPayload struct {
	Name          string  `json:"name"`
	Barcode       *string `json:"barcode"`
	PurchasePrice string  `json:"purchasePrice"`
	SalePrice     string  `json:"salePrice"`
	Stock         int     `json:"stock"`
	TaxRateID     string  `json:"taxRateId"`
}

func (p productPayload) toInput() (ProductInput, error) {
	purchase, err := decimal.NewFromString(p.PurchasePrice)
	if err != nil {
		return ProductInput{}, common.NewAppError("VALIDATION", "invalid purchase price", http.StatusBadRequest, err)
	}
	sale, err := decimal.NewFromString(p.SalePrice)
	if err != nil {
		return ProductInput{}, common.NewAppError("VALIDATION", "invalid sale price", http.StatusBadRequest, err)
	}
	taxRateID, err := uuid.Parse(p.TaxRateID)
	if err != nil {
		return ProductInput{}, common.NewAppError("VALIDATION", "invalid tax rate id", http.StatusBadRequest, err)
	}
	return ProductInput{
		Name:          p.Name,
		Barcode:       p.Barcode,
		PurchasePrice: purchase,
		SalePrice:     sale,
		Stock:         p.Stock,
		TaxRateID:     taxRateID,
	}, nil
}

// Create handles POST /products.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var payload productPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid request body", nil)
		return
	}
	input, err := payload.toInput()
	if err != nil {
		common.WriteError(w, err)
		return
	}
	p, err := h.service.Create(r.Context(), input)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": p})
}

// Update handles PUT /products/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid product id", nil)
		return
	}
	var payload productPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid request body", nil)
		return
	}
	input, err := payload.toInput()
	if err != nil {
		common.WriteError(w, err)
		return
	}
	p, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": p})
}

// Deactivate handles DELETE /products/{id}.
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid product id", nil)
		return
	}
	if err := h.service.Deactivate(r.Context(), id); err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]string{"status": "deactivated"}})
}
