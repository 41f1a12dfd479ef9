package cart

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/seekweb/pos-api/internal/common"
)

// Handler exposes the register cart endpoints. The register id is taken from
// the request context, placed there by the register middleware.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the cart routes on a router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/cart", h.Get)
	r.Post("/cart/items", h.Add)
	r.Post("/cart/scan", h.Scan)
	r.Delete("/cart/items/{productId}", h.Remove)
	r.Put("/cart/customer", h.AttachCustomer)
	r.Delete("/cart", h.Clear)
}

func registerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := common.RegisterID(r.Context())
	if !ok || id == "" {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "register id is required", nil)
		return "", false
	}
	return id, true
}

// Get handles GET /cart.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	reg, ok := registerID(w, r)
	if !ok {
		return
	}
	view, err := h.service.Get(r.Context(), reg)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

type addPayload struct {
	Code string `json:"code"`
	Qty  int    `json:"qty"`
}

// Add handles POST /cart/items.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	reg, ok := registerID(w, r)
	if !ok {
		return
	}
	var payload addPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid request body", nil)
		return
	}
	if payload.Qty == 0 {
		payload.Qty = 1
	}
	view, err := h.service.Add(r.Context(), reg, payload.Code, payload.Qty)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

type scanPayload struct {
	Code string `json:"code"`
}

// Scan handles POST /cart/scan, the barcode scanner path. One scan adds
// exactly one unit.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	reg, ok := registerID(w, r)
	if !ok {
		return
	}
	var payload scanPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid request body", nil)
		return
	}
	view, err := h.service.Add(r.Context(), reg, payload.Code, 1)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// Remove handles DELETE /cart/items/{productId}.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	reg, ok := registerID(w, r)
	if !ok {
		return
	}
	productID, err := uuid.Parse(chi.URLParam(r, "productId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid product id", nil)
		return
	}
	view, err := h.service.Remove(r.Context(), reg, productID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

type customerPayload struct {
	CustomerID string `json:"customerId"`
}

// AttachCustomer handles PUT /cart/customer.
func (h *Handler) AttachCustomer(w http.ResponseWriter, r *http.Request) {
	reg, ok := registerID(w, r)
	if !ok {
		return
	}
	var payload customerPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid request body", nil)
		return
	}
	customerID, err := uuid.Parse(payload.CustomerID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid customer id", nil)
		return
	}
	view, err := h.service.AttachCustomer(r.Context(), reg, customerID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// Clear handles DELETE /cart.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	reg, ok := registerID(w, r)
	if !ok {
		return
	}
	if err := h.service.Clear(r.Context(), reg); err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]string{"status": "cleared"}})
}
