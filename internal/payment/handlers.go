package payment

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/seekweb/pos-api/internal/common"
)

// Handler exposes tender collection endpoints for the register.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the payment routes on a router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/payment/methods", h.Methods)
	r.Get("/payment", h.Get)
	r.Post("/payment/tenders", h.AddTender)
	r.Delete("/payment/tenders/{tenderId}", h.RemoveTender)
	r.Delete("/payment", h.Cancel)
}

func registerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := common.RegisterID(r.Context())
	if !ok || id == "" {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "register id is required", nil)
		return "", false
	}
	return id, true
}

// Methods handles GET /payment/methods.
func (h *Handler) Methods(w http.ResponseWriter, r *http.Request) {
	methods, err := h.service.Methods.List(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if methods == nil {
		methods = []Method{}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": methods})
}

// Get handles GET /payment.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	reg, ok := registerID(w, r)
	if !ok {
		return
	}
	st, err := h.service.Get(r.Context(), reg)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": st})
}

type tenderPayload struct {
	Method    string  `json:"method"`
	Amount    string  `json:"amount"`
	Reference *string `json:"reference"`
}

// AddTender handles POST /payment/tenders.
func (h *Handler) AddTender(w http.ResponseWriter, r *http.Request) {
	reg, ok := registerID(w, r)
	if !ok {
		return
	}
	var payload tenderPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid request body", nil)
		return
	}
	amount, err := decimal.NewFromString(payload.Amount)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid tender amount", nil)
		return
	}
	st, err := h.service.AddTender(r.Context(), reg, payload.Method, amount, payload.Reference)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": st})
}

// RemoveTender handles DELETE /payment/tenders/{tenderId}.
func (h *Handler) RemoveTender(w http.ResponseWriter, r *http.Request) {
	reg, ok := registerID(w, r)
	if !ok {
		return
	}
	tenderID, err := uuid.Parse(chi.URLParam(r, "tenderId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid tender id", nil)
		return
	}
	st, err := h.service.RemoveTender(r.Context(), reg, tenderID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": st})
}

// Cancel handles DELETE /payment.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	reg, ok := registerID(w, r)
	if !ok {
		return
	}
	if err := h.service.Cancel(r.Context(), reg); err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]string{"status": "cancelled"}})
}
