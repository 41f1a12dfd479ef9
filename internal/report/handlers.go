package report

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/seekweb/pos-api/internal/common"
)

// Handler exposes the back-office report endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the report routes on a router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/reports/daily", h.Daily)
	r.Get("/reports/top-products", h.TopProducts)
	r.Get("/reports/payment-methods", h.PaymentMethods)
}

func intQuery(r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// Daily handles GET /reports/daily?days=...
func (h *Handler) Daily(w http.ResponseWriter, r *http.Request) {
	days, ok := intQuery(r, "days")
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid days", nil)
		return
	}
	rows, err := h.service.Daily(r.Context(), days)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if rows == nil {
		rows = []DailyRow{}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

// TopProducts handles GET /reports/top-products?days=...&limit=...
func (h *Handler) TopProducts(w http.ResponseWriter, r *http.Request) {
	days, ok := intQuery(r, "days")
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid days", nil)
		return
	}
	limit, ok := intQuery(r, "limit")
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid limit", nil)
		return
	}
	rows, err := h.service.TopProducts(r.Context(), days, limit)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if rows == nil {
		rows = []TopProductRow{}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

// PaymentMethods handles GET /reports/payment-methods?days=...
func (h *Handler) PaymentMethods(w http.ResponseWriter, r *http.Request) {
	days, ok := intQuery(r, "days")
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid days", nil)
		return
	}
	rows, err := h.service.PaymentMethods(r.Context(), days)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if rows == nil {
		rows = []MethodRow{}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}
