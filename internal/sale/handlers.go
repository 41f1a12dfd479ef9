package sale

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/seekweb/pos-api/internal/common"
)

// Handler exposes readback endpoints for committed sales.
type Handler struct {
	store Store
}

// NewHandler constructs a Handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// Routes mounts the sale routes on a router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/sales", h.Recent)
	r.Get("/sales/{number}", h.Get)
}

// Get handles GET /sales/{number}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	record, err := h.store.FindByNumber(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "sale not found", nil)
			return
		}
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": record})
}

// Recent handles GET /sales?limit=...
func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid limit", nil)
			return
		}
		limit = parsed
	}
	sales, err := h.store.ListRecent(r.Context(), limit)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if sales == nil {
		sales = []Sale{}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sales})
}
