package checkout

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/seekweb/pos-api/internal/common"
)

// Handler exposes the checkout endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the checkout routes on a router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/checkout", h.Start)
	r.Post("/checkout/commit", h.Commit)
}

func registerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := common.RegisterID(r.Context())
	if !ok || id == "" {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "register id is required", nil)
		return "", false
	}
	return id, true
}

// Start handles POST /checkout.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	reg, ok := registerID(w, r)
	if !ok {
		return
	}
	st, err := h.service.Start(r.Context(), reg)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": st})
}

// Commit handles POST /checkout/commit.
func (h *Handler) Commit(w http.ResponseWriter, r *http.Request) {
	reg, ok := registerID(w, r)
	if !ok {
		return
	}
	var operatorID *uuid.UUID
	if raw, ok := common.OperatorID(r.Context()); ok && raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			operatorID = &id
		}
	}
	result, err := h.service.Commit(r.Context(), reg, operatorID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": result})
}
