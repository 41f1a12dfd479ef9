package auth

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/seekweb/pos-api/internal/common"
)

// Handler exposes authentication endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the public auth routes on a router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/auth/login", h.Login)
}

// AdminRoutes mounts operator management routes. Callers guard these with
// Middleware.RequireAdmin.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Post("/operators", h.CreateOperator)
}

// MeRoutes mounts routes that need an authenticated operator.
func (h *Handler) MeRoutes(r chi.Router) {
	r.Get("/auth/me", h.Me)
}

type loginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in loginPayload
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid request body", nil)
		return
	}
	res, err := h.service.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": res})
}

type operatorPayload struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

// CreateOperator handles POST /operators.
func (h *Handler) CreateOperator(w http.ResponseWriter, r *http.Request) {
	var in operatorPayload
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid request body", nil)
		return
	}
	op, err := h.service.RegisterOperator(r.Context(), in.Username, in.Name, in.Role, in.Password)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": op})
}

// Me handles GET /auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := common.OperatorID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		return
	}
	op, err := h.service.Me(r.Context(), operatorID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": op})
}
