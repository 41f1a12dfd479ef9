package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/seekweb/pos-api/internal/common"
)

var errNoToken = errors.New("auth: token missing")

// Middleware wires operator authentication into HTTP handlers.
type Middleware struct {
	Service *Service
}

// RequireOperator enforces that a valid shift token is present before
// executing the next handler and places the operator id on the context.
func (m Middleware) RequireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, _, err := m.authenticateRequest(r)
		if err != nil {
			if errors.Is(err, errNoToken) {
				common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
				return
			}
			var appErr *common.AppError
			if errors.As(err, &appErr) {
				status := appErr.HTTPStatus
				if status == 0 {
					status = http.StatusUnauthorized
				}
				common.JSONError(w, status, appErr.Code, appErr.Message, appErr.Details)
				return
			}
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin additionally checks the role claim on the shift token.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, claims, err := m.authenticateRequest(r)
		if err != nil {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
			return
		}
		if claims.Role != "admin" {
			common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "admin role required", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m Middleware) authenticateRequest(r *http.Request) (context.Context, Claims, error) {
	if m.Service == nil {
		return r.Context(), Claims{}, errors.New("auth: service not configured")
	}
	token := extractToken(r)
	if token == "" {
		return r.Context(), Claims{}, errNoToken
	}
	claims, err := m.Service.ParseToken(token)
	if err != nil {
		return r.Context(), Claims{}, err
	}
	return common.WithOperatorID(r.Context(), claims.OperatorID), claims, nil
}

func extractToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// RegisterHeader is the HTTP header naming the till a request acts for.
const RegisterHeader = "X-Register-Id"

// RequireRegister places the register id from the request header on the
// context. Till endpoints reject requests that do not name a register.
func RequireRegister(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		register := strings.TrimSpace(r.Header.Get(RegisterHeader))
		if register == "" {
			common.JSONError(w, http.StatusBadRequest, "REGISTER_REQUIRED", "X-Register-Id header is required", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(common.WithRegisterID(r.Context(), register)))
	})
}
