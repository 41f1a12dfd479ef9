package common

import "context"

type ctxKey string

const (
	operatorIDKey ctxKey = "session/operator-id"
	registerIDKey ctxKey = "session/register-id"
)

// Session identifies the register and operator a request acts for. It is
// passed explicitly through the context instead of living in any global
// "current user" state.
type Session struct {
	RegisterID string
	OperatorID string
}

// WithOperatorID stores the authenticated operator identifier on the context.
func WithOperatorID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, operatorIDKey, id)
}

// OperatorID extracts the operator identifier from the context if present.
func OperatorID(ctx context.Context) (string, bool) {
	v := ctx.Value(operatorIDKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// WithRegisterID stores the register identifier on the context.
func WithRegisterID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, registerIDKey, id)
}

// RegisterID extracts the register identifier from the context if present.
func RegisterID(ctx context.Context) (string, bool) {
	v := ctx.Value(registerIDKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// SessionFromContext assembles the session value from context, reporting
// whether both halves were present.
func SessionFromContext(ctx context.Context) (Session, bool) {
	op, okOp := OperatorID(ctx)
	reg, okReg := RegisterID(ctx)
	return Session{RegisterID: reg, OperatorID: op}, okOp && okReg
}
