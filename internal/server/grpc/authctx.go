package grpcserver

import (
	"context"

	"github.com/and161185/bagtrack/internal/model"
)

type ctxKey string

const principalKey ctxKey = "bt.principal"

// WithPrincipal stores the authenticated principal in context.
func WithPrincipal(ctx context.Context, p model.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromCtx fetches the principal from context.
func PrincipalFromCtx(ctx context.Context) (model.Principal, bool) {
	p, ok := ctx.Value(principalKey).(model.Principal)
	return p, ok && p != nil
}

// caller returns the principal or nil; services reject nil as unauthorized.
func caller(ctx context.Context) model.Principal {
	p, _ := PrincipalFromCtx(ctx)
	return p
}
