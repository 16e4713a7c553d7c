package core

import (
	"context"
	"fmt"
)

type contextKey string

const ctxKeyCaller contextKey = "caller"

// Caller identifies an authenticated principal. How it was authenticated
// is the transport's business; the core only checks it is present.
type Caller struct {
	ID string
}

// WithCaller marks ctx as carrying an authenticated caller.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, ctxKeyCaller, c)
}

// CallerFrom extracts the caller from ctx.
func CallerFrom(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(ctxKeyCaller).(Caller)
	return c, ok
}

func requireCaller(ctx context.Context, op string) (Caller, error) {
	c, ok := CallerFrom(ctx)
	if !ok {
		return Caller{}, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}
	return c, nil
}
