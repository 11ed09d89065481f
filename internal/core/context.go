package core

import "context"

type contextKey string

const ctxKeyActor contextKey = "actor"

// ContextWithActor records the staff member performing the request.
func ContextWithActor(ctx context.Context, s *Staff) context.Context {
	return context.WithValue(ctx, ctxKeyActor, s)
}

// ActorFromContext returns the acting staff member, or nil for anonymous requests.
func ActorFromContext(ctx context.Context) *Staff {
	if s, ok := ctx.Value(ctxKeyActor).(*Staff); ok {
		return s
	}
	return nil
}
