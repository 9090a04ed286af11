package httputil

import (
	"context"
	"net/http"
)

// Context key type to avoid collisions
type contextKey string

const actorIDKey contextKey = "actorID"

// WithActorID stores the authenticated actor on the request context
func WithActorID(r *http.Request, actorID string) *http.Request {
	return r.WithContext(ContextWithActorID(r.Context(), actorID))
}

// ContextWithActorID returns a copy of ctx carrying actorID
func ContextWithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorIDKey, actorID)
}

// GetActorID returns the authenticated actor, or "" when the request is anonymous
func GetActorID(r *http.Request) string {
	actorID, _ := r.Context().Value(actorIDKey).(string)
	return actorID
}
