package shared

import (
	"context"
	"net/http"
	"strconv"
	"strings"
)

const (
	// ActorIDHeader carries the authenticated user id set by the upstream gateway.
	ActorIDHeader = "X-Actor-ID"
	// ActorRoleHeader carries the actor's role.
	ActorRoleHeader = "X-Actor-Role"
)

// Actor identifies who performs an operation.
type Actor struct {
	ID       int64
	Role     string
	Elevated bool
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context.
func ActorFromContext(ctx context.Context) Actor {
	actor, _ := ctx.Value(actorContextKey{}).(Actor)
	return actor
}

// ActorFromRequest reads the actor headers. Authentication happens upstream.
func ActorFromRequest(r *http.Request) Actor {
	id, _ := strconv.ParseInt(strings.TrimSpace(r.Header.Get(ActorIDHeader)), 10, 64)
	role := strings.ToLower(strings.TrimSpace(r.Header.Get(ActorRoleHeader)))
	return Actor{ID: id, Role: role, Elevated: role == "admin" || role == "owner"}
}

// ActorMiddleware resolves the actor once per request.
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := ContextWithActor(r.Context(), ActorFromRequest(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
