package models

import "context"

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Actor is a resolved identity handed to the ledger by the authentication
// collaborator. The ledger never sees credentials, only this.
type Actor struct {
	ID   int64
	Role string
}

// CanAccess reports whether the actor may operate on an account owned by
// ownerID.
func (a Actor) CanAccess(ownerID int64) bool {
	return a.ID == ownerID || a.Role == RoleAdmin
}

type actorContextKey struct{}

// ContextWithActor stores the resolved actor on the request context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext retrieves the actor placed by the auth middleware.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
