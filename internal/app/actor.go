package app

import (
	"context"
	"strings"
)

// WithActor attaches the name recorded as changedBy on history entries written under ctx.
func WithActor(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, actorContextKey{}, strings.TrimSpace(name))
}

// ActorFromContext returns the attached actor name when present.
func ActorFromContext(ctx context.Context) (string, bool) {
	raw := ctx.Value(actorContextKey{})
	name, ok := raw.(string)
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

// actorContextKey stores context keys for actor names.
type actorContextKey struct{}

// actorLocked resolves who a mutation is attributed to: the context actor, then the
// host-bound user, then the configured current user.
func (s *Service) actorLocked(ctx context.Context) string {
	if name, ok := ActorFromContext(ctx); ok {
		return name
	}
	if s.state.Host.UserID != "" {
		return s.state.Host.UserID
	}
	return s.currentUser
}
