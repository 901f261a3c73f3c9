package auth

import (
	"context"
	"strings"

	"github.com/esrabs/evaluation-commerciale-be/internal/org"
)

type actorContextKey struct{}

// ContextWithActor attaches the authenticated actor to the context. Only the
// transport layer does this; core services take the actor as an argument.
func ContextWithActor(ctx context.Context, actor org.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, &actor)
}

// ActorFromContext extracts the authenticated actor from the context.
func ActorFromContext(ctx context.Context) (org.Actor, bool) {
	if ctx == nil {
		return org.Actor{}, false
	}
	v, ok := ctx.Value(actorContextKey{}).(*org.Actor)
	if !ok || v == nil {
		return org.Actor{}, false
	}
	return *v, true
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	const prefix = "bearer "
	header = strings.TrimSpace(header)
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
