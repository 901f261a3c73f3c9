package audit

import (
	"context"
	"errors"
	"strings"

	"github.com/esrabs/evaluation-commerciale-be/internal/auth"
	"github.com/esrabs/evaluation-commerciale-be/internal/obs"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID extracts the audit request id from context if present.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes an audit entry for a directory or ledger mutation, enriched
// with the request id and the acting account.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	kv := []any{"type", "audit", "event", event}
	if rid := RequestID(ctx); rid != "" {
		kv = append(kv, "request_id", rid)
	}
	if actor, ok := auth.ActorFromContext(ctx); ok {
		kv = append(kv, "actor_id", actor.ID, "actor_role", string(actor.Role))
	}
	copyFields := make(map[string]any, len(fields))
	for k, v := range fields {
		copyFields[k] = v
	}
	kv = append(kv, "fields", copyFields)

	obs.Logger().Info("audit", kv...)
	return nil
}
