package rest

import (
	"context"
)

type contextKey string

const (
	contextKeyRequestID  contextKey = "request_id"
	contextKeyOperatorID contextKey = "operator_id"
)

func requestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(contextKeyRequestID).(string); ok {
		return id
	}
	return ""
}

// OperatorFromContext returns the authenticated operator id, if any
func OperatorFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKeyOperatorID).(string)
	return id, ok && id != ""
}

func withOperator(ctx context.Context, operatorID string) context.Context {
	return context.WithValue(ctx, contextKeyOperatorID, operatorID)
}
