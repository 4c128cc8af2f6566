package tracing

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// InjectTraceID attaches a logger carrying a fresh trace id to ctx.
func InjectTraceID(ctx context.Context) context.Context {
	return InjectTraceIDValue(ctx, uuid.New().String())
}

// InjectTraceIDValue is InjectTraceID with a caller supplied id, used when the
// id arrives with a request.
func InjectTraceIDValue(ctx context.Context, id string) context.Context {
	logger := log.With().Str("traceId", id).Logger()
	return logger.WithContext(ctx)
}
