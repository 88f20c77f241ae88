package obs

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ctxKey string

const RequestIDKey ctxKey = "req_id"

const tracerName = "trip-planner-service"

// WithRequestID returns a context carrying the request id used in logs and spans.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// Time starts a span and a timer for a leaf operation. Call the returned func
// with a pointer to the operation's named error result, typically via defer.
func Time(ctx context.Context, name string) func(errp *error) {
	_, end := Start(ctx, name)
	return end
}

// Start is Time for operations that call further instrumented code: pass the
// returned context down so their spans nest under this one.
func Start(ctx context.Context, name string) (context.Context, func(errp *error)) {
	start := time.Now()

	reqID := RequestID(ctx)
	ctx, span := otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attribute.String("req_id", reqID)))

	return ctx, func(errp *error) {
		dur := time.Since(start)
		fields := []zap.Field{
			zap.String("req_id", reqID),
			zap.String("op", name),
			zap.Int64("dur_ms", dur.Milliseconds()),
		}

		if errp != nil && *errp != nil {
			span.RecordError(*errp)
			span.SetStatus(codes.Error, (*errp).Error())
			span.End()
			zap.L().Warn("op failed", append(fields, zap.Error(*errp))...)
			return
		}
		span.End()
		zap.L().Debug("op done", fields...)
	}
}
