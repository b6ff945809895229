package context

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

const (
	RequestIDKey = "request_id"
	CycleIDKey   = "cycle_id"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	requestID, ok := ctx.Value(RequestIDKey).(string)
	if !ok || requestID == "" {
		return "unknown"
	}
	return requestID
}

func WithCycleID(ctx context.Context, cycleID uint64) context.Context {
	return context.WithValue(ctx, CycleIDKey, cycleID)
}

func GetCycleID(ctx context.Context) uint64 {
	id, _ := ctx.Value(CycleIDKey).(uint64)
	return id
}

// FromFiberCtx detaches the request id from fiber's pooled context so it can
// outlive the handler.
func FromFiberCtx(c *fiber.Ctx) context.Context {
	requestID, ok := c.Locals("X-Request-ID").(string)
	if !ok || requestID == "" {
		requestID = c.Get("X-Request-ID")

		if requestID == "" {
			requestID = "unknown"
		}
	}

	return WithRequestID(context.Background(), requestID)
}
